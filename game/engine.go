// Package game defines the rule-engine abstraction shared by every board game
// the server hosts. Engines are stateless: all game data lives in a State
// value owned by the caller.
package game

import "fmt"

// Type names a game variant on the wire.
type Type string

const (
	FiveInARow Type = "five-in-a-row"
	Marble     Type = "marble"
)

// State is the authoritative data of one game instance.
type State interface {
	// Terminal reports whether no further moves can be applied.
	Terminal() bool
	// Clone returns a deep copy safe to hand to other goroutines.
	Clone() State
}

// Move is a decoded client action.
type Move interface {
	// Target is the cell the move lands on.
	Target() (row, col int)
	// ClaimedPlayer is the player number the client says it is, 0 if none.
	ClaimedPlayer() int
}

// Outcome describes a successfully applied move.
type Outcome struct {
	Message  string
	Terminal bool
}

// Engine implements the rules of one variant.
type Engine interface {
	Type() Type
	// Players is the number of participants a session needs.
	Players() int
	NewState() State
	DecodeMove(data []byte) (Move, error)
	// ApplyMove validates mv for the acting player (1-based) and mutates st.
	// On error st is left unchanged.
	ApplyMove(st State, mv Move, player int) (Outcome, error)
	IsTerminal(st State) bool
}

// Registry maps game types to engines.
type Registry map[Type]Engine

func NewRegistry(engines ...Engine) Registry {
	r := make(Registry, len(engines))
	for _, e := range engines {
		r[e.Type()] = e
	}
	return r
}

func (r Registry) Get(t Type) (Engine, error) {
	e, ok := r[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, t)
	}
	return e, nil
}
