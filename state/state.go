package state

import (
	"errors"
	"sync"
)

// State is one phase of a session. OnEnter and OnExit run with the machine
// lock held and must not call back into the machine.
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Guard decides whether a transition may happen now.
type Guard func() bool

type edge struct{ from, to string }

// Machine holds the current phase. Transitions without a guard are allowed.
type Machine struct {
	mutex   sync.RWMutex
	current State
	guards  map[edge]Guard
}

func NewMachine(initial State) *Machine {
	m := &Machine{
		current: initial,
		guards:  make(map[edge]Guard),
	}
	initial.OnEnter()
	return m
}

// Guard installs g on from → to, replacing any earlier guard.
func (m *Machine) Guard(from, to State, g Guard) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.guards[edge{from.GetID(), to.GetID()}] = g
}

// ChangeState leaves the current phase and enters next unless a guard
// refuses; a refused transition runs no hooks.
func (m *Machine) ChangeState(next State) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if g, ok := m.guards[edge{m.current.GetID(), next.GetID()}]; ok && g != nil && !g() {
		return ErrTransitionNotAllowed
	}

	m.current.OnExit()
	m.current = next
	m.current.OnEnter()
	return nil
}

func (m *Machine) Current() State {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// phase is the shared part of the session phases.
type phase struct {
	ID   string
	Room RoomContext
}

func (p *phase) GetID() string { return p.ID }
func (p *phase) OnEnter()      {}
func (p *phase) OnExit()       {}
