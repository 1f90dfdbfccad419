package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{ t Type }

func (s stubEngine) Type() Type                                  { return s.t }
func (s stubEngine) Players() int                                { return 2 }
func (s stubEngine) NewState() State                             { return nil }
func (s stubEngine) DecodeMove([]byte) (Move, error)             { return nil, nil }
func (s stubEngine) ApplyMove(State, Move, int) (Outcome, error) { return Outcome{}, nil }
func (s stubEngine) IsTerminal(State) bool                       { return false }

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(stubEngine{t: FiveInARow})

	e, err := r.Get(FiveInARow)
	require.NoError(t, err)
	assert.Equal(t, FiveInARow, e.Type())

	_, err = r.Get("chess")
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestAsValidation(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", ErrWrongTurn)

	ve, ok := AsValidation(wrapped)
	require.True(t, ok)
	assert.Equal(t, "wrong_turn", ve.Code)

	_, ok = AsValidation(errors.New("boom"))
	assert.False(t, ok)
}
