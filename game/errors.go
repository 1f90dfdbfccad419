package game

import "errors"

var ErrUnknownGame = errors.New("unknown game type")

// ValidationError is a rejected move. It is reported to the acting player
// only; the game state is never modified when one is returned.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidation(code, msg string) *ValidationError {
	return &ValidationError{Code: code, Message: msg}
}

var (
	ErrGameOver       = newValidation("game_over", "Game is already over")
	ErrWrongTurn      = newValidation("wrong_turn", "Not your turn")
	ErrOutOfBounds    = newValidation("out_of_bounds", "Invalid coordinates")
	ErrCellOccupied   = newValidation("cell_occupied", "Cell already occupied")
	ErrPlayerMismatch = newValidation("player_mismatch", "Move claims another player")
	ErrBadMove        = newValidation("bad_move", "Malformed move")

	ErrNoSelection      = newValidation("no_selection", "No ball selected")
	ErrEmptyCell        = newValidation("empty_cell", "No ball at that cell")
	ErrTargetOccupied   = newValidation("target_occupied", "Target cell is not empty")
	ErrInvalidDirection = newValidation("invalid_direction", "Balls move only horizontally or vertically")
	ErrPathBlocked      = newValidation("path_blocked", "Path is blocked")
)

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
