// Package fiveinarow implements the 15×15 five-in-a-row rules.
package fiveinarow

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/wfunc/boardserver/game"
)

const (
	BoardSize = 15
	WinCount  = 5
)

const (
	Empty   = 0
	Player1 = 1
	Player2 = 2
)

type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// State is the five-in-a-row game data. Winner is 0 while undecided or drawn.
type State struct {
	Board         [BoardSize][BoardSize]int `json:"board"`
	CurrentPlayer int                       `json:"currentPlayer"`
	Winner        int                       `json:"winner"`
	GameOver      bool                      `json:"gameOver"`
	LastMove      *Coord                    `json:"lastMove"`
}

func (s *State) Terminal() bool { return s.GameOver }

func (s *State) Clone() game.State {
	c := *s
	if s.LastMove != nil {
		lm := *s.LastMove
		c.LastMove = &lm
	}
	return &c
}

// Move is a stone placement. Player is what the client claims to be and is
// only checked against the seat assigned by the server.
type Move struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Player int `json:"player"`
}

func (m Move) Target() (int, int) { return m.Row, m.Col }
func (m Move) ClaimedPlayer() int { return m.Player }

// NewGame returns an empty board with player 1 to move.
func NewGame() *State {
	return &State{CurrentPlayer: Player1}
}

// Place applies a stone for player. Checks run in a fixed order and all of
// them happen before the board is touched.
func Place(s *State, row, col, player int) (game.Outcome, error) {
	if s.GameOver {
		return game.Outcome{}, game.ErrGameOver
	}
	if s.CurrentPlayer != player {
		return game.Outcome{}, game.ErrWrongTurn
	}
	if !inBounds(row, col) {
		return game.Outcome{}, game.ErrOutOfBounds
	}
	if s.Board[row][col] != Empty {
		return game.Outcome{}, game.ErrCellOccupied
	}

	s.Board[row][col] = player
	s.LastMove = &Coord{Row: row, Col: col}

	if checkWin(&s.Board, row, col, player) {
		s.Winner = player
		s.GameOver = true
		return game.Outcome{Message: fmt.Sprintf("Player %d wins!", player), Terminal: true}, nil
	}

	if isFull(&s.Board) {
		s.GameOver = true
		return game.Outcome{Message: "Game ended in draw", Terminal: true}, nil
	}

	s.CurrentPlayer = opponent(player)
	return game.Outcome{}, nil
}

// Status describes the game for humans.
func Status(s *State) string {
	switch {
	case s.GameOver && s.Winner != Empty:
		return fmt.Sprintf("Player %d wins!", s.Winner)
	case s.GameOver:
		return "Game ended in draw"
	default:
		return fmt.Sprintf("Player %d's turn", s.CurrentPlayer)
	}
}

// RandomMove picks a uniformly random empty cell. ok is false on a full board.
func RandomMove(s *State, rng *rand.Rand) (c Coord, ok bool) {
	var empty []Coord
	for r := 0; r < BoardSize; r++ {
		for col := 0; col < BoardSize; col++ {
			if s.Board[r][col] == Empty {
				empty = append(empty, Coord{Row: r, Col: col})
			}
		}
	}
	if len(empty) == 0 {
		return Coord{Row: -1, Col: -1}, false
	}
	return empty[rng.IntN(len(empty))], true
}

var directions = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal \
	{1, -1}, // diagonal /
}

func checkWin(b *[BoardSize][BoardSize]int, row, col, player int) bool {
	for _, d := range directions {
		count := 1 + run(b, row, col, d[0], d[1], player) + run(b, row, col, -d[0], -d[1], player)
		if count >= WinCount {
			return true
		}
	}
	return false
}

func run(b *[BoardSize][BoardSize]int, row, col, dr, dc, player int) int {
	n := 0
	for r, c := row+dr, col+dc; inBounds(r, c) && b[r][c] == player; r, c = r+dr, c+dc {
		n++
	}
	return n
}

func isFull(b *[BoardSize][BoardSize]int) bool {
	for r := range b {
		for c := range b[r] {
			if b[r][c] == Empty {
				return false
			}
		}
	}
	return true
}

func inBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

func opponent(p int) int {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Engine adapts the rules to game.Engine.
type Engine struct{}

func (Engine) Type() game.Type      { return game.FiveInARow }
func (Engine) Players() int         { return 2 }
func (Engine) NewState() game.State { return NewGame() }

func (Engine) DecodeMove(data []byte) (game.Move, error) {
	var m Move
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, game.ErrBadMove
	}
	return m, nil
}

func (Engine) ApplyMove(st game.State, mv game.Move, player int) (game.Outcome, error) {
	s, ok := st.(*State)
	m, isMove := mv.(Move)
	if !ok || !isMove {
		return game.Outcome{}, game.ErrBadMove
	}
	return Place(s, m.Row, m.Col, player)
}

func (Engine) IsTerminal(st game.State) bool {
	return st.Terminal()
}
