// Package marble implements the 9×9 marble elimination rules: move a ball in
// a straight unobstructed line, clear runs of five or more, and three new
// balls drop after every move.
package marble

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wfunc/boardserver/game"
)

const (
	GridSize      = 9
	Colors        = 5
	MinMatch      = 5
	InitialBalls  = 5
	SpawnPerMove  = 3
	PointsPerBall = 10
)

// Empty marks a cell without a ball. Ball colors are 0..Colors-1.
const Empty = -1

type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type State struct {
	Grid     [GridSize][GridSize]int `json:"grid"`
	Score    int                     `json:"score"`
	Selected *Coord                  `json:"selectedBall"`
	GameOver bool                    `json:"gameOver"`
}

// Terminal is never true in normal play: no rule sets GameOver.
func (s *State) Terminal() bool { return s.GameOver }

func (s *State) Clone() game.State {
	c := *s
	if s.Selected != nil {
		sel := *s.Selected
		c.Selected = &sel
	}
	return &c
}

// Balls counts occupied cells.
func (s *State) Balls() int {
	n := 0
	for r := range s.Grid {
		for c := range s.Grid[r] {
			if s.Grid[r][c] != Empty {
				n++
			}
		}
	}
	return n
}

// Move relocates the ball at From to To.
type Move struct {
	FromRow int `json:"fromRow"`
	FromCol int `json:"fromCol"`
	ToRow   int `json:"toRow"`
	ToCol   int `json:"toCol"`
}

func (m Move) Target() (int, int) { return m.ToRow, m.ToCol }
func (m Move) ClaimedPlayer() int { return 0 }

// EmptyState returns a grid with no balls.
func EmptyState() *State {
	s := &State{}
	for r := range s.Grid {
		for c := range s.Grid[r] {
			s.Grid[r][c] = Empty
		}
	}
	return s
}

// NewGame returns an empty grid seeded with InitialBalls random balls.
func NewGame(rng *rand.Rand) *State {
	s := EmptyState()
	for i := 0; i < InitialBalls; i++ {
		AddRandomBall(s, rng)
	}
	return s
}

// AddRandomBall drops a ball of random color on a uniformly chosen empty
// cell. It returns false when the grid is full.
func AddRandomBall(s *State, rng *rand.Rand) bool {
	var empty []Coord
	for r := range s.Grid {
		for c := range s.Grid[r] {
			if s.Grid[r][c] == Empty {
				empty = append(empty, Coord{Row: r, Col: c})
			}
		}
	}
	if len(empty) == 0 {
		return false
	}
	cell := empty[rng.IntN(len(empty))]
	s.Grid[cell.Row][cell.Col] = rng.IntN(Colors)
	return true
}

// Select marks the ball at row, col as the one to move next.
func Select(s *State, row, col int) error {
	if !inBounds(row, col) {
		return game.ErrOutOfBounds
	}
	if s.Grid[row][col] == Empty {
		return game.ErrEmptyCell
	}
	s.Selected = &Coord{Row: row, Col: col}
	return nil
}

// MoveSelected moves the selected ball to row, col, clears finished lines and
// drops new balls. It returns the number of balls cleared.
func MoveSelected(s *State, row, col int, rng *rand.Rand) (int, error) {
	if s.Selected == nil {
		return 0, game.ErrNoSelection
	}
	if err := checkMove(s, row, col); err != nil {
		return 0, err
	}

	from := *s.Selected
	s.Grid[row][col] = s.Grid[from.Row][from.Col]
	s.Grid[from.Row][from.Col] = Empty
	s.Selected = nil

	cleared := ClearLines(s)
	s.Score += PointsPerBall * cleared

	for i := 0; i < SpawnPerMove; i++ {
		if !AddRandomBall(s, rng) {
			break
		}
	}
	return cleared, nil
}

// pathClear reports whether every cell strictly between a and b is empty.
// a and b share a row or a column.
func pathClear(s *State, a, b Coord) bool {
	dr, dc := sign(b.Row-a.Row), sign(b.Col-a.Col)
	for r, c := a.Row+dr, a.Col+dc; r != b.Row || c != b.Col; r, c = r+dr, c+dc {
		if s.Grid[r][c] != Empty {
			return false
		}
	}
	return true
}

// ClearLines removes every maximal horizontal or vertical run of MinMatch or
// more equal colors and returns how many cells were emptied. Runs are found on
// the grid as it was before any clearing, so a ball shared by a row and a
// column run counts once.
func ClearLines(s *State) int {
	var marked [GridSize][GridSize]bool

	for r := 0; r < GridSize; r++ {
		markRuns(s, &marked, r, 0, 0, 1)
	}
	for c := 0; c < GridSize; c++ {
		markRuns(s, &marked, 0, c, 1, 0)
	}

	cleared := 0
	for r := range marked {
		for c := range marked[r] {
			if marked[r][c] {
				s.Grid[r][c] = Empty
				cleared++
			}
		}
	}
	return cleared
}

func markRuns(s *State, marked *[GridSize][GridSize]bool, row, col, dr, dc int) {
	for inBounds(row, col) {
		color := s.Grid[row][col]
		n := 1
		for inBounds(row+n*dr, col+n*dc) && s.Grid[row+n*dr][col+n*dc] == color {
			n++
		}
		if color != Empty && n >= MinMatch {
			for i := 0; i < n; i++ {
				marked[row+i*dr][col+i*dc] = true
			}
		}
		row, col = row+n*dr, col+n*dc
	}
}

// Hint returns the first ball, scanning row-major, that has an empty
// orthogonal neighbour, together with that neighbour.
func Hint(s *State) (from, to Coord, ok bool) {
	neighbours := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for r := range s.Grid {
		for c := range s.Grid[r] {
			if s.Grid[r][c] == Empty {
				continue
			}
			for _, d := range neighbours {
				nr, nc := r+d[0], c+d[1]
				if inBounds(nr, nc) && s.Grid[nr][nc] == Empty {
					return Coord{Row: r, Col: c}, Coord{Row: nr, Col: nc}, true
				}
			}
		}
	}
	return Coord{}, Coord{}, false
}

func inBounds(row, col int) bool {
	return row >= 0 && row < GridSize && col >= 0 && col < GridSize
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// Engine adapts the rules to game.Engine. The random source is shared by
// every session, so it is guarded.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(seed uint64) *Engine {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Engine{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (e *Engine) Type() game.Type { return game.Marble }
func (e *Engine) Players() int    { return 1 }

func (e *Engine) NewState() game.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return NewGame(e.rng)
}

func (e *Engine) DecodeMove(data []byte) (game.Move, error) {
	var m Move
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, game.ErrBadMove
	}
	return m, nil
}

// ApplyMove selects the source ball and moves it in one step. A rejected move
// leaves the previous selection in place.
func (e *Engine) ApplyMove(st game.State, mv game.Move, _ int) (game.Outcome, error) {
	s, ok := st.(*State)
	m, isMove := mv.(Move)
	if !ok || !isMove {
		return game.Outcome{}, game.ErrBadMove
	}
	if s.GameOver {
		return game.Outcome{}, game.ErrGameOver
	}

	trial := *s
	if err := Select(&trial, m.FromRow, m.FromCol); err != nil {
		return game.Outcome{}, err
	}
	if err := checkMove(&trial, m.ToRow, m.ToCol); err != nil {
		return game.Outcome{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s.Selected = trial.Selected
	if _, err := MoveSelected(s, m.ToRow, m.ToCol, e.rng); err != nil {
		return game.Outcome{}, err
	}
	return game.Outcome{Terminal: s.GameOver}, nil
}

// checkMove validates a move of the selected ball without mutating s.
func checkMove(s *State, row, col int) error {
	if !inBounds(row, col) {
		return game.ErrOutOfBounds
	}
	if s.Grid[row][col] != Empty {
		return game.ErrTargetOccupied
	}
	from := *s.Selected
	if from.Row != row && from.Col != col {
		return game.ErrInvalidDirection
	}
	if !pathClear(s, from, Coord{Row: row, Col: col}) {
		return game.ErrPathBlocked
	}
	return nil
}

func (e *Engine) IsTerminal(st game.State) bool {
	return st.Terminal()
}
