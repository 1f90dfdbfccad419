package fiveinarow

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/boardserver/game"
)

func mustPlace(t *testing.T, s *State, row, col, player int) game.Outcome {
	t.Helper()
	out, err := Place(s, row, col, player)
	require.NoError(t, err, "place (%d,%d) by %d", row, col, player)
	return out
}

func TestNewGame(t *testing.T) {
	s := NewGame()
	assert.Equal(t, Player1, s.CurrentPlayer)
	assert.Equal(t, Empty, s.Winner)
	assert.False(t, s.GameOver)
	assert.Nil(t, s.LastMove)
	for r := range s.Board {
		for c := range s.Board[r] {
			assert.Equal(t, Empty, s.Board[r][c])
		}
	}
}

func TestPlace_Validation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *State)
		row     int
		col     int
		player  int
		wantErr error
	}{
		{"wrong turn", nil, 7, 7, Player2, game.ErrWrongTurn},
		{"row out of bounds", nil, 15, 0, Player1, game.ErrOutOfBounds},
		{"negative col", nil, 0, -1, Player1, game.ErrOutOfBounds},
		{"occupied", func(s *State) { s.Board[3][3] = Player2 }, 3, 3, Player1, game.ErrCellOccupied},
		{"game over", func(s *State) { s.GameOver = true }, 0, 0, Player1, game.ErrGameOver},
		// game over is checked before turn order
		{"game over beats wrong turn", func(s *State) { s.GameOver = true }, 0, 0, Player2, game.ErrGameOver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewGame()
			if tt.setup != nil {
				tt.setup(s)
			}
			before := s.Clone()

			_, err := Place(s, tt.row, tt.col, tt.player)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, game.State(s), "state must be unchanged on rejection")
		})
	}
}

func TestPlace_Alternation(t *testing.T) {
	s := NewGame()
	cells := []Coord{{0, 0}, {14, 14}, {3, 9}, {9, 3}, {7, 7}, {2, 12}, {12, 2}}
	player := Player1
	for n, c := range cells {
		mustPlace(t, s, c.Row, c.Col, player)
		player = opponent(player)

		if (n+1)%2 == 0 {
			assert.Equal(t, Player1, s.CurrentPlayer, "after %d moves", n+1)
		} else {
			assert.Equal(t, Player2, s.CurrentPlayer, "after %d moves", n+1)
		}
		assert.Equal(t, &Coord{Row: c.Row, Col: c.Col}, s.LastMove)
	}
}

func TestPlace_TopRowWin(t *testing.T) {
	s := NewGame()
	for i := 0; i < 4; i++ {
		mustPlace(t, s, 0, i, Player1)
		mustPlace(t, s, 5, i, Player2)
	}
	out := mustPlace(t, s, 0, 4, Player1)

	assert.True(t, out.Terminal)
	assert.Equal(t, "Player 1 wins!", out.Message)
	assert.Equal(t, Player1, s.Winner)
	assert.True(t, s.GameOver)

	_, err := Place(s, 6, 6, Player2)
	assert.ErrorIs(t, err, game.ErrGameOver)
}

func TestPlace_WinWhenGapFilled(t *testing.T) {
	s := NewGame()
	// X X _ X X on row 7, the middle stone completes five.
	p1 := []Coord{{7, 3}, {7, 4}, {7, 6}, {7, 7}}
	p2 := []Coord{{0, 0}, {0, 2}, {0, 4}, {0, 6}}
	for i := range p1 {
		mustPlace(t, s, p1[i].Row, p1[i].Col, Player1)
		mustPlace(t, s, p2[i].Row, p2[i].Col, Player2)
	}
	out := mustPlace(t, s, 7, 5, Player1)
	assert.True(t, out.Terminal)
	assert.Equal(t, Player1, s.Winner)
}

func TestPlace_FourIsNotAWin(t *testing.T) {
	s := NewGame()
	for i := 0; i < 4; i++ {
		out := mustPlace(t, s, 2, i, Player1)
		assert.False(t, out.Terminal)
		mustPlace(t, s, 10, i*2, Player2)
	}
	assert.False(t, s.GameOver)
}

// transform maps a coordinate through a board symmetry.
type transform func(c Coord) Coord

func rotate90(c Coord) Coord { return Coord{Row: c.Col, Col: BoardSize - 1 - c.Row} }
func mirror(c Coord) Coord   { return Coord{Row: c.Row, Col: BoardSize - 1 - c.Col} }
func identity(c Coord) Coord { return c }

func TestWinDetection_Symmetry(t *testing.T) {
	lines := map[string][]Coord{
		"horizontal": {{4, 2}, {4, 3}, {4, 4}, {4, 5}, {4, 6}},
		"vertical":   {{1, 9}, {2, 9}, {3, 9}, {4, 9}, {5, 9}},
		"diagonal":   {{3, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 7}},
		"anti":       {{2, 12}, {3, 11}, {4, 10}, {5, 9}, {6, 8}},
	}
	filler := []Coord{{14, 0}, {14, 2}, {14, 4}, {14, 6}}
	transforms := map[string]transform{"identity": identity, "rot90": rotate90, "mirror": mirror}

	for lname, line := range lines {
		for tname, tf := range transforms {
			t.Run(lname+"/"+tname, func(t *testing.T) {
				s := NewGame()
				var out game.Outcome
				for i, c := range line {
					c = tf(c)
					out = mustPlace(t, s, c.Row, c.Col, Player1)
					if i < len(filler) {
						f := tf(filler[i])
						mustPlace(t, s, f.Row, f.Col, Player2)
					}
				}
				assert.True(t, out.Terminal)
				assert.Equal(t, Player1, s.Winner)
			})
		}
	}
}

func TestPlace_NeverOverwrites(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := NewGame()
	seen := map[Coord]int{}
	for !s.GameOver {
		c, ok := RandomMove(s, rng)
		require.True(t, ok)
		player := s.CurrentPlayer
		mustPlace(t, s, c.Row, c.Col, player)
		seen[c] = player

		for cell, owner := range seen {
			require.Equal(t, owner, s.Board[cell.Row][cell.Col])
		}
		_, err := Place(s, c.Row, c.Col, s.CurrentPlayer)
		if !s.GameOver {
			require.ErrorIs(t, err, game.ErrCellOccupied)
		}
	}
}

func TestPlace_Draw(t *testing.T) {
	s := NewGame()
	// Column pairs alternate and every row flips, so no line is longer than two.
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if (c/2+r)%2 == 0 {
				s.Board[r][c] = Player1
			} else {
				s.Board[r][c] = Player2
			}
		}
	}
	last := s.Board[BoardSize-1][BoardSize-1]
	s.Board[BoardSize-1][BoardSize-1] = Empty
	s.CurrentPlayer = last

	out, err := Place(s, BoardSize-1, BoardSize-1, last)
	require.NoError(t, err)
	assert.True(t, out.Terminal)
	assert.Equal(t, "Game ended in draw", out.Message)
	assert.Equal(t, Empty, s.Winner)
	assert.True(t, s.GameOver)
}

func TestPlace_Deterministic(t *testing.T) {
	a, b := NewGame(), NewGame()
	moves := []Coord{{7, 7}, {7, 8}, {8, 8}, {6, 6}, {9, 9}}
	for _, m := range moves {
		oa, ea := Place(a, m.Row, m.Col, a.CurrentPlayer)
		ob, eb := Place(b, m.Row, m.Col, b.CurrentPlayer)
		assert.Equal(t, oa, ob)
		assert.Equal(t, ea, eb)
	}
	assert.Equal(t, a, b)
}

func TestRandomMove_FullBoard(t *testing.T) {
	s := NewGame()
	for r := range s.Board {
		for c := range s.Board[r] {
			s.Board[r][c] = Player1
		}
	}
	c, ok := RandomMove(s, rand.New(rand.NewPCG(3, 4)))
	assert.False(t, ok)
	assert.Equal(t, Coord{Row: -1, Col: -1}, c)
}

func TestStatus(t *testing.T) {
	s := NewGame()
	assert.Equal(t, "Player 1's turn", Status(s))
	s.GameOver = true
	assert.Equal(t, "Game ended in draw", Status(s))
	s.Winner = Player2
	assert.Equal(t, "Player 2 wins!", Status(s))
}

func TestEngine(t *testing.T) {
	var e Engine
	assert.Equal(t, game.FiveInARow, e.Type())
	assert.Equal(t, 2, e.Players())

	st := e.NewState()
	mv, err := e.DecodeMove([]byte(`{"row":3,"col":4,"player":1}`))
	require.NoError(t, err)
	assert.Equal(t, 1, mv.ClaimedPlayer())

	_, err = e.ApplyMove(st, mv, Player1)
	require.NoError(t, err)
	assert.Equal(t, Player1, st.(*State).Board[3][4])
	assert.False(t, e.IsTerminal(st))

	_, err = e.DecodeMove([]byte(`{"row":"x"}`))
	assert.ErrorIs(t, err, game.ErrBadMove)
}
