// Command client is a demo bot. It joins the queue and plays random legal
// moves until the game ends or the opponent leaves.
package main

import (
	"encoding/json"
	"log"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"github.com/wfunc/boardserver/game/fiveinarow"
	"github.com/wfunc/boardserver/game/marble"
	"github.com/wfunc/boardserver/network"
)

type bot struct {
	conn     *websocket.Conn
	rng      *rand.Rand
	delay    time.Duration
	maxMoves int

	player int
	moves  int
}

// send formats and sends a message to the WebSocket server.
func (b *bot) send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return b.conn.WriteJSON(network.Envelope{Event: event, Data: raw})
}

func (b *bot) playFiveInARow(st *fiveinarow.State) error {
	if st.GameOver || st.CurrentPlayer != b.player {
		return nil
	}
	c, ok := fiveinarow.RandomMove(st, b.rng)
	if !ok {
		return nil
	}
	time.Sleep(b.delay)
	log.Printf("-> move (%d,%d)", c.Row, c.Col)
	return b.send(network.EventMakeFiveInARowMove, fiveinarow.Move{Row: c.Row, Col: c.Col, Player: b.player})
}

func (b *bot) playMarble(st *marble.State) (bool, error) {
	if b.moves >= b.maxMoves {
		return true, nil
	}
	from, to, ok := marble.Hint(st)
	if !ok {
		return true, nil
	}
	b.moves++
	time.Sleep(b.delay)
	log.Printf("-> moveBall (%d,%d)->(%d,%d), score %d", from.Row, from.Col, to.Row, to.Col, st.Score)
	return false, b.send(network.EventMoveBall, marble.Move{FromRow: from.Row, FromCol: from.Col, ToRow: to.Row, ToCol: to.Col})
}

// handle reacts to one server event. It reports true when the game is done.
func (b *bot) handle(env network.Envelope) (bool, error) {
	switch env.Event {
	case network.EventQueueStatus:
		var s network.QueueStatus
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return false, err
		}
		log.Printf("<- queue %s: %s (position %d)", s.Status, s.Message, s.Position)
		return s.Status == "error", nil

	case network.EventMatchFound5:
		var m struct {
			GameID       string           `json:"gameId"`
			PlayerNumber int              `json:"playerNumber"`
			Opponent     string           `json:"opponent"`
			GameState    fiveinarow.State `json:"gameState"`
		}
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return false, err
		}
		b.player = m.PlayerNumber
		log.Printf("<- matched in %s as player %d against %s", m.GameID, m.PlayerNumber, m.Opponent)
		return false, b.playFiveInARow(&m.GameState)

	case network.EventMatchFound:
		var m network.MatchFound
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return false, err
		}
		log.Printf("<- %s session %s started", m.GameType, m.GameID)
		return false, nil

	case network.EventMoveMade:
		var m struct {
			Row       int              `json:"row"`
			Col       int              `json:"col"`
			Player    int              `json:"player"`
			GameState fiveinarow.State `json:"gameState"`
		}
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return false, err
		}
		log.Printf("<- player %d played (%d,%d)", m.Player, m.Row, m.Col)
		if m.GameState.GameOver {
			log.Printf("Game over: %s", fiveinarow.Status(&m.GameState))
			return true, nil
		}
		return false, b.playFiveInARow(&m.GameState)

	case network.EventGameState:
		var m struct {
			GameState *marble.State `json:"gameState"`
			Error     string        `json:"error"`
		}
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return false, err
		}
		if m.Error != "" || m.GameState == nil {
			log.Printf("<- state error: %s", m.Error)
			return true, nil
		}
		return b.playMarble(m.GameState)

	case network.EventMoveResult:
		var r network.MoveResult
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return false, err
		}
		log.Printf("<- move rejected: %s", r.Message)
		return false, nil

	case network.EventOpponentDisconnected, network.EventGameLeft:
		var n network.Notice
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return false, err
		}
		log.Printf("<- %s", n.Message)
		return true, nil
	}
	return false, nil
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	user := flag.String("user", "", "user label shown to the opponent")
	gameType := flag.String("game", "five-in-a-row", "five-in-a-row or marble")
	delay := flag.Duration("delay", 300*time.Millisecond, "pause before each move")
	maxMoves := flag.Int("max-moves", 50, "marble moves before quitting")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	if *user != "" {
		u.RawQuery = url.Values{"user": {*user}}.Encode()
	}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	b := &bot{
		conn:     c,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		delay:    *delay,
		maxMoves: *maxMoves,
	}

	if *gameType == "marble" {
		err = b.send(network.EventJoinQueue, network.JoinQueueRequest{GameType: *gameType})
	} else {
		err = b.send(network.EventJoinFiveInARowQueue, struct{}{})
	}
	if err != nil {
		log.Fatalf("Write error: %v", err)
	}

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var env network.Envelope
			if err := c.ReadJSON(&env); err != nil {
				log.Println("Read error:", err)
				return
			}
			finished, err := b.handle(env)
			if err != nil {
				log.Println("Error:", err)
				return
			}
			if finished {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupt received, closing connection.")
	}
	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
