// room/room.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/state"
	"github.com/wfunc/boardserver/timer"
)

// Reason says why a session ended.
type Reason string

const (
	ReasonGameOver   Reason = "game_over"
	ReasonLeft       Reason = "left"
	ReasonDisconnect Reason = "disconnect"
	ReasonShutdown   Reason = "shutdown"
)

// Room is one game session. Players holds connection ids in seat order:
// Players[0] is player 1.
type Room struct {
	ID        string
	GameType  game.Type
	Players   []string
	CreatedAt time.Time

	engine    game.Engine
	state     game.State
	lifecycle *state.Lifecycle
	mutex     sync.Mutex

	timers       *timer.TimerManager
	cleanupDelay time.Duration
	cleanupMutex sync.Mutex
	cleanupID    int64
	onExpire     func(roomID string)
}

// Snapshot is a point-in-time copy of a room that is safe to share.
type Snapshot struct {
	RoomID    string     `json:"gameId"`
	GameType  game.Type  `json:"gameType"`
	Players   []string   `json:"players"`
	Phase     string     `json:"phase"`
	State     game.State `json:"gameState"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Seat returns the 1-based player number of a participant, 0 if absent.
func (s Snapshot) Seat(clientID string) int {
	for i, p := range s.Players {
		if p == clientID {
			return i + 1
		}
	}
	return 0
}

// Others returns every participant except clientID.
func (s Snapshot) Others(clientID string) []string {
	var others []string
	for _, p := range s.Players {
		if p != clientID {
			others = append(others, p)
		}
	}
	return others
}

func newRoom(id string, engine game.Engine, players []string, timers *timer.TimerManager, cleanupDelay time.Duration, onExpire func(string)) *Room {
	r := &Room{
		ID:           id,
		GameType:     engine.Type(),
		Players:      append([]string(nil), players...),
		CreatedAt:    time.Now(),
		engine:       engine,
		state:        engine.NewState(),
		timers:       timers,
		cleanupDelay: cleanupDelay,
		onExpire:     onExpire,
	}
	r.lifecycle = state.NewLifecycle(r)
	return r
}

// --- state.RoomContext ---

func (r *Room) GetID() string {
	return r.ID
}

// IsTerminal is called by the lifecycle while r.mutex is held.
func (r *Room) IsTerminal() bool {
	return r.engine.IsTerminal(r.state)
}

func (r *Room) ScheduleCleanup() {
	if r.timers == nil {
		return
	}
	r.cleanupMutex.Lock()
	defer r.cleanupMutex.Unlock()

	id := r.ID
	r.cleanupID = r.timers.AfterFunc(r.cleanupDelay, func() { r.onExpire(id) })
}

func (r *Room) CancelCleanup() {
	if r.timers == nil {
		return
	}
	r.cleanupMutex.Lock()
	defer r.cleanupMutex.Unlock()

	if r.cleanupID != 0 {
		r.timers.Cancel(r.cleanupID)
		r.cleanupID = 0
	}
}

// --- session logic ---

// seat returns the 1-based player number of clientID, 0 if not seated.
func (r *Room) seat(clientID string) int {
	for i, p := range r.Players {
		if p == clientID {
			return i + 1
		}
	}
	return 0
}

// Phase returns the lifecycle phase.
func (r *Room) Phase() string {
	return r.lifecycle.Phase()
}

// Snapshot copies the room under its lock.
func (r *Room) Snapshot() Snapshot {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	return Snapshot{
		RoomID:    r.ID,
		GameType:  r.GameType,
		Players:   append([]string(nil), r.Players...),
		Phase:     r.lifecycle.Phase(),
		State:     r.state.Clone(),
		CreatedAt: r.CreatedAt,
	}
}
