package room

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/state"
	"github.com/wfunc/boardserver/timer"
)

var (
	ErrNotInSession     = errors.New("not in a game")
	ErrWrongGame        = errors.New("session is a different game")
	ErrAlreadyInSession = errors.New("player already in a game")
	ErrPlayerCount      = errors.New("wrong number of players")
	ErrDuplicatePlayer  = errors.New("player seated twice")
	// ErrInconsistent means the connection→session map points at a session
	// that does not exist. It is a manager bug, never a client error.
	ErrInconsistent = errors.New("session index inconsistent")
)

// CloseHook observes every session teardown.
type CloseHook func(snap Snapshot, reason Reason)

// MoveReport describes an accepted move.
type MoveReport struct {
	Snapshot Snapshot
	Move     game.Move
	Player   int
	Outcome  game.Outcome
}

// Manager owns every live session and the connection→session index.
type Manager struct {
	rooms      map[string]*Room
	playerRoom map[string]string // clientID -> roomID
	mutex      sync.RWMutex

	engines      game.Registry
	timers       *timer.TimerManager
	cleanupDelay time.Duration
	notifier     Broadcaster
	closeHooks   []CloseHook
	expire       func(roomID string)
	newID        func() string
}

// NewRoomManager builds a manager. timers may be nil, in which case finished
// games stay until a player leaves or disconnects.
func NewRoomManager(engines game.Registry, timers *timer.TimerManager, notifier Broadcaster, cleanupDelay time.Duration) *Manager {
	m := &Manager{
		rooms:        make(map[string]*Room),
		playerRoom:   make(map[string]string),
		engines:      engines,
		timers:       timers,
		cleanupDelay: cleanupDelay,
		notifier:     notifier,
		newID:        func() string { return uuid.New().String() },
	}
	m.expire = m.Expire
	return m
}

// SetExpiryHandler reroutes cleanup timer expiry, for example through an
// event loop. The handler must eventually call Expire.
func (m *Manager) SetExpiryHandler(h func(roomID string)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.expire = h
}

func (m *Manager) OnClose(h CloseHook) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closeHooks = append(m.closeHooks, h)
}

func (m *Manager) onExpire(roomID string) {
	m.mutex.RLock()
	h := m.expire
	m.mutex.RUnlock()
	h(roomID)
}

// Create starts a session for players in seat order.
func (m *Manager) Create(gameType game.Type, players ...string) (*Room, error) {
	engine, err := m.engines.Get(gameType)
	if err != nil {
		return nil, err
	}
	if len(players) != engine.Players() {
		return nil, fmt.Errorf("%w: %s needs %d, got %d", ErrPlayerCount, gameType, engine.Players(), len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if seen[p] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p)
		}
		seen[p] = true
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, p := range players {
		if existing, ok := m.playerRoom[p]; ok {
			return nil, fmt.Errorf("%w: %s is in %s", ErrAlreadyInSession, p, existing)
		}
	}

	room := newRoom(m.newID(), engine, players, m.timers, m.cleanupDelay, m.onExpire)
	m.rooms[room.ID] = room
	for _, p := range players {
		m.playerRoom[p] = room.ID
	}

	logger.Log.Infof("Created %s session %s with players %v", gameType, room.ID, players)
	return room, nil
}

// lookup resolves the session of a connection. A dangling index entry is
// dropped so the connection can queue again.
func (m *Manager) lookup(clientID string) (*Room, error) {
	m.mutex.RLock()
	roomID, ok := m.playerRoom[clientID]
	if !ok {
		m.mutex.RUnlock()
		return nil, ErrNotInSession
	}
	room, ok := m.rooms[roomID]
	m.mutex.RUnlock()
	if ok {
		return room, nil
	}

	m.dropDangling(clientID, roomID)
	return nil, fmt.Errorf("%w: %s maps to missing session %s", ErrInconsistent, clientID, roomID)
}

func (m *Manager) dropDangling(clientID, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, live := m.rooms[roomID]; !live && m.playerRoom[clientID] == roomID {
		delete(m.playerRoom, clientID)
		logger.Log.Warnf("Dropped %s from missing session %s", clientID, roomID)
	}
}

// ApplyMove decodes data with the session's engine and applies it for the
// seat the connection occupies. The seat comes from participant order, never
// from the payload; a payload naming another player is rejected.
func (m *Manager) ApplyMove(clientID string, gameType game.Type, data []byte) (MoveReport, error) {
	room, err := m.lookup(clientID)
	if err != nil {
		return MoveReport{}, err
	}
	if room.GameType != gameType {
		return MoveReport{}, ErrWrongGame
	}

	mv, err := room.engine.DecodeMove(data)
	if err != nil {
		return MoveReport{}, err
	}
	player := room.seat(clientID)
	if claimed := mv.ClaimedPlayer(); claimed != 0 && claimed != player {
		return MoveReport{}, game.ErrPlayerMismatch
	}

	room.mutex.Lock()
	defer room.mutex.Unlock()

	if room.lifecycle.Phase() == state.PhaseClosed {
		return MoveReport{}, ErrNotInSession
	}

	out, err := room.engine.ApplyMove(room.state, mv, player)
	if err != nil {
		return MoveReport{}, err
	}
	if out.Terminal || room.IsTerminal() {
		if err := room.lifecycle.Finish(); err == nil {
			logger.Log.Infof("Session %s finished: %s", room.ID, out.Message)
		}
	}

	return MoveReport{
		Snapshot: room.snapshotLocked(),
		Move:     mv,
		Player:   player,
		Outcome:  out,
	}, nil
}

// GetState returns a copy of the connection's session.
func (m *Manager) GetState(clientID string) (Snapshot, error) {
	room, err := m.lookup(clientID)
	if err != nil {
		return Snapshot{}, err
	}
	return room.Snapshot(), nil
}

// Get returns a copy of a session by id.
func (m *Manager) Get(roomID string) (Snapshot, bool) {
	m.mutex.RLock()
	room, ok := m.rooms[roomID]
	m.mutex.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return room.Snapshot(), true
}

// SessionOf returns the id of the connection's session.
func (m *Manager) SessionOf(clientID string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	id, ok := m.playerRoom[clientID]
	return id, ok
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// List returns snapshots of every live session.
func (m *Manager) List() []Snapshot {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	snaps := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		snaps = append(snaps, r.Snapshot())
	}
	return snaps
}

// Terminate ends a session. A natural game end only arms the cleanup timer
// so the final board stays visible; every other reason tears the session
// down at once, telling the remaining players their opponent is gone.
// by is the connection that caused the end, if any.
func (m *Manager) Terminate(roomID string, reason Reason, by string) bool {
	if reason == ReasonGameOver {
		return m.scheduleTeardown(roomID)
	}
	return m.teardown(roomID, reason, by)
}

func (m *Manager) scheduleTeardown(roomID string) bool {
	m.mutex.RLock()
	room, ok := m.rooms[roomID]
	m.mutex.RUnlock()
	if !ok {
		return false
	}

	room.mutex.Lock()
	defer room.mutex.Unlock()
	if room.lifecycle.Phase() == state.PhaseFinished {
		return true
	}
	return room.lifecycle.Finish() == nil
}

// Expire is the cleanup timer target: it removes a finished session.
func (m *Manager) Expire(roomID string) {
	m.teardown(roomID, ReasonGameOver, "")
}

// Leave ends the connection's session because the player walked away.
func (m *Manager) Leave(clientID string) bool {
	roomID, ok := m.SessionOf(clientID)
	if !ok {
		return false
	}
	if m.teardown(roomID, ReasonLeft, clientID) {
		return true
	}
	m.dropDangling(clientID, roomID)
	return false
}

// HandleDisconnect ends the session of a connection that went away.
func (m *Manager) HandleDisconnect(clientID string) {
	roomID, ok := m.SessionOf(clientID)
	if !ok {
		return
	}
	if !m.teardown(roomID, ReasonDisconnect, clientID) {
		m.dropDangling(clientID, roomID)
	}
}

// Shutdown tears down every session without notifying anyone.
func (m *Manager) Shutdown() {
	m.mutex.RLock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mutex.RUnlock()

	for _, id := range ids {
		m.teardown(id, ReasonShutdown, "")
	}
}

func (m *Manager) teardown(roomID string, reason Reason, by string) bool {
	m.mutex.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mutex.Unlock()
		return false
	}
	delete(m.rooms, roomID)
	for _, p := range room.Players {
		if m.playerRoom[p] == roomID {
			delete(m.playerRoom, p)
		}
	}
	hooks := append([]CloseHook(nil), m.closeHooks...)
	m.mutex.Unlock()

	room.mutex.Lock()
	// leaving the finished phase cancels a pending cleanup timer
	_ = room.lifecycle.Close()
	snap := room.snapshotLocked()
	room.mutex.Unlock()

	if (reason == ReasonDisconnect || reason == ReasonLeft) && m.notifier != nil {
		for _, p := range snap.Others(by) {
			notice := network.Notice{Message: "Opponent disconnected"}
			if err := m.notifier.SendTo(p, network.EventOpponentDisconnected, notice); err != nil {
				logger.Log.Warnf("Failed to notify %s about session %s: %v", p, roomID, err)
			}
		}
	}

	logger.Log.Infof("Cleaned up session %s (%s)", roomID, reason)
	for _, h := range hooks {
		h(snap, reason)
	}
	return true
}
