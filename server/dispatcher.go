package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wfunc/boardserver/broadcast"
	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/matchmaking"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/registry"
	"github.com/wfunc/boardserver/room"
)

// Ticket styles: how the client asked to be matched decides which match
// notification it gets.
const (
	styleGeneric    = "generic"
	styleFiveInARow = "fiveinarow"
)

const (
	msgLookingForOpponent = "Looking for opponent..."
	msgNotInGame          = "Not in a game"
	msgAlreadyInGame      = "Already in a game"
	msgUnknownGame        = "Unknown game type"
	msgLeftQueue          = "Left the queue"
	msgLeftGame           = "You left the game"
	msgWrongGame          = "Not in a game of this type"
	msgAnonymous          = "Player"
)

var ErrStopped = errors.New("dispatcher stopped")

// Sessions is the part of room.Manager the dispatcher drives.
type Sessions interface {
	SetExpiryHandler(h func(roomID string))
	OnClose(h room.CloseHook)
	Create(gameType game.Type, players ...string) (*room.Room, error)
	ApplyMove(clientID string, gameType game.Type, data []byte) (room.MoveReport, error)
	GetState(clientID string) (room.Snapshot, error)
	SessionOf(clientID string) (string, bool)
	Count() int
	Leave(clientID string) bool
	HandleDisconnect(clientID string)
	Expire(roomID string)
}

// Dispatcher is the single point where client events touch the queue and
// the sessions. Every event, disconnect and cleanup expiry runs on the Run
// goroutine, one at a time, so all mutations caused by one event finish
// before the next event starts.
type Dispatcher struct {
	clients *registry.Registry
	queue   *matchmaking.Queue
	rooms   Sessions
	engines game.Registry
	out     broadcast.Broadcaster
	monitor *monitor.Monitor

	inbox chan func()
	done  chan struct{}
}

func NewDispatcher(clients *registry.Registry, queue *matchmaking.Queue, rooms Sessions, engines game.Registry, out broadcast.Broadcaster, mon *monitor.Monitor, inboxSize int) *Dispatcher {
	d := &Dispatcher{
		clients: clients,
		queue:   queue,
		rooms:   rooms,
		engines: engines,
		out:     out,
		monitor: mon,
		inbox:   make(chan func(), inboxSize),
		done:    make(chan struct{}),
	}

	clients.OnUnregister(d.onUnregister)
	rooms.SetExpiryHandler(func(roomID string) {
		d.Do(func() { d.rooms.Expire(roomID) })
	})
	rooms.OnClose(func(snap room.Snapshot, reason room.Reason) {
		d.monitor.IncSessionsClosed(string(reason))
	})
	return d
}

// Run processes the inbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.inbox:
			fn()
		}
	}
}

// Do queues fn for the dispatch goroutine. It reports false once Run has
// returned.
func (d *Dispatcher) Do(fn func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.inbox <- fn:
		return true
	case <-d.done:
		return false
	}
}

// Submit queues one inbound packet from clientID.
func (d *Dispatcher) Submit(clientID string, packet *network.Packet) error {
	if !d.Do(func() { d.handle(clientID, packet) }) {
		return ErrStopped
	}
	return nil
}

// Connect registers a live connection.
func (d *Dispatcher) Connect(c *registry.Client) bool {
	if !d.clients.Register(c) {
		return false
	}
	d.monitor.IncOnlineConnections()
	return true
}

// Disconnect queues the removal of a connection. Registry hooks withdraw its
// ticket and tear down its session.
func (d *Dispatcher) Disconnect(clientID string) {
	if !d.Do(func() { d.clients.Unregister(clientID) }) {
		d.clients.Unregister(clientID)
	}
}

func (d *Dispatcher) onUnregister(clientID string) {
	d.monitor.DecOnlineConnections()
	d.queue.Remove(clientID)
	d.rooms.HandleDisconnect(clientID)
	d.updateGauges()
}

func (d *Dispatcher) updateGauges() {
	d.monitor.SetWaitingTickets(d.queue.Len())
	d.monitor.SetActiveSessions(d.rooms.Count())
}

func (d *Dispatcher) handle(clientID string, packet *network.Packet) {
	start := time.Now()
	defer func() {
		d.monitor.ObserveEventLatency(time.Since(start))
		d.updateGauges()
	}()

	client, ok := d.clients.Get(clientID)
	if !ok {
		logger.Log.Debugf("Dropping %s from unregistered connection %s", packet.Event, clientID)
		return
	}
	client.Touch()

	switch packet.Event {
	case network.EventHeartbeat:
	case network.EventJoinQueue:
		var req network.JoinQueueRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			d.send(clientID, network.EventQueueStatus, network.QueueStatus{Status: "error", Message: msgUnknownGame})
			break
		}
		d.handleJoin(client, game.Type(req.GameType), styleGeneric)
	case network.EventJoinFiveInARowQueue:
		d.handleJoin(client, game.FiveInARow, styleFiveInARow)
	case network.EventLeaveQueue:
		d.handleLeaveQueue(clientID)
	case network.EventMakeFiveInARowMove:
		d.handleMove(clientID, game.FiveInARow, packet.Data)
	case network.EventMoveBall:
		d.handleMove(clientID, game.Marble, packet.Data)
	case network.EventLeaveFiveInARowGame:
		d.handleLeaveGame(clientID)
	case network.EventGetFiveInARowState:
		d.handleGetState(clientID)
	default:
		logger.Log.Debugf("Ignoring unknown event %q from %s", packet.Event, clientID)
		return
	}
	d.monitor.IncEventsReceived(packet.Event)
}

func (d *Dispatcher) send(clientID, event string, payload any) {
	if err := d.out.SendTo(clientID, event, payload); err != nil {
		logger.Log.Warnf("Send %s to %s failed: %v", event, clientID, err)
	}
}

func (d *Dispatcher) handleJoin(client *registry.Client, gameType game.Type, style string) {
	engine, err := d.engines.Get(gameType)
	if err != nil {
		d.send(client.ID, network.EventQueueStatus, network.QueueStatus{Status: "error", Message: msgUnknownGame})
		return
	}
	if _, busy := d.rooms.SessionOf(client.ID); busy {
		d.send(client.ID, network.EventQueueStatus, network.QueueStatus{Status: "error", Message: msgAlreadyInGame})
		return
	}

	match, replaced := d.queue.Enqueue(client.ID, gameType, style, engine.Players())
	if replaced {
		logger.Log.Debugf("Connection %s replaced its ticket", client.ID)
	}
	if match == nil {
		_, pos, _ := d.queue.Position(client.ID)
		d.send(client.ID, network.EventQueueStatus, network.QueueStatus{
			Status:   "waiting",
			Message:  msgLookingForOpponent,
			Position: pos,
		})
		return
	}

	if engine.Players() > 1 {
		d.send(client.ID, network.EventQueueStatus, network.QueueStatus{Status: "waiting", Message: msgLookingForOpponent})
	}
	d.startMatch(match)
}

func (d *Dispatcher) label(clientID string) string {
	if c, ok := d.clients.Get(clientID); ok && c.UserID != "" {
		return c.UserID
	}
	return msgAnonymous
}

func (d *Dispatcher) startMatch(match *matchmaking.Match) {
	players := match.ClientIDs()
	r, err := d.rooms.Create(match.GameType, players...)
	if err != nil {
		logger.Log.Errorf("Failed to start %s match for %v: %v", match.GameType, players, err)
		for _, id := range players {
			d.send(id, network.EventQueueStatus, network.QueueStatus{Status: "error", Message: err.Error()})
		}
		return
	}

	snap := r.Snapshot()
	for i, t := range match.Tickets {
		opponent := ""
		if others := snap.Others(t.ClientID); len(others) > 0 {
			opponent = d.label(others[0])
		}

		if t.Style == styleFiveInARow {
			d.send(t.ClientID, network.EventMatchFound5, network.MatchFound5{
				GameID:       snap.RoomID,
				PlayerNumber: i + 1,
				Opponent:     opponent,
				GameState:    snap.State,
			})
			continue
		}
		d.send(t.ClientID, network.EventMatchFound, network.MatchFound{
			GameID:   snap.RoomID,
			Opponent: opponent,
			GameType: string(snap.GameType),
		})
		if len(players) == 1 {
			d.send(t.ClientID, network.EventGameState, network.GameState{GameState: snap.State})
		}
	}
}

func (d *Dispatcher) handleLeaveQueue(clientID string) {
	d.queue.Remove(clientID)
	d.send(clientID, network.EventQueueStatus, network.QueueStatus{Status: "left", Message: msgLeftQueue})
}

func (d *Dispatcher) handleMove(clientID string, gameType game.Type, data []byte) {
	report, err := d.rooms.ApplyMove(clientID, gameType, data)
	if err != nil {
		d.rejectMove(clientID, err)
		return
	}

	if gameType == game.Marble {
		d.send(clientID, network.EventGameState, network.GameState{GameState: report.Snapshot.State})
		return
	}

	row, col := report.Move.Target()
	made := network.MoveMade{
		Row:       row,
		Col:       col,
		Player:    report.Player,
		GameState: report.Snapshot.State,
	}
	if err := d.out.BroadcastToRoom(report.Snapshot.RoomID, network.EventMoveMade, made); err != nil {
		logger.Log.Warnf("Broadcast move in %s failed: %v", report.Snapshot.RoomID, err)
	}
	if report.Outcome.Terminal {
		logger.Log.Infof("Session %s ended: %s", report.Snapshot.RoomID, report.Outcome.Message)
	}
}

func (d *Dispatcher) rejectMove(clientID string, err error) {
	if ve, ok := game.AsValidation(err); ok {
		d.monitor.IncMovesRejected(ve.Code)
		d.send(clientID, network.EventMoveResult, network.MoveResult{Success: false, Message: ve.Message})
		return
	}

	switch {
	case errors.Is(err, room.ErrNotInSession):
		d.monitor.IncMovesRejected("not_in_session")
		d.send(clientID, network.EventMoveResult, network.MoveResult{Success: false, Message: msgNotInGame})
	case errors.Is(err, room.ErrWrongGame):
		d.monitor.IncMovesRejected("wrong_game")
		d.send(clientID, network.EventMoveResult, network.MoveResult{Success: false, Message: msgWrongGame})
	case errors.Is(err, room.ErrInconsistent):
		logger.Log.Errorf("Dropping move from %s: %v", clientID, err)
	default:
		logger.Log.Errorf("Move from %s failed: %v", clientID, err)
	}
}

func (d *Dispatcher) handleLeaveGame(clientID string) {
	d.rooms.Leave(clientID)
	d.send(clientID, network.EventGameLeft, network.Notice{Message: msgLeftGame})
}

func (d *Dispatcher) handleGetState(clientID string) {
	snap, err := d.rooms.GetState(clientID)
	switch {
	case err == nil:
		d.send(clientID, network.EventGameState, network.GameState{GameState: snap.State})
	case errors.Is(err, room.ErrInconsistent):
		logger.Log.Errorf("Dropping state request from %s: %v", clientID, err)
	default:
		d.send(clientID, network.EventGameState, network.GameState{Error: msgNotInGame})
	}
}
