// Package matchmaking keeps one FIFO of waiting connections per game type and
// pairs the oldest tickets as soon as a game has enough players.
package matchmaking

import (
	"sync"

	"github.com/wfunc/boardserver/game"
)

// Ticket is one connection waiting for a game.
type Ticket struct {
	ClientID string
	GameType game.Type
	// Style remembers how the client asked to be matched so the match
	// notification can use the same dialect.
	Style string
	Order uint64
}

// Match is a set of tickets removed from the queue together, oldest first.
type Match struct {
	GameType game.Type
	Tickets  []Ticket
}

// ClientIDs returns the matched connections in seat order.
func (m *Match) ClientIDs() []string {
	ids := make([]string, len(m.Tickets))
	for i, t := range m.Tickets {
		ids[i] = t.ClientID
	}
	return ids
}

type Queue struct {
	waiting map[game.Type][]Ticket
	byID    map[string]game.Type
	order   uint64
	mutex   sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{
		waiting: make(map[game.Type][]Ticket),
		byID:    make(map[string]game.Type),
	}
}

// Enqueue files a ticket for clientID, replacing any ticket the client already
// holds for any game type; a replaced ticket goes to the back of the line.
// When size or more tickets wait for gameType, the size oldest are removed
// and returned. replaced reports whether an older ticket was dropped.
func (q *Queue) Enqueue(clientID string, gameType game.Type, style string, size int) (match *Match, replaced bool) {
	if size < 1 {
		size = 1
	}

	q.mutex.Lock()
	defer q.mutex.Unlock()

	replaced = q.removeLocked(clientID)

	q.order++
	q.waiting[gameType] = append(q.waiting[gameType], Ticket{
		ClientID: clientID,
		GameType: gameType,
		Style:    style,
		Order:    q.order,
	})
	q.byID[clientID] = gameType

	line := q.waiting[gameType]
	if len(line) < size {
		return nil, replaced
	}

	tickets := append([]Ticket(nil), line[:size]...)
	q.waiting[gameType] = append(line[:0:0], line[size:]...)
	for _, t := range tickets {
		delete(q.byID, t.ClientID)
	}
	return &Match{GameType: gameType, Tickets: tickets}, replaced
}

// Remove drops the client's ticket if it has one.
func (q *Queue) Remove(clientID string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.removeLocked(clientID)
}

func (q *Queue) removeLocked(clientID string) bool {
	gameType, ok := q.byID[clientID]
	if !ok {
		return false
	}
	delete(q.byID, clientID)

	line := q.waiting[gameType]
	for i, t := range line {
		if t.ClientID == clientID {
			q.waiting[gameType] = append(line[:i], line[i+1:]...)
			break
		}
	}
	if len(q.waiting[gameType]) == 0 {
		delete(q.waiting, gameType)
	}
	return true
}

// Position returns the 1-based place of the client in its line.
func (q *Queue) Position(clientID string) (game.Type, int, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	gameType, ok := q.byID[clientID]
	if !ok {
		return "", 0, false
	}
	for i, t := range q.waiting[gameType] {
		if t.ClientID == clientID {
			return gameType, i + 1, true
		}
	}
	return "", 0, false
}

// Waiting returns a copy of the line for gameType, oldest first.
func (q *Queue) Waiting(gameType game.Type) []Ticket {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return append([]Ticket(nil), q.waiting[gameType]...)
}

// Len counts all tickets.
func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.byID)
}
