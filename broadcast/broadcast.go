// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/registry"
	"github.com/wfunc/boardserver/room"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrClientNotFound = errors.New("client not found")
)

// 广播接口
type Broadcaster interface {
	SendTo(clientID, event string, payload any) error
	BroadcastToRoom(roomID, event string, payload any) error
}

// 基于房间的广播器
type RoomBroadcaster struct {
	rooms   *room.Manager
	clients *registry.Registry
}

func NewRoomBroadcaster(clients *registry.Registry) *RoomBroadcaster {
	return &RoomBroadcaster{clients: clients}
}

// SetRooms attaches the session manager. The manager itself needs a
// broadcaster, so the two are wired in two steps.
func (b *RoomBroadcaster) SetRooms(rooms *room.Manager) {
	b.rooms = rooms
}

func encode(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}

// SendTo delivers one event to one connection. A connection that is already
// gone yields ErrClientNotFound.
func (b *RoomBroadcaster) SendTo(clientID, event string, payload any) error {
	c, exists := b.clients.Get(clientID)
	if !exists {
		return ErrClientNotFound
	}
	data, err := encode(payload)
	if err != nil {
		return err
	}
	return c.Send(event, data)
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID, event string, payload any) error {
	if b.rooms == nil {
		return ErrRoomNotFound
	}
	snap, exists := b.rooms.Get(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	data, err := encode(payload)
	if err != nil {
		return err
	}

	for _, id := range snap.Players {
		c, exists := b.clients.Get(id)
		if !exists {
			continue
		}
		if err := c.Send(event, data); err != nil {
			logger.Log.Warnf("Broadcast %s to %s failed: %v", event, id, err)
		}
	}
	return nil
}
