package broadcast

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/game/fiveinarow"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/registry"
	"github.com/wfunc/boardserver/room"
)

type frame struct {
	Event string
	Data  string
}

type MockConnection struct {
	mutex  sync.Mutex
	frames []frame
}

func (m *MockConnection) Send(event string, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.frames = append(m.frames, frame{Event: event, Data: string(data)})
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func setup(t *testing.T) (*RoomBroadcaster, map[string]*MockConnection) {
	t.Helper()
	clients := registry.New()
	conns := map[string]*MockConnection{}
	for _, id := range []string{"a", "b", "c"} {
		conns[id] = &MockConnection{}
		require.True(t, clients.Register(registry.NewClient(id, "user-"+id, conns[id])))
	}
	return NewRoomBroadcaster(clients), conns
}

func TestSendTo(t *testing.T) {
	b, conns := setup(t)

	require.NoError(t, b.SendTo("a", network.EventQueueStatus, network.QueueStatus{Status: "waiting", Message: "Waiting", Position: 1}))
	require.Len(t, conns["a"].frames, 1)
	assert.Equal(t, network.EventQueueStatus, conns["a"].frames[0].Event)
	assert.JSONEq(t, `{"status":"waiting","message":"Waiting","position":1}`, conns["a"].frames[0].Data)

	assert.ErrorIs(t, b.SendTo("ghost", network.EventGameLeft, nil), ErrClientNotFound)
	assert.Error(t, b.SendTo("a", network.EventGameLeft, func() {}))
}

func TestBroadcastToRoom(t *testing.T) {
	b, conns := setup(t)
	assert.ErrorIs(t, b.BroadcastToRoom("nope", network.EventMoveMade, nil), ErrRoomNotFound)

	rooms := room.NewRoomManager(game.NewRegistry(fiveinarow.Engine{}), nil, b, time.Second)
	b.SetRooms(rooms)
	r, err := rooms.Create(game.FiveInARow, "a", "b")
	require.NoError(t, err)

	require.NoError(t, b.BroadcastToRoom(r.ID, network.EventMoveMade, []byte(`{"row":1}`)))
	assert.Len(t, conns["a"].frames, 1)
	assert.Len(t, conns["b"].frames, 1)
	assert.Empty(t, conns["c"].frames)
}
