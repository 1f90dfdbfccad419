package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/game/fiveinarow"
	"github.com/wfunc/boardserver/game/marble"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/room"
)

type memorySink struct {
	mutex   sync.Mutex
	records map[string]*models.SessionRecord
	err     error
	closed  bool
}

func newMemorySink() *memorySink {
	return &memorySink{records: map[string]*models.SessionRecord{}}
}

func (m *memorySink) SaveSessionRecord(ctx context.Context, record *models.SessionRecord) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[record.SessionID] = record
	return nil
}

func (m *memorySink) LoadSessionRecord(ctx context.Context, id string) (*models.SessionRecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r, nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func TestNewSessionRecord_FiveInARow(t *testing.T) {
	st := fiveinarow.NewGame()
	st.Winner = fiveinarow.Player2
	st.GameOver = true
	started := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	snap := room.Snapshot{
		RoomID:    "s1",
		GameType:  game.FiveInARow,
		Players:   []string{"a", "b"},
		State:     st,
		CreatedAt: started,
	}
	record, err := NewSessionRecord(snap, room.ReasonGameOver, started.Add(90*time.Second))
	require.NoError(t, err)

	assert.Equal(t, "s1", record.SessionID)
	assert.Equal(t, "five-in-a-row", record.GameType)
	assert.Equal(t, "b", record.Winner)
	assert.Equal(t, "game_over", record.Reason)
	assert.Equal(t, 90, record.Duration)

	var decoded fiveinarow.State
	require.NoError(t, json.Unmarshal(record.FinalState, &decoded))
	assert.True(t, decoded.GameOver)
}

func TestNewSessionRecord_Marble(t *testing.T) {
	st := marble.EmptyState()
	st.Score = 70
	snap := room.Snapshot{RoomID: "s2", GameType: game.Marble, Players: []string{"solo"}, State: st, CreatedAt: time.Now()}

	record, err := NewSessionRecord(snap, room.ReasonDisconnect, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 70, record.Score)
	assert.Empty(t, record.Winner)
}

func TestArchiver(t *testing.T) {
	sink := newMemorySink()
	a := NewArchiver(sink, time.Second)

	st := fiveinarow.NewGame()
	a.Hook(room.Snapshot{RoomID: "s3", GameType: game.FiveInARow, Players: []string{"a", "b"}, State: st}, room.ReasonLeft)

	a.wg.Wait()
	record, err := a.Load(context.Background(), "s3")
	require.NoError(t, err)
	assert.Equal(t, "left", record.Reason)

	_, err = a.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, a.Close())
	assert.True(t, sink.closed)
}

func TestArchiver_SinkErrorIsDropped(t *testing.T) {
	sink := newMemorySink()
	sink.err = errors.New("down")
	a := NewArchiver(sink, time.Second)

	a.Hook(room.Snapshot{RoomID: "s4", GameType: game.FiveInARow, State: fiveinarow.NewGame()}, room.ReasonShutdown)
	require.NoError(t, a.Close())
	assert.Empty(t, sink.records)
}

func TestArchiver_LoadUnsupported(t *testing.T) {
	a := NewArchiver(Nop{}, time.Second)
	_, err := a.Load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrLoadUnsupported)
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{}
	sink, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, sink)

	cfg.Archive.Driver = "mongo"
	_, err = Open(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
