package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/game/fiveinarow"
	"github.com/wfunc/boardserver/game/marble"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/room"
)

// Open builds the sink named by cfg.Archive.Driver.
func Open(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch cfg.Archive.Driver {
	case "", "none":
		return Nop{}, nil
	case "gorm":
		return NewGormPostgreSQL(cfg.Database.Postgres)
	case "postgres":
		return NewPostgreSQL(ctx, cfg.Database.Postgres)
	case "redis":
		return NewRedis(ctx, cfg.Redis)
	case "nats":
		return NewNATSPublisher(cfg.NATS)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Archive.Driver)
	}
}

// NewSessionRecord converts a torn down session into its archive record.
func NewSessionRecord(snap room.Snapshot, reason room.Reason, closedAt time.Time) (*models.SessionRecord, error) {
	state, err := json.Marshal(snap.State)
	if err != nil {
		return nil, fmt.Errorf("marshal final state: %w", err)
	}

	record := &models.SessionRecord{
		SessionID:  snap.RoomID,
		GameType:   string(snap.GameType),
		Players:    snap.Players,
		Reason:     string(reason),
		FinalState: state,
		Duration:   int(closedAt.Sub(snap.CreatedAt).Seconds()),
		StartedAt:  snap.CreatedAt,
		ClosedAt:   closedAt,
	}

	switch st := snap.State.(type) {
	case *fiveinarow.State:
		if st.Winner > 0 && st.Winner <= len(snap.Players) {
			record.Winner = snap.Players[st.Winner-1]
		}
	case *marble.State:
		record.Score = st.Score
	}
	return record, nil
}

// Archiver saves closed sessions in the background so a slow sink never
// stalls the caller. Failures are logged and dropped.
type Archiver struct {
	sink    Sink
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewArchiver(sink Sink, timeout time.Duration) *Archiver {
	return &Archiver{sink: sink, timeout: timeout, now: time.Now}
}

// Hook matches room.CloseHook.
func (a *Archiver) Hook(snap room.Snapshot, reason room.Reason) {
	record, err := NewSessionRecord(snap, reason, a.now())
	if err != nil {
		logger.Log.Errorf("Archive session %s: %v", snap.RoomID, err)
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sink.SaveSessionRecord(ctx, record); err != nil {
			logger.Log.Errorf("Archive session %s: %v", record.SessionID, err)
		}
	}()
}

// Load reads a record back when the sink supports it.
func (a *Archiver) Load(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	loader, ok := a.sink.(Loader)
	if !ok {
		return nil, ErrLoadUnsupported
	}
	return loader.LoadSessionRecord(ctx, sessionID)
}

// Close waits for pending saves and closes the sink.
func (a *Archiver) Close() error {
	a.wg.Wait()
	return a.sink.Close()
}
