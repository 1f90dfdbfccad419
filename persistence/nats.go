package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
)

// NATSPublisher publishes every record to <subject>.<gameType>. It is a pure
// sink: records cannot be read back.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(
		cfg.URL,
		nats.Name("boardserver-archive"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Log.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

func (p *NATSPublisher) Subject(gameType string) string {
	return p.subject + "." + gameType
}

func (p *NATSPublisher) SaveSessionRecord(ctx context.Context, record *models.SessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.Subject(record.GameType))
	msg.Header.Set("Session-Id", record.SessionID)
	msg.Header.Set("Reason", record.Reason)
	msg.Data = data

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish session record: %w", err)
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
