// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(ctx context.Context, cfg config.PostgresConfig) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn(cfg))
	if err != nil {
		return nil, err
	}

	// 测试连接
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// sessionRecordColumns 与 models.SessionRecord 的 gorm 标签保持一致，
// 两种驱动可以共用同一张表
var sessionRecordColumns = []struct {
	Name, Type, Extra string
}{
	{"session_id", "varchar(64)", "NOT NULL"},
	{"game_type", "varchar(64)", "NOT NULL"},
	{"players", "jsonb", "NOT NULL"},
	{"winner", "varchar(255)", "NOT NULL DEFAULT ''"},
	{"score", "integer", "NOT NULL DEFAULT 0"},
	{"reason", "varchar(32)", "NOT NULL"},
	{"final_state", "jsonb", ""},
	{"duration", "integer", "NOT NULL DEFAULT 0"},
	{"started_at", "timestamptz", "NOT NULL"},
	{"closed_at", "timestamptz", "NOT NULL"},
}

func createTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS session_records (\n    id BIGSERIAL PRIMARY KEY")
	for _, c := range sessionRecordColumns {
		fmt.Fprintf(&b, ",\n    %s %s %s", c.Name, c.Type, c.Extra)
	}
	b.WriteString("\n)")
	return b.String()
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTableSQL()); err != nil {
		return fmt.Errorf("create session_records: %w", err)
	}

	// 索引名与 gorm 自动迁移生成的一致
	_, err := db.ExecContext(ctx, `
        CREATE UNIQUE INDEX IF NOT EXISTS idx_session_records_session_id ON session_records(session_id);
        CREATE INDEX IF NOT EXISTS idx_session_records_game_type ON session_records(game_type);
        CREATE INDEX IF NOT EXISTS idx_session_records_closed_at ON session_records(closed_at);
    `)
	return err
}

// SaveSessionRecord 保存对局记录
func (p *PostgreSQL) SaveSessionRecord(ctx context.Context, record *models.SessionRecord) error {
	state := []byte(record.FinalState)
	if len(state) == 0 {
		state = []byte("null")
	}
	players, err := json.Marshal(record.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}

	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	query := `
        INSERT INTO session_records
            (session_id, game_type, players, winner, score, reason, final_state, duration, started_at, closed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (session_id)
        DO UPDATE SET winner = $4, score = $5, reason = $6, final_state = $7, duration = $8, closed_at = $10
    `

	_, err = p.db.ExecContext(ctx, query,
		record.SessionID,
		record.GameType,
		string(players),
		record.Winner,
		record.Score,
		record.Reason,
		string(state),
		record.Duration,
		record.StartedAt,
		record.ClosedAt)
	return err
}

// LoadSessionRecord 加载对局记录
func (p *PostgreSQL) LoadSessionRecord(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	var (
		record  models.SessionRecord
		players []byte
		state   []byte
	)
	query := `
        SELECT session_id, game_type, players, winner, score, reason, final_state, duration, started_at, closed_at
        FROM session_records WHERE session_id = $1
    `
	err := p.db.QueryRowContext(ctx, query, sessionID).Scan(
		&record.SessionID,
		&record.GameType,
		&players,
		&record.Winner,
		&record.Score,
		&record.Reason,
		&state,
		&record.Duration,
		&record.StartedAt,
		&record.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(players, &record.Players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	if len(state) > 0 {
		record.FinalState = json.RawMessage(state)
	}
	return &record, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
