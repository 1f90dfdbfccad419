// models/models.go
package models

import (
	"encoding/json"
	"time"
)

// SessionRecord 对局归档记录
type SessionRecord struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	SessionID  string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	GameType   string          `gorm:"type:varchar(64);index;not null" json:"game_type"`
	Players    []string        `gorm:"serializer:json;type:jsonb;not null" json:"players"`
	Winner     string          `gorm:"type:varchar(255);not null" json:"winner,omitempty"` // 胜者连接ID，平局或未结束为空
	Score      int             `gorm:"type:integer;not null" json:"score"`
	Reason     string          `gorm:"type:varchar(32);not null" json:"reason"`
	FinalState json.RawMessage `gorm:"serializer:json;type:jsonb" json:"final_state"`
	Duration   int             `gorm:"type:integer;not null" json:"duration"` // 对局时长(秒)
	StartedAt  time.Time       `gorm:"type:timestamptz;not null" json:"started_at"`
	ClosedAt   time.Time       `gorm:"type:timestamptz;index;not null" json:"closed_at"`
}

func (SessionRecord) TableName() string {
	return "session_records"
}

// LobbyStats 大厅统计信息
type LobbyStats struct {
	Online         int `json:"online"`
	Waiting        int `json:"waiting"`
	ActiveSessions int `json:"active_sessions"`
}

// ConnectionInfo 在线连接信息
type ConnectionInfo struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}
