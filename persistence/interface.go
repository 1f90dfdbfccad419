// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/boardserver/models"
)

// Sink 归档接口
type Sink interface {
	SaveSessionRecord(ctx context.Context, record *models.SessionRecord) error
	Close() error
}

// Loader is implemented by sinks that can read records back.
type Loader interface {
	LoadSessionRecord(ctx context.Context, sessionID string) (*models.SessionRecord, error)
}

// 错误定义
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrUnknownDriver   = errors.New("unknown archive driver")
	ErrLoadUnsupported = errors.New("archive cannot load records")
)

// Nop discards every record.
type Nop struct{}

func (Nop) SaveSessionRecord(context.Context, *models.SessionRecord) error { return nil }
func (Nop) Close() error                                                   { return nil }
