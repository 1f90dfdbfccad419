package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/models"
)

const (
	sessionKeyPrefix = "session:"
	sessionIndexKey  = "sessions:closed"
)

// Redis keeps each record as a JSON string with a TTL and indexes the ids in
// a sorted set scored by close time for external readers.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: cfg.TTL}, nil
}

func (r *Redis) SaveSessionRecord(ctx context.Context, record *models.SessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+record.SessionID, data, r.ttl)
		pipe.ZAdd(ctx, sessionIndexKey, redis.Z{
			Score:  float64(record.ClosedAt.Unix()),
			Member: record.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session record in Redis: %w", err)
	}
	return nil
}

func (r *Redis) LoadSessionRecord(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	val, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session record from Redis: %w", err)
	}

	var record models.SessionRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &record, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
