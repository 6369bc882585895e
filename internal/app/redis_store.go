package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const gameKeyPrefix = "tictactoe:game:"

// RedisStore keeps sessions as JSON values that expire ttl after the last save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps a connected client. A zero ttl stores keys without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// ConnectRedis opens a client and checks it with a ping.
func ConnectRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return conn, nil
}

// Load reads and restores the session, mapping a missing key to ErrNotFound.
func (r *RedisStore) Load(ctx context.Context, id string) (*GameState, error) {
	raw, err := r.client.Get(ctx, gameKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal game %s: %w", id, err)
	}
	return rec.state()
}

// Save writes the session as JSON and restarts its ttl.
func (r *RedisStore) Save(ctx context.Context, gs *GameState) error {
	raw, err := json.Marshal(toRecord(gs))
	if err != nil {
		return fmt.Errorf("marshal game %s: %w", gs.ID, err)
	}
	if err := r.client.Set(ctx, gameKeyPrefix+gs.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set game %s: %w", gs.ID, err)
	}
	return nil
}
