// Package delivery records processed webhook deliveries so verified retries of an
// already applied message can be acknowledged without touching the user store.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a delivery id is remembered.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "webhook:delivery:"

// Ledger tracks delivery ids that were fully processed.
type Ledger interface {
	// Seen reports whether id was recorded by Mark.
	Seen(ctx context.Context, id string) (bool, error)
	// Mark records id as processed.
	Mark(ctx context.Context, id string) error
}

// Config controls the Redis connection. An empty Addr selects the no-op ledger.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New returns a Redis ledger, or a NoopLedger when cfg.Addr is empty.
func New(ctx context.Context, cfg Config) (Ledger, error) {
	if cfg.Addr == "" {
		return NoopLedger{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	l := newRedisLedger(rdb, cfg.TTL)
	l.close = rdb.Close
	return l, nil
}

type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLedger stores one key per delivery id with a TTL.
type RedisLedger struct {
	client redisClient
	ttl    time.Duration
	close  func() error
}

func newRedisLedger(client redisClient, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Seen(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery %s: %w", id, err)
	}
	return n > 0, nil
}

func (l *RedisLedger) Mark(ctx context.Context, id string) error {
	if err := l.client.SetNX(ctx, keyPrefix+id, time.Now().UTC().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark delivery %s: %w", id, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (l *RedisLedger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

// NoopLedger never remembers anything.
type NoopLedger struct{}

func (NoopLedger) Seen(context.Context, string) (bool, error) { return false, nil }

func (NoopLedger) Mark(context.Context, string) error { return nil }
