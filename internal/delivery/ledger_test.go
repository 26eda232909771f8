package delivery

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys     map[string]time.Duration
	failWith error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]time.Duration)}
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.failWith != nil {
		return redis.NewIntResult(0, f.failWith)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	if f.failWith != nil {
		return redis.NewBoolResult(false, f.failWith)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestRedisLedgerMarkThenSeen(t *testing.T) {
	client := newFakeRedis()
	ledger := newRedisLedger(client, time.Hour)
	ctx := context.Background()

	seen, err := ledger.Seen(ctx, "msg_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.Mark(ctx, "msg_1"))
	require.NoError(t, ledger.Mark(ctx, "msg_1"))

	seen, err = ledger.Seen(ctx, "msg_1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, time.Hour, client.keys["webhook:delivery:msg_1"])

	seen, err = ledger.Seen(ctx, "msg_2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisLedgerDefaultsTTL(t *testing.T) {
	client := newFakeRedis()
	ledger := newRedisLedger(client, 0)

	require.NoError(t, ledger.Mark(context.Background(), "msg_1"))
	assert.Equal(t, DefaultTTL, client.keys["webhook:delivery:msg_1"])
}

func TestRedisLedgerWrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	ledger := newRedisLedger(&fakeRedis{failWith: boom}, time.Minute)

	_, err := ledger.Seen(context.Background(), "msg_1")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, ledger.Mark(context.Background(), "msg_1"), boom)
}

func TestNewWithoutAddrIsNoop(t *testing.T) {
	ledger, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, NoopLedger{}, ledger)

	require.NoError(t, ledger.Mark(context.Background(), "msg_1"))
	seen, err := ledger.Seen(context.Background(), "msg_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisLedgerIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	ledger, err := New(ctx, Config{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)

	id := "itest_" + time.Now().Format("150405.000000000")
	require.NoError(t, ledger.Mark(ctx, id))
	seen, err := ledger.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)
}
