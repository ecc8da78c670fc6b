package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   2, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})

	return client
}

func record(n int) SwapRecord {
	return SwapRecord{
		TxHash:      fmt.Sprintf("0xtx%d", n),
		User:        "0xalice",
		TokenIn:     "MTK",
		TokenOut:    "sUSDC",
		AmountIn:    "10",
		AmountOut:   "9.8",
		BlockNumber: uint64(n),
		Timestamp:   time.Unix(1700000000+int64(n), 0).UTC(),
	}
}

func TestRecentSwapCache_PushAndRecent(t *testing.T) {
	cache, err := NewRecentSwapCache(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, cache.Push(ctx, record(1), record(2), record(3)))

	got, err := cache.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// newest first
	assert.Equal(t, "0xtx3", got[0].TxHash)
	assert.Equal(t, "0xtx1", got[2].TxHash)
	assert.Equal(t, record(3).Timestamp, got[0].Timestamp)
}

func TestRecentSwapCache_TrimsToCap(t *testing.T) {
	cache, err := NewRecentSwapCache(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()

	for i := 0; i < 120; i++ {
		require.NoError(t, cache.Push(ctx, record(i)))
	}

	got, err := cache.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 100)
	assert.Equal(t, "0xtx119", got[0].TxHash)
}

func TestRecentSwapCache_LimitClamped(t *testing.T) {
	cache, err := NewRecentSwapCache(setupTestRedis(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.Push(ctx, record(1), record(2), record(3), record(4)))

	got, err := cache.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = cache.Recent(ctx, -5)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
