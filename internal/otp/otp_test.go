package otp

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode(4)
		require.NoError(t, err)
		require.Len(t, code, 4)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}

	_, err := GenerateCode(0)
	assert.Error(t, err)
}

func TestMemoryStoreOverwritesAndCounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, "9876543210", Record{Code: "1111"}, time.Minute))
	require.NoError(t, s.Save(ctx, "9876543210", Record{Code: "2222"}, time.Minute))

	rec, err := s.Get(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "2222", rec.Code)
	assert.Equal(t, 1, s.Len())

	n, err := s.IncrAttempts(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.IncrAttempts(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, "9876543210"))
	_, err = s.Get(ctx, "9876543210")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.IncrAttempts(ctx, "9876543210")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreEvictsAfterTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "a", Record{Code: "1234"}, time.Minute))
	require.NoError(t, s.Save(ctx, "b", Record{Code: "5678"}, time.Hour))

	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound))

	s.Sweep()
	assert.Equal(t, 1, s.Len())
	_, err = s.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryStoreRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewMemoryStore().Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	s := NewRedisStore(client)
	phone := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	t.Cleanup(func() { _ = s.Delete(ctx, phone) })

	expires := time.Now().Add(10 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, s.Save(ctx, phone, Record{Code: "4821", Expires: expires}, time.Minute))

	rec, err := s.Get(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, "4821", rec.Code)
	assert.True(t, expires.Equal(rec.Expires))
	assert.Zero(t, rec.Attempts)

	n, err := s.IncrAttempts(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Delete(ctx, phone))
	_, err = s.IncrAttempts(ctx, phone)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Get(ctx, phone)
	assert.True(t, errors.Is(err, ErrNotFound))
}
