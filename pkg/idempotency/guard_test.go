package idempotency

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseGuard runs the shared contract against any Guard implementation.
func exerciseGuard(t *testing.T, g Guard) {
	ctx := context.Background()

	t.Run("Reserve Once", func(t *testing.T) {
		ref := uuid.NewString()
		ok, err := g.Reserve(ctx, ref)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = g.Reserve(ctx, ref)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Release Allows Retry", func(t *testing.T) {
		ref := uuid.NewString()
		_, err := g.Reserve(ctx, ref)
		require.NoError(t, err)
		require.NoError(t, g.Release(ctx, ref))

		ok, err := g.Reserve(ctx, ref)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Commit Survives Release", func(t *testing.T) {
		ref := uuid.NewString()
		_, err := g.Reserve(ctx, ref)
		require.NoError(t, err)
		require.NoError(t, g.Commit(ctx, ref))
		require.NoError(t, g.Release(ctx, ref))

		ok, err := g.Reserve(ctx, ref)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Concurrent Reserve Has One Winner", func(t *testing.T) {
		ref := uuid.NewString()
		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := g.Reserve(ctx, ref)
				if assert.NoError(t, err) && ok {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins)
	})
}

func TestMemoryGuard(t *testing.T) {
	exerciseGuard(t, NewMemoryGuard())
}

func TestRedisGuard(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	exerciseGuard(t, NewRedisGuard(client, fmt.Sprintf("test:%s:", uuid.NewString()), time.Minute))
}
