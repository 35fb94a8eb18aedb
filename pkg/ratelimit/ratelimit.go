// Package ratelimit throttles repeated actions per key with a fixed window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows at most Limit actions per key in each window. When an action is
// refused, retryAfter reports how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type window struct {
	count int
	reset time.Time
}

// Memory is a process-local Limiter.
type Memory struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]window
	now     func() time.Time
}

// NewMemory creates a Memory limiter allowing limit actions per period.
func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		period:  period,
		windows: make(map[string]window),
		now:     time.Now,
	}
}

var _ Limiter = (*Memory)(nil)

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		m.sweep(now)
		m.windows[key] = window{count: 1, reset: now.Add(m.period)}
		return true, 0, nil
	}
	if w.count >= m.limit {
		return false, w.reset.Sub(now), nil
	}
	w.count++
	m.windows[key] = w
	return true, 0, nil
}

// sweep drops expired windows so idle keys do not accumulate.
func (m *Memory) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.reset) {
			delete(m.windows, k)
		}
	}
}

// Redis shares windows across processes using INCR with a key expiry.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedis creates a Redis limiter. Keys are written as prefix + key.
func NewRedis(client *redis.Client, prefix string, limit int, period time.Duration) *Redis {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &Redis{client: client, prefix: prefix, limit: limit, period: period}
}

var _ Limiter = (*Redis)(nil)

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, r.period)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if incr.Val() > int64(r.limit) {
		retry := ttl.Val()
		if retry < 0 {
			retry = r.period
		}
		return false, retry, nil
	}
	return true, 0, nil
}
