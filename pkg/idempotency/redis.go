package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	valueReserved = "reserved"
	valueConsumed = "consumed"
)

// releaseScript deletes the key only while it still holds a reservation, so a
// late Release can never undo a Commit made by another process.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares reservations across processes through Redis.
// Reservations expire after ReservationTTL so a crashed process cannot pin a ref forever;
// committed refs never expire.
type RedisGuard struct {
	client         *redis.Client
	prefix         string
	reservationTTL time.Duration
}

// NewRedisGuard creates a RedisGuard. Keys are written as prefix + ref.
func NewRedisGuard(client *redis.Client, prefix string, reservationTTL time.Duration) *RedisGuard {
	if prefix == "" {
		prefix = "deposit_ref:"
	}
	return &RedisGuard{client: client, prefix: prefix, reservationTTL: reservationTTL}
}

var _ Guard = (*RedisGuard)(nil)

func (g *RedisGuard) Reserve(ctx context.Context, ref string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+ref, valueReserved, g.reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve deposit ref: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) Commit(ctx context.Context, ref string) error {
	if err := g.client.Set(ctx, g.prefix+ref, valueConsumed, 0).Err(); err != nil {
		return fmt.Errorf("failed to commit deposit ref: %w", err)
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, ref string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.prefix + ref}, valueReserved).Err(); err != nil {
		return fmt.Errorf("failed to release deposit ref: %w", err)
	}
	return nil
}
