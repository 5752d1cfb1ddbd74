package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// claimScript deletes the key only when it still holds the expected generation.
var claimScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisRemovalLedger struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisRemovalLedger(client redis.UniversalClient, keyPrefix string) *RedisRemovalLedger {
	if keyPrefix == "" {
		keyPrefix = "lifecycle:removal:"
	}
	return &RedisRemovalLedger{client: client, keyPrefix: keyPrefix}
}

func (l *RedisRemovalLedger) Arm(ctx context.Context, id entity.Identity, generation string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.keyPrefix+id.String(), generation, ttl).Err(); err != nil {
		return fmt.Errorf("arm removal: %w", err)
	}
	return nil
}

func (l *RedisRemovalLedger) Disarm(ctx context.Context, id entity.Identity) error {
	if err := l.client.Del(ctx, l.keyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("disarm removal: %w", err)
	}
	return nil
}

func (l *RedisRemovalLedger) Claim(ctx context.Context, id entity.Identity, generation string) (bool, error) {
	n, err := claimScript.Run(ctx, l.client, []string{l.keyPrefix + id.String()}, generation).Int()
	if err != nil {
		return false, fmt.Errorf("claim removal: %w", err)
	}
	return n == 1, nil
}

var _ entity.RemovalLedger = (*RedisRemovalLedger)(nil)
