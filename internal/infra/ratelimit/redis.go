package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// Redis shares the windows between instances. The first request of a window
// creates the counter with its TTL; SETNX and INCR run in one MULTI/EXEC.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedis(client redis.UniversalClient, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "lifecycle:ratelimit:"
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) Admit(ctx context.Context, key, action string, length time.Duration, max int) (bool, error) {
	k := r.keyPrefix + action + ":" + key

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, length)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", action, err)
	}
	return incr.Val() <= int64(max), nil
}

var _ usecase.RateLimiter = (*Redis)(nil)
