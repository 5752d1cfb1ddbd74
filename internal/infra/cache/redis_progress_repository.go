package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const maxTxRetries = 10

var ErrContention = errors.New("progress update lost too many races")

// RedisProgressRepository keeps one JSON document per identity. Mutate is an
// optimistic WATCH/MULTI transaction retried on conflict; different
// identities never touch the same key.
type RedisProgressRepository struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisProgressRepository(client redis.UniversalClient, keyPrefix string) *RedisProgressRepository {
	if keyPrefix == "" {
		keyPrefix = "lifecycle:progress:"
	}
	return &RedisProgressRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisProgressRepository) key(id entity.Identity) string {
	return r.keyPrefix + id.String()
}

func (r *RedisProgressRepository) Mutate(ctx context.Context, id entity.Identity, init func() entity.Progress, fn func(*entity.Progress) error) (entity.Progress, error) {
	key := r.key(id)
	var result entity.Progress

	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, key)
		if errors.Is(err, redis.Nil) {
			current = init()
		} else if err != nil {
			return err
		}

		if err := fn(&current); err != nil {
			return err
		}

		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = current
		return nil
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return entity.Progress{}, err
		}
		return result.Clone(), nil
	}
	return entity.Progress{}, ErrContention
}

func (r *RedisProgressRepository) load(ctx context.Context, c redis.Cmdable, key string) (entity.Progress, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		return entity.Progress{}, err
	}
	var p entity.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return entity.Progress{}, fmt.Errorf("decode progress %s: %w", key, err)
	}
	return p.Clone(), nil
}

func (r *RedisProgressRepository) Delete(ctx context.Context, id entity.Identity) (bool, error) {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("delete progress: %w", err)
	}
	return n > 0, nil
}

// List scans every progress key. Fine for funnel reporting volumes.
func (r *RedisProgressRepository) List(ctx context.Context) ([]entity.Progress, error) {
	var out []entity.Progress
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		p, err := r.load(ctx, r.client, iter.Val())
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan progress: %w", err)
	}
	return out, nil
}

var _ entity.ProgressRepository = (*RedisProgressRepository)(nil)
