package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskboard/repository"
)

type idempotencyRepository struct {
	client     *redislib.Client
	prefix     string
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyRepository stores create keys in Redis so retried creates resolve to the first task.
// A reservation lives for pendingTTL until Complete extends it to ttl, so a request that dies
// between insert and Complete blocks its key only briefly.
func NewIdempotencyRepository(client *redislib.Client, ttl, pendingTTL time.Duration) repository.IdempotencyRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Second
	}
	if pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &idempotencyRepository{
		client:     client,
		prefix:     "idem:",
		ttl:        ttl,
		pendingTTL: pendingTTL,
	}
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key string) (string, bool, error) {
	reserved, err := r.client.SetNX(ctx, r.key(key), "", r.pendingTTL).Result()
	if err != nil {
		return "", false, err
	}
	if reserved {
		return "", true, nil
	}

	taskID, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err == redislib.Nil {
			// expired between the two calls; let the caller try again
			return "", false, nil
		}
		return "", false, err
	}
	return taskID, false, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, taskID string) error {
	return r.client.Set(ctx, r.key(key), taskID, r.ttl).Err()
}

// Release removes a reservation whose create failed so the caller may retry with the same key.
func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *idempotencyRepository) key(key string) string {
	return fmt.Sprintf("%s%s", r.prefix, key)
}
