// Package passlock provides a redis-backed single-flight lock so a periodic
// pass (the notification check) is not started while the previous one still
// holds the key.
package passlock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Lock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func New(rdb *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{rdb: rdb, key: key, ttl: ttl}
}

// Acquire returns true when this holder now owns the pass. The TTL bounds a
// crashed holder: the key expires and the next tick may run.
func (l *Lock) Acquire(ctx context.Context, holder string) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, holder, l.ttl).Result()
}

func (l *Lock) Release(ctx context.Context, holder string) error {
	v, err := l.rdb.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if v != holder {
		return nil
	}
	return l.rdb.Del(ctx, l.key).Err()
}
