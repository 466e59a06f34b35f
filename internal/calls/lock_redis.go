package calls

import (
	"context"
	"time"

	"admissions-crm/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// SessionLock guarantees at most one active call session per agent across
// API instances. Keys are "<workspace>:<user>".
type SessionLock interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

const sessionLockPrefix = "calls:session:"

// RedisSessionLock implements SessionLock with a TTL-bound SET NX key per session key.
type RedisSessionLock struct {
	rdb   *redis.Client
	owner string
	ttl   time.Duration
}

// NewRedisSessionLock builds a lock; owner identifies this API instance.
func NewRedisSessionLock(rdb *redis.Client, owner string, ttl time.Duration) *RedisSessionLock {
	return &RedisSessionLock{rdb: rdb, owner: owner, ttl: ttl}
}

func (l *RedisSessionLock) Acquire(ctx context.Context, key string) (bool, error) {
	return utils.AcquireExclusive(ctx, l.rdb, sessionLockPrefix+key, l.owner, l.ttl)
}

// Release drops this instance's claim. A claim that already expired and was
// taken by another instance is not touched.
func (l *RedisSessionLock) Release(ctx context.Context, key string) error {
	_, err := utils.ReleaseExclusive(ctx, l.rdb, sessionLockPrefix+key, l.owner)
	return err
}
