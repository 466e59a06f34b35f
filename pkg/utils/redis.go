package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the session-lock store.
// Zero timeouts and pool sizes take conservative defaults.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	PingTimeout time.Duration
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func (c RedisConfig) options() *redis.Options {
	pool := c.PoolSize
	if pool <= 0 {
		pool = 20
	}
	return &redis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		DialTimeout:     orDuration(c.DialTimeout, 3*time.Second),
		ReadTimeout:     orDuration(c.ReadTimeout, 2*time.Second),
		WriteTimeout:    orDuration(c.WriteTimeout, 2*time.Second),
		PoolSize:        pool,
		MinIdleConns:    max(c.MinIdleConns, 0),
		PoolTimeout:     orDuration(c.PoolTimeout, 4*time.Second),
		ConnMaxIdleTime: orDuration(c.ConnMaxIdleTime, 5*time.Minute),
		ConnMaxLifetime: orDuration(c.ConnMaxLifetime, 30*time.Minute),
	}
}

// OpenRedis initializes a Redis client and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	rdb := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, orDuration(cfg.PingTimeout, 2*time.Second))
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

var errNilClient = errors.New("redis client is nil")

// AcquireExclusive claims key for owner until ttl expires, using SET NX.
// It reports false when another owner already holds the key. The TTL frees
// the claim if this process dies without releasing it.
func AcquireExclusive(ctx context.Context, rdb *redis.Client, key, owner string, ttl time.Duration) (bool, error) {
	switch {
	case rdb == nil:
		return false, errNilClient
	case key == "" || owner == "":
		return false, errors.New("key and owner are required")
	case ttl <= 0:
		return false, errors.New("ttl must be > 0")
	}
	return rdb.SetNX(ctx, key, owner, ttl).Result()
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseExclusive drops owner's claim on key. A claim that expired and was
// taken by someone else is left alone; released reports whether a key was deleted.
func ReleaseExclusive(ctx context.Context, rdb *redis.Client, key, owner string) (released bool, err error) {
	if rdb == nil {
		return false, errNilClient
	}
	if key == "" || owner == "" {
		return false, errors.New("key and owner are required")
	}
	n, err := releaseScript.Run(ctx, rdb, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
