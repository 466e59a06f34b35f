package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestAcquireExclusive(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectSetNX("calls:agent:u1", "inst-1", time.Hour).SetVal(true)
	mock.ExpectSetNX("calls:agent:u1", "inst-2", time.Hour).SetVal(false)

	ok, err := AcquireExclusive(ctx, rdb, "calls:agent:u1", "inst-1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got %v %v", ok, err)
	}
	ok, err = AcquireExclusive(ctx, rdb, "calls:agent:u1", "inst-2", time.Hour)
	if err != nil || ok {
		t.Fatalf("expected second acquire to be rejected, got %v %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcquireExclusive_PropagatesRedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSetNX("k", "o", time.Minute).SetErr(errors.New("down"))

	if _, err := AcquireExclusive(context.Background(), rdb, "k", "o", time.Minute); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAcquireExclusive_ValidatesArgs(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	ctx := context.Background()
	if _, err := AcquireExclusive(ctx, nil, "k", "o", time.Minute); err == nil {
		t.Fatalf("expected nil client error")
	}
	if _, err := AcquireExclusive(ctx, rdb, "", "o", time.Minute); err == nil {
		t.Fatalf("expected key error")
	}
	if _, err := AcquireExclusive(ctx, rdb, "k", "o", 0); err == nil {
		t.Fatalf("expected ttl error")
	}
}

func TestReleaseExclusive_OnlyDeletesOwnClaim(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectEvalSha(releaseScript.Hash(), []string{"calls:agent:u1"}, "inst-1").SetVal(int64(1))
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"calls:agent:u1"}, "inst-2").SetVal(int64(0))

	released, err := ReleaseExclusive(ctx, rdb, "calls:agent:u1", "inst-1")
	if err != nil || !released {
		t.Fatalf("expected own claim released, got %v %v", released, err)
	}
	released, err = ReleaseExclusive(ctx, rdb, "calls:agent:u1", "inst-2")
	if err != nil || released {
		t.Fatalf("expected foreign claim kept, got %v %v", released, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReleaseExclusive_ValidatesArgs(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	if _, err := ReleaseExclusive(context.Background(), nil, "k", "o"); err == nil {
		t.Fatalf("expected nil client error")
	}
	if _, err := ReleaseExclusive(context.Background(), rdb, "k", ""); err == nil {
		t.Fatalf("expected owner error")
	}
}

func TestRedisConfig_OptionsDefaults(t *testing.T) {
	o := RedisConfig{Addr: "redis:6379", MinIdleConns: -3}.options()
	if o.PoolSize != 20 || o.DialTimeout != 3*time.Second || o.MinIdleConns != 0 || o.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected addr error")
	}
}
