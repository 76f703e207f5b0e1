package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLockerExclusive(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewRedisLocker(client, "shiftlog")
	second := NewRedisLocker(client, "shiftlog")

	release, ok, err := first.TryAcquire(ctx, "reminder-sweep", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	if _, ok, err := second.TryAcquire(ctx, "reminder-sweep", time.Minute); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("shiftlog:reminder-sweep") {
		t.Fatalf("expected key removed after release")
	}

	if _, ok, err := second.TryAcquire(ctx, "reminder-sweep", time.Minute); err != nil || !ok {
		t.Fatalf("re-acquire: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, "shiftlog")
	release, ok, err := locker.TryAcquire(ctx, "sweep", time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	// 租约过期后被其他实例拿走，旧持有者释放时不能删掉新锁。
	mr.FastForward(2 * time.Second)
	if _, ok, _ := locker.TryAcquire(ctx, "sweep", time.Minute); !ok {
		t.Fatalf("expected lease to be available after expiry")
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !mr.Exists("shiftlog:sweep") {
		t.Fatalf("foreign lock must survive stale release")
	}
}

func TestLocalLockerAlwaysAcquires(t *testing.T) {
	release, ok, err := LocalLocker{}.TryAcquire(context.Background(), "any", 0)
	if err != nil || !ok {
		t.Fatalf("local lock: ok=%v err=%v", ok, err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}
