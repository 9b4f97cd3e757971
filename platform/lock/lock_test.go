package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, 5*time.Second)
}

func TestAcquireIsExclusive(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "leads:assign:abc")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, "leads:assign:abc"); err != ErrNotAcquired {
		t.Fatalf("expected ErrNotAcquired for held lock, got %v", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, "leads:assign:abc"); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "leads:assign:a"); err != nil {
		t.Fatalf("acquire a failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "leads:assign:b"); err != nil {
		t.Fatalf("acquire b failed: %v", err)
	}
}

func TestReleaseIgnoresStolenLock(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "opps:dedup:key")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Simulate expiry followed by another owner taking the key.
	if err := locker.client.Del(ctx, "opps:dedup:key").Err(); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	second, err := locker.Acquire(ctx, "opps:dedup:key")
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	// Releasing the stale lease must not free the new owner's lock.
	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale release errored: %v", err)
	}
	if _, err := locker.Acquire(ctx, "opps:dedup:key"); err != ErrNotAcquired {
		t.Fatalf("expected second lease to still hold the lock, got %v", err)
	}
	_ = second.Release(ctx)
}
