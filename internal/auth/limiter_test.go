package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryAttemptStoreLocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryAttemptStore(AttemptPolicy{MaxAttempts: 3, Window: time.Minute, LockDuration: 5 * time.Minute})
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for want := 2; want >= 1; want-- {
		remaining, err := store.RecordFailure(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
		if remaining != want {
			t.Fatalf("remaining = %d, want %d", remaining, want)
		}
	}
	if locked, _ := store.LockedFor(ctx, "10.0.0.1"); locked != 0 {
		t.Fatalf("unexpected lock before max attempts: %v", locked)
	}

	if remaining, _ := store.RecordFailure(ctx, "10.0.0.1"); remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if locked, _ := store.LockedFor(ctx, "10.0.0.1"); locked != 5*time.Minute {
		t.Fatalf("locked for %v, want 5m", locked)
	}
	if locked, _ := store.LockedFor(ctx, "10.0.0.2"); locked != 0 {
		t.Fatalf("other key must not be locked: %v", locked)
	}

	now = now.Add(5 * time.Minute)
	if locked, _ := store.LockedFor(ctx, "10.0.0.1"); locked != 0 {
		t.Fatalf("lock should expire, got %v", locked)
	}
}

func TestMemoryAttemptStoreWindowAndReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryAttemptStore(AttemptPolicy{MaxAttempts: 3, Window: time.Minute, LockDuration: time.Minute})
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.RecordFailure(ctx, "ip")
	_, _ = store.RecordFailure(ctx, "ip")

	now = now.Add(2 * time.Minute)
	if remaining, _ := store.RecordFailure(ctx, "ip"); remaining != 2 {
		t.Fatalf("window should restart, remaining = %d", remaining)
	}

	if err := store.Reset(ctx, "ip"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if remaining, _ := store.RecordFailure(ctx, "ip"); remaining != 2 {
		t.Fatalf("reset should clear failures, remaining = %d", remaining)
	}
}

func TestMemoryAttemptStorePrunesStaleEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryAttemptStore(AttemptPolicy{MaxAttempts: 2, Window: time.Minute, LockDuration: 5 * time.Minute})
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.RecordFailure(ctx, "stale")
	_, _ = store.RecordFailure(ctx, "locked")
	_, _ = store.RecordFailure(ctx, "locked")

	now = now.Add(2 * time.Minute)
	_, _ = store.RecordFailure(ctx, "fresh")

	store.lock.Lock()
	_, staleKept := store.attempts["stale"]
	_, lockedKept := store.attempts["locked"]
	size := len(store.attempts)
	store.lock.Unlock()

	if staleKept {
		t.Fatal("entry past its window should be pruned")
	}
	if !lockedKept {
		t.Fatal("entry still locked must be kept")
	}
	if size != 2 {
		t.Fatalf("attempts has %d entries, want 2", size)
	}
	if locked, _ := store.LockedFor(ctx, "locked"); locked != 3*time.Minute {
		t.Fatalf("locked for %v, want 3m", locked)
	}
}

// TEST_REDIS_URL が設定されている場合のみ実 Redis に対して実行します。
func TestRedisAttemptStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL returned error: %v", err)
	}
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	key := "test-" + time.Now().Format("150405.000000000")
	store := NewRedisAttemptStore(rdb, AttemptPolicy{MaxAttempts: 3, Window: time.Minute, LockDuration: time.Minute})
	t.Cleanup(func() { _ = store.Reset(ctx, key) })

	for want := 2; want >= 1; want-- {
		remaining, err := store.RecordFailure(ctx, key)
		if err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
		if remaining != want {
			t.Fatalf("remaining = %d, want %d", remaining, want)
		}
		if ttl := rdb.TTL(ctx, countKey(key)).Val(); ttl <= 0 || ttl > time.Minute {
			t.Fatalf("counter TTL = %v, want within window", ttl)
		}
	}

	if remaining, err := store.RecordFailure(ctx, key); err != nil || remaining != 0 {
		t.Fatalf("RecordFailure = %d, %v; want 0, nil", remaining, err)
	}
	if locked, err := store.LockedFor(ctx, key); err != nil || locked <= 0 {
		t.Fatalf("LockedFor = %v, %v; want positive lock", locked, err)
	}

	if err := store.Reset(ctx, key); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if locked, _ := store.LockedFor(ctx, key); locked != 0 {
		t.Fatalf("lock should be cleared, got %v", locked)
	}
}

func TestAttemptPolicyNormalized(t *testing.T) {
	if got := (AttemptPolicy{}).normalized(); got != DefaultAttemptPolicy {
		t.Fatalf("normalized = %+v, want %+v", got, DefaultAttemptPolicy)
	}
}

func TestAttemptKeys(t *testing.T) {
	if countKey("1.2.3.4") == lockKey("1.2.3.4") {
		t.Fatal("count and lock keys must differ")
	}
}
