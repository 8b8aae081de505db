package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"parkingledger/backend/services/parking-service/internal/apperr"
)

func setupLocker(t *testing.T, ttl, wait time.Duration) (*EntryLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewEntryLocker(client, ttl, wait), mr
}

func TestAcquireIsExclusivePerPlate(t *testing.T) {
	locker, _ := setupLocker(t, time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "ABC1234")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_, err = locker.Acquire(ctx, "ABC1234")
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected lock held, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindBusy {
		t.Fatalf("expected retryable busy kind, got %s", apperr.KindOf(err))
	}

	other, err := locker.Acquire(ctx, "XYZ9876")
	if err != nil {
		t.Fatalf("expected other plate to lock independently: %v", err)
	}
	defer other(ctx)

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := locker.Acquire(ctx, "ABC1234")
	if err != nil {
		t.Fatalf("expected re-acquire after release: %v", err)
	}
	_ = again(ctx)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	locker, _ := setupLocker(t, time.Minute, 2*time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "ABC1234")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = release(context.Background())
	}()

	next, err := locker.Acquire(ctx, "ABC1234")
	if err != nil {
		t.Fatalf("expected second acquire to win after release: %v", err)
	}
	_ = next(ctx)
}

func TestAcquireStopsOnContextCancel(t *testing.T) {
	locker, _ := setupLocker(t, time.Minute, time.Minute)

	if _, err := locker.Acquire(context.Background(), "ABC1234"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "ABC1234"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLockExpires(t *testing.T) {
	locker, mr := setupLocker(t, 2*time.Second, 50*time.Millisecond)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "TTL0001"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(3 * time.Second)
	if _, err := locker.Acquire(ctx, "TTL0001"); err != nil {
		t.Fatalf("expected expired lock to be free: %v", err)
	}
}

func TestReleaseDoesNotStealForeignLock(t *testing.T) {
	locker, mr := setupLocker(t, 2*time.Second, 50*time.Millisecond)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "OWN0001")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(3 * time.Second)
	if _, err := locker.Acquire(ctx, "OWN0001"); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	if err := staleRelease(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !mr.Exists(locker.key("OWN0001")) {
		t.Fatal("stale release must not delete the new holder's lock")
	}
}
