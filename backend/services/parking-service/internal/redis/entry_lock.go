package redisstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parkingledger/backend/services/parking-service/internal/apperr"
)

// ErrLockHeld is returned when another entry for the same plate stayed in
// flight for the whole wait. Callers may retry.
var ErrLockHeld = apperr.New(apperr.KindBusy, "entry for this plate already in progress")

const defaultRetryInterval = 25 * time.Millisecond

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// EntryLocker serializes concurrent entries for one plate across service instances.
type EntryLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewEntryLocker returns a redis backed locker. Locks expire after ttl even if
// never released. Acquire polls a held lock for up to wait, which defaults to ttl.
func NewEntryLocker(client *redis.Client, ttl, wait time.Duration) *EntryLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if wait <= 0 {
		wait = ttl
	}
	return &EntryLocker{client: client, ttl: ttl, wait: wait, retry: defaultRetryInterval}
}

func (l *EntryLocker) key(plate string) string {
	return fmt.Sprintf("parking:entry-lock:%s", plate)
}

// Acquire takes the lock for plate and returns the function releasing it.
// A held lock is retried until it frees or the wait elapses.
func (l *EntryLocker) Acquire(ctx context.Context, plate string) (func(context.Context) error, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := l.key(plate)
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockHeld
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
