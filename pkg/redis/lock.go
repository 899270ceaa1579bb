package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token,
// so an expired lock re-acquired by another worker is never released here.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes webhook processing per subscriber across processes
// using SET NX with a per-acquisition token and TTL.
type Locker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
}

// LockerOption customizes a Locker.
type LockerOption func(*Locker)

// WithLockTTL sets how long an acquired lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLockRetryInterval sets the polling interval while the lock is held elsewhere.
func WithLockRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithLockPrefix sets the key namespace, default "lock:".
func WithLockPrefix(prefix string) LockerOption {
	return func(l *Locker) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewLocker builds a Redis-backed lock. Panics on nil client.
func NewLocker(client *redis.Client, opts ...LockerOption) *Locker {
	if client == nil {
		panic("redis: locker requires a client")
	}
	l := &Locker{
		client:        client,
		ttl:           30 * time.Second,
		retryInterval: 50 * time.Millisecond,
		prefix:        "lock:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the key's lock is obtained or ctx is done.
// The returned release function is safe to call once; release failures
// are ignored since the TTL bounds the damage.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Join(ErrLockFailed, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockFailed, ctx.Err())
		case <-time.After(l.retryInterval):
		}
	}
}
