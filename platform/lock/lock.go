// Package lock provides a Redis-backed mutex for serializing short critical
// sections across processes. This is part of the platform layer and contains
// no business logic.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock is already held by another owner.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another owner is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker acquires per-key mutexes in Redis.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// Lease represents a held lock.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// New creates a Locker. ttl bounds how long a crashed holder can block others.
func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// NewFromURL creates a Locker from a Redis URL.
func NewFromURL(redisURL string, ttl time.Duration) (*Locker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return New(redis.NewClient(opt), ttl), nil
}

// Acquire takes the lock for key, or returns ErrNotAcquired if it is held.
func (l *Locker) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lease{locker: l, key: key, token: token}, nil
}

// Release frees the lock if it is still held by this lease.
func (le *Lease) Release(ctx context.Context) error {
	if le == nil {
		return nil
	}
	return releaseScript.Run(ctx, le.locker.client, []string{le.key}, le.token).Err()
}
