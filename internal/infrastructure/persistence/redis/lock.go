package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned by Acquire when another run owns the lock.
var ErrLockHeld = errors.New("lock: already held")

type lockStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// CycleLock guards a named resource with a SETNX token and a TTL, so a
// crashed holder frees it eventually.
type CycleLock struct {
	store lockStore
	ttl   time.Duration
}

// NewCycleLock creates a lock with the given TTL.
func NewCycleLock(store lockStore, ttl time.Duration) *CycleLock {
	return &CycleLock{store: store, ttl: ttl}
}

// Acquire takes the lock on resource. The returned release func deletes the
// key only while it still holds this run's token.
func (l *CycleLock) Acquire(ctx context.Context, resource string) (release func(context.Context) error, err error) {
	if l.ttl <= 0 {
		return nil, fmt.Errorf("lock %s: %w", resource, ErrCacheInvalidTTL)
	}

	key := LockKey(resource)
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", resource, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func(ctx context.Context) error {
		if _, err := l.store.CompareAndDelete(ctx, key, token); err != nil {
			return fmt.Errorf("release lock %s: %w", resource, err)
		}
		return nil
	}, nil
}
