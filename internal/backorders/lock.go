package backorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 60 * time.Second

// lockStore is the slice of the Redis client the lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// orderLock is a short lived Redis lock held for one reconciliation pass of
// one order. It expires on its own if the holder dies.
type orderLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

func newOrderLock(store lockStore, key string, ttl time.Duration) (*orderLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &orderLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *orderLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only while this holder still owns it.
func (l *orderLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.store.ReleaseIfOwner(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}
