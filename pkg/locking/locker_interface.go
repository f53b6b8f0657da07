package locking

import (
	"context"
	"time"
)

// LockerInterface hands out locks that serialize scheduler runs per workspace
type LockerInterface interface {
	Acquire(ctx context.Context, key string, ttl time.Duration, tryOnlyOnce bool) (LockInterface, error)
}

// LockInterface represents an acquired lock
type LockInterface interface {
	Key() string
	Release(ctx context.Context) error
}
