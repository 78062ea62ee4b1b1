package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// errCollectionBusy is returned when another writer keeps the collection
// lock for longer than the LockPolicy allows.
var errCollectionBusy = errors.New("collection is locked by another writer")

// FileLock is the cross-process lock on "<collection file>.lock". Only
// writers take it; readers rely on the atomic rename.
type FileLock interface {
	// TryLock takes the lock without blocking and reports whether it did.
	TryLock() (bool, error)
	Unlock() error
}

// FileLockFactory creates the lock for a lock file path.
type FileLockFactory interface {
	New(path string) FileLock
}

// LockPolicy bounds how long a write waits for a busy collection.
type LockPolicy struct {
	Timeout  time.Duration
	Attempts int
	Delay    time.Duration
}

// DefaultLockPolicy waits at most three attempts, 100ms apart, and never
// longer than three seconds.
func DefaultLockPolicy() LockPolicy {
	return LockPolicy{Timeout: 3 * time.Second, Attempts: 3, Delay: 100 * time.Millisecond}
}

// acquire takes lock following the policy. onRetry runs before each pause.
func (p LockPolicy) acquire(ctx context.Context, lock FileLock, onRetry func(attempt int)) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	attempts := max(p.Attempts, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to lock collection: %w", err)
		}
		if locked {
			return nil
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", errCollectionBusy, ctx.Err())
		case <-time.After(p.Delay):
		}
	}
	return fmt.Errorf("%w after %d attempts", errCollectionBusy, attempts)
}

type flockLock struct {
	f *flock.Flock
}

func (l flockLock) TryLock() (bool, error) { return l.f.TryLock() }
func (l flockLock) Unlock() error { return l.f.Unlock() }

// FlockFactory is the default factory, backed by flock(2).
type FlockFactory struct{}

// New implements FileLockFactory.
func (FlockFactory) New(path string) FileLock {
	return flockLock{f: flock.New(path)}
}
