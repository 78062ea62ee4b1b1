package storage

import (
	"sync"
)

// OperationType tells the LockManager which lock an operation needs.
type OperationType int

const (
	// ReadOperation only reads collection data. Reads may run concurrently.
	ReadOperation OperationType = iota

	// WriteOperation modifies collection data and runs exclusively.
	WriteOperation
)

// String returns "read" or "write".
func (o OperationType) String() string {
	if o == WriteOperation {
		return "write"
	}
	return "read"
}

// LockManager serializes store operations within one process. Cross
// process exclusion is handled separately by a file lock around writes.
type LockManager struct {
	mu *sync.RWMutex
}

// NewLockManager creates a lock manager ready for use.
func NewLockManager() *LockManager {
	return &LockManager{
		mu: &sync.RWMutex{},
	}
}

// Execute runs fn holding the lock matching opType. The lock is released
// when fn returns, even if it panics.
//
//	err := lm.Execute(storage.WriteOperation, func() error {
//	    return persist(docs)
//	})
func (lm *LockManager) Execute(opType OperationType, fn func() error) error {
	switch opType {
	case ReadOperation:
		lm.mu.RLock()
		defer lm.mu.RUnlock()
	case WriteOperation:
		lm.mu.Lock()
		defer lm.mu.Unlock()
	}
	return fn()
}

// ExecuteWithResult is Execute for functions that also produce a value.
//
//	n, err := storage.ExecuteWithResult(lm, storage.ReadOperation, func() (int, error) {
//	    return docs.Len(), nil
//	})
func ExecuteWithResult[T any](lm *LockManager, opType OperationType, fn func() (T, error)) (T, error) {
	var result T
	err := lm.Execute(opType, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
