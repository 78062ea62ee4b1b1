package store

import "sync"

// MockFileLock is an in-process FileLock for tests
type MockFileLock struct {
	mu          sync.Mutex
	isLocked    bool
	lockError   error
	unlockError error

	LockAttempts   int
	UnlockAttempts int
}

// TryLock implements FileLock. A held lock reports false so busy
// collections can be simulated with Hold.
func (m *MockFileLock) TryLock() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LockAttempts++

	if m.lockError != nil {
		return false, m.lockError
	}
	if m.isLocked {
		return false, nil
	}

	m.isLocked = true
	return true, nil
}

// Unlock implements FileLock.Unlock
func (m *MockFileLock) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UnlockAttempts++

	if m.unlockError != nil {
		return m.unlockError
	}

	m.isLocked = false
	return nil
}

// IsLocked reports whether the lock is held
func (m *MockFileLock) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLocked
}

// Hold takes the lock as if another process owned it.
func (m *MockFileLock) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isLocked = true
}

// SetLockError makes every following lock attempt fail with err
func (m *MockFileLock) SetLockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockError = err
}

// MockFileLockFactory hands out one MockFileLock per path
type MockFileLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockFileLock

	DefaultLockError   error
	DefaultUnlockError error
}

// NewMockFileLockFactory creates a new mock factory
func NewMockFileLockFactory() *MockFileLockFactory {
	return &MockFileLockFactory{
		locks: make(map[string]*MockFileLock),
	}
}

// New implements FileLockFactory.New
func (f *MockFileLockFactory) New(path string) FileLock {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lock, exists := f.locks[path]; exists {
		return lock
	}

	lock := &MockFileLock{
		lockError:   f.DefaultLockError,
		unlockError: f.DefaultUnlockError,
	}
	f.locks[path] = lock
	return lock
}

// GetLock returns the mock lock created for path, if any
func (f *MockFileLockFactory) GetLock(path string) *MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks[path]
}
