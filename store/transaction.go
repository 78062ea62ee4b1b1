package store

import (
	"errors"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/storage"
	"github.com/arthur-debert/pipestore/types"
)

// transaction holds writes made between Begin and Commit. buffer stays
// nil until the first write, so reads keep going to disk until then.
type transaction struct {
	buffer *record.Map
}

// Begin starts buffering writes in memory. Calling Begin inside a
// transaction discards what was buffered so far.
func (s *Store) Begin() {
	_ = s.lockManager.Execute(storage.WriteOperation, func() error {
		s.tx = &transaction{}
		return nil
	})
	s.logger.Debug("transaction started")
}

// InTransaction reports whether writes are currently buffered.
func (s *Store) InTransaction() bool {
	active, _ := storage.ExecuteWithResult(s.lockManager, storage.ReadOperation, func() (bool, error) {
		return s.tx != nil, nil
	})
	return active
}

// Commit ends the transaction and writes the buffer to disk. It reports
// false when the write fails, like any other persist. When the directory
// is missing the transaction stays open. Committing without
// a transaction, or one that wrote nothing, is a no-op.
func (s *Store) Commit() (bool, error) {
	return storage.ExecuteWithResult(s.lockManager, storage.WriteOperation, func() (bool, error) {
		tx := s.tx
		s.tx = nil
		if tx == nil || tx.buffer == nil {
			return true, nil
		}
		s.logger.Debug("committing transaction", "documents", tx.buffer.Len())
		ok, err := s.write(tx.buffer)
		if errors.Is(err, types.ErrMissingStorageLocation) {
			// nothing was written, keep the buffer for a later Commit
			s.tx = tx
		}
		return ok, err
	})
}

// Rollback ends the transaction and drops the buffer without writing.
func (s *Store) Rollback() {
	_ = s.lockManager.Execute(storage.WriteOperation, func() error {
		s.tx = nil
		return nil
	})
	s.logger.Debug("transaction rolled back")
}

// Transaction runs fn inside a transaction, committing when it returns
// nil and rolling back when it fails or panics. Inside an active
// transaction fn simply runs as part of it; nested calls have no commit
// boundary of their own.
func (s *Store) Transaction(fn func(s *Store) error) (bool, error) {
	if s.InTransaction() {
		if err := fn(s); err != nil {
			return false, err
		}
		return true, nil
	}

	s.Begin()
	defer func() {
		if r := recover(); r != nil {
			s.Rollback()
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		s.Rollback()
		return false, err
	}
	ok, err := s.Commit()
	if err != nil {
		s.Rollback()
	}
	return ok, err
}
