package store

import (
	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
)

// All returns every record in stored order.
func (s *Store) All() ([]*record.Map, error) {
	return s.Query().Get()
}

// Find returns the record stored under id, or nil.
func (s *Store) Find(id string) (*record.Map, error) {
	docs, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	v, ok := docs.Get(id)
	if !ok {
		return nil, nil
	}
	return v.(*record.Map), nil
}

// Count returns the number of records.
func (s *Store) Count() (int, error) {
	return s.Query().Count()
}

// Update merges fields into every record.
func (s *Store) Update(fields *record.Map) (int, error) {
	return s.Query().Update(fields)
}

// Delete removes every record.
func (s *Store) Delete() (int, error) {
	return s.Query().Delete()
}

// Truncate replaces the collection with an empty one. Unlike Delete it
// writes even when the collection is already empty and fires no
// deleting/deleted hooks.
func (s *Store) Truncate() (bool, error) {
	docs, ok, err := s.mutate(func(docs *record.Map) bool {
		for _, key := range docs.Keys() {
			docs.Delete(key)
		}
		return true
	})
	if err != nil || !ok {
		return false, err
	}
	s.fireChanged(docs)
	return true, nil
}

// Where is shorthand for Query().Where.
func (s *Store) Where(key, op string, value any) *query.Builder {
	return s.Query().Where(key, op, value)
}
