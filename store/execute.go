package store

import (
	"fmt"

	"github.com/arthur-debert/pipestore/pipe"
	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/storage"
	"github.com/arthur-debert/pipestore/types"
)

// check rejects builders that belong to another store or failed while
// being composed.
func (s *Store) check(q *query.Builder) error {
	if exec, ok := q.Executor().(*Store); !ok || exec != s {
		return fmt.Errorf("%w: collection %q", types.ErrCrossStoreQuery, s.name)
	}
	return q.Err()
}

// snapshot loads a copy of the document map under the read lock.
func (s *Store) snapshot() (*record.Map, error) {
	return storage.ExecuteWithResult(s.lockManager, storage.ReadOperation, s.load)
}

// run executes the pipeline over a fresh snapshot. The pipes run without
// holding any lock so joins may query this store again.
func (s *Store) run(q *query.Builder) (pipe.Rows, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	docs, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	pipes := q.Pipes()
	rows, err := pipe.Run(pipe.FromMap(docs), pipes)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ran query", "pipes", len(pipes), "loaded", docs.Len(), "rows", len(rows))
	return rows, nil
}

// mutate loads the current map under the write lock, lets fn change it
// and persists the result. fn returns false to skip the write.
func (s *Store) mutate(fn func(docs *record.Map) bool) (*record.Map, bool, error) {
	var saved *record.Map
	var ok bool
	err := s.lockManager.Execute(storage.WriteOperation, func() error {
		docs, err := s.load()
		if err != nil {
			return err
		}
		if !fn(docs) {
			ok = true
			return nil
		}
		if ok, err = s.persist(docs); err != nil {
			return err
		}
		saved = docs
		return nil
	})
	return saved, ok, err
}

// ExecuteGet implements query.Executor.
func (s *Store) ExecuteGet(q *query.Builder) (pipe.Rows, error) {
	return s.run(q)
}

// ExecuteUpdate implements query.Executor. Every selected record gets
// fields merged in; a new identifier in fields moves the record to that
// key. It returns 0 when the write fails.
func (s *Store) ExecuteUpdate(q *query.Builder, fields *record.Map) (int, error) {
	if err := s.check(q); err != nil {
		return 0, err
	}
	if fields = fields.Clone(); fields == nil {
		fields = record.New()
	}
	s.fire(&Event{Name: types.EventUpdating, Query: q, Fields: fields})

	rows, err := s.run(q)
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	affected := 0
	docs, ok, err := s.mutate(func(docs *record.Map) bool {
		for _, row := range rows {
			key := row.OriginalKey()
			v, found := docs.Get(key)
			if !found {
				continue
			}
			rec := v.(*record.Map).Clone()
			a := record.Access(rec)
			fields.Clone().Range(func(path string, value any) bool {
				a.Set(path, value, true)
				return true
			})

			newKey := key
			if id, has := rec.Get(types.IDField); has && id != nil {
				newKey = record.ToString(id)
			}
			if newKey != key {
				docs.Delete(key)
			}
			docs.Set(newKey, rec)
			affected++
		}
		return affected > 0
	})
	if err != nil || !ok || docs == nil {
		return 0, err
	}

	s.fire(&Event{Name: types.EventUpdated, Query: q, Fields: fields, Affected: affected})
	s.fireChanged(docs)
	return affected, nil
}

// ExecuteDelete implements query.Executor. It returns 0 when the write
// fails.
func (s *Store) ExecuteDelete(q *query.Builder) (int, error) {
	if err := s.check(q); err != nil {
		return 0, err
	}
	s.fire(&Event{Name: types.EventDeleting, Query: q})

	rows, err := s.run(q)
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	affected := 0
	docs, ok, err := s.mutate(func(docs *record.Map) bool {
		for _, row := range rows {
			if docs.Delete(row.OriginalKey()) {
				affected++
			}
		}
		return affected > 0
	})
	if err != nil || !ok || docs == nil {
		return 0, err
	}

	s.fire(&Event{Name: types.EventDeleted, Query: q, Affected: affected})
	s.fireChanged(docs)
	return affected, nil
}

// ExecuteSave implements query.Executor. Rows whose identifier changed in
// a mapper replace their previous entry. It returns 0 when the write
// fails.
func (s *Store) ExecuteSave(q *query.Builder) (int, error) {
	rows, err := s.run(q)
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	docs, ok, err := s.mutate(func(docs *record.Map) bool {
		for _, row := range rows {
			if row.PrevKey != "" {
				docs.Delete(row.PrevKey)
			}
			rec := row.Record.Clone()
			if v, has := rec.Get(types.IDField); !has || v == nil {
				rec.Set(types.IDField, row.Key)
			}
			docs.Set(row.Key, rec)
		}
		return true
	})
	if err != nil || !ok {
		return 0, err
	}

	s.fireChanged(docs)
	return len(rows), nil
}

// Insert stores fields as a new record and returns it with its
// identifier set. A missing identifier is generated. The record is nil
// when the write fails.
func (s *Store) Insert(fields *record.Map) (*record.Map, error) {
	pending := fields.Clone()
	if pending == nil {
		pending = record.New()
	}
	if v, has := pending.Get(types.IDField); !has || v == nil {
		pending.Set(types.IDField, s.ids.Next())
	}
	s.fire(&Event{Name: types.EventInserting, Record: pending})

	final := record.New()
	final.Set(types.IDField, nil)
	final.Merge(pending)
	id, _ := final.Get(types.IDField)
	if id == nil {
		id = s.ids.Next()
		final.Set(types.IDField, id)
	}
	key := record.ToString(id)

	docs, ok, err := s.mutate(func(docs *record.Map) bool {
		docs.Set(key, final)
		return true
	})
	if err != nil || !ok {
		return nil, err
	}

	_ = s.lockManager.Execute(storage.WriteOperation, func() error {
		s.lastInsertID = key
		return nil
	})
	s.fire(&Event{Name: types.EventInserted, Record: final.Clone()})
	s.fireChanged(docs)
	return final.Clone(), nil
}

// LastInsertID returns the identifier of the last record inserted through
// this store.
func (s *Store) LastInsertID() string {
	id, _ := storage.ExecuteWithResult(s.lockManager, storage.ReadOperation, func() (string, error) {
		return s.lastInsertID, nil
	})
	return id
}
