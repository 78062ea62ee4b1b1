package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
	"github.com/google/go-cmp/cmp"
)

func newMockStore(t *testing.T, opts ...Option) (*Store, *MockFileSystem, *MockFileLockFactory) {
	t.Helper()
	mockFS := NewMockFileSystem()
	mockLocks := NewMockFileLockFactory()
	all := append([]Option{WithFileSystem(mockFS), WithFileLockFactory(mockLocks)}, opts...)
	s, err := New("test", all...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mockFS, mockLocks
}

func mustInsert(t *testing.T, s *Store, kv ...any) *record.Map {
	t.Helper()
	rec, err := s.Insert(record.FromPairs(kv...))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if rec == nil {
		t.Fatal("insert was not persisted")
	}
	return rec
}

func storedIDs(t *testing.T, s *Store) []string {
	t.Helper()
	recs, err := s.All()
	if err != nil {
		t.Fatalf("failed to read collection: %v", err)
	}
	out := make([]string, len(recs))
	for i, rec := range recs {
		v, _ := rec.Get(types.IDField)
		out[i] = record.ToString(v)
	}
	return out
}

func TestNewResolvesPaths(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		opts     Options
		wantPath string
		wantName string
	}{
		{"default extension", "data/users", DefaultOptions(), "data/users.json", "users"},
		{"extension already present", "data/users.json", DefaultOptions(), "data/users.json", "users"},
		{"extension without dot", "users", Options{Extension: "db"}, "users.db", "users"},
		{"compressed", "users", Options{Extension: ".yaml", Compress: true}, "users.yaml.zst", "users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.base, WithOptions(tt.opts), WithFileSystem(NewMockFileSystem()))
			if err != nil {
				t.Fatal(err)
			}
			if s.Path() != tt.wantPath {
				t.Errorf("path: expected %q, got %q", tt.wantPath, s.Path())
			}
			if s.Name() != tt.wantName {
				t.Errorf("name: expected %q, got %q", tt.wantName, s.Name())
			}
		})
	}

	if _, err := New("users", WithOptions(Options{Format: "xml"})); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestStoreWithMockFS(t *testing.T) {
	t.Run("missing file reads as empty", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		n, err := s.Count()
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("expected 0 records, got %d", n)
		}
		if mockFS.FileExists("test.json") {
			t.Error("reading must not create the file")
		}
	})

	t.Run("insert writes pretty JSON", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		mustInsert(t, s, "_id", "x", "name", "Ann")

		content, ok := mockFS.GetFileContent("test.json")
		if !ok {
			t.Fatal("expected file to exist after insert")
		}
		want := "{\n  \"x\": {\n    \"_id\": \"x\",\n    \"name\": \"Ann\"\n  }\n}"
		if diff := cmp.Diff(want, string(content)); diff != "" {
			t.Errorf("file content mismatch (-want +got):\n%s", diff)
		}
		if mockFS.FileExists("test.json.tmp") {
			t.Error("temp file should have been renamed")
		}
	})

	t.Run("empty collection is written as an object", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		mustInsert(t, s, "_id", "x")
		if ok, err := s.Truncate(); err != nil || !ok {
			t.Fatalf("truncate failed: %v %v", ok, err)
		}
		content, _ := mockFS.GetFileContent("test.json")
		if string(content) != "{}" {
			t.Errorf("expected {}, got %q", content)
		}
	})

	t.Run("empty file reads as empty", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		mockFS.SetFileContent("test.json", nil)
		if got := storedIDs(t, s); len(got) != 0 {
			t.Errorf("expected no records, got %v", got)
		}
	})

	t.Run("malformed file is reported", func(t *testing.T) {
		for _, content := range []string{`{"a": `, `"text"`, `{"a": 1}`} {
			s, mockFS, _ := newMockStore(t)
			mockFS.SetFileContent("test.json", []byte(content))

			_, err := s.All()
			if !errors.Is(err, types.ErrInvalidStoredFormat) {
				t.Errorf("%s: expected ErrInvalidStoredFormat, got %v", content, err)
			}
			if _, err := s.Insert(record.New()); !errors.Is(err, types.ErrInvalidStoredFormat) {
				t.Errorf("%s: insert should fail too, got %v", content, err)
			}
			if got, _ := mockFS.GetFileContent("test.json"); string(got) != content {
				t.Errorf("malformed file must not be repaired, got %q", got)
			}
		}
	})

	t.Run("write failure yields empty results", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		mustInsert(t, s, "_id", "x", "score", 1)
		mockFS.WriteFileError = errors.New("disk full")

		rec, err := s.Insert(record.FromPairs("_id", "y"))
		if err != nil || rec != nil {
			t.Errorf("expected nil record and nil error, got %v, %v", rec, err)
		}
		if s.LastInsertID() != "x" {
			t.Errorf("last insert id should not move on failure, got %q", s.LastInsertID())
		}
		n, err := s.Update(record.FromPairs("score", 2))
		if err != nil || n != 0 {
			t.Errorf("expected 0 updated rows, got %d, %v", n, err)
		}
		n, err = s.Delete()
		if err != nil || n != 0 {
			t.Errorf("expected 0 deleted rows, got %d, %v", n, err)
		}
		if diff := cmp.Diff([]string{"x"}, storedIDs(t, s)); diff != "" {
			t.Errorf("collection changed (-want +got):\n%s", diff)
		}
	})

	t.Run("rename failure removes the temp file", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		mockFS.RenameError = errors.New("busy")
		if rec, err := s.Insert(record.New()); rec != nil || err != nil {
			t.Errorf("expected nil, nil; got %v, %v", rec, err)
		}
		if mockFS.FileExists("test.json.tmp") {
			t.Error("temp file left behind")
		}
	})

	t.Run("missing directory is a hard error", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		s, err := New(filepath.Join("nowhere", "test"), WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory()))
		if err != nil {
			t.Fatal(err)
		}
		_, err = s.Insert(record.FromPairs("name", "Ann"))
		if !errors.Is(err, types.ErrMissingStorageLocation) {
			t.Errorf("expected ErrMissingStorageLocation, got %v", err)
		}

		_ = mockFS.MkdirAll("nowhere", 0o755)
		if _, err := s.Insert(record.FromPairs("name", "Ann")); err != nil {
			t.Errorf("insert should work once the directory exists: %v", err)
		}
	})

	t.Run("file lock is held only while writing", func(t *testing.T) {
		s, _, mockLocks := newMockStore(t)
		mustInsert(t, s, "_id", "x")
		_, _ = s.All()

		lock := mockLocks.GetLock("test.json.lock")
		if lock == nil {
			t.Fatal("expected a lock for test.json.lock")
		}
		if lock.LockAttempts != 1 || lock.UnlockAttempts != 1 {
			t.Errorf("expected one lock/unlock, got %d/%d", lock.LockAttempts, lock.UnlockAttempts)
		}
		if lock.IsLocked() {
			t.Error("lock should be released")
		}
	})

	t.Run("lock failure yields empty results", func(t *testing.T) {
		mockLocks := NewMockFileLockFactory()
		mockLocks.DefaultLockError = errors.New("no locks here")
		s, err := New("test", WithFileSystem(NewMockFileSystem()), WithFileLockFactory(mockLocks))
		if err != nil {
			t.Fatal(err)
		}
		if rec, err := s.Insert(record.New()); rec != nil || err != nil {
			t.Errorf("expected nil, nil; got %v, %v", rec, err)
		}
	})
}

func TestLockPolicy(t *testing.T) {
	quick := LockPolicy{Timeout: time.Second, Attempts: 2, Delay: time.Millisecond}

	t.Run("busy collection gives up after the allowed attempts", func(t *testing.T) {
		s, mockFS, mockLocks := newMockStore(t, WithLockPolicy(quick))
		lock := mockLocks.New("test.json.lock").(*MockFileLock)
		lock.Hold()

		if rec, err := s.Insert(record.New()); rec != nil || err != nil {
			t.Errorf("expected nil, nil; got %v, %v", rec, err)
		}
		if lock.LockAttempts != 2 {
			t.Errorf("expected 2 lock attempts, got %d", lock.LockAttempts)
		}
		if mockFS.Writes != 0 {
			t.Errorf("expected no writes, got %d", mockFS.Writes)
		}

		_ = lock.Unlock()
		mustInsert(t, s, "_id", "x")
	})

	t.Run("acquire reports retries and busy errors", func(t *testing.T) {
		lock := &MockFileLock{}
		lock.Hold()
		var retries []int
		err := quick.acquire(context.Background(), lock, func(attempt int) { retries = append(retries, attempt) })
		if !errors.Is(err, errCollectionBusy) {
			t.Errorf("expected errCollectionBusy, got %v", err)
		}
		if diff := cmp.Diff([]int{1}, retries); diff != "" {
			t.Errorf("retries mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		lock := &MockFileLock{}
		lock.Hold()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := LockPolicy{Attempts: 5, Delay: time.Hour}
		if err := slow.acquire(ctx, lock, nil); !errors.Is(err, errCollectionBusy) {
			t.Errorf("expected errCollectionBusy, got %v", err)
		}
		if lock.LockAttempts != 1 {
			t.Errorf("expected a single attempt, got %d", lock.LockAttempts)
		}
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		lock := &MockFileLock{}
		if err := (LockPolicy{}).acquire(context.Background(), lock, nil); err != nil {
			t.Fatalf("expected the lock, got %v", err)
		}
		if !lock.IsLocked() {
			t.Error("lock should be held")
		}
	})
}

func TestInsertGeneratesIdentifiers(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		rec := mustInsert(t, s, "name", "Ann")
		id := s.LastInsertID()
		if len(id) != 13 {
			t.Errorf("expected a 13 character id, got %q", id)
		}
		if diff := cmp.Diff([]string{"_id", "name"}, rec.Keys()); diff != "" {
			t.Errorf("identifier should come first (-want +got):\n%s", diff)
		}
	})

	t.Run("prefix and entropy", func(t *testing.T) {
		s, _, _ := newMockStore(t, WithOptions(Options{IDPrefix: "user_", MoreEntropy: true}))
		mustInsert(t, s, "name", "Ann")
		id := s.LastInsertID()
		if !strings.HasPrefix(id, "user_") || len(id) != 5+23 {
			t.Errorf("unexpected id %q", id)
		}
	})

	t.Run("caller supplied", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		mustInsert(t, s, "_id", 7, "name", "Ann")
		if s.LastInsertID() != "7" {
			t.Errorf("expected key 7, got %q", s.LastInsertID())
		}
		rec, err := s.Find("7")
		if err != nil || rec == nil {
			t.Fatalf("find failed: %v", err)
		}
		if v, _ := rec.Get("_id"); v != int64(7) {
			t.Errorf("identifier value should be kept as stored, got %#v", v)
		}
	})

	t.Run("nil fields", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		rec, err := s.Insert(nil)
		if err != nil || rec == nil || rec.Len() != 1 {
			t.Errorf("expected a record with only an id, got %v, %v", rec, err)
		}
	})
}

func TestCrossStoreQueries(t *testing.T) {
	a, _, _ := newMockStore(t)
	b, _, _ := newMockStore(t)
	mustInsert(t, a, "_id", "x")

	q := a.Query()
	if _, err := b.ExecuteGet(q); !errors.Is(err, types.ErrCrossStoreQuery) {
		t.Errorf("get: expected ErrCrossStoreQuery, got %v", err)
	}
	if _, err := b.ExecuteUpdate(q, record.New()); !errors.Is(err, types.ErrCrossStoreQuery) {
		t.Errorf("update: expected ErrCrossStoreQuery, got %v", err)
	}
	if _, err := b.ExecuteDelete(q); !errors.Is(err, types.ErrCrossStoreQuery) {
		t.Errorf("delete: expected ErrCrossStoreQuery, got %v", err)
	}
	if _, err := b.ExecuteSave(q); !errors.Is(err, types.ErrCrossStoreQuery) {
		t.Errorf("save: expected ErrCrossStoreQuery, got %v", err)
	}
}

func TestCompositionErrorsNeverTouchTheFile(t *testing.T) {
	s, mockFS, _ := newMockStore(t)
	mustInsert(t, s, "_id", "x")
	writes := mockFS.Writes

	if _, err := s.Query().Where("score", "~", 1).Delete(); !errors.Is(err, types.ErrInvalidFilterSpec) {
		t.Errorf("expected ErrInvalidFilterSpec, got %v", err)
	}
	if _, err := s.Query().SortBy("score", "up").Update(record.FromPairs("a", 1)); !errors.Is(err, types.ErrInvalidSortDirection) {
		t.Errorf("expected ErrInvalidSortDirection, got %v", err)
	}
	if mockFS.Writes != writes {
		t.Errorf("expected no writes, got %d", mockFS.Writes-writes)
	}
}

func TestHooks(t *testing.T) {
	t.Run("insert events", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		var seen []types.Event
		for _, ev := range types.Events {
			ev := ev
			if err := s.On(ev, func(e *Event) { seen = append(seen, e.Name) }); err != nil {
				t.Fatal(err)
			}
		}
		_ = s.On(types.EventInserting, func(e *Event) { e.Record.Set("stamp", "yes") })

		var counted int
		_ = s.On(types.EventInserted, func(e *Event) {
			counted, _ = e.Store.Count()
		})

		rec := mustInsert(t, s, "_id", "x")
		if v, _ := rec.Get("stamp"); v != "yes" {
			t.Errorf("inserting hook should be able to change the record, got %v", rec)
		}
		if counted != 1 {
			t.Errorf("hooks should be able to query the store, counted %d", counted)
		}
		want := []types.Event{types.EventInserting, types.EventInserted, types.EventChanged}
		if diff := cmp.Diff(want, seen); diff != "" {
			t.Errorf("event order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("update and delete events", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		mustInsert(t, s, "_id", "x", "score", 1)
		mustInsert(t, s, "_id", "y", "score", 2)

		_ = s.On(types.EventUpdating, func(e *Event) { e.Fields.Set("touched", true) })
		var affected []int
		_ = s.On(types.EventUpdated, func(e *Event) { affected = append(affected, e.Affected) })
		_ = s.On(types.EventDeleted, func(e *Event) { affected = append(affected, e.Affected) })
		var changed []int
		_ = s.On(types.EventChanged, func(e *Event) { changed = append(changed, e.Documents.Len()) })

		if _, err := s.Update(record.FromPairs("score", 5)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Where("_id", "=", "x").Delete(); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Where("_id", "=", "nope").Delete(); err != nil {
			t.Fatal(err)
		}

		rec, _ := s.Find("y")
		if v, _ := rec.Get("touched"); v != true {
			t.Errorf("updating hook should be able to change the fields, got %v", rec)
		}
		if diff := cmp.Diff([]int{2, 1}, affected); diff != "" {
			t.Errorf("affected mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int{2, 1}, changed); diff != "" {
			t.Errorf("changed mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		if err := s.On(types.Event("saving"), func(*Event) {}); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestResolverRunsBeforeEveryPersist(t *testing.T) {
	calls := 0
	s, _, _ := newMockStore(t, WithResolver(func(key string, rec *record.Map) *record.Map {
		calls++
		rec.Set("key", key)
		return rec
	}))
	mustInsert(t, s, "_id", "x")
	mustInsert(t, s, "_id", "y")

	if calls != 3 {
		t.Errorf("expected 3 resolver calls, got %d", calls)
	}
	rec, _ := s.Find("x")
	if v, _ := rec.Get("key"); v != "x" {
		t.Errorf("resolver output not persisted: %v", rec)
	}
}

func TestExtensions(t *testing.T) {
	RegisterExtension("test.count", func(s *Store, args ...any) (any, error) {
		return s.Count()
	})
	s, _, _ := newMockStore(t)
	mustInsert(t, s, "_id", "x")

	got, err := s.Call("test.count")
	if err != nil || got != 1 {
		t.Errorf("expected 1, got %v, %v", got, err)
	}

	s.Extend("test.count", func(*Store, ...any) (any, error) { return "shadowed", nil })
	if got, _ := s.Call("test.count"); got != "shadowed" {
		t.Errorf("instance extension should win, got %v", got)
	}

	if _, err := s.Call("test.missing"); !errors.Is(err, types.ErrUndefinedExtension) {
		t.Errorf("expected ErrUndefinedExtension, got %v", err)
	}

	found := false
	for _, name := range Extensions() {
		found = found || name == "test.count"
	}
	if !found {
		t.Error("registered extension not listed")
	}
}

func TestTransactionsWithMockFS(t *testing.T) {
	t.Run("writes stay in memory until commit", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		mustInsert(t, s, "_id", "x")
		writes := mockFS.Writes

		s.Begin()
		mustInsert(t, s, "_id", "y")
		if mockFS.Writes != writes {
			t.Error("transaction must not write to disk")
		}
		if diff := cmp.Diff([]string{"x", "y"}, storedIDs(t, s)); diff != "" {
			t.Errorf("buffered insert not visible (-want +got):\n%s", diff)
		}

		ok, err := s.Commit()
		if err != nil || !ok {
			t.Fatalf("commit failed: %v %v", ok, err)
		}
		if mockFS.Writes != writes+1 {
			t.Errorf("expected one write on commit, got %d", mockFS.Writes-writes)
		}
		if s.InTransaction() {
			t.Error("transaction should be over")
		}
	})

	t.Run("commit reports write failures", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		s.Begin()
		mustInsert(t, s, "_id", "x")
		mockFS.WriteFileError = errors.New("disk full")
		ok, err := s.Commit()
		if ok || err != nil {
			t.Errorf("expected false, nil; got %v, %v", ok, err)
		}
	})

	t.Run("commit into a missing directory keeps the buffer", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		s, err := New(filepath.Join("later", "test"), WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory()))
		if err != nil {
			t.Fatal(err)
		}
		s.Begin()
		mustInsert(t, s, "_id", "x")

		ok, err := s.Commit()
		if ok || !errors.Is(err, types.ErrMissingStorageLocation) {
			t.Fatalf("expected false, ErrMissingStorageLocation; got %v, %v", ok, err)
		}
		if !s.InTransaction() {
			t.Fatal("transaction should still be open")
		}
		if diff := cmp.Diff([]string{"x"}, storedIDs(t, s)); diff != "" {
			t.Errorf("buffer lost (-want +got):\n%s", diff)
		}

		_ = mockFS.MkdirAll("later", 0o755)
		if ok, err := s.Commit(); !ok || err != nil {
			t.Fatalf("second commit failed: %v, %v", ok, err)
		}
		if !mockFS.FileExists(filepath.Join("later", "test.json")) {
			t.Error("buffer was not written on the second commit")
		}
	})

	t.Run("transaction closes after a failed commit", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		s, err := New(filepath.Join("later", "test"), WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory()))
		if err != nil {
			t.Fatal(err)
		}
		_, err = s.Transaction(func(s *Store) error {
			mustInsert(t, s, "_id", "x")
			return nil
		})
		if !errors.Is(err, types.ErrMissingStorageLocation) {
			t.Errorf("expected ErrMissingStorageLocation, got %v", err)
		}
		if s.InTransaction() {
			t.Error("Transaction must not leave a transaction open")
		}
	})

	t.Run("empty commit does not write", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		s.Begin()
		if ok, err := s.Commit(); !ok || err != nil {
			t.Errorf("expected true, nil; got %v, %v", ok, err)
		}
		if mockFS.Writes != 0 {
			t.Errorf("expected no writes, got %d", mockFS.Writes)
		}
	})

	t.Run("failed function rolls back", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		boom := errors.New("boom")
		ok, err := s.Transaction(func(s *Store) error {
			mustInsert(t, s, "_id", "x")
			return boom
		})
		if ok || !errors.Is(err, boom) {
			t.Errorf("expected false, boom; got %v, %v", ok, err)
		}
		if mockFS.Writes != 0 || len(storedIDs(t, s)) != 0 {
			t.Error("rolled back transaction left data behind")
		}
	})

	t.Run("panic rolls back and propagates", func(t *testing.T) {
		s, _, _ := newMockStore(t)
		func() {
			defer func() {
				if r := recover(); r != "boom" {
					t.Errorf("expected panic to propagate, got %v", r)
				}
			}()
			_, _ = s.Transaction(func(s *Store) error {
				mustInsert(t, s, "_id", "x")
				panic("boom")
			})
		}()
		if s.InTransaction() {
			t.Error("transaction should have been rolled back")
		}
		if got := storedIDs(t, s); len(got) != 0 {
			t.Errorf("expected no records, got %v", got)
		}
	})

	t.Run("nested transactions are flattened", func(t *testing.T) {
		s, mockFS, _ := newMockStore(t)
		ok, err := s.Transaction(func(s *Store) error {
			_, innerErr := s.Transaction(func(s *Store) error {
				if !s.InTransaction() {
					t.Error("inner call should run in the outer transaction")
				}
				mustInsert(t, s, "_id", "x")
				return errors.New("ignored by outer")
			})
			if innerErr == nil {
				t.Error("inner error should be returned")
			}
			mustInsert(t, s, "_id", "y")
			return nil
		})
		if !ok || err != nil {
			t.Fatalf("expected commit, got %v, %v", ok, err)
		}
		if mockFS.Writes != 1 {
			t.Errorf("expected a single write, got %d", mockFS.Writes)
		}
		if diff := cmp.Diff([]string{"x", "y"}, storedIDs(t, s)); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestOpenReturnsOneStorePerFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "users")
	first, err := Open(base)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Open(base + ".json")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the same instance for the same file")
	}

	other, _ := Open(base, WithOptions(Options{Extension: ".yaml"}))
	if other == first {
		t.Error("different files must not share a store")
	}
	_ = other.Close()

	_ = first.Close()
	third, _ := Open(base)
	if third == first {
		t.Error("closed stores should not be handed out again")
	}
	_ = third.Close()
}

func TestAlternativeFormats(t *testing.T) {
	for _, opts := range []Options{
		{Extension: ".yaml"},
		{Extension: ".msgpack"},
		{Extension: ".json", Compress: true},
		{Extension: ".db", Format: "yaml", Compress: true},
	} {
		t.Run(opts.Extension+"/"+opts.Format, func(t *testing.T) {
			mockFS := NewMockFileSystem()
			all := []Option{WithOptions(opts), WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory())}
			s, err := New("test", all...)
			if err != nil {
				t.Fatal(err)
			}
			mustInsert(t, s, "_id", "b", "n", 1.5, "nested", record.FromPairs("k", []any{1, "two"}))
			mustInsert(t, s, "_id", "a", "n", 2)

			reopened, err := New("test", all...)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"b", "a"}, storedIDs(t, reopened)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
			rec, _ := reopened.Find("b")
			if v := record.Access(rec).Get("nested.k.1"); v != "two" {
				t.Errorf("nested value lost, got %v", rec)
			}
		})
	}
}
