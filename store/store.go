// Package store implements a document store backed by one file per
// collection.
//
// Each collection file holds a map from record identifier to record. Every
// terminal operation loads the whole map, runs the query pipeline over
// it, applies its change and writes the whole map back:
//
//	users, err := store.Open("data/users")
//	if err != nil {
//		return err
//	}
//	_, err = users.Insert(record.FromPairs("name", "Ann", "score", 80))
//	top, err := users.Query().Where("score", ">=", 80).SortBy("score", types.Desc).Get()
//
// Writes replace the file through a temporary file and a rename while an
// exclusive lock on "<file>.lock" is held. Readers never take the lock.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/pipestore/ids"
	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/storage"
	"github.com/arthur-debert/pipestore/types"
)

// Store is one collection.
type Store struct {
	basePath string
	path     string
	name     string
	opts     Options

	codec    storage.Codec
	ids      *ids.Generator
	resolver Resolver
	logger   *slog.Logger
	timeFunc func() time.Time

	fs          FileSystem
	lockFactory FileLockFactory
	lockPolicy  LockPolicy
	fileLock    FileLock
	lockManager *storage.LockManager

	hooksMu    sync.RWMutex
	hooks      map[types.Event][]Hook
	extensions map[string]ExtensionFunc

	// guarded by lockManager
	tx           *transaction
	lastInsertID string
}

// New creates a store for the collection at basePath plus the configured
// extension. Nothing is read until the first query. Use Open to share one
// instance per file within the process.
func New(basePath string, opts ...Option) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty collection path", types.ErrMissingStorageLocation)
	}
	s := &Store{
		basePath:    basePath,
		opts:        DefaultOptions(),
		lockPolicy:  DefaultLockPolicy(),
		timeFunc:    time.Now,
		lockManager: storage.NewLockManager(),
		hooks:       make(map[types.Event][]Hook),
		extensions:  make(map[string]ExtensionFunc),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.fs == nil {
		s.fs = OSFileSystem{}
	}
	if s.lockFactory == nil {
		s.lockFactory = FlockFactory{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.opts.Extension == "" {
		s.opts.Extension = types.DefaultExtension
	}
	if !strings.HasPrefix(s.opts.Extension, ".") {
		s.opts.Extension = "." + s.opts.Extension
	}

	s.path = basePath
	if !strings.HasSuffix(s.path, s.opts.Extension) {
		s.path += s.opts.Extension
	}
	s.name = strings.TrimSuffix(filepath.Base(s.path), s.opts.Extension)
	if s.opts.Compress {
		s.path += storage.CompressedSuffix
	}

	if s.codec == nil {
		format := s.opts.Format
		if format == "" {
			format = storage.FormatForPath(s.path)
		}
		codec, err := storage.NewCodec(format, s.opts.Pretty)
		if err != nil {
			return nil, err
		}
		if s.opts.Compress {
			codec = storage.Compressed{Inner: codec}
		}
		s.codec = codec
	}

	s.ids = ids.NewGenerator(s.opts.IDPrefix, s.opts.MoreEntropy, ids.WithClock(s.timeFunc))
	s.fileLock = s.lockFactory.New(s.path + ".lock")
	s.logger = s.logger.With("collection", s.name)
	return s, nil
}

// Path returns the collection file path.
func (s *Store) Path() string {
	return s.path
}

// Name returns the collection name, the base name without extension.
func (s *Store) Name() string {
	return s.name
}

// Options returns the options the store was created with.
func (s *Store) Options() Options {
	return s.opts
}

// Query starts a new pipeline against the store.
func (s *Store) Query() *query.Builder {
	return query.New(s)
}

// Close drops the store from the Open registry and removes the lock file.
// A pending transaction is discarded.
func (s *Store) Close() error {
	unregister(s)
	return s.lockManager.Execute(storage.WriteOperation, func() error {
		s.tx = nil
		_ = s.fs.Remove(s.path + ".lock")
		return nil
	})
}

// load returns a fresh copy of the document map. Callers hold the lock
// manager.
func (s *Store) load() (*record.Map, error) {
	if s.tx != nil && s.tx.buffer != nil {
		return s.tx.buffer.Clone(), nil
	}

	if _, err := s.fs.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return record.New(), nil
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	docs, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidStoredFormat, s.path, err)
	}
	s.logger.Debug("loaded collection", "path", s.path, "documents", docs.Len())
	return docs, nil
}

// persist resolves every record and writes docs. Inside a transaction the
// buffer is replaced instead and the write always succeeds. A false
// result with a nil error means the write itself failed; the failure is
// logged. Callers hold the write lock.
func (s *Store) persist(docs *record.Map) (bool, error) {
	if s.resolver != nil {
		for _, key := range docs.Keys() {
			v, _ := docs.Get(key)
			if resolved := s.resolver(key, v.(*record.Map)); resolved != nil {
				docs.Set(key, resolved)
			}
		}
	}
	if s.tx != nil {
		s.tx.buffer = docs
		return true, nil
	}
	return s.write(docs)
}

// write stores docs on disk.
func (s *Store) write(docs *record.Map) (bool, error) {
	dir := filepath.Dir(s.path)
	if info, err := s.fs.Stat(dir); err != nil || !info.IsDir() {
		return false, fmt.Errorf("%w: %s", types.ErrMissingStorageLocation, dir)
	}

	data, err := s.codec.Encode(docs)
	if err != nil {
		s.logger.Warn("failed to encode collection", "path", s.path, "error", err)
		return false, nil
	}

	onRetry := func(attempt int) {
		s.logger.Debug("collection locked, retrying", "path", s.path, "attempt", attempt)
	}
	if err := s.lockPolicy.acquire(context.Background(), s.fileLock, onRetry); err != nil {
		s.logger.Warn("failed to lock collection", "path", s.path, "error", err)
		return false, nil
	}
	defer func() { _ = s.fileLock.Unlock() }()

	if err := replaceFile(s.fs, s.path, data); err != nil {
		s.logger.Warn("failed to write collection", "path", s.path, "error", err)
		return false, nil
	}

	s.logger.Debug("persisted collection", "path", s.path, "documents", docs.Len(), "bytes", len(data))
	return true, nil
}
