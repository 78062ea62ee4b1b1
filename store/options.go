package store

import (
	"log/slog"
	"time"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/storage"
	"github.com/arthur-debert/pipestore/types"
)

// Options is the user facing configuration of a collection.
type Options struct {
	// Extension is appended to the base path. Defaults to ".json".
	Extension string
	// Pretty writes human readable files when the format supports it.
	Pretty bool
	// IDPrefix is prepended to generated identifiers.
	IDPrefix string
	// MoreEntropy widens generated identifiers with a random suffix.
	MoreEntropy bool
	// Format forces a codec ("json", "yaml", "msgpack"). When empty the
	// format follows the extension.
	Format string
	// Compress stores the file zstd compressed under an extra ".zst"
	// suffix.
	Compress bool
}

// DefaultOptions returns pretty printed JSON files with plain identifiers.
func DefaultOptions() Options {
	return Options{
		Extension: types.DefaultExtension,
		Pretty:    true,
	}
}

// Resolver rewrites a record right before it is persisted. Returning nil
// keeps the record as it is.
type Resolver func(key string, rec *record.Map) *record.Map

// Option configures a Store
type Option func(*Store)

// WithOptions replaces the collection options. Start from DefaultOptions
// to keep the defaults for fields you don't set.
func WithOptions(opts Options) Option {
	return func(s *Store) {
		s.opts = opts
	}
}

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(s *Store) {
		s.lockFactory = factory
	}
}

// WithLockPolicy sets how long writes wait for a collection locked by
// another process.
func WithLockPolicy(p LockPolicy) Option {
	return func(s *Store) {
		s.lockPolicy = p
	}
}

// WithTimeFunc sets the clock used for event timestamps and identifiers
func WithTimeFunc(fn func() time.Time) Option {
	return func(s *Store) {
		s.timeFunc = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithResolver installs a function applied to every record on persist
func WithResolver(fn Resolver) Option {
	return func(s *Store) {
		s.resolver = fn
	}
}

// WithCodec overrides the codec picked from Options.Format and the
// extension.
func WithCodec(codec storage.Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}
