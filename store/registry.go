package store

import (
	"path/filepath"
	"sync"
)

var registry = struct {
	sync.Mutex
	stores map[string]*Store
}{stores: make(map[string]*Store)}

// Open returns the process wide store for a collection, creating it on
// first use. Stores are keyed by absolute file path; options passed to
// later calls for an already open collection are ignored.
func Open(basePath string, opts ...Option) (*Store, error) {
	s, err := New(basePath, opts...)
	if err != nil {
		return nil, err
	}
	key := registryKey(s.path)

	registry.Lock()
	defer registry.Unlock()
	if existing, ok := registry.stores[key]; ok {
		return existing, nil
	}
	registry.stores[key] = s
	s.logger.Debug("opened collection", "path", s.path)
	return s, nil
}

func registryKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func unregister(s *Store) {
	key := registryKey(s.path)
	registry.Lock()
	defer registry.Unlock()
	if registry.stores[key] == s {
		delete(registry.stores, key)
	}
}
