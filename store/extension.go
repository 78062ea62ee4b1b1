package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arthur-debert/pipestore/types"
)

// ExtensionFunc is a named operation callable on any store through Call.
type ExtensionFunc func(s *Store, args ...any) (any, error)

var (
	extensionsMu sync.RWMutex
	extensions   = map[string]ExtensionFunc{}
)

// RegisterExtension makes fn callable by name on every store. Register
// extensions during setup; the table is not meant to change while
// queries run.
func RegisterExtension(name string, fn ExtensionFunc) {
	extensionsMu.Lock()
	defer extensionsMu.Unlock()
	extensions[name] = fn
}

// Extensions lists the process wide extension names.
func Extensions() []string {
	extensionsMu.RLock()
	defer extensionsMu.RUnlock()
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extend registers fn on this store only. It shadows a process wide
// extension of the same name.
func (s *Store) Extend(name string, fn ExtensionFunc) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.extensions[name] = fn
}

// Call invokes the extension registered under name.
func (s *Store) Call(name string, args ...any) (any, error) {
	s.hooksMu.RLock()
	fn, ok := s.extensions[name]
	s.hooksMu.RUnlock()
	if !ok {
		extensionsMu.RLock()
		fn, ok = extensions[name]
		extensionsMu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUndefinedExtension, name)
	}
	return fn(s, args...)
}
