package store

import (
	"fmt"
	"time"

	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
)

// Event is passed to hooks. Which fields are set depends on Name:
//
//   - inserting, inserted: Record (mutable while inserting)
//   - updating: Query and Fields (mutable)
//   - updated: Query, Fields and Affected
//   - deleting: Query
//   - deleted: Query and Affected
//   - changed: Documents, a copy of the whole collection
type Event struct {
	Name      types.Event
	Time      time.Time
	Store     *Store
	Record    *record.Map
	Fields    *record.Map
	Query     *query.Builder
	Affected  int
	Documents *record.Map
}

// Hook observes a lifecycle event.
type Hook func(e *Event)

// On registers fn for event. Hooks run in registration order, outside of
// the store's internal locks, so they may query the store.
func (s *Store) On(event types.Event, fn Hook) error {
	if !event.Valid() {
		return fmt.Errorf("unknown event %q", event)
	}
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks[event] = append(s.hooks[event], fn)
	return nil
}

func (s *Store) fire(e *Event) {
	s.hooksMu.RLock()
	hooks := append([]Hook(nil), s.hooks[e.Name]...)
	s.hooksMu.RUnlock()
	if len(hooks) == 0 {
		return
	}
	e.Store = s
	e.Time = s.timeFunc()
	for _, h := range hooks {
		h(e)
	}
}

// fireChanged sends a copy of docs to the changed hooks.
func (s *Store) fireChanged(docs *record.Map) {
	s.hooksMu.RLock()
	n := len(s.hooks[types.EventChanged])
	s.hooksMu.RUnlock()
	if n == 0 {
		return
	}
	s.fire(&Event{Name: types.EventChanged, Documents: docs.Clone()})
}
