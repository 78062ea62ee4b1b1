// Package types holds the vocabulary shared by every pipestore package:
// reserved field names, filter combinators, sort directions, lifecycle
// event names and the error kinds surfaced to callers.
package types

// IDField is the reserved field every persisted record carries. Its value
// is the record identifier and mirrors the key the record is stored under.
const IDField = "_id"

// DefaultExtension is appended to a collection base path when no other
// extension is configured.
const DefaultExtension = ".json"

// Event names a point in the store lifecycle that hooks can subscribe to.
type Event string

const (
	// EventInserting fires before a new record is stored. The pending
	// record may be modified by the hook.
	EventInserting Event = "inserting"
	// EventInserted fires after a new record was persisted.
	EventInserted Event = "inserted"
	// EventUpdating fires before the update pipeline runs. The new
	// fields may be modified by the hook.
	EventUpdating Event = "updating"
	// EventUpdated fires after updated records were persisted.
	EventUpdated Event = "updated"
	// EventDeleting fires before the delete pipeline runs.
	EventDeleting Event = "deleting"
	// EventDeleted fires after records were removed and persisted.
	EventDeleted Event = "deleted"
	// EventChanged fires after any successful mutation with the whole
	// document map.
	EventChanged Event = "changed"
)

// Events lists every lifecycle event in firing order.
var Events = []Event{
	EventInserting, EventInserted,
	EventUpdating, EventUpdated,
	EventDeleting, EventDeleted,
	EventChanged,
}

// Valid reports whether e is one of the known lifecycle events.
func (e Event) Valid() bool {
	for _, known := range Events {
		if e == known {
			return true
		}
	}
	return false
}
