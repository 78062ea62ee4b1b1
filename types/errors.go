package types

import "errors"

// Error kinds surfaced by pipestore. They are always wrapped with context,
// so compare with errors.Is.
var (
	// ErrInvalidStoredFormat is returned when a collection file cannot be
	// decoded into a document map. The file is never repaired.
	ErrInvalidStoredFormat = errors.New("invalid stored format")

	// ErrMissingStorageLocation is returned when the directory of a
	// collection file does not exist at write time.
	ErrMissingStorageLocation = errors.New("storage location does not exist")

	// ErrCrossStoreQuery is returned when a query built for one store is
	// executed by another.
	ErrCrossStoreQuery = errors.New("query belongs to a different store")

	// ErrInvalidFilterSpec covers unsupported comparison operators,
	// combinators other than AND/OR and malformed between bounds.
	ErrInvalidFilterSpec = errors.New("invalid filter")

	// ErrInvalidSortDirection is returned for directions other than asc/desc.
	ErrInvalidSortDirection = errors.New("invalid sort direction")

	// ErrInvalidRelationTarget is returned when a join target is neither a
	// store nor a query builder.
	ErrInvalidRelationTarget = errors.New("invalid relation target")

	// ErrUndefinedExtension is returned when calling a macro or extension
	// that was never registered.
	ErrUndefinedExtension = errors.New("undefined extension")
)
