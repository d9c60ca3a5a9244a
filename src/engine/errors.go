package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by read/update/delete against a missing id.
	ErrNotFound = errors.New("document not found")

	// ErrCollectionNotFound is returned when an operation names a
	// collection the engine has never seen.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrNoSuitableIndex is returned by range queries when the column
	// has no ordered index. Range scans without an index are the
	// caller's responsibility, deliberately not silently degraded to a
	// full scan.
	ErrNoSuitableIndex = errors.New("no ordered index for column")

	// ErrInvalidDocument is returned when a document value is not an
	// object at the top level.
	ErrInvalidDocument = errors.New("document value must be an object")

	// ErrIndexConstraint is the sentinel wrapped by
	// IndexConstraintError; match with errors.Is.
	ErrIndexConstraint = errors.New("index constraint violation")

	// ErrIndexExists is returned when an index is registered twice for
	// the same column.
	ErrIndexExists = errors.New("index already exists for column")
)

// IndexConstraintError reports a uniqueness rule broken during index
// maintenance. The storage engine turns this into a full rollback of the
// triggering mutation.
type IndexConstraintError struct {
	Collection string
	Column     string
	Key        string
	DocumentID string
}

func (e *IndexConstraintError) Error() string {
	return fmt.Sprintf("unique index on %s.%s rejects key %s for document %s",
		e.Collection, e.Column, e.Key, e.DocumentID)
}

func (e *IndexConstraintError) Unwrap() error {
	return ErrIndexConstraint
}
