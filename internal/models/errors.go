package models

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced across component boundaries. Callers check these
// with errors.Is.
var (
	// ErrNotFound means the requested record identity does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEmbeddingUnavailable means the embedding collaborator could not be
	// reached. The query engine recovers by falling back to structured
	// filters; the write path defers indexing and marks the record pending.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrConflict means a concurrent-update conflict persisted past the
	// bounded internal retries.
	ErrConflict = errors.New("concurrent update conflict")
)

// ValidationError reports malformed input: an enum violation, empty required
// text, or an out-of-range parameter. It names the offending field and is
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// ReferenceError reports a relationship edge pointing at a knowledge record
// that does not exist. The edge is not created.
type ReferenceError struct {
	NodeID int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("edge references unknown knowledge record %d", e.NodeID)
}

// IndexError reports a similarity index failure such as a vector dimension
// mismatch. Index failures are isolated from the record store: the record
// write still succeeds and the index entry is repaired on the next rebuild.
type IndexError struct {
	RefID  string
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("similarity index error for ref %q: %s", e.RefID, e.Reason)
}
