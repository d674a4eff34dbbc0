package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidField is returned when a caller names a field the entity does not have.
	ErrInvalidField = errors.New("invalid field")

	// ErrIndexOutOfRange is returned when an item or lot index does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrReadOnlyField is returned when a caller tries to overwrite an assigned document number.
	ErrReadOnlyField = errors.New("field is read-only")

	ErrDocumentNotFound = errors.New("document not found")

	// ErrVersionConflict means another session saved the document after this snapshot was loaded.
	ErrVersionConflict = errors.New("document was modified by another session")

	ErrInvalidDocument = errors.New("invalid document")

	// ErrNumberingUnsupported is returned when the backend has no number series.
	ErrNumberingUnsupported = errors.New("document numbering is not supported by this repository")
)

// InvalidFieldError names the entity and the unrecognised field.
type InvalidFieldError struct {
	Entity string // "header", "item" or "lot"
	Field  string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %s has no field %q", ErrInvalidField, e.Entity, e.Field)
}

func (e *InvalidFieldError) Unwrap() error { return ErrInvalidField }

// IndexOutOfRangeError records which collection was indexed and its length at the time.
type IndexOutOfRangeError struct {
	Kind  string // "item" or "lot"
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %s index %d (have %d)", ErrIndexOutOfRange, e.Kind, e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrIndexOutOfRange }

// PersistenceError wraps a failed load or save. The in-memory edit is kept, so the
// user can retry.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s document: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the operation unchanged can succeed.
// A version conflict or a rejected document needs user action first.
func (e *PersistenceError) Retryable() bool {
	return !errors.Is(e.Err, ErrVersionConflict) &&
		!errors.Is(e.Err, ErrInvalidDocument) &&
		!errors.Is(e.Err, ErrDocumentNotFound) &&
		!errors.Is(e.Err, ErrNumberingUnsupported)
}
