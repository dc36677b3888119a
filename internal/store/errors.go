package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("store: record not found")

	// ErrQuotaExceeded is returned when the underlying medium is full.
	// Callers should offer the user an export-then-free-space path.
	ErrQuotaExceeded = errors.New("store: storage quota exceeded")
)

// CorruptRecordError marks a single record whose payload failed its
// integrity check on read. It carries the id so a bulk scan can skip
// or quarantine the record instead of aborting.
type CorruptRecordError struct {
	ID  string
	Err error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("store: record %s is corrupt: %v", e.ID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }
