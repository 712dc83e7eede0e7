package headlines

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a lookup, update or delete target does not exist.
var ErrNotFound = errors.New("not found")

// FetchError reports a network or remote failure while retrieving the source page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it is nil or already a not-found result.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// RecordError is a per-record failure during ingestion. It is counted, never thrown.
type RecordError struct {
	Link string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %q: %v", e.Link, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ValidationError rejects a malformed client payload before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}
