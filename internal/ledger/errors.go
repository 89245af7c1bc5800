package ledger

import (
	"errors"
	"fmt"
)

// Common ledger loading errors
var (
	// ErrSourceUnavailable is returned when the ledger cannot be fetched from
	// its source. Callers keep whatever snapshot they already had.
	ErrSourceUnavailable = errors.New("ledger source unavailable")

	// ErrMissingColumn is returned when the header row lacks a required column.
	ErrMissingColumn = errors.New("required ledger column missing")

	// ErrEmptySheet is returned when the source holds no header row at all.
	ErrEmptySheet = errors.New("ledger sheet is empty")
)

// SourceError wraps a failure to fetch the ledger with the source it came from.
type SourceError struct {
	// Op is the operation that failed (e.g., "Fetch", "Load").
	Op string

	// Source describes where the ledger was read from.
	Source string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("ledger: %s failed (source: %s): %v", e.Op, e.Source, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports every SourceError as ErrSourceUnavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceError creates a SourceError, leaving nil errors nil.
func NewSourceError(op, source string, err error) error {
	if err == nil {
		return nil
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return err // Already wrapped
	}

	return &SourceError{Op: op, Source: source, Err: err}
}
