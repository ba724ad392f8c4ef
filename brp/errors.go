/*
errors.go - Centralized error types for the BRP engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Structural errors abort a run; everything else is audit data, not an
  error (see audit.go).

ERROR CATEGORIES:
  1. Identity errors   - a RUT that cannot be canonicalized
  2. Structural errors - a source sheet that cannot be processed at all
  3. Run errors        - preconditions of the pipeline (empty roster)

USAGE:
  Callers can match with errors.Is / errors.As:

    var missing *MissingColumnError
    if errors.As(err, &missing) {
        // missing.Column, missing.SheetKind
    }
*/
package brp

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidIdentifier is wrapped by InvalidIdentifierError.
	ErrInvalidIdentifier = errors.New("invalid identifier format")

	// ErrMissingColumn is wrapped by MissingColumnError.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyRoster is returned when the roster source parses to zero rows.
	// The run aborts: distributing against an empty authority list would
	// present nothing as if it were a valid zero result.
	ErrEmptyRoster = errors.New("roster contains no rows")

	// ErrEmptySheet is returned when a mandatory source has no data rows.
	ErrEmptySheet = errors.New("sheet contains no rows")

	// ErrUnparseableSheet is returned when every monetary/hour column of a
	// sheet fails numeric coercion; the sheet is structurally wrong, not
	// merely dirty.
	ErrUnparseableSheet = errors.New("no usable numeric columns in sheet")

	// ErrRunNotFound is returned by history lookups for unknown months.
	ErrRunNotFound = errors.New("no stored run for month")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidIdentifierError reports a RUT that cannot be canonicalized.
type InvalidIdentifierError struct {
	Raw    string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Raw, e.Reason)
}

func (e *InvalidIdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// MissingColumnError reports a required column absent from a source sheet.
// Fatal: a run never continues without its required columns.
type MissingColumnError struct {
	Column    string
	SheetKind string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %s: missing required column %q", e.SheetKind, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsStructural reports whether the error is one of the fatal sheet-level
// conditions that abort a run (as opposed to row-level recoverables, which
// never surface as errors at all).
func IsStructural(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrEmptyRoster) ||
		errors.Is(err, ErrEmptySheet) ||
		errors.Is(err, ErrUnparseableSheet)
}
