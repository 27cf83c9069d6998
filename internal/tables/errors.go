// Package tables splits OCR text into named table segments and normalizes
// each segment into comma-joined rows.
package tables

import "fmt"

// SegmentNotFoundError reports that a table marker does not occur in the OCR text.
// It is a soft condition: the table degrades to zero rows.
type SegmentNotFoundError struct {
	Table  string
	Marker string
}

func (e *SegmentNotFoundError) Error() string {
	return fmt.Sprintf("segment not found: marker %q for %s is absent from OCR text", e.Marker, e.Table)
}

// MarkerError represents a marker that cannot be compiled into a pattern
type MarkerError struct {
	Marker string
	Cause  error
}

func (e *MarkerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid marker %q: %v", e.Marker, e.Cause)
	}
	return fmt.Sprintf("invalid marker %q", e.Marker)
}

func (e *MarkerError) Unwrap() error {
	return e.Cause
}
