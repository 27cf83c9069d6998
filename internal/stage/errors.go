// Package stage holds compressed export artifacts awaiting a warehouse load.
package stage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Open when the staged object does not exist.
var ErrNotFound = errors.New("staged file not found")

// StageError represents a failure putting or reading a staged file
type StageError struct {
	Location string
	Name     string
	Message  string
	Cause    error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s: %s: %s: %v", e.Location, e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("stage %s: %s: %s", e.Location, e.Name, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
