// Package warehouse loads staged export artifacts into PostgreSQL and keeps
// the run ledger.
package warehouse

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when another pipeline run holds the run lock.
var ErrRunInProgress = errors.New("another pipeline run is in progress")

// ErrNoPool is returned by operations that need a live pgx pool.
var ErrNoPool = errors.New("warehouse: operation requires a pgxpool connection")

// LoadError represents a failed bulk load
type LoadError struct {
	Table   string
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load %s into %s: %s: %v", e.File, e.Table, e.Message, e.Cause)
	}
	return fmt.Sprintf("load %s into %s: %s", e.File, e.Table, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
