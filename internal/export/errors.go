// Package export writes parsed tables to dated CSV artifacts.
package export

import "fmt"

// ExportError represents a failure writing or reading an artifact
type ExportError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("export error for %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("export error for %s: %s", e.Path, e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}
