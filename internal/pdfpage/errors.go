// Package pdfpage extracts a single page from a PDF into its own document.
package pdfpage

import "fmt"

// PageRangeError reports a requested page outside [1, PageCount].
type PageRangeError struct {
	Page      int
	PageCount int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("page %d out of range: document has %d page(s)", e.Page, e.PageCount)
}

// PDFError represents a document that could not be read or written
type PDFError struct {
	File    string
	Message string
	Cause   error
}

func (e *PDFError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pdf error for %s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("pdf error for %s: %s", e.File, e.Message)
}

func (e *PDFError) Unwrap() error {
	return e.Cause
}
