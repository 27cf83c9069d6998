// Package ocr submits single-page PDFs to the OCR.space parse API.
package ocr

import (
	"errors"
	"fmt"
)

// Kind classifies an OCRServiceError.
type Kind string

const (
	// KindTransport covers dial failures, timeouts and non-2xx responses.
	KindTransport Kind = "transport"
	// KindMalformed means the response was not a recognisable envelope.
	KindMalformed Kind = "malformed"
	// KindEmptyResult means the envelope carried no parsed text.
	KindEmptyResult Kind = "empty_result"
)

// OCRServiceError is returned for every failed recognition. All kinds are fatal.
type OCRServiceError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

func (e *OCRServiceError) Error() string {
	msg := fmt.Sprintf("ocr %s error: %s", e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *OCRServiceError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an OCRServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *OCRServiceError
	return errors.As(err, &e) && e.Kind == kind
}
