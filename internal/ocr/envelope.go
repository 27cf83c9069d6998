package ocr

import (
	"encoding/json"
	"strings"
)

// Envelope is the parse/image response body.
type Envelope struct {
	ParsedResults                []ParsedResult  `json:"ParsedResults"`
	OCRExitCode                  int             `json:"OCRExitCode"`
	IsErroredOnProcessing        bool            `json:"IsErroredOnProcessing"`
	ErrorMessage                 json.RawMessage `json:"ErrorMessage,omitempty"`
	ErrorDetails                 string          `json:"ErrorDetails,omitempty"`
	ProcessingTimeInMilliseconds json.RawMessage `json:"ProcessingTimeInMilliseconds,omitempty"`
}

// ParsedResult is one entry of Envelope.ParsedResults.
type ParsedResult struct {
	ParsedText        string          `json:"ParsedText"`
	FileParseExitCode json.RawMessage `json:"FileParseExitCode,omitempty"`
	ErrorMessage      string          `json:"ErrorMessage,omitempty"`
	ErrorDetails      string          `json:"ErrorDetails,omitempty"`
}

// Messages returns ErrorMessage, which the service sends either as a string or
// as a list of strings.
func (e *Envelope) Messages() []string {
	if len(e.ErrorMessage) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(e.ErrorMessage, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(e.ErrorMessage, &list); err == nil {
		return list
	}
	return nil
}

// ProcessingTime returns the reported processing time as sent, without quotes.
func (e *Envelope) ProcessingTime() string {
	return strings.Trim(string(e.ProcessingTimeInMilliseconds), `"`)
}

// FirstText returns the first ParsedText that is not blank.
func (e *Envelope) FirstText() (string, bool) {
	for _, r := range e.ParsedResults {
		if strings.TrimSpace(r.ParsedText) != "" {
			return r.ParsedText, true
		}
	}
	return "", false
}
