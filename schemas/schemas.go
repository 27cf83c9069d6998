// Package schemas embeds the JSON Schemas used to validate external payloads.
package schemas

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed *.schema.json
var files embed.FS

// OCREnvelopeFile is the schema for the OCR service response envelope.
const OCREnvelopeFile = "ocr_envelope.schema.json"

// Load returns the contents of the named schema file.
func Load(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not embedded (have %s): %w", name, strings.Join(Names(), ", "), err)
	}
	return string(data), nil
}

// Names lists every embedded schema file.
func Names() []string {
	entries, _ := files.ReadDir(".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
