package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalschemas "github.com/jonathan/orsi-pipeline/internal/schemas"
	"github.com/jonathan/orsi-pipeline/schemas"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	names := schemas.Names()
	require.NotEmpty(t, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			content, err := schemas.Load(name)
			require.NoError(t, err)

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(content), &schemaObj), "schema file should be valid JSON")

			_, hasType := schemaObj["type"]
			_, hasSchema := schemaObj["$schema"]
			assert.True(t, hasType && hasSchema, "schema should declare $schema and type")
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := schemas.Load("nope.schema.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), schemas.OCREnvelopeFile, "error lists the embedded schemas")
}

func TestOCREnvelope_Examples(t *testing.T) {
	schema, err := schemas.Load(schemas.OCREnvelopeFile)
	require.NoError(t, err)
	validator, err := internalschemas.NewValidator(schemas.OCREnvelopeFile, schema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{
			name:      "successful parse",
			doc:       `{"ParsedResults":[{"ParsedText":"Table 3\r\nFoo   Bar","FileParseExitCode":1,"ErrorMessage":"","ErrorDetails":""}],"OCRExitCode":1,"IsErroredOnProcessing":false,"ProcessingTimeInMilliseconds":"343"}`,
			wantError: false,
		},
		{
			name:      "errored with message list",
			doc:       `{"OCRExitCode":99,"IsErroredOnProcessing":true,"ErrorMessage":["Invalid API key"],"ProcessingTimeInMilliseconds":"0"}`,
			wantError: false,
		},
		{
			name:      "errored with message string",
			doc:       `{"IsErroredOnProcessing":true,"ErrorMessage":"Timed out waiting for results"}`,
			wantError: false,
		},
		{
			name:      "minimal envelope",
			doc:       `{"ParsedResults":[{"ParsedText":"Table 3\nFoo   Bar"}]}`,
			wantError: false,
		},
		{
			name:      "not an object",
			doc:       `[{"ParsedText":"Table 3"}]`,
			wantError: true,
		},
		{
			name:      "result without parsed text",
			doc:       `{"ParsedResults":[{"FileParseExitCode":1}]}`,
			wantError: true,
		},
		{
			name:      "parsed text wrong type",
			doc:       `{"IsErroredOnProcessing":false,"ParsedResults":[{"ParsedText":42}]}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate([]byte(tt.doc))
			if tt.wantError {
				require.Error(t, err)
				var validationErr *internalschemas.ValidationError
				assert.ErrorAs(t, err, &validationErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
