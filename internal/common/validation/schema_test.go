package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBytes(t *testing.T) {
	tests := []struct {
		name          string
		schema        string
		body          string
		expectedValid bool
		expectedField string
	}{
		{name: "parse ok", schema: SchemaParseRequest, body: `{"text":"show me my dashboard","session_id":"abc"}`, expectedValid: true},
		{name: "parse empty text ok", schema: SchemaParseRequest, body: `{"text":""}`, expectedValid: true},
		{name: "parse missing text", schema: SchemaParseRequest, body: `{"session_id":"abc"}`, expectedField: "text"},
		{name: "parse wrong type", schema: SchemaParseRequest, body: `{"text":42}`, expectedField: "text"},
		{name: "converse ok", schema: SchemaConverseRequest, body: `{"transcript":"hello"}`, expectedValid: true},
		{name: "converse missing transcript", schema: SchemaConverseRequest, body: `{}`, expectedField: "transcript"},
		{name: "script with state", schema: SchemaScriptRequest, body: `{"transcript":"sales","current_state":"GREETING"}`, expectedValid: true},
		{name: "script bad state type", schema: SchemaScriptRequest, body: `{"transcript":"sales","current_state":7}`, expectedField: "current_state"},
		{name: "malformed json", schema: SchemaConverseRequest, body: `{"transcript":`, expectedField: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateBytes(tt.schema, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValid, result.Valid)
			if !tt.expectedValid {
				assert.True(t, result.HasErrors(tt.expectedField), "errors: %v", result.GetErrorMessages())
			}
		})
	}
}

func TestValidateDocument_JobVariables(t *testing.T) {
	result, err := ValidateDocument(SchemaDialogJob, map[string]interface{}{"transcript": "yes", "dialogState": "ELABORATION"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateDocument(SchemaConverseJob, map[string]interface{}{"sessionId": "s-1"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"transcript: transcript is required"}, result.GetErrorMessages())
}

func TestValidate_UnknownSchema(t *testing.T) {
	_, err := ValidateBytes("nope", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidationResult_IsMissing(t *testing.T) {
	result, err := ValidateBytes(SchemaParseJob, []byte(`{"sessionId":"s-1"}`))
	require.NoError(t, err)
	assert.True(t, result.IsMissing("transcript"))

	result, err = ValidateBytes(SchemaParseJob, []byte(`{"transcript":false}`))
	require.NoError(t, err)
	assert.True(t, result.HasErrors("transcript"))
	assert.False(t, result.IsMissing("transcript"))
}
