// Package validation checks HTTP bodies and job variables against the JSON
// schemas embedded in schemas/.
package validation

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names, matching the files in schemas/.
const (
	SchemaParseRequest    = "parse_request"
	SchemaConverseRequest = "converse_request"
	SchemaScriptRequest   = "script_request"
	SchemaParseJob        = "parse_job"
	SchemaDialogJob       = "dialog_job"
	SchemaConverseJob     = "converse_job"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages flattens the errors to "field: message" strings.
func (vr *ValidationResult) GetErrorMessages() []string {
	out := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}

// HasErrors reports whether any error concerns field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, e := range vr.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// IsMissing reports whether a required field is absent.
func (vr *ValidationResult) IsMissing(field string) bool {
	for _, e := range vr.Errors {
		if e.Field == field && e.Code == "REQUIRED" {
			return true
		}
	}
	return false
}

func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			compileErr = err
			return
		}
		compiled = make(map[string]*gojsonschema.Schema, len(entries))
		for _, entry := range entries {
			data, err := schemaFS.ReadFile("schemas/" + entry.Name())
			if err != nil {
				compileErr = err
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", entry.Name(), err)
				return
			}
			compiled[strings.TrimSuffix(entry.Name(), ".json")] = schema
		}
	})
	return compiled, compileErr
}

// ValidateBytes validates a raw JSON document. A malformed document is
// reported as a validation error on the root.
func ValidateBytes(schemaName string, body []byte) (*ValidationResult, error) {
	return validate(schemaName, gojsonschema.NewBytesLoader(body))
}

// ValidateDocument validates an already decoded value such as job variables.
func ValidateDocument(schemaName string, doc interface{}) (*ValidationResult, error) {
	return validate(schemaName, gojsonschema.NewGoLoader(doc))
}

func validate(schemaName string, loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	schema, ok := schemas[schemaName]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schemaName)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "MALFORMED_DOCUMENT"}},
		}, nil
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

func fieldOf(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	return desc.Field()
}
