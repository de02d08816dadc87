package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// askRequestSchema describes the POST /api/ask payload.
var askRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"question": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 500,
		},
		"sessionId": map[string]interface{}{
			"type":      "string",
			"maxLength": 128,
		},
	},
	"required":             []interface{}{"question"},
	"additionalProperties": false,
}

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateAskRequest checks a decoded request body against the ask schema.
func ValidateAskRequest(body map[string]interface{}) (*ValidationResult, error) {
	return validate(askRequestSchema, body)
}

func validate(schemaMap, data map[string]interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return out, nil
}

// ErrorSummary joins validation errors into a single message.
func (vr *ValidationResult) ErrorSummary() string {
	return strings.Join(vr.Errors, "; ")
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}
