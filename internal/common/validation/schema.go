package validation

import (
	"fmt"
	"strings"

	apperrors "repair-recommender/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// CriteriaSchema describes a recommendation request as sent by the HTTP API
// and as carried in process variables.
const CriteriaSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["problemType", "userLocation"],
	"properties": {
		"problemType": {"type": "string", "minLength": 1, "maxLength": 200},
		"deviceBrand": {"type": "string", "maxLength": 100},
		"userLocation": {
			"type": "object",
			"required": ["latitude", "longitude"],
			"properties": {
				"latitude":  {"type": "number", "minimum": -90, "maximum": 90},
				"longitude": {"type": "number", "minimum": -180, "maximum": 180}
			}
		},
		"userPreferences": {
			"type": "object",
			"properties": {
				"maxDistance":      {"type": "number", "exclusiveMinimum": 0, "maximum": 500},
				"prioritizePrice":  {"type": "boolean"},
				"prioritizeRating": {"type": "boolean"},
				"prioritizeSpeed":  {"type": "boolean"},
				"urgency":          {"type": "string", "enum": ["low", "medium", "high"]}
			}
		},
		"budget": {
			"type": ["object", "null"],
			"required": ["min", "max"],
			"properties": {
				"min": {"type": "number", "minimum": 0},
				"max": {"type": "number", "minimum": 0}
			}
		}
	}
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator is a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustCriteriaValidator compiles CriteriaSchema; it panics only if the
// embedded schema is broken.
func MustCriteriaValidator() *Validator {
	v, err := NewValidator(CriteriaSchema)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a decoded document (maps, slices, structs).
func (v *Validator) Validate(doc interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(doc))
}

// ValidateJSON checks a raw JSON document.
func (v *Validator) ValidateJSON(raw []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(raw))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "MALFORMED_DOCUMENT",
		}}}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateCriteria runs the schema plus the checks a schema cannot express.
func (v *Validator) ValidateCriteria(doc map[string]interface{}) *ValidationResult {
	res := v.Validate(doc)
	if !res.Valid {
		return res
	}

	if budget, ok := doc["budget"].(map[string]interface{}); ok {
		lo, loOK := toFloat(budget["min"])
		hi, hiOK := toFloat(budget["max"])
		if loOK && hiOK && lo > hi {
			res.Errors = append(res.Errors, ValidationError{
				Field:   "budget",
				Message: "budget.min must not exceed budget.max",
				Code:    "BUDGET_RANGE",
			})
		}
	}
	if problem, ok := doc["problemType"].(string); ok && strings.TrimSpace(problem) == "" {
		res.Errors = append(res.Errors, ValidationError{
			Field:   "problemType",
			Message: "problemType must not be blank",
			Code:    "BLANK",
		})
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Err converts a failed result into an INVALID_CRITERIA error.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return apperrors.NewInvalidCriteriaError(strings.Join(vr.GetErrorMessages(), "; "))
}
