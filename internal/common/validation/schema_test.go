package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "repair-recommender/internal/common/errors"
)

func validCriteria() map[string]interface{} {
	return map[string]interface{}{
		"problemType": "écran cassé",
		"deviceBrand": "Apple",
		"userLocation": map[string]interface{}{
			"latitude":  48.8566,
			"longitude": 2.3522,
		},
		"userPreferences": map[string]interface{}{
			"maxDistance":     10.0,
			"prioritizePrice": true,
			"urgency":         "high",
		},
		"budget": map[string]interface{}{"min": 50.0, "max": 150.0},
	}
}

func codes(res *ValidationResult) []string {
	out := []string{}
	for _, e := range res.Errors {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateCriteria(t *testing.T) {
	v := MustCriteriaValidator()

	tests := []struct {
		name     string
		mutate   func(doc map[string]interface{})
		wantCode string
	}{
		{
			name:   "valid",
			mutate: func(map[string]interface{}) {},
		},
		{
			name:   "no preferences or budget",
			mutate: func(doc map[string]interface{}) { delete(doc, "userPreferences"); delete(doc, "budget") },
		},
		{
			name:   "null budget",
			mutate: func(doc map[string]interface{}) { doc["budget"] = nil },
		},
		{
			name:     "missing problem type",
			mutate:   func(doc map[string]interface{}) { delete(doc, "problemType") },
			wantCode: "REQUIRED",
		},
		{
			name:     "blank problem type",
			mutate:   func(doc map[string]interface{}) { doc["problemType"] = "   " },
			wantCode: "BLANK",
		},
		{
			name: "latitude out of range",
			mutate: func(doc map[string]interface{}) {
				doc["userLocation"] = map[string]interface{}{"latitude": 91.0, "longitude": 2.0}
			},
			wantCode: "NUMBER_LTE",
		},
		{
			name: "zero max distance",
			mutate: func(doc map[string]interface{}) {
				doc["userPreferences"] = map[string]interface{}{"maxDistance": 0.0}
			},
			wantCode: "NUMBER_GT",
		},
		{
			name: "unknown urgency",
			mutate: func(doc map[string]interface{}) {
				doc["userPreferences"] = map[string]interface{}{"urgency": "asap"}
			},
			wantCode: "ENUM",
		},
		{
			name: "negative budget",
			mutate: func(doc map[string]interface{}) {
				doc["budget"] = map[string]interface{}{"min": -1.0, "max": 10.0}
			},
			wantCode: "NUMBER_GTE",
		},
		{
			name: "inverted budget",
			mutate: func(doc map[string]interface{}) {
				doc["budget"] = map[string]interface{}{"min": 200.0, "max": 100.0}
			},
			wantCode: "BUDGET_RANGE",
		},
		{
			name:     "wrong type",
			mutate:   func(doc map[string]interface{}) { doc["userLocation"] = "Paris" },
			wantCode: "INVALID_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validCriteria()
			tt.mutate(doc)

			res := v.ValidateCriteria(doc)
			if tt.wantCode == "" {
				assert.True(t, res.Valid, res.GetErrorMessages())
				assert.NoError(t, res.Err())
				return
			}
			assert.False(t, res.Valid)
			assert.Contains(t, codes(res), tt.wantCode)
		})
	}
}

func TestValidateJSON(t *testing.T) {
	v := MustCriteriaValidator()

	res := v.ValidateJSON([]byte(`{"problemType": "batterie", "userLocation": {"latitude": 45.76, "longitude": 4.83}}`))
	assert.True(t, res.Valid)

	res = v.ValidateJSON([]byte(`{"problemType": `))
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"MALFORMED_DOCUMENT"}, codes(res))
}

func TestValidationResult_Err(t *testing.T) {
	v := MustCriteriaValidator()
	doc := validCriteria()
	doc["budget"] = map[string]interface{}{"min": 200.0, "max": 100.0}

	err := v.ValidateCriteria(doc).Err()
	require.Error(t, err)

	se, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidCriteria, se.Code)
	assert.Contains(t, se.Details, "budget.min must not exceed budget.max")
	assert.False(t, se.Retryable)
}

func TestNewValidator_RejectsBrokenSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
}
