package api

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "repair-recommender/internal/common/errors"
)

const (
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeServiceNotReady   = "SERVICE_NOT_READY"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"requestId"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int,
	code, message string, retryable bool, details map[string]interface{}) {

	respondJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// writeAppError maps an application error onto its HTTP status.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	var details map[string]interface{}
	if stdErr.Details != "" {
		details = map[string]interface{}{"reason": stdErr.Details}
	}
	writeError(w, r, apperrors.HTTPStatus(stdErr.Code), string(stdErr.Code), stdErr.Message, stdErr.Retryable, details)
}
