// Package errors provides the structured error model shared by the recommendation
// engine, its storage back-ends and its transports (Zeebe jobs, HTTP).
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDirectoryUnavailable   ErrorCode = "DIRECTORY_UNAVAILABLE"
	ErrCodeDirectoryTimeout       ErrorCode = "DIRECTORY_TIMEOUT"
	ErrCodeDirectoryDecodeFailed  ErrorCode = "DIRECTORY_DECODE_FAILED"
	ErrCodeInvalidCriteria        ErrorCode = "INVALID_CRITERIA"
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeAvailabilityLookup     ErrorCode = "AVAILABILITY_LOOKUP_FAILED"
	ErrCodeRegistryInvalid        ErrorCode = "REGISTRY_INVALID"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalServiceFailure ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewDirectoryUnavailableError wraps a failure to read the repairer directory.
func NewDirectoryUnavailableError(source string, err error) *StandardError {
	return newError(ErrCodeDirectoryUnavailable,
		"Repairer directory unavailable",
		fmt.Sprintf("source: %s, error: %v", source, err),
		true, err)
}

// NewDirectoryTimeoutError reports a directory read that exceeded its deadline.
func NewDirectoryTimeoutError(source string, err error) *StandardError {
	return newError(ErrCodeDirectoryTimeout,
		"Repairer directory timeout",
		fmt.Sprintf("source: %s, error: %v", source, err),
		true, err)
}

// NewDirectoryDecodeError reports a directory record that could not be decoded.
func NewDirectoryDecodeError(source string, err error) *StandardError {
	return newError(ErrCodeDirectoryDecodeFailed,
		"Repairer record could not be decoded",
		fmt.Sprintf("source: %s, error: %v", source, err),
		false, err)
}

func NewInvalidCriteriaError(details string) *StandardError {
	return newError(ErrCodeInvalidCriteria, "Invalid recommendation criteria", details, false, nil)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Directory cache unavailable", err.Error(), true, err)
}

func NewAvailabilityLookupError(repairerID string, err error) *StandardError {
	return newError(ErrCodeAvailabilityLookup,
		"Availability lookup failed",
		fmt.Sprintf("repairerId: %s, error: %v", repairerID, err),
		true, err)
}

func NewRegistryInvalidError(details string) *StandardError {
	return newError(ErrCodeRegistryInvalid, "Problem-type registry is invalid", details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalServiceFailure,
		fmt.Sprintf("External service '%s' error", service),
		err.Error(), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// DirectoryError classifies a directory read failure as a timeout or an outage.
func DirectoryError(source string, err error) *StandardError {
	if se, ok := AsStandardError(err); ok {
		return se
	}
	if stderrors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return NewDirectoryTimeoutError(source, err)
	}
	return NewDirectoryUnavailableError(source, err)
}

// AsStandardError unwraps err into a *StandardError if one is in its chain.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if se, ok := AsStandardError(err); ok {
		return se
	}
	return NewInternalError(err)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDirectoryUnavailable:  "DIRECTORY_UNAVAILABLE",
	ErrCodeDirectoryTimeout:      "DIRECTORY_TIMEOUT",
	ErrCodeDirectoryDecodeFailed: "DIRECTORY_DECODE_FAILED",
	ErrCodeInvalidCriteria:       "INVALID_CRITERIA",
	ErrCodeCacheUnavailable:      "CACHE_UNAVAILABLE",
	ErrCodeAvailabilityLookup:    "AVAILABILITY_LOOKUP_FAILED",
	ErrCodeRegistryInvalid:       "REGISTRY_INVALID",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDirectoryUnavailable,
		ErrCodeCacheUnavailable,
		ErrCodeExternalServiceFailure:
		return 3

	case ErrCodeDirectoryTimeout,
		ErrCodeAvailabilityLookup:
		return 2

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "DIRECTORY"):
		return "DIRECTORY"
	case strings.HasPrefix(codeStr, "CACHE"):
		return "CACHE"
	case strings.HasPrefix(codeStr, "AVAILABILITY"):
		return "AVAILABILITY"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "EXTERNAL"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status the HTTP API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidCriteria:
		return http.StatusBadRequest
	case ErrCodeDirectoryTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeDirectoryUnavailable, ErrCodeCacheUnavailable, ErrCodeExternalServiceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
