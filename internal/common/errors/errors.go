// Package errors provides standardized error handling for the voice
// services and their BPMN job workers.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	ErrCodeInvalidRule         ErrorCode = "INVALID_RULE"
	ErrCodeUnknownPlaceholder  ErrorCode = "UNKNOWN_PLACEHOLDER"
	ErrCodeInvalidGraph        ErrorCode = "INVALID_GRAPH"
	ErrCodeInputValidation     ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeTranscriptMissing   ErrorCode = "TRANSCRIPT_MISSING"
	ErrCodeIntentParsingFailed ErrorCode = "INTENT_PARSING_FAILED"

	ErrCodeClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"
	ErrCodeClassifierTimeout     ErrorCode = "CLASSIFIER_TIMEOUT"
	ErrCodePrewarmFailed         ErrorCode = "PREWARM_FAILED"

	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error { return e.cause }

// ==========================
// 2. BPMN Error Integration
// ==========================

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

// ==========================
// 3. Error Constructors
// ==========================

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

// NewConfigInvalidError reports a configuration that failed validation.
func NewConfigInvalidError(details string) *StandardError {
	return newError(ErrCodeConfigInvalid, "Invalid configuration", details, false, nil)
}

// NewInvalidRuleError reports an unusable classifier rule table.
func NewInvalidRuleError(err error) *StandardError {
	return newError(ErrCodeInvalidRule, "Invalid classifier rule", err.Error(), false, err)
}

// NewUnknownPlaceholderError reports a template placeholder with no value pool.
func NewUnknownPlaceholderError(err error) *StandardError {
	return newError(ErrCodeUnknownPlaceholder, "Template placeholder has no value pool", err.Error(), false, err)
}

// NewInvalidGraphError reports a dialog graph that failed validation.
func NewInvalidGraphError(err error) *StandardError {
	return newError(ErrCodeInvalidGraph, "Invalid dialog graph", err.Error(), false, err)
}

// NewInputValidationError reports a request or job payload that failed schema validation.
func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidation, "Input validation failed", details, false, nil)
}

// NewTranscriptMissingError reports a job without a transcript variable.
func NewTranscriptMissingError() *StandardError {
	return newError(ErrCodeTranscriptMissing, "Transcript is required", "variable 'transcript' is empty", false, nil)
}

// NewIntentParsingFailedError reports a malformed classification response.
func NewIntentParsingFailedError(err error) *StandardError {
	return newError(ErrCodeIntentParsingFailed, "Intent parsing failed", err.Error(), true, err)
}

// NewClassifierUnavailableError reports a transport failure or non-2xx reply from the classifier.
func NewClassifierUnavailableError(err error) *StandardError {
	return newError(ErrCodeClassifierUnavailable, "Intent classifier unavailable", err.Error(), true, err)
}

// NewClassifierTimeoutError reports a classifier call that exceeded its deadline.
func NewClassifierTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeClassifierTimeout, "Intent classifier timeout",
		fmt.Sprintf("call exceeded %s", timeout), true, context.DeadlineExceeded)
}

// NewPrewarmFailedError reports a failed dashboard pre-warm.
func NewPrewarmFailedError(err error) *StandardError {
	return newError(ErrCodePrewarmFailed, "Dashboard pre-warm failed", err.Error(), true, err)
}

// NewCacheUnavailableError reports a Redis failure.
func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable", err.Error(), true, err)
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true, err)
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeClassifierUnavailable,
		ErrCodeCacheUnavailable,
		ErrCodeDatabaseInsertFailed,
		ErrCodeIntentParsingFailed:
		return 3

	case ErrCodeClassifierTimeout:
		return 2

	case ErrCodePrewarmFailed:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN error codes are identical to the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
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

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError returns the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CLASSIFIER") || strings.Contains(codeStr, "INTENT"):
		return "NLU"
	case strings.Contains(codeStr, "PREWARM"):
		return "DASHBOARD"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "DATABASE"):
		return "STORAGE"
	case strings.Contains(codeStr, "CONFIG") || strings.Contains(codeStr, "RULE") ||
		strings.Contains(codeStr, "PLACEHOLDER") || strings.Contains(codeStr, "GRAPH"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "MISSING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
