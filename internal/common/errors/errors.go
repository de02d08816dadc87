// Package errors provides standardized error handling for the ask-database engine.
package errors

import (
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
	ErrCodeEmptyQuestion    ErrorCode = "EMPTY_QUESTION"
	ErrCodeQuestionTooLong  ErrorCode = "QUESTION_TOO_LONG"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	ErrCodeTemplateNotFound  ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeInvalidDateRange  ErrorCode = "INVALID_DATE_RANGE"
	ErrCodeMissingParameter  ErrorCode = "MISSING_PARAMETER"
	ErrCodeAssemblyFailed    ErrorCode = "ASSEMBLY_FAILED"
	ErrCodeSQLRejected       ErrorCode = "SQL_REJECTED"
	ErrCodeForbiddenKeyword  ErrorCode = "FORBIDDEN_KEYWORD"
	ErrCodeMultipleStatement ErrorCode = "MULTIPLE_STATEMENT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
)

// Kind is the request-level error classification exposed on the API surface.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindSecurity   Kind = "SecurityError"
	KindExecution  Kind = "ExecutionError"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmptyQuestionError creates a non-retryable validation error for blank input.
func NewEmptyQuestionError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyQuestion,
		Message:   "Question must not be empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuestionTooLongError creates a non-retryable validation error.
func NewQuestionTooLongError(length, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuestionTooLong,
		Message:   "Question exceeds maximum length",
		Details:   fmt.Sprintf("length: %d, max: %d", length, max),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPermissionDeniedError creates a non-retryable permission error.
func NewPermissionDeniedError(user string) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   "User is not permitted to query the database",
		Details:   fmt.Sprintf("user: %s", user),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template lookup error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Query template not found in registry",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDateRangeError creates a non-retryable date resolution error.
func NewInvalidDateRangeError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDateRange,
		Message:   "Could not resolve date expression",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingParameterError creates a non-retryable parameter error.
func NewMissingParameterError(templateID, param string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingParameter,
		Message:   "Required query parameter missing from question",
		Details:   fmt.Sprintf("templateId: %s, parameter: %s", templateID, param),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssemblyFailedError creates a non-retryable SQL assembly error.
func NewAssemblyFailedError(templateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssemblyFailed,
		Message:   "SQL assembly failed",
		Details:   fmt.Sprintf("templateId: %s, error: %s", templateID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSQLRejectedError creates a non-retryable safety rejection.
func NewSQLRejectedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSQLRejected,
		Message:   "Generated SQL rejected by safety validation",
		Details:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenKeywordError creates a non-retryable safety rejection for DDL/DML keywords.
func NewForbiddenKeywordError(keyword string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbiddenKeyword,
		Message:   "Generated SQL contains a forbidden keyword",
		Details:   fmt.Sprintf("keyword: %s", keyword),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMultipleStatementError creates a non-retryable safety rejection for statement separators.
func NewMultipleStatementError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMultipleStatement,
		Message:   "Generated SQL contains a statement separator",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a non-retryable query execution error.
// Malformed SQL and permission failures do not recover on retry.
func NewQueryExecutionFailedError(templateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("templateId: %s, error: %s", templateID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error. Callers treat it as
// a cache miss rather than failing the request.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Kind Classification
// ==========================

// KindMapping maps internal error codes to the request-level classification.
var KindMapping = map[ErrorCode]Kind{
	ErrCodeEmptyQuestion:    KindValidation,
	ErrCodeQuestionTooLong:  KindValidation,
	ErrCodeInvalidRequest:   KindValidation,
	ErrCodePermissionDenied: KindValidation,
	ErrCodeTemplateNotFound: KindValidation,
	ErrCodeInvalidDateRange: KindValidation,
	ErrCodeMissingParameter: KindValidation,

	ErrCodeAssemblyFailed:    KindSecurity,
	ErrCodeSQLRejected:       KindSecurity,
	ErrCodeForbiddenKeyword:  KindSecurity,
	ErrCodeMultipleStatement: KindSecurity,

	ErrCodeDatabaseConnectionFailed: KindExecution,
	ErrCodeQueryExecutionFailed:     KindExecution,
	ErrCodeQueryTimeout:             KindExecution,
	ErrCodeCacheUnavailable:         KindExecution,
}

// KindOf returns the request-level classification for an error code.
func KindOf(code ErrorCode) Kind {
	if k, ok := KindMapping[code]; ok {
		return k
	}
	return KindExecution
}

// GetRetryCount returns the recommended retry count for transient failures.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeCacheUnavailable:
		return 3

	case ErrCodeQueryTimeout:
		return 2

	default:
		return 0
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "QUESTION") || strings.Contains(codeStr, "REQUEST") || strings.Contains(codeStr, "PERMISSION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "PARAMETER") || strings.Contains(codeStr, "DATE"):
		return "INTENT"
	case strings.Contains(codeStr, "REJECTED") || strings.Contains(codeStr, "KEYWORD") || strings.Contains(codeStr, "STATEMENT") || strings.Contains(codeStr, "ASSEMBLY"):
		return "SAFETY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}
