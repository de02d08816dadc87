package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		kind Kind
	}{
		{ErrCodeEmptyQuestion, KindValidation},
		{ErrCodePermissionDenied, KindValidation},
		{ErrCodeForbiddenKeyword, KindSecurity},
		{ErrCodeMultipleStatement, KindSecurity},
		{ErrCodeQueryTimeout, KindExecution},
		{ErrCodeCacheUnavailable, KindExecution},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.code), string(tt.code))
	}
}

func TestRetryability(t *testing.T) {
	assert.True(t, NewQueryTimeoutError("pallet_count").Retryable)
	assert.True(t, NewDatabaseConnectionFailedError(fmt.Errorf("refused")).Retryable)
	// Malformed SQL and permission failures do not recover on retry.
	assert.False(t, NewQueryExecutionFailedError("pallet_count", fmt.Errorf("bad column")).Retryable)
	assert.False(t, NewPermissionDeniedError("x@y.z").Retryable)

	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeQueryTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeSQLRejected))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *StandardError
		status int
	}{
		{NewEmptyQuestionError(), http.StatusBadRequest},
		{NewPermissionDeniedError("x@y.z"), http.StatusForbidden},
		{NewForbiddenKeywordError("DROP"), http.StatusUnprocessableEntity},
		{NewMultipleStatementError(), http.StatusUnprocessableEntity},
		{NewQueryTimeoutError("t"), http.StatusServiceUnavailable},
		{NewQueryExecutionFailedError("t", fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), string(tt.err.Code))
	}
}

func TestNormalizeWrapsUnknownErrors(t *testing.T) {
	stdErr := Normalize(fmt.Errorf("plain failure"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), ErrorCode(stdErr.Code))
	assert.False(t, stdErr.Retryable)

	original := NewSQLRejectedError("no limit")
	assert.Same(t, original, Normalize(original))
}
