// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"
)

// Response is the error payload returned to API clients.
type Response struct {
	Error     string `json:"error"`
	Kind      Kind   `json:"kind"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// Handler normalizes engine errors into API responses.
type Handler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps an error to the response status code. Validation and safety
// rejections are client-visible request failures; transient execution errors
// signal the caller to retry later.
func HTTPStatus(stdErr *StandardError) int {
	switch KindOf(stdErr.Code) {
	case KindValidation:
		if stdErr.Code == ErrCodePermissionDenied {
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	case KindSecurity:
		return http.StatusUnprocessableEntity
	default:
		if stdErr.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
}

// HandleRequestError logs a failed request and returns the status code and
// payload the transport layer should write.
func (h *Handler) HandleRequestError(requestID string, err error) (int, *Response) {
	stdErr := Normalize(err)

	h.logger.Error("Request failed", map[string]interface{}{
		"requestId":     requestID,
		"errorCode":     string(stdErr.Code),
		"errorKind":     string(KindOf(stdErr.Code)),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
	})

	return HTTPStatus(stdErr), &Response{
		Error:     stdErr.Message,
		Kind:      KindOf(stdErr.Code),
		Code:      string(stdErr.Code),
		RequestID: requestID,
	}
}
