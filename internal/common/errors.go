package common

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError carries the status code a handler should answer with.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

func NewHTTPError(status int, format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: status, Detail: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusNotFound, format, args...)
}

func Unprocessable(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, format, args...)
}

// StatusOf reports the HTTP status for err, 500 for anything untyped.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return http.StatusInternalServerError
}

func Internal(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, format, args...)
}
