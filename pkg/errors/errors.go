// Package errors defines the sentinel errors shared by the index, the query
// pipeline and the HTTP API, plus the mapping from those errors to HTTP
// status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDuplicateDocument = errors.New("document already indexed")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrQuerySyntax       = errors.New("query syntax error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSnapshotCorrupt   = errors.New("snapshot corrupt")
	ErrTimeout           = errors.New("operation timed out")
	ErrInternal          = errors.New("internal error")
)

// AppError attaches a human readable message and an HTTP status to one of
// the sentinels above.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, ErrQuerySyntax), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
