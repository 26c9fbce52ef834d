// Package apperr holds the request-facing error taxonomy. Services
// return these; the handler layer translates them to HTTP exactly once.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

func Auth(reason string) error {
	return &AuthError{Reason: reason}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// IncompleteUploadError reports the first gap found when a final chunk
// triggers assembly before every index has arrived.
type IncompleteUploadError struct {
	MissingIndex int
	TotalChunks  int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload incomplete: chunk %d of %d missing", e.MissingIndex, e.TotalChunks)
}

type RangeNotSatisfiableError struct {
	Size int64
}

func (e *RangeNotSatisfiableError) Error() string {
	return fmt.Sprintf("requested range starts beyond resource size %d", e.Size)
}

// StorageError wraps a persistence failure. The wrapped error stays
// internal; callers see only the generic message.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage operation failed" }

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(err error) error {
	return &StorageError{Err: err}
}

// StatusAndCode maps a service error to its HTTP status, machine code
// and public message. Unknown errors collapse to a generic 500 so no
// internal detail leaks to the caller.
func StatusAndCode(err error) (status int, code string, message string) {
	var (
		validation *ValidationError
		auth       *AuthError
		notFound   *NotFoundError
		incomplete *IncompleteUploadError
		badRange   *RangeNotSatisfiableError
		storage    *StorageError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_failed", validation.Error()
	case errors.As(err, &auth):
		return http.StatusUnauthorized, "unauthorized", auth.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found", notFound.Error()
	case errors.As(err, &incomplete):
		return http.StatusBadRequest, "upload_incomplete", incomplete.Error()
	case errors.As(err, &badRange):
		return http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable", badRange.Error()
	case errors.As(err, &storage):
		return http.StatusInternalServerError, "storage_failed", storage.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}
