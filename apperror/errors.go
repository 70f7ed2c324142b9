// Package apperror defines the error taxonomy shared by the entity, the store, the reminder job
// and the HTTP boundary.
package apperror

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrPersistence   = errors.New("persistence error")
	ErrDispatch      = errors.New("dispatch error")
	ErrRunInProgress = errors.New("reminder run already in progress")
)

// ValidationError carries field-level messages that the caller can show back to the user.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation returns nil when fields is empty.
func NewValidation(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidationFields extracts the field map from err, if any.
func ValidationFields(err error) (map[string]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

func NotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

func Forbidden(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrForbidden)
}

func Conflict(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

// Persistence wraps a store failure. A nil err yields nil.
func Persistence(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrPersistence)
}

// Dispatch wraps a notification failure. A nil err yields nil.
func Dispatch(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrDispatch)
}

// HTTPStatus maps an error to the status code the CRUD boundary responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
