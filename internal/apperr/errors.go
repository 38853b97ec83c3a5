// Package apperr holds the error taxonomy shared by services, repositories
// and the HTTP layer. Repositories and services return these (optionally
// wrapped); the api package maps them onto status codes.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrForbidden is returned when no role resolves or the role lacks
	// rights on the object. It never carries a reason.
	ErrForbidden = errors.New("forbidden")

	// ErrTransient marks failures a caller may retry: deadlocks and
	// serialization failures in the numbering critical section.
	ErrTransient = errors.New("transient failure, retry")
)

// ValidationError carries field-level messages.
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
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Validation accumulates field errors; Err returns nil when none were added.
type Validation struct {
	fields map[string]string
}

func (v *Validation) Add(field, message string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// NotFoundError means the object does not exist or is outside the caller's
// scope. Both cases look the same to the caller.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ConflictError is a unique-constraint violation. Field hints which input
// collided.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return "conflict on " + e.Field + ": " + e.Message
	}
	return "conflict on " + e.Field
}

func Conflict(field, message string) *ConflictError {
	return &ConflictError{Field: field, Message: message}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
