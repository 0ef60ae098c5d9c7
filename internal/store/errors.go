package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("conflicting record")
	ErrForbidden   = errors.New("forbidden")
	ErrUnavailable = errors.New("datastore unavailable")
)

// FieldErrors maps a request field (JSON name) to a human readable problem.
type FieldErrors map[string]string

// ValidationError reports malformed or missing client input.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	return &ValidationError{Fields: FieldErrors{field: message}}
}

// Required fails for every field whose value was sent but is blank once
// sanitized. A nil value means the field was not sent.
func Required(fields map[string]*string) error {
	errs := FieldErrors{}
	for name, v := range fields {
		if v != nil && strings.TrimSpace(*v) == "" {
			errs[name] = name + " is required"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// InvariantError is a refused operation that would break a business rule.
// Code is machine readable, Reason is shown to the operator.
type InvariantError struct {
	Code   string
	Reason string
}

func (e *InvariantError) Error() string {
	return e.Reason
}

// ConflictError is a conflict whose Message is safe to show to the client.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Conflict builds a ConflictError; it matches ErrConflict under errors.Is.
func Conflict(message string) error {
	return &ConflictError{Message: message}
}

// Translate maps a GORM error onto the store taxonomy.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnavailable):
		return err
	}

	var verr *ValidationError
	var ierr *InvariantError
	if errors.As(err, &verr) || errors.As(err, &ierr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
