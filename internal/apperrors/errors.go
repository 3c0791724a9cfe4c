package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Base error types
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// StoreError is a structured error for data-access operations.
type StoreError struct {
	Type   ErrorType
	Op     string // Operation that failed (e.g., "resolve_user", "create_team")
	Entity string // Entity the operation targeted (e.g., "user", "team")
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is so callers can match against the base error types.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrConflict:
		return e.Type == ErrorTypeConflict
	case ErrNotAuthenticated:
		return e.Type == ErrorTypeAuth
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	case ErrInternal:
		return e.Type == ErrorTypeInternal
	}

	return errors.Is(e.Err, target)
}

// NewStoreError creates a new StoreError.
func NewStoreError(errorType ErrorType, op, entity string, err error) *StoreError {
	return &StoreError{
		Type:   errorType,
		Op:     op,
		Entity: entity,
		Err:    err,
	}
}

// NotFound reports a lookup miss for the given entity.
func NotFound(op, entity string) *StoreError {
	return NewStoreError(ErrorTypeNotFound, op, entity, ErrNotFound)
}

// Conflict reports a unique-constraint violation on create.
func Conflict(op, entity string, err error) *StoreError {
	return NewStoreError(ErrorTypeConflict, op, entity, err)
}

// Internal reports an invariant violation that should be structurally
// impossible. Callers must not retry it.
func Internal(op, entity string, err error) *StoreError {
	return NewStoreError(ErrorTypeInternal, op, entity, err)
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level validation failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add appends a field-level failure and returns the error for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// violation. modernc.org/sqlite surfaces these as formatted errors, so the
// check has to match on the constraint message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
