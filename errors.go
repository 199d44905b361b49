package relmap

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("relmap: entity not found")

	// ErrStaleObject is returned when a write affected fewer rows than it intended to.
	ErrStaleObject = errors.New("relmap: stale object")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("relmap: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("relmap: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// StaleObjectError is returned when the number of rows touched by a write
// differs from the number of rows the write was meant to touch. It usually
// means that a versioned row was modified or removed by somebody else.
type StaleObjectError struct {
	Expected int64 // Rows the write intended to affect.
	Actual   int64 // Rows reported by the database.
}

// Error returns the error string.
func (e *StaleObjectError) Error() string {
	return fmt.Sprintf("relmap: stale object: expected %d rows to be affected but %d were", e.Expected, e.Actual)
}

// Is reports whether the target error matches StaleObjectError.
func (e *StaleObjectError) Is(err error) bool {
	return err == ErrStaleObject
}

// NewStaleObjectError returns a new StaleObjectError.
func NewStaleObjectError(expected, actual int64) *StaleObjectError {
	return &StaleObjectError{Expected: expected, Actual: actual}
}

// IsStaleObject returns true if the error is a StaleObjectError.
func IsStaleObject(err error) bool {
	if err == nil {
		return false
	}
	var e *StaleObjectError
	return errors.As(err, &e)
}

// ConfigError is returned when a mapping or a join tree is misconfigured.
// These errors surface while building, never while querying.
type ConfigError struct {
	Op  string // Operation that detected the error (e.g. "join").
	Msg string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("relmap: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("relmap: %s", e.Msg)
}

// NewConfigError returns a new ConfigError with a formatted message.
func NewConfigError(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// ExecutionError wraps any failure of the underlying statement primitive:
// preparing, binding, executing or reading a cursor.
type ExecutionError struct {
	Op    string // Operation (e.g., "insert", "select", "batch").
	Query string // Statement text, if known.
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *ExecutionError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("relmap: %s %q: %v", e.Op, e.Query, e.Err)
	}
	return fmt.Sprintf("relmap: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError returns a new ExecutionError.
func NewExecutionError(op, query string, err error) *ExecutionError {
	return &ExecutionError{Op: op, Query: query, Err: err}
}

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecutionError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("relmap: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}
