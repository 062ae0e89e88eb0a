package factory

import (
	"errors"
	"fmt"
)

// Error represents a failure to register a class or construct an entity.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Class is the class involved, if any.
	Class string

	// Field is the field involved, if any.
	Field string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes factory errors.
type ErrorCode string

const (
	// ErrCodeUnknownType indicates Create was asked for an unregistered class.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownBase indicates a class extends a class that does not exist.
	ErrCodeUnknownBase ErrorCode = "UNKNOWN_BASE"

	// ErrCodeBaseCycle indicates a chain of base classes loops back on itself.
	ErrCodeBaseCycle ErrorCode = "BASE_CYCLE"

	// ErrCodeInvalidClass indicates a malformed class declaration.
	ErrCodeInvalidClass ErrorCode = "INVALID_CLASS"

	// ErrCodeDuplicateClass indicates a class name is registered twice.
	ErrCodeDuplicateClass ErrorCode = "DUPLICATE_CLASS"

	// ErrCodeFieldConflict indicates a field redeclares an inherited one.
	ErrCodeFieldConflict ErrorCode = "FIELD_CONFLICT"

	// ErrCodeUnknownField indicates a value for a field the class lacks.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeKindMismatch indicates a value of the wrong kind for a field.
	ErrCodeKindMismatch ErrorCode = "KIND_MISMATCH"

	// ErrCodeInvalidCount indicates a negative count for CreateMany.
	ErrCodeInvalidCount ErrorCode = "INVALID_COUNT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Class != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (class=%s, field=%s)", e.Code, e.Message, e.Class, e.Field)
	case e.Class != "":
		return fmt.Sprintf("%s: %s (class=%s)", e.Code, e.Message, e.Class)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// HasCode reports whether err is a factory Error with code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsUnknownType returns true if err reports an unregistered class.
func IsUnknownType(err error) bool { return HasCode(err, ErrCodeUnknownType) }

// IsKindMismatch returns true if err reports a value of the wrong kind.
func IsKindMismatch(err error) bool { return HasCode(err, ErrCodeKindMismatch) }

// IsBaseCycle returns true if err reports a cyclic class hierarchy.
func IsBaseCycle(err error) bool { return HasCode(err, ErrCodeBaseCycle) }
