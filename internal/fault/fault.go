// Package fault defines the error taxonomy shared by the shape algebra, the
// query model and the compiler.
//
// Errors are raised at construction time and never recovered locally:
// callers translate them into protocol-level failures.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes an algebra error.
type Code string

const (
	// MalformedInput covers unknown labels or predicates, malformed patterns
	// and unresolvable language tags.
	MalformedInput Code = "MALFORMED_INPUT"

	// ConflictingConstraint covers shape and query merge conflicts.
	ConflictingConstraint Code = "CONFLICTING_CONSTRAINT"

	// IllegalState covers accessors used the wrong way, such as redefining a
	// shape that was already resolved.
	IllegalState Code = "ILLEGAL_STATE"
)

// Error is a structured algebra error.
//
// Conflict errors carry both operands so that the caller can report which
// fragments disagreed.
type Error struct {
	Code     Code
	Message  string
	Operands []any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Operands) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, len(e.Operands))
	for i, op := range e.Operands {
		parts[i] = fmt.Sprint(op)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, " <> "))
}

// Malformed creates a MalformedInput error.
func Malformed(format string, args ...any) *Error {
	return &Error{Code: MalformedInput, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a ConflictingConstraint error carrying both operands.
func Conflict(message string, left, right any) *Error {
	return &Error{Code: ConflictingConstraint, Message: message, Operands: []any{left, right}}
}

// Illegal creates an IllegalState error.
func Illegal(format string, args ...any) *Error {
	return &Error{Code: IllegalState, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsMalformed reports whether err is a MalformedInput error.
func IsMalformed(err error) bool {
	return CodeOf(err) == MalformedInput
}

// IsConflict reports whether err is a ConflictingConstraint error.
func IsConflict(err error) bool {
	return CodeOf(err) == ConflictingConstraint
}

// IsIllegalState reports whether err is an IllegalState error.
func IsIllegalState(err error) bool {
	return CodeOf(err) == IllegalState
}
