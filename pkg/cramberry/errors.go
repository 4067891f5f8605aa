// Package cramberry provides a Protocol-Buffers-compatible binary wire writer.
package cramberry

import (
	"errors"
	"fmt"

	"github.com/blockberries/cramberrywire/internal/wire"
)

// Sentinel errors for common writer conditions. These can be checked with
// errors.Is().
var (
	// ErrInvalidLongInput indicates a 64-bit value was given as text that
	// could not be parsed as a decimal integer.
	ErrInvalidLongInput = wire.ErrInvalidLongInput

	// ErrUnbalancedFork indicates Finish was called while a Fork frame was
	// still open, or Ldelim was called with no open frame.
	ErrUnbalancedFork = errors.New("cramberry: unbalanced fork/ldelim")

	// ErrMaxDepthExceeded indicates Fork nesting exceeded Options.Limits.MaxDepth.
	ErrMaxDepthExceeded = errors.New("cramberry: maximum fork depth exceeded")

	// ErrMaxMessageSize indicates the accumulated output would exceed
	// Options.Limits.MaxMessageSize.
	ErrMaxMessageSize = errors.New("cramberry: maximum message size exceeded")

	// ErrMaxStringLength indicates a WriteString/WriteUTF16 payload exceeded
	// Options.Limits.MaxStringLength.
	ErrMaxStringLength = errors.New("cramberry: maximum string length exceeded")

	// ErrMaxBytesLength indicates a WriteBytes payload exceeded
	// Options.Limits.MaxBytesLength.
	ErrMaxBytesLength = errors.New("cramberry: maximum bytes length exceeded")

	// ErrInvalidUTF8 indicates a WriteString payload was not valid UTF-8
	// while Options.ValidateUTF8 is set.
	ErrInvalidUTF8 = errors.New("cramberry: invalid UTF-8 string")

	// ErrInvalidFieldNumber indicates WriteTag or Ldelim was given a field
	// number <= 0.
	ErrInvalidFieldNumber = errors.New("cramberry: invalid field number")
)

// EncodeError provides detailed context for a write failure: which field
// was being written and why. Writer's tag, fork, length-delimited, bytes,
// string and 64-bit-text methods construct one as the sticky error; the
// message-size check and an unbalanced Ldelim or Finish record the bare
// sentinel instead. errors.Is and errors.As still reach the wrapped
// sentinel in Cause.
type EncodeError struct {
	// Type is the name of the type being encoded, if known.
	Type string

	// Field is the name of the field being encoded, if applicable.
	Field string

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *EncodeError) Error() string {
	var prefix string
	switch {
	case e.Type != "" && e.Field != "":
		prefix = fmt.Sprintf("%s.%s", e.Type, e.Field)
	case e.Type != "":
		prefix = e.Type
	case e.Field != "":
		prefix = e.Field
	}

	if prefix != "" {
		return fmt.Sprintf("cramberry: encode %s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("cramberry: encode: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches target, checking Cause.
func (e *EncodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewEncodeError creates a new EncodeError.
func NewEncodeError(message string, cause error) *EncodeError {
	return &EncodeError{Message: message, Cause: cause}
}

// NewFieldEncodeError creates an EncodeError for a specific field.
func NewFieldEncodeError(typeName, fieldName, message string, cause error) *EncodeError {
	return &EncodeError{Type: typeName, Field: fieldName, Message: message, Cause: cause}
}

// IsLimitExceeded returns true if err indicates a configured limit was exceeded.
func IsLimitExceeded(err error) bool {
	switch {
	case errors.Is(err, ErrMaxDepthExceeded),
		errors.Is(err, ErrMaxMessageSize),
		errors.Is(err, ErrMaxStringLength),
		errors.Is(err, ErrMaxBytesLength):
		return true
	default:
		return false
	}
}
