package aggregates

import (
	"errors"
	"strings"
)

// ErrorCode classifies write failures so transports can pick a status
// without inspecting storage errors.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// ErrNotFound matches any not_found *Error under errors.Is.
var ErrNotFound = &Error{Code: CodeNotFound}

// Error carries a code, the failing operation and a caller-safe message.
// Cause holds the underlying storage error, never shown to callers.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
		b.WriteString(" ")
	}
	b.WriteString("(" + string(e.Code) + ")")
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Cause == nil && t.Code == e.Code
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap tags err with code; the message is err's text.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func Validation(op, message string) error { return NewError(CodeValidation, op, message, nil) }
func NotFound(op, message string) error   { return NewError(CodeNotFound, op, message, nil) }

func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if errors.As(err, &aggErr) {
		return aggErr.Code
	}
	return ""
}

// MessageOf prefers the *Error message over err's full text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var aggErr *Error
	if errors.As(err, &aggErr) && aggErr.Message != "" {
		return aggErr.Message
	}
	return err.Error()
}
