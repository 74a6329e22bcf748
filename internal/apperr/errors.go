// Package apperr defines the structured error taxonomy shared by every layer.
//
// Every failure that crosses the service boundary carries a stable machine
// code plus enough context (document path, section slug, ...) for the caller
// to retry correctly without guessing.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable failure reason.
type Code string

// Failure reasons.
const (
	CodeInvalidPath        Code = "INVALID_PATH"
	CodeNamespaceViolation Code = "NAMESPACE_VIOLATION"
	CodeMissingParameter   Code = "MISSING_PARAMETER"
	CodeDocumentNotFound   Code = "DOCUMENT_NOT_FOUND"
	CodeSectionNotFound    Code = "SECTION_NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeConflict           Code = "CONFLICT"
	CodeTaskNotFound       Code = "TASK_NOT_FOUND"
	CodeNoActionableTask   Code = "NO_ACTIONABLE_TASK"
	CodeBatchTooLarge      Code = "BATCH_TOO_LARGE"
	CodeArchiveIO          Code = "ARCHIVE_IO"
	CodeInternal           Code = "INTERNAL"
)

// Error is a structured application error.
type Error struct {
	Code    Code
	Message string
	Context map[string]any
	Err     error // wrapped cause, diagnostic only
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches two Errors by code, so errors.Is(err, apperr.New(code, ""))
// works regardless of message or context.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that preserves cause as diagnostic detail.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// With returns e with an added context field.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, 2)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// From returns the *Error inside err, wrapping foreign errors as INTERNAL so
// callers always have a structured shape to render.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
