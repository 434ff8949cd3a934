// Package errors provides coded domain errors for the library core.
//
// Usage:
//
//	// In components - return typed errors
//	if exists {
//	    return errors.Duplicatef("gallery %q already exists", title)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrDuplicate) {
//	    emit(Skipped("already exists"))
//	}
//
//	// Or switch on the kind for propagation policy
//	switch errors.KindOf(err) {
//	case errors.KindIO, errors.KindFormat:
//	    // skip candidate
//	case errors.KindConcurrency:
//	    // fail the call
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeIO                 Code = "IO"
	CodeFormat             Code = "FORMAT"
	CodeUnsupportedArchive Code = "UNSUPPORTED_ARCHIVE"
	CodeArchiveCreate      Code = "ARCHIVE_CREATE"
	CodeDuplicate          Code = "DUPLICATE"
	CodeConsistency        Code = "CONSISTENCY"
	CodePageCountMismatch  Code = "PAGE_COUNT_MISMATCH"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAuthRequired       Code = "AUTH_REQUIRED"
	CodeRemoteNotFound     Code = "REMOTE_NOT_FOUND"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeTransport          Code = "TRANSPORT"
	CodeParse              Code = "PARSE"
	CodeUnsupportedSource  Code = "UNSUPPORTED_SOURCE"
	CodeResolverBusy       Code = "RESOLVER_BUSY"
	CodeTxClosed           Code = "TX_CLOSED"
	CodeCancelled          Code = "CANCELLED"
	CodeValidation         Code = "VALIDATION"
	CodeInternal           Code = "INTERNAL"
)

// Kind groups codes by the propagation policy that applies to them.
type Kind string

// Error kinds.
const (
	KindIO           Kind = "io"
	KindFormat       Kind = "format"
	KindDuplicate    Kind = "duplicate"
	KindConsistency  Kind = "consistency"
	KindRemote       Kind = "remote"
	KindConcurrency  Kind = "concurrency"
	KindCancellation Kind = "cancellation"
	KindInternal     Kind = "internal"
)

// Kind returns the kind a code belongs to.
func (c Code) Kind() Kind {
	switch c {
	case CodeIO, CodeArchiveCreate:
		return KindIO
	case CodeFormat, CodeUnsupportedArchive, CodeValidation:
		return KindFormat
	case CodeDuplicate:
		return KindDuplicate
	case CodeConsistency, CodePageCountMismatch, CodeNotFound:
		return KindConsistency
	case CodeAuthRequired, CodeRemoteNotFound, CodeRateLimited, CodeTransport, CodeParse, CodeUnsupportedSource:
		return KindRemote
	case CodeResolverBusy, CodeTxClosed:
		return KindConcurrency
	case CodeCancelled:
		return KindCancellation
	default:
		return KindInternal
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the kind of this error's code.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrIO                 = &Error{Code: CodeIO, Message: "i/o error"}
	ErrFormat             = &Error{Code: CodeFormat, Message: "unrecognized format"}
	ErrUnsupportedArchive = &Error{Code: CodeUnsupportedArchive, Message: "unsupported archive"}
	ErrArchiveCreate      = &Error{Code: CodeArchiveCreate, Message: "cannot open archive"}
	ErrDuplicate          = &Error{Code: CodeDuplicate, Message: "already exists"}
	ErrConsistency        = &Error{Code: CodeConsistency, Message: "inconsistent state"}
	ErrPageCountMismatch  = &Error{Code: CodePageCountMismatch, Message: "page count mismatch"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAuthRequired       = &Error{Code: CodeAuthRequired, Message: "login required"}
	ErrRemoteNotFound     = &Error{Code: CodeRemoteNotFound, Message: "no match"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "rate limited"}
	ErrTransport          = &Error{Code: CodeTransport, Message: "connection failed"}
	ErrParse              = &Error{Code: CodeParse, Message: "unexpected response"}
	ErrUnsupportedSource  = &Error{Code: CodeUnsupportedSource, Message: "unsupported source"}
	ErrResolverBusy       = &Error{Code: CodeResolverBusy, Message: "metadata fetch already in progress"}
	ErrTxClosed           = &Error{Code: CodeTxClosed, Message: "transaction already ended"}
	ErrCancelled          = &Error{Code: CodeCancelled, Message: "cancelled"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// IO creates an i/o error.
func IO(msg string) *Error {
	return &Error{Code: CodeIO, Message: msg}
}

// IOf creates an i/o error with formatted message.
func IOf(format string, args ...any) *Error {
	return &Error{Code: CodeIO, Message: fmt.Sprintf(format, args...)}
}

// Format creates a format error.
func Format(msg string) *Error {
	return &Error{Code: CodeFormat, Message: msg}
}

// Formatf creates a format error with formatted message.
func Formatf(format string, args ...any) *Error {
	return &Error{Code: CodeFormat, Message: fmt.Sprintf(format, args...)}
}

// Duplicatef creates a duplicate error with formatted message.
func Duplicatef(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicate, Message: fmt.Sprintf(format, args...)}
}

// Consistency creates a consistency error.
func Consistency(msg string) *Error {
	return &Error{Code: CodeConsistency, Message: msg}
}

// Consistencyf creates a consistency error with formatted message.
func Consistencyf(format string, args ...any) *Error {
	return &Error{Code: CodeConsistency, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// Cancelled converts a context error into a CANCELLED domain error.
// Returns nil when err is nil.
func Cancelled(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeCancelled, Message: "cancelled", cause: err}
}

// CodeOf returns the code of the first *Error in err's chain.
// Context errors map to CodeCancelled; anything else is CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return CodeInternal
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

// UserMessage returns the short string shown on the notification surface.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if CodeOf(err) == CodeCancelled {
		return ErrCancelled.Message
	}
	return ErrInternal.Message
}
