package remote

import (
	"fmt"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// Error wraps a coded error with the source, operation and URL involved.
type Error struct {
	Op     string // login, search, fetch
	Source string
	URL    string // If applicable
	Err    error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Source, e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError creates an Error with context. A nil err stays nil.
func WrapError(op, source, url string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Source: source, URL: url, Err: err}
}

// Parsef reports a response the adapter could not understand.
func Parsef(format string, args ...any) *errors.Error {
	return errors.Wrapf(errors.ErrParse, errors.CodeParse, format, args...)
}

// NotFoundf reports that the source has no match.
func NotFoundf(format string, args ...any) *errors.Error {
	return errors.Wrapf(errors.ErrRemoteNotFound, errors.CodeRemoteNotFound, format, args...)
}

// Retryable reports whether err should send its galleries to a fallback
// source as a batch rather than fail them one by one.
func Retryable(err error) bool {
	switch errors.CodeOf(err) {
	case errors.CodeTransport, errors.CodeRateLimited:
		return true
	default:
		return false
	}
}
