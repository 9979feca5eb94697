// Package apperr provides the error type shared by every layer of the
// image browser.
//
// Core packages return *apperr.Error for anything a caller may need to
// branch on; the HTTP layer turns the Kind into a status code.
//
//	if apperr.IsNotFound(err) {
//	    // 404
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorises an error independently of the backend that produced it.
type Kind int

const (
	KindUnknown         Kind = iota
	KindValidation           // bad path, name or policy from the caller
	KindNotFound             // referenced folder or file is absent
	KindAlreadyExists        // target folder or file already present
	KindUnauthorized         // missing or wrong credentials
	KindStore                // the object store itself failed
	KindExhaustedRename      // no free name within the rename bound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindUnauthorized:
		return "unauthorized"
	case KindStore:
		return "store"
	case KindExhaustedRename:
		return "exhausted_rename"
	default:
		return "unknown"
	}
}

// Error carries a Kind, a human-readable message and the original cause.
// Message is what end users see; Cause is kept for logs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows errors.Is / errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error around an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func IsValidation(err error) bool      { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool        { return KindOf(err) == KindNotFound }
func IsAlreadyExists(err error) bool   { return KindOf(err) == KindAlreadyExists }
func IsUnauthorized(err error) bool    { return KindOf(err) == KindUnauthorized }
func IsStore(err error) bool           { return KindOf(err) == KindStore }
func IsExhaustedRename(err error) bool { return KindOf(err) == KindExhaustedRename }

// KindOf extracts the Kind from the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing message of err. For errors that are not
// *Error the full error string is used.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API responds with.
// AlreadyExists is reported as 400 rather than 409.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindAlreadyExists:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
