package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies every failure that reaches the presentation layer.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindAuth                ErrorKind = "auth"
	KindUpload              ErrorKind = "upload"
	KindPersistence         ErrorKind = "persistence"
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindPositionUnavailable ErrorKind = "position_unavailable"
	KindNotFound            ErrorKind = "not_found"
	KindAlreadySubmitting   ErrorKind = "already_submitting"
	KindInternal            ErrorKind = "internal"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrAuth                = &Error{Kind: KindAuth}
	ErrUpload              = &Error{Kind: KindUpload}
	ErrPersistence         = &Error{Kind: KindPersistence}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrPositionUnavailable = &Error{Kind: KindPositionUnavailable}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadySubmitting   = &Error{Kind: KindAlreadySubmitting}
)

type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// E builds a classified error.
func E(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted message and no cause.
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Classify keeps classified errors as they are and wraps anything else
// (timeouts included) in the given kind.
func Classify(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: kind, Op: op, Msg: "timed out", Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// UserMessage names the corrective action for a failure kind.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case KindValidation:
		return "Please add a title and capture your location before submitting."
	case KindAuth:
		return "Your session has expired. Please log in again."
	case KindUpload:
		return "We couldn't upload your media. Check your connection and try again."
	case KindPersistence:
		return "We couldn't save your report. Check your connection and try again."
	case KindPermissionDenied:
		return "Location access is off. Enable location permissions to continue."
	case KindPositionUnavailable:
		return "We couldn't get a GPS fix. Move to an open area and try again."
	case KindNotFound:
		return "That report doesn't exist anymore."
	case KindAlreadySubmitting:
		return "Your report is already being submitted."
	default:
		return "Something went wrong. Please try again."
	}
}
