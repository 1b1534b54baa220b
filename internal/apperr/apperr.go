// Package apperr defines the labeled failure kinds surfaced by install,
// uninstall and launch operations.
//
// Every failure that crosses a component boundary is an *Error carrying
// a Kind. Callers branch on the kind with errors.Is against the
// package sentinels or with KindOf:
//
//	if errors.Is(err, apperr.ErrDigestMismatch) {
//	    // archive was corrupted in transit
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable error category.
type Kind string

const (
	KindUnknown        Kind = "UNKNOWN"
	KindNetwork        Kind = "NETWORK"
	KindDigestMismatch Kind = "DIGEST_MISMATCH"
	KindFormat         Kind = "FORMAT"
	KindNotFound       Kind = "NOT_FOUND"
	KindNotInstalled   Kind = "NOT_INSTALLED"
	KindStorage        Kind = "STORAGE"
	KindBusy           Kind = "BUSY"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrDigestMismatch = &Error{Kind: KindDigestMismatch}
	ErrFormat         = &Error{Kind: KindFormat}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrNotInstalled   = &Error{Kind: KindNotInstalled}
	ErrStorage        = &Error{Kind: KindStorage}
	ErrBusy           = &Error{Kind: KindBusy}
)

// Error is a labeled failure.
type Error struct {
	Kind      Kind
	PackageID string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.PackageID != "" {
		msg = e.PackageID + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an Error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap labels err with kind. Returns nil when err is nil.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ForPackage sets the package id the failure belongs to.
func (e *Error) ForPackage(id string) *Error {
	e.PackageID = id
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Convenience constructors, one per kind.

func Network(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf(format, args...), Err: err}
}

func DigestMismatch(expected, actual string) *Error {
	return New(KindDigestMismatch, "digest mismatch (expected %s, got %s); download corrupted or file changed", expected, actual)
}

func Format(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindFormat, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func NotInstalled(id string) *Error {
	return New(KindNotInstalled, "package is not installed").ForPackage(id)
}

func Storage(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}
