// Package herrors defines the error taxonomy shared across historify's
// components, so that the CLI can map any failure back to an exit code
// without string-matching messages.
package herrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error categories from the historify error taxonomy.
type Kind int

const (
	// KindConfig covers an unitialized repository, invalid key, or missing setting.
	KindConfig Kind = iota
	// KindIO covers an unreadable file, unwritable directory, or stuck lock.
	KindIO
	// KindSchema covers a CSV header mismatch or illegal transaction_type.
	KindSchema
	// KindSignature covers a missing key, bad password, or invalid signature.
	KindSignature
	// KindChain covers a broken hash-chain reference.
	KindChain
	// KindState covers a lifecycle call made from an incompatible state.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindIO:
		return "IoError"
	case KindSchema:
		return "SchemaError"
	case KindSignature:
		return "SignatureError"
	case KindChain:
		return "ChainError"
	case KindState:
		return "StateError"
	default:
		return "Error"
	}
}

// Error is a taxonomy-tagged error. It wraps an underlying cause using
// github.com/pkg/errors so that %+v printing still yields a stack trace at
// the point the kind was assigned.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap lets errors.Is / errors.As reach the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// New creates a taxonomy error with no further cause.
func New(kind Kind, msg string) error {
	return errors.WithStack(&Error{Kind: kind, msg: msg})
}

// Newf is New with Printf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, msg: fmt.Sprintf(format, args...)})
}

// Wrap attaches a taxonomy kind to an existing error, preserving it as the cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, msg: msg, err: err})
}

// Wrapf is Wrap with Printf-style formatting.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err})
}

// KindOf recovers the taxonomy kind from an error, walking the cause chain.
// The second return is false if no *Error is anywhere in the chain. errors.As
// is required here rather than a plain type assertion: New/Wrap attach a
// stack trace via errors.WithStack, which returns its own wrapper type
// around *Error.
func KindOf(err error) (Kind, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind, true
	}
	return 0, false
}

// ExitCode maps an error (or nil) to historify's exit-code policy:
// 0 clean, 1 generic error, 2 warnings-only (signaled via Warning), 3 integrity failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var w *Warning
	if errors.As(err, &w) {
		return 2
	}
	if kind, ok := KindOf(err); ok && kind == KindChain {
		return 3
	}
	return 1
}

// Warning marks a non-fatal issue list (e.g. check-config found soft issues,
// or verify completed with warnings only) that should surface as exit code 2
// rather than 1.
type Warning struct {
	msg string
}

func (w *Warning) Error() string { return w.msg }

// NewWarning constructs a Warning.
func NewWarning(msg string) error { return &Warning{msg: msg} }
