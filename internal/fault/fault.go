// Package fault classifies failures that abort a ledger operation.
//
// Every failure belongs to one class. Classes are cockroachdb/errors marks,
// so they survive fmt.Errorf wrapping and are tested with Is or ClassOf.
// None of the classes is retried automatically.
package fault

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrAuthorization marks signature mismatches, version incompatibility and wrong callers.
	ErrAuthorization = errors.New("authorization failure")

	// ErrInvariant marks balance and hash-chain mismatches and missing or duplicate notes.
	ErrInvariant = errors.New("invariant violation")

	// ErrOverflow marks checked arithmetic that left the representable range.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrExternal marks failures reported by an external collaborator or the transport.
	ErrExternal = errors.New("external call failure")
)

// Class identifies a failure class on the wire.
type Class uint8

const (
	ClassNone Class = iota
	ClassAuthorization
	ClassInvariant
	ClassOverflow
	ClassExternal
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassAuthorization:
		return "authorization"
	case ClassInvariant:
		return "invariant"
	case ClassOverflow:
		return "overflow"
	case ClassExternal:
		return "external"
	default:
		return "unclassified"
	}
}

// sentinel returns the mark for c, or nil.
func (c Class) sentinel() error {
	switch c {
	case ClassAuthorization:
		return ErrAuthorization
	case ClassInvariant:
		return ErrInvariant
	case ClassOverflow:
		return ErrOverflow
	case ClassExternal:
		return ErrExternal
	default:
		return nil
	}
}

// Authorizationf returns an authorization failure.
func Authorizationf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrAuthorization)
}

// Invariantf returns an invariant violation.
func Invariantf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvariant)
}

// Overflowf returns an arithmetic overflow.
func Overflowf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrOverflow)
}

// External wraps err as an external call failure.
func External(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrExternal)
}

// Externalf returns an external call failure without a cause.
func Externalf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrExternal)
}

// New rebuilds a classified error from its wire form.
func New(c Class, msg string) error {
	err := errors.New(msg)

	if s := c.sentinel(); s != nil {
		return errors.Mark(err, s)
	}

	return err
}

// Is reports whether err carries the given class mark.
func Is(err, class error) bool {
	return errors.Is(err, class)
}

// ClassOf returns the class of err.
// External wins over the class of a wrapped cause: a failure that crossed
// a collaborator boundary is reported as such.
func ClassOf(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrExternal):
		return ClassExternal
	case errors.Is(err, ErrAuthorization):
		return ClassAuthorization
	case errors.Is(err, ErrOverflow):
		return ClassOverflow
	case errors.Is(err, ErrInvariant):
		return ClassInvariant
	default:
		return ClassNone
	}
}
