package containers

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/containers/structfmt"
)

var (
	ErrMissingArgument = errors.New("containers: missing argument")
	ErrInvalidType     = errors.New("containers: invalid type")
	ErrInvalidValue    = errors.New("containers: invalid value")
	ErrSizeMismatch    = errors.New("containers: size mismatch")
	ErrNotTerminated   = errors.New("containers: not terminated")

	// ErrInvalidFormat is returned for unparsable struct formats.
	ErrInvalidFormat = structfmt.ErrInvalidFormat
)

// FormatError describes an unparsable struct format.
type FormatError = structfmt.FormatError

type MissingArgumentError struct {
	Min int
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("containers: positional argument missing (minimum %d expected)", e.Min)
}

func (e *MissingArgumentError) Unwrap() error { return ErrMissingArgument }

// ParamError is a constructor parameter or value of the wrong kind
// (Err is ErrInvalidType) or with a disallowed value (ErrInvalidValue).
type ParamError struct {
	Param string
	Value any
	Want  string
	Err   error
	Cause error
}

func (e *ParamError) Error() string {
	kind := "value"
	if e.Err == ErrInvalidType {
		kind = "type"
	}
	msg := fmt.Sprintf("containers: invalid %s param %s: %v", e.Param, kind, e.Value)
	if e.Want != "" {
		msg += " (expected " + e.Want + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParamError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func invalidType(param string, v any, want string) error {
	return &ParamError{Param: param, Value: v, Want: want, Err: ErrInvalidType}
}

func invalidValue(param string, v any, want string) error {
	return &ParamError{Param: param, Value: v, Want: want, Err: ErrInvalidValue}
}

// SizeMismatchError is an encode input or decode buffer whose length
// disagrees with what the container requires.
type SizeMismatchError struct {
	Param string // "value" or "data"
	Want  string
	Got   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("containers: param %s is invalid, expected %s size, got %d", e.Param, e.Want, e.Got)
}

func (e *SizeMismatchError) Unwrap() error { return ErrSizeMismatch }

func sizeMismatch(param string, want any, got int) error {
	return &SizeMismatchError{Param: param, Want: fmt.Sprint(want), Got: got}
}

type NotTerminatedError struct {
	Terminator []byte
}

func (e *NotTerminatedError) Error() string {
	return fmt.Sprintf("containers: should end with terminator %q", e.Terminator)
}

func (e *NotTerminatedError) Unwrap() error { return ErrNotTerminated }
