package raster

import (
	"errors"
	"fmt"
)

var (
	ErrPrecondition = errors.New("precondition failed")
	ErrIO           = errors.New("raster i/o failure")
	ErrGeometry     = errors.New("geometry failure")
)

// Mismatch names the check a PreconditionError tripped on.
type Mismatch int

const (
	MismatchNone Mismatch = iota
	MismatchShape
	MismatchCRS
	MismatchResolution
	MismatchDType
	MismatchState
	MismatchType
	MismatchPoints
	MismatchOption
)

func (m Mismatch) String() string {
	switch m {
	case MismatchShape:
		return "shape"
	case MismatchCRS:
		return "crs"
	case MismatchResolution:
		return "resolution"
	case MismatchDType:
		return "dtype"
	case MismatchState:
		return "state"
	case MismatchType:
		return "type"
	case MismatchPoints:
		return "points"
	case MismatchOption:
		return "option"
	default:
		return "none"
	}
}

// PreconditionError reports input that an operation refuses to work on.
type PreconditionError struct {
	Op       string
	Mismatch Mismatch
	Msg      string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s mismatch: %s", e.Op, e.Mismatch, e.Msg)
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

func Preconditionf(op string, m Mismatch, format string, args ...any) error {
	return &PreconditionError{Op: op, Mismatch: m, Msg: fmt.Sprintf(format, args...)}
}

// IOError carries the path of the file that could not be opened, read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

type GeometryError struct {
	Op  string
	Err error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

func (e *GeometryError) Is(target error) bool { return target == ErrGeometry }

// MismatchOf returns the mismatch category of err, or MismatchNone when err
// is not a precondition failure.
func MismatchOf(err error) Mismatch {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Mismatch
	}
	return MismatchNone
}
