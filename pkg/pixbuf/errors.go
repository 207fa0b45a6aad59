package pixbuf

import (
	"errors"
	"fmt"
)

// Sentinel errors for buffer validation.
var (
	// ErrInvalidHandle is returned when a buffer is nil or has no backing memory.
	ErrInvalidHandle = errors.New("pixbuf: invalid buffer handle")

	// ErrShapeMismatch is returned when dimensions, stride or layout are
	// inconsistent with what an operation expects.
	ErrShapeMismatch = errors.New("pixbuf: shape mismatch")
)

// Shape describes the geometry of a buffer for error reporting.
type Shape struct {
	Width  int
	Height int
	Layout Layout
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%d %s", s.Width, s.Height, s.Layout)
}

// ShapeError reports a shape mismatch detected by an operation.
type ShapeError struct {
	// Op is the operation that rejected the buffer.
	Op string

	// Want and Got describe the expected and actual shapes.
	Want Shape
	Got  Shape

	// Reason is a short free-form detail (optional).
	Reason string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pixbuf: %s: shape mismatch: %s (got %s)", e.Op, e.Reason, e.Got)
	}
	return fmt.Sprintf("pixbuf: %s: shape mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch so callers can use errors.Is.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// ShapeErr builds a ShapeError with a reason.
func ShapeErr(op string, got Shape, reason string) error {
	return &ShapeError{Op: op, Got: got, Reason: reason}
}
