package pipeline

import (
	"fmt"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// ErrNoOverlay is returned when Process runs before SetOverlay. It wraps
// pixbuf.ErrInvalidHandle.
var ErrNoOverlay = fmt.Errorf("%w: no overlay set", pixbuf.ErrInvalidHandle)

// Stage is a step of one Process call.
type Stage int

const (
	Idle Stage = iota
	Validating
	Converting
	Segmenting
	Thresholding
	Compositing
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Converting:
		return "converting"
	case Segmenting:
		return "segmenting"
	case Thresholding:
		return "thresholding"
	case Compositing:
		return "compositing"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// StageError records the stage a call aborted in.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Mutated reports whether the frame may have been written before the abort.
// Only the compositing stage writes to the frame.
func (e *StageError) Mutated() bool {
	return e.Stage == Compositing
}
