// Package pipeline drives one tattoo-overlay pass per camera frame.
//
// A call converts the frame to HSV, segments eligible pixels with the
// caller's sensitivities, and composites the overlay stencil into the frame
// in place. The pipeline runs synchronously on the caller's goroutine, holds
// no locks and spawns nothing; callers serialise Process and SetOverlay.
//
// The frame buffer is only borrowed: it is never reallocated and its size and
// layout never change. A failed call may leave the frame partially written
// (see StageError.Mutated).
package pipeline

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-tattoo/internal/log"
	"github.com/teslashibe/go-tattoo/pkg/colorspace"
	"github.com/teslashibe/go-tattoo/pkg/composite"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"github.com/teslashibe/go-tattoo/pkg/segment"
	"github.com/teslashibe/go-tattoo/pkg/threshold"
)

// Report summarises one successful call.
type Report struct {
	Frame       uint64
	Width       int
	Height      int
	Mode        composite.Mode
	Sensitivity segment.Sensitivity // after clamping
	Clamped     bool
	Eligible    int // mask pixels marked eligible
	Written     int // frame pixels overwritten
	Duration    time.Duration
	OverBudget  bool
}

// Pipeline holds the fixed configuration, the current overlay and reusable
// scratch. Scratch carries no state between frames.
type Pipeline struct {
	cfg Config
	log *slog.Logger

	segmenter   *segment.Segmenter
	thresholder *threshold.Thresholder
	compositor  *composite.Compositor

	overlay *pixbuf.Buffer
	stencil *pixbuf.Buffer

	hsv  *pixbuf.Buffer
	mask *pixbuf.Buffer

	frames uint64
	stage  Stage
}

// New creates a pipeline. It fails only on an invalid threshold config.
func New(cfg Config) (*Pipeline, error) {
	th, err := threshold.New(cfg.Threshold)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("pipeline")
	}
	return &Pipeline{
		cfg:         cfg,
		log:         logger,
		segmenter:   segment.New(cfg.Center),
		thresholder: th,
		compositor:  composite.New(cfg.Composite),
	}, nil
}

// SetOverlay replaces the overlay wholesale and precomputes its stencil. It
// must not be called while Process is running. The pipeline keeps a
// reference to o and never writes to it; callers must not mutate it in place
// afterwards.
func (p *Pipeline) SetOverlay(o *pixbuf.Buffer) error {
	if err := o.Validate(); err != nil {
		return &StageError{Stage: Validating, Err: err}
	}
	stencil, err := p.thresholder.Compute(o)
	if err != nil {
		return &StageError{Stage: Thresholding, Err: err}
	}
	p.overlay, p.stencil = o, stencil

	p.log.Debug("overlay replaced",
		"width", o.Width, "height", o.Height, "layout", o.Layout,
		"ink", stencil.CountNonZero())
	return nil
}

// Overlay returns the current overlay, or nil.
func (p *Pipeline) Overlay() *pixbuf.Buffer {
	return p.overlay
}

// Stencil returns the stencil of the current overlay, or nil.
func (p *Pipeline) Stencil() *pixbuf.Buffer {
	return p.stencil
}

// Stage returns the stage the last call reached. It is Idle after a
// successful call.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Frames returns the number of successful calls.
func (p *Pipeline) Frames() uint64 {
	return p.frames
}

// Mask returns the eligibility mask computed by the last call. It is scratch
// and is overwritten by the next call.
func (p *Pipeline) Mask() *pixbuf.Buffer {
	return p.mask
}

// Process composites the current overlay into frame in place.
func (p *Pipeline) Process(frame *pixbuf.Buffer, params Params) error {
	start := time.Now()

	p.stage = Validating
	if err := frame.Validate(); err != nil {
		return p.fail(err)
	}
	if !frame.Layout.IsColor() {
		return p.fail(pixbuf.ShapeErr("process", frame.Shape(), "frame must have color channels"))
	}
	if p.overlay == nil {
		return p.fail(ErrNoOverlay)
	}

	sens, clamped := params.Sensitivity.Clamp()
	if clamped {
		p.log.Debug("sensitivity clamped", "requested", params.Sensitivity, "used", sens)
	}
	p.ensureScratch(frame.Width, frame.Height)

	p.stage = Converting
	if err := colorspace.ToHSV(frame, p.hsv); err != nil {
		return p.fail(err)
	}

	p.stage = Segmenting
	eligible, err := p.segmenter.Segment(p.hsv, p.mask, sens)
	if err != nil {
		return p.fail(err)
	}

	// The stencil was computed when the overlay was set; the overlay is
	// immutable between SetOverlay calls.
	p.stage = Thresholding
	if !p.stencil.SameSize(p.overlay) {
		return p.fail(&pixbuf.ShapeError{Op: "stencil", Want: p.overlay.Shape(), Got: p.stencil.Shape()})
	}

	p.stage = Compositing
	written := 0
	if eligible > 0 {
		written, err = p.compositor.Compose(frame, p.mask, p.overlay, p.stencil, params.Mode())
		if err != nil {
			return p.fail(err)
		}
	}

	p.stage = Idle
	p.frames++

	rep := Report{
		Frame:       p.frames,
		Width:       frame.Width,
		Height:      frame.Height,
		Mode:        params.Mode(),
		Sensitivity: sens,
		Clamped:     clamped,
		Eligible:    eligible,
		Written:     written,
		Duration:    time.Since(start),
	}
	if p.cfg.FrameBudget > 0 && rep.Duration > p.cfg.FrameBudget {
		rep.OverBudget = true
		p.log.Debug("frame over budget", "frame", rep.Frame, "took", rep.Duration, "budget", p.cfg.FrameBudget)
	}
	if p.cfg.OnFrame != nil {
		p.cfg.OnFrame(rep)
	}
	return nil
}

func (p *Pipeline) fail(err error) error {
	return &StageError{Stage: p.stage, Err: err}
}

func (p *Pipeline) ensureScratch(w, h int) {
	if p.hsv == nil || p.hsv.Width != w || p.hsv.Height != h {
		p.hsv = pixbuf.New(w, h, pixbuf.RGB)
		p.mask = pixbuf.NewMask(w, h)
	}
}
