package pipeline

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-tattoo/pkg/composite"
	"github.com/teslashibe/go-tattoo/pkg/segment"
	"github.com/teslashibe/go-tattoo/pkg/threshold"
)

// Params are the per-call knobs supplied by the caller, typically from UI
// sliders. They are not retained between calls.
type Params struct {
	// Colorized selects colorized compositing instead of flat ink.
	Colorized bool `json:"colorized"`

	// Sensitivity widens the hue/saturation/value eligibility bands.
	// Out-of-range values are clamped, never rejected.
	Sensitivity segment.Sensitivity `json:"sensitivity"`
}

// DefaultParams reproduces the legacy fixed-parameter call: flat ink and the
// legacy skin band.
func DefaultParams() Params {
	return Params{
		Colorized:   false,
		Sensitivity: segment.LegacySensitivity,
	}
}

// WithMode returns a copy of p with the mode flag set.
func (p Params) WithMode(colorized bool) Params {
	p.Colorized = colorized
	return p
}

// WithSensitivity returns a copy of p with the given sensitivities.
func (p Params) WithSensitivity(hue, sat, val int) Params {
	p.Sensitivity = segment.Sensitivity{Hue: hue, Sat: sat, Val: val}
	return p
}

// Mode returns the compositing mode selected by the flag.
func (p Params) Mode() composite.Mode {
	return composite.ModeFromFlag(p.Colorized)
}

// Config holds the fixed pipeline configuration. None of it is tunable per
// call; tests inject different constants here.
type Config struct {
	// Center is the segmenter reference color.
	Center segment.Center

	// Threshold configures the overlay stencil.
	Threshold threshold.Config

	// Composite configures placement, resampling and ink.
	Composite composite.Config

	// FrameBudget is the expected per-frame time. Overruns are reported, not
	// enforced. Zero disables the check.
	FrameBudget time.Duration

	// Logger receives debug notes (clamping, budget overruns). Nil uses the
	// global logger.
	Logger *slog.Logger

	// OnFrame, if set, receives a report after every successful call.
	OnFrame func(Report)
}

// DefaultConfig returns production defaults for a 30 fps camera.
func DefaultConfig() Config {
	return Config{
		Center:      segment.DefaultCenter,
		Threshold:   threshold.DefaultConfig(),
		Composite:   composite.DefaultConfig(),
		FrameBudget: 33 * time.Millisecond,
	}
}
