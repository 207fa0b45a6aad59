package composite

import (
	"fmt"
	"image/color"

	"golang.org/x/image/draw"
)

// Mode selects how stencil pixels are painted into the frame.
type Mode int

const (
	// Binary paints a flat ink color.
	Binary Mode = iota
	// Colorized blends the overlay's own color.
	Colorized
)

// ModeFromFlag maps the caller's boolean mode flag to a Mode.
func ModeFromFlag(colorized bool) Mode {
	if colorized {
		return Colorized
	}
	return Binary
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Binary:
		return "binary"
	case Colorized:
		return "colorized"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Anchor positions the overlay footprint inside the frame.
type Anchor int

const (
	// Center centres the footprint on the frame.
	Center Anchor = iota
	// TopLeft pins the footprint to the frame origin.
	TopLeft
	// MaskCentroid centres the footprint on the centre of mass of the
	// eligible mask pixels, falling back to Center for an empty mask.
	MaskCentroid
)

// Fit sizes the overlay footprint.
type Fit int

const (
	// Stretch maps the overlay onto the whole frame.
	Stretch Fit = iota
	// Contain scales the overlay to the largest size that fits the frame
	// while keeping its aspect ratio.
	Contain
	// Native keeps the overlay size multiplied by Config.Scale.
	Native
)

// Interpolation selects the color resampler. Stencils always use nearest
// neighbour so they stay binary.
type Interpolation int

const (
	Nearest Interpolation = iota
	Bilinear
)

func (i Interpolation) interpolator() draw.Interpolator {
	if i == Bilinear {
		return draw.BiLinear
	}
	return draw.NearestNeighbor
}

// Config holds compositor placement and color settings.
type Config struct {
	Anchor        Anchor        `json:"anchor"`
	Fit           Fit           `json:"fit"`
	Scale         float64       `json:"scale"` // Native fit only; <= 0 means 1
	Interpolation Interpolation `json:"interpolation"`

	// Ink is the flat color used in Binary mode.
	Ink color.RGBA `json:"ink"`

	// Opacity scales the overlay color in Colorized mode. 255 substitutes the
	// overlay color directly.
	Opacity uint8 `json:"opacity"`
}

// DefaultInk is a near-black tattoo ink.
var DefaultInk = color.RGBA{R: 20, G: 20, B: 20, A: 255}

// DefaultConfig returns the production compositor settings.
func DefaultConfig() Config {
	return Config{
		Anchor:        Center,
		Fit:           Stretch,
		Scale:         1,
		Interpolation: Nearest,
		Ink:           DefaultInk,
		Opacity:       255,
	}
}

// ParseAnchor maps "center", "top-left" or "centroid" to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch s {
	case "center", "":
		return Center, nil
	case "top-left":
		return TopLeft, nil
	case "centroid":
		return MaskCentroid, nil
	}
	return Center, fmt.Errorf("composite: unknown anchor %q", s)
}

// ParseFit maps "stretch", "contain" or "native" to a Fit.
func ParseFit(s string) (Fit, error) {
	switch s {
	case "stretch", "":
		return Stretch, nil
	case "contain":
		return Contain, nil
	case "native":
		return Native, nil
	}
	return Stretch, fmt.Errorf("composite: unknown fit %q", s)
}

// ParseInterpolation maps "nearest" or "bilinear" to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "nearest", "":
		return Nearest, nil
	case "bilinear":
		return Bilinear, nil
	}
	return Nearest, fmt.Errorf("composite: unknown interpolation %q", s)
}
