// Package threshold binarises reference art with a local adaptive threshold.
//
// Each pixel is compared against a statistic of its BlockSize x BlockSize
// neighbourhood (replicated borders) instead of one global level, so line
// work stays legible on photos of unevenly lit paper. Dark pixels become ink
// (255); everything else is 0. The arithmetic is integer-only so the same
// input bytes always give the same stencil.
package threshold

import (
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-tattoo/pkg/colorspace"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// Stencil values.
const (
	Paper uint8 = 0
	Ink   uint8 = 255
)

// Method selects the neighbourhood statistic.
type Method int

const (
	// Mean uses the plain box average of the window.
	Mean Method = iota
	// Gaussian uses a Gaussian-weighted average of the window.
	Gaussian
)

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case Mean:
		return "mean"
	case Gaussian:
		return "gaussian"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps "mean" or "gaussian" to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "mean", "":
		return Mean, nil
	case "gaussian":
		return Gaussian, nil
	}
	return Mean, fmt.Errorf("threshold: unknown method %q", s)
}

// Config holds the thresholder constants.
type Config struct {
	BlockSize int    // Window side in pixels, odd and >= 3
	Offset    int    // A pixel is ink when it is at least Offset below the local statistic
	Method    Method // Neighbourhood statistic
}

// DefaultConfig returns the production thresholder settings.
func DefaultConfig() Config {
	return Config{
		BlockSize: 11,
		Offset:    2,
		Method:    Mean,
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("threshold: invalid config")

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	if c.BlockSize < 3 || c.BlockSize%2 == 0 {
		return fmt.Errorf("%w: block size must be odd and >= 3, got %d", ErrInvalidConfig, c.BlockSize)
	}
	if c.Offset < -255 || c.Offset > 255 {
		return fmt.Errorf("%w: offset must be within [-255, 255], got %d", ErrInvalidConfig, c.Offset)
	}
	if c.Method != Mean && c.Method != Gaussian {
		return fmt.Errorf("%w: unknown method %d", ErrInvalidConfig, int(c.Method))
	}
	return nil
}

// Thresholder produces stencils.
type Thresholder struct {
	cfg    Config
	kernel []int // fixed-point weights summing to kernelOne, Gaussian only
}

const (
	kernelShift = 8
	kernelOne   = 1 << kernelShift
)

// New creates a thresholder, validating cfg.
func New(cfg Config) (*Thresholder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Thresholder{cfg: cfg}
	if cfg.Method == Gaussian {
		t.kernel = gaussianKernel(cfg.BlockSize)
	}
	return t, nil
}

// Config returns the thresholder configuration.
func (t *Thresholder) Config() Config {
	return t.cfg
}

// Stencil writes the stencil of src into dst, a Gray buffer of the same size.
// src is never modified.
func (t *Thresholder) Stencil(src, dst *pixbuf.Buffer) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	want := pixbuf.Shape{Width: src.Width, Height: src.Height, Layout: pixbuf.Gray}
	if dst.Shape() != want {
		return &pixbuf.ShapeError{Op: "stencil", Want: want, Got: dst.Shape()}
	}

	gray := pixbuf.NewMask(src.Width, src.Height)
	if err := colorspace.ToGray(src, gray); err != nil {
		return err
	}

	var local []int
	if t.cfg.Method == Gaussian {
		local = t.gaussianMean(gray)
	} else {
		local = t.boxMean(gray)
	}

	w := src.Width
	for y := 0; y < src.Height; y++ {
		in := gray.Row(y)
		out := dst.Row(y)
		for x := 0; x < w; x++ {
			if int(in[x])-local[y*w+x] <= -t.cfg.Offset {
				out[x] = Ink
			} else {
				out[x] = Paper
			}
		}
	}
	return nil
}

// Compute allocates and returns the stencil of src.
func (t *Thresholder) Compute(src *pixbuf.Buffer) (*pixbuf.Buffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	dst := pixbuf.NewMask(src.Width, src.Height)
	if err := t.Stencil(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// boxMean returns the rounded window average for every pixel.
func (t *Thresholder) boxMean(gray *pixbuf.Buffer) []int {
	w, h := gray.Width, gray.Height
	r := t.cfg.BlockSize / 2
	area := t.cfg.BlockSize * t.cfg.BlockSize

	rows := make([]int, w*h)
	for y := 0; y < h; y++ {
		in := gray.Row(y)
		sum := 0
		for k := -r; k <= r; k++ {
			sum += int(in[clampIndex(k, w)])
		}
		for x := 0; x < w; x++ {
			rows[y*w+x] = sum
			sum += int(in[clampIndex(x+r+1, w)]) - int(in[clampIndex(x-r, w)])
		}
	}

	out := make([]int, w*h)
	for x := 0; x < w; x++ {
		sum := 0
		for k := -r; k <= r; k++ {
			sum += rows[clampIndex(k, h)*w+x]
		}
		for y := 0; y < h; y++ {
			out[y*w+x] = (sum + area/2) / area
			sum += rows[clampIndex(y+r+1, h)*w+x] - rows[clampIndex(y-r, h)*w+x]
		}
	}
	return out
}

// gaussianMean returns the rounded Gaussian-weighted average for every pixel.
func (t *Thresholder) gaussianMean(gray *pixbuf.Buffer) []int {
	w, h := gray.Width, gray.Height
	r := t.cfg.BlockSize / 2

	rows := make([]int, w*h)
	for y := 0; y < h; y++ {
		in := gray.Row(y)
		for x := 0; x < w; x++ {
			sum := 0
			for k := -r; k <= r; k++ {
				sum += t.kernel[k+r] * int(in[clampIndex(x+k, w)])
			}
			rows[y*w+x] = sum
		}
	}

	const half = 1 << (2*kernelShift - 1)
	out := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -r; k <= r; k++ {
				sum += t.kernel[k+r] * rows[clampIndex(y+k, h)*w+x]
			}
			out[y*w+x] = (sum + half) >> (2 * kernelShift)
		}
	}
	return out
}

// gaussianKernel builds a fixed-point 1-D kernel using OpenCV's sigma rule
// for a zero sigma. Weights sum to exactly kernelOne.
func gaussianKernel(size int) []int {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	r := size / 2

	fw := make([]float64, size)
	var total float64
	for i := range fw {
		d := float64(i - r)
		fw[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		total += fw[i]
	}

	k := make([]int, size)
	sum := 0
	for i := range k {
		k[i] = int(math.Round(fw[i] / total * kernelOne))
		sum += k[i]
	}
	k[r] += kernelOne - sum
	return k
}

// clampIndex replicates the border: indices outside [0, n) snap to the edge.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
