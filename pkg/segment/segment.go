// Package segment marks overlay-eligible pixels in an HSV buffer.
//
// Each channel accepts a band centred on a fixed reference value. The band is
// widened by a sensitivity in [MinSensitivity, MaxSensitivity]: the minimum
// accepts nothing, the maximum accepts the whole channel range, and anything
// in between grows monotonically.
package segment

import (
	"fmt"

	"github.com/teslashibe/go-tattoo/pkg/colorspace"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// Sensitivity bounds.
const (
	MinSensitivity = 0
	MaxSensitivity = 255
)

// Mask values.
const (
	Ineligible uint8 = 0
	Eligible   uint8 = 255
)

// Sensitivity widens the hue, saturation and value acceptance bands.
type Sensitivity struct {
	Hue int `json:"hue"`
	Sat int `json:"sat"`
	Val int `json:"val"`
}

// LegacySensitivity reproduces the fixed skin band H 0-20, S 48-255,
// V 80-255 when used with DefaultCenter.
var LegacySensitivity = Sensitivity{Hue: 29, Sat: 174, Val: 133}

// Full returns a sensitivity that accepts every pixel.
func Full() Sensitivity {
	return Sensitivity{Hue: MaxSensitivity, Sat: MaxSensitivity, Val: MaxSensitivity}
}

// Clamp returns s with every component clamped into range, and whether any
// component changed.
func (s Sensitivity) Clamp() (Sensitivity, bool) {
	c := Sensitivity{Hue: clamp(s.Hue), Sat: clamp(s.Sat), Val: clamp(s.Val)}
	return c, c != s
}

// String implements fmt.Stringer.
func (s Sensitivity) String() string {
	return fmt.Sprintf("h=%d s=%d v=%d", s.Hue, s.Sat, s.Val)
}

func clamp(v int) int {
	return min(max(v, MinSensitivity), MaxSensitivity)
}

// Center is the reference HSV value the bands are centred on.
type Center struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// DefaultCenter is the midpoint of the legacy skin band. It has not been
// calibrated against real footage.
var DefaultCenter = Center{H: 10, S: 152, V: 168}

// Segmenter produces eligibility masks. The zero value uses a black centre;
// use New for the default centre.
type Segmenter struct {
	Center Center
}

// New creates a segmenter around c.
func New(c Center) *Segmenter {
	return &Segmenter{Center: c}
}

// band is a precomputed acceptance test for one channel.
type band struct {
	accept [256]bool
}

func newBand(center uint8, sens int, circular bool) *band {
	var bd band
	var maxDist int
	if circular {
		maxDist = colorspace.HueRange / 2
	} else {
		maxDist = max(int(center), 255-int(center))
	}
	limit := sens * (maxDist + 1)
	for v := 0; v < 256; v++ {
		d := v - int(center)
		if d < 0 {
			d = -d
		}
		if circular {
			d %= colorspace.HueRange
			d = min(d, colorspace.HueRange-d)
		}
		bd.accept[v] = d*255 < limit
	}
	return &bd
}

// Table holds precomputed per-channel acceptance tables for one sensitivity.
type Table struct {
	h, s, v *band
}

// Table builds the lookup tables for sens. Sensitivities are clamped.
func (sg *Segmenter) Table(sens Sensitivity) *Table {
	sens, _ = sens.Clamp()
	return &Table{
		h: newBand(sg.Center.H, sens.Hue, true),
		s: newBand(sg.Center.S, sens.Sat, false),
		v: newBand(sg.Center.V, sens.Val, false),
	}
}

// Eligible reports whether one HSV pixel is inside all three bands.
func (t *Table) Eligible(h, s, v uint8) bool {
	return t.h.accept[h] && t.s.accept[s] && t.v.accept[v]
}

// Segment writes Eligible or Ineligible into mask for every pixel of hsv.
// hsv is a 3-channel H,S,V buffer as produced by colorspace.ToHSV; mask is a
// Gray buffer of the same size. It returns the number of eligible pixels.
func (sg *Segmenter) Segment(hsv, mask *pixbuf.Buffer, sens Sensitivity) (int, error) {
	if err := hsv.Validate(); err != nil {
		return 0, err
	}
	if err := mask.Validate(); err != nil {
		return 0, err
	}
	if hsv.Channels() != 3 {
		return 0, pixbuf.ShapeErr("segment", hsv.Shape(), "hsv input must have 3 channels")
	}
	want := pixbuf.Shape{Width: hsv.Width, Height: hsv.Height, Layout: pixbuf.Gray}
	if mask.Shape() != want {
		return 0, &pixbuf.ShapeError{Op: "segment", Want: want, Got: mask.Shape()}
	}

	tbl := sg.Table(sens)
	n := 0
	for y := 0; y < hsv.Height; y++ {
		in := hsv.Row(y)
		out := mask.Row(y)
		for x := range out {
			i := x * 3
			if tbl.Eligible(in[i], in[i+1], in[i+2]) {
				out[x] = Eligible
				n++
			} else {
				out[x] = Ineligible
			}
		}
	}
	return n, nil
}
