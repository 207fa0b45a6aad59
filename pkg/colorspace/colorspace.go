// Package colorspace converts 8-bit color buffers to HSV and luma.
//
// HSV follows the OpenCV 8-bit convention so thresholds tuned against OpenCV
// carry over unchanged: hue is degrees/2 in [0, 180), saturation and value
// are in [0, 255]. All arithmetic is integer with round-half-up.
package colorspace

import (
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// HueRange is the exclusive upper bound of the 8-bit hue channel.
const HueRange = 180

// HSVPixel converts one RGB triple to 8-bit HSV.
func HSVPixel(r, g, b uint8) (h, s, v uint8) {
	ri, gi, bi := int(r), int(g), int(b)
	vmax := max(ri, gi, bi)
	vmin := min(ri, gi, bi)
	diff := vmax - vmin

	if vmax == 0 {
		return 0, 0, 0
	}
	s = uint8((255*diff*2 + vmax) / (2 * vmax))
	if diff == 0 {
		return 0, s, uint8(vmax)
	}

	// Hue numerator in sixths of a turn, scaled by diff.
	var num int
	switch vmax {
	case ri:
		num = gi - bi
	case gi:
		num = bi - ri + 2*diff
	default:
		num = ri - gi + 4*diff
	}

	// round(num * 30 / diff), half up, valid for negative num
	hv := floorDiv(num*60+diff, 2*diff)
	if hv < 0 {
		hv += HueRange
	}
	if hv >= HueRange {
		hv -= HueRange
	}
	return uint8(hv), s, uint8(vmax)
}

// Luma returns the BT.601 luma of an RGB triple in 14-bit fixed point.
func Luma(r, g, b uint8) uint8 {
	return uint8((4899*uint32(r) + 9617*uint32(g) + 1868*uint32(b) + 8192) >> 14)
}

// ToHSV converts a color buffer into dst, a 3-channel buffer of the same
// size. dst bytes are H, S, V in that order; dst.Layout must be RGB (used as
// a plain three-channel container).
func ToHSV(src, dst *pixbuf.Buffer) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	if !src.Layout.IsColor() {
		return pixbuf.ShapeErr("hsv", src.Shape(), "source must have color channels")
	}
	want := pixbuf.Shape{Width: src.Width, Height: src.Height, Layout: pixbuf.RGB}
	if dst.Shape() != want {
		return &pixbuf.ShapeError{Op: "hsv", Want: want, Got: dst.Shape()}
	}

	for y := 0; y < src.Height; y++ {
		out := dst.Row(y)
		for x := 0; x < src.Width; x++ {
			r, g, b := src.RGB(x, y)
			h, s, v := HSVPixel(r, g, b)
			o := x * 3
			out[o], out[o+1], out[o+2] = h, s, v
		}
	}
	return nil
}

// ToGray converts any buffer into dst, a Gray buffer of the same size.
// Gray sources are copied.
func ToGray(src, dst *pixbuf.Buffer) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	want := pixbuf.Shape{Width: src.Width, Height: src.Height, Layout: pixbuf.Gray}
	if dst.Shape() != want {
		return &pixbuf.ShapeError{Op: "gray", Want: want, Got: dst.Shape()}
	}

	if src.Layout == pixbuf.Gray {
		return dst.CopyFrom(src)
	}
	for y := 0; y < src.Height; y++ {
		out := dst.Row(y)
		for x := range out {
			out[x] = Luma(src.RGB(x, y))
		}
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
