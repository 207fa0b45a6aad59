package composite

import (
	"image"
	"math"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// Footprint returns the rectangle, in frame coordinates, that the overlay is
// resampled onto. It may extend past the frame; callers clip it. mask is only
// consulted for MaskCentroid and may be nil otherwise.
func (c Config) Footprint(frame image.Rectangle, overlay image.Point, mask *pixbuf.Buffer) image.Rectangle {
	fw, fh := frame.Dx(), frame.Dy()
	w, h := fw, fh

	switch c.Fit {
	case Contain:
		s := math.Min(float64(fw)/float64(overlay.X), float64(fh)/float64(overlay.Y))
		w = max(1, int(math.Round(float64(overlay.X)*s)))
		h = max(1, int(math.Round(float64(overlay.Y)*s)))
	case Native:
		s := c.Scale
		if s <= 0 {
			s = 1
		}
		w = max(1, int(math.Round(float64(overlay.X)*s)))
		h = max(1, int(math.Round(float64(overlay.Y)*s)))
	}

	var origin image.Point
	switch c.Anchor {
	case TopLeft:
		origin = image.Pt(0, 0)
	case MaskCentroid:
		if cx, cy, ok := Centroid(mask); ok {
			origin = image.Pt(cx-w/2, cy-h/2)
			break
		}
		fallthrough
	default:
		origin = image.Pt((fw-w)/2, (fh-h)/2)
	}

	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}.Add(frame.Min)
}

// Centroid returns the centre of mass of the non-zero pixels of mask,
// rounded to the nearest pixel. ok is false for a nil or empty mask.
func Centroid(mask *pixbuf.Buffer) (x, y int, ok bool) {
	if mask == nil || mask.Validate() != nil {
		return 0, 0, false
	}
	var m00, m10, m01 int64
	for j := 0; j < mask.Height; j++ {
		row := mask.Row(j)
		c := mask.Channels()
		for i := 0; i < mask.Width; i++ {
			if row[i*c] != 0 {
				m00++
				m10 += int64(i)
				m01 += int64(j)
			}
		}
	}
	if m00 == 0 {
		return 0, 0, false
	}
	return int((2*m10 + m00) / (2 * m00)), int((2*m01 + m00) / (2 * m00)), true
}
