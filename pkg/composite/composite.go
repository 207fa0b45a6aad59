// Package composite paints a tattoo stencil into a camera frame in place.
//
// The overlay and its stencil are resampled onto a footprint rectangle of the
// frame (see Config.Footprint). Inside the footprint, every pixel that is both
// mask-eligible and inked in the stencil is overwritten: with a flat ink color
// in Binary mode, or with the overlay's own color in Colorized mode. All other
// frame bytes, including alpha, are left untouched.
package composite

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// Compositor composites stencils into frames. It keeps resampling scratch
// between calls and is not safe for concurrent use.
type Compositor struct {
	cfg Config

	stencil *image.Gray
	color   *image.NRGBA
}

// New creates a compositor.
func New(cfg Config) *Compositor {
	return &Compositor{cfg: cfg}
}

// Config returns the compositor configuration.
func (c *Compositor) Config() Config {
	return c.cfg
}

// Compose writes the stencil into frame. mask must be a Gray buffer the size
// of frame; stencil must be a Gray buffer the size of overlay. overlay is
// only read. It returns the number of frame pixels written.
func (c *Compositor) Compose(frame, mask, overlay, stencil *pixbuf.Buffer, mode Mode) (int, error) {
	for _, b := range []*pixbuf.Buffer{frame, mask, overlay, stencil} {
		if err := b.Validate(); err != nil {
			return 0, err
		}
	}
	if !frame.Layout.IsColor() {
		return 0, pixbuf.ShapeErr("compose", frame.Shape(), "frame must have color channels")
	}
	if want := (pixbuf.Shape{Width: frame.Width, Height: frame.Height, Layout: pixbuf.Gray}); mask.Shape() != want {
		return 0, &pixbuf.ShapeError{Op: "compose", Want: want, Got: mask.Shape()}
	}
	if want := (pixbuf.Shape{Width: overlay.Width, Height: overlay.Height, Layout: pixbuf.Gray}); stencil.Shape() != want {
		return 0, &pixbuf.ShapeError{Op: "compose", Want: want, Got: stencil.Shape()}
	}

	fp := c.cfg.Footprint(frame.Bounds(), image.Pt(overlay.Width, overlay.Height), mask)
	clip := fp.Intersect(frame.Bounds())
	if clip.Empty() {
		return 0, nil
	}

	st := c.resampleStencil(stencil, fp, clip)
	var col *image.NRGBA
	if mode == Colorized {
		col = c.resampleColor(overlay, fp, clip)
	}

	ink := c.cfg.Ink
	n := 0
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			if mask.Gray(x, y) == 0 || st.Pix[st.PixOffset(x, y)] == 0 {
				continue
			}
			if mode == Colorized {
				c.blend(frame, x, y, col, col.PixOffset(x, y))
			} else {
				frame.SetRGB(x, y, ink.R, ink.G, ink.B)
			}
			n++
		}
	}
	return n, nil
}

// resampleStencil scales the stencil onto the footprint with nearest
// neighbour, keeping only the part inside clip.
func (c *Compositor) resampleStencil(stencil *pixbuf.Buffer, fp, clip image.Rectangle) *image.Gray {
	if c.stencil == nil || c.stencil.Rect != clip {
		c.stencil = image.NewGray(clip)
	}
	draw.NearestNeighbor.Scale(c.stencil, fp, stencil.GrayImage(), stencil.Bounds(), draw.Src, nil)
	return c.stencil
}

// resampleColor scales the overlay colors onto the footprint with the
// configured interpolator.
func (c *Compositor) resampleColor(overlay *pixbuf.Buffer, fp, clip image.Rectangle) *image.NRGBA {
	if c.color == nil || c.color.Rect != clip {
		c.color = image.NewNRGBA(clip)
	}
	c.cfg.Interpolation.interpolator().Scale(c.color, fp, overlay, overlay.Bounds(), draw.Src, nil)
	return c.color
}

// blend mixes the overlay color at col.Pix[i:] into frame pixel (x, y),
// weighted by the configured opacity and the overlay's own alpha.
func (c *Compositor) blend(frame *pixbuf.Buffer, x, y int, col *image.NRGBA, i int) {
	or, og, ob, oa := uint32(col.Pix[i]), uint32(col.Pix[i+1]), uint32(col.Pix[i+2]), uint32(col.Pix[i+3])
	a := (uint32(c.cfg.Opacity)*oa + 127) / 255
	if a == 255 {
		frame.SetRGB(x, y, uint8(or), uint8(og), uint8(ob))
		return
	}
	fr, fg, fb := frame.RGB(x, y)
	mix := func(o uint32, f uint8) uint8 {
		return uint8((o*a + uint32(f)*(255-a) + 127) / 255)
	}
	frame.SetRGB(x, y, mix(or, fr), mix(og, fg), mix(ob, fb))
}
