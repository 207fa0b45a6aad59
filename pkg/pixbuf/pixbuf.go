// Package pixbuf provides a non-owning view over externally allocated 8-bit
// pixel memory.
//
// A Buffer never allocates or frees the memory it describes unless it was
// created with New. Camera frames are wrapped once per session and reused for
// every frame, so every accessor works in place on Pix.
package pixbuf

import (
	"bytes"
	"fmt"
)

// Layout is the channel order of a buffer.
type Layout int

const (
	// RGB is 3 channels, red first.
	RGB Layout = iota
	// RGBA is 4 channels, red first, alpha last.
	RGBA
	// BGR is 3 channels, blue first (OpenCV default).
	BGR
	// BGRA is 4 channels, blue first, alpha last.
	BGRA
	// Gray is a single 8-bit channel. Masks and stencils use it.
	Gray
)

// Channels returns the number of bytes per pixel.
func (l Layout) Channels() int {
	switch l {
	case RGB, BGR:
		return 3
	case RGBA, BGRA:
		return 4
	case Gray:
		return 1
	}
	return 0
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l.Channels() > 0
}

// HasAlpha reports whether the layout carries an alpha channel.
func (l Layout) HasAlpha() bool {
	return l == RGBA || l == BGRA
}

// IsColor reports whether the layout has red, green and blue channels.
func (l Layout) IsColor() bool {
	return l.Channels() >= 3
}

// offsets returns the byte offsets of red, green and blue within a pixel.
func (l Layout) offsets() (r, g, b int) {
	switch l {
	case BGR, BGRA:
		return 2, 1, 0
	case Gray:
		return 0, 0, 0
	}
	return 0, 1, 2
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	switch l {
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	case BGR:
		return "BGR"
	case BGRA:
		return "BGRA"
	case Gray:
		return "Gray"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Buffer is a borrowed view over an 8-bit image.
type Buffer struct {
	// Pix holds the pixel bytes. Row y starts at Pix[y*Stride].
	Pix []byte

	Width  int
	Height int

	// Stride is the distance in bytes between vertically adjacent pixels.
	Stride int

	Layout Layout
}

// Wrap validates caller memory and returns a view over it. pix is not copied.
func Wrap(pix []byte, width, height, stride int, layout Layout) (*Buffer, error) {
	b := &Buffer{Pix: pix, Width: width, Height: height, Stride: stride, Layout: layout}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// New allocates a tightly packed buffer. Only scratch space and tests use it;
// frame memory always comes from the caller.
func New(width, height int, layout Layout) *Buffer {
	stride := width * layout.Channels()
	return &Buffer{
		Pix:    make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
		Layout: layout,
	}
}

// NewMask allocates a single-channel 0/255 mask.
func NewMask(width, height int) *Buffer {
	return New(width, height, Gray)
}

// Shape returns the buffer geometry.
func (b *Buffer) Shape() Shape {
	if b == nil {
		return Shape{}
	}
	return Shape{Width: b.Width, Height: b.Height, Layout: b.Layout}
}

// Validate checks the buffer before any memory is touched.
func (b *Buffer) Validate() error {
	if b == nil || b.Pix == nil {
		return ErrInvalidHandle
	}
	if !b.Layout.Valid() {
		return ShapeErr("validate", b.Shape(), "unknown layout")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return ShapeErr("validate", b.Shape(), "zero dimensions")
	}
	rowBytes := b.Width * b.Layout.Channels()
	if b.Stride < rowBytes {
		return ShapeErr("validate", b.Shape(), fmt.Sprintf("stride %d < row size %d", b.Stride, rowBytes))
	}
	if need := (b.Height-1)*b.Stride + rowBytes; len(b.Pix) < need {
		return ShapeErr("validate", b.Shape(), fmt.Sprintf("pix holds %d bytes, need %d", len(b.Pix), need))
	}
	return nil
}

// Channels returns the number of bytes per pixel.
func (b *Buffer) Channels() int {
	return b.Layout.Channels()
}

// SameSize reports whether b and o have identical width and height.
func (b *Buffer) SameSize(o *Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// SameShape reports whether b and o have identical size and layout.
func (b *Buffer) SameShape(o *Buffer) bool {
	return b.SameSize(o) && b.Layout == o.Layout
}

// Offset returns the index of the first byte of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return y*b.Stride + x*b.Layout.Channels()
}

// Row returns the bytes of row y, without stride padding.
func (b *Buffer) Row(y int) []byte {
	i := y * b.Stride
	return b.Pix[i : i+b.Width*b.Layout.Channels()]
}

// Pixel returns the bytes of pixel (x, y) as a sub-slice of Pix.
func (b *Buffer) Pixel(x, y int) []byte {
	i := b.Offset(x, y)
	return b.Pix[i : i+b.Layout.Channels() : i+b.Layout.Channels()]
}

// RGB reads pixel (x, y) as red, green, blue. Gray buffers return the gray
// value on all three channels.
func (b *Buffer) RGB(x, y int) (r, g, bl uint8) {
	i := b.Offset(x, y)
	ro, gO, bo := b.Layout.offsets()
	return b.Pix[i+ro], b.Pix[i+gO], b.Pix[i+bo]
}

// SetRGB writes red, green, blue to pixel (x, y). Alpha is left untouched.
func (b *Buffer) SetRGB(x, y int, r, g, bl uint8) {
	i := b.Offset(x, y)
	if b.Layout == Gray {
		b.Pix[i] = uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(bl) + 1<<15) >> 16)
		return
	}
	ro, gO, bo := b.Layout.offsets()
	b.Pix[i+ro], b.Pix[i+gO], b.Pix[i+bo] = r, g, bl
}

// Alpha returns the alpha of pixel (x, y); layouts without alpha are opaque.
func (b *Buffer) Alpha(x, y int) uint8 {
	if !b.Layout.HasAlpha() {
		return 0xff
	}
	return b.Pix[b.Offset(x, y)+3]
}

// Gray reads the first channel of pixel (x, y).
func (b *Buffer) Gray(x, y int) uint8 {
	return b.Pix[b.Offset(x, y)]
}

// SetGray writes v to the first channel of pixel (x, y).
func (b *Buffer) SetGray(x, y int, v uint8) {
	b.Pix[b.Offset(x, y)] = v
}

// Fill sets every channel of every pixel to v.
func (b *Buffer) Fill(v uint8) {
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		for i := range row {
			row[i] = v
		}
	}
}

// CountNonZero returns the number of pixels whose first channel is non-zero.
func (b *Buffer) CountNonZero() int {
	n := 0
	c := b.Layout.Channels()
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		for i := 0; i < len(row); i += c {
			if row[i] != 0 {
				n++
			}
		}
	}
	return n
}

// Clone returns a tightly packed copy that owns its memory.
func (b *Buffer) Clone() *Buffer {
	c := New(b.Width, b.Height, b.Layout)
	for y := 0; y < b.Height; y++ {
		copy(c.Row(y), b.Row(y))
	}
	return c
}

// CopyFrom copies pixels from src, which must have the same shape.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if !b.SameShape(src) {
		return &ShapeError{Op: "copy", Want: b.Shape(), Got: src.Shape()}
	}
	for y := 0; y < b.Height; y++ {
		copy(b.Row(y), src.Row(y))
	}
	return nil
}

// Equal reports whether b and o have the same shape and visible pixel bytes.
// Stride padding is ignored.
func (b *Buffer) Equal(o *Buffer) bool {
	if !b.SameShape(o) {
		return false
	}
	for y := 0; y < b.Height; y++ {
		if !bytes.Equal(b.Row(y), o.Row(y)) {
			return false
		}
	}
	return true
}
