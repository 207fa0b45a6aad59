// Package cvmat is the boundary between gocv and the pixel buffers used by
// the compositor. Everything that touches OpenCV lives here: Mat views,
// image file IO, contour annotation and camera capture.
package cvmat

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"gocv.io/x/gocv"
)

// ErrEmptyMat is returned for a Mat with no pixels.
var ErrEmptyMat = errors.New("cvmat: empty mat")

// DefaultLayout returns the OpenCV channel order for a channel count: BGR for
// three channels, BGRA for four and Gray for one.
func DefaultLayout(channels int) (pixbuf.Layout, bool) {
	switch channels {
	case 1:
		return pixbuf.Gray, true
	case 3:
		return pixbuf.BGR, true
	case 4:
		return pixbuf.BGRA, true
	}
	return 0, false
}

// View returns a buffer that borrows m's memory. Writes through the buffer
// land in the Mat. The view is valid until m is closed or reallocated; the
// caller keeps m alive.
//
// Only continuous 8-bit mats are accepted. layout must agree with the Mat's
// channel count.
func View(m *gocv.Mat, layout pixbuf.Layout) (*pixbuf.Buffer, error) {
	if m == nil {
		return nil, fmt.Errorf("cvmat: view: %w", pixbuf.ErrInvalidHandle)
	}
	if m.Empty() {
		return nil, ErrEmptyMat
	}
	got := pixbuf.Shape{Width: m.Cols(), Height: m.Rows(), Layout: layout}
	if !layout.Valid() || layout.Channels() != m.Channels() {
		return nil, pixbuf.ShapeErr("view", got, fmt.Sprintf("mat has %d channels", m.Channels()))
	}
	if !isUint8(m.Type()) {
		return nil, pixbuf.ShapeErr("view", got, "mat is not 8-bit")
	}
	if !m.IsContinuous() {
		return nil, pixbuf.ShapeErr("view", got, "mat is not continuous")
	}
	data, err := m.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("cvmat: view: %w", err)
	}
	return pixbuf.Wrap(data, m.Cols(), m.Rows(), m.Step(), layout)
}

func isUint8(t gocv.MatType) bool {
	switch t {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return true
	}
	return false
}

// ToMat copies b into a new Mat that owns its memory. The caller closes it.
// Later writes to b do not reach the Mat.
//
// RGB buffers keep their byte order, so OpenCV sees them as BGR; callers that
// draw in color swap channels themselves (see bgr).
func ToMat(b *pixbuf.Buffer) (gocv.Mat, error) {
	if err := b.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	var mt gocv.MatType
	switch b.Channels() {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt = gocv.MatTypeCV8UC3
	default:
		mt = gocv.MatTypeCV8UC4
	}

	// NewMatFromBytes would wrap b.Pix instead of copying it.
	m := gocv.NewMatWithSize(b.Height, b.Width, mt)
	data, err := m.DataPtrUint8()
	if err != nil {
		m.Close()
		return gocv.Mat{}, fmt.Errorf("cvmat: to mat: %w", err)
	}
	row := b.Width * b.Channels()
	for y := 0; y < b.Height; y++ {
		copy(data[y*row:(y+1)*row], b.Row(y))
	}
	return m, nil
}

// copyBack writes a Mat produced by ToMat back into b, row by row. ToBytes
// returns a Go copy of the Mat's pixels.
func copyBack(m gocv.Mat, b *pixbuf.Buffer) {
	data := m.ToBytes()
	row := b.Width * b.Channels()
	for y := 0; y < b.Height; y++ {
		copy(b.Row(y), data[y*row:(y+1)*row])
	}
}

// Load reads an image file into an owned BGR buffer. Frames and overlays
// both enter through here.
func Load(path string) (*pixbuf.Buffer, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	defer m.Close()
	if m.Empty() {
		return nil, fmt.Errorf("cvmat: read %s: %w", path, ErrEmptyMat)
	}
	view, err := View(&m, pixbuf.BGR)
	if err != nil {
		return nil, fmt.Errorf("cvmat: read %s: %w", path, err)
	}
	return view.Clone(), nil
}

// Save writes b to path; the format follows the file extension.
func Save(path string, b *pixbuf.Buffer) error {
	src := b
	if b != nil && (b.Layout == pixbuf.RGB || b.Layout == pixbuf.RGBA) {
		src = toBGR(b)
	}
	m, err := ToMat(src)
	if err != nil {
		return fmt.Errorf("cvmat: write %s: %w", path, err)
	}
	defer m.Close()
	if !gocv.IMWrite(path, m) {
		return fmt.Errorf("cvmat: write %s: encoder failed", path)
	}
	return nil
}

func toBGR(b *pixbuf.Buffer) *pixbuf.Buffer {
	out := pixbuf.New(b.Width, b.Height, pixbuf.BGR)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			r, g, bl := b.RGB(x, y)
			out.SetRGB(x, y, r, g, bl)
		}
	}
	return out
}
