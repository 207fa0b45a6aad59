package composite

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

func grayFrame(w, h int, layout pixbuf.Layout, v uint8) *pixbuf.Buffer {
	f := pixbuf.New(w, h, layout)
	f.Fill(v)
	return f
}

func fullMask(w, h int) *pixbuf.Buffer {
	m := pixbuf.NewMask(w, h)
	m.Fill(255)
	return m
}

// checker returns a 2x2 overlay whose top-left pixel is dark red and inked
// in the matching stencil.
func checker() (overlay, stencil *pixbuf.Buffer) {
	overlay = pixbuf.New(2, 2, pixbuf.RGBA)
	overlay.Fill(255)
	overlay.SetRGB(0, 0, 120, 10, 10)
	stencil = pixbuf.NewMask(2, 2)
	stencil.SetGray(0, 0, 255)
	return overlay, stencil
}

func TestFootprint(t *testing.T) {
	frame := image.Rect(0, 0, 100, 50)
	mask := pixbuf.NewMask(100, 50)
	mask.SetGray(80, 40, 255)

	tests := []struct {
		name    string
		cfg     Config
		overlay image.Point
		want    image.Rectangle
	}{
		{"stretch", Config{Fit: Stretch}, image.Pt(10, 10), image.Rect(0, 0, 100, 50)},
		{"contain wide frame", Config{Fit: Contain}, image.Pt(20, 20), image.Rect(25, 0, 75, 50)},
		{"contain top-left", Config{Fit: Contain, Anchor: TopLeft}, image.Pt(20, 20), image.Rect(0, 0, 50, 50)},
		{"native scaled", Config{Fit: Native, Scale: 2}, image.Pt(10, 5), image.Rect(40, 20, 60, 30)},
		{"native zero scale", Config{Fit: Native}, image.Pt(10, 6), image.Rect(45, 22, 55, 28)},
		{"centroid", Config{Fit: Native, Scale: 1, Anchor: MaskCentroid}, image.Pt(10, 10), image.Rect(75, 35, 85, 45)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Footprint(frame, tc.overlay, mask); got != tc.want {
				t.Errorf("Footprint = %v, want %v", got, tc.want)
			}
		})
	}

	// Empty mask falls back to centring.
	cfg := Config{Fit: Native, Scale: 1, Anchor: MaskCentroid}
	if got := cfg.Footprint(frame, image.Pt(10, 10), pixbuf.NewMask(100, 50)); got != image.Rect(45, 20, 55, 30) {
		t.Errorf("empty mask centroid footprint = %v", got)
	}
}

func TestCentroid(t *testing.T) {
	m := pixbuf.NewMask(10, 10)
	if _, _, ok := Centroid(m); ok {
		t.Error("empty mask should have no centroid")
	}
	m.SetGray(2, 2, 255)
	m.SetGray(4, 6, 255)
	x, y, ok := Centroid(m)
	if !ok || x != 3 || y != 4 {
		t.Errorf("Centroid = %d,%d,%v want 3,4,true", x, y, ok)
	}
}

func TestCompose_Binary(t *testing.T) {
	frame := grayFrame(4, 4, pixbuf.RGBA, 128)
	overlay, stencil := checker()

	n, err := New(DefaultConfig()).Compose(frame, fullMask(4, 4), overlay, stencil, Binary)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if n != 4 {
		t.Errorf("written = %d, want 4", n)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b := frame.RGB(x, y)
			inked := x < 2 && y < 2
			if inked && (r != DefaultInk.R || g != DefaultInk.G || b != DefaultInk.B) {
				t.Errorf("(%d,%d) = %d,%d,%d, want ink", x, y, r, g, b)
			}
			if !inked && (r != 128 || g != 128 || b != 128) {
				t.Errorf("(%d,%d) = %d,%d,%d, want untouched", x, y, r, g, b)
			}
			if frame.Alpha(x, y) != 128 {
				t.Errorf("(%d,%d) alpha changed to %d", x, y, frame.Alpha(x, y))
			}
		}
	}
}

func TestCompose_MaskGates(t *testing.T) {
	frame := grayFrame(4, 4, pixbuf.RGB, 128)
	overlay, stencil := checker()
	mask := pixbuf.NewMask(4, 4)
	mask.SetGray(1, 1, 255)
	mask.SetGray(3, 3, 255)

	n, err := New(DefaultConfig()).Compose(frame, mask, overlay, stencil, Binary)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("written = %d, want only the eligible inked pixel", n)
	}
	if r, _, _ := frame.RGB(1, 1); r != DefaultInk.R {
		t.Error("eligible inked pixel not painted")
	}
	if r, _, _ := frame.RGB(0, 0); r != 128 {
		t.Error("ineligible pixel painted")
	}
}

func TestCompose_EmptyMaskIsNoOp(t *testing.T) {
	for _, mode := range []Mode{Binary, Colorized} {
		t.Run(mode.String(), func(t *testing.T) {
			frame := grayFrame(6, 5, pixbuf.BGR, 90)
			for i := range frame.Pix {
				frame.Pix[i] += uint8(i)
			}
			before := frame.Clone()
			overlay, stencil := checker()
			stencil.Fill(255)

			n, err := New(DefaultConfig()).Compose(frame, pixbuf.NewMask(6, 5), overlay, stencil, mode)
			if err != nil {
				t.Fatal(err)
			}
			if n != 0 {
				t.Errorf("written = %d, want 0", n)
			}
			if diff := cmp.Diff(before.Pix, frame.Pix); diff != "" {
				t.Errorf("frame changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestCompose_ModeSwitch(t *testing.T) {
	overlay, stencil := checker()
	binary := grayFrame(4, 4, pixbuf.RGB, 128)
	colored := binary.Clone()

	comp := New(DefaultConfig())
	if _, err := comp.Compose(binary, fullMask(4, 4), overlay, stencil, Binary); err != nil {
		t.Fatal(err)
	}
	if _, err := comp.Compose(colored, fullMask(4, 4), overlay, stencil, Colorized); err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			same := string(binary.Pixel(x, y)) == string(colored.Pixel(x, y))
			selected := x < 2 && y < 2
			if selected && same {
				t.Errorf("(%d,%d) identical in both modes", x, y)
			}
			if !selected && !same {
				t.Errorf("(%d,%d) differs outside the stencil", x, y)
			}
		}
	}

	if r, g, b := colored.RGB(0, 0); r != 120 || g != 10 || b != 10 {
		t.Errorf("colorized pixel = %d,%d,%d, want overlay color", r, g, b)
	}
}

func TestCompose_Opacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Opacity = 128
	overlay, stencil := checker()
	frame := grayFrame(2, 2, pixbuf.RGB, 100)

	if _, err := New(cfg).Compose(frame, fullMask(2, 2), overlay, stencil, Colorized); err != nil {
		t.Fatal(err)
	}
	// (120*128 + 100*127 + 127) / 255 = 110
	if r, _, _ := frame.RGB(0, 0); r != 110 {
		t.Errorf("blended red = %d, want 110", r)
	}
}

func TestCompose_TransparentOverlayPixel(t *testing.T) {
	overlay, stencil := checker()
	overlay.Pixel(0, 0)[3] = 0
	frame := grayFrame(2, 2, pixbuf.RGB, 100)
	before := frame.Clone()

	if _, err := New(DefaultConfig()).Compose(frame, fullMask(2, 2), overlay, stencil, Colorized); err != nil {
		t.Fatal(err)
	}
	if !frame.Equal(before) {
		t.Error("fully transparent overlay pixel should leave the frame unchanged")
	}
}

func TestCompose_FootprintClipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fit = Native
	cfg.Scale = 4
	cfg.Anchor = TopLeft
	overlay, stencil := checker()
	frame := grayFrame(6, 6, pixbuf.RGB, 200)

	n, err := New(cfg).Compose(frame, fullMask(6, 6), overlay, stencil, Binary)
	if err != nil {
		t.Fatal(err)
	}
	// Footprint is 8x8, inked quadrant is 4x4 at the origin.
	if n != 16 {
		t.Errorf("written = %d, want 16", n)
	}
	if r, _, _ := frame.RGB(4, 4); r != 200 {
		t.Error("pixel outside the inked quadrant changed")
	}
}

func TestCompose_BilinearKeepsStencilBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interpolation = Bilinear
	overlay, stencil := checker()
	frame := grayFrame(8, 8, pixbuf.RGB, 200)

	n, err := New(cfg).Compose(frame, fullMask(8, 8), overlay, stencil, Colorized)
	if err != nil {
		t.Fatal(err)
	}
	if n != 16 {
		t.Errorf("written = %d, want exactly the 4x4 inked quadrant", n)
	}
}

func TestCompose_DoesNotMutateOverlay(t *testing.T) {
	overlay, stencil := checker()
	ob, sb := overlay.Clone(), stencil.Clone()

	frame := grayFrame(5, 3, pixbuf.RGB, 1)
	if _, err := New(DefaultConfig()).Compose(frame, fullMask(5, 3), overlay, stencil, Colorized); err != nil {
		t.Fatal(err)
	}
	if !overlay.Equal(ob) || !stencil.Equal(sb) {
		t.Error("overlay or stencil mutated")
	}
}

func TestCompose_Errors(t *testing.T) {
	overlay, stencil := checker()
	frame := grayFrame(4, 4, pixbuf.RGB, 0)
	comp := New(DefaultConfig())

	tests := []struct {
		name    string
		frame   *pixbuf.Buffer
		mask    *pixbuf.Buffer
		stencil *pixbuf.Buffer
		want    error
	}{
		{"mask size", frame, pixbuf.NewMask(3, 4), stencil, pixbuf.ErrShapeMismatch},
		{"stencil size", frame, fullMask(4, 4), pixbuf.NewMask(3, 3), pixbuf.ErrShapeMismatch},
		{"gray frame", pixbuf.NewMask(4, 4), fullMask(4, 4), stencil, pixbuf.ErrShapeMismatch},
		{"nil frame", nil, fullMask(4, 4), stencil, pixbuf.ErrInvalidHandle},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := comp.Compose(tc.frame, tc.mask, overlay, tc.stencil, Binary); !errors.Is(err, tc.want) {
				t.Errorf("Compose: got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if a, err := ParseAnchor("centroid"); err != nil || a != MaskCentroid {
		t.Errorf("ParseAnchor = %v, %v", a, err)
	}
	if f, err := ParseFit("contain"); err != nil || f != Contain {
		t.Errorf("ParseFit = %v, %v", f, err)
	}
	if i, err := ParseInterpolation("bilinear"); err != nil || i != Bilinear {
		t.Errorf("ParseInterpolation = %v, %v", i, err)
	}
	for _, bad := range []func() error{
		func() error { _, err := ParseAnchor("left"); return err },
		func() error { _, err := ParseFit("cover"); return err },
		func() error { _, err := ParseInterpolation("cubic"); return err },
	} {
		if bad() == nil {
			t.Error("expected parse error")
		}
	}
	if ModeFromFlag(true) != Colorized || ModeFromFlag(false) != Binary {
		t.Error("ModeFromFlag mapping wrong")
	}
}
