package colorspace

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

func TestHSVPixel(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v uint8
	}{
		{"black", 0, 0, 0, 0, 0, 0},
		{"white", 255, 255, 255, 0, 0, 255},
		{"mid gray", 128, 128, 128, 0, 0, 128},
		{"red", 255, 0, 0, 0, 255, 255},
		{"yellow", 255, 255, 0, 30, 255, 255},
		{"green", 0, 255, 0, 60, 255, 255},
		{"cyan", 0, 255, 255, 90, 255, 255},
		{"blue", 0, 0, 255, 120, 255, 255},
		{"magenta", 255, 0, 255, 150, 255, 255},
		{"skin", 200, 150, 120, 11, 102, 200},
		{"red wraps", 100, 0, 10, 177, 255, 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, s, v := HSVPixel(tc.r, tc.g, tc.b)
			if h != tc.h || s != tc.s || v != tc.v {
				t.Errorf("HSVPixel(%d,%d,%d) = %d,%d,%d, want %d,%d,%d",
					tc.r, tc.g, tc.b, h, s, v, tc.h, tc.s, tc.v)
			}
		})
	}
}

func TestHSVPixel_FullRange(t *testing.T) {
	// Every 8-bit input must land in range without overflow.
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 5 {
			for b := 0; b < 256; b += 5 {
				h, s, v := HSVPixel(uint8(r), uint8(g), uint8(b))
				if h >= HueRange {
					t.Fatalf("hue %d out of range for %d,%d,%d", h, r, g, b)
				}
				if int(v) != max(r, g, b) {
					t.Fatalf("value %d != max for %d,%d,%d", v, r, g, b)
				}
				if v == 0 && s != 0 {
					t.Fatalf("saturation %d for black", s)
				}
			}
		}
	}
}

func TestToHSV(t *testing.T) {
	src := pixbuf.New(2, 1, pixbuf.BGRA)
	src.SetRGB(0, 0, 0, 255, 0)
	src.SetRGB(1, 0, 0, 0, 255)

	dst := pixbuf.New(2, 1, pixbuf.RGB)
	if err := ToHSV(src, dst); err != nil {
		t.Fatalf("ToHSV: %v", err)
	}

	want := []byte{60, 255, 255, 120, 255, 255}
	for i, b := range want {
		if dst.Pix[i] != b {
			t.Fatalf("dst = %v, want %v", dst.Pix, want)
		}
	}
}

func TestToHSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  *pixbuf.Buffer
		dst  *pixbuf.Buffer
		want error
	}{
		{"nil src", nil, pixbuf.New(2, 2, pixbuf.RGB), pixbuf.ErrInvalidHandle},
		{"nil dst", pixbuf.New(2, 2, pixbuf.RGB), nil, pixbuf.ErrInvalidHandle},
		{"size mismatch", pixbuf.New(2, 2, pixbuf.RGB), pixbuf.New(3, 2, pixbuf.RGB), pixbuf.ErrShapeMismatch},
		{"dst layout", pixbuf.New(2, 2, pixbuf.RGB), pixbuf.New(2, 2, pixbuf.RGBA), pixbuf.ErrShapeMismatch},
		{"gray src", pixbuf.New(2, 2, pixbuf.Gray), pixbuf.New(2, 2, pixbuf.RGB), pixbuf.ErrShapeMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := ToHSV(tc.src, tc.dst); !errors.Is(err, tc.want) {
				t.Errorf("ToHSV: got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestToGray(t *testing.T) {
	src := pixbuf.New(3, 1, pixbuf.RGB)
	src.SetRGB(0, 0, 255, 255, 255)
	src.SetRGB(1, 0, 0, 0, 0)
	src.SetRGB(2, 0, 255, 0, 0)

	dst := pixbuf.New(3, 1, pixbuf.Gray)
	if err := ToGray(src, dst); err != nil {
		t.Fatalf("ToGray: %v", err)
	}

	if dst.Gray(0, 0) != 255 || dst.Gray(1, 0) != 0 || dst.Gray(2, 0) != 76 {
		t.Errorf("gray = %v, want [255 0 76]", dst.Pix)
	}

	if err := ToGray(src, pixbuf.New(3, 1, pixbuf.RGB)); !errors.Is(err, pixbuf.ErrShapeMismatch) {
		t.Errorf("ToGray into RGB: got %v", err)
	}
}
