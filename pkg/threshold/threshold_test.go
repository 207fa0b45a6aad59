package threshold

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// rampWithLine builds a gray ramp lit from the right with a dark vertical
// stroke at column lineX.
func rampWithLine(w, h, lineX int) *pixbuf.Buffer {
	b := pixbuf.New(w, h, pixbuf.RGB)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(80 + 4*x)
			if x == lineX {
				v -= 60
			}
			b.SetRGB(x, y, v, v, v)
		}
	}
	return b
}

func mustNew(t *testing.T, cfg Config) *Thresholder {
	t.Helper()
	th, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return th
}

func TestStencil_TwoByTwo(t *testing.T) {
	src := pixbuf.New(2, 2, pixbuf.RGBA)
	src.Fill(255)
	src.SetRGB(0, 0, 0, 0, 0)

	stencil, err := mustNew(t, DefaultConfig()).Compute(src)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	want := []byte{Ink, Paper, Paper, Paper}
	if diff := cmp.Diff(want, stencil.Pix); diff != "" {
		t.Errorf("stencil mismatch (-want +got):\n%s", diff)
	}
}

func TestStencil_UnevenLighting(t *testing.T) {
	for _, m := range []Method{Mean, Gaussian} {
		t.Run(m.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Method = m
			src := rampWithLine(40, 20, 30)

			stencil, err := mustNew(t, cfg).Compute(src)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}

			for y := 0; y < 20; y++ {
				if stencil.Gray(30, y) != Ink {
					t.Fatalf("stroke pixel (30,%d) not inked", y)
				}
				for x := 5; x <= 20; x++ {
					if stencil.Gray(x, y) != Paper {
						t.Fatalf("background pixel (%d,%d) inked", x, y)
					}
				}
			}

			// The stroke is brighter than the dark end of the paper, so no
			// single global level could separate them.
			if src.Gray(30, 0) <= src.Gray(0, 0) {
				t.Fatal("fixture no longer exercises uneven lighting")
			}
		})
	}
}

func TestStencil_UniformIsBlank(t *testing.T) {
	src := pixbuf.New(15, 9, pixbuf.BGR)
	src.Fill(128)

	stencil, err := mustNew(t, DefaultConfig()).Compute(src)
	if err != nil {
		t.Fatal(err)
	}
	if n := stencil.CountNonZero(); n != 0 {
		t.Errorf("uniform image produced %d ink pixels", n)
	}
}

func TestStencil_Deterministic(t *testing.T) {
	src := rampWithLine(33, 17, 12)
	for i := range src.Pix {
		src.Pix[i] ^= uint8(i * 31)
	}
	before := src.Clone()

	for _, m := range []Method{Mean, Gaussian} {
		cfg := DefaultConfig()
		cfg.Method = m
		th := mustNew(t, cfg)

		a, err := th.Compute(src)
		if err != nil {
			t.Fatal(err)
		}
		b, err := mustNew(t, cfg).Compute(src.Clone())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(a.Pix, b.Pix); diff != "" {
			t.Errorf("%s: stencils differ:\n%s", m, diff)
		}
	}

	if !src.Equal(before) {
		t.Error("Compute mutated its source")
	}
}

func TestStencil_Errors(t *testing.T) {
	th := mustNew(t, DefaultConfig())
	src := pixbuf.New(4, 4, pixbuf.RGB)

	if err := th.Stencil(src, pixbuf.NewMask(4, 5)); !errors.Is(err, pixbuf.ErrShapeMismatch) {
		t.Errorf("size mismatch: got %v", err)
	}
	if err := th.Stencil(nil, pixbuf.NewMask(4, 4)); !errors.Is(err, pixbuf.ErrInvalidHandle) {
		t.Errorf("nil src: got %v", err)
	}
	if _, err := th.Compute(&pixbuf.Buffer{Pix: []byte{}, Layout: pixbuf.RGB}); !errors.Is(err, pixbuf.ErrShapeMismatch) {
		t.Errorf("zero dims: got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"default", DefaultConfig(), true},
		{"gaussian", Config{BlockSize: 5, Offset: 0, Method: Gaussian}, true},
		{"even block", Config{BlockSize: 10, Offset: 2}, false},
		{"tiny block", Config{BlockSize: 1, Offset: 2}, false},
		{"offset too large", Config{BlockSize: 3, Offset: 300}, false},
		{"bad method", Config{BlockSize: 3, Method: Method(9)}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.valid && err != nil {
				t.Errorf("Validate: unexpected %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate: got %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := New(Config{BlockSize: 4}); err == nil {
		t.Error("New should reject an invalid config")
	}
}

func TestGaussianKernel(t *testing.T) {
	for _, size := range []int{3, 5, 11, 21} {
		k := gaussianKernel(size)
		sum := 0
		for i, w := range k {
			sum += w
			if w != k[size-1-i] {
				t.Errorf("size %d: kernel not symmetric: %v", size, k)
				break
			}
		}
		if sum != kernelOne {
			t.Errorf("size %d: weights sum to %d, want %d", size, sum, kernelOne)
		}
		if k[size/2] < k[0] {
			t.Errorf("size %d: centre weight smaller than edge: %v", size, k)
		}
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod("gaussian"); err != nil || m != Gaussian {
		t.Errorf("ParseMethod(gaussian) = %v, %v", m, err)
	}
	if m, err := ParseMethod(""); err != nil || m != Mean {
		t.Errorf("ParseMethod(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMethod("otsu"); err == nil {
		t.Error("ParseMethod(otsu) should fail")
	}
}
