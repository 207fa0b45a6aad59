package pixbuf

import (
	"image"
	"image/color"
	"image/draw"
)

var _ draw.Image = (*Buffer)(nil)

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model {
	if b.Layout == Gray {
		return color.GrayModel
	}
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// At implements image.Image. Color pixels are reported as non-premultiplied.
func (b *Buffer) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(b.Bounds())) {
		if b.Layout == Gray {
			return color.Gray{}
		}
		return color.NRGBA{}
	}
	if b.Layout == Gray {
		return color.Gray{Y: b.Gray(x, y)}
	}
	r, g, bl := b.RGB(x, y)
	return color.NRGBA{R: r, G: g, B: bl, A: b.Alpha(x, y)}
}

// Set implements draw.Image.
func (b *Buffer) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(b.Bounds())) {
		return
	}
	if b.Layout == Gray {
		b.SetGray(x, y, color.GrayModel.Convert(c).(color.Gray).Y)
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	b.SetRGB(x, y, n.R, n.G, n.B)
	if b.Layout.HasAlpha() {
		b.Pix[b.Offset(x, y)+3] = n.A
	}
}

// GrayImage returns an *image.Gray sharing memory with a Gray buffer, or nil
// for other layouts.
func (b *Buffer) GrayImage() *image.Gray {
	if b.Layout != Gray {
		return nil
	}
	return &image.Gray{Pix: b.Pix, Stride: b.Stride, Rect: b.Bounds()}
}

// RGBAImage returns an *image.RGBA sharing memory with an RGBA buffer, or nil
// for other layouts. The caller must know the pixels are opaque or already
// premultiplied.
func (b *Buffer) RGBAImage() *image.RGBA {
	if b.Layout != RGBA {
		return nil
	}
	return &image.RGBA{Pix: b.Pix, Stride: b.Stride, Rect: b.Bounds()}
}

// FromImage copies any image.Image into a new owned buffer with the given
// layout. Decoded assets enter the pipeline through here.
func FromImage(img image.Image, layout Layout) *Buffer {
	r := img.Bounds()
	b := New(r.Dx(), r.Dy(), layout)
	switch src := img.(type) {
	case *image.Gray:
		if layout == Gray {
			for y := 0; y < b.Height; y++ {
				i := src.PixOffset(r.Min.X, r.Min.Y+y)
				copy(b.Row(y), src.Pix[i:i+b.Width])
			}
			return b
		}
	case *image.NRGBA:
		if layout == RGBA {
			for y := 0; y < b.Height; y++ {
				i := src.PixOffset(r.Min.X, r.Min.Y+y)
				copy(b.Row(y), src.Pix[i:i+b.Width*4])
			}
			return b
		}
	}
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			b.Set(x, y, img.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return b
}
