package raster

import (
	"image"
	"image/color"
)

// FromImage reads img as a Color buffer. Alpha is discarded and grayscale
// sources are expanded to three channels.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	out, err := New(bounds.Dx(), bounds.Dy(), Color)
	if err != nil {
		return nil, err
	}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			start := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := src.Pix[start : start+out.Width]
			for x, v := range row {
				i := out.Offset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = v, v, v
			}
		}
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				s := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				i := out.Offset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = src.Pix[s+2], src.Pix[s+1], src.Pix[s]
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				i := out.Offset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.B, c.G, c.R
			}
		}
	}
	return out, nil
}

// Image exposes b as a standard image: *image.Gray for Gray, opaque
// *image.NRGBA for Color.
func (b *Buffer) Image() image.Image {
	rect := image.Rect(0, 0, b.Width, b.Height)
	if b.Mode == Gray {
		img := image.NewGray(rect)
		copy(img.Pix, b.Pix)
		return img
	}

	img := image.NewNRGBA(rect)
	for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
		img.Pix[j] = b.Pix[i+2]
		img.Pix[j+1] = b.Pix[i+1]
		img.Pix[j+2] = b.Pix[i]
		img.Pix[j+3] = 0xff
	}
	return img
}

func FromImageAs(img image.Image, mode Mode) (*Buffer, error) {
	if mode == Gray {
		if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
			out, err := New(g.Rect.Dx(), g.Rect.Dy(), Gray)
			if err != nil {
				return nil, err
			}
			copy(out.Pix, g.Pix)
			return out, nil
		}
	}

	out, err := fromRGBA(img)
	if err != nil {
		return nil, err
	}
	return RequireMode(out, mode), nil
}

func fromRGBA(img image.Image) (*Buffer, error) {
	src, ok := img.(*image.RGBA)
	if !ok {
		return FromImage(img)
	}

	bounds := src.Bounds()
	out, err := New(bounds.Dx(), bounds.Dy(), Color)
	if err != nil {
		return nil, err
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			s := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			i := out.Offset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = src.Pix[s+2], src.Pix[s+1], src.Pix[s]
		}
	}
	return out, nil
}
