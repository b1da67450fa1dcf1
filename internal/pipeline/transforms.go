package pipeline

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	defaultBlurKernel   = 15
	defaultRotateDegree = 90
	defaultLightenDelta = 50

	thresholdCut = 127
	thresholdMax = 255
)

func identity(buf *raster.Buffer, _ domain.Value) (*raster.Buffer, error) {
	return buf, nil
}

func grayscale(buf *raster.Buffer, _ domain.Value) (*raster.Buffer, error) {
	return raster.RequireMode(buf, raster.Gray), nil
}

func blurKernel(value domain.Value) int {
	k, ok := value.Int()
	if !ok || k <= 0 {
		k = defaultBlurKernel
	}
	if k%2 == 0 {
		k++
	}
	return k
}

// Same derivation OpenCV uses when sigma is 0.
func kernelSigma(k int) float64 {
	return 0.3*((float64(k)-1)*0.5-1) + 0.8
}

func gaussianBlur(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
	k := blurKernel(value)
	// Wider kernels only see replicated border pixels.
	if widest := 2*max(buf.Width, buf.Height) + 1; k > widest {
		k = widest
	}
	if k == 1 {
		return buf, nil
	}
	return fromLibrary(imaging.Blur(buf.Image(), kernelSigma(k)), buf.Mode)
}

func threshold(buf *raster.Buffer, _ domain.Value) (*raster.Buffer, error) {
	for i, v := range buf.Pix {
		if v > thresholdCut {
			buf.Pix[i] = thresholdMax
		} else {
			buf.Pix[i] = 0
		}
	}
	return buf, nil
}

func resizeWithin(maxPixels int) Transform {
	return func(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
		width, height, ok := value.Size()
		if !ok {
			return buf, nil
		}
		if width*height > maxPixels {
			return nil, fmt.Errorf("%w: resize to %dx%d", ErrImageTooLarge, width, height)
		}
		return fromLibrary(imaging.Resize(buf.Image(), width, height, imaging.Linear), buf.Mode)
	}
}

func rotate(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
	angle, ok := value.Float()
	if !ok {
		angle = defaultRotateDegree
	}

	// draw samples at pixel centers, so the pivot pixel's center is +0.5.
	sin, cos := rotationTerms(angle)
	cx := float64(buf.Width/2) + 0.5
	cy := float64(buf.Height/2) + 0.5
	s2d := f64.Aff3{
		cos, sin, (1-cos)*cx - sin*cy,
		-sin, cos, sin*cx + (1-cos)*cy,
	}

	src := buf.Image()
	dst := image.NewRGBA(src.Bounds())
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return fromLibrary(dst, buf.Mode)
}

// rotationTerms is exact for quarter turns.
func rotationTerms(degrees float64) (sin, cos float64) {
	turn := math.Mod(degrees, 360)
	if turn < 0 {
		turn += 360
	}
	switch turn {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(degrees * math.Pi / 180)
}

func flip(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
	if value.Kind == domain.ValueText && value.Text == domain.FlipVertical {
		return fromLibrary(imaging.FlipV(buf.Image()), buf.Mode)
	}
	return fromLibrary(imaging.FlipH(buf.Image()), buf.Mode)
}

func lighten(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
	delta, ok := value.Int()
	if !ok {
		delta = defaultLightenDelta
	}
	shiftValue(buf, delta)
	return buf, nil
}

func darken(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
	delta, ok := value.Int()
	if !ok {
		delta = defaultLightenDelta
	}
	shiftValue(buf, -delta)
	return buf, nil
}

func hueShift(buf *raster.Buffer, value domain.Value) (*raster.Buffer, error) {
	if !value.Truthy() {
		return buf, nil
	}
	degrees, ok := value.Int()
	if !ok {
		return buf, nil
	}
	shiftHue(buf, hueSteps(degrees))
	return buf, nil
}

func fromLibrary(img image.Image, mode raster.Mode) (*raster.Buffer, error) {
	out, err := raster.FromImageAs(img, mode)
	if err != nil {
		return nil, fmt.Errorf("read transform output: %w", err)
	}
	return out, nil
}
