package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
)

func solidBuffer(t testing.TB, w, h int, blue, green, red uint8) *raster.Buffer {
	t.Helper()

	b, err := raster.New(w, h, raster.Color)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	b.Fill(blue, green, red)
	return b
}

func gradientBuffer(t testing.TB, w, h int) *raster.Buffer {
	t.Helper()

	b, err := raster.New(w, h, raster.Color)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.SetBGR(x, y, 140, uint8((y*255)/h), uint8((x*255)/w))
		}
	}
	return b
}

func buildTestPNG(t testing.TB, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}

func mustRun(t testing.TB, input *raster.Buffer, ops ...domain.Operation) *raster.Buffer {
	t.Helper()

	result, err := NewExecutor(nil).Run(input, ops)
	if err != nil {
		t.Fatalf("run %v: %v", ops, err)
	}
	return result.Processed
}

func op(name string) domain.Operation {
	return domain.Operation{Name: name}
}

func opNum(name string, n float64) domain.Operation {
	return domain.Operation{Name: name, Value: domain.NumberValue(n)}
}

func opText(name, text string) domain.Operation {
	return domain.Operation{Name: name, Value: domain.TextValue(text)}
}
