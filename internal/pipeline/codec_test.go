package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/dunamismax/pixelpipe/internal/raster"
)

func TestCodecRejectsNonImages(t *testing.T) {
	codec := NewCodec(0)

	truncated := buildTestPNG(t, 8, 8)[:40]
	inputs := map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not an image"),
		"json":      []byte(`{"name":"grayscale"}`),
		"truncated": truncated,
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(data)
			if !errors.Is(err, ErrInvalidImage) {
				t.Fatalf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestCodecDecodesToColor(t *testing.T) {
	buf, err := NewCodec(0).Decode(buildTestPNG(t, 10, 6))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Width != 10 || buf.Height != 6 || buf.Mode != raster.Color {
		t.Fatalf("unexpected buffer %dx%d %s", buf.Width, buf.Height, buf.Mode)
	}

	// buildTestPNG uses R=x*255/w, G=y*255/h, B=140.
	b, g, r := buf.BGR(5, 3)
	if b != 140 || g != uint8(3*255/6) || r != uint8(5*255/10) {
		t.Fatalf("pixel (5,3): got b=%d g=%d r=%d", b, g, r)
	}
}

func TestCodecPromotesGrayPNG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.SetGray(0, 0, color.Gray{Y: 10})
	img.SetGray(1, 0, color.Gray{Y: 128})
	img.SetGray(2, 0, color.Gray{Y: 250})

	var data bytes.Buffer
	if err := png.Encode(&data, img); err != nil {
		t.Fatalf("encode gray png: %v", err)
	}

	buf, err := NewCodec(0).Decode(data.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Mode != raster.Color {
		t.Fatalf("expected color buffer, got %s", buf.Mode)
	}
	for x, want := range []uint8{10, 128, 250} {
		b, g, r := buf.BGR(x, 0)
		if b != want || g != want || r != want {
			t.Fatalf("pixel %d: got %d,%d,%d want %d", x, b, g, r, want)
		}
	}
}

func TestCodecEncodeIsLossless(t *testing.T) {
	codec := NewCodec(0)
	for _, mode := range []raster.Mode{raster.Color, raster.Gray} {
		t.Run(mode.String(), func(t *testing.T) {
			input := raster.RequireMode(gradientBuffer(t, 13, 7), mode)

			data, err := codec.Encode(input)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !raster.RequireMode(decoded, mode).Equal(input) {
				t.Fatal("png round trip changed pixels")
			}
		})
	}
}

func TestCodecEncodeBase64(t *testing.T) {
	codec := NewCodec(0)
	input := solidBuffer(t, 2, 2, 1, 2, 3)

	encoded, err := codec.EncodeBase64(input)
	if err != nil {
		t.Fatalf("encode base64: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("expected png signature")
	}
}

func TestCodecPixelLimit(t *testing.T) {
	_, err := NewCodec(100).Decode(buildTestPNG(t, 20, 20))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if errors.Is(err, ErrInvalidImage) {
		t.Fatal("oversized image must not be reported as invalid")
	}

	if _, err := NewCodec(400).Decode(buildTestPNG(t, 20, 20)); err != nil {
		t.Fatalf("image at the limit should decode: %v", err)
	}
}
