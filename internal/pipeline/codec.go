package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/dunamismax/pixelpipe/internal/raster"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const defaultMaxPixels = 64 * 1024 * 1024

type Codec struct {
	MaxPixels int
}

func NewCodec(maxPixels int) Codec {
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	return Codec{MaxPixels: maxPixels}
}

// Decode reads any supported raster format into a Color buffer.
func (c Codec) Decode(data []byte) (*raster.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrInvalidImage, detected.String())
	}

	img, err := c.decodeStd(data)
	if errors.Is(err, ErrImageTooLarge) {
		return nil, err
	}
	if err != nil {
		fallback, fbErr := decodeFallback(data)
		if fbErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		img = fallback
	}

	if err := c.checkPixels(img.Bounds().Dx(), img.Bounds().Dy()); err != nil {
		return nil, err
	}

	buf, err := raster.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return buf, nil
}

func (c Codec) decodeStd(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := c.checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (c Codec) checkPixels(width, height int) error {
	limit := c.MaxPixels
	if limit <= 0 {
		limit = defaultMaxPixels
	}
	if width > 0 && height > 0 && width*height > limit {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}
	return nil
}

// Encode writes buf as PNG.
func (c Codec) Encode(buf *raster.Buffer) ([]byte, error) {
	var out bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&out, buf.Image()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

func (c Codec) EncodeBase64(buf *raster.Buffer) (string, error) {
	data, err := c.Encode(buf)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
