//go:build govips && cgo

package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	startupOnce sync.Once
	shutdownMu  sync.Mutex
	started     bool
)

func Startup() error {
	startupOnce.Do(func() {
		vips.Startup(&vips.Config{
			MaxCacheFiles: 0,
			MaxCacheMem:   128 * 1024 * 1024,
			MaxCacheSize:  100,
		})

		shutdownMu.Lock()
		started = true
		shutdownMu.Unlock()
	})
	return nil
}

func Shutdown() {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if !started {
		return
	}
	vips.Shutdown()
	started = false
}

// decodeFallback lets libvips read formats the pure Go decoders do not know
// (HEIF, AVIF, JPEG 2000) by re-exporting them as PNG.
func decodeFallback(data []byte) (image.Image, error) {
	shutdownMu.Lock()
	ready := started
	shutdownMu.Unlock()
	if !ready {
		return nil, errNoFallbackDecoder
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips decode: %w", err)
	}
	defer ref.Close()

	encoded, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export png: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %w", err)
	}
	return img, nil
}
