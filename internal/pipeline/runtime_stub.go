//go:build !govips || !cgo

package pipeline

import "image"

func Startup() error {
	return nil
}

func Shutdown() {}

func decodeFallback(_ []byte) (image.Image, error) {
	return nil, errNoFallbackDecoder
}
