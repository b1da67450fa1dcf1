package raster

import (
	"bytes"
	"errors"
	"fmt"
)

type Mode int

const (
	Gray Mode = iota + 1
	Color
)

var ErrInvalidDimensions = errors.New("invalid buffer dimensions")

func (m Mode) Channels() int {
	switch m {
	case Gray:
		return 1
	case Color:
		return 3
	default:
		return 0
	}
}

func (m Mode) String() string {
	switch m {
	case Gray:
		return "gray"
	case Color:
		return "color"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Buffer is an 8-bit raster. Color pixels are stored blue, green, red.
type Buffer struct {
	Width  int
	Height int
	Mode   Mode
	Pix    []byte
}

func New(width, height int, mode Mode) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if mode.Channels() == 0 {
		return nil, fmt.Errorf("unsupported mode: %s", mode)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Mode:   mode,
		Pix:    make([]byte, width*height*mode.Channels()),
	}, nil
}

func mustNew(width, height int, mode Mode) *Buffer {
	b, err := New(width, height, mode)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Buffer) Channels() int {
	return b.Mode.Channels()
}

func (b *Buffer) Stride() int {
	return b.Width * b.Channels()
}

func (b *Buffer) Offset(x, y int) int {
	return y*b.Stride() + x*b.Channels()
}

// Validate reports whether the storage length matches the geometry and mode.
func (b *Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, b.Width, b.Height)
	}
	if b.Channels() == 0 {
		return fmt.Errorf("unsupported mode: %s", b.Mode)
	}
	if want := b.Width * b.Height * b.Channels(); len(b.Pix) != want {
		return fmt.Errorf("pixel storage has %d bytes, want %d", len(b.Pix), want)
	}
	return nil
}

func (b *Buffer) Clone() *Buffer {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Mode: b.Mode, Pix: pix}
}

func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Width == other.Width &&
		b.Height == other.Height &&
		b.Mode == other.Mode &&
		bytes.Equal(b.Pix, other.Pix)
}

// BGR returns the color at (x, y). Gray pixels are replicated.
func (b *Buffer) BGR(x, y int) (blue, green, red uint8) {
	i := b.Offset(x, y)
	if b.Mode == Gray {
		v := b.Pix[i]
		return v, v, v
	}
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

func (b *Buffer) SetBGR(x, y int, blue, green, red uint8) {
	i := b.Offset(x, y)
	if b.Mode == Gray {
		b.Pix[i] = luma(red, green, blue)
		return
	}
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = blue, green, red
}

func (b *Buffer) Fill(blue, green, red uint8) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			b.SetBGR(x, y, blue, green, red)
		}
	}
}
