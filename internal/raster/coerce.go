package raster

// Fixed-point BT.601 weights scaled by 1<<14.
const (
	lumaShift = 14
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaRound = 1 << (lumaShift - 1)
)

func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*lumaR + uint32(g)*lumaG + uint32(b)*lumaB + lumaRound) >> lumaShift)
}

// RequireMode returns b converted to mode. The same buffer is returned when no
// conversion is needed; otherwise a new buffer is allocated and b is left intact.
func RequireMode(b *Buffer, mode Mode) *Buffer {
	if b.Mode == mode {
		return b
	}
	switch mode {
	case Gray:
		return toGray(b)
	case Color:
		return toColor(b)
	default:
		return b
	}
}

func toGray(b *Buffer) *Buffer {
	out := mustNew(b.Width, b.Height, Gray)
	for i, j := 0, 0; j < len(out.Pix); i, j = i+3, j+1 {
		out.Pix[j] = luma(b.Pix[i+2], b.Pix[i+1], b.Pix[i])
	}
	return out
}

func toColor(b *Buffer) *Buffer {
	out := mustNew(b.Width, b.Height, Color)
	for i, j := 0, 0; i < len(b.Pix); i, j = i+1, j+3 {
		v := b.Pix[i]
		out.Pix[j], out.Pix[j+1], out.Pix[j+2] = v, v, v
	}
	return out
}
