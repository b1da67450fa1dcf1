package pipeline

import (
	"math"

	"github.com/dunamismax/pixelpipe/internal/raster"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// 8-bit HSV: hue is stored in half degrees so it fits a byte.
const huePeriod = 180

type hsv8 struct {
	H, S, V uint8
}

func toHSV8(blue, green, red uint8) hsv8 {
	c := colorful.Color{
		R: float64(red) / 255,
		G: float64(green) / 255,
		B: float64(blue) / 255,
	}
	h, s, v := c.Hsv()
	return hsv8{
		H: uint8(int(math.Round(h/2)) % huePeriod),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

func (p hsv8) bgr() (blue, green, red uint8) {
	c := colorful.Hsv(float64(p.H)*2, float64(p.S)/255, float64(p.V)/255)
	red, green, blue = c.RGB255()
	return blue, green, red
}

func hueSteps(degrees int) int {
	return int(math.Floor(float64(degrees) / 2))
}

func mapHSV(buf *raster.Buffer, fn func(hsv8) hsv8) {
	for i := 0; i+2 < len(buf.Pix); i += 3 {
		p := fn(toHSV8(buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]))
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = p.bgr()
	}
}

func shiftValue(buf *raster.Buffer, delta int) {
	mapHSV(buf, func(p hsv8) hsv8 {
		p.V = saturate(int(p.V) + delta)
		return p
	})
}

func shiftHue(buf *raster.Buffer, steps int) {
	mapHSV(buf, func(p hsv8) hsv8 {
		h := (int(p.H) + steps) % huePeriod
		if h < 0 {
			h += huePeriod
		}
		p.H = uint8(h)
		return p
	})
}

func saturate(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
