package pipeline

import (
	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
)

const (
	cannyLow  = 100
	cannyHigh = 200

	// tan(22.5°) and tan(67.5°) in Q15, used to bin gradient direction without
	// floating point.
	tan22Q15 = 13573
)

// Canny with 3x3 Sobel gradients and L1 magnitude.
func edgeDetection(buf *raster.Buffer, _ domain.Value) (*raster.Buffer, error) {
	w, h := buf.Width, buf.Height
	dx := make([]int32, w*h)
	dy := make([]int32, w*h)
	mag := make([]int32, w*h)

	at := func(x, y int) int32 {
		return int32(buf.Pix[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = abs32(gx) + abs32(gy)
		}
	}

	magAt := func(x, y int) int32 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		notEdge = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	stack := make([]int, 0, w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= cannyLow {
				continue
			}

			xs, ys := dx[i], dy[i]
			ax, ay := int64(abs32(xs)), int64(abs32(ys))<<15
			tg22 := ax * tan22Q15
			tg67 := tg22 + ax<<16

			var keep bool
			switch {
			case ay < tg22:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > tg67:
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (xs ^ ys) < 0 {
					s = -1
				}
				keep = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !keep {
				continue
			}

			if m > cannyHigh {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out, err := raster.New(w, h, raster.Gray)
	if err != nil {
		return nil, err
	}
	for i, s := range state {
		if s == strong {
			out.Pix[i] = 255
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
