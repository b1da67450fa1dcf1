package pipeline

import (
	"errors"
	"testing"

	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/raster"
)

func TestGrayscaleIsIdempotent(t *testing.T) {
	input := gradientBuffer(t, 16, 9)

	once := mustRun(t, input, op("grayscale"))
	twice := mustRun(t, input, op("grayscale"), op("grayscale"))

	if once.Mode != raster.Gray {
		t.Fatalf("expected gray output, got %s", once.Mode)
	}
	if !once.Equal(twice) {
		t.Fatal("grayscale applied twice differs from applying it once")
	}
}

func TestRedGrayscaleThresholdScenario(t *testing.T) {
	input := solidBuffer(t, 4, 4, 0, 0, 255)

	out := mustRun(t, input, op("grayscale"), op("threshold"))

	if out.Width != 4 || out.Height != 4 || out.Mode != raster.Gray {
		t.Fatalf("unexpected output %dx%d %s", out.Width, out.Height, out.Mode)
	}
	// Red luma is 76, below the cut of 127.
	for i, v := range out.Pix {
		if v != 0 {
			t.Fatalf("pixel %d: got %d, want 0", i, v)
		}
	}
}

func TestThresholdIsBinaryAtCut(t *testing.T) {
	input, err := raster.New(4, 1, raster.Gray)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	copy(input.Pix, []byte{0, 127, 128, 255})

	out := mustRun(t, input, op("threshold"))
	want := []byte{0, 0, 255, 255}
	for i := range want {
		if out.Pix[i] != want[i] {
			t.Fatalf("pixel %d: got %d, want %d", i, out.Pix[i], want[i])
		}
	}
}

func TestSingleChannelOperationsRegardlessOfInputMode(t *testing.T) {
	for _, name := range []string{"threshold", "edge_detection"} {
		t.Run(name, func(t *testing.T) {
			fromColor := mustRun(t, gradientBuffer(t, 10, 10), op(name))
			if fromColor.Mode != raster.Gray || len(fromColor.Pix) != 100 {
				t.Fatalf("color input: got mode %s with %d bytes", fromColor.Mode, len(fromColor.Pix))
			}

			fromGray := mustRun(t, gradientBuffer(t, 10, 10), op("grayscale"), op(name))
			if fromGray.Mode != raster.Gray {
				t.Fatalf("gray input: got mode %s", fromGray.Mode)
			}
		})
	}
}

func TestColorOperationsPromoteGray(t *testing.T) {
	for _, name := range []string{"lighten", "darken", "hueshift", "blur"} {
		t.Run(name, func(t *testing.T) {
			out := mustRun(t, gradientBuffer(t, 8, 8), op("grayscale"), opNum(name, 10))
			if out.Mode != raster.Color {
				t.Fatalf("expected color output, got %s", out.Mode)
			}
		})
	}
}

func TestBlurKernelOddCoercion(t *testing.T) {
	tests := []struct {
		value domain.Value
		want  int
	}{
		{domain.Value{}, 15},
		{domain.NumberValue(0), 15},
		{domain.NumberValue(-3), 15},
		{domain.NumberValue(4), 5},
		{domain.NumberValue(5), 5},
		{domain.NumberValue(1), 1},
		{domain.TextValue("20"), 21},
		{domain.TextValue("soft"), 15},
	}
	for _, tt := range tests {
		if got := blurKernel(tt.value); got != tt.want {
			t.Errorf("blurKernel(%+v): got %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestBlurEvenMatchesNextOdd(t *testing.T) {
	input := gradientBuffer(t, 24, 16)
	for _, v := range []float64{2, 4, 10} {
		even := mustRun(t, input, opNum("blur", v))
		odd := mustRun(t, input, opNum("blur", v+1))
		if !even.Equal(odd) {
			t.Fatalf("blur %v differs from blur %v", v, v+1)
		}
	}
}

func TestBlurOneIsIdentity(t *testing.T) {
	input := gradientBuffer(t, 10, 6)
	out := mustRun(t, input, opNum("blur", 1))
	if !out.Equal(input) {
		t.Fatal("blur with kernel 1 should not change the image")
	}
}

func TestBlurKernelClampedToImage(t *testing.T) {
	input := gradientBuffer(t, 8, 5)

	widest := mustRun(t, input, opNum("blur", 17))
	huge := mustRun(t, input, opNum("blur", 2147483647))
	if huge.Width != 8 || huge.Height != 5 {
		t.Fatalf("unexpected size %dx%d", huge.Width, huge.Height)
	}
	if !huge.Equal(widest) {
		t.Fatal("kernels wider than 2*max(w,h)+1 should match the widest kernel")
	}
}

func TestBlurKeepsSolidColor(t *testing.T) {
	input := solidBuffer(t, 12, 12, 30, 60, 90)
	out := mustRun(t, input, op("blur"))
	if !out.Equal(input) {
		t.Fatal("blurring a solid image should not change it")
	}
}

func TestFlipTwiceRestores(t *testing.T) {
	input := gradientBuffer(t, 7, 5)
	gray := mustRun(t, input, op("grayscale"))

	tests := []struct {
		name  string
		input *raster.Buffer
		flip  domain.Operation
	}{
		{"horizontal default", input, op("flip")},
		{"horizontal explicit", input, opText("flip", "horizontal")},
		{"vertical", input, opText("flip", "vertical")},
		{"vertical gray", gray, opText("flip", "vertical")},
		{"horizontal gray", gray, op("flip")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := mustRun(t, tt.input, tt.flip)
			if once.Equal(tt.input) {
				t.Fatal("a single flip should change an asymmetric image")
			}
			if once.Mode != tt.input.Mode {
				t.Fatalf("flip changed mode from %s to %s", tt.input.Mode, once.Mode)
			}
			twice := mustRun(t, tt.input, tt.flip, tt.flip)
			if !twice.Equal(tt.input) {
				t.Fatal("flipping twice should restore the input")
			}
		})
	}
}

func TestFlipDirections(t *testing.T) {
	input := gradientBuffer(t, 4, 3)

	h := mustRun(t, input, op("flip"))
	b1, g1, r1 := input.BGR(0, 0)
	b2, g2, r2 := h.BGR(3, 0)
	if b1 != b2 || g1 != g2 || r1 != r2 {
		t.Fatal("horizontal flip should mirror left to right")
	}

	v := mustRun(t, input, opText("flip", "vertical"))
	b2, g2, r2 = v.BGR(0, 2)
	if b1 != b2 || g1 != g2 || r1 != r2 {
		t.Fatal("vertical flip should mirror top to bottom")
	}
}

func TestResizeExactDimensions(t *testing.T) {
	input := gradientBuffer(t, 20, 10)

	out := mustRun(t, input, domain.Operation{Name: "resize", Value: domain.DimensionsValue(8, 2)})
	if out.Width != 8 || out.Height != 2 {
		t.Fatalf("expected 8x2, got %dx%d", out.Width, out.Height)
	}
	if out.Mode != raster.Color {
		t.Fatalf("resize changed mode to %s", out.Mode)
	}

	gray := mustRun(t, input, op("grayscale"), domain.Operation{Name: "resize", Value: domain.DimensionsValue(3, 30)})
	if gray.Width != 3 || gray.Height != 30 || gray.Mode != raster.Gray {
		t.Fatalf("gray resize: got %dx%d %s", gray.Width, gray.Height, gray.Mode)
	}
}

func TestResizeInvalidValueIsNoop(t *testing.T) {
	input := gradientBuffer(t, 6, 4)
	values := []domain.Value{
		{},
		domain.NumberValue(8),
		domain.TextValue("8x2"),
		domain.DimensionsValue(0, 2),
		domain.DimensionsValue(8, -1),
	}
	for _, v := range values {
		out := mustRun(t, input, domain.Operation{Name: "resize", Value: v})
		if !out.Equal(input) {
			t.Errorf("resize with %+v should be a no-op", v)
		}
	}
}

func TestResizeOverPixelLimit(t *testing.T) {
	executor := NewExecutor(NewRegistryWithLimits(Limits{MaxPixels: 64}))
	input := gradientBuffer(t, 4, 4)

	_, err := executor.Run(input, []domain.Operation{
		{Name: "resize", Value: domain.DimensionsValue(2000, 2000)},
	})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 0 {
		t.Fatalf("expected step error at index 0, got %v", err)
	}

	out, err := executor.Run(input, []domain.Operation{
		{Name: "resize", Value: domain.DimensionsValue(8, 8)},
	})
	if err != nil {
		t.Fatalf("resize at the limit: %v", err)
	}
	if out.Processed.Width != 8 || out.Processed.Height != 8 {
		t.Fatalf("expected 8x8, got %dx%d", out.Processed.Width, out.Processed.Height)
	}
}

func TestRotateKeepsCanvas(t *testing.T) {
	input := gradientBuffer(t, 6, 4)
	for _, v := range []domain.Operation{op("rotate"), opNum("rotate", 45), opNum("rotate", -30), opText("rotate", "sideways")} {
		out := mustRun(t, input, v)
		if out.Width != 6 || out.Height != 4 || out.Mode != raster.Color {
			t.Fatalf("%s: got %dx%d %s", v, out.Width, out.Height, out.Mode)
		}
	}

	gray := mustRun(t, input, op("grayscale"), opNum("rotate", 90))
	if gray.Mode != raster.Gray {
		t.Fatalf("rotate changed gray mode to %s", gray.Mode)
	}
}

func TestRotate180IsPointReflection(t *testing.T) {
	input := gradientBuffer(t, 9, 9)
	out := mustRun(t, input, opNum("rotate", 180))

	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			wb, wg, wr := input.BGR(x, y)
			b, g, r := out.BGR(8-x, 8-y)
			if b != wb || g != wg || r != wr {
				t.Fatalf("(%d,%d) should land on (%d,%d) as %d,%d,%d, got %d,%d,%d",
					x, y, 8-x, 8-y, wb, wg, wr, b, g, r)
			}
		}
	}
}

func TestRotate180TwiceRestoresInput(t *testing.T) {
	input := gradientBuffer(t, 9, 9)

	first := mustRun(t, input, opNum("rotate", 180))
	second := mustRun(t, first, opNum("rotate", 180))
	if !second.Equal(input) {
		t.Fatal("two half turns should restore every pixel")
	}

	gray := mustRun(t, input, op("grayscale"))
	twice := mustRun(t, gray, opNum("rotate", 180), opNum("rotate", -180))
	if !twice.Equal(gray) {
		t.Fatal("half turns on a gray image should restore every pixel")
	}
}

func TestRotate90IsCounterClockwise(t *testing.T) {
	input := gradientBuffer(t, 9, 9)
	out := mustRun(t, input, op("rotate"))

	// (w-1, h/2) on the right edge moves to (w/2, 0) on the top edge.
	wb, wg, wr := input.BGR(8, 4)
	if b, g, r := out.BGR(4, 0); b != wb || g != wg || r != wr {
		t.Fatalf("(4,0): got %d,%d,%d, want %d,%d,%d", b, g, r, wb, wg, wr)
	}
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			wb, wg, wr := input.BGR(x, y)
			if b, g, r := out.BGR(y, 8-x); b != wb || g != wg || r != wr {
				t.Fatalf("(%d,%d) should land on (%d,%d)", x, y, y, 8-x)
			}
		}
	}

	quarter := mustRun(t, input, opNum("rotate", -270))
	if !quarter.Equal(out) {
		t.Fatal("rotate -270 should match rotate 90")
	}
}

func TestRotateUncoveredAreaIsBlack(t *testing.T) {
	input := solidBuffer(t, 6, 4, 40, 80, 120)
	out := mustRun(t, input, opNum("rotate", 90))

	// Pivot is pixel (3,2); column 0 maps from source row -1.
	if b, g, r := out.BGR(0, 0); b != 0 || g != 0 || r != 0 {
		t.Fatalf("uncovered corner: got %d,%d,%d", b, g, r)
	}
	if b, g, r := out.BGR(3, 2); b != 40 || g != 80 || r != 120 {
		t.Fatalf("pivot pixel: got %d,%d,%d", b, g, r)
	}
}

func TestLightenAndDarkenSaturate(t *testing.T) {
	input := solidBuffer(t, 2, 2, 100, 100, 100)

	tests := []struct {
		name string
		op   domain.Operation
		want uint8
	}{
		{"lighten default", op("lighten"), 150},
		{"lighten value", opNum("lighten", 20), 120},
		{"lighten clamps", opNum("lighten", 500), 255},
		{"darken default", op("darken"), 50},
		{"darken clamps", opNum("darken", 200), 0},
		{"darken numeric text", opText("darken", "40"), 60},
		{"lighten non-numeric uses default", opText("lighten", "bright"), 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustRun(t, input, tt.op)
			for i, v := range out.Pix {
				if v != tt.want {
					t.Fatalf("byte %d: got %d, want %d", i, v, tt.want)
				}
			}
		})
	}
}

func TestHueShiftZeroIsNoop(t *testing.T) {
	input := gradientBuffer(t, 9, 9)
	for _, v := range []domain.Operation{op("hueshift"), opNum("hueshift", 0), opText("hueshift", "")} {
		out := mustRun(t, input, v)
		if !out.Equal(input) {
			t.Fatalf("%s should not change the image", v)
		}
	}
}

func TestHueShiftFullTurnOnPrimaries(t *testing.T) {
	input, err := raster.New(4, 1, raster.Color)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	input.SetBGR(0, 0, 0, 0, 255)
	input.SetBGR(1, 0, 0, 255, 0)
	input.SetBGR(2, 0, 255, 0, 0)
	input.SetBGR(3, 0, 90, 90, 90)

	zero := mustRun(t, input, opNum("hueshift", 0))
	full := mustRun(t, input, opNum("hueshift", 360))
	if !full.Equal(zero) {
		t.Fatalf("hueshift 360 should match hueshift 0: got %v want %v", full.Pix, zero.Pix)
	}
}

func TestHueShiftRedToGreen(t *testing.T) {
	out := mustRun(t, solidBuffer(t, 1, 1, 0, 0, 255), opNum("hueshift", 120))
	b, g, r := out.BGR(0, 0)
	if b != 0 || g != 255 || r != 0 {
		t.Fatalf("expected pure green, got b=%d g=%d r=%d", b, g, r)
	}

	back := mustRun(t, out, opNum("hueshift", -120))
	b, g, r = back.BGR(0, 0)
	if b != 0 || g != 0 || r != 255 {
		t.Fatalf("negative shift should wrap back to red, got b=%d g=%d r=%d", b, g, r)
	}
}

func TestHueSteps(t *testing.T) {
	tests := map[int]int{0: 0, 1: 0, 2: 1, 359: 179, 360: 180, -1: -1, -120: -60}
	for in, want := range tests {
		if got := hueSteps(in); got != want {
			t.Errorf("hueSteps(%d): got %d, want %d", in, got, want)
		}
	}
}

func TestEdgeDetectionFindsStep(t *testing.T) {
	input, err := raster.New(20, 20, raster.Gray)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			input.Pix[y*20+x] = 255
		}
	}

	out := mustRun(t, input, op("edge_detection"))
	for y := 0; y < 20; y++ {
		if out.Pix[y*20+9] != 255 {
			t.Fatalf("expected edge at (9,%d)", y)
		}
		if out.Pix[y*20] != 0 || out.Pix[y*20+19] != 0 {
			t.Fatalf("unexpected edge at image border in row %d", y)
		}
	}
	for i, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d is not binary: %d", i, v)
		}
	}
}

func TestEdgeDetectionUniformImageHasNoEdges(t *testing.T) {
	out := mustRun(t, solidBuffer(t, 12, 12, 128, 128, 128), op("edge_detection"))
	for i, v := range out.Pix {
		if v != 0 {
			t.Fatalf("pixel %d: got %d, want 0", i, v)
		}
	}
}

func TestOriginalIsIdentity(t *testing.T) {
	input := gradientBuffer(t, 5, 5)
	out := mustRun(t, input, op("original"), op("original"))
	if !out.Equal(input) {
		t.Fatal("original marker must not change the image")
	}
}
