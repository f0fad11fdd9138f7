package render

import (
	"math/big"
	"testing"

	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/palette"
)

func TestGridMarkActiveAndRemaining(t *testing.T) {
	g := NewGrid(4, 4)
	g.ResetRemaining()

	for i := 0; i < 3; i++ {
		g.MarkActive()
	}
	if got := g.Remaining(); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}

	g.ResetRemaining()
	if got := g.Remaining(); got != 0 {
		t.Errorf("Remaining() after reset = %d, want 0", got)
	}
}

func TestGridAtIndexing(t *testing.T) {
	g := NewGrid(3, 2)
	g.At(2, 1).Status = kernel.Escaped
	if g.Pixels[1*3+2].Status != kernel.Escaped {
		t.Error("At() did not address the expected row-major pixel")
	}
}

func TestOutputBufferSetAndToImage(t *testing.T) {
	out := NewOutputBuffer(2, 2)
	out.Set(0, 0, 10, 20, 30)
	out.Set(1, 1, 40, 50, 60)

	img := out.ToImage()
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("unexpected pixel at (0,0): %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestResolveSSAAPassThroughAtK1(t *testing.T) {
	grid := NewGrid(2, 2)
	grid.At(0, 0).Color = palette.Color{R: 1, G: 0, B: 0}
	grid.At(1, 0).Color = palette.Color{R: 0, G: 1, B: 0}
	grid.At(0, 1).Color = palette.Color{R: 0, G: 0, B: 1}
	grid.At(1, 1).Color = palette.Color{R: 1, G: 1, B: 1}

	out := ResolveSSAA(grid, 2, 2, 1)

	r, g, b, _ := out.ToImage().At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("k=1 resolve should pass through exactly, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestResolveSSAAAveragesSupersamples(t *testing.T) {
	// 2x2 oversampled grid resolving to a single output pixel: black and
	// white samples should average to a mid-gray in linear light, not a
	// naive sRGB 50% gray.
	grid := NewGrid(2, 2)
	grid.At(0, 0).Color = palette.Color{R: 0, G: 0, B: 0}
	grid.At(1, 0).Color = palette.Color{R: 1, G: 1, B: 1}
	grid.At(0, 1).Color = palette.Color{R: 0, G: 0, B: 0}
	grid.At(1, 1).Color = palette.Color{R: 1, G: 1, B: 1}

	out := ResolveSSAA(grid, 1, 1, 2)

	r, _, _, _ := out.ToImage().At(0, 0).RGBA()
	gotByte := r >> 8
	if gotByte == 0 || gotByte == 255 {
		t.Errorf("expected a blended mid-tone, got %d", gotByte)
	}
	// Linear-light averaging of black/white is brighter than naive sRGB
	// averaging (188 vs 128); check it lands on that side.
	if gotByte < 150 {
		t.Errorf("expected linear-light average biased bright, got %d", gotByte)
	}
}

func TestViewpointTargetDims(t *testing.T) {
	vp := Viewpoint{Width: 100, Height: 50, SSAAFactor: 2}
	w, h := vp.TargetDims()
	if w != 200 || h != 100 {
		t.Errorf("TargetDims() = (%d,%d), want (200,100)", w, h)
	}
}

func TestViewpointTargetDimsClampsFactor(t *testing.T) {
	vp := Viewpoint{Width: 10, Height: 10, SSAAFactor: 0}
	w, h := vp.TargetDims()
	if w != 10 || h != 10 {
		t.Errorf("TargetDims() with SSAAFactor=0 = (%d,%d), want (10,10)", w, h)
	}
}

func TestViewpointSameCenterAs(t *testing.T) {
	a := Viewpoint{CX: big.NewFloat(-0.75), CY: big.NewFloat(0.1), Z: big.NewFloat(2)}
	b := Viewpoint{CX: big.NewFloat(-0.75), CY: big.NewFloat(0.1), Z: big.NewFloat(2)}
	c := Viewpoint{CX: big.NewFloat(-0.8), CY: big.NewFloat(0.1), Z: big.NewFloat(2)}

	if !a.sameCenterAs(b) {
		t.Error("expected equal-valued viewpoints to compare equal")
	}
	if a.sameCenterAs(c) {
		t.Error("expected different centers to compare unequal")
	}
}

func TestNormalizeBackend(t *testing.T) {
	tests := map[string]Backend{
		"":       BackendCPU,
		"cpu":    BackendCPU,
		"CPU":    BackendCPU,
		"single": BackendSingle,
		"serial": BackendSingle,
		"gpu":    BackendGPU,
		"opencl": BackendGPU,
		"bogus":  Backend("bogus"),
	}
	for input, want := range tests {
		if got := NormalizeBackend(input); got != want {
			t.Errorf("NormalizeBackend(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewDispatcherUnknownBackend(t *testing.T) {
	_, err := NewDispatcher("not-a-backend")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestSchedulerRendersShallowViewpointDirectly(t *testing.T) {
	scheduler, err := NewScheduler("single")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	defer scheduler.Close()

	pal, _ := palette.Get("classic")
	vp := Viewpoint{
		CX:         big.NewFloat(0),
		CY:         big.NewFloat(0),
		Z:          big.NewFloat(2), // above directZoomThreshold: exercises the f64 fallback path
		Iterations: 50,
		Width:      8,
		Height:     8,
		SSAAFactor: 1,
		BatchIter:  10,
		Palette:    pal,
		ColorScale: 1.0,
	}
	scheduler.SetViewpoint(vp)

	dispatches := 0
	for !scheduler.Finished() {
		scheduler.Step(vp.BatchIter)
		dispatches++
		if dispatches > 10 {
			t.Fatal("scheduler did not converge to Finished()")
		}
	}

	out := scheduler.RenderOutput()
	if out.Width != 8 || out.Height != 8 {
		t.Errorf("RenderOutput dims = (%d,%d), want (8,8)", out.Width, out.Height)
	}
}

func TestSchedulerReusesOrbitForUnchangedCenter(t *testing.T) {
	scheduler, err := NewScheduler("cpu")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	defer scheduler.Close()

	pal, _ := palette.Get("classic")
	vp := Viewpoint{
		CX:         big.NewFloat(-0.5),
		CY:         big.NewFloat(0),
		Z:          big.NewFloat(1e-4), // below directZoomThreshold: exercises the perturbation/orbit path
		Iterations: 20,
		Width:      4,
		Height:     4,
		SSAAFactor: 1,
		BatchIter:  5,
		Palette:    pal,
		ColorScale: 1.0,
	}
	scheduler.SetViewpoint(vp)
	scheduler.Step(vp.BatchIter)

	// Re-setting the same center should not mark updatedPosition, so
	// Finished() reflects only the render's own completion state.
	vp2 := vp
	vp2.Iterations = 40
	scheduler.SetViewpoint(vp2)

	dispatches := 0
	for !scheduler.Finished() {
		scheduler.Step(vp2.BatchIter)
		dispatches++
		if dispatches > 20 {
			t.Fatal("scheduler did not converge to Finished()")
		}
	}

	out := scheduler.RenderOutput()
	if out.Width != 4 || out.Height != 4 {
		t.Errorf("RenderOutput dims = (%d,%d), want (4,4)", out.Width, out.Height)
	}
}
