package kernel

import (
	"testing"

	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/palette"
	"github.com/cwbudde/mandelcore/internal/xef"
)

func flatCoeffs() orbit.Coefficients {
	return orbit.Coefficients{PolyLim: 0}
}

func TestInitWithoutSeriesApproximation(t *testing.T) {
	var s State
	z := xef.New(1, 1) // zoom = 2
	Init(&s, 50, 50, 100, 100, z, flatCoeffs())

	if s.Status != Active {
		t.Errorf("expected Active status after Init, got %v", s.Status)
	}
	if s.Iteration != 0 || s.RefIteration != 0 {
		t.Errorf("expected Iteration=0 RefIteration=0 without series approximation, got %d/%d", s.Iteration, s.RefIteration)
	}
	if s.DX != s.DX0 || s.DY != s.DY0 {
		t.Error("expected DX/DY to start equal to DX0/DY0 without series approximation")
	}
}

func TestInitCenterPixelIsOrigin(t *testing.T) {
	var s State
	z := xef.New(1, 1)
	width, height := 101, 101
	Init(&s, width/2, height/2, width, height, z, flatCoeffs())

	if s.DX0 > 0.05 || s.DX0 < -0.05 {
		t.Errorf("expected near-zero DX0 at center pixel, got %v", s.DX0)
	}
	if s.DY0 > 0.05 || s.DY0 < -0.05 {
		t.Errorf("expected near-zero DY0 at center pixel, got %v", s.DY0)
	}
}

func TestInitWithSeriesApproximationSkipsIterations(t *testing.T) {
	var s State
	z := xef.New(1, -10)
	coeffs := orbit.Coefficients{
		B:       xef.Complex{Re: xef.New(1, 0), Im: xef.New(0, 0)},
		C:       xef.Complex{Re: xef.New(0, 0), Im: xef.New(0, 0)},
		D:       xef.Complex{Re: xef.New(0, 0), Im: xef.New(0, 0)},
		PolyLim: 200,
	}
	Init(&s, 10, 10, 100, 100, z, coeffs)

	if s.Iteration != 200 || s.RefIteration != 200 {
		t.Errorf("expected Init to jump to PolyLim, got Iteration=%d RefIteration=%d", s.Iteration, s.RefIteration)
	}
}

func buildOriginStore(length int) *orbit.Store {
	points := make([]orbit.Point, length)
	for i := range points {
		points[i] = orbit.Point{X: 0, Y: 0, Scale: 0}
	}
	return &orbit.Store{Points: points}
}

func TestStepExhaustsAtIterationCap(t *testing.T) {
	store := buildOriginStore(16)
	coeffs := flatCoeffs()
	pal, _ := palette.Get("classic")

	var s State
	Init(&s, 50, 50, 100, 100, xef.New(1, -20), coeffs) // near-zero DX0/DY0 at center

	stillActive := Step(&s, store, coeffs, 10, 100, pal, 1.0)

	if stillActive {
		t.Error("expected pixel to exhaust within the iteration cap")
	}
	if s.Status != Exhausted {
		t.Errorf("expected Exhausted status, got %v", s.Status)
	}
	if s.Color != (palette.Color{}) {
		t.Errorf("expected interior pixel to resolve to pure black, got %+v", s.Color)
	}
}

func TestStepRespectsBatchCap(t *testing.T) {
	store := buildOriginStore(1000)
	coeffs := flatCoeffs()
	pal, _ := palette.Get("classic")

	var s State
	Init(&s, 50, 50, 100, 100, xef.New(1, -20), coeffs)

	stillActive := Step(&s, store, coeffs, 1000, 5, pal, 1.0)

	if !stillActive {
		t.Error("expected pixel to still be active after a short batch")
	}
	if s.Iteration != 5 {
		t.Errorf("expected Iteration=5 after a 5-step batch, got %d", s.Iteration)
	}
}

func TestStepDetectsEscape(t *testing.T) {
	// A large DX0/DY0 pushes the pixel far from the reference orbit so it
	// escapes almost immediately.
	store := buildOriginStore(16)
	coeffs := flatCoeffs()
	pal, _ := palette.Get("classic")

	s := State{DX0: 50, DY0: 50, DX: 50, DY: 50, Status: Active}

	Step(&s, store, coeffs, 1000, 1000, pal, 1.0)

	if s.Status != Escaped {
		t.Errorf("expected Escaped status for a far-out pixel, got %v", s.Status)
	}
}

func TestDirectStepInteriorIsBlack(t *testing.T) {
	pal, _ := palette.Get("classic")
	c := DirectStep(50, 50, 100, 100, 0, 0, 2.0, 100, pal, 1.0)
	if c != (palette.Color{}) {
		t.Errorf("expected the origin to resolve to interior black, got %+v", c)
	}
}

func TestDirectStepEscapingPixelGetsColor(t *testing.T) {
	pal, _ := palette.Get("classic")
	// Far corner at a wide zoom escapes quickly and should not be pure interior black.
	c := DirectStep(0, 0, 100, 100, 0, 0, 5.0, 100, pal, 1.0)
	if c == (palette.Color{}) {
		t.Error("expected an escaping pixel to resolve to a non-black color")
	}
}

func TestStepDoesNotOverrunAShortOrbit(t *testing.T) {
	// An orbit that escaped on its very first recorded point (L=1) with
	// PolyLim landing on that same, last index: the "next reference
	// point" lookup has nothing beyond index 0 to read. Step must clamp
	// and rebase rather than index past the end of the store.
	store := buildOriginStore(1)
	coeffs := orbit.Coefficients{PolyLim: 0}
	pal, _ := palette.Get("classic")

	var s State
	Init(&s, 50, 50, 100, 100, xef.New(1, -20), coeffs)

	for i := 0; i < 5; i++ {
		if !Step(&s, store, coeffs, 1000, 10, pal, 1.0) {
			break
		}
	}
}

func TestLiftPoint(t *testing.T) {
	p := orbit.Point{X: 1.5, Y: -2.5, Scale: 2}
	x, y := LiftPoint(p)
	if x != 6 { // 1.5 * 2^2
		t.Errorf("LiftPoint X = %v, want 6", x)
	}
	if y != -10 { // -2.5 * 2^2
		t.Errorf("LiftPoint Y = %v, want -10", y)
	}
}
