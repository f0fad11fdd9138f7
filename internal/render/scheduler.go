// Package render hosts the dispatch scheduler, pixel-state grid, and
// super-sampling resolver: the part of the core that turns a Viewpoint
// and a chosen execution Backend into a finished OutputBuffer, one
// bounded Step() at a time (spec §4.7).
package render

import (
	"log/slog"

	"github.com/cwbudde/mandelcore/internal/bignum"
	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/xef"
)

// directZoomThreshold is the zoom at or above which perturbation brings no
// benefit over ordinary double-precision iteration (SPEC_FULL §4 item
// 2, grounded in original_source's `zoom < 0.001` branch).
const directZoomThreshold = 1e-3

// Scheduler drives one viewpoint through the spec §4.7 state machine:
// needs_orbit -> building_orbit -> rendering (looping dispatches) ->
// resolving -> done.
type Scheduler struct {
	vp         Viewpoint
	dispatcher Dispatcher

	grid   *Grid
	store  *orbit.Store
	coeffs orbit.Coefficients
	zXEF   xef.Float

	haveViewpoint   bool
	updatedPosition bool
	finishedRender  bool
	directMode      bool
}

// NewScheduler constructs a scheduler bound to the named backend
// ("single", "cpu", or "gpu"; see Backend).
func NewScheduler(backend string) (*Scheduler, error) {
	d, err := NewDispatcher(backend)
	if err != nil {
		return nil, err
	}
	return &Scheduler{dispatcher: d}, nil
}

// SetViewpoint installs a new viewpoint. If the center (cx, cy, z),
// width, height and SSAA factor are all unchanged from the previous one,
// the reference orbit and pixel grid are reused across the call (the buffered/unbuffered dirty-bit
// pattern from SPEC_FULL §4 item 1); otherwise updated_position is set
// so the next Step() rebuilds everything.
func (s *Scheduler) SetViewpoint(vp Viewpoint) {
	if s.haveViewpoint && s.vp.sameCenterAs(vp) &&
		s.vp.Width == vp.Width && s.vp.Height == vp.Height && s.vp.SSAAFactor == vp.SSAAFactor {
		s.vp.Iterations = vp.Iterations
		s.vp.BatchIter = vp.BatchIter
		s.vp.Palette = vp.Palette
		s.vp.ColorScale = vp.ColorScale
		return
	}
	s.vp = vp
	s.haveViewpoint = true
	s.updatedPosition = true
	s.finishedRender = false
}

// Step executes one bounded dispatch (spec §4.7 step(iter_cap)). It
// returns the remaining-work count observed after the dispatch.
func (s *Scheduler) Step(iterCap int) uint64 {
	if s.updatedPosition {
		s.rebuildOrbit()
		s.updatedPosition = false
	}

	if s.directMode {
		s.renderDirectFrame()
		s.finishedRender = true
		return 0
	}

	batchIter := iterCap
	if batchIter <= 0 {
		batchIter = s.vp.BatchIter
	}
	s.dispatcher.Dispatch(s.grid, s.store, s.coeffs, s.vp.Iterations, batchIter, s.vp.Palette, s.vp.ColorScale)

	remaining := s.grid.Remaining()
	if remaining == 0 {
		s.finishedRender = true
	}
	return remaining
}

// Finished reports whether the current viewpoint's render has reached
// its terminal state.
func (s *Scheduler) Finished() bool {
	return !s.updatedPosition && s.finishedRender
}

// RenderOutput runs the super-sampling resolve into a fresh OutputBuffer.
func (s *Scheduler) RenderOutput() *OutputBuffer {
	k := s.vp.SSAAFactor
	if k < 1 {
		k = 1
	}
	return ResolveSSAA(s.grid, s.vp.Width, s.vp.Height, k)
}

// Close releases the scheduler's backend resources (meaningful for the
// GPU backend's OpenCL context).
func (s *Scheduler) Close() {
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
}

func (s *Scheduler) rebuildOrbit() {
	bignum.RaisePrecision(s.vp.CX, s.vp.CY, s.vp.Z)

	zf, _ := s.vp.Z.Float64()
	s.directMode = zf >= directZoomThreshold

	targetWidth, targetHeight := s.vp.TargetDims()
	s.grid = NewGrid(targetWidth, targetHeight)

	if s.directMode {
		slog.Info("render: using direct kernel", "zoom", zf)
		return
	}

	store, coeffs := orbit.Compute(s.vp.CX, s.vp.CY, s.vp.Z, s.vp.Iterations)
	s.store = store
	s.coeffs = coeffs

	zm, ze := bignum.ToF32Exp(s.vp.Z)
	s.zXEF = xef.New(zm, ze)

	for py := 0; py < targetHeight; py++ {
		for px := 0; px < targetWidth; px++ {
			kernel.Init(s.grid.At(px, py), px, py, targetWidth, targetHeight, s.zXEF, s.coeffs)
		}
	}
}

// renderDirectFrame evaluates every pixel in one pass using the f64
// fallback kernel; this path bypasses the dispatch/batch machinery
// entirely because it needs no reference orbit and is cheap enough to
// not require timeout-safe batching (SPEC_FULL §4 item 2).
func (s *Scheduler) renderDirectFrame() {
	targetWidth, targetHeight := s.vp.TargetDims()
	cx, _ := s.vp.CX.Float64()
	cy, _ := s.vp.CY.Float64()
	zoom, _ := s.vp.Z.Float64()

	for py := 0; py < targetHeight; py++ {
		for px := 0; px < targetWidth; px++ {
			ps := s.grid.At(px, py)
			ps.Color = kernel.DirectStep(px, py, targetWidth, targetHeight, cx, cy, zoom, s.vp.Iterations, s.vp.Palette, s.vp.ColorScale)
			ps.Status = kernel.Exhausted // direct mode resolves colors eagerly; status only marks "not active"
		}
	}
}
