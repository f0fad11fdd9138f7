// Package kernel implements the per-pixel perturbation kernel: given a
// reference orbit and series-approximation coefficients, it advances a
// single pixel's delta state by up to batch_iter iterations, performing
// glitch detection and orbit rebasing, and on completion (escape or
// exhaustion) resolves a final color via smooth coloring.
//
// Everything here is ordinary float32/float64 arithmetic; per spec
// design note §9, arbitrary precision never appears inside the kernel.
package kernel

import (
	"math"

	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/palette"
	"github.com/cwbudde/mandelcore/internal/xef"
)

// Status is a pixel's lifecycle state.
type Status uint8

const (
	Active Status = iota
	Escaped
	Exhausted
)

// escapeBound is the kernel's own bailout, |z|^2 > 10000. It is
// intentionally larger than the reference orbit's own 400 (see
// internal/orbit): the larger bound gives a smoother continuous-
// iteration field for coloring (spec §9 Open Question).
const escapeBound = 10000

// State is one pixel's perturbation record (spec §3 Pixel state).
// DX0, DY0 are fixed at first touch and never mutate again.
type State struct {
	DX, DY       float32
	DX0, DY0     float32
	RefIteration uint32
	Iteration    uint32
	Status       Status
	Color        palette.Color
}

// Init performs first-touch coordinate derivation for pixel (px, py) in
// a target grid of size (targetWidth, targetHeight), applying the
// series approximation when the reference orbit computer reported a
// nonzero polylim. z is the zoom expressed as an XEF scalar.
func Init(s *State, px, py, targetWidth, targetHeight int, z xef.Float, coeffs orbit.Coefficients) {
	aspect := float64(targetWidth) / float64(targetHeight)
	u := 2*(float64(px)+0.5)/float64(targetWidth) - 1
	v := 2*(float64(py)+0.5)/float64(targetHeight) - 1

	dx0x := xef.Mul(z, xef.New(float32(aspect*u), 0))
	dy0x := xef.Mul(z, xef.New(float32(v), 0))

	s.DX0 = dx0x.ToFloat32()
	s.DY0 = dy0x.ToFloat32()

	if coeffs.PolyLim > 0 {
		d := xef.Complex{Re: dx0x, Im: dy0x}
		d2 := xef.MulC(d, d)
		d3 := xef.MulC(d2, d)
		approx := xef.AddC(xef.AddC(xef.MulC(coeffs.B, d), xef.MulC(coeffs.C, d2)), xef.MulC(coeffs.D, d3))
		s.DX = approx.Re.ToFloat32()
		s.DY = approx.Im.ToFloat32()
		s.Iteration = uint32(coeffs.PolyLim)
		s.RefIteration = uint32(coeffs.PolyLim)
	} else {
		s.DX = s.DX0
		s.DY = s.DY0
		s.Iteration = 0
		s.RefIteration = 0
	}

	s.Status = Active
}

// LiftPoint converts an orbit.Point back to a plain float32 pair,
// xm*2^scale and ym*2^scale.
func LiftPoint(p orbit.Point) (float32, float32) {
	scale := pow2f32(p.Scale)
	return p.X * scale, p.Y * scale
}

func pow2f32(e int32) float32 {
	neg := e < 0
	if neg {
		e = -e
	}
	m := float32(1)
	for i := int32(0); i < e; i++ {
		m *= 2
	}
	if neg {
		return 1 / m
	}
	return m
}

// Step advances pixel state by up to batchIter iterations of the
// perturbation recurrence, per spec §4.3. It returns true if the pixel
// is still Active when the dispatch ends (i.e. it should be counted
// against the remaining-work counter).
func Step(s *State, store *orbit.Store, coeffs orbit.Coefficients, iterations, batchIter int, pal palette.Palette, colorScale float64) bool {
	l := store.Len()
	dx, dy := s.DX, s.DY
	dx0, dy0 := s.DX0, s.DY0
	refIter := int(s.RefIteration)
	iter := int(s.Iteration)

	for thisBatch := 0; iter < iterations && s.Status == Active && thisBatch < batchIter; thisBatch++ {
		rx, ry := LiftPoint(store.At(refIter))

		newDx := 2*rx*dx - 2*ry*dy + dx*dx - dy*dy + dx0
		newDy := 2*rx*dy + 2*ry*dx + 2*dx*dy + dy0
		dx, dy = newDx, newDy

		refIter++
		atEnd := refIter >= l-1
		if atEnd {
			// No recorded reference point beyond the last sample (the
			// orbit may have escaped well short of `iterations`, or the
			// series jump-start may have landed on the last index
			// already): clamp instead of overrunning the store, and
			// force the rebase below.
			refIter = l - 1
		}
		rx2, ry2 := LiftPoint(store.At(refIter))

		zx := dx + rx2
		zy := dy + ry2
		zmag := float64(zx)*float64(zx) + float64(zy)*float64(zy)
		dmag := float64(dx)*float64(dx) + float64(dy)*float64(dy)

		if zmag > escapeBound {
			s.Status = Escaped
			s.Color = smoothColor(iter, zx, zy, pal, colorScale)
			iter++
			break
		} else if atEnd || zmag < dmag {
			dx += rx2
			dy += ry2
			refIter = 0
		}
		iter++
	}

	s.DX, s.DY = dx, dy
	s.RefIteration = uint32(refIter)
	s.Iteration = uint32(iter)

	if s.Status == Active && iter >= iterations {
		s.Status = Exhausted
		s.Color = palette.Color{} // interior: pure black, independent of dx, dy
	}

	return s.Status == Active
}

// HostSmoothColor exposes smoothColor to dispatchers (such as the GPU
// backend) that finish coloring on the host after a device-side kernel
// reports a pixel's escape.
func HostSmoothColor(iteration int, x, y float32, pal palette.Palette, colorScale float64) palette.Color {
	return smoothColor(iteration, x, y, pal, colorScale)
}

// smoothColor implements spec §4.4: continuous-iteration coloring with
// the palette lookup performed in linear light.
func smoothColor(iteration int, x, y float32, pal palette.Palette, colorScale float64) palette.Color {
	zmag := float64(x)*float64(x) + float64(y)*float64(y)
	nu := math.Log2(0.5 * math.Log(zmag))
	if math.IsNaN(nu) || math.IsInf(nu, 0) {
		// log of a near-zero magnitude (spec §7 numerical event):
		// clamp to the interior color rather than propagate NaN.
		return palette.Color{}
	}
	continuous := float64(iteration) + 1 - nu
	return pal.Lookup(continuous * colorScale)
}

// DirectStep runs the non-perturbation, ordinary double-precision
// Mandelbrot iteration for a single pixel. This is the shallow-zoom
// fallback (SPEC_FULL §4 item 2): at z >= 1e-3 perturbation brings no
// benefit and ordinary f64 iteration is both simpler and the reference
// the perturbation path is checked against (spec §8 property 5).
func DirectStep(px, py, width, height int, cx, cy, zoom float64, iterations int, pal palette.Palette, colorScale float64) palette.Color {
	aspect := float64(width) / float64(height)
	u := 2*(float64(px)+0.5)/float64(width) - 1
	v := 2*(float64(py)+0.5)/float64(height) - 1
	x0 := u*zoom*aspect + cx
	y0 := v*zoom + cy

	var x, y float64
	iter := 0
	for iter < iterations {
		x2 := x * x
		y2 := y * y
		if x2+y2 > escapeBound {
			break
		}
		y = 2*x*y + y0
		x = x2 - y2 + x0
		iter++
	}

	if iter == iterations {
		return palette.Color{}
	}
	return smoothColorF64(iter, x, y, pal, colorScale)
}

func smoothColorF64(iteration int, x, y float64, pal palette.Palette, colorScale float64) palette.Color {
	zmag := x*x + y*y
	nu := math.Log2(0.5 * math.Log(zmag))
	if math.IsNaN(nu) || math.IsInf(nu, 0) {
		return palette.Color{}
	}
	continuous := float64(iteration) + 1 - nu
	return pal.Lookup(continuous * colorScale)
}
