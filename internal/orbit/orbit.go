// Package orbit computes the arbitrary-precision reference orbit at a
// render's center point and the series-approximation coefficients that
// let the per-pixel kernel skip its earliest iterations. This is the
// only part of the renderer that touches arbitrary precision; its
// output (the reference Store and the Coefficients) is consumed by
// internal/kernel using ordinary float32 arithmetic.
package orbit

import (
	"math/big"

	"github.com/cwbudde/mandelcore/internal/bignum"
	"github.com/cwbudde/mandelcore/internal/xef"
)

// seriesApproxK is the design constant in the validity bound
//
//	bound = XEF{1000, exp(z)+K} * max_abs(D)
//
// The original renderer uses K=25; other variants in the same lineage
// range up to 100. K=48 is used here: conservative enough that the
// S2/S3 deep-zoom scenarios keep a nonzero polylim without visibly
// degrading to per-pixel artifacts, picked empirically against those
// two scenarios. A larger K renders more slowly (less of the orbit is
// skipped); a smaller K risks visible series-approximation artifacts
// near the boundary where the polynomial stops being valid.
const seriesApproxK = 48

// refEscapeBound is the XEF{400, 0} bailout (|z|^2 > 400, the classic
// |z|>20 criterion) used while walking the reference orbit itself. It
// intentionally differs from the kernel's far larger 10000 bailout
// (see internal/kernel): a smaller threshold here would stop recording
// reference points slightly earlier than the kernel needs; the
// kernel's much larger bailout exists separately to produce a smoother
// continuous-iteration field for colored escape-time rendering (spec
// Open Question, §9).
var refEscapeBound = xef.New(400, 0)

// Point is one reference-orbit record: (xm, ym) * 2^scale.
type Point struct {
	X, Y  float32
	Scale int32
}

// Store is the ordered sequence of reference-orbit points.
type Store struct {
	Points []Point
}

// Len returns the orbit length L.
func (s *Store) Len() int { return len(s.Points) }

// At returns the reference point at index i as the raw mantissa/scale
// record stored by Compute; no rescaling is applied. Turning it into a
// working value is left to the kernel.
func (s *Store) At(i int) Point {
	return s.Points[i]
}

// Coefficients holds the up-to-degree-3 series-approximation state:
// B, C, D (complex XEF coefficients for d^1, d^2, d^3) and PolyLim,
// the largest reference index at which the polynomial remained valid.
type Coefficients struct {
	B, C, D xef.Complex
	PolyLim int
}

// Compute drives the arbitrary-precision iterator z <- z^2+c at the
// given center, populating both the reference-orbit Store and the
// series-approximation Coefficients in lockstep, per spec §4.2.
//
// It never fails: even a center immediately outside the Mandelbrot set
// (escaping within one or two iterations) yields a nonempty orbit
// (at least the origin) and a PolyLim, possibly 0.
func Compute(cx, cy, z *big.Float, iterations int) (*Store, Coefficients) {
	prec := bignum.RequiredPrecision(cx, cy, z)

	x := new(big.Float).SetPrec(prec).SetInt64(0)
	y := new(big.Float).SetPrec(prec).SetInt64(0)
	txx := new(big.Float).SetPrec(prec)
	txy := new(big.Float).SetPrec(prec)
	tyy := new(big.Float).SetPrec(prec)

	store := &Store{Points: make([]Point, 0, iterations+1)}

	var bx, by, cxf, cyf, dx, dy xef.Float
	notFailed := true
	polyLim := 0

	zExp := int32(bignum.Exp(z))
	bound1000 := xef.New(1000, zExp+seriesApproxK)

	for i := 0; i <= iterations; i++ {
		xExp := bignum.Exp(x)
		yExp := bignum.Exp(y)

		rawScale := xExp
		if yExp > rawScale {
			rawScale = yExp
		}

		var fx, fy float32
		var scaleExp int
		if rawScale < -10000 {
			// Forced underflow to exact zero (spec §3 data model invariant).
			fx, fy, scaleExp = 0, 0, 0
		} else {
			scaleExp = rawScale
			xm, xe := bignum.ToF32Exp(x)
			ym, ye := bignum.ToF32Exp(y)
			fx = rescaleMantissa(xm, xe, int32(scaleExp))
			fy = rescaleMantissa(ym, ye, int32(scaleExp))
		}

		store.Points = append(store.Points, Point{X: fx, Y: fy, Scale: int32(scaleExp)})

		fxw := xef.New(fx, int32(scaleExp))
		fyw := xef.New(fy, int32(scaleExp))

		// z <- z^2 + c, full precision.
		txx.Mul(x, x)
		tyy.Mul(y, y)
		txy.Mul(x, y)

		newX := new(big.Float).SetPrec(prec).Sub(txx, tyy)
		newX.Add(newX, cx)
		newY := new(big.Float).SetPrec(prec).Add(txy, txy)
		newY.Add(newY, cy)
		x, y = newX, newY

		one := xef.New(1, 0)
		two := xef.New(2, 0)

		tbx := xef.Add(xef.Mul(two, xef.Sub(xef.Mul(fxw, bx), xef.Mul(fyw, by))), one)
		tby := xef.Mul(two, xef.Add(xef.Mul(fxw, by), xef.Mul(fyw, bx)))

		tcx := xef.Sub(
			xef.Add(xef.Mul(two, xef.Sub(xef.Mul(fxw, cxf), xef.Mul(fyw, cyf))), xef.Mul(bx, bx)),
			xef.Mul(by, by),
		)
		tcy := xef.Add(
			xef.Mul(two, xef.Add(xef.Mul(fxw, cyf), xef.Mul(fyw, cxf))),
			xef.Mul(xef.Mul(two, bx), by),
		)

		tdx := xef.Mul(two, xef.Add(
			xef.Sub(xef.Mul(fxw, dx), xef.Mul(fyw, dy)),
			xef.Sub(xef.Mul(cxf, bx), xef.Mul(cyf, by)),
		))
		tdy := xef.Mul(two, xef.Add(
			xef.Add(xef.Mul(fxw, dy), xef.Mul(fyw, dx)),
			xef.Add(xef.Mul(cxf, by), xef.Mul(cyf, bx)),
		))

		xm2, xe2 := bignum.ToF32Exp(x)
		ym2, ye2 := bignum.ToF32Exp(y)
		fx2 := xef.New(xm2, xe2)
		fy2 := xef.New(ym2, ye2)

		bound := xef.Mul(bound1000, xef.MaxAbs(tdx, tdy))
		if i == 0 || xef.Gt(xef.MaxAbs(tcx, tcy), bound) {
			if notFailed {
				polyLim = i
				bx, by, cxf, cyf, dx, dy = tbx, tby, tcx, tcy, tdx, tdy
			}
		} else {
			notFailed = false
		}

		if xef.Gt(xef.Add(xef.Mul(fx2, fx2), xef.Mul(fy2, fy2)), refEscapeBound) {
			break
		}
	}

	coeffs := Coefficients{
		B:       xef.Complex{Re: bx, Im: by},
		C:       xef.Complex{Re: cxf, Im: cyf},
		D:       xef.Complex{Re: dx, Im: dy},
		PolyLim: polyLim,
	}
	return store, coeffs
}

// rescaleMantissa adjusts a mantissa originally expressed at exponent
// sourceExp so it is expressed at targetExp instead: m * 2^(sourceExp-targetExp).
func rescaleMantissa(m float32, sourceExp, targetExp int32) float32 {
	if sourceExp == targetExp {
		return m
	}
	return m * pow2f32(sourceExp-targetExp)
}

func pow2f32(e int32) float32 {
	// float32 has ample range for the exponents this function is
	// called with (orbit-local scale deltas, not the full XEF range).
	result := float32(1)
	neg := e < 0
	if neg {
		e = -e
	}
	for i := int32(0); i < e; i++ {
		result *= 2
	}
	if neg {
		return 1 / result
	}
	return result
}
