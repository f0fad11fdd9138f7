// Package bignum wraps math/big.Float with the precision-management
// rules the renderer needs for its center/zoom coordinates: decimal
// string parsing with inferred precision, exponent extraction into a
// signed (mantissa, exponent) pair, and the "raise precision, never
// lower it" rule used whenever the viewpoint is written.
//
// The renderer's reference orbit is the only place arbitrary precision
// is used; the per-pixel kernel and the XEF coefficient arithmetic are
// ordinary float32, by design (see internal/xef).
package bignum

import (
	"fmt"
	"math/big"
	"strings"
)

// MinPrecision is the floor below which precision is never reduced,
// matching the spec's invariant that working precision is at least 53 bits.
const MinPrecision = 53

// ParseDecimal parses a decimal string into an arbitrary-precision
// real, inferring precision as ceil(digits*log2(10)) + 16 where digits
// counts the decimal digits before any exponent marker, plus the
// absolute value of the exponent if present. The result never has
// fewer than MinPrecision bits.
func ParseDecimal(s string) (*big.Float, error) {
	prec := inferPrecision(s)
	f, _, err := big.ParseFloat(s, 10, prec, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("bignum: invalid decimal %q: %w", s, err)
	}
	return f, nil
}

func inferPrecision(s string) uint {
	mantissa := s
	var exp int
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		fmt.Sscanf(s[i+1:], "%d", &exp)
	}

	digits := 0
	for _, r := range mantissa {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if exp < 0 {
		exp = -exp
	}

	// ceil(digits * log2(10)) + 16; log2(10) ~= 3.3219280948873626.
	bits := uint(float64(digits)*3.3219280948873626) + 1 + 16 + uint(exp)
	if bits < MinPrecision {
		return MinPrecision
	}
	return bits
}

// RequiredPrecision returns the minimum working precision for a
// viewpoint's cx, cy, z, per the spec invariant:
//
//	max(53, 64 + |exp(z)| + max(|exp(cx)|, |exp(cy)|))
func RequiredPrecision(cx, cy, z *big.Float) uint {
	absExp := func(f *big.Float) int {
		e := f.MantExp(nil)
		if e < 0 {
			return -e
		}
		return e
	}

	need := 64 + absExp(z)
	cxe, cye := absExp(cx), absExp(cy)
	if cxe > cye {
		need += cxe
	} else {
		need += cye
	}
	if need < MinPrecision {
		return MinPrecision
	}
	return uint(need)
}

// RaisePrecision extends cx, cy, z in place to at least the required
// precision, leaving their values unchanged. It never lowers precision.
// Returns true if any of the three was extended.
func RaisePrecision(cx, cy, z *big.Float) bool {
	want := RequiredPrecision(cx, cy, z)
	raised := false
	for _, f := range []*big.Float{cx, cy, z} {
		if f.Prec() < want {
			f.SetPrec(want)
			raised = true
		}
	}
	return raised
}

// ToF32Exp converts an arbitrary-precision real to a signed
// (mantissa, exponent) pair such that f == mantissa * 2^exponent and
// mantissa is a normal float32 in [0.5, 1) (or 0).
func ToF32Exp(f *big.Float) (mantissa float32, exponent int32) {
	if f.Sign() == 0 {
		return 0, 0
	}
	mant := new(big.Float).Copy(f)
	exp := mant.MantExp(mant)
	m32, _ := mant.Float32()
	return m32, int32(exp)
}

// Exp returns the base-2 exponent of f's mantissa representation, or 0
// for zero. This mirrors rug::Float::get_exp used by the reference
// orbit computer to size the series-approximation validity bound.
func Exp(f *big.Float) int {
	if f.Sign() == 0 {
		return 0
	}
	return f.MantExp(nil)
}

// FormatDecimal renders f back to a decimal string that reparses to an
// equal value (spec §8 property 8), using the shortest representation
// that round-trips at f's own precision.
func FormatDecimal(f *big.Float) string {
	return f.Text('g', -1)
}
