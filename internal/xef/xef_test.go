package xef

import (
	"math"
	"testing"
)

func closeF32(a, b, tol float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b Float
		want float32
	}{
		{"same exponent", New(1, 0), New(2, 0), 3},
		{"different exponent", New(1, 1), New(1, 0), 3}, // 2 + 1
		{"negative", New(-1, 0), New(1, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Add(tt.a, tt.b).ToFloat32()
			if !closeF32(got, tt.want, 1e-5) {
				t.Errorf("Add(%v,%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSub(t *testing.T) {
	got := Sub(New(3, 0), New(1, 0)).ToFloat32()
	if !closeF32(got, 2, 1e-5) {
		t.Errorf("Sub = %v, want 2", got)
	}
}

func TestMulRenormalizes(t *testing.T) {
	// 2^10 * 2^10 should not overflow the mantissa; exponent absorbs growth.
	a := New(1, 10)
	b := New(1, 10)
	got := Mul(a, b)
	if got.Mantissa > 2 || got.Mantissa < 0.5 {
		t.Errorf("Mul did not renormalize mantissa, got %v", got.Mantissa)
	}
	want := float32(math.Pow(2, 20))
	if !closeF32(got.ToFloat32(), want, want*1e-5) {
		t.Errorf("Mul(2^10,2^10) = %v, want %v", got.ToFloat32(), want)
	}
}

func TestMulZero(t *testing.T) {
	got := Mul(Zero, New(5, 3))
	if got.Mantissa != 0 {
		t.Errorf("Mul by zero should stay zero mantissa, got %v", got.Mantissa)
	}
}

func TestMaxAbs(t *testing.T) {
	a := New(-5, 0)
	b := New(3, 0)
	got := MaxAbs(a, b)
	if !closeF32(got.ToFloat32(), 5, 1e-5) {
		t.Errorf("MaxAbs(-5,3) = %v, want 5", got.ToFloat32())
	}
}

func TestGt(t *testing.T) {
	if !Gt(New(1, 10), New(1, 0)) {
		t.Error("expected 2^10 > 2^0")
	}
	if Gt(New(1, 0), New(1, 10)) {
		t.Error("expected 2^0 not > 2^10")
	}
}

func TestToFloat32RoundTrip(t *testing.T) {
	f := New(1.5, 4)
	got := f.ToFloat32()
	want := float32(1.5 * 16)
	if !closeF32(got, want, 1e-4) {
		t.Errorf("ToFloat32() = %v, want %v", got, want)
	}
}

func TestComplexArithmetic(t *testing.T) {
	a := Complex{Re: New(1, 0), Im: New(2, 0)}
	b := Complex{Re: New(3, 0), Im: New(4, 0)}

	sum := AddC(a, b)
	if !closeF32(sum.Re.ToFloat32(), 4, 1e-5) || !closeF32(sum.Im.ToFloat32(), 6, 1e-5) {
		t.Errorf("AddC = (%v,%v), want (4,6)", sum.Re.ToFloat32(), sum.Im.ToFloat32())
	}

	// (1+2i)(3+4i) = (3-8) + (4+6)i = -5 + 10i
	prod := MulC(a, b)
	if !closeF32(prod.Re.ToFloat32(), -5, 1e-4) || !closeF32(prod.Im.ToFloat32(), 10, 1e-4) {
		t.Errorf("MulC = (%v,%v), want (-5,10)", prod.Re.ToFloat32(), prod.Im.ToFloat32())
	}
}

func TestScaleC(t *testing.T) {
	a := Complex{Re: New(1, 0), Im: New(2, 0)}
	s := New(2, 0)
	got := ScaleC(s, a)
	if !closeF32(got.Re.ToFloat32(), 2, 1e-5) || !closeF32(got.Im.ToFloat32(), 4, 1e-5) {
		t.Errorf("ScaleC = (%v,%v), want (2,4)", got.Re.ToFloat32(), got.Im.ToFloat32())
	}
}

func TestComplexZeroIsIdentity(t *testing.T) {
	a := Complex{Re: New(3, 2), Im: New(-1, 5)}
	got := AddC(a, ComplexZero)
	if !closeF32(got.Re.ToFloat32(), a.Re.ToFloat32(), 1e-4) || !closeF32(got.Im.ToFloat32(), a.Im.ToFloat32(), 1e-4) {
		t.Errorf("a + ComplexZero changed value: got (%v,%v), want (%v,%v)",
			got.Re.ToFloat32(), got.Im.ToFloat32(), a.Re.ToFloat32(), a.Im.ToFloat32())
	}
}
