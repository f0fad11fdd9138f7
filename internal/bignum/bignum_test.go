package bignum

import (
	"math/big"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple integer", "1", false},
		{"negative decimal", "-0.75", false},
		{"scientific notation", "1.5e10", false},
		{"long decimal", "-0.74364486699706494219178608305839", false},
		{"malformed", "not-a-number", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseDecimal(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && f.Prec() < MinPrecision {
				t.Errorf("ParseDecimal(%q) precision = %d, want >= %d", tt.input, f.Prec(), MinPrecision)
			}
		})
	}
}

func TestParseDecimalPrecisionGrowsWithDigits(t *testing.T) {
	short, err := ParseDecimal("0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := ParseDecimal("0.123456789012345678901234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if long.Prec() <= short.Prec() {
		t.Errorf("expected longer decimal to infer more precision: short=%d long=%d", short.Prec(), long.Prec())
	}
}

func TestRequiredPrecisionFloor(t *testing.T) {
	cx := big.NewFloat(0)
	cy := big.NewFloat(0)
	z := big.NewFloat(2)
	got := RequiredPrecision(cx, cy, z)
	if got < MinPrecision {
		t.Errorf("RequiredPrecision = %d, want >= %d", got, MinPrecision)
	}
}

func TestRequiredPrecisionGrowsWithZoom(t *testing.T) {
	cx, _ := ParseDecimal("-0.75")
	cy, _ := ParseDecimal("0.1")

	shallow, _ := ParseDecimal("2")
	deep, _ := ParseDecimal("1e300")

	pShallow := RequiredPrecision(cx, cy, shallow)
	pDeep := RequiredPrecision(cx, cy, deep)

	if pDeep <= pShallow {
		t.Errorf("expected deeper zoom to require more precision: shallow=%d deep=%d", pShallow, pDeep)
	}
}

func TestRaisePrecisionNeverLowers(t *testing.T) {
	cx := new(big.Float).SetPrec(500).SetFloat64(-0.75)
	cy := new(big.Float).SetPrec(53).SetFloat64(0.1)
	z := new(big.Float).SetPrec(53).SetFloat64(2)

	raised := RaisePrecision(cx, cy, z)
	if !raised {
		t.Error("expected RaisePrecision to report a change")
	}
	if cx.Prec() != 500 {
		t.Errorf("RaisePrecision lowered cx precision: got %d, want 500", cx.Prec())
	}
	if cy.Prec() < MinPrecision {
		t.Errorf("cy precision too low after raise: %d", cy.Prec())
	}
}

func TestRaisePrecisionIdempotent(t *testing.T) {
	cx, _ := ParseDecimal("-0.75")
	cy, _ := ParseDecimal("0.1")
	z, _ := ParseDecimal("1e50")

	RaisePrecision(cx, cy, z)
	if RaisePrecision(cx, cy, z) {
		t.Error("second RaisePrecision call should report no change")
	}
}

func TestToF32Exp(t *testing.T) {
	f := big.NewFloat(8.0)
	m, e := ToF32Exp(f)
	if m < 0.5 || m >= 1 {
		t.Errorf("expected normalized mantissa in [0.5,1), got %v", m)
	}
	if e != 4 { // 8 = 0.5 * 2^4
		t.Errorf("expected exponent 4, got %d", e)
	}
}

func TestToF32ExpZero(t *testing.T) {
	m, e := ToF32Exp(big.NewFloat(0))
	if m != 0 || e != 0 {
		t.Errorf("ToF32Exp(0) = (%v,%v), want (0,0)", m, e)
	}
}

func TestExp(t *testing.T) {
	if Exp(big.NewFloat(0)) != 0 {
		t.Error("Exp(0) should be 0")
	}
	got := Exp(big.NewFloat(8.0))
	if got != 4 {
		t.Errorf("Exp(8.0) = %d, want 4", got)
	}
}

func TestFormatDecimalRoundTrips(t *testing.T) {
	original := "-0.743644786"
	f, err := ParseDecimal(original)
	if err != nil {
		t.Fatalf("ParseDecimal failed: %v", err)
	}
	s := FormatDecimal(f)

	reparsed, err := ParseDecimal(s)
	if err != nil {
		t.Fatalf("FormatDecimal produced unparseable output %q: %v", s, err)
	}

	if reparsed.Cmp(f) != 0 {
		t.Errorf("round-trip mismatch: original=%s formatted=%s reparsed=%s", f.Text('g', 20), s, reparsed.Text('g', 20))
	}
}
