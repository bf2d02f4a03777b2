package sirs

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestModelParameters(t *testing.T) {
	p, err := NewModelParameters(2.5, 0.1, 365)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if !scalar.EqualWithinAbs(p.Beta, 0.25, 1e-15) || p.Gamma != 0.1 || !scalar.EqualWithinAbs(p.Xi, 1/365.0, 1e-15) {
		t.Fatalf("invalid derived parameters: %s", p)
	}
	if !scalar.EqualWithinAbs(p.R0(), 2.5, 1e-12) {
		t.Fatalf("R0=%f", p.R0())
	}
	if !scalar.EqualWithinAbs(p.ImmunityDuration(), 365, 1e-9) {
		t.Fatalf("immunity duration=%f", p.ImmunityDuration())
	}
	// No transmission is allowed.
	if p, err := NewModelParameters(0, 0.1, 365); err != nil || p.Beta != 0 {
		t.Fatalf("r0=0 should be valid: %+v %v", p, err)
	}
}

func TestModelParametersInvalid(t *testing.T) {
	for _, tc := range []struct {
		name                string
		r0, gamma, immunity float64
	}{
		{"zero immunity", 2.5, 0.1, 0},
		{"negative immunity", 2.5, 0.1, -3},
		{"zero gamma", 2.5, 0, 365},
		{"negative gamma", 2.5, -0.1, 365},
		{"negative r0", -1, 0.1, 365},
		{"NaN r0", math.NaN(), 0.1, 365},
		{"infinite gamma", 2.5, math.Inf(1), 365},
		{"infinite immunity", 2.5, 0.1, math.Inf(1)},
		{"subnormal immunity", 2.5, 0.1, 1e-320},
		{"overflowing beta", 1e308, 10, 365},
	} {
		if _, err := NewModelParameters(tc.r0, tc.gamma, tc.immunity); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("[%s] expected ErrInvalidParameters, got %v", tc.name, err)
		}
	}
}
