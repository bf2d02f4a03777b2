package sirs

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestSweepOrder(t *testing.T) {
	r0s := []float64{0.5, 1.5, 2.5, 3.5, 4.5}
	members, err := SweepR0(r0s, 0.1, 365, 150, DefaultOptions(), 3)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if len(members) != len(r0s) {
		t.Fatalf("%d members for %d parameters", len(members), len(r0s))
	}
	prevPeak := 0.0
	for i, m := range members {
		if m.Err != nil {
			t.Fatalf("member #%d failed: %s", i, m.Err)
		}
		if !scalar.EqualWithinAbs(m.Params.R0(), r0s[i], 1e-12) {
			t.Fatalf("member #%d has R0=%f instead of %f", i, m.Params.R0(), r0s[i])
		}
		// Each member must match a sequential run.
		ref, _ := SolveSIRS(r0s[i], 0.1, 365, 150)
		if len(ref) != len(m.Trajectory) || ref.Final() != m.Trajectory.Final() {
			t.Fatalf("member #%d differs from a sequential run", i)
		}
		if len(m.Trajectory) != 1501 || m.Stats.Accepted == 0 {
			t.Fatalf("member #%d: %d samples after %d accepted steps", i, len(m.Trajectory), m.Stats.Accepted)
		}
		// A larger R0 leads to a larger epidemic peak.
		peak, _ := m.Trajectory.Peak()
		if peak.I < prevPeak {
			t.Fatalf("peak of R0=%f lower than the previous one", r0s[i])
		}
		prevPeak = peak.I
	}
	if _, err := SweepR0([]float64{1, -1}, 0.1, 365, 150, DefaultOptions(), 0); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestSweepFailures(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSteps = 3
	p, _ := NewModelParameters(2.5, 0.1, 365)
	members := Sweep([]ModelParameters{p, p}, 100, opts, 2)
	for i, m := range members {
		var failure *IntegrationFailure
		if !errors.As(m.Err, &failure) || m.Trajectory != nil {
			t.Fatalf("member #%d should have failed: %v", i, m.Err)
		}
	}
}

func TestMonteCarlo(t *testing.T) {
	conf := EnsembleConfig{Members: 20, R0SD: 0.3, GammaSD: 0.01, Seed: 42, Workers: 4}
	summary, err := MonteCarlo(2.5, 0.1, 365, 100, conf, DefaultOptions())
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if summary.Failed != 0 || len(summary.Members) != 20 {
		t.Fatalf("%d failed out of %d members", summary.Failed, len(summary.Members))
	}
	if len(summary.Bands) != 101 {
		t.Fatalf("expected 101 bands on a unit grid, got %d", len(summary.Bands))
	}
	for i, b := range summary.Bands {
		if !scalar.EqualWithinAbs(b.T, float64(i), 1e-9) {
			t.Fatalf("band #%d at t=%f", i, b.T)
		}
		if b.Lower > b.Median || b.Median > b.Upper || b.Mean < b.Lower-1e-12 || b.Mean > b.Upper+1e-12 {
			t.Fatalf("inconsistent band %+v", b)
		}
	}
	// All members start from the same state.
	if b := summary.Bands[0]; b.Lower != InitialState.I() || b.Upper != InitialState.I() {
		t.Fatalf("initial band should be degenerate: %+v", b)
	}
	// The draws vary the parameters.
	if summary.Members[0].Params == summary.Members[1].Params {
		t.Fatal("members share the same parameters")
	}

	// The same seed gives the same ensemble.
	again, err := MonteCarlo(2.5, 0.1, 365, 100, conf, DefaultOptions())
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	for i := range summary.Bands {
		if summary.Bands[i] != again.Bands[i] {
			t.Fatalf("band #%d differs with the same seed", i)
		}
	}
}

func TestDrawParameters(t *testing.T) {
	// Without spread, all members use the nominal parameters.
	params, err := DrawParameters(2.5, 0.1, 365, EnsembleConfig{Members: 5})
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	nominal, _ := NewModelParameters(2.5, 0.1, 365)
	for _, p := range params {
		if p != nominal {
			t.Fatalf("%s != %s", p, nominal)
		}
	}
	// Draws are always within the domain of the parameters.
	params, err = DrawParameters(0.1, 0.01, 365, EnsembleConfig{Members: 200, R0SD: 1, GammaSD: 0.02, Seed: 7})
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	for _, p := range params {
		if p.Beta < 0 || p.Gamma <= 0 {
			t.Fatalf("invalid draw %s", p)
		}
	}
	for _, conf := range []EnsembleConfig{{Members: 0}, {Members: 1, R0SD: -1}, {Members: 1, Lower: 0.9, Upper: 0.1}} {
		if _, err := DrawParameters(2.5, 0.1, 365, conf); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("%+v: expected ErrInvalidParameters, got %v", conf, err)
		}
	}
}
