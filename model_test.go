package sirs

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestModelFunc(t *testing.T) {
	m := Model{ModelParameters{Gamma: 0.1, Beta: 0.25, Xi: 0.01}}
	d := m.Derivative(State{0.99, 0.01, 0.1})
	exp := State{-0.25*0.99*0.01 + 0.001, 0.25*0.99*0.01 - 0.001, 0.001 - 0.001}
	if !floats.EqualApprox(d[:], exp[:], 1e-15) {
		t.Fatalf("got %v expected %v", d, exp)
	}
	if !scalar.EqualWithinAbs(d.Total(), 0, 1e-16) {
		t.Fatalf("derivatives do not conserve the population: %e", d.Total())
	}
	// Func must not alter its input.
	y := []float64{0.5, 0.2, 0.3}
	dy := make([]float64, 3)
	m.Func(0, y, dy)
	if !floats.Equal(y, []float64{0.5, 0.2, 0.3}) {
		t.Fatal("state modified by Func")
	}
}

func TestModelEquilibrium(t *testing.T) {
	m := Model{ModelParameters{Gamma: 0.5, Beta: 1, Xi: 0.1}}
	eq := m.Equilibrium()
	exp := State{0.5, 0.1 * 0.5 / 0.6, 0.5 * 0.1 * 0.5 / 0.6 / 0.1}
	if !floats.EqualApprox(eq[:], exp[:], 1e-12) {
		t.Fatalf("got %s expected %s", eq, exp)
	}
	if d := m.Derivative(eq); !floats.EqualApprox(d[:], []float64{0, 0, 0}, 1e-15) {
		t.Fatalf("equilibrium is not a fixed point: %v", d)
	}
	if !scalar.EqualWithinAbs(eq.Total(), 1, 1e-15) {
		t.Fatalf("equilibrium does not sum to one: %f", eq.Total())
	}
	// Below the epidemic threshold the disease dies out.
	m = Model{ModelParameters{Gamma: 0.5, Beta: 0.4, Xi: 0.1}}
	if eq := m.Equilibrium(); eq != (State{1, 0, 0}) {
		t.Fatalf("expected disease free equilibrium, got %s", eq)
	}
}

func TestCompartment(t *testing.T) {
	s := State{0.7, 0.2, 0.1}
	if s.S() != 0.7 || s.I() != 0.2 || s.R() != 0.1 {
		t.Fatalf("invalid accessors for %s", s)
	}
	for c, name := range map[Compartment]string{Susceptible: "S", Infected: "I", Recovered: "R"} {
		if c.String() != name {
			t.Fatalf("%d stringified to %s", c, c.String())
		}
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("unknown compartment did not panic")
		}
	}()
	_ = Compartment(3).String()
}
