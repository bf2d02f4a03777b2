package sirs

import "fmt"

// Compartment indexes a State.
type Compartment uint8

const (
	// Susceptible is the S compartment.
	Susceptible Compartment = iota
	// Infected is the I compartment.
	Infected
	// Recovered is the R compartment.
	Recovered
)

func (c Compartment) String() string {
	switch c {
	case Susceptible:
		return "S"
	case Infected:
		return "I"
	case Recovered:
		return "R"
	}
	panic("cannot stringify unknown compartment")
}

// State is the (S, I, R) population fractions. Nothing forces the fractions
// to stay within [0, 1] or to sum to one.
type State [3]float64

// InitialState is 99% susceptible, 1% infected and 0% recovered.
var InitialState = State{0.99, 0.01, 0.0}

// S returns the susceptible fraction.
func (s State) S() float64 { return s[Susceptible] }

// I returns the infected fraction.
func (s State) I() float64 { return s[Infected] }

// R returns the recovered fraction.
func (s State) R() float64 { return s[Recovered] }

// Total returns S+I+R.
func (s State) Total() float64 {
	return s[0] + s[1] + s[2]
}

func (s State) String() string {
	return fmt.Sprintf("S=%.6f I=%.6f R=%.6f", s[0], s[1], s[2])
}

// Model is the SIRS system of equations.
type Model struct {
	Params ModelParameters
}

// Func is the right hand side of the SIRS equations, evaluated at y and stored in dy.
func (m Model) Func(t float64, y, dy []float64) {
	s, i, r := y[0], y[1], y[2]
	infections := m.Params.Beta * s * i
	recoveries := m.Params.Gamma * i
	waning := m.Params.Xi * r
	dy[0] = -infections + waning
	dy[1] = infections - recoveries
	dy[2] = recoveries - waning
}

// Derivative returns the derivative of the state s.
func (m Model) Derivative(s State) (d State) {
	m.Func(0, s[:], d[:])
	return
}

// Equilibrium returns the fixed point the model converges to: the endemic
// equilibrium if R0 > 1, else the disease free equilibrium.
func (m Model) Equilibrium() State {
	r0 := m.Params.R0()
	if r0 <= 1 {
		return State{1, 0, 0}
	}
	s := 1 / r0
	i := m.Params.Xi * (1 - s) / (m.Params.Gamma + m.Params.Xi)
	return State{s, i, m.Params.Gamma * i / m.Params.Xi}
}
