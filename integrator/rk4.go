package integrator

import "math"

// RK4 defines a fixed step classical Runge-Kutta integrator.
type RK4 struct {
	X0         float64    // The initial x0.
	XEnd       float64    // If after X0, the last step is clipped to land on XEnd and the integration stops there.
	StepSize   float64    // The step size.
	Integrator Integrable // What is to be integrated.
}

// NewRK4 returns a new RK4 integrator instance.
func NewRK4(x0, xEnd, stepSize float64, inte Integrable) (r *RK4) {
	if stepSize <= 0 {
		panic("config StepSize must be positive")
	}
	if inte == nil {
		panic("config Integrator may not be nil")
	}
	r = &RK4{X0: x0, XEnd: xEnd, StepSize: stepSize, Integrator: inte}
	return
}

// Solve solves the configured RK4.
// Returns the number of iterations performed and the last x_i, or an error.
func (r *RK4) Solve() (uint64, float64, error) {
	const (
		half     = 1 / 2.0
		oneSixth = 1 / 6.0
		oneThird = 1 / 3.0
	)

	bounded := r.XEnd > r.X0
	iterNum := uint64(0)
	xi := r.X0
	for !r.Integrator.Stop(xi) {
		if bounded && xi >= r.XEnd {
			break
		}
		// Times are multiples of the step from X0 so they don't drift.
		next := r.X0 + float64(iterNum+1)*r.StepSize
		if bounded && next >= r.XEnd-1e-9*r.StepSize {
			next = r.XEnd
		}
		step := next - xi
		halfStep := step * half
		state := r.Integrator.GetState()
		newState := make([]float64, len(state))
		k1 := make([]float64, len(state))
		// k2, k3, k4 are used as buffers AND result variables.
		k2 := make([]float64, len(state))
		k3 := make([]float64, len(state))
		k4 := make([]float64, len(state))
		tState := make([]float64, len(state))

		// Compute the k's.
		for i, y := range r.Integrator.Func(xi, state) {
			k1[i] = y * step
			tState[i] = state[i] + k1[i]*half
		}
		for i, y := range r.Integrator.Func(xi+halfStep, tState) {
			k2[i] = y * step
			tState[i] = state[i] + k2[i]*half
		}
		for i, y := range r.Integrator.Func(xi+halfStep, tState) {
			k3[i] = y * step
			tState[i] = state[i] + k3[i]
		}
		for i, y := range r.Integrator.Func(xi+step, tState) {
			k4[i] = y * step
			newState[i] = state[i] + oneSixth*(k1[i]+k4[i]) + oneThird*(k2[i]+k3[i])
			if math.IsNaN(newState[i]) || math.IsInf(newState[i], 0) {
				return iterNum, xi, &Error{Err: ErrNonFinite, T: xi, H: step, Step: uint(iterNum)}
			}
		}

		xi = next
		r.Integrator.SetState(xi, newState)
		iterNum++ // Don't forget to increment the number of iterations.
	}

	return iterNum, xi, nil
}
