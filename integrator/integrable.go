package integrator

// Integrable defines something which can be integrated, i.e. has a state vector.
// WARNING: Implementation must manage its own state based on the integration time.
type Integrable interface {
	GetState() []float64                   // Get the latest state of this integrable.
	SetState(t float64, s []float64)       // Set the state s at time t.
	Stop(t float64) bool                   // Return whether to stop the integration at time t.
	Func(t float64, s []float64) []float64 // ODE function from time t and state s, must return a new slice.
}

// Func is a right hand side evaluated in place: dy is set to f(t, y).
type Func func(t float64, y, dy []float64)

// Point is one accepted (or interpolated) point of an integration.
type Point struct {
	T float64
	Y []float64
}

// Stats are the integration statistics.
type Stats struct {
	Evaluations uint    // Number of right hand side evaluations.
	Accepted    uint    // Number of accepted steps.
	Rejected    uint    // Number of rejected steps.
	LastStep    float64 // Size of the last accepted step.
}
