package sirs

// SolveSIRS integrates the SIRS model over [0, duration] from 99% susceptible
// and 1% infected, with the reference solver settings: Dormand-Prince with a
// 0.1 initial step, absolute and relative tolerances of 1e-5, and samples
// every 0.1 day so a run of d days has 10d+1 samples.
//
// On any failure the trajectory is nil. The error is ErrInvalidParameters
// (check with errors.Is) for inputs outside of their domain, or an
// *IntegrationFailure if the solver could not reach the end of the simulation.
func SolveSIRS(r0, gamma, immunityDuration, duration float64) (Trajectory, error) {
	return Solve(r0, gamma, immunityDuration, duration, DefaultOptions())
}

// Solve is SolveSIRS with custom options.
func Solve(r0, gamma, immunityDuration, duration float64, opts Options) (Trajectory, error) {
	params, err := NewModelParameters(r0, gamma, immunityDuration)
	if err != nil {
		return nil, err
	}
	sim, err := NewSimulation(params, duration, opts)
	if err != nil {
		return nil, err
	}
	return sim.Run()
}
