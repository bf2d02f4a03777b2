package sirs

import (
	"errors"
	"fmt"
	"math"

	kitlog "github.com/go-kit/log"
	"github.com/medewitt/sirs/integrator"
)

// Method defines an enum of integration methods.
type Method uint8

const (
	// DormandPrince is the adaptive Runge-Kutta 5(4) method.
	DormandPrince Method = iota + 1
	// RK4 is the classical fixed step Runge-Kutta method, using the initial step throughout.
	RK4
)

func (m Method) String() string {
	switch m {
	case DormandPrince:
		return "dopri5"
	case RK4:
		return "rk4"
	}
	panic("cannot stringify unknown integration method")
}

// MethodFromString returns the method of the given name.
func MethodFromString(name string) (Method, error) {
	switch name {
	case "dopri5", "dopri", "DormandPrince":
		return DormandPrince, nil
	case "rk4", "RK4":
		return RK4, nil
	}
	return 0, fmt.Errorf("unknown integration method `%s`", name)
}

// Options configures a Simulation.
type Options struct {
	Method         Method
	InitialStep    float64
	AbsTol, RelTol float64
	SampleInterval float64 // If positive, samples are interpolated on this grid (Dormand-Prince only), else one sample per accepted step.
	MaxSteps       uint    // Bound on the number of step attempts, zero for the integrator default.
	Partial        bool    // Return the partial trajectory along with an integration failure.
	Logger         kitlog.Logger
}

// ReferenceSampleInterval is the output grid of the reference solver, in days.
const ReferenceSampleInterval = 0.1

// DefaultOptions returns the options of the reference solver: samples every
// 0.1 day, interpolated between the adaptive steps.
func DefaultOptions() Options {
	return Options{
		Method:         DormandPrince,
		InitialStep:    integrator.DefaultInitialStep,
		AbsTol:         integrator.DefaultTolerance,
		RelTol:         integrator.DefaultTolerance,
		SampleInterval: ReferenceSampleInterval,
	}
}

// IntegrationFailure is returned when the integration could not reach the
// end of the simulation. Partial holds the samples computed before the failure.
type IntegrationFailure struct {
	Partial Trajectory
	Err     error
}

func (e *IntegrationFailure) Error() string {
	return "integration failed: " + e.Err.Error()
}

func (e *IntegrationFailure) Unwrap() error {
	return e.Err
}

// Simulation integrates the SIRS model from the initial state.
type Simulation struct {
	Model    Model
	Duration float64
	Stats    integrator.Stats // Statistics of the last run.
	opts     Options
	logger   kitlog.Logger
	state    State      // current state, for fixed step integration
	traj     Trajectory // samples, for fixed step integration
}

// NewSimulation returns a new simulation of the given duration.
func NewSimulation(p ModelParameters, duration float64, opts Options) (*Simulation, error) {
	if err := checkInput("duration", duration, false); err != nil {
		return nil, err
	}
	if opts.Method == 0 {
		opts.Method = DormandPrince
	}
	if opts.Method != DormandPrince && opts.Method != RK4 {
		return nil, fmt.Errorf("unknown integration method %d", opts.Method)
	}
	logger := opts.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Simulation{Model: Model{p}, Duration: duration, opts: opts, logger: logger}, nil
}

// Options returns the options of this simulation.
func (s *Simulation) Options() Options {
	return s.opts
}

// Run integrates the model over [0, Duration].
// On failure, the trajectory is nil unless partial results were requested,
// and the error is either an *IntegrationFailure or a configuration error.
func (s *Simulation) Run() (Trajectory, error) {
	s.logger.Log("level", "info", "subsys", "sirs", "status", "starting", "params", s.Model.Params, "duration", s.Duration, "method", s.opts.Method)
	var traj Trajectory
	var err error
	switch s.opts.Method {
	case DormandPrince:
		traj, err = s.runDormandPrince()
	case RK4:
		traj, err = s.runRK4()
	}
	if err != nil {
		var ierr *integrator.Error
		if !errors.As(err, &ierr) {
			return nil, err
		}
		failure := &IntegrationFailure{Partial: trajectoryFromPoints(ierr.Points), Err: err}
		s.logger.Log("level", "critical", "subsys", "sirs", "err", err, "samples", len(failure.Partial))
		if s.opts.Partial {
			return failure.Partial, failure
		}
		return nil, failure
	}
	s.LogStatus(traj)
	return traj, nil
}

// LogStatus logs a summary of the trajectory.
func (s *Simulation) LogStatus(traj Trajectory) {
	peak, ok := traj.Peak()
	if !ok {
		return
	}
	s.logger.Log("level", "notice", "subsys", "sirs", "status", "finished", "samples", len(traj), "accepted", s.Stats.Accepted, "rejected", s.Stats.Rejected,
		"peakT", peak.T, "peakI", peak.I, "final", traj.Final().State(), "conservation", traj.MaxConservationError())
}

func (s *Simulation) runDormandPrince() (Trajectory, error) {
	conf := integrator.Config{
		InitialStep: s.opts.InitialStep,
		AbsTol:      s.opts.AbsTol,
		RelTol:      s.opts.RelTol,
		MaxSteps:    s.opts.MaxSteps,
		OutputStep:  s.opts.SampleInterval,
	}
	dp, err := integrator.NewDormandPrince(conf, kitlog.With(s.logger, "method", DormandPrince))
	if err != nil {
		return nil, err
	}
	y0 := InitialState
	points, stats, err := dp.Integrate(s.Model.Func, 0, s.Duration, y0[:])
	s.Stats = stats
	if err != nil {
		return nil, err
	}
	return trajectoryFromPoints(points), nil
}

func (s *Simulation) runRK4() (Trajectory, error) {
	step := s.opts.InitialStep
	if !(step > 0) {
		return nil, fmt.Errorf("%w: initial step must be positive (got %g)", integrator.ErrInvalidConfig, step)
	}
	s.state = InitialState
	s.traj = Trajectory{{T: 0, S: s.state[0], I: s.state[1], R: s.state[2]}}
	s.Stats = integrator.Stats{}
	maxSteps := s.opts.MaxSteps
	if maxSteps == 0 {
		maxSteps = integrator.DefaultMaxSteps
	}
	if needed := math.Ceil(s.Duration / step); needed > float64(maxSteps) {
		return nil, &integrator.Error{Err: integrator.ErrMaxSteps, H: step, Points: s.points()}
	}
	iterNum, _, err := integrator.NewRK4(0, s.Duration, step, s).Solve()
	s.Stats.Accepted = uint(iterNum)
	s.Stats.Evaluations = 4 * uint(iterNum)
	if err != nil {
		var ierr *integrator.Error
		if errors.As(err, &ierr) {
			ierr.Points = s.points()
		}
		return nil, err
	}
	if len(s.traj) > 1 {
		s.Stats.LastStep = s.traj.Final().T - s.traj[len(s.traj)-2].T
	}
	return s.traj, nil
}

func (s *Simulation) points() []integrator.Point {
	points := make([]integrator.Point, len(s.traj))
	for i, sample := range s.traj {
		st := sample.State()
		points[i] = integrator.Point{T: sample.T, Y: st[:]}
	}
	return points
}

// GetState implements the integrator.Integrable interface.
func (s *Simulation) GetState() []float64 {
	st := s.state
	return st[:]
}

// SetState implements the integrator.Integrable interface.
func (s *Simulation) SetState(t float64, st []float64) {
	copy(s.state[:], st)
	s.traj = append(s.traj, Sample{T: t, S: st[0], I: st[1], R: st[2]})
}

// Stop implements the integrator.Integrable interface.
func (s *Simulation) Stop(t float64) bool {
	return t >= s.Duration
}

// Func implements the integrator.Integrable interface.
func (s *Simulation) Func(t float64, st []float64) []float64 {
	dy := make([]float64, 3)
	s.Model.Func(t, st, dy)
	return dy
}
