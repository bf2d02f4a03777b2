package integrator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned when the end time is not after the start time.
	ErrInvalidInterval = errors.New("end time must be after start time")
	// ErrInvalidConfig is returned when a step size or tolerance is not positive.
	ErrInvalidConfig = errors.New("invalid integrator configuration")
	// ErrStepSizeUnderflow is returned when the tolerance cannot be met with a usable step size.
	ErrStepSizeUnderflow = errors.New("step size underflow")
	// ErrNonFinite is returned when a stage or the error estimate is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value in integration")
	// ErrMaxSteps is returned when the step attempts exceed the configured bound.
	ErrMaxSteps = errors.New("maximum number of steps exceeded")
)

// Error is an integration failure. Points holds everything computed before the failure.
type Error struct {
	Err    error   // One of the sentinel errors.
	T      float64 // Time reached.
	H      float64 // Step size when it failed.
	Step   uint    // Step attempt number.
	Points []Point
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at t=%g (h=%g, attempt #%d)", e.Err, e.T, e.H, e.Step)
}

func (e *Error) Unwrap() error {
	return e.Err
}
