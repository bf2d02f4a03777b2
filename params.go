package sirs

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameters is returned when a model input is outside of its domain.
var ErrInvalidParameters = errors.New("invalid parameters")

// ModelParameters are the rates of the SIRS model. They are derived once from
// the user inputs and are never recomputed during an integration.
type ModelParameters struct {
	Gamma float64 // Recovery rate.
	Beta  float64 // Infection rate, R0*γ.
	Xi    float64 // Rate of immunity loss, 1/immunity duration.
}

// NewModelParameters derives the model rates from the basic reproduction number,
// the recovery rate and the mean duration of immunity.
// R0 may be zero (no transmission), all other inputs must be positive.
func NewModelParameters(r0, gamma, immunityDuration float64) (ModelParameters, error) {
	if err := checkInput("r0", r0, true); err != nil {
		return ModelParameters{}, err
	}
	if err := checkInput("gamma", gamma, false); err != nil {
		return ModelParameters{}, err
	}
	if err := checkInput("immunity duration", immunityDuration, false); err != nil {
		return ModelParameters{}, err
	}
	p := ModelParameters{Gamma: gamma, Beta: r0 * gamma, Xi: 1 / immunityDuration}
	// The derived rates overflow for extreme inputs.
	if err := checkInput("beta", p.Beta, true); err != nil {
		return ModelParameters{}, err
	}
	if err := checkInput("xi", p.Xi, false); err != nil {
		return ModelParameters{}, err
	}
	return p, nil
}

// R0 returns the basic reproduction number.
func (p ModelParameters) R0() float64 {
	return p.Beta / p.Gamma
}

// ImmunityDuration returns the mean duration of immunity.
func (p ModelParameters) ImmunityDuration() float64 {
	return 1 / p.Xi
}

func (p ModelParameters) String() string {
	return fmt.Sprintf("R0=%.3f β=%.5f γ=%.5f ξ=%.5f", p.R0(), p.Beta, p.Gamma, p.Xi)
}

func checkInput(name string, v float64, allowZero bool) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite (got %g)", ErrInvalidParameters, name, v)
	}
	if v < 0 || (v == 0 && !allowZero) {
		return fmt.Errorf("%w: %s must be positive (got %g)", ErrInvalidParameters, name, v)
	}
	return nil
}
