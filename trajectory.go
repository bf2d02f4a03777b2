package sirs

import (
	"fmt"
	"math"

	"github.com/medewitt/sirs/integrator"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sample is one point of a trajectory.
type Sample struct {
	T, S, I, R float64
}

// State returns the compartments of this sample.
func (s Sample) State() State {
	return State{s.S, s.I, s.R}
}

func (s Sample) String() string {
	return fmt.Sprintf("t=%.3f %s", s.T, s.State())
}

// Trajectory is a time series of samples, strictly increasing in time.
type Trajectory []Sample

func trajectoryFromPoints(points []integrator.Point) Trajectory {
	traj := make(Trajectory, len(points))
	for i, pt := range points {
		traj[i] = Sample{T: pt.T, S: pt.Y[0], I: pt.Y[1], R: pt.Y[2]}
	}
	return traj
}

// Times returns the time of each sample.
func (tr Trajectory) Times() []float64 {
	ts := make([]float64, len(tr))
	for i, s := range tr {
		ts[i] = s.T
	}
	return ts
}

// Column returns the values of compartment c for each sample.
func (tr Trajectory) Column(c Compartment) []float64 {
	vals := make([]float64, len(tr))
	for i, s := range tr {
		vals[i] = s.State()[c]
	}
	return vals
}

// Final returns the last sample. It panics if the trajectory is empty.
func (tr Trajectory) Final() Sample {
	return tr[len(tr)-1]
}

// Peak returns the sample with the largest infected fraction.
func (tr Trajectory) Peak() (Sample, bool) {
	if len(tr) == 0 {
		return Sample{}, false
	}
	return tr[floats.MaxIdx(tr.Column(Infected))], true
}

// MaxConservationError returns the largest |S+I+R-1| of the trajectory.
func (tr Trajectory) MaxConservationError() float64 {
	worst := 0.0
	for _, s := range tr {
		worst = math.Max(worst, math.Abs(s.State().Total()-1))
	}
	return worst
}

// Dense returns the trajectory as a len(tr)x4 matrix of t, S, I, R rows.
func (tr Trajectory) Dense() *mat.Dense {
	if len(tr) == 0 {
		return nil
	}
	data := make([]float64, 0, 4*len(tr))
	for _, s := range tr {
		data = append(data, s.T, s.S, s.I, s.R)
	}
	return mat.NewDense(len(tr), 4, data)
}

// Rows returns the trajectory as (t, S, I, R) tuples.
func (tr Trajectory) Rows() [][]float64 {
	rows := make([][]float64, len(tr))
	for i, s := range tr {
		rows[i] = []float64{s.T, s.S, s.I, s.R}
	}
	return rows
}
