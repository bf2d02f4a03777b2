package sirs

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/medewitt/sirs/integrator"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxDraws bounds the resampling of a non-positive parameter draw.
const maxDraws = 1000

// EnsembleConfig configures a Monte Carlo ensemble around nominal parameters.
type EnsembleConfig struct {
	Members        int     // Number of simulations.
	R0SD           float64 // Standard deviation of R0.
	GammaSD        float64 // Standard deviation of γ.
	Seed           uint64
	Workers        int     // Zero uses one worker per CPU.
	SampleInterval float64 // Common output grid of the members, defaults to 1.
	Lower, Upper   float64 // Quantiles of the band, default to 0.05 and 0.95.
}

func (c EnsembleConfig) withDefaults() EnsembleConfig {
	if c.SampleInterval <= 0 {
		c.SampleInterval = 1
	}
	if c.Lower <= 0 && c.Upper <= 0 {
		c.Lower, c.Upper = 0.05, 0.95
	}
	return c
}

// Validate returns an error if the ensemble cannot be run.
func (c EnsembleConfig) Validate() error {
	if c.Members <= 0 {
		return fmt.Errorf("%w: ensemble needs at least one member", ErrInvalidParameters)
	}
	if c.R0SD < 0 || c.GammaSD < 0 {
		return fmt.Errorf("%w: standard deviations may not be negative", ErrInvalidParameters)
	}
	if c.Lower < 0 || c.Upper > 1 || c.Lower >= c.Upper {
		return fmt.Errorf("%w: invalid quantiles [%g, %g]", ErrInvalidParameters, c.Lower, c.Upper)
	}
	return nil
}

// Member is one simulation of a sweep.
type Member struct {
	Params     ModelParameters
	Trajectory Trajectory
	Stats      integrator.Stats
	Err        error
}

// Sweep runs one simulation per parameter set on a pool of workers.
// The members are returned in the order of params. Each simulation owns its
// own state, so the only shared value is the logger of opts.
func Sweep(params []ModelParameters, duration float64, opts Options, workers int) []Member {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	members := make([]Member, len(params))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				members[i].Params = params[i]
				sim, err := NewSimulation(params[i], duration, opts)
				if err != nil {
					members[i].Err = err
					continue
				}
				members[i].Trajectory, members[i].Err = sim.Run()
				members[i].Stats = sim.Stats
			}
		}()
	}
	for i := range params {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return members
}

// SweepR0 runs one simulation per basic reproduction number.
func SweepR0(r0s []float64, gamma, immunityDuration, duration float64, opts Options, workers int) ([]Member, error) {
	params := make([]ModelParameters, len(r0s))
	for i, r0 := range r0s {
		p, err := NewModelParameters(r0, gamma, immunityDuration)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return Sweep(params, duration, opts, workers), nil
}

// Band summarizes the infected fraction of an ensemble at one time.
type Band struct {
	T, Mean, Lower, Median, Upper float64
}

// EnsembleSummary is the result of a Monte Carlo ensemble.
type EnsembleSummary struct {
	Members []Member
	Bands   []Band
	Failed  int
}

// DrawParameters draws the parameters of the members of an ensemble.
// Negative R0 and non-positive γ draws are drawn again.
func DrawParameters(r0, gamma, immunityDuration float64, conf EnsembleConfig) ([]ModelParameters, error) {
	if err := conf.withDefaults().Validate(); err != nil {
		return nil, err
	}
	if _, err := NewModelParameters(r0, gamma, immunityDuration); err != nil {
		return nil, err
	}
	src := rand.NewSource(conf.Seed)
	r0Dist := distuv.Normal{Mu: r0, Sigma: conf.R0SD, Src: src}
	gammaDist := distuv.Normal{Mu: gamma, Sigma: conf.GammaSD, Src: src}
	params := make([]ModelParameters, conf.Members)
	for i := range params {
		r, err := draw(r0Dist, true)
		if err != nil {
			return nil, fmt.Errorf("r0: %w", err)
		}
		g, err := draw(gammaDist, false)
		if err != nil {
			return nil, fmt.Errorf("gamma: %w", err)
		}
		if params[i], err = NewModelParameters(r, g, immunityDuration); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func draw(dist distuv.Normal, allowZero bool) (float64, error) {
	for i := 0; i < maxDraws; i++ {
		v := dist.Rand()
		if v > 0 || (allowZero && v == 0) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: no valid draw after %d attempts (μ=%g, σ=%g)", ErrInvalidParameters, maxDraws, dist.Mu, dist.Sigma)
}

// MonteCarlo runs an ensemble of simulations around the nominal parameters and
// summarizes the infected fraction on a common time grid.
func MonteCarlo(r0, gamma, immunityDuration, duration float64, conf EnsembleConfig, opts Options) (*EnsembleSummary, error) {
	conf = conf.withDefaults()
	params, err := DrawParameters(r0, gamma, immunityDuration, conf)
	if err != nil {
		return nil, err
	}
	opts.SampleInterval = conf.SampleInterval
	opts.Partial = false
	members := Sweep(params, duration, opts, conf.Workers)

	summary := &EnsembleSummary{Members: members}
	var ok []Trajectory
	for _, m := range members {
		if m.Err != nil {
			summary.Failed++
			continue
		}
		ok = append(ok, m.Trajectory)
	}
	if len(ok) == 0 {
		return summary, errors.New("all ensemble members failed")
	}
	summary.Bands, err = bands(ok, conf.Lower, conf.Upper)
	return summary, err
}

// bands computes the infected quantiles at each sample time.
func bands(trajs []Trajectory, lower, upper float64) ([]Band, error) {
	n := len(trajs[0])
	infected := mat.NewDense(len(trajs), n, nil)
	for i, traj := range trajs {
		if len(traj) != n {
			return nil, fmt.Errorf("member #%d has %d samples instead of %d", i, len(traj), n)
		}
		infected.SetRow(i, traj.Column(Infected))
	}
	times := trajs[0].Times()
	out := make([]Band, n)
	col := make([]float64, len(trajs))
	for j := range out {
		mat.Col(col, j, infected)
		sort.Float64s(col)
		out[j] = Band{
			T:      times[j],
			Mean:   stat.Mean(col, nil),
			Lower:  stat.Quantile(lower, stat.Empirical, col, nil),
			Median: stat.Quantile(0.5, stat.Empirical, col, nil),
			Upper:  stat.Quantile(upper, stat.Empirical, col, nil),
		}
	}
	return out, nil
}
