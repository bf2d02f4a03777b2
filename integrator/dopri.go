package integrator

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/log"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultInitialStep is the default size of the first attempted step.
	DefaultInitialStep = 0.1
	// DefaultTolerance is the default absolute and relative tolerance.
	DefaultTolerance = 1e-5
	// DefaultMaxSteps bounds the number of step attempts (accepted and rejected).
	DefaultMaxSteps = 100000
	defaultMinStep  = 1e-10
	defaultSafety   = 0.9
	defaultMinScale = 0.2
	defaultMaxScale = 5.0
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// dpE holds the fifth minus fourth order weights.
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
	// dpD are the continuous extension coefficients (Hairer & Wanner).
	dpD = [7]float64{-12715105075.0 / 11282082432, 0, 87487479700.0 / 32700410799, -10690763975.0 / 1880347072,
		701980252875.0 / 199316789632, -1453857185.0 / 822651844, 69997945.0 / 29380423}
)

// Config configures a DormandPrince integrator.
// Zero values of the optional fields select the defaults.
type Config struct {
	InitialStep float64 // Size of the first attempted step (required).
	AbsTol      float64 // Absolute tolerance (required).
	RelTol      float64 // Relative tolerance (required).
	MinStep     float64 // Optional: below this the integration fails.
	MaxStep     float64 // Optional: defaults to the integration interval.
	MaxSteps    uint    // Optional: bound on step attempts.
	Safety      float64 // Optional: safety factor on the step size proposal.
	MinScale    float64 // Optional: smallest step scaling factor.
	MaxScale    float64 // Optional: largest step scaling factor.
	OutputStep  float64 // Optional: if positive, points are interpolated on this grid instead of one per accepted step.
}

// DefaultConfig returns the configuration used by the reference SIRS solver.
func DefaultConfig() Config {
	return Config{InitialStep: DefaultInitialStep, AbsTol: DefaultTolerance, RelTol: DefaultTolerance}
}

// Validate returns an error if a required field is not usable.
func (c Config) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"initial step", c.InitialStep}, {"absolute tolerance", c.AbsTol}, {"relative tolerance", c.RelTol}} {
		if !(v.val > 0) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s must be positive and finite (got %g)", ErrInvalidConfig, v.name, v.val)
		}
	}
	if c.MinStep < 0 || c.MaxStep < 0 || c.OutputStep < 0 {
		return fmt.Errorf("%w: step bounds may not be negative", ErrInvalidConfig)
	}
	if c.MinScale < 0 || c.MaxScale < 0 || c.Safety < 0 {
		return fmt.Errorf("%w: step scaling factors may not be negative", ErrInvalidConfig)
	}
	// A rejected step must shrink and an accepted step may grow.
	d := c.withDefaults(1)
	if d.MinScale >= 1 || d.MaxScale <= 1 {
		return fmt.Errorf("%w: scales must satisfy min scale %g < 1 < max scale %g", ErrInvalidConfig, d.MinScale, d.MaxScale)
	}
	if d.Safety > 1 {
		return fmt.Errorf("%w: safety factor %g above one", ErrInvalidConfig, d.Safety)
	}
	return nil
}

func (c Config) withDefaults(span float64) Config {
	if c.MinStep == 0 {
		c.MinStep = defaultMinStep
	}
	if c.MaxStep == 0 {
		c.MaxStep = span
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Safety == 0 {
		c.Safety = defaultSafety
	}
	if c.MinScale == 0 {
		c.MinScale = defaultMinScale
	}
	if c.MaxScale == 0 {
		c.MaxScale = defaultMaxScale
	}
	return c
}

// DormandPrince is an explicit Runge-Kutta 5(4) integrator with adaptive step size control.
type DormandPrince struct {
	conf   Config
	logger kitlog.Logger
}

// NewDormandPrince returns a new integrator. A nil logger disables logging.
func NewDormandPrince(conf Config, logger kitlog.Logger) (*DormandPrince, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &DormandPrince{conf: conf, logger: logger}, nil
}

// Config returns the configuration of this integrator.
func (dp *DormandPrince) Config() Config {
	return dp.conf
}

// Integrate integrates f from t0 to tf starting at y0, which is not modified.
// The first point is (t0, y0) and, on success, the last point is exactly at tf.
// On failure, the returned error is an *Error which carries the points computed so far.
func (dp *DormandPrince) Integrate(f Func, t0, tf float64, y0 []float64) ([]Point, Stats, error) {
	var stats Stats
	if !(tf > t0) || math.IsInf(tf-t0, 0) {
		return nil, stats, fmt.Errorf("%w: [%g, %g]", ErrInvalidInterval, t0, tf)
	}
	if len(y0) == 0 {
		return nil, stats, fmt.Errorf("%w: empty initial state", ErrInvalidConfig)
	}
	conf := dp.conf.withDefaults(tf - t0)
	n := len(y0)

	y := make([]float64, n)
	copy(y, y0)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	yStage := make([]float64, n)
	yNew := make([]float64, n)
	yErr := make([]float64, n)
	dense := newDenseOutput(conf.OutputStep, t0, tf, n)

	points := []Point{{T: t0, Y: clone(y)}}
	fail := func(err error, t, h float64, attempt uint) ([]Point, Stats, error) {
		dp.logger.Log("level", "critical", "subsys", "integ", "err", err, "t", t, "h", h, "accepted", stats.Accepted, "rejected", stats.Rejected)
		return points, stats, &Error{Err: err, T: t, H: h, Step: attempt, Points: points}
	}

	f(t0, y, k[0])
	stats.Evaluations++
	if !finite(k[0]) {
		return fail(ErrNonFinite, t0, conf.InitialStep, 0)
	}

	t := t0
	h := math.Min(conf.InitialStep, conf.MaxStep)
	var attempt uint
	blewUp := false
	for t < tf {
		if attempt >= conf.MaxSteps {
			return fail(ErrMaxSteps, t, h, attempt)
		}
		attempt++
		last := false
		if t+h >= tf {
			h = tf - t
			last = true
		} else if h < minStep(t, conf.MinStep) {
			if blewUp {
				return fail(ErrNonFinite, t, h, attempt)
			}
			return fail(ErrStepSizeUnderflow, t, h, attempt)
		}

		// Stages 2 to 7; the input of the last stage is the fifth order solution.
		for s := 1; s < 7; s++ {
			copy(yStage, y)
			for j := 0; j < s; j++ {
				if dpA[s][j] != 0 {
					floats.AddScaled(yStage, h*dpA[s][j], k[j])
				}
			}
			f(t+dpC[s]*h, yStage, k[s])
			stats.Evaluations++
		}
		copy(yNew, yStage)
		// A trial step which overflows is rejected like any inaccurate step.
		blewUp = !finite(yNew) || !finite(k[6])
		if blewUp {
			stats.Rejected++
			h *= conf.MinScale
			continue
		}

		// Embedded error estimate.
		for i := range yErr {
			yErr[i] = 0
		}
		for s := 0; s < 7; s++ {
			if dpE[s] != 0 {
				floats.AddScaled(yErr, h*dpE[s], k[s])
			}
		}
		errNorm := errorNorm(yErr, y, yNew, conf.AbsTol, conf.RelTol)
		if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
			blewUp = true
			stats.Rejected++
			h *= conf.MinScale
			continue
		}

		fac := conf.MaxScale
		if errNorm > 0 {
			fac = math.Min(conf.MaxScale, math.Max(conf.MinScale, conf.Safety*math.Pow(errNorm, -0.2)))
		}

		if errNorm > 1 {
			stats.Rejected++
			h *= fac
			continue
		}

		// Accepted.
		tNew := t + h
		if last {
			tNew = tf
		}
		stats.Accepted++
		stats.LastStep = h
		if dense != nil {
			points = dense.emit(points, t, tNew, h, y, yNew, k)
			if last {
				points = append(points, Point{T: tf, Y: clone(yNew)})
			}
		} else {
			points = append(points, Point{T: tNew, Y: clone(yNew)})
		}
		copy(y, yNew)
		k[0], k[6] = k[6], k[0] // first same as last
		t = tNew
		h = math.Min(h*fac, conf.MaxStep)
	}

	dp.logger.Log("level", "info", "subsys", "integ", "status", "finished", "t", t, "accepted", stats.Accepted, "rejected", stats.Rejected, "evals", stats.Evaluations)
	return points, stats, nil
}

// errorNorm is max_i |e_i| / (atol + rtol*max(|y_i|, |yNew_i|)).
func errorNorm(yErr, y, yNew []float64, atol, rtol float64) float64 {
	norm := 0.0
	for i, e := range yErr {
		sc := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		ratio := math.Abs(e) / sc
		if math.IsNaN(ratio) {
			return ratio
		}
		norm = math.Max(norm, ratio)
	}
	return norm
}

func minStep(t, floor float64) float64 {
	return math.Max(floor, 16*epsilon*math.Abs(t))
}

// epsilon is the machine epsilon of a float64.
const epsilon = 2.220446049250313e-16

func finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clone(s []float64) []float64 {
	c := make([]float64, len(s))
	copy(c, s)
	return c
}

// denseOutput emits interpolated points on a fixed grid.
type denseOutput struct {
	step, t0, tf   float64
	next           int // index of the next grid point
	r2, r3, r4, r5 []float64
}

func newDenseOutput(step, t0, tf float64, n int) *denseOutput {
	if step <= 0 {
		return nil
	}
	return &denseOutput{step: step, t0: t0, tf: tf, next: 1,
		r2: make([]float64, n), r3: make([]float64, n), r4: make([]float64, n), r5: make([]float64, n)}
}

// emit appends the grid points within (t, tNew], excluding tf which the caller appends.
func (d *denseOutput) emit(points []Point, t, tNew, h float64, y, yNew []float64, k [7][]float64) []Point {
	// Grid points closer to tf than this are dropped in favor of tf itself.
	guard := 1e-9 * d.step
	prepared := false
	for {
		tOut := d.t0 + float64(d.next)*d.step
		if tOut > tNew || tOut >= d.tf-guard {
			return points
		}
		if !prepared {
			d.prepare(h, y, yNew, k)
			prepared = true
		}
		θ := (tOut - t) / h
		θ1 := 1 - θ
		out := make([]float64, len(y))
		for i := range out {
			out[i] = y[i] + θ*(d.r2[i]+θ1*(d.r3[i]+θ*(d.r4[i]+θ1*d.r5[i])))
		}
		points = append(points, Point{T: tOut, Y: out})
		d.next++
	}
}

func (d *denseOutput) prepare(h float64, y, yNew []float64, k [7][]float64) {
	for i := range y {
		ydiff := yNew[i] - y[i]
		bspl := h*k[0][i] - ydiff
		d.r2[i] = ydiff
		d.r3[i] = bspl
		d.r4[i] = ydiff - h*k[6][i] - bspl
		d.r5[i] = 0
		for s := 0; s < 7; s++ {
			d.r5[i] += h * dpD[s] * k[s][i]
		}
	}
}
