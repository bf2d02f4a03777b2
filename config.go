package sirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medewitt/sirs/integrator"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of the default scenario file.
const ConfigEnv = "SIRS_CONFIG"

// Scenario is a simulation scenario, usually read from a TOML file.
type Scenario struct {
	Name             string
	R0               float64
	Gamma            float64
	ImmunityDuration float64
	Duration         float64
	Options          Options
	Export           ExportConfig
	Ensemble         EnsembleConfig
	Sweep            SweepConfig
}

// SweepConfig is a grid of R0 values.
type SweepConfig struct {
	R0Min, R0Max float64
	Points       int
}

// R0s returns the grid of R0 values, bounds included.
func (c SweepConfig) R0s() []float64 {
	if c.Points <= 0 {
		return nil
	}
	if c.Points == 1 {
		return []float64{c.R0Min}
	}
	r0s := make([]float64, c.Points)
	step := (c.R0Max - c.R0Min) / float64(c.Points-1)
	for i := range r0s {
		r0s[i] = c.R0Min + float64(i)*step
	}
	r0s[c.Points-1] = c.R0Max
	return r0s
}

// Parameters returns the model parameters of this scenario.
func (s Scenario) Parameters() (ModelParameters, error) {
	return NewModelParameters(s.R0, s.Gamma, s.ImmunityDuration)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.name", "sirs")
	// Defaults of the interactive model.
	v.SetDefault("model.r0", 2.5)
	v.SetDefault("model.gamma", 0.2)
	v.SetDefault("model.immunity_duration", 180.0)
	v.SetDefault("simulation.duration", 365.0)
	v.SetDefault("simulation.method", DormandPrince.String())
	v.SetDefault("simulation.sample_interval", ReferenceSampleInterval)
	v.SetDefault("simulation.max_steps", integrator.DefaultMaxSteps)
	v.SetDefault("simulation.partial", false)
	v.SetDefault("solver.initial_step", integrator.DefaultInitialStep)
	v.SetDefault("solver.abs_tol", integrator.DefaultTolerance)
	v.SetDefault("solver.rel_tol", integrator.DefaultTolerance)
	v.SetDefault("export.filename", "")
	v.SetDefault("export.output_path", ".")
	v.SetDefault("export.csv", false)
	v.SetDefault("export.json", false)
	v.SetDefault("export.timestamp", false)
	v.SetDefault("ensemble.members", 100)
	v.SetDefault("ensemble.r0_sd", 0.0)
	v.SetDefault("ensemble.gamma_sd", 0.0)
	v.SetDefault("ensemble.seed", 1)
	v.SetDefault("ensemble.workers", 0)
	v.SetDefault("ensemble.sample_interval", 1.0)
	v.SetDefault("ensemble.lower", 0.05)
	v.SetDefault("ensemble.upper", 0.95)
	v.SetDefault("sweep.r0_min", 0.5)
	v.SetDefault("sweep.r0_max", 5.0)
	v.SetDefault("sweep.points", 10)
}

// LoadScenario reads a scenario file. If path is empty, the file `sirs.toml`
// is searched for in the directory of the SIRS_CONFIG environment variable,
// then in the working directory. Any key may be overridden by an environment
// variable, e.g. SIRS_MODEL_R0 for model.r0.
func LoadScenario(path string) (Scenario, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sirs")
		v.SetConfigType("toml")
		if dir := os.Getenv(ConfigEnv); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("SIRS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Scenario{}, fmt.Errorf("reading scenario: %w", err)
		}
		// No scenario file: defaults and environment only.
	}
	return scenarioFromViper(v, path)
}

func scenarioFromViper(v *viper.Viper, path string) (Scenario, error) {
	method, err := MethodFromString(v.GetString("simulation.method"))
	if err != nil {
		return Scenario{}, err
	}
	name := v.GetString("general.name")
	if path != "" && !v.IsSet("general.name") {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	filename := v.GetString("export.filename")
	if filename == "" {
		filename = name
	}
	maxSteps := v.GetInt("simulation.max_steps")
	if maxSteps < 0 {
		return Scenario{}, fmt.Errorf("simulation.max_steps may not be negative (got %d)", maxSteps)
	}
	s := Scenario{
		Name:             name,
		R0:               v.GetFloat64("model.r0"),
		Gamma:            v.GetFloat64("model.gamma"),
		ImmunityDuration: v.GetFloat64("model.immunity_duration"),
		Duration:         v.GetFloat64("simulation.duration"),
		Options: Options{
			Method:         method,
			InitialStep:    v.GetFloat64("solver.initial_step"),
			AbsTol:         v.GetFloat64("solver.abs_tol"),
			RelTol:         v.GetFloat64("solver.rel_tol"),
			SampleInterval: v.GetFloat64("simulation.sample_interval"),
			MaxSteps:       uint(maxSteps),
			Partial:        v.GetBool("simulation.partial"),
		},
		Export: ExportConfig{
			Filename:  filename,
			OutputDir: v.GetString("export.output_path"),
			AsCSV:     v.GetBool("export.csv"),
			AsJSON:    v.GetBool("export.json"),
			Timestamp: v.GetBool("export.timestamp"),
		},
		Ensemble: EnsembleConfig{
			Members:        v.GetInt("ensemble.members"),
			R0SD:           v.GetFloat64("ensemble.r0_sd"),
			GammaSD:        v.GetFloat64("ensemble.gamma_sd"),
			Seed:           v.GetUint64("ensemble.seed"),
			Workers:        v.GetInt("ensemble.workers"),
			SampleInterval: v.GetFloat64("ensemble.sample_interval"),
			Lower:          v.GetFloat64("ensemble.lower"),
			Upper:          v.GetFloat64("ensemble.upper"),
		},
		Sweep: SweepConfig{
			R0Min:  v.GetFloat64("sweep.r0_min"),
			R0Max:  v.GetFloat64("sweep.r0_max"),
			Points: v.GetInt("sweep.points"),
		},
	}
	if _, err := s.Parameters(); err != nil {
		return s, err
	}
	if err := checkInput("duration", s.Duration, false); err != nil {
		return s, err
	}
	return s, nil
}
