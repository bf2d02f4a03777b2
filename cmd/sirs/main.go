package main

import (
	"errors"
	"flag"
	"log"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/medewitt/sirs"
)

// This code reads a scenario file, runs the simulation and exports it.

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", "", "scenario TOML file (defaults to sirs.toml in $SIRS_CONFIG or .)")
	flag.BoolVar(&verbose, "verbose", false, "log the solver status")
}

func main() {
	flag.Parse()
	conf, err := sirs.LoadScenario(scenario)
	if err != nil {
		log.Fatalf("scenario: %s", err)
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "scenario", conf.Name)
	if verbose {
		conf.Options.Logger = logger
	}

	params, err := conf.Parameters()
	if err != nil {
		log.Fatal(err)
	}
	sim, err := sirs.NewSimulation(params, conf.Duration, conf.Options)
	if err != nil {
		log.Fatal(err)
	}
	traj, runErr := sim.Run()
	var failure *sirs.IntegrationFailure
	if runErr != nil && !errors.As(runErr, &failure) {
		log.Fatal(runErr)
	}
	if traj == nil && failure != nil {
		// Export what was computed before the failure.
		traj = failure.Partial
	}

	files, err := sirs.Export(conf.Export, sim, traj, runErr)
	if err != nil {
		log.Fatalf("export: %s", err)
	}
	for _, f := range files {
		logger.Log("level", "info", "subsys", "export", "file", f)
	}

	if runErr != nil {
		logger.Log("level", "critical", "subsys", "sirs", "err", runErr, "samples", len(traj))
		os.Exit(1)
	}
	final := traj.Final()
	logger.Log("level", "notice", "subsys", "sirs", "samples", len(traj), "final", final)
	if peak, ok := traj.Peak(); ok {
		logger.Log("level", "notice", "subsys", "sirs", "peak", peak)
	}
	eq := sim.Model.Equilibrium()
	logger.Log("level", "info", "subsys", "sirs", "equilibrium", eq)
}
