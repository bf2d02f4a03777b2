package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	kitlog "github.com/go-kit/log"
	"github.com/medewitt/sirs"
)

// Runs either a grid of R0 values or a Monte Carlo ensemble of a scenario,
// and writes one CSV summary.

var (
	scenario string
	ensemble bool
	output   string
)

func init() {
	flag.StringVar(&scenario, "scenario", "", "scenario TOML file (defaults to sirs.toml in $SIRS_CONFIG or .)")
	flag.BoolVar(&ensemble, "ensemble", false, "run the Monte Carlo ensemble instead of the R0 grid")
	flag.StringVar(&output, "out", "", "output CSV file (defaults to stdout)")
}

func main() {
	flag.Parse()
	conf, err := sirs.LoadScenario(scenario)
	if err != nil {
		log.Fatalf("scenario: %s", err)
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "scenario", conf.Name)

	if output == "" {
		if err := write(os.Stdout, conf, logger); err != nil {
			log.Fatal(err)
		}
		return
	}
	f, err := os.Create(output)
	if err != nil {
		log.Fatal(err)
	}
	err = write(f, conf, logger)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("%s: %s", output, err)
	}
}

// write runs the ensemble or the R0 grid and writes its CSV summary to w.
func write(w io.Writer, conf sirs.Scenario, logger kitlog.Logger) error {
	cw := csv.NewWriter(w)
	if ensemble {
		summary, err := sirs.MonteCarlo(conf.R0, conf.Gamma, conf.ImmunityDuration, conf.Duration, conf.Ensemble, conf.Options)
		if err != nil {
			return fmt.Errorf("ensemble: %w", err)
		}
		logger.Log("level", "notice", "subsys", "ensemble", "members", len(summary.Members), "failed", summary.Failed)
		cw.Write([]string{"t", "mean", "lower", "median", "upper"})
		for _, b := range summary.Bands {
			cw.Write(formatRow(b.T, b.Mean, b.Lower, b.Median, b.Upper))
		}
	} else {
		members, err := sirs.SweepR0(conf.Sweep.R0s(), conf.Gamma, conf.ImmunityDuration, conf.Duration, conf.Options, conf.Ensemble.Workers)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		cw.Write([]string{"r0", "peak_t", "peak_I", "final_S", "final_I", "final_R", "steps"})
		for _, m := range members {
			if m.Err != nil {
				logger.Log("level", "warning", "subsys", "sweep", "r0", m.Params.R0(), "err", m.Err)
				continue
			}
			peak, _ := m.Trajectory.Peak()
			final := m.Trajectory.Final()
			cw.Write(append(formatRow(m.Params.R0(), peak.T, peak.I, final.S, final.I, final.R), fmt.Sprintf("%d", m.Stats.Accepted)))
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRow(vals ...float64) []string {
	row := make([]string, len(vals))
	for i, v := range vals {
		row[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return row
}
