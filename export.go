package sirs

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/medewitt/sirs/integrator"
)

// RecordVersion is the version of the JSON run record.
const RecordVersion = "1.0"

var csvHeader = []string{"t", "S", "I", "R"}

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Filename  string
	OutputDir string
	AsCSV     bool
	AsJSON    bool
	Timestamp bool
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.AsJSON
}

// path returns the file name for the given kind of output.
func (c ExportConfig) path(kind, ext string, now time.Time) string {
	name := fmt.Sprintf("%s-%s", kind, c.Filename)
	if c.Timestamp {
		name += fmt.Sprintf("-%d-%02d-%02dT%02d.%02d.%02d", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	}
	return filepath.Join(c.OutputDir, name+"."+ext)
}

// RunParameters are the inputs of a run as stored in the JSON record.
type RunParameters struct {
	R0               float64 `json:"r0"`
	Gamma            float64 `json:"gamma"`
	ImmunityDuration float64 `json:"immunityDuration"`
	Beta             float64 `json:"beta"`
	Xi               float64 `json:"xi"`
	Duration         float64 `json:"duration"`
}

// RunStats are the integration statistics as stored in the JSON record.
type RunStats struct {
	Evaluations uint    `json:"evaluations"`
	Accepted    uint    `json:"accepted"`
	Rejected    uint    `json:"rejected"`
	LastStep    float64 `json:"lastStep"`
}

// RunRecord is the JSON record of a simulation.
type RunRecord struct {
	Version    string        `json:"version"`
	Created    time.Time     `json:"created"`
	Method     string        `json:"method"`
	Status     string        `json:"status"` // success or failed
	Error      string        `json:"error,omitempty"`
	Parameters RunParameters `json:"parameters"`
	Stats      RunStats      `json:"stats"`
	Samples    [][]float64   `json:"samples"` // (t, S, I, R) rows
}

// NewRunRecord returns the record of a simulation run.
func NewRunRecord(sim *Simulation, traj Trajectory, runErr error) RunRecord {
	p := sim.Model.Params
	rec := RunRecord{
		Version: RecordVersion,
		Created: time.Now().UTC(),
		Method:  sim.Options().Method.String(),
		Status:  "success",
		Parameters: RunParameters{
			R0: p.R0(), Gamma: p.Gamma, ImmunityDuration: p.ImmunityDuration(), Beta: p.Beta, Xi: p.Xi, Duration: sim.Duration,
		},
		Stats:   runStats(sim.Stats),
		Samples: traj.Rows(),
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.Error = runErr.Error()
	}
	return rec
}

func runStats(s integrator.Stats) RunStats {
	return RunStats{Evaluations: s.Evaluations, Accepted: s.Accepted, Rejected: s.Rejected, LastStep: s.LastStep}
}

// Export writes the trajectory of a run as configured and returns the written files.
// The CSV file is streamed from a separate goroutine.
func Export(conf ExportConfig, sim *Simulation, traj Trajectory, runErr error) ([]string, error) {
	if conf.IsUseless() {
		return nil, nil
	}
	if conf.Filename == "" {
		return nil, errors.New("export file name is empty")
	}
	if conf.OutputDir != "" {
		if err := os.MkdirAll(conf.OutputDir, 0o755); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	var files []string

	if conf.AsCSV {
		fname := conf.path("trajectory", "csv", now)
		f, err := os.Create(fname)
		if err != nil {
			return files, err
		}
		samples := make(chan Sample, 1000) // a 1k entry buffer
		var wg sync.WaitGroup
		var streamErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			streamErr = StreamSamples(f, sim.Model.Params, samples)
		}()
		for _, s := range traj {
			samples <- s
		}
		close(samples)
		wg.Wait() // Don't return until we're done writing the file.
		if err := f.Close(); err != nil && streamErr == nil {
			streamErr = err
		}
		if streamErr != nil {
			return files, streamErr
		}
		files = append(files, fname)
	}

	if conf.AsJSON {
		fname := conf.path("run", "json", now)
		marsh, err := json.MarshalIndent(NewRunRecord(sim, traj, runErr), "", "  ")
		if err != nil {
			return files, err
		}
		if err := os.WriteFile(fname, marsh, 0o644); err != nil {
			return files, err
		}
		files = append(files, fname)
	}
	return files, nil
}

// StreamSamples writes the samples of the channel as CSV until the channel is closed.
// The channel is always drained, even after a write error.
func StreamSamples(w io.Writer, p ModelParameters, samples <-chan Sample) (err error) {
	defer func() {
		for range samples {
		}
	}()
	// Header
	if _, err = fmt.Fprintf(w, `# Creation date (UTC): %s
# Records are <t> <S> <I> <R> as population fractions.
#   %s
`, time.Now().UTC(), p); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err = cw.Write(csvHeader); err != nil {
		return err
	}
	record := make([]string, 4)
	for s := range samples {
		for i, v := range [4]float64{s.T, s.S, s.I, s.R} {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err = cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTrajectory parses a trajectory written by StreamSamples.
func ReadTrajectory(r io.Reader) (Trajectory, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = len(csvHeader)
	var traj Trajectory
	for line := 0; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 0 && record[0] == csvHeader[0] {
			continue
		}
		var vals [4]float64
		for i, field := range record {
			if vals[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("record %d: %w", line, err)
			}
		}
		traj = append(traj, Sample{T: vals[0], S: vals[1], I: vals[2], R: vals[3]})
	}
	return traj, nil
}
