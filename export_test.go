package sirs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExport(t *testing.T) {
	p, _ := NewModelParameters(2.5, 0.1, 365)
	sim, _ := NewSimulation(p, 100, DefaultOptions())
	traj, err := sim.Run()
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	conf := ExportConfig{Filename: "wave", OutputDir: dir, AsCSV: true, AsJSON: true}
	files, err := Export(conf, sim, traj, nil)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if len(files) != 2 || files[0] != filepath.Join(dir, "trajectory-wave.csv") || files[1] != filepath.Join(dir, "run-wave.json") {
		t.Fatalf("unexpected files %v", files)
	}

	// The CSV export is lossless.
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	defer f.Close()
	read, err := ReadTrajectory(f)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if len(read) != len(traj) {
		t.Fatalf("read %d samples instead of %d", len(read), len(traj))
	}
	for i := range traj {
		if read[i] != traj[i] {
			t.Fatalf("sample #%d: %s != %s", i, read[i], traj[i])
		}
	}

	data, err := os.ReadFile(files[1])
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("err: %s", err)
	}
	if rec.Status != "success" || rec.Method != "dopri5" || rec.Version != RecordVersion {
		t.Fatalf("invalid record header %+v", rec)
	}
	if rec.Parameters.Duration != 100 || rec.Parameters.Gamma != 0.1 || rec.Stats.Accepted != sim.Stats.Accepted {
		t.Fatalf("invalid record %+v", rec)
	}
	if len(rec.Samples) != len(traj) || rec.Samples[0][0] != 0 || rec.Samples[0][1] != 0.99 {
		t.Fatalf("invalid samples in record")
	}
}

func TestExportFailedRun(t *testing.T) {
	p, _ := NewModelParameters(2.5, 0.1, 365)
	opts := DefaultOptions()
	opts.MaxSteps = 2
	opts.Partial = true
	sim, _ := NewSimulation(p, 100, opts)
	traj, runErr := sim.Run()
	if runErr == nil {
		t.Fatal("expected a failure")
	}
	conf := ExportConfig{Filename: "failed", OutputDir: t.TempDir(), AsJSON: true, Timestamp: true}
	files, err := Export(conf, sim, traj, runErr)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if len(files) != 1 || !strings.HasPrefix(filepath.Base(files[0]), "run-failed-") {
		t.Fatalf("unexpected files %v", files)
	}
	data, _ := os.ReadFile(files[0])
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("err: %s", err)
	}
	if rec.Status != "failed" || rec.Error == "" || len(rec.Samples) != len(traj) {
		t.Fatalf("invalid record of a failed run: %+v", rec)
	}
}

func TestExportUseless(t *testing.T) {
	if !(ExportConfig{Filename: "x"}).IsUseless() {
		t.Fatal("config without outputs should be useless")
	}
	files, err := Export(ExportConfig{}, nil, nil, nil)
	if err != nil || files != nil {
		t.Fatalf("useless export wrote %v (%v)", files, err)
	}
	if _, err := Export(ExportConfig{AsCSV: true}, nil, nil, nil); err == nil {
		t.Fatal("export without a file name should fail")
	}
}

func TestReadTrajectoryErrors(t *testing.T) {
	for _, in := range []string{"t,S,I,R\n0,1,2\n", "t,S,I,R\n0,a,0,0\n"} {
		if _, err := ReadTrajectory(strings.NewReader(in)); err == nil {
			t.Fatalf("%q should not parse", in)
		}
	}
}
