package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		States: []sim.State{
			{0, 0.1, 0.05, 0, 0, 0},
			{0.001, 0.099, 0.049, 0.1, -0.1, -0.1},
		},
		Controls: []sim.Control{
			{2.5},
		},
		Times: []float64{0.0, 0.001},
		Metrics: map[string]float64{
			"stability": 1.0,
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("classical", "rk4", 0.001, 1.0, 42, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Controller != "classical" {
		t.Errorf("controller = %s, want classical", meta.Controller)
	}
	if meta.Seed != 42 {
		t.Errorf("seed = %d, want 42", meta.Seed)
	}
	if meta.Metrics["stability"] != 1.0 {
		t.Errorf("stability = %f, want 1", meta.Metrics["stability"])
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Errorf("got %d states, %d times, want 2 each", len(states), len(times))
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save("adaptive", "rk4", 0.001, 1.0, 7, sampleResult()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("classical", "rk4", 0.001, 1.0, 42, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(dir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	csvPath := filepath.Join(runDir, "states.csv")
	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		t.Error("states.csv not created")
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "time,x,theta1,theta2,xdot,omega1,omega2") {
		t.Errorf("unexpected header: %s", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestExportCSVDiagnostics(t *testing.T) {
	var buf strings.Builder
	outputs := []smc.Output{
		{Control: 2.5, Surface: 0.7, Equivalent: 2.9, Switching: -0.4, Saturated: false, Regularized: true, AdaptedGain: 10, Mode: smc.ModeAdaptive},
	}

	if err := WriteCSV(&buf, sampleResult(), outputs); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}

	header := strings.Join(records[0], ",")
	for _, col := range []string{"s", "u_eq", "u_sw", "saturated", "regularized", "gain", "mode"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing %s: %s", col, header)
		}
	}

	// First data row carries the traced diagnostics; the final state row has
	// empty diagnostic cells.
	first, last := records[1], records[2]
	if first[len(first)-1] != "adaptive" {
		t.Errorf("mode cell = %q, want adaptive", first[len(first)-1])
	}
	if last[len(last)-1] != "" {
		t.Errorf("trailing row mode cell = %q, want empty", last[len(last)-1])
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, "classical", "rk4", 0.001, 1.0, sampleResult()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"controller": "classical"`, `"steps": 2`, `"stability"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s", want)
		}
	}
}
