package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"PatternScout/internal/model"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	results := []model.ScanResult{
		{Ticker: "AAA", Detector: "rally3m", Score: 86, Grade: model.GradeA,
			Match: &model.Match{Ticker: "AAA", Detector: "rally3m"}},
	}
	runID, err := w.Write(100, 98, 0.034, results)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run ID")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one report file, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if run.RunID != runID {
		t.Errorf("run ID mismatch: %s vs %s", run.RunID, runID)
	}
	if run.UniverseSize != 100 || run.TickersScanned != 98 {
		t.Errorf("counts not preserved: %+v", run)
	}
	if len(run.Results) != 1 || run.Results[0].Ticker != "AAA" {
		t.Errorf("results not preserved: %+v", run.Results)
	}
}

func TestWrite_NoDirSkipsFile(t *testing.T) {
	w := NewWriter("", nil)
	if _, err := w.Write(1, 1, 0, nil); err != nil {
		t.Fatalf("write without dir must not fail: %v", err)
	}
}
