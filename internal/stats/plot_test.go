package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFitnessPlot(t *testing.T) {
	record := sampleRecord("run-plot", time.Now())
	path := filepath.Join(t.TempDir(), "fitness.png")
	if err := WriteFitnessPlot(path, record.BestByGeneration, record.GenerationDiagnostics, record.Capacity); err != nil {
		t.Fatalf("write plot: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read plot: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("expected png output, got %d bytes", len(data))
	}
}

func TestWriteFitnessPlotRejectsEmptyHistory(t *testing.T) {
	if err := WriteFitnessPlot(filepath.Join(t.TempDir(), "x.png"), nil, nil, 3); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestPlotTitle(t *testing.T) {
	want := "Van shop problem (van volume: 2.5)\ngenetic algorithm optimization"
	if got := PlotTitle(2.5); got != want {
		t.Fatalf("unexpected title %q", got)
	}
}
