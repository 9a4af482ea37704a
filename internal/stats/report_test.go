package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"knapevo/internal/model"
)

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, sampleRecord("run-1", time.Now())); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Best solution:",
		"Product",
		"Picked",
		"Refrigerator A",
		"Cell phone",
		"Predicted solution occupied space: 0.951",
		"Predicted total value: 3998.900",
		"3,998.9",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRunList(t *testing.T) {
	var buf bytes.Buffer
	runs := []model.RunSummary{
		{ID: "run-a", CreatedAt: time.Now(), Items: 14, Capacity: 3, Seed: 42, CompletedGenerations: 100, BestScore: 12345.678},
		{ID: "run-b", CreatedAt: time.Now(), Items: 2, Capacity: 1, Seed: 7, BestScore: -0.5},
	}
	if err := RenderRunList(&buf, runs); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "run-a\t") || !strings.Contains(lines[0], "best=12,345.678") {
		t.Fatalf("unexpected line: %q", lines[0])
	}
}
