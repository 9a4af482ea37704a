package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"knapevo/internal/model"
)

var sampleTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleRun(id string, created time.Time, best float64) model.RunRecord {
	return Versioned(model.RunRecord{
		ID:        id,
		CreatedAt: created,
		Catalog: model.Catalog{
			{Name: "Refrigerator A", UnitValue: 999.9, UnitSpace: 0.751, MaxQuantity: 1},
			{Name: "Cell phone", UnitValue: 2199.12, UnitSpace: 0.00000899, MaxQuantity: 2},
		},
		Capacity: 3,
		Config: model.RunConfig{
			PopulationSize: 10,
			Generations:    5,
			NumParents:     4,
			Selection:      "sss",
			Crossover:      "single_point",
			Mutation:       "random",
			BoundsPolicy:   "fail",
			Seed:           42,
			Workers:        1,
		},
		Best:                 model.FitnessRecord{Candidate: model.Candidate{1, 2}, Score: best},
		UsedSpace:            0.75101798,
		TotalValue:           best,
		CompletedGenerations: 5,
		StopReason:           "generations",
		BestByGeneration:     []float64{1, 2, best},
	})
}

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := sampleTime

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("get missing run: ok=%t err=%v", ok, err)
	}

	runs := []model.RunRecord{
		sampleRun("run-a", base, 10),
		sampleRun("run-b", base.Add(time.Minute), 20),
		sampleRun("run-c", base.Add(2*time.Minute), 30),
	}
	for _, run := range runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, "run-b")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if !reflect.DeepEqual(loaded.Best, runs[1].Best) || loaded.Capacity != 3 || len(loaded.Catalog) != 2 {
		t.Fatalf("unexpected run: %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(runs[1].CreatedAt) {
		t.Fatalf("created_at mismatch: %s vs %s", loaded.CreatedAt, runs[1].CreatedAt)
	}

	summaries, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(summaries) != 3 || summaries[0].ID != "run-c" || summaries[2].ID != "run-a" {
		t.Fatalf("unexpected listing order: %+v", summaries)
	}
	if summaries[0].BestScore != 30 || summaries[0].Items != 2 || summaries[0].Seed != 42 {
		t.Fatalf("unexpected summary: %+v", summaries[0])
	}
	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs limited: %v", err)
	}
	if len(limited) != 2 || limited[1].ID != "run-b" {
		t.Fatalf("unexpected limited listing: %+v", limited)
	}

	updated := runs[0]
	updated.Best.Score = 99
	if err := store.SaveRun(ctx, updated); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
	loaded, _, err = store.GetRun(ctx, "run-a")
	if err != nil || loaded.Best.Score != 99 {
		t.Fatalf("expected overwritten run, got %+v err=%v", loaded.Best, err)
	}

	history := []float64{-0.5, 1.25, 3}
	if err := store.SaveFitnessHistory(ctx, "run-a", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotHistory, history) {
		t.Fatalf("unexpected history: %v", gotHistory)
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 3, MeanFitness: 1, FeasibleCount: 4, DistinctCandidates: 5}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-a", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotDiagnostics, diagnostics) {
		t.Fatalf("unexpected diagnostics: %+v", gotDiagnostics)
	}

	if err := store.DeleteRun(ctx, "run-a"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "run-a"); ok {
		t.Fatal("expected deleted run to be gone")
	}
	if _, ok, _ := store.GetFitnessHistory(ctx, "run-a"); ok {
		t.Fatal("expected deleted run history to be gone")
	}
	if err := store.DeleteRun(ctx, "run-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
