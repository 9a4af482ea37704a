package storage

import (
	"context"
	"testing"
	"time"

	"knapevo/internal/model"
)

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "x"}); err == nil {
		t.Fatal("expected error before init")
	}
}

func TestMemoryStoreIsolatesCallerSlices(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := sampleRun("run-1", time.Now().UTC(), 5)
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	run.Best.Candidate[0] = 7

	loaded, _, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if loaded.Best.Candidate[0] != 1 {
		t.Fatalf("stored candidate aliased caller slice: %v", loaded.Best.Candidate)
	}
	loaded.BestByGeneration[0] = 100

	again, _, _ := store.GetRun(ctx, "run-1")
	if again.BestByGeneration[0] != 1 {
		t.Fatalf("returned history aliased stored slice: %v", again.BestByGeneration)
	}
}
