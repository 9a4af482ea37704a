package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBoltStoreContract(t *testing.T) {
	store := NewBoltStore(filepath.Join(t.TempDir(), "knapevo.bolt"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "knapevo.bolt")
	run := sampleRun("run-1", sampleTime, 12)

	first := NewBoltStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewBoltStore(path)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})
	loaded, ok, err := second.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%t err=%v", ok, err)
	}
	if loaded.Best.Score != 12 {
		t.Fatalf("unexpected best score: %f", loaded.Best.Score)
	}
}

func TestBoltStoreRequiresPathAndInit(t *testing.T) {
	if err := NewBoltStore("").Init(context.Background()); err == nil {
		t.Fatal("expected missing path error")
	}
	if _, err := NewBoltStore("unused").ListRuns(context.Background(), 0); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
