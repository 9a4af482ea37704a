package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"knapevo/internal/model"
)

func TestDecodeRunFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("run_record_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	record, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if record.ID != "run-fixture-1" {
		t.Fatalf("unexpected run id: %s", record.ID)
	}
	if len(record.Catalog) != 2 || record.Catalog[1].Name != "TV 42" {
		t.Fatalf("unexpected catalog: %+v", record.Catalog)
	}
	if record.Best.Score != 3998.9 || len(record.Best.Candidate) != 2 {
		t.Fatalf("unexpected best: %+v", record.Best)
	}
	if record.Config.Seed != 42 || record.Config.MutationRateMode != "percent_genes" {
		t.Fatalf("unexpected config: %+v", record.Config)
	}
}

func TestRunRoundTrip(t *testing.T) {
	input := sampleRun("run-1", sampleTime, 7)
	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output.ID != input.ID || output.Best.Score != 7 || !output.CreatedAt.Equal(input.CreatedAt) {
		t.Fatalf("unexpected round trip: %+v", output)
	}
}

func TestDecodeRunVersionMismatch(t *testing.T) {
	record := sampleRun("run-1", sampleTime, 1)
	record.CodecVersion = CurrentCodecVersion + 1
	data, err := EncodeRun(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}

	if _, err := DecodeRun([]byte(`{"id":"unversioned"}`)); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for unversioned record, got %v", err)
	}
}

func TestVersionedStampsCurrentVersions(t *testing.T) {
	record := Versioned(model.RunRecord{ID: "x"})
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		t.Fatalf("unexpected versions: %+v", record.VersionedRecord)
	}
}

func TestSortSummariesNewestFirst(t *testing.T) {
	summaries := []model.RunSummary{
		{ID: "b", CreatedAt: sampleTime},
		{ID: "a", CreatedAt: sampleTime},
		{ID: "c", CreatedAt: sampleTime.Add(1)},
	}
	out := sortSummaries(summaries, 2)
	if len(out) != 2 || out[0].ID != "c" || out[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
