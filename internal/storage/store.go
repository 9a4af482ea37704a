package storage

import (
	"context"

	"knapevo/internal/model"
)

// Store defines transaction-like persistence operations for solver runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, record model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns summaries newest first. A limit <= 0 returns all runs.
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	// DeleteRun removes the run and its history. Unknown ids yield ErrNotFound.
	DeleteRun(ctx context.Context, id string) error
}
