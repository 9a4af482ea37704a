// Package knapevo is the embeddable API of the knapsack solver: it loads a
// catalog, evolves a packing, and persists the run for later inspection.
package knapevo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"knapevo/internal/catalog"
	"knapevo/internal/config"
	"knapevo/internal/evo"
	"knapevo/internal/metrics"
	"knapevo/internal/model"
	"knapevo/internal/stats"
	"knapevo/internal/storage"
)

const (
	defaultRunsDir = "runs"
	defaultDBPath  = "knapevo.db"
	defaultLimit   = 20
)

// ErrRunNotFound is returned when a run id is unknown to the store.
var ErrRunNotFound = storage.ErrNotFound

type Options struct {
	StoreKind string
	DBPath    string
	// RunsDir receives per-run artifacts. Set DisableArtifacts to skip them.
	RunsDir          string
	DisableArtifacts bool
	Logger           *zap.Logger
	Metrics          *metrics.Collector
}

type Client struct {
	store   storage.Store
	runsDir string
	logger  *zap.Logger
	metrics *metrics.Collector

	mu          sync.Mutex
	initialized bool
}

type RunRequest struct {
	Settings config.Settings
	// Catalog overrides Settings.DataPath when non-nil.
	Catalog   model.Catalog
	Observers []evo.Observer
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	PlotPath     string
	Record       model.RunRecord
}

type RunsRequest struct {
	Limit int
}

type RunRef struct {
	RunID  string
	Latest bool
}

type FitnessHistoryRequest struct {
	RunRef
	Limit int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	if opts.DisableArtifacts {
		runsDir = ""
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		runsDir: runsDir,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Run validates the settings, evolves a solution and persists the run.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	settings := req.Settings
	if err := settings.Validate(); err != nil {
		return RunSummary{}, err
	}

	items := req.Catalog
	if items == nil {
		loaded, err := catalog.Load(settings.DataPath, settings.Sheet)
		if err != nil {
			return RunSummary{}, err
		}
		items = loaded
	} else if err := catalog.Validate(items); err != nil {
		return RunSummary{}, err
	}

	cfg, err := settings.MonitorConfig(items)
	if err != nil {
		return RunSummary{}, err
	}
	runID := uuid.NewString()
	log := c.logger.With(zap.String("run_id", runID))
	cfg.Logger = log
	cfg.Observers = append(cfg.Observers, req.Observers...)
	if c.metrics != nil {
		cfg.Observers = append(cfg.Observers, c.metrics.Observer(runID))
	}

	monitor, err := evo.NewPopulationMonitor(cfg)
	if err != nil {
		return RunSummary{}, err
	}

	createdAt := time.Now().UTC()
	log.Info("run started",
		zap.Int("items", len(items)),
		zap.Float64("capacity", settings.VanVolume),
		zap.Int64("seed", settings.RandomSeed),
	)
	result, err := monitor.Run(ctx, nil)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}
	elapsed := time.Since(createdAt)
	if c.metrics != nil {
		c.metrics.RunFinished(result.StopReason, elapsed)
	}

	usedSpace, totalValue := monitor.Evaluator().Usage(result.Best.Candidate)
	record := storage.Versioned(model.RunRecord{
		ID:                    runID,
		CreatedAt:             createdAt,
		Catalog:               items,
		Capacity:              settings.VanVolume,
		Config:                settings.RunConfig(),
		Best:                  result.Best,
		UsedSpace:             usedSpace,
		TotalValue:            totalValue,
		CompletedGenerations:  result.Generations,
		StopReason:            result.StopReason,
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.Diagnostics,
		DurationMillis:        elapsed.Milliseconds(),
	})
	if err := c.persist(ctx, record); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{RunID: runID, Record: record}
	if c.runsDir != "" {
		runDir, err := stats.WriteRunArtifacts(c.runsDir, record)
		if err != nil {
			return RunSummary{}, fmt.Errorf("write artifacts: %w", err)
		}
		plotPath := stats.FitnessPlotPath(c.runsDir, runID)
		if err := stats.WriteFitnessPlot(plotPath, record.BestByGeneration, record.GenerationDiagnostics, record.Capacity); err != nil {
			return RunSummary{}, fmt.Errorf("write fitness plot: %w", err)
		}
		summary.ArtifactsDir = filepath.Clean(runDir)
		summary.PlotPath = plotPath
	}

	log.Info("run finished",
		zap.Float64("best", record.Best.Score),
		zap.Int("generations", record.CompletedGenerations),
		zap.String("stop_reason", record.StopReason),
		zap.Duration("elapsed", elapsed),
	)
	return summary, nil
}

func (c *Client) persist(ctx context.Context, record model.RunRecord) error {
	if err := c.store.SaveRun(ctx, record); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveFitnessHistory(ctx, record.ID, record.BestByGeneration); err != nil {
		return fmt.Errorf("save fitness history: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, record.ID, record.GenerationDiagnostics); err != nil {
		return fmt.Errorf("save generation diagnostics: %w", err)
	}
	return nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunSummary, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx, req.Limit)
}

// Best returns the full record of a run, including its best candidate.
func (c *Client) Best(ctx context.Context, ref RunRef) (model.RunRecord, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return model.RunRecord{}, err
	}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return record, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: fitness history for %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, ref RunRef) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: diagnostics for %s", ErrRunNotFound, runID)
	}
	return diagnostics, nil
}

func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	if err := c.store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.Forget(runID)
	}
	return nil
}

func (c *Client) resolveRunID(ctx context.Context, ref RunRef) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if ref.Latest {
		runs, err := c.store.ListRuns(ctx, 1)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", errors.New("no runs available")
		}
		return runs[0].ID, nil
	}
	if ref.RunID == "" {
		return "", errors.New("run id or latest is required")
	}
	return ref.RunID, nil
}
