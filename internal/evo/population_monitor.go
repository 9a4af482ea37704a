package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"knapevo/internal/model"
)

const (
	BoundsPolicyFail  = "fail"
	BoundsPolicyClamp = "clamp"
)

type RunResult struct {
	Best             model.FitnessRecord
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Generations      int
	StopReason       string
	FinalPopulation  []ScoredCandidate
	Evaluations      int
	ClampedGenes     int
}

// GenerationReport is published to observers after each evaluated generation.
type GenerationReport struct {
	Generation  int
	Best        float64
	BestEver    float64
	Improved    bool
	Diagnostics model.GenerationDiagnostics
	Evaluations int
	Clamped     int
}

type Observer interface {
	OnGeneration(report GenerationReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(GenerationReport)

func (f ObserverFunc) OnGeneration(report GenerationReport) {
	f(report)
}

type MonitorConfig struct {
	Catalog        model.Catalog
	Capacity       float64
	PopulationSize int
	Generations    int
	NumParents     int
	// KeepParents copies the top ranked candidates unchanged into the next
	// population. -1 keeps NumParents of them, 0 disables elitism.
	KeepParents  int
	Selector     Selector
	Crossover    Crossover
	Mutation     Mutation
	StopCriteria string
	BoundsPolicy string
	Workers      int
	Seed         int64
	Logger       *zap.Logger
	Observers    []Observer
}

type PopulationMonitor struct {
	cfg       MonitorConfig
	bounds    []int
	evaluator *Evaluator
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	problems := &ConfigurationError{}
	if len(cfg.Catalog) == 0 {
		problems.add("catalog is empty")
	}
	for i, item := range cfg.Catalog {
		if item.MaxQuantity < 0 || item.MaxQuantity > model.MaxItemQuantity {
			problems.add("item %d (%s): max quantity must be in [0, %d]", i, item.Name, model.MaxItemQuantity)
		}
		if !finiteNonNegative(item.UnitSpace) || !finiteNonNegative(item.UnitValue) {
			problems.add("item %d (%s): unit value and space must be finite values >= 0", i, item.Name)
		}
	}
	if cfg.Capacity < 0 || math.IsNaN(cfg.Capacity) || math.IsInf(cfg.Capacity, 0) {
		problems.add("capacity must be a finite value >= 0")
	}
	if cfg.PopulationSize <= 0 {
		problems.add("population size must be > 0")
	}
	if cfg.Generations <= 0 {
		problems.add("generations must be > 0")
	}
	if cfg.NumParents <= 0 || cfg.NumParents > cfg.PopulationSize {
		problems.add("num parents must be in [1, population size]")
	}
	if cfg.KeepParents < -1 || cfg.KeepParents > cfg.NumParents {
		problems.add("keep parents must be -1 or in [0, num parents]")
	}
	if cfg.KeepParents == -1 && cfg.NumParents > 0 && cfg.NumParents >= cfg.PopulationSize {
		problems.add("keep parents -1 with num parents == population size leaves no room for offspring")
	}
	if cfg.KeepParents > 0 && cfg.KeepParents >= cfg.PopulationSize {
		problems.add("keep parents must be smaller than population size")
	}
	if _, err := ParseStopCriteria(cfg.StopCriteria); err != nil {
		problems.add("%v", err)
	}
	switch cfg.BoundsPolicy {
	case "":
		cfg.BoundsPolicy = BoundsPolicyFail
	case BoundsPolicyFail, BoundsPolicyClamp:
	default:
		problems.add("unsupported bounds policy: %s", cfg.BoundsPolicy)
	}
	if mutation, ok := cfg.Mutation.(RandomResetMutation); ok {
		if mutation.Percent < 0 || mutation.Percent > 100 {
			problems.add("mutation percent genes must be in [0, 100]")
		}
		if mutation.Probability < 0 || mutation.Probability > 1 {
			problems.add("mutation probability must be in [0, 1]")
		}
		if mutation.Mode != "" && mutation.Mode != RateModePercentGenes && mutation.Mode != RateModeProbability {
			problems.add("unsupported mutation rate mode: %s", mutation.Mode)
		}
	}
	if err := problems.errOrNil(); err != nil {
		return nil, err
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = SteadyStateSelector{}
	}
	if cfg.Crossover == nil {
		cfg.Crossover = SinglePointCrossover{}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = RandomResetMutation{Mode: RateModePercentGenes, Percent: 10}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &PopulationMonitor{
		cfg:       cfg,
		bounds:    cfg.Catalog.Bounds(),
		evaluator: NewEvaluator(cfg.Catalog, cfg.Capacity),
	}, nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (m *PopulationMonitor) Evaluator() *Evaluator {
	return m.evaluator
}

// Run evolves a population for the configured budget. A nil initial
// population is drawn at random. Every call reseeds from cfg.Seed, so
// repeated runs with the same inputs produce the same result.
func (m *PopulationMonitor) Run(ctx context.Context, initial []model.Candidate) (RunResult, error) {
	rng := rand.New(rand.NewSource(m.cfg.Seed))

	var population []model.Candidate
	if initial == nil {
		population = NewRandomPopulation(rng, m.bounds, m.cfg.PopulationSize)
	} else {
		if len(initial) != m.cfg.PopulationSize {
			return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
		}
		population = make([]model.Candidate, len(initial))
		for i, candidate := range initial {
			if err := CheckBounds(candidate, m.bounds); err != nil {
				return RunResult{}, fmt.Errorf("initial candidate %d: %w", i, err)
			}
			population[i] = candidate.Clone()
		}
	}

	stop, err := ParseStopCriteria(m.cfg.StopCriteria)
	if err != nil {
		return RunResult{}, err
	}

	log := m.cfg.Logger.With(zap.Int64("seed", m.cfg.Seed))
	log.Debug("run started",
		zap.Int("items", len(m.cfg.Catalog)),
		zap.Float64("capacity", m.cfg.Capacity),
		zap.Int("population", m.cfg.PopulationSize),
		zap.Int("generations", m.cfg.Generations),
		zap.String("selection", m.cfg.Selector.Name()),
		zap.String("crossover", m.cfg.Crossover.Name()),
		zap.String("mutation", m.cfg.Mutation.Name()),
	)

	result := RunResult{
		BestByGeneration: make([]float64, 0, m.cfg.Generations),
		Diagnostics:      make([]model.GenerationDiagnostics, 0, m.cfg.Generations),
		StopReason:       StopReasonGenerations,
	}
	haveBest := false
	var ranked []ScoredCandidate

	for gen := 0; gen < m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		scored, err := m.evaluatePopulation(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
		result.Evaluations += len(scored)
		ranked = Rank(scored)

		generationBest := ranked[0]
		improved := !haveBest || generationBest.Score > result.Best.Score
		if improved {
			haveBest = true
			result.Best = model.FitnessRecord{
				Candidate: generationBest.Candidate.Clone(),
				Score:     generationBest.Score,
			}
		}
		result.BestByGeneration = append(result.BestByGeneration, generationBest.Score)
		diagnostics := summarizeGeneration(ranked, gen+1)
		result.Diagnostics = append(result.Diagnostics, diagnostics)
		result.Generations = gen + 1

		m.notify(GenerationReport{
			Generation:  gen + 1,
			Best:        generationBest.Score,
			BestEver:    result.Best.Score,
			Improved:    improved,
			Diagnostics: diagnostics,
			Evaluations: len(scored),
			Clamped:     result.ClampedGenes,
		})

		if stop != nil {
			if done, reason := stop.ShouldStop(gen+1, result.Best.Score); done {
				result.StopReason = reason
				log.Debug("early stop", zap.String("reason", reason), zap.Int("generation", gen+1))
				break
			}
		}
		if gen == m.cfg.Generations-1 {
			break
		}

		next, clamped, err := m.nextGeneration(rng, ranked, gen+1)
		if err != nil {
			return RunResult{}, err
		}
		result.ClampedGenes += clamped
		population = next
	}

	result.FinalPopulation = ranked
	log.Debug("run finished",
		zap.Int("generations", result.Generations),
		zap.Float64("best", result.Best.Score),
		zap.String("stop_reason", result.StopReason),
	)
	return result, nil
}

// evaluatePopulation scores every candidate. Each worker writes only its own
// slot, so the result does not depend on the worker count.
func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []model.Candidate) ([]ScoredCandidate, error) {
	scored := make([]ScoredCandidate, len(population))
	if m.cfg.Workers == 1 {
		for i, candidate := range population {
			scored[i] = ScoredCandidate{Candidate: candidate, Score: m.evaluator.Evaluate(candidate), Index: i}
		}
		return scored, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i := range population {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = ScoredCandidate{Candidate: population[i], Score: m.evaluator.Evaluate(population[i]), Index: i}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (m *PopulationMonitor) nextGeneration(rng *rand.Rand, ranked []ScoredCandidate, generation int) ([]model.Candidate, int, error) {
	parents, err := m.cfg.Selector.SelectParents(rng, ranked, m.cfg.NumParents)
	if err != nil {
		return nil, 0, fmt.Errorf("select parents: %w", err)
	}

	next := make([]model.Candidate, 0, m.cfg.PopulationSize)
	if m.cfg.KeepParents < 0 {
		// -1 carries over every selected parent, not the top of the ranking.
		for _, parent := range parents {
			if len(next) == m.cfg.PopulationSize {
				break
			}
			next = append(next, parent.Clone())
		}
	} else {
		for i := 0; i < m.cfg.KeepParents && len(next) < m.cfg.PopulationSize; i++ {
			next = append(next, ranked[i].Candidate.Clone())
		}
	}

	clamped := 0
	for k := 0; len(next) < m.cfg.PopulationSize; k++ {
		a := parents[k%len(parents)]
		b := parents[(k+1)%len(parents)]
		child := m.cfg.Crossover.Cross(rng, a, b)
		m.cfg.Mutation.Mutate(rng, child, m.bounds)

		if err := CheckBounds(child, m.bounds); err != nil {
			var violation *BoundsViolation
			if errors.As(err, &violation) {
				violation.Generation = generation
			}
			if m.cfg.BoundsPolicy != BoundsPolicyClamp {
				return nil, 0, err
			}
			n := Clamp(child, m.bounds)
			clamped += n
			m.cfg.Logger.Warn("clamped out-of-range offspring",
				zap.Int("generation", generation),
				zap.Int("genes", n),
				zap.Error(err),
			)
		}
		next = append(next, child)
	}
	return next, clamped, nil
}

func (m *PopulationMonitor) notify(report GenerationReport) {
	for _, observer := range m.cfg.Observers {
		observer.OnGeneration(report)
	}
}
