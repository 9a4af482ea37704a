package model

import (
	"math"
	"time"
)

// MaxItemQuantity is the largest stock an Item may declare.
const MaxItemQuantity = math.MaxInt32

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Item is one catalog entry. Its index in the Catalog identifies the gene.
type Item struct {
	Name        string  `json:"name"`
	UnitValue   float64 `json:"unit_value"`
	UnitSpace   float64 `json:"unit_space"`
	MaxQuantity int     `json:"max_quantity"`
}

type Catalog []Item

// Bounds returns the inclusive upper bound of every gene.
func (c Catalog) Bounds() []int {
	out := make([]int, len(c))
	for i, item := range c {
		out[i] = item.MaxQuantity
	}
	return out
}

// Candidate holds the picked quantity per catalog item.
type Candidate []int

func (c Candidate) Clone() Candidate {
	return append(Candidate(nil), c...)
}

type FitnessRecord struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

type GenerationDiagnostics struct {
	Generation         int     `json:"generation"`
	BestFitness        float64 `json:"best_fitness"`
	MeanFitness        float64 `json:"mean_fitness"`
	MinFitness         float64 `json:"min_fitness"`
	StdDevFitness      float64 `json:"stddev_fitness"`
	FeasibleCount      int     `json:"feasible_count"`
	DistinctCandidates int     `json:"distinct_candidates"`
}

// RunConfig is the persisted copy of the hyperparameters a run used.
type RunConfig struct {
	PopulationSize      int     `json:"population_size"`
	Generations         int     `json:"generations"`
	NumParents          int     `json:"num_parents"`
	KeepParents         int     `json:"keep_parents"`
	Selection           string  `json:"selection"`
	TournamentSize      int     `json:"tournament_size,omitempty"`
	Crossover           string  `json:"crossover"`
	Mutation            string  `json:"mutation"`
	MutationRateMode    string  `json:"mutation_rate_mode"`
	MutationPercent     float64 `json:"mutation_percent_genes"`
	MutationProbability float64 `json:"mutation_probability"`
	StopCriteria        string  `json:"stop_criteria,omitempty"`
	BoundsPolicy        string  `json:"bounds_policy"`
	Seed                int64   `json:"seed"`
	Workers             int     `json:"workers"`
}

type RunRecord struct {
	VersionedRecord
	ID                    string                  `json:"id"`
	CreatedAt             time.Time               `json:"created_at"`
	Catalog               Catalog                 `json:"catalog"`
	Capacity              float64                 `json:"capacity"`
	Config                RunConfig               `json:"config"`
	Best                  FitnessRecord           `json:"best"`
	UsedSpace             float64                 `json:"used_space"`
	TotalValue            float64                 `json:"total_value"`
	CompletedGenerations  int                     `json:"completed_generations"`
	StopReason            string                  `json:"stop_reason"`
	BestByGeneration      []float64               `json:"best_by_generation"`
	GenerationDiagnostics []GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	DurationMillis        int64                   `json:"duration_ms"`
}

// RunSummary is the lightweight listing view of a RunRecord.
type RunSummary struct {
	ID                   string    `json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	Items                int       `json:"items"`
	Capacity             float64   `json:"capacity"`
	Seed                 int64     `json:"seed"`
	PopulationSize       int       `json:"population_size"`
	CompletedGenerations int       `json:"completed_generations"`
	BestScore            float64   `json:"best_score"`
	StopReason           string    `json:"stop_reason"`
}

func (r RunRecord) Summary() RunSummary {
	return RunSummary{
		ID:                   r.ID,
		CreatedAt:            r.CreatedAt,
		Items:                len(r.Catalog),
		Capacity:             r.Capacity,
		Seed:                 r.Config.Seed,
		PopulationSize:       r.Config.PopulationSize,
		CompletedGenerations: r.CompletedGenerations,
		BestScore:            r.Best.Score,
		StopReason:           r.StopReason,
	}
}
