package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"knapevo/internal/model"
)

type ScoredCandidate struct {
	Candidate model.Candidate
	Score     float64
	// Index is the candidate's slot in the evaluated population.
	Index int
}

// Selector chooses numParents parents from a population ranked by descending
// score. Implementations compare scores only and must accept negative values.
type Selector interface {
	Name() string
	SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error)
}

// Rank sorts by descending score; ties keep population order.
func Rank(scored []ScoredCandidate) []ScoredCandidate {
	ranked := make([]ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func checkSelectArgs(rng *rand.Rand, ranked []ScoredCandidate, numParents int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if numParents <= 0 || numParents > len(ranked) {
		return fmt.Errorf("invalid parent count: %d (population %d)", numParents, len(ranked))
	}
	return nil
}

// SteadyStateSelector keeps the numParents best candidates.
type SteadyStateSelector struct{}

func (SteadyStateSelector) Name() string {
	return "sss"
}

func (SteadyStateSelector) SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error) {
	if err := checkSelectArgs(rng, ranked, numParents); err != nil {
		return nil, err
	}
	parents := make([]model.Candidate, numParents)
	for i := range parents {
		parents[i] = ranked[i].Candidate.Clone()
	}
	return parents, nil
}

// RankSelector samples with weight N-r where r is the zero-based rank.
type RankSelector struct{}

func (RankSelector) Name() string {
	return "rank"
}

func (RankSelector) SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error) {
	if err := checkSelectArgs(rng, ranked, numParents); err != nil {
		return nil, err
	}
	weights := make([]float64, len(ranked))
	for i := range ranked {
		weights[i] = float64(len(ranked) - i)
	}
	return spinWheel(rng, ranked, weights, numParents), nil
}

// TournamentSelector samples TournamentSize candidates and keeps the best.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error) {
	if err := checkSelectArgs(rng, ranked, numParents); err != nil {
		return nil, err
	}
	size := s.TournamentSize
	if size <= 0 {
		size = 3
	}
	if size > len(ranked) {
		size = len(ranked)
	}

	parents := make([]model.Candidate, numParents)
	for p := range parents {
		best := rng.Intn(len(ranked))
		for i := 1; i < size; i++ {
			challenger := rng.Intn(len(ranked))
			// ranked order already breaks ties by population order
			if challenger < best {
				best = challenger
			}
		}
		parents[p] = ranked[best].Candidate.Clone()
	}
	return parents, nil
}

// RouletteSelector samples proportionally to score shifted above zero.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "rws"
}

func (RouletteSelector) SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error) {
	if err := checkSelectArgs(rng, ranked, numParents); err != nil {
		return nil, err
	}
	return spinWheel(rng, ranked, shiftedWeights(ranked), numParents), nil
}

// StochasticUniversalSelector places numParents evenly spaced pointers on
// the shifted-score wheel.
type StochasticUniversalSelector struct{}

func (StochasticUniversalSelector) Name() string {
	return "sus"
}

func (StochasticUniversalSelector) SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error) {
	if err := checkSelectArgs(rng, ranked, numParents); err != nil {
		return nil, err
	}
	weights := shiftedWeights(ranked)
	total := 0.0
	for _, w := range weights {
		total += w
	}
	step := total / float64(numParents)
	pointer := rng.Float64() * step

	parents := make([]model.Candidate, 0, numParents)
	acc := weights[0]
	idx := 0
	for len(parents) < numParents {
		for pointer > acc && idx < len(weights)-1 {
			idx++
			acc += weights[idx]
		}
		parents = append(parents, ranked[idx].Candidate.Clone())
		pointer += step
	}
	return parents, nil
}

// RandomSelector picks parents uniformly.
type RandomSelector struct{}

func (RandomSelector) Name() string {
	return "random"
}

func (RandomSelector) SelectParents(rng *rand.Rand, ranked []ScoredCandidate, numParents int) ([]model.Candidate, error) {
	if err := checkSelectArgs(rng, ranked, numParents); err != nil {
		return nil, err
	}
	parents := make([]model.Candidate, numParents)
	for i := range parents {
		parents[i] = ranked[rng.Intn(len(ranked))].Candidate.Clone()
	}
	return parents, nil
}

// shiftedWeights maps scores to strictly positive weights while keeping
// their order. Equal scores get equal weight.
func shiftedWeights(ranked []ScoredCandidate) []float64 {
	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	for _, item := range ranked {
		minScore = math.Min(minScore, item.Score)
		maxScore = math.Max(maxScore, item.Score)
	}
	spread := maxScore - minScore
	floor := 1e-9
	if spread > 0 {
		floor = spread * 1e-6
	}
	weights := make([]float64, len(ranked))
	for i, item := range ranked {
		weights[i] = item.Score - minScore + floor
	}
	return weights
}

func spinWheel(rng *rand.Rand, ranked []ScoredCandidate, weights []float64, n int) []model.Candidate {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	parents := make([]model.Candidate, n)
	for p := range parents {
		pick := rng.Float64() * total
		acc := 0.0
		chosen := len(weights) - 1
		for i, w := range weights {
			acc += w
			if pick < acc {
				chosen = i
				break
			}
		}
		parents[p] = ranked[chosen].Candidate.Clone()
	}
	return parents
}
