package evo

import (
	"math"
	"math/rand"

	"knapevo/internal/model"
)

const (
	RateModePercentGenes = "percent_genes"
	RateModeProbability  = "probability"
)

// Mutation perturbs a child in place. Genes whose bound is 0 are never
// treated as a degree of freedom.
type Mutation interface {
	Name() string
	Mutate(rng *rand.Rand, child model.Candidate, bounds []int)
}

// RandomResetMutation resamples chosen genes uniformly from [0, max].
//
// In percent_genes mode exactly max(1, round(Percent/100 * mutable)) distinct
// mutable genes are reset per child. In probability mode every mutable gene
// is reset independently with Probability.
type RandomResetMutation struct {
	Mode        string
	Percent     float64
	Probability float64
}

func (RandomResetMutation) Name() string {
	return "random"
}

func (m RandomResetMutation) Mutate(rng *rand.Rand, child model.Candidate, bounds []int) {
	mutable := mutableGenes(bounds)
	if len(mutable) == 0 {
		return
	}

	if m.Mode == RateModeProbability {
		if m.Probability <= 0 {
			return
		}
		for _, gene := range mutable {
			if rng.Float64() < m.Probability {
				child[gene] = drawGene(rng, bounds[gene])
			}
		}
		return
	}

	if m.Percent <= 0 {
		return
	}
	count := PercentGeneCount(m.Percent, len(mutable))
	rng.Shuffle(len(mutable), func(i, j int) {
		mutable[i], mutable[j] = mutable[j], mutable[i]
	})
	for _, gene := range mutable[:count] {
		child[gene] = drawGene(rng, bounds[gene])
	}
}

// PercentGeneCount converts a percentage into a gene count in [1, mutable].
func PercentGeneCount(percent float64, mutable int) int {
	count := int(math.Round(percent / 100 * float64(mutable)))
	if count < 1 {
		count = 1
	}
	if count > mutable {
		count = mutable
	}
	return count
}

// NoMutation leaves children untouched.
type NoMutation struct{}

func (NoMutation) Name() string {
	return "none"
}

func (NoMutation) Mutate(_ *rand.Rand, _ model.Candidate, _ []int) {}
