package evo

import (
	"math/rand"
	"strconv"

	"knapevo/internal/model"
)

// RandomCandidate draws every gene uniformly from [0, bounds[i]].
func RandomCandidate(rng *rand.Rand, bounds []int) model.Candidate {
	out := make(model.Candidate, len(bounds))
	for i, upper := range bounds {
		if upper <= 0 {
			continue
		}
		out[i] = drawGene(rng, upper)
	}
	return out
}

// drawGene returns a uniform value in [0, upper].
func drawGene(rng *rand.Rand, upper int) int {
	return int(rng.Int63n(int64(upper) + 1))
}

func NewRandomPopulation(rng *rand.Rand, bounds []int, size int) []model.Candidate {
	population := make([]model.Candidate, size)
	for i := range population {
		population[i] = RandomCandidate(rng, bounds)
	}
	return population
}

// CheckBounds returns the first out-of-range gene as a *BoundsViolation.
func CheckBounds(candidate model.Candidate, bounds []int) error {
	if len(candidate) != len(bounds) {
		return &BoundsViolation{Gene: len(candidate), Value: len(candidate), Max: len(bounds)}
	}
	for i, gene := range candidate {
		if gene < 0 || gene > bounds[i] {
			return &BoundsViolation{Gene: i, Value: gene, Max: bounds[i]}
		}
	}
	return nil
}

// Clamp forces every gene into range and returns the number of genes changed.
func Clamp(candidate model.Candidate, bounds []int) int {
	clamped := 0
	for i := range candidate {
		if i >= len(bounds) {
			break
		}
		switch {
		case candidate[i] < 0:
			candidate[i] = 0
			clamped++
		case candidate[i] > bounds[i]:
			candidate[i] = bounds[i]
			clamped++
		}
	}
	return clamped
}

// mutableGenes lists the genes that can take more than one value.
func mutableGenes(bounds []int) []int {
	out := make([]int, 0, len(bounds))
	for i, upper := range bounds {
		if upper > 0 {
			out = append(out, i)
		}
	}
	return out
}

func candidateKey(candidate model.Candidate) string {
	buf := make([]byte, 0, len(candidate)*3)
	for i, gene := range candidate {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(gene), 10)
	}
	return string(buf)
}
