package evo

import (
	"math/rand"

	"knapevo/internal/model"
)

// Crossover recombines two equal-length parents into one child. Children only
// carry parent genes, so bounds hold whenever both parents are in bounds.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, a, b model.Candidate) model.Candidate
}

// SinglePointCrossover takes a prefix of a and the suffix of b, split in [1, n-1].
type SinglePointCrossover struct{}

func (SinglePointCrossover) Name() string {
	return "single_point"
}

func (SinglePointCrossover) Cross(rng *rand.Rand, a, b model.Candidate) model.Candidate {
	n := len(a)
	if n < 2 {
		return a.Clone()
	}
	split := 1 + rng.Intn(n-1)
	child := make(model.Candidate, n)
	copy(child, a[:split])
	copy(child[split:], b[split:])
	return child
}

// TwoPointCrossover swaps in the segment [lo, hi) from b.
type TwoPointCrossover struct{}

func (TwoPointCrossover) Name() string {
	return "two_points"
}

func (TwoPointCrossover) Cross(rng *rand.Rand, a, b model.Candidate) model.Candidate {
	n := len(a)
	if n < 3 {
		return SinglePointCrossover{}.Cross(rng, a, b)
	}
	lo := 1 + rng.Intn(n-1)
	hi := 1 + rng.Intn(n-1)
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		hi = n
	}
	child := a.Clone()
	copy(child[lo:hi], b[lo:hi])
	return child
}

// UniformCrossover picks every gene from either parent with equal odds.
type UniformCrossover struct {
	name string
}

func (c UniformCrossover) Name() string {
	if c.name != "" {
		return c.name
	}
	return "uniform"
}

func (UniformCrossover) Cross(rng *rand.Rand, a, b model.Candidate) model.Candidate {
	child := make(model.Candidate, len(a))
	for i := range child {
		if rng.Intn(2) == 0 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child
}

// NoCrossover copies the first parent.
type NoCrossover struct{}

func (NoCrossover) Name() string {
	return "none"
}

func (NoCrossover) Cross(_ *rand.Rand, a, _ model.Candidate) model.Candidate {
	return a.Clone()
}
