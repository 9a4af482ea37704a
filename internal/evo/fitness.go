package evo

import "knapevo/internal/model"

// Evaluator scores candidates against a fixed catalog and capacity. It holds
// no mutable state and is safe for concurrent use.
type Evaluator struct {
	values   []float64
	spaces   []float64
	capacity float64
}

func NewEvaluator(catalog model.Catalog, capacity float64) *Evaluator {
	e := &Evaluator{
		values:   make([]float64, len(catalog)),
		spaces:   make([]float64, len(catalog)),
		capacity: capacity,
	}
	for i, item := range catalog {
		e.values[i] = item.UnitValue
		e.spaces[i] = item.UnitSpace
	}
	return e
}

func (e *Evaluator) Capacity() float64 {
	return e.capacity
}

// Usage returns the occupied space and total value of a candidate.
func (e *Evaluator) Usage(candidate model.Candidate) (space, value float64) {
	for i, qty := range candidate {
		if qty == 0 {
			continue
		}
		q := float64(qty)
		space += q * e.spaces[i]
		value += q * e.values[i]
	}
	return space, value
}

// Evaluate returns the total value of a feasible candidate and the negated
// occupied space of an infeasible one, so every feasible score is >= 0 and
// every infeasible score is < 0.
func (e *Evaluator) Evaluate(candidate model.Candidate) float64 {
	space, value := e.Usage(candidate)
	if space > e.capacity {
		return -space
	}
	return value
}

func (e *Evaluator) Feasible(candidate model.Candidate) bool {
	space, _ := e.Usage(candidate)
	return space <= e.capacity
}
