package evo

import (
	"gonum.org/v1/gonum/stat"

	"knapevo/internal/model"
)

// summarizeGeneration expects ranked to be sorted by descending score.
func summarizeGeneration(ranked []ScoredCandidate, generation int) model.GenerationDiagnostics {
	if len(ranked) == 0 {
		return model.GenerationDiagnostics{Generation: generation}
	}

	scores := make([]float64, len(ranked))
	distinct := make(map[string]struct{}, len(ranked))
	feasible := 0
	for i, item := range ranked {
		scores[i] = item.Score
		if item.Score >= 0 {
			feasible++
		}
		distinct[candidateKey(item.Candidate)] = struct{}{}
	}
	mean, std := stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		std = 0
	}

	return model.GenerationDiagnostics{
		Generation:         generation,
		BestFitness:        ranked[0].Score,
		MeanFitness:        mean,
		MinFitness:         ranked[len(ranked)-1].Score,
		StdDevFitness:      std,
		FeasibleCount:      feasible,
		DistinctCandidates: len(distinct),
	}
}
