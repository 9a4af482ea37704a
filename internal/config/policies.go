package config

import (
	"knapevo/internal/evo"
	"knapevo/internal/model"
)

// Policies resolves the named selection, crossover and mutation policies.
func (s Settings) Policies() (evo.Selector, evo.Crossover, evo.Mutation, error) {
	selector, err := evo.ResolveSelector(s.ParentSelectionType, evo.SelectorParams{TournamentSize: s.KTournament})
	if err != nil {
		return nil, nil, nil, err
	}
	crossover, err := evo.ResolveCrossover(s.CrossoverType)
	if err != nil {
		return nil, nil, nil, err
	}
	mutation, err := evo.ResolveMutation(s.MutationType, evo.MutationParams{
		RateMode:    s.MutationRateMode,
		Percent:     s.MutationPercent,
		Probability: s.MutationProbability,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return selector, crossover, mutation, nil
}

// MonitorConfig builds the engine configuration for a catalog. Logger and
// observers are left for the caller.
func (s Settings) MonitorConfig(catalog model.Catalog) (evo.MonitorConfig, error) {
	selector, crossover, mutation, err := s.Policies()
	if err != nil {
		return evo.MonitorConfig{}, err
	}
	return evo.MonitorConfig{
		Catalog:        catalog,
		Capacity:       s.VanVolume,
		PopulationSize: s.SolPerPop,
		Generations:    s.NumGenerations,
		NumParents:     s.NumParentsMating,
		KeepParents:    s.KeepParents,
		Selector:       selector,
		Crossover:      crossover,
		Mutation:       mutation,
		StopCriteria:   s.StopCriteria,
		BoundsPolicy:   s.BoundsPolicy,
		Workers:        s.Workers,
		Seed:           s.RandomSeed,
	}, nil
}

func (s Settings) RunConfig() model.RunConfig {
	cfg := model.RunConfig{
		PopulationSize:      s.SolPerPop,
		Generations:         s.NumGenerations,
		NumParents:          s.NumParentsMating,
		KeepParents:         s.KeepParents,
		Selection:           s.ParentSelectionType,
		Crossover:           s.CrossoverType,
		Mutation:            s.MutationType,
		MutationRateMode:    s.MutationRateMode,
		MutationPercent:     s.MutationPercent,
		MutationProbability: s.MutationProbability,
		StopCriteria:        s.StopCriteria,
		BoundsPolicy:        s.BoundsPolicy,
		Seed:                s.RandomSeed,
		Workers:             s.Workers,
	}
	if s.ParentSelectionType == "tournament" {
		cfg.TournamentSize = s.KTournament
	}
	return cfg
}
