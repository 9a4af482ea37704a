package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrPolicyExists   = errors.New("policy already registered")
	ErrPolicyNotFound = errors.New("policy not found")
)

// SelectorParams carries the tunables a selection policy may read.
type SelectorParams struct {
	TournamentSize int
}

// MutationParams carries the rate settings of a mutation policy.
type MutationParams struct {
	RateMode    string
	Percent     float64
	Probability float64
}

type (
	SelectorFactory  func(SelectorParams) Selector
	CrossoverFactory func() Crossover
	MutationFactory  func(MutationParams) Mutation
)

var policyRegistry = struct {
	mu         sync.RWMutex
	selectors  map[string]SelectorFactory
	crossovers map[string]CrossoverFactory
	mutations  map[string]MutationFactory
}{
	selectors: map[string]SelectorFactory{
		"sss":        func(SelectorParams) Selector { return SteadyStateSelector{} },
		"rank":       func(SelectorParams) Selector { return RankSelector{} },
		"tournament": func(p SelectorParams) Selector { return TournamentSelector{TournamentSize: p.TournamentSize} },
		"rws":        func(SelectorParams) Selector { return RouletteSelector{} },
		"sus":        func(SelectorParams) Selector { return StochasticUniversalSelector{} },
		"random":     func(SelectorParams) Selector { return RandomSelector{} },
	},
	crossovers: map[string]CrossoverFactory{
		"single_point": func() Crossover { return SinglePointCrossover{} },
		"two_points":   func() Crossover { return TwoPointCrossover{} },
		"uniform":      func() Crossover { return UniformCrossover{} },
		"scattered":    func() Crossover { return UniformCrossover{name: "scattered"} },
		"none":         func() Crossover { return NoCrossover{} },
	},
	mutations: map[string]MutationFactory{
		"random": func(p MutationParams) Mutation {
			return RandomResetMutation{Mode: p.RateMode, Percent: p.Percent, Probability: p.Probability}
		},
		"none": func(MutationParams) Mutation { return NoMutation{} },
	},
}

func RegisterSelector(name string, factory SelectorFactory) error {
	if name == "" || factory == nil {
		return errors.New("selector name and factory are required")
	}
	policyRegistry.mu.Lock()
	defer policyRegistry.mu.Unlock()
	if _, ok := policyRegistry.selectors[name]; ok {
		return fmt.Errorf("%w: selector %s", ErrPolicyExists, name)
	}
	policyRegistry.selectors[name] = factory
	return nil
}

func ResolveSelector(name string, params SelectorParams) (Selector, error) {
	policyRegistry.mu.RLock()
	factory, ok := policyRegistry.selectors[name]
	policyRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: selector %s", ErrPolicyNotFound, name)
	}
	return factory(params), nil
}

func ResolveCrossover(name string) (Crossover, error) {
	policyRegistry.mu.RLock()
	factory, ok := policyRegistry.crossovers[name]
	policyRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: crossover %s", ErrPolicyNotFound, name)
	}
	return factory(), nil
}

func ResolveMutation(name string, params MutationParams) (Mutation, error) {
	policyRegistry.mu.RLock()
	factory, ok := policyRegistry.mutations[name]
	policyRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: mutation %s", ErrPolicyNotFound, name)
	}
	return factory(params), nil
}

func SelectorNames() []string {
	policyRegistry.mu.RLock()
	defer policyRegistry.mu.RUnlock()
	return sortedKeys(policyRegistry.selectors)
}

func CrossoverNames() []string {
	policyRegistry.mu.RLock()
	defer policyRegistry.mu.RUnlock()
	return sortedKeys(policyRegistry.crossovers)
}

func MutationNames() []string {
	policyRegistry.mu.RLock()
	defer policyRegistry.mu.RUnlock()
	return sortedKeys(policyRegistry.mutations)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
