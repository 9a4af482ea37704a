package evo

import (
	"math/rand"
	"testing"

	"knapevo/internal/model"
)

func scoredFixture(scores ...float64) []ScoredCandidate {
	out := make([]ScoredCandidate, len(scores))
	for i, score := range scores {
		out[i] = ScoredCandidate{Candidate: model.Candidate{i}, Score: score, Index: i}
	}
	return out
}

func TestRankIsStableOnTies(t *testing.T) {
	ranked := Rank(scoredFixture(1, 5, 5, -3, 5))
	wantOrder := []int{1, 2, 4, 0, 3}
	for i, want := range wantOrder {
		if ranked[i].Index != want {
			t.Fatalf("rank position %d: got index %d want %d", i, ranked[i].Index, want)
		}
	}
}

func TestSteadyStateSelectorTakesTopRanked(t *testing.T) {
	ranked := Rank(scoredFixture(-4, 10, 3, -1, 7))
	parents, err := SteadyStateSelector{}.SelectParents(rand.New(rand.NewSource(1)), ranked, 3)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []int{1, 4, 2}
	for i, parent := range parents {
		if parent[0] != want[i] {
			t.Fatalf("parent %d: got %v want [%d]", i, parent, want[i])
		}
	}
}

func TestSelectorsTolerateNegativeScores(t *testing.T) {
	ranked := Rank(scoredFixture(-10, -2, -7, -0.5, -3, -20))
	for _, name := range SelectorNames() {
		selector, err := ResolveSelector(name, SelectorParams{TournamentSize: 2})
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		rng := rand.New(rand.NewSource(7))
		parents, err := selector.SelectParents(rng, ranked, 4)
		if err != nil {
			t.Fatalf("%s: select: %v", name, err)
		}
		if len(parents) != 4 {
			t.Fatalf("%s: expected 4 parents, got %d", name, len(parents))
		}
	}
}

func TestSelectorsRejectInvalidParentCount(t *testing.T) {
	ranked := Rank(scoredFixture(1, 2, 3))
	rng := rand.New(rand.NewSource(1))
	for _, name := range SelectorNames() {
		selector, _ := ResolveSelector(name, SelectorParams{})
		if _, err := selector.SelectParents(rng, ranked, 4); err == nil {
			t.Fatalf("%s: expected error for num parents > population", name)
		}
		if _, err := selector.SelectParents(rng, ranked, 0); err == nil {
			t.Fatalf("%s: expected error for zero parents", name)
		}
		if _, err := selector.SelectParents(nil, ranked, 1); err == nil {
			t.Fatalf("%s: expected error for nil rng", name)
		}
	}
}

func TestBiasedSelectorsFavorTopRanks(t *testing.T) {
	ranked := Rank(scoredFixture(100, 90, -50, -60, -70, -80, -90, -100))
	for _, selector := range []Selector{RankSelector{}, TournamentSelector{TournamentSize: 3}, RouletteSelector{}, StochasticUniversalSelector{}} {
		rng := rand.New(rand.NewSource(42))
		top := 0
		total := 0
		for i := 0; i < 200; i++ {
			parents, err := selector.SelectParents(rng, ranked, 4)
			if err != nil {
				t.Fatalf("%s: %v", selector.Name(), err)
			}
			for _, parent := range parents {
				total++
				if parent[0] == 0 || parent[0] == 1 {
					top++
				}
			}
		}
		// uniform selection would pick the two feasible candidates 25% of the time
		if float64(top)/float64(total) <= 0.3 {
			t.Fatalf("%s: expected bias toward top ranks, got %d/%d", selector.Name(), top, total)
		}
	}
}

func TestSelectedParentsDoNotShareStorage(t *testing.T) {
	ranked := Rank(scoredFixture(3, 2, 1))
	parents, err := SteadyStateSelector{}.SelectParents(rand.New(rand.NewSource(1)), ranked, 2)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	parents[0][0] = 99
	if ranked[0].Candidate[0] == 99 {
		t.Fatal("parent mutation leaked into ranked population")
	}
}
