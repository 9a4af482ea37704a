package evo

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	StopReasonGenerations = "generations"
	StopReasonSaturated   = "saturated"
	StopReasonReached     = "reached"
)

// StopPolicy ends a run before the generation budget is spent. It sees the
// best-ever score after each completed generation.
type StopPolicy interface {
	Name() string
	ShouldStop(generation int, bestEver float64) (bool, string)
}

// SaturationStop stops after Generations consecutive generations without a
// strict improvement of the best-ever score.
type SaturationStop struct {
	Generations int

	last  float64
	stale int
	seen  bool
}

func (s *SaturationStop) Name() string {
	return fmt.Sprintf("saturate_%d", s.Generations)
}

func (s *SaturationStop) ShouldStop(_ int, bestEver float64) (bool, string) {
	if !s.seen || bestEver > s.last {
		s.seen = true
		s.last = bestEver
		s.stale = 0
		return false, ""
	}
	s.stale++
	if s.stale >= s.Generations {
		return true, StopReasonSaturated
	}
	return false, ""
}

// ReachStop stops once the best-ever score is at least Target.
type ReachStop struct {
	Target float64
}

func (s ReachStop) Name() string {
	return "reach_" + strconv.FormatFloat(s.Target, 'g', -1, 64)
}

func (s ReachStop) ShouldStop(_ int, bestEver float64) (bool, string) {
	if bestEver >= s.Target {
		return true, StopReasonReached
	}
	return false, ""
}

// anyStop stops as soon as one of its policies does.
type anyStop []StopPolicy

func (a anyStop) Name() string {
	names := make([]string, 0, len(a))
	for _, p := range a {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

func (a anyStop) ShouldStop(generation int, bestEver float64) (bool, string) {
	for _, p := range a {
		if stop, reason := p.ShouldStop(generation, bestEver); stop {
			return true, reason
		}
	}
	return false, ""
}

// ParseStopCriteria reads a comma separated list such as
// "saturate_20,reach_120". An empty string disables early stopping.
func ParseStopCriteria(raw string) (StopPolicy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var policies anyStop
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		name, param, ok := strings.Cut(part, "_")
		if !ok {
			return nil, fmt.Errorf("stop criterion %q: expected <name>_<value>", part)
		}
		switch name {
		case "saturate":
			n, err := strconv.Atoi(param)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("stop criterion %q: saturation window must be a positive integer", part)
			}
			policies = append(policies, &SaturationStop{Generations: n})
		case "reach":
			target, err := strconv.ParseFloat(param, 64)
			if err != nil {
				return nil, fmt.Errorf("stop criterion %q: %w", part, err)
			}
			policies = append(policies, ReachStop{Target: target})
		default:
			return nil, fmt.Errorf("stop criterion %q: unknown policy %s", part, name)
		}
	}
	if len(policies) == 1 {
		return policies[0], nil
	}
	return policies, nil
}
