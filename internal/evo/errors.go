package evo

import (
	"fmt"
	"strings"
)

// ConfigurationError reports hyperparameters or inputs rejected before a run
// starts. No generation is executed when one is returned.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid monitor configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ConfigurationError) errOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// BoundsViolation marks a gene outside [0, max] after variation. It is a
// defect in an operator, not a runtime condition.
type BoundsViolation struct {
	Generation int
	Gene       int
	Value      int
	Max        int
}

func (e *BoundsViolation) Error() string {
	return fmt.Sprintf("gene %d out of bounds at generation %d: value=%d allowed=[0,%d]", e.Gene, e.Generation, e.Value, e.Max)
}
