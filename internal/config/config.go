// Package config loads and validates the solver settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"knapevo/internal/evo"
)

const EnvPrefix = "KNAPEVO_"

const (
	DefaultMinVanVolume = 1.0
	DefaultMaxVanVolume = 5.0
)

// Settings mirrors the keys of settings.yaml.
type Settings struct {
	DataPath            string  `yaml:"data_path" json:"data_path"`
	Sheet               string  `yaml:"sheet" json:"sheet,omitempty"`
	VanVolume           float64 `yaml:"van_volume" json:"van_volume"`
	MinVanVolume        float64 `yaml:"min_van_volume" json:"min_van_volume"`
	MaxVanVolume        float64 `yaml:"max_van_volume" json:"max_van_volume"`
	NumGenerations      int     `yaml:"num_generations" json:"num_generations"`
	NumParentsMating    int     `yaml:"num_parents_mating" json:"num_parents_mating"`
	SolPerPop           int     `yaml:"sol_per_pop" json:"sol_per_pop"`
	ParentSelectionType string  `yaml:"parent_selection_type" json:"parent_selection_type"`
	KTournament         int     `yaml:"K_tournament" json:"k_tournament"`
	KeepParents         int     `yaml:"keep_parents" json:"keep_parents"`
	CrossoverType       string  `yaml:"crossover_type" json:"crossover_type"`
	MutationType        string  `yaml:"mutation_type" json:"mutation_type"`
	MutationRateMode    string  `yaml:"mutation_rate_mode" json:"mutation_rate_mode"`
	MutationPercent     float64 `yaml:"mutation_percent_genes" json:"mutation_percent_genes"`
	MutationProbability float64 `yaml:"mutation_probability" json:"mutation_probability"`
	StopCriteria        string  `yaml:"stop_criteria" json:"stop_criteria,omitempty"`
	RandomSeed          int64   `yaml:"random_seed" json:"random_seed"`
	Workers             int     `yaml:"workers" json:"workers"`
	BoundsPolicy        string  `yaml:"bounds_policy" json:"bounds_policy"`
	OutputImg           string  `yaml:"output_img" json:"output_img,omitempty"`
	OutputDir           string  `yaml:"output_dir" json:"output_dir,omitempty"`
	Store               string  `yaml:"store" json:"store,omitempty"`
	DBPath              string  `yaml:"db_path" json:"db_path,omitempty"`
}

func Default() Settings {
	return Settings{
		DataPath:            "data/products.xlsx",
		VanVolume:           3,
		MinVanVolume:        DefaultMinVanVolume,
		MaxVanVolume:        DefaultMaxVanVolume,
		NumGenerations:      100,
		NumParentsMating:    10,
		SolPerPop:           50,
		ParentSelectionType: "sss",
		KTournament:         3,
		KeepParents:         1,
		CrossoverType:       "single_point",
		MutationType:        "random",
		MutationRateMode:    evo.RateModePercentGenes,
		MutationPercent:     10,
		MutationProbability: 0.1,
		RandomSeed:          42,
		Workers:             1,
		BoundsPolicy:        evo.BoundsPolicyFail,
		OutputImg:           "fitness.png",
		OutputDir:           "runs",
		Store:               "bolt",
		DBPath:              "knapevo.db",
	}
}

// Load reads a YAML settings file on top of Default. Keys missing from the
// file keep their default value; unknown keys are rejected.
func Load(path string) (Settings, error) {
	settings := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := Decode(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return settings, nil
}

func Decode(data []byte, settings *Settings) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes settings as YAML, creating or truncating path.
func Save(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides settings from KNAPEVO_<UPPER_YAML_KEY> variables.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for key, set := range s.setters() {
		raw, ok := lookup(EnvPrefix + strings.ToUpper(key))
		if !ok {
			continue
		}
		if err := set(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
	}
	return nil
}

// Set assigns one setting by its YAML key.
func (s *Settings) Set(key, raw string) error {
	set, ok := s.setters()[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := set(strings.TrimSpace(raw)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (s *Settings) setters() map[string]func(string) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	integer := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	float := func(dst *float64) func(string) error {
		return func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*dst = f
			return nil
		}
	}
	return map[string]func(string) error{
		"data_path":              str(&s.DataPath),
		"sheet":                  str(&s.Sheet),
		"van_volume":             float(&s.VanVolume),
		"min_van_volume":         float(&s.MinVanVolume),
		"max_van_volume":         float(&s.MaxVanVolume),
		"num_generations":        integer(&s.NumGenerations),
		"num_parents_mating":     integer(&s.NumParentsMating),
		"sol_per_pop":            integer(&s.SolPerPop),
		"parent_selection_type":  str(&s.ParentSelectionType),
		"k_tournament":           integer(&s.KTournament),
		"keep_parents":           integer(&s.KeepParents),
		"crossover_type":         str(&s.CrossoverType),
		"mutation_type":          str(&s.MutationType),
		"mutation_rate_mode":     str(&s.MutationRateMode),
		"mutation_percent_genes": float(&s.MutationPercent),
		"mutation_probability":   float(&s.MutationProbability),
		"stop_criteria":          str(&s.StopCriteria),
		"random_seed": func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			s.RandomSeed = n
			return nil
		},
		"workers":       integer(&s.Workers),
		"bounds_policy": str(&s.BoundsPolicy),
		"output_img":    str(&s.OutputImg),
		"output_dir":    str(&s.OutputDir),
		"store":         str(&s.Store),
		"db_path":       str(&s.DBPath),
	}
}

// ConfigurationError lists every invalid setting found by Validate.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// Validate checks every setting and reports all problems at once.
func (s Settings) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.MinVanVolume <= 0 || s.MaxVanVolume < s.MinVanVolume {
		add("van volume range [%g, %g] is invalid", s.MinVanVolume, s.MaxVanVolume)
	}
	if math.IsNaN(s.VanVolume) || s.VanVolume <= 0 {
		add("van_volume must be > 0, got %g", s.VanVolume)
	} else if s.VanVolume < s.MinVanVolume || s.VanVolume > s.MaxVanVolume {
		add("van_volume should be in the [%g;%g] range, got %g", s.MinVanVolume, s.MaxVanVolume, s.VanVolume)
	}
	if s.SolPerPop <= 0 {
		add("sol_per_pop must be > 0")
	}
	if s.NumGenerations <= 0 {
		add("num_generations must be > 0")
	}
	if s.NumParentsMating <= 0 || s.NumParentsMating > s.SolPerPop {
		add("num_parents_mating must be in [1, sol_per_pop], got %d", s.NumParentsMating)
	}
	if s.KeepParents < -1 || s.KeepParents > s.NumParentsMating {
		add("keep_parents must be -1 or in [0, num_parents_mating], got %d", s.KeepParents)
	}
	if s.KeepParents == -1 && s.SolPerPop > 0 && s.NumParentsMating >= s.SolPerPop {
		add("keep_parents -1 with num_parents_mating == sol_per_pop leaves no room for offspring")
	}
	if s.KeepParents > 0 && s.KeepParents >= s.SolPerPop {
		add("keep_parents must be smaller than sol_per_pop, got %d", s.KeepParents)
	}
	if _, err := evo.ResolveSelector(s.ParentSelectionType, evo.SelectorParams{}); err != nil {
		add("parent_selection_type %q is not one of %v", s.ParentSelectionType, evo.SelectorNames())
	}
	if s.ParentSelectionType == "tournament" && s.KTournament <= 0 {
		add("K_tournament must be > 0")
	}
	if _, err := evo.ResolveCrossover(s.CrossoverType); err != nil {
		add("crossover_type %q is not one of %v", s.CrossoverType, evo.CrossoverNames())
	}
	if _, err := evo.ResolveMutation(s.MutationType, evo.MutationParams{}); err != nil {
		add("mutation_type %q is not one of %v", s.MutationType, evo.MutationNames())
	}
	switch s.MutationRateMode {
	case evo.RateModePercentGenes, evo.RateModeProbability:
	default:
		add("mutation_rate_mode must be %s or %s", evo.RateModePercentGenes, evo.RateModeProbability)
	}
	if s.MutationPercent < 0 || s.MutationPercent > 100 {
		add("mutation_percent_genes must be in [0, 100], got %g", s.MutationPercent)
	}
	if s.MutationProbability < 0 || s.MutationProbability > 1 {
		add("mutation_probability must be in [0, 1], got %g", s.MutationProbability)
	}
	if _, err := evo.ParseStopCriteria(s.StopCriteria); err != nil {
		add("stop_criteria: %v", err)
	}
	if s.Workers < 0 {
		add("workers must be >= 0")
	}
	switch s.BoundsPolicy {
	case evo.BoundsPolicyFail, evo.BoundsPolicyClamp:
	default:
		add("bounds_policy must be %s or %s", evo.BoundsPolicyFail, evo.BoundsPolicyClamp)
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
