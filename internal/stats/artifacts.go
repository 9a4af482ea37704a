package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"knapevo/internal/model"
)

const (
	runIndexFile        = "run_index.json"
	configFile          = "config.json"
	fitnessHistoryFile  = "fitness_history.csv"
	diagnosticsFile     = "diagnostics.json"
	bestSolutionFile    = "best_solution.csv"
	fitnessPlotFileName = "fitness.png"
)

// ArtifactFiles lists the files WriteRunArtifacts always produces.
var ArtifactFiles = []string{configFile, fitnessHistoryFile, diagnosticsFile, bestSolutionFile}

// RunConfigArtifact is the config.json payload: the hyperparameters plus the
// problem instance needed to replay a run.
type RunConfigArtifact struct {
	RunID    string          `json:"run_id"`
	Capacity float64         `json:"capacity"`
	Catalog  model.Catalog   `json:"catalog"`
	Config   model.RunConfig `json:"config"`
}

type RunIndexEntry struct {
	RunID                string  `json:"run_id"`
	Items                int     `json:"items"`
	Capacity             float64 `json:"capacity"`
	PopulationSize       int     `json:"population_size"`
	Generations          int     `json:"generations"`
	CompletedGenerations int     `json:"completed_generations"`
	Seed                 int64   `json:"seed"`
	Workers              int     `json:"workers"`
	FinalBestFitness     float64 `json:"final_best_fitness"`
	StopReason           string  `json:"stop_reason"`
	CreatedAtUTC         string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes one directory per run under baseDir and records
// the run in the index.
func WriteRunArtifacts(baseDir string, record model.RunRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, record.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	cfg := RunConfigArtifact{RunID: record.ID, Capacity: record.Capacity, Catalog: record.Catalog, Config: record.Config}
	if err := writeJSON(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(filepath.Join(runDir, fitnessHistoryFile), record.BestByGeneration); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), record.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeBestSolution(filepath.Join(runDir, bestSolutionFile), record); err != nil {
		return "", err
	}

	entry := RunIndexEntry{
		RunID:                record.ID,
		Items:                len(record.Catalog),
		Capacity:             record.Capacity,
		PopulationSize:       record.Config.PopulationSize,
		Generations:          record.Config.Generations,
		CompletedGenerations: record.CompletedGenerations,
		Seed:                 record.Config.Seed,
		Workers:              record.Config.Workers,
		FinalBestFitness:     record.Best.Score,
		StopReason:           record.StopReason,
		CreatedAtUTC:         record.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"),
	}
	if err := AppendRunIndex(baseDir, entry); err != nil {
		return "", err
	}
	return runDir, nil
}

// FitnessPlotPath is where the CLI stores a run's fitness chart.
func FitnessPlotPath(baseDir, runID string) string {
	return filepath.Join(baseDir, runID, fitnessPlotFileName)
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunArtifacts returns the run index newest first. Entries with equal
// timestamps keep the most recently appended one first.
func ListRunArtifacts(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfigArtifact, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfigArtifact{}, false, nil
		}
		return RunConfigArtifact{}, false, err
	}

	var cfg RunConfigArtifact
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfigArtifact{}, false, err
	}
	return cfg, true, nil
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, diagnosticsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, false, err
	}
	return diagnostics, true, nil
}

// WriteFitnessSeries writes one "generation,best_fitness" row per generation,
// numbering generations from 1 like the diagnostics do.
func WriteFitnessSeries(path string, bestByGeneration []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(best, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessHistoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(row) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeBestSolution(path string, record model.RunRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"product", "picked", "unit_value", "unit_space"}); err != nil {
		return err
	}
	for i, item := range record.Catalog {
		picked := 0
		if i < len(record.Best.Candidate) {
			picked = record.Best.Candidate[i]
		}
		if err := writer.Write([]string{
			item.Name,
			strconv.Itoa(picked),
			strconv.FormatFloat(item.UnitValue, 'f', -1, 64),
			strconv.FormatFloat(item.UnitSpace, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
