package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"knapevo/internal/config"
	"knapevo/internal/logging"
	"knapevo/internal/metrics"
	"knapevo/internal/server"
	"knapevo/internal/stats"
	"knapevo/internal/storage"
	"knapevo/pkg/knapevo"
)

const defaultEnvFile = ".env"

var stdout io.Writer = os.Stdout

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// settingFlags collects repeated -set key=value overrides.
type settingFlags []string

func (s *settingFlags) String() string { return strings.Join(*s, ",") }

func (s *settingFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

// settingsSource holds the flags shared by commands that need solver settings.
type settingsSource struct {
	configPath *string
	envPath    *string
	overrides  settingFlags
}

func addSettingsFlags(fs *flag.FlagSet) *settingsSource {
	src := &settingsSource{
		configPath: fs.String("config", "", "settings YAML file (defaults apply when empty)"),
		envPath:    fs.String("env-file", defaultEnvFile, "dotenv file with KNAPEVO_* overrides"),
	}
	fs.Var(&src.overrides, "set", "override one setting as key=value (repeatable)")
	return src
}

// load resolves settings in order: defaults, file, .env and environment,
// then -set overrides.
func (src *settingsSource) load() (config.Settings, error) {
	settings := config.Default()
	if *src.configPath != "" {
		loaded, err := config.Load(*src.configPath)
		if err != nil {
			return config.Settings{}, err
		}
		settings = loaded
	}
	if err := config.LoadDotEnv(*src.envPath); err != nil {
		return config.Settings{}, fmt.Errorf("load %s: %w", *src.envPath, err)
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return config.Settings{}, err
	}
	for _, kv := range src.overrides {
		key, value, _ := strings.Cut(kv, "=")
		if err := settings.Set(key, value); err != nil {
			return config.Settings{}, err
		}
	}
	return settings, nil
}

type logFlags struct {
	level  *string
	format *string
}

func addLogFlags(fs *flag.FlagSet) logFlags {
	return logFlags{
		level:  fs.String("log-level", "info", "log level: debug|info|warn|error"),
		format: fs.String("log-format", logging.FormatConsole, "log format: console|json"),
	}
}

func (l logFlags) build() (*zap.Logger, error) {
	return logging.New(*l.level, *l.format)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	writeConfig := fs.String("write-config", "", "write a default settings YAML to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	storeKind, dbPath, err := stores.resolve()
	if err != nil {
		return err
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	if *writeConfig != "" {
		if err := config.Save(*writeConfig, config.Default()); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote settings=%s\n", *writeConfig)
	}
	fmt.Fprintf(stdout, "initialized store=%s\n", storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	src := addSettingsFlags(fs)
	logs := addLogFlags(fs)
	vanVolume := fs.Float64("van-volume", 0, "van capacity (overrides van_volume)")
	dataPath := fs.String("data", "", "catalog file, .xlsx or .csv (overrides data_path)")
	seed := fs.Int64("seed", 0, "random seed (overrides random_seed when set)")
	noProgress := fs.Bool("no-progress", false, "disable the progress bar")
	jsonOut := fs.Bool("json", false, "emit the run record as JSON instead of the report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := src.load()
	if err != nil {
		return err
	}
	// A bare positional argument is the van volume.
	if fs.NArg() > 0 {
		v, err := strconv.ParseFloat(fs.Arg(0), 64)
		if err != nil {
			return fmt.Errorf("van volume must be a number, got %q", fs.Arg(0))
		}
		settings.VanVolume = v
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "van-volume":
			settings.VanVolume = *vanVolume
		case "data":
			settings.DataPath = *dataPath
		case "seed":
			settings.RandomSeed = *seed
		}
	})
	if err := settings.Validate(); err != nil {
		return err
	}

	logger, err := logs.build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := knapevo.New(knapevo.Options{
		StoreKind: settings.Store,
		DBPath:    settings.DBPath,
		RunsDir:   settings.OutputDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := knapevo.RunRequest{Settings: settings}
	var bar *progress
	if !*noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = newProgress(os.Stderr, settings.NumGenerations)
		req.Observers = append(req.Observers, bar)
	}
	summary, err := client.Run(ctx, req)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return err
	}

	record := summary.Record
	if settings.OutputImg != "" {
		if err := stats.WriteFitnessPlot(settings.OutputImg, record.BestByGeneration, record.GenerationDiagnostics, record.Capacity); err != nil {
			return fmt.Errorf("write %s: %w", settings.OutputImg, err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	if err := stats.RenderReport(stdout, record); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run_id=%s\n", summary.RunID)
	if summary.ArtifactsDir != "" {
		fmt.Fprintf(stdout, "artifacts=%s\n", summary.ArtifactsDir)
	}
	return nil
}

// storeFlags picks the store the same way run does: the store and db_path
// settings, overridden by -store and -db-path when given.
type storeFlags struct {
	src  *settingsSource
	kind *string
	path *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		src:  addSettingsFlags(fs),
		kind: fs.String("store", "", "store backend: memory|sqlite|bolt (default: store setting)"),
		path: fs.String("db-path", "", "sqlite or bolt database path (default: db_path setting)"),
	}
}

func (s storeFlags) resolve() (kind, path string, err error) {
	settings, err := s.src.load()
	if err != nil {
		return "", "", err
	}
	kind, path = settings.Store, settings.DBPath
	if *s.kind != "" {
		kind = *s.kind
	}
	if *s.path != "" {
		path = *s.path
	}
	return kind, path, nil
}

func (s storeFlags) client() (*knapevo.Client, error) {
	kind, path, err := s.resolve()
	if err != nil {
		return nil, err
	}
	return knapevo.New(knapevo.Options{StoreKind: kind, DBPath: path, DisableArtifacts: true})
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := stores.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, knapevo.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs")
		return nil
	}
	return stats.RenderRunList(stdout, runs)
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunRef(*runID, *latest); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := stores.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, knapevo.FitnessHistoryRequest{
		RunRef: knapevo.RunRef{RunID: *runID, Latest: *latest},
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(stdout, "no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Fprintf(stdout, "generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	jsonOut := fs.Bool("json", false, "emit the run record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunRef(*runID, *latest); err != nil {
		return err
	}

	client, err := stores.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.Best(ctx, knapevo.RunRef{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	return stats.RenderReport(stdout, record)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	src := addSettingsFlags(fs)
	logs := addLogFlags(fs)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := src.load()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	logger, err := logs.build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	collector, err := metrics.New(nil)
	if err != nil {
		return err
	}
	client, err := knapevo.New(knapevo.Options{
		StoreKind: settings.Store,
		DBPath:    settings.DBPath,
		RunsDir:   settings.OutputDir,
		Logger:    logger,
		Metrics:   collector,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	srv := server.New(client, server.Options{Defaults: settings, Logger: logger})
	return srv.ListenAndServe(ctx, *addr)
}

func checkRunRef(runID string, latest bool) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return errors.New("requires --run-id or --latest")
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: knapevoctl <init|run|runs|fitness|best|serve> [flags]", msg)
}
