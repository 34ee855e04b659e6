// Command preprocessor runs the full extract preparation chain: it
// loads the raw survey files, executes the cleaning and derivation
// pipeline, and writes the analysis-ready CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"surveyprep/internal/config"
	"surveyprep/internal/dataset"
	"surveyprep/internal/exporter"
	"surveyprep/internal/infrastructure"
	"surveyprep/internal/loader"
	"surveyprep/internal/pipeline"
	"surveyprep/internal/preprocess"
	"surveyprep/internal/registry"
)

func main() {
	inPath := flag.String("in", "", "input file or directory of raw extract files (defaults to the configured data directory)")
	outPath := flag.String("out", "", "output CSV path (defaults to the configured cache file)")
	configFile := flag.String("config", "", "optional YAML configuration file")
	dropMissing := flag.Bool("drop-missing-target", false, "drop rows whose composite score could not be derived")
	flag.Parse()

	if err := run(context.Background(), *inPath, *outPath, *configFile, *dropMissing); err != nil {
		slog.Error("preparation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, inPath, outPath, configFile string, dropMissing bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	shutdown, err := infrastructure.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Warn("trace shutdown", slog.String("error", err.Error()))
		}
	}()

	reg := registry.Default()
	if cfg.Paths.RegistryFile != "" {
		reg, err = registry.LoadYAML(cfg.Paths.RegistryFile)
		if err != nil {
			return fmt.Errorf("load registry: %w", err)
		}
	}

	if inPath == "" {
		inPath = cfg.Paths.DataDir
	}
	if outPath == "" {
		outPath = cfg.Paths.CacheFile
	}

	table, err := loadInput(reg, logger, inPath)
	if err != nil {
		return err
	}

	params := pipelineParams(cfg.Pipeline)
	manager, err := pipeline.NewManager(reg, params, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	prepared, state, err := manager.Run(ctx, table)
	if err != nil {
		return err
	}
	for _, d := range state.Diagnostics() {
		logger.Warn("run diagnostic", slog.String("detail", d))
	}

	if dropMissing {
		filtered, dropped := pipeline.DropMissingTarget(prepared, reg.ScoreColumn)
		logger.Info("rows without composite score dropped",
			slog.Int("dropped", dropped),
			slog.Int("remaining", filtered.NumRows()),
		)
		prepared = filtered
	}

	writer := exporter.NewCSVWriter(logger)
	options := exporter.WriteOptions{BOMPrefix: true, IDHeader: reg.IDColumn}
	if err := writer.WriteTable(outPath, prepared, options); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	logSummary(logger, reg, prepared)
	return nil
}

// loadInput reads one file, or every CSV and XLSX file in a directory
// merged onto the first file loaded.
func loadInput(reg *registry.Registry, logger *slog.Logger, path string) (*dataset.Table, error) {
	ld := loader.New(reg, logger)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input %s: %w", path, err)
	}
	if !info.IsDir() {
		return readFile(ld, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", path, err)
	}

	var table *dataset.Table
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := filepath.Join(path, entry.Name())
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".xlsx":
		default:
			continue
		}
		t, err := readFile(ld, name)
		if err != nil {
			return nil, err
		}
		if table == nil {
			table = t
			continue
		}
		table, err = ld.Merge(table, t)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", name, err)
		}
	}
	if table == nil {
		return nil, fmt.Errorf("no extract files found under %s", path)
	}
	return table, nil
}

func readFile(ld *loader.Loader, path string) (*dataset.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ld.ReadXLSX(path)
	}
	return ld.ReadCSV(path)
}

func pipelineParams(pc config.PipelineConfig) preprocess.Params {
	params := preprocess.DefaultParams()
	params.Neighbors = pc.Neighbors
	params.MinAnswered = pc.MinAnswered
	params.ScoreCutoff = pc.ScoreCutoff
	params.AdultAge = pc.AdultAge
	params.BiomarkerLimits = []preprocess.BiomarkerLimit{
		{Column: "CRP_mgL", Limit: pc.CRPLimit},
		{Column: "WBC_1000cells", Limit: pc.WBCLimit},
	}
	return params
}

// logSummary reports the analysis cohort: how many subjects carry the
// eligibility flag and the survey population they represent.
func logSummary(logger *slog.Logger, reg *registry.Registry, t *dataset.Table) {
	flag := t.Column(reg.FlagColumn)
	weight := t.Column(reg.WeightColumn)
	if flag == nil || weight == nil {
		return
	}

	eligible := 0
	population := 0.0
	for i, v := range flag.Values {
		if v == 1 {
			eligible++
			if !dataset.IsMissing(weight.Values[i]) {
				population += weight.Values[i]
			}
		}
	}

	logger.Info("analysis cohort summary",
		slog.Int("subjects", t.NumRows()),
		slog.Int("eligible", eligible),
		slog.Float64("weighted_population", population),
	)
}
