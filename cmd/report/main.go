// Package main regenerates the report and exports of a stored run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"spot-curve-lab/internal/config"
	"spot-curve-lab/internal/logging"
	"spot-curve-lab/internal/reporting"
	"spot-curve-lab/internal/spline"
	chstore "spot-curve-lab/internal/storage/clickhouse"
	pgstore "spot-curve-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	runID := flag.String("run-id", "", "Run id to report on")
	outputDir := flag.String("output-dir", "", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for skipped units (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *postgresDSN != "" {
		cfg.Input.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Output.ClickhouseDSN = *clickhouseDSN
	}

	base, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(base, "report")

	// Validate flags
	if *runID == "" {
		logger.Fatal().Msg("-run-id is required")
	}
	if cfg.Output.ClickhouseDSN == "" {
		logger.Fatal().Msg("clickhouse DSN is required (-clickhouse-dsn or CURVES_CLICKHOUSE_DSN)")
	}

	ctx := context.Background()

	chConn, err := chstore.NewConn(ctx, cfg.Output.ClickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect clickhouse")
	}
	defer chConn.Close()
	curveStore := chstore.NewCurveStore(chConn)

	// Skipped units live next to the bid records; without postgres the report lists curves only.
	generator := reporting.NewGenerator(curveStore, nil)
	if cfg.Input.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Input.PostgresDSN, pgstore.PoolOptions{
			MaxConns:        2,
			ApplicationName: "report",
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()
		generator = reporting.NewGenerator(curveStore, pgstore.NewSkipStore(pool))
	}

	report, err := generator.Generate(ctx, *runID, cfg.BasisSpec())
	if err != nil {
		logger.Fatal().Err(err).Msg("generate report")
	}

	basis, err := spline.New(cfg.BasisSpec())
	if err != nil {
		logger.Fatal().Err(err).Msg("build basis")
	}
	basisYAML, err := reporting.RenderBasisYAML(cfg.BasisSpec(), basis.Knots(), cfg.Basis.PenaltyDeriv, cfg.SmoothingOptions().Lambdas)
	if err != nil {
		logger.Fatal().Err(err).Msg("render basis")
	}

	curves, err := generator.RunCurves(ctx, *runID)
	if err != nil {
		logger.Fatal().Err(err).Msg("load curves")
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output dir")
	}
	files := map[string]string{
		cfg.Output.ReportFile: reporting.RenderMarkdown(report),
		cfg.Output.CurvesFile: reporting.RenderCurvesCSV(curves),
		cfg.Output.BasisFile:  basisYAML,
	}
	for name, content := range files {
		path := filepath.Join(cfg.Output.Dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("write output")
		}
		logger.Info().Str("path", path).Msg("written")
	}

	logger.Info().
		Str("run_id", *runID).
		Int("curves", report.Summary.CurvesStored).
		Int("skipped", report.Summary.UnitsSkipped).
		Msg("report generated")
}
