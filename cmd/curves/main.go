// Package main runs one smoothing pass.
// Executes: load bids → build curves → store → verify → reporting
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"spot-curve-lab/internal/config"
	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/loader"
	"spot-curve-lab/internal/logging"
	"spot-curve-lab/internal/observability"
	"spot-curve-lab/internal/orchestrator"
	"spot-curve-lab/internal/reporting"
	"spot-curve-lab/internal/smoothing"
	"spot-curve-lab/internal/spline"
	"spot-curve-lab/internal/storage"
	chstore "spot-curve-lab/internal/storage/clickhouse"
	"spot-curve-lab/internal/storage/memory"
	"spot-curve-lab/internal/storage/migrations"
	pgstore "spot-curve-lab/internal/storage/postgres"
	"spot-curve-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	demandPath := flag.String("demand", "", "Demand dataset (CSV or XLSX) for memory input")
	supplyPath := flag.String("supply", "", "Supply dataset (CSV or XLSX) for memory input")
	outputDir := flag.String("output-dir", "", "Output directory for generated files")
	workers := flag.Int("workers", -1, "Worker count (0 = GOMAXPROCS)")
	runID := flag.String("run-id", "", "Run id stamped on curves (default: random UUID)")
	skipExisting := flag.Bool("skip-existing", false, "Leave units that already have a stored curve alone")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *demandPath != "" {
		cfg.Input.DemandPath = *demandPath
	}
	if *supplyPath != "" {
		cfg.Input.SupplyPath = *supplyPath
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *workers >= 0 {
		cfg.Pass.Workers = *workers
	}
	if *skipExisting {
		cfg.Pass.SkipExisting = true
	}

	base, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(base, "curves")

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("received signal, cancelling pass")
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Addr != "" {
		go serveMetrics(logger, cfg.Metrics.Addr, metrics)
	}

	if err := run(ctx, cfg, *runID, base, metrics); err != nil {
		logger.Error().Err(err).Msg("pass failed")
		os.Exit(1)
	}
}

func serveMetrics(logger zerolog.Logger, addr string, metrics *observability.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info().Str("addr", addr).Msg("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

// stores holds the backends of one pass.
type stores struct {
	bids    storage.BidRecordStore
	curves  storage.CurveStore
	skipped storage.SkipStore
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, runID string, base zerolog.Logger, metrics *observability.Metrics) error {
	logger := logging.Component(base, "curves")

	// Phase 1: Open stores and load input
	st, err := openStores(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer st.close()

	basis, err := spline.New(cfg.BasisSpec())
	if err != nil {
		return fmt.Errorf("build basis: %w", err)
	}
	smoother, err := smoothing.New(basis, cfg.SmoothingOptions())
	if err != nil {
		return fmt.Errorf("build smoother: %w", err)
	}

	// Phase 2: Smoothing pass
	orch := orchestrator.New(orchestrator.Options{
		BidStore:     st.bids,
		CurveStore:   st.curves,
		SkipStore:    st.skipped,
		Smoother:     smoother,
		Sides:        cfg.Sides(),
		Workers:      cfg.Pass.Workers,
		RunID:        runID,
		SkipExisting: cfg.Pass.SkipExisting,
		Logger:       &base,
		Metrics:      metrics,
	})

	result, err := orch.Run(ctx)
	if err != nil && result == nil {
		return err
	}

	// Phase 3: Verification (skipped for an interrupted pass, nothing was stored)
	var verifyReport *verification.VerificationReport
	if cfg.Pass.Verify && !result.Interrupted {
		verifier := verification.NewRebuildVerifier(verification.RebuildVerifierOptions{
			BidStore:   st.bids,
			CurveStore: st.curves,
			Smoother:   smoother,
		})
		verifyReport, err = verifier.VerifyAll(ctx)
		if err != nil {
			return fmt.Errorf("verification: %w", err)
		}
		logger.Info().
			Int("matched", verifyReport.MatchedCurves).
			Int("divergent", verifyReport.DivergentCurves).
			Float64("max_round_trip", verifyReport.MaxRoundTrip.Max).
			Float64("max_round_trip_rms", verifyReport.MaxRoundTrip.RMS).
			Msg("verification completed")
	}

	// Phase 4: Reporting
	report := reporting.NewGenerator(st.curves, st.skipped).Build(reporting.Input{
		RunID:        result.RunID,
		Basis:        smoother.BasisSpec(),
		UnitsTotal:   result.UnitsTotal,
		Existing:     result.Existing,
		Interrupted:  result.Interrupted,
		Duration:     result.Duration,
		Curves:       result.Curves,
		Skipped:      result.Skipped,
		Verification: verifyReport,
	})
	if err := writeOutputs(cfg, report, result, basis, smoother); err != nil {
		return err
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("curves", len(result.Curves)).
		Int("skipped", len(result.Skipped)).
		Str("output_dir", cfg.Output.Dir).
		Msg("outputs written")

	if result.Interrupted {
		return fmt.Errorf("pass interrupted: %w", ctx.Err())
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*stores, error) {
	st := &stores{}

	switch cfg.Input.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Input.PostgresDSN, pgstore.PoolOptions{
			MaxConns:        cfg.PostgresPoolSize(),
			ApplicationName: "curves",
		})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			st.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.bids = pgstore.NewBidRecordStore(pool)
		st.skipped = pgstore.NewSkipStore(pool)
		logger.Info().Msg("using postgres input")
	default:
		bids := memory.NewBidRecordStore()
		datasets := map[domain.Side]string{
			domain.SideDemand: cfg.Input.DemandPath,
			domain.SideSupply: cfg.Input.SupplyPath,
		}
		for _, side := range cfg.Sides() {
			path := datasets[side]
			if path == "" {
				logger.Warn().Str("side", side.String()).Msg("no dataset for side")
				continue
			}
			// A structurally invalid dataset aborts before any unit is processed.
			records, err := loader.Load(path)
			if err != nil {
				return nil, fmt.Errorf("load %s dataset: %w", side, err)
			}
			if err := bids.InsertBulk(ctx, side, records); err != nil {
				return nil, fmt.Errorf("store %s records: %w", side, err)
			}
			metrics.BidRecordsLoaded.WithLabelValues(side.String()).Add(float64(len(records)))
			logger.Info().Str("side", side.String()).Str("path", path).Int("records", len(records)).Msg("dataset loaded")
		}
		st.bids = bids
		st.skipped = memory.NewSkipStore()
	}

	switch cfg.Output.Backend {
	case config.BackendClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Output.ClickhouseDSN)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.closers = append(st.closers, func() { conn.Close() })
		st.curves = chstore.NewCurveStore(conn)
		logger.Info().Msg("using clickhouse output")
	default:
		st.curves = memory.NewCurveStore()
	}

	return st, nil
}

func writeOutputs(cfg *config.Config, report *reporting.Report, result *orchestrator.RunResult, basis *spline.Basis, smoother *smoothing.Smoother) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	basisYAML, err := reporting.RenderBasisYAML(smoother.BasisSpec(), basis.Knots(), cfg.Basis.PenaltyDeriv, smoother.Lambdas())
	if err != nil {
		return fmt.Errorf("render basis: %w", err)
	}

	files := map[string]string{
		cfg.Output.ReportFile: reporting.RenderMarkdown(report),
		cfg.Output.BasisFile:  basisYAML,
	}
	// Curves of an interrupted pass were never stored; keep them apart from a stored export.
	curvesFile := cfg.Output.CurvesFile
	if result.Interrupted {
		curvesFile = reporting.PartialName(curvesFile)
	}
	files[curvesFile] = reporting.RenderCurvesCSV(result.Curves)

	for name, content := range files {
		path := filepath.Join(cfg.Output.Dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
