// Package main loads a bid dataset (CSV or XLSX) into PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"spot-curve-lab/internal/config"
	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/loader"
	"spot-curve-lab/internal/logging"
	"spot-curve-lab/internal/storage/migrations"
	pgstore "spot-curve-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	sideFlag := flag.String("side", "", "Market side of the dataset: demand or supply")
	file := flag.String("file", "", "Dataset path (.csv or .xlsx)")
	sheet := flag.String("sheet", "", "XLSX sheet name (default: first sheet)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Input.PostgresDSN = *postgresDSN
	}

	base, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(base, "ingest")

	side := domain.Side(strings.ToUpper(*sideFlag))
	if !side.IsValid() {
		logger.Fatal().Str("side", *sideFlag).Msg("-side must be demand or supply")
	}
	if *file == "" {
		logger.Fatal().Msg("-file is required")
	}
	if cfg.Input.PostgresDSN == "" {
		logger.Fatal().Msg("postgres DSN is required (-postgres-dsn or CURVES_POSTGRES_DSN)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("received signal, aborting ingest")
		cancel()
	}()

	if err := ingest(ctx, logger, cfg.Input.PostgresDSN, side, *file, *sheet); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("ingest cancelled, no records stored")
			os.Exit(1)
		}
		logger.Fatal().Err(err).Msg("ingest failed")
	}
}

func ingest(ctx context.Context, logger zerolog.Logger, dsn string, side domain.Side, path, sheet string) error {
	start := time.Now()

	// Parse the whole dataset before touching the database: a missing
	// column or malformed row leaves the store unchanged.
	var (
		records []*domain.BidRecord
		err     error
	)
	if sheet != "" {
		records, err = loader.LoadXLSX(path, sheet)
	} else {
		records, err = loader.Load(path)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	logger.Info().Str("path", path).Int("records", len(records)).Msg("dataset parsed")

	pool, err := pgstore.NewPool(ctx, dsn, pgstore.PoolOptions{
		MaxConns:        2,
		ApplicationName: "ingest",
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := pgstore.NewBidRecordStore(pool)
	if err := store.InsertBulk(ctx, side, records); err != nil {
		return fmt.Errorf("insert records: %w", err)
	}

	keys, err := store.GetKeys(ctx, side)
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}

	logger.Info().
		Str("side", side.String()).
		Int("records", len(records)).
		Int("units_in_store", len(keys)).
		Dur("duration", time.Since(start)).
		Msg("ingest completed")
	return nil
}
