// Package main re-evaluates stored curves at arbitrary normalized volumes.
//
// Output is CSV on stdout: side, date, hour, volume, price.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"spot-curve-lab/internal/config"
	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/logging"
	"spot-curve-lab/internal/lookup"
	"spot-curve-lab/internal/spline"
	chstore "spot-curve-lab/internal/storage/clickhouse"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	points := flag.String("points", "", "Comma-separated volume fractions, e.g. 0,0.25,0.5")
	gridSize := flag.Int("grid", 11, "Evenly spaced points over the basis range when -points is empty")
	side := flag.String("side", "", "Filter: demand or supply")
	year := flag.Int("year", 0, "Filter: calendar year")
	month := flag.Int("month", 0, "Filter: month 1..12")
	day := flag.Int("day", 0, "Filter: day of month 1..31")
	weekday := flag.Int("weekday", -1, "Filter: day of week 0..6 (0 = Sunday)")
	hour := flag.Int("hour", 0, "Filter: delivery hour 1..24")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *clickhouseDSN != "" {
		cfg.Output.ClickhouseDSN = *clickhouseDSN
	}

	base, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(base, "evaluate")

	if cfg.Output.ClickhouseDSN == "" {
		logger.Fatal().Msg("clickhouse DSN is required (-clickhouse-dsn or CURVES_CLICKHOUSE_DSN)")
	}

	filter, err := buildFilter(*side, *year, *month, *day, *weekday, *hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid filter")
	}

	xs, err := parsePoints(*points)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -points")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := chstore.NewConn(ctx, cfg.Output.ClickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect clickhouse")
	}
	defer conn.Close()

	curves, err := chstore.NewCurveStore(conn).Query(ctx, filter)
	if err != nil {
		logger.Fatal().Err(err).Msg("query curves")
	}
	index := lookup.BuildCurveIndex(curves)
	logger.Info().Int("curves", index.Len()).Ints("hours", index.Hours()).Msg("curves selected")

	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"side", "date", "hour", "volume", "price"})

	evaluator := lookup.NewEvaluator()
	for _, c := range index.Select(domain.CurveFilter{}) {
		at := xs
		if len(at) == 0 {
			at = spline.Grid(c.Basis.RangeMin, c.Basis.RangeMax, *gridSize)
		}
		prices, err := evaluator.Evaluate(c, at)
		if err != nil {
			logger.Fatal().Err(err).Str("unit", c.Key.String()).Msg("evaluate curve")
		}
		for i, x := range at {
			w.Write([]string{
				c.Side.String(),
				c.Key.Date.Format("2006-01-02"),
				strconv.Itoa(c.Key.Hour),
				strconv.FormatFloat(x, 'g', -1, 64),
				strconv.FormatFloat(prices[i], 'g', -1, 64),
			})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}
}

func buildFilter(side string, year, month, day, weekday, hour int) (domain.CurveFilter, error) {
	var f domain.CurveFilter
	if side != "" {
		s := domain.Side(strings.ToUpper(side))
		if !s.IsValid() {
			return f, fmt.Errorf("unknown side %q", side)
		}
		f.Side = &s
	}
	if year > 0 {
		f.Year = &year
	}
	if month != 0 {
		if month < 1 || month > 12 {
			return f, fmt.Errorf("month %d out of range", month)
		}
		f.Month = &month
	}
	if day != 0 {
		if day < 1 || day > 31 {
			return f, fmt.Errorf("day %d out of range", day)
		}
		f.Day = &day
	}
	if weekday >= 0 {
		if weekday > 6 {
			return f, fmt.Errorf("weekday %d out of range", weekday)
		}
		f.Weekday = &weekday
	}
	if hour != 0 {
		if !domain.IsValidHour(hour) {
			return f, fmt.Errorf("hour %d out of range", hour)
		}
		f.Hour = &hour
	}
	return f, nil
}

func parsePoints(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	xs := make([]float64, 0, len(parts))
	for _, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		xs = append(xs, x)
	}
	return xs, nil
}
