// Package orchestrator runs the batch smoothing pass.
// It coordinates: bid records → ladders → curves (worker pool) → stores
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/logging"
	"spot-curve-lab/internal/normalization"
	"spot-curve-lab/internal/observability"
	"spot-curve-lab/internal/storage"
)

// Orchestrator coordinates one smoothing pass over every unit of the input store.
type Orchestrator struct {
	// Stores
	bidStore   storage.BidRecordStore
	curveStore storage.CurveStore
	skipStore  storage.SkipStore

	smoother normalization.Smoother

	// Options
	sides        []domain.Side
	workers      int
	runID        string
	skipExisting bool
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	BidStore   storage.BidRecordStore
	CurveStore storage.CurveStore
	Smoother   normalization.Smoother

	// Optional: skipped units are only logged when nil.
	SkipStore storage.SkipStore

	Sides        []domain.Side // default: demand and supply
	Workers      int           // default: GOMAXPROCS
	RunID        string        // default: random UUID
	SkipExisting bool          // leave units that already have a stored curve alone
	Logger       *zerolog.Logger
	Metrics      *observability.Metrics
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	sides := opts.Sides
	if len(sides) == 0 {
		sides = []domain.Side{domain.SideDemand, domain.SideSupply}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Orchestrator{
		bidStore:     opts.BidStore,
		curveStore:   opts.CurveStore,
		skipStore:    opts.SkipStore,
		smoother:     opts.Smoother,
		sides:        sides,
		workers:      workers,
		runID:        runID,
		skipExisting: opts.SkipExisting,
		logger:       logging.Component(logger, "orchestrator").With().Str("run_id", runID).Logger(),
		metrics:      opts.Metrics,
	}
}

// RunID returns the id stamped on curves and skipped units of this pass.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// RunResult contains results from orchestrator execution.
// Curves and Skipped are ordered by (side, date, hour).
type RunResult struct {
	RunID       string
	UnitsTotal  int
	Existing    int // units left alone because SkipExisting found a curve
	Curves      []*domain.NormalizedCurve
	Skipped     []*domain.SkippedUnit
	Interrupted bool // context cancelled; Curves/Skipped list completed units only, nothing stored
	Duration    time.Duration
}

// unit is one (side, date, hour) work item.
type unit struct {
	side domain.Side
	key  domain.UnitKey
}

// slot is the exclusive result cell of one unit.
type slot struct {
	done  bool
	curve *domain.NormalizedCurve
	skip  *domain.SkippedUnit
}

// Run executes the pass.
// Phases:
//  1. List units per side
//  2. Build curves on the worker pool; each unit writes only its own slot
//  3. Join, then reduce: one InsertBulk for curves, one for skipped units
//
// A unit-level skip never fails the pass. Any other error (store failure)
// aborts it with no curve stored. Cancellation returns the partial result
// with Interrupted set, together with the context error.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{RunID: o.runID}

	// Phase 1: List units
	units, err := o.listUnits(ctx, result)
	if err != nil {
		o.recordRun("error", start, 0)
		return nil, fmt.Errorf("phase 1 (list units) failed: %w", err)
	}
	result.UnitsTotal = len(units)
	o.logger.Info().Int("units", len(units)).Int("workers", o.workers).Msg("units listed")

	// Phase 2: Build curves
	slots := make([]slot, len(units))
	runErr := o.process(ctx, units, slots)
	o.collect(slots, result)

	if runErr != nil {
		if ctx.Err() != nil {
			result.Interrupted = true
			result.Duration = time.Since(start)
			o.logger.Warn().
				Int("completed", len(result.Curves)+len(result.Skipped)).
				Int("units", len(units)).
				Msg("pass interrupted, nothing stored")
			o.recordRun("interrupted", start, 0)
			return result, ctx.Err()
		}
		o.recordRun("error", start, 0)
		return nil, fmt.Errorf("phase 2 (build curves) failed: %w", runErr)
	}

	// Phase 3: Reduce
	if err := o.curveStore.InsertBulk(ctx, result.Curves); err != nil {
		o.recordRun("error", start, 0)
		return nil, fmt.Errorf("phase 3 (store curves) failed: %w", err)
	}
	if o.skipStore != nil {
		if err := o.skipStore.InsertBulk(ctx, result.Skipped); err != nil {
			o.recordRun("error", start, len(result.Curves))
			return nil, fmt.Errorf("phase 3 (store skipped units) failed: %w", err)
		}
	}

	result.Duration = time.Since(start)
	o.recordRun("success", start, len(result.Curves))
	o.logger.Info().
		Int("curves", len(result.Curves)).
		Int("skipped", len(result.Skipped)).
		Int("existing", result.Existing).
		Dur("duration", result.Duration).
		Msg("pass completed")

	return result, nil
}

// listUnits enumerates the units of every side, ordered by side then key.
func (o *Orchestrator) listUnits(ctx context.Context, result *RunResult) ([]unit, error) {
	var units []unit
	for _, side := range o.sides {
		keys, err := o.bidStore.GetKeys(ctx, side)
		if err != nil {
			return nil, fmt.Errorf("list %s units: %w", side, err)
		}
		for _, k := range keys {
			if o.skipExisting {
				exists, err := o.hasCurve(ctx, side, k)
				if err != nil {
					return nil, err
				}
				if exists {
					result.Existing++
					continue
				}
			}
			units = append(units, unit{side: side, key: k})
		}
	}
	return units, nil
}

func (o *Orchestrator) hasCurve(ctx context.Context, side domain.Side, key domain.UnitKey) (bool, error) {
	_, err := o.curveStore.GetByKey(ctx, side, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check stored curve %s %s: %w", side, key, err)
	}
}

// process fans units out to the worker pool. Workers share only the read-only
// smoother and the stores; results land in slots[i].
func (o *Orchestrator) process(ctx context.Context, units []unit, slots []slot) error {
	runner := normalization.NewRunner(o.bidStore, o.smoother).WithRunID(o.runID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i := range units {
		u := units[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			unitStart := time.Now()
			curve, err := runner.NormalizeUnit(gctx, u.side, u.key)
			if err != nil {
				ue, ok := domain.AsUnitError(err)
				if !ok {
					return err
				}
				skip := ue.AsSkipped(o.runID)
				slots[i] = slot{done: true, skip: skip}
				o.logger.Warn().
					Str("side", u.side.String()).
					Str("unit", u.key.String()).
					Str("reason", skip.Reason.String()).
					Msg("unit skipped")
				if o.metrics != nil {
					o.metrics.RecordSkip(u.side.String(), skip.Reason.String())
				}
				return nil
			}

			slots[i] = slot{done: true, curve: curve}
			if !curve.Monotonic {
				o.logger.Warn().
					Str("side", u.side.String()).
					Str("unit", u.key.String()).
					Msg("ladder prices not monotonic")
			}
			if o.metrics != nil {
				o.metrics.RecordCurve(u.side.String(), curve.Lambda, time.Since(unitStart))
			}
			return nil
		})
	}

	return g.Wait()
}

// collect reduces completed slots into the result, preserving unit order.
func (o *Orchestrator) collect(slots []slot, result *RunResult) {
	for _, s := range slots {
		if !s.done {
			continue
		}
		if s.curve != nil {
			result.Curves = append(result.Curves, s.curve)
		} else {
			result.Skipped = append(result.Skipped, s.skip)
		}
	}
}

func (o *Orchestrator) recordRun(status string, start time.Time, stored int) {
	if o.metrics != nil {
		o.metrics.RecordPipelineRun(status, time.Since(start), stored)
	}
}
