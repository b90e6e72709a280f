package normalization

import (
	"context"
	"fmt"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

// Runner implements NormalizationEngine on top of a bid record store.
type Runner struct {
	bidStore storage.BidRecordStore
	smoother Smoother
	runID    string
}

// NewRunner creates a new normalization runner.
func NewRunner(bidStore storage.BidRecordStore, smoother Smoother) *Runner {
	return &Runner{
		bidStore: bidStore,
		smoother: smoother,
	}
}

// WithRunID stamps produced curves with the batch run id.
func (r *Runner) WithRunID(runID string) *Runner {
	r.runID = runID
	return r
}

// Keys lists the units available for the side.
func (r *Runner) Keys(ctx context.Context, side domain.Side) ([]domain.UnitKey, error) {
	keys, err := r.bidStore.GetKeys(ctx, side)
	if err != nil {
		return nil, fmt.Errorf("list %s units: %w", side, err)
	}
	return keys, nil
}

// Ladder loads and filters one unit's records and builds its ladder.
func (r *Runner) Ladder(ctx context.Context, side domain.Side, key domain.UnitKey) (*domain.BidLadder, error) {
	records, err := r.bidStore.GetByKey(ctx, side, key)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", side, key, err)
	}

	// The store returns a single unit, so at most one ladder comes back.
	ladders := ExtractLadders(side, records)
	if len(ladders) == 0 {
		return &domain.BidLadder{Key: key, Side: side}, nil
	}
	return ladders[0], nil
}

// NormalizeUnit processes a single unit:
//  1. Load records from the bid store
//  2. Filter closing bids and supply sentinels
//  3. Order and accumulate into a ladder
//  4. BuildCurve
func (r *Runner) NormalizeUnit(ctx context.Context, side domain.Side, key domain.UnitKey) (*domain.NormalizedCurve, error) {
	ladder, err := r.Ladder(ctx, side, key)
	if err != nil {
		return nil, err
	}

	curve, err := BuildCurve(ladder, r.smoother)
	if err != nil {
		return nil, err
	}
	curve.RunID = r.runID
	return curve, nil
}
