package storage

import (
	"context"

	"spot-curve-lab/internal/domain"
)

// BidRecordStore provides access to bid_records storage, the input of the smoothing pass.
type BidRecordStore interface {
	// InsertBulk appends records for one side atomically. Bids have no natural key,
	// so duplicates are allowed; invalid records fail the entire batch with ErrInvalidInput.
	InsertBulk(ctx context.Context, side domain.Side, records []*domain.BidRecord) error

	// GetKeys returns every (date, hour) present for the side, ordered by (date, hour) ASC.
	GetKeys(ctx context.Context, side domain.Side) ([]domain.UnitKey, error)

	// GetByKey retrieves all records of one unit in load order.
	GetByKey(ctx context.Context, side domain.Side, key domain.UnitKey) ([]*domain.BidRecord, error)
}

// CurveStore provides access to normalized_curves storage (the curve coefficient store).
type CurveStore interface {
	// Insert adds a new curve. Returns ErrDuplicateKey if (side, date, hour) exists.
	Insert(ctx context.Context, c *domain.NormalizedCurve) error

	// InsertBulk adds multiple curves atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, curves []*domain.NormalizedCurve) error

	// GetByKey retrieves a curve. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, side domain.Side, key domain.UnitKey) (*domain.NormalizedCurve, error)

	// Query retrieves curves matching the calendar filter, ordered by (date, hour, side) ASC.
	Query(ctx context.Context, filter domain.CurveFilter) ([]*domain.NormalizedCurve, error)

	// GetAll retrieves all curves, ordered by (date, hour, side) ASC.
	GetAll(ctx context.Context) ([]*domain.NormalizedCurve, error)
}

// SkipStore provides access to skipped_units storage.
type SkipStore interface {
	// InsertBulk appends skipped units atomically. Fails entire batch on duplicate (run_id, side, date, hour).
	InsertBulk(ctx context.Context, units []*domain.SkippedUnit) error

	// GetByRun retrieves the skipped units of a run, ordered by (date, hour) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.SkippedUnit, error)
}
