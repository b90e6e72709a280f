package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

// SkipStore implements storage.SkipStore using PostgreSQL.
type SkipStore struct {
	pool *Pool
}

// NewSkipStore creates a new SkipStore.
func NewSkipStore(pool *Pool) *SkipStore {
	return &SkipStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SkipStore = (*SkipStore)(nil)

// uniqueViolation is the SQLSTATE raised by the (run_id, side, unit_date, hour) key.
const uniqueViolation = "23505"

// isSkipConflict reports whether err means the unit was already recorded for the run.
func isSkipConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// InsertBulk adds skipped units atomically. Fails entire batch on any duplicate.
func (s *SkipStore) InsertBulk(ctx context.Context, units []*domain.SkippedUnit) error {
	if len(units) == 0 {
		return nil
	}
	for _, u := range units {
		if err := storage.ValidateSkippedUnit(u); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO skipped_units (run_id, side, unit_date, hour, reason, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, u := range units {
		k := domain.NewUnitKey(u.Key.Date, u.Key.Hour)
		_, err := tx.Exec(ctx, query, u.RunID, string(u.Side), k.Date, k.Hour, string(u.Reason), u.Detail)
		if err != nil {
			if isSkipConflict(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert skipped unit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun returns the units skipped by a run, ordered by (date, hour, side).
func (s *SkipStore) GetByRun(ctx context.Context, runID string) ([]*domain.SkippedUnit, error) {
	query := `
		SELECT run_id, side, unit_date, hour, reason, detail
		FROM skipped_units
		WHERE run_id = $1
		ORDER BY unit_date ASC, hour ASC, side ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get skipped units by run: %w", err)
	}
	defer rows.Close()

	return scanSkippedUnits(rows)
}

// scanSkippedUnits scans multiple rows into a slice of SkippedUnit.
func scanSkippedUnits(rows pgx.Rows) ([]*domain.SkippedUnit, error) {
	var units []*domain.SkippedUnit

	for rows.Next() {
		var u domain.SkippedUnit
		var side, reason string
		if err := rows.Scan(&u.RunID, &side, &u.Key.Date, &u.Key.Hour, &reason, &u.Detail); err != nil {
			return nil, fmt.Errorf("scan skipped unit: %w", err)
		}
		u.Side = domain.Side(side)
		u.Reason = domain.SkipReason(reason)
		u.Key = domain.NewUnitKey(u.Key.Date, u.Key.Hour)
		units = append(units, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skipped units: %w", err)
	}
	return units, nil
}
