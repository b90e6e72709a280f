package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

const dateLayout = "2006-01-02"

// CurveStore implements storage.CurveStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type CurveStore struct {
	conn *Conn
}

// NewCurveStore creates a new CurveStore.
func NewCurveStore(conn *Conn) *CurveStore {
	return &CurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CurveStore = (*CurveStore)(nil)

const curveColumns = `
	side, unit_date, hour, vmax, volumes, prices, coefficients,
	lambda, gcv, dof, zone_clearing_price, monotonic,
	basis_order, basis_count, range_min, range_max, grid_size, run_id`

// Insert adds a single curve. Returns ErrDuplicateKey if (side, date, hour) exists.
func (s *CurveStore) Insert(ctx context.Context, c *domain.NormalizedCurve) error {
	return s.InsertBulk(ctx, []*domain.NormalizedCurve{c})
}

// InsertBulk adds curves in one batch. Fails entire batch on duplicate.
func (s *CurveStore) InsertBulk(ctx context.Context, curves []*domain.NormalizedCurve) error {
	if len(curves) == 0 {
		return nil
	}

	// Validate and check for intra-batch duplicates
	type key struct {
		side domain.Side
		date string
		hour int
	}
	seen := make(map[key]struct{}, len(curves))
	for _, c := range curves {
		if err := storage.ValidateCurve(c); err != nil {
			return err
		}
		k := key{c.Side, c.Key.Date.Format(dateLayout), c.Key.Hour}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, c := range curves {
		exists, err := s.exists(ctx, c.Side, c.Key)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO normalized_curves ("+curveColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range curves {
		k := domain.NewUnitKey(c.Key.Date, c.Key.Hour)
		err = batch.Append(
			string(c.Side), k.Date, uint8(k.Hour), c.Vmax, c.Volumes, c.Prices, c.Coefficients,
			c.Lambda, c.GCV, c.DegreesOfFreedom, c.ZoneClearingPrice, c.Monotonic,
			uint8(c.Basis.Order), uint16(c.Basis.NBasis), c.Basis.RangeMin, c.Basis.RangeMax,
			uint16(c.Basis.GridSize), c.RunID,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByKey retrieves one curve. Returns ErrNotFound if not exists.
func (s *CurveStore) GetByKey(ctx context.Context, side domain.Side, key domain.UnitKey) (*domain.NormalizedCurve, error) {
	query := `SELECT` + curveColumns + `
		FROM normalized_curves
		WHERE side = ? AND unit_date = toDate(?) AND hour = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, string(side), key.Date.Format(dateLayout), uint8(key.Hour))
	if err != nil {
		return nil, fmt.Errorf("query curve by key: %w", err)
	}
	defer rows.Close()

	curves, err := scanCurves(rows)
	if err != nil {
		return nil, err
	}
	if len(curves) == 0 {
		return nil, storage.ErrNotFound
	}
	return curves[0], nil
}

// Query returns curves matching every set field of the filter, ordered by (date, hour, side).
func (s *CurveStore) Query(ctx context.Context, filter domain.CurveFilter) ([]*domain.NormalizedCurve, error) {
	where, args := filterClause(filter)
	query := `SELECT` + curveColumns + `
		FROM normalized_curves` + where + `
		ORDER BY unit_date ASC, hour ASC, side ASC
	`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query curves: %w", err)
	}
	defer rows.Close()

	return scanCurves(rows)
}

// GetAll returns every stored curve ordered by (date, hour, side).
func (s *CurveStore) GetAll(ctx context.Context) ([]*domain.NormalizedCurve, error) {
	return s.Query(ctx, domain.CurveFilter{})
}

// filterClause builds the WHERE clause for a calendar filter.
// Weekday follows time.Weekday (0 = Sunday); toDayOfWeek returns 1..7 from Monday.
func filterClause(f domain.CurveFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Side != nil {
		conds = append(conds, "side = ?")
		args = append(args, string(*f.Side))
	}
	if f.Year != nil {
		conds = append(conds, "toYear(unit_date) = ?")
		args = append(args, *f.Year)
	}
	if f.Month != nil {
		conds = append(conds, "toMonth(unit_date) = ?")
		args = append(args, *f.Month)
	}
	if f.Day != nil {
		conds = append(conds, "toDayOfMonth(unit_date) = ?")
		args = append(args, *f.Day)
	}
	if f.Weekday != nil {
		conds = append(conds, "toDayOfWeek(unit_date) % 7 = ?")
		args = append(args, *f.Weekday)
	}
	if f.Hour != nil {
		conds = append(conds, "hour = ?")
		args = append(args, *f.Hour)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

// exists checks if a curve with the given key exists.
func (s *CurveStore) exists(ctx context.Context, side domain.Side, key domain.UnitKey) (bool, error) {
	query := `
		SELECT count(*) FROM normalized_curves
		WHERE side = ? AND unit_date = toDate(?) AND hour = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, string(side), key.Date.Format(dateLayout), uint8(key.Hour)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanCurves scans multiple rows.
func scanCurves(rows chRows) ([]*domain.NormalizedCurve, error) {
	var curves []*domain.NormalizedCurve

	for rows.Next() {
		var c domain.NormalizedCurve
		var side string
		var hour, order uint8
		var count, gridSize uint16

		err := rows.Scan(
			&side, &c.Key.Date, &hour, &c.Vmax, &c.Volumes, &c.Prices, &c.Coefficients,
			&c.Lambda, &c.GCV, &c.DegreesOfFreedom, &c.ZoneClearingPrice, &c.Monotonic,
			&order, &count, &c.Basis.RangeMin, &c.Basis.RangeMax, &gridSize, &c.RunID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan curve row: %w", err)
		}

		c.Side = domain.Side(side)
		c.Key = domain.NewUnitKey(c.Key.Date, int(hour))
		c.Basis.Order = int(order)
		c.Basis.NBasis = int(count)
		c.Basis.GridSize = int(gridSize)
		curves = append(curves, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curve rows: %w", err)
	}

	return curves, nil
}
