package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

// BidRecordStore implements storage.BidRecordStore using PostgreSQL.
type BidRecordStore struct {
	pool *Pool
}

// NewBidRecordStore creates a new BidRecordStore.
func NewBidRecordStore(pool *Pool) *BidRecordStore {
	return &BidRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BidRecordStore = (*BidRecordStore)(nil)

var bidRecordColumns = []string{"side", "unit_date", "hour", "price", "quantity", "zone_clearing_price"}

// InsertBulk copies records into bid_records in one transaction.
// The whole batch is validated before anything is written.
func (s *BidRecordStore) InsertBulk(ctx context.Context, side domain.Side, records []*domain.BidRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := storage.ValidateBidRecord(side, r); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		k := r.Key()
		return []any{string(side), k.Date, k.Hour, r.Price, r.Quantity, r.ZoneClearingPrice}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"bid_records"}, bidRecordColumns, src); err != nil {
		return fmt.Errorf("copy bid records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetKeys returns the distinct units of a side ordered by (date, hour).
func (s *BidRecordStore) GetKeys(ctx context.Context, side domain.Side) ([]domain.UnitKey, error) {
	query := `
		SELECT DISTINCT unit_date, hour
		FROM bid_records
		WHERE side = $1
		ORDER BY unit_date ASC, hour ASC
	`

	rows, err := s.pool.Query(ctx, query, string(side))
	if err != nil {
		return nil, fmt.Errorf("get bid keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.UnitKey
	for rows.Next() {
		var k domain.UnitKey
		if err := rows.Scan(&k.Date, &k.Hour); err != nil {
			return nil, fmt.Errorf("scan bid key: %w", err)
		}
		keys = append(keys, domain.NewUnitKey(k.Date, k.Hour))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid keys: %w", err)
	}
	return keys, nil
}

// GetByKey returns one unit's records in load order.
func (s *BidRecordStore) GetByKey(ctx context.Context, side domain.Side, key domain.UnitKey) ([]*domain.BidRecord, error) {
	query := `
		SELECT unit_date, hour, price, quantity, zone_clearing_price
		FROM bid_records
		WHERE side = $1 AND unit_date = $2 AND hour = $3
		ORDER BY id ASC
	`

	k := domain.NewUnitKey(key.Date, key.Hour)
	rows, err := s.pool.Query(ctx, query, string(side), k.Date, k.Hour)
	if err != nil {
		return nil, fmt.Errorf("get bid records by key: %w", err)
	}
	defer rows.Close()

	return scanBidRecords(rows)
}

// scanBidRecords scans multiple rows into a slice of BidRecord.
func scanBidRecords(rows pgx.Rows) ([]*domain.BidRecord, error) {
	var records []*domain.BidRecord

	for rows.Next() {
		var r domain.BidRecord
		if err := rows.Scan(&r.Date, &r.Hour, &r.Price, &r.Quantity, &r.ZoneClearingPrice); err != nil {
			return nil, fmt.Errorf("scan bid record: %w", err)
		}
		r.Date = domain.NewUnitKey(r.Date, r.Hour).Date
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid records: %w", err)
	}
	return records, nil
}
