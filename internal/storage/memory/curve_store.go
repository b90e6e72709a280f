package memory

import (
	"context"
	"sort"
	"sync"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

// CurveStore is an in-memory implementation of storage.CurveStore.
type CurveStore struct {
	mu   sync.RWMutex
	data map[bidUnit]*domain.NormalizedCurve // keyed by (side, date, hour)
}

// NewCurveStore creates a new in-memory curve store.
func NewCurveStore() *CurveStore {
	return &CurveStore{
		data: make(map[bidUnit]*domain.NormalizedCurve),
	}
}

// Insert adds a new curve. Returns ErrDuplicateKey if (side, date, hour) exists.
func (s *CurveStore) Insert(ctx context.Context, c *domain.NormalizedCurve) error {
	return s.InsertBulk(ctx, []*domain.NormalizedCurve{c})
}

// InsertBulk adds multiple curves. Fails entire batch on duplicate.
func (s *CurveStore) InsertBulk(_ context.Context, curves []*domain.NormalizedCurve) error {
	if len(curves) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[bidUnit]struct{}, len(curves))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, c := range curves {
		if err := storage.ValidateCurve(c); err != nil {
			return err
		}
		key := curveKey(c)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, c := range curves {
		curveCopy := c.Clone()
		curveCopy.Key = domain.NewUnitKey(c.Key.Date, c.Key.Hour)
		s.data[curveKey(c)] = curveCopy
	}

	return nil
}

// GetByKey retrieves a curve. Returns ErrNotFound if not exists.
func (s *CurveStore) GetByKey(_ context.Context, side domain.Side, key domain.UnitKey) (*domain.NormalizedCurve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[bidUnit{side: side, key: domain.NewUnitKey(key.Date, key.Hour)}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c.Clone(), nil
}

// Query retrieves curves matching the filter, ordered by (date, hour, side) ASC.
func (s *CurveStore) Query(_ context.Context, filter domain.CurveFilter) ([]*domain.NormalizedCurve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NormalizedCurve
	for _, c := range s.data {
		if filter.Matches(c) {
			result = append(result, c.Clone())
		}
	}
	sortCurves(result)
	return result, nil
}

// GetAll retrieves all curves, ordered by (date, hour, side) ASC.
func (s *CurveStore) GetAll(ctx context.Context) ([]*domain.NormalizedCurve, error) {
	return s.Query(ctx, domain.CurveFilter{})
}

// Len returns the number of stored curves.
func (s *CurveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func curveKey(c *domain.NormalizedCurve) bidUnit {
	return bidUnit{side: c.Side, key: domain.NewUnitKey(c.Key.Date, c.Key.Hour)}
}

func sortCurves(curves []*domain.NormalizedCurve) {
	sort.Slice(curves, func(i, j int) bool {
		a, b := curves[i], curves[j]
		if a.Key != b.Key {
			return a.Key.Before(b.Key)
		}
		return a.Side < b.Side
	})
}

func sortKeys(keys []domain.UnitKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})
}

var _ storage.CurveStore = (*CurveStore)(nil)
