package memory

import (
	"context"
	"sort"
	"sync"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

type skipKey struct {
	runID string
	unit  bidUnit
}

// SkipStore is an in-memory implementation of storage.SkipStore.
type SkipStore struct {
	mu   sync.RWMutex
	data map[skipKey]*domain.SkippedUnit
}

// NewSkipStore creates a new in-memory skipped unit store.
func NewSkipStore() *SkipStore {
	return &SkipStore{
		data: make(map[skipKey]*domain.SkippedUnit),
	}
}

// InsertBulk appends skipped units. Fails entire batch on duplicate.
func (s *SkipStore) InsertBulk(_ context.Context, units []*domain.SkippedUnit) error {
	if len(units) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[skipKey]struct{}, len(units))
	for _, u := range units {
		if err := storage.ValidateSkippedUnit(u); err != nil {
			return err
		}
		k := skipKeyOf(u)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, u := range units {
		unitCopy := *u
		unitCopy.Key = domain.NewUnitKey(u.Key.Date, u.Key.Hour)
		s.data[skipKeyOf(u)] = &unitCopy
	}
	return nil
}

func skipKeyOf(u *domain.SkippedUnit) skipKey {
	return skipKey{runID: u.RunID, unit: bidUnit{side: u.Side, key: domain.NewUnitKey(u.Key.Date, u.Key.Hour)}}
}

// GetByRun retrieves the skipped units of a run, ordered by (date, hour) ASC.
func (s *SkipStore) GetByRun(_ context.Context, runID string) ([]*domain.SkippedUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SkippedUnit
	for k, u := range s.data {
		if k.runID == runID {
			unitCopy := *u
			result = append(result, &unitCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Key != result[j].Key {
			return result[i].Key.Before(result[j].Key)
		}
		return result[i].Side < result[j].Side
	})
	return result, nil
}

var _ storage.SkipStore = (*SkipStore)(nil)
