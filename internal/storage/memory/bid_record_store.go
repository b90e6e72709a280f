package memory

import (
	"context"
	"sync"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

type bidUnit struct {
	side domain.Side
	key  domain.UnitKey
}

// BidRecordStore is an in-memory implementation of storage.BidRecordStore.
type BidRecordStore struct {
	mu   sync.RWMutex
	data map[bidUnit][]*domain.BidRecord // keyed by (side, date, hour), load order
}

// NewBidRecordStore creates a new in-memory bid record store.
func NewBidRecordStore() *BidRecordStore {
	return &BidRecordStore{
		data: make(map[bidUnit][]*domain.BidRecord),
	}
}

// InsertBulk appends records. Fails entire batch on any invalid record.
func (s *BidRecordStore) InsertBulk(_ context.Context, side domain.Side, records []*domain.BidRecord) error {
	if len(records) == 0 {
		return nil
	}

	// First pass: validate
	for _, r := range records {
		if err := storage.ValidateBidRecord(side, r); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Second pass: insert copies normalized to the unit key
	for _, r := range records {
		recordCopy := *r
		k := recordCopy.Key()
		recordCopy.Date = k.Date
		u := bidUnit{side: side, key: k}
		s.data[u] = append(s.data[u], &recordCopy)
	}

	return nil
}

// GetKeys returns every unit present for the side, ordered by (date, hour) ASC.
func (s *BidRecordStore) GetKeys(_ context.Context, side domain.Side) ([]domain.UnitKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []domain.UnitKey
	for u := range s.data {
		if u.side == side {
			keys = append(keys, u.key)
		}
	}
	sortKeys(keys)
	return keys, nil
}

// GetByKey retrieves all records of one unit in load order.
func (s *BidRecordStore) GetByKey(_ context.Context, side domain.Side, key domain.UnitKey) ([]*domain.BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[bidUnit{side: side, key: domain.NewUnitKey(key.Date, key.Hour)}]
	result := make([]*domain.BidRecord, 0, len(stored))
	for _, r := range stored {
		recordCopy := *r
		result = append(result, &recordCopy)
	}
	return result, nil
}

var _ storage.BidRecordStore = (*BidRecordStore)(nil)
