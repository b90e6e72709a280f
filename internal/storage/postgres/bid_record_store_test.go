package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

func testDay(d int) time.Time {
	return time.Date(2016, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestBidRecordStore_InsertBulkAndGetByKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBidRecordStore(pool)
	ctx := context.Background()

	records := []*domain.BidRecord{
		{Date: testDay(1), Hour: 12, Price: 80, Quantity: 50, ZoneClearingPrice: 61.5},
		{Date: testDay(1), Hour: 12, Price: 50, Quantity: 100, ZoneClearingPrice: 61.5},
		{Date: testDay(1), Hour: 13, Price: 3000, Quantity: 5, ZoneClearingPrice: 58},
	}

	err := store.InsertBulk(ctx, domain.SideSupply, records)
	require.NoError(t, err)

	got, err := store.GetByKey(ctx, domain.SideSupply, domain.NewUnitKey(testDay(1), 12))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Load order preserved
	assert.Equal(t, 80.0, got[0].Price)
	assert.Equal(t, 50.0, got[1].Price)
	assert.Equal(t, 100.0, got[1].Quantity)
	assert.Equal(t, 61.5, got[1].ZoneClearingPrice)
	assert.True(t, got[0].Date.Equal(testDay(1)))
	assert.Equal(t, 12, got[0].Hour)

	// Other side is empty
	got, err = store.GetByKey(ctx, domain.SideDemand, domain.NewUnitKey(testDay(1), 12))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBidRecordStore_GetKeys(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBidRecordStore(pool)
	ctx := context.Background()

	records := []*domain.BidRecord{
		{Date: testDay(2), Hour: 1, Price: 10, Quantity: 1},
		{Date: testDay(1), Hour: 24, Price: 10, Quantity: 1},
		{Date: testDay(1), Hour: 24, Price: 12, Quantity: 1},
		{Date: testDay(1), Hour: 3, Price: 10, Quantity: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, domain.SideDemand, records))

	keys, err := store.GetKeys(ctx, domain.SideDemand)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	assert.Equal(t, domain.NewUnitKey(testDay(1), 3).String(), keys[0].String())
	assert.Equal(t, domain.NewUnitKey(testDay(1), 24).String(), keys[1].String())
	assert.Equal(t, domain.NewUnitKey(testDay(2), 1).String(), keys[2].String())
}

func TestBidRecordStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBidRecordStore(pool)
	ctx := context.Background()

	records := []*domain.BidRecord{
		{Date: testDay(1), Hour: 1, Price: 10, Quantity: 1},
		{Date: testDay(1), Hour: 25, Price: 10, Quantity: 1},
	}
	err := store.InsertBulk(ctx, domain.SideSupply, records)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput), "expected ErrInvalidInput, got %v", err)

	// Nothing written
	keys, err := store.GetKeys(ctx, domain.SideSupply)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
