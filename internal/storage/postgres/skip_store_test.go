package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

func TestSkipStore_InsertBulkAndGetByRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSkipStore(pool)
	ctx := context.Background()

	units := []*domain.SkippedUnit{
		{Key: domain.NewUnitKey(testDay(2), 4), Side: domain.SideSupply, Reason: domain.SkipEmptyLadder, Detail: "empty bid ladder", RunID: "run-1"},
		{Key: domain.NewUnitKey(testDay(1), 9), Side: domain.SideDemand, Reason: domain.SkipDegenerateVolume, RunID: "run-1"},
		{Key: domain.NewUnitKey(testDay(1), 9), Side: domain.SideDemand, Reason: domain.SkipDegenerateVolume, RunID: "run-2"},
	}
	require.NoError(t, store.InsertBulk(ctx, units))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 9, got[0].Key.Hour)
	assert.Equal(t, domain.SideDemand, got[0].Side)
	assert.Equal(t, domain.SkipDegenerateVolume, got[0].Reason)
	assert.Equal(t, domain.SkipEmptyLadder, got[1].Reason)
	assert.Equal(t, "empty bid ladder", got[1].Detail)
	assert.True(t, got[1].Key.Date.Equal(testDay(2)))
}

func TestSkipStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSkipStore(pool)
	ctx := context.Background()

	u := &domain.SkippedUnit{Key: domain.NewUnitKey(testDay(1), 1), Side: domain.SideSupply, Reason: domain.SkipSmoothingConvergence, RunID: "run-1"}
	require.NoError(t, store.InsertBulk(ctx, []*domain.SkippedUnit{u}))

	err := store.InsertBulk(ctx, []*domain.SkippedUnit{u})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}
