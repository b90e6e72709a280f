package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
)

func testCurve(side domain.Side, date time.Time, hour int) *domain.NormalizedCurve {
	spec := domain.DefaultBasisSpec()
	coefs := make([]float64, spec.NBasis)
	for i := range coefs {
		coefs[i] = 40 + float64(i)
	}
	return &domain.NormalizedCurve{
		Key:               domain.NewUnitKey(date, hour),
		Side:              side,
		Vmax:              150,
		Volumes:           []float64{0, 2.0 / 3.0, 1},
		Prices:            []float64{50, 80, 80},
		Coefficients:      coefs,
		Lambda:            1e-4,
		GCV:               12.5,
		DegreesOfFreedom:  11.2,
		ZoneClearingPrice: 61.5,
		Monotonic:         true,
		Basis:             spec,
		RunID:             "run-1",
	}
}

func TestCurveStore_InsertAndGetByKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCurveStore(conn)
	ctx := context.Background()

	// Test empty insert
	assert.NoError(t, store.InsertBulk(ctx, nil))

	date := time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC)
	c := testCurve(domain.SideSupply, date, 12)
	require.NoError(t, store.Insert(ctx, c))

	got, err := store.GetByKey(ctx, domain.SideSupply, domain.NewUnitKey(date, 12))
	require.NoError(t, err)
	assert.Equal(t, domain.SideSupply, got.Side)
	assert.True(t, got.Key.Date.Equal(date))
	assert.Equal(t, 12, got.Key.Hour)
	assert.Equal(t, c.Coefficients, got.Coefficients)
	assert.Equal(t, c.Volumes, got.Volumes)
	assert.Equal(t, c.Prices, got.Prices)
	assert.Equal(t, c.Basis, got.Basis)
	assert.Equal(t, 1e-4, got.Lambda)
	assert.Equal(t, 61.5, got.ZoneClearingPrice)
	assert.True(t, got.Monotonic)
	assert.Equal(t, "run-1", got.RunID)

	_, err = store.GetByKey(ctx, domain.SideDemand, domain.NewUnitKey(date, 12))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCurveStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCurveStore(conn)
	ctx := context.Background()

	date := time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, testCurve(domain.SideSupply, date, 12)))

	err := store.Insert(ctx, testCurve(domain.SideSupply, date, 12))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate rejects the whole batch
	err = store.InsertBulk(ctx, []*domain.NormalizedCurve{
		testCurve(domain.SideDemand, date, 1),
		testCurve(domain.SideDemand, date, 1),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCurveStore_Query(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCurveStore(conn)
	ctx := context.Background()

	// 2016-03-01 is a Tuesday, 2016-03-06 a Sunday.
	curves := []*domain.NormalizedCurve{
		testCurve(domain.SideSupply, time.Date(2016, time.March, 6, 0, 0, 0, 0, time.UTC), 12),
		testCurve(domain.SideSupply, time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC), 13),
		testCurve(domain.SideSupply, time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC), 12),
		testCurve(domain.SideDemand, time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC), 12),
		testCurve(domain.SideSupply, time.Date(2017, time.April, 1, 0, 0, 0, 0, time.UTC), 12),
	}
	require.NoError(t, store.InsertBulk(ctx, curves))

	tests := []struct {
		name   string
		filter domain.CurveFilter
		want   int
	}{
		{"all", domain.CurveFilter{}, 5},
		{"side", domain.CurveFilter{Side: ptr(domain.SideDemand)}, 1},
		{"year", domain.CurveFilter{Year: ptr(2016)}, 4},
		{"month", domain.CurveFilter{Month: ptr(4)}, 1},
		{"day", domain.CurveFilter{Day: ptr(1)}, 4},
		{"sunday", domain.CurveFilter{Weekday: ptr(int(time.Sunday))}, 1},
		{"tuesday hour 12", domain.CurveFilter{Weekday: ptr(int(time.Tuesday)), Hour: ptr(12)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Key.Before(all[i-1].Key), "results not ordered at %d", i)
	}
}
