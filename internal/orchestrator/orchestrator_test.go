package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/observability"
	"spot-curve-lab/internal/smoothing"
	"spot-curve-lab/internal/spline"
	"spot-curve-lab/internal/storage"
	"spot-curve-lab/internal/storage/memory"
)

type testStores struct {
	bidStore   *memory.BidRecordStore
	curveStore *memory.CurveStore
	skipStore  *memory.SkipStore
}

func createTestStores() *testStores {
	return &testStores{
		bidStore:   memory.NewBidRecordStore(),
		curveStore: memory.NewCurveStore(),
		skipStore:  memory.NewSkipStore(),
	}
}

func newSmoother(t *testing.T) *smoothing.Smoother {
	t.Helper()
	s, err := smoothing.New(spline.MustNew(domain.DefaultBasisSpec()), smoothing.Options{})
	if err != nil {
		t.Fatalf("smoothing.New: %v", err)
	}
	return s
}

var day1 = time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC)

func rec(hour int, price, qty float64) *domain.BidRecord {
	return &domain.BidRecord{Date: day1, Hour: hour, Price: price, Quantity: qty, ZoneClearingPrice: 40}
}

// seed loads four supply units: two good, one all-closing, one zero-volume,
// and one demand unit.
func seed(t *testing.T, s *testStores) {
	t.Helper()
	ctx := context.Background()

	supply := []*domain.BidRecord{
		rec(1, 50, 100), rec(1, 80, 50),
		rec(2, 20, 10), rec(2, 35, 30), rec(2, 60, 5), rec(2, 4000, 900),
		rec(3, -1, 10), rec(3, 0, 10),
		rec(4, 10, 0),
	}
	if err := s.bidStore.InsertBulk(ctx, domain.SideSupply, supply); err != nil {
		t.Fatalf("insert supply: %v", err)
	}

	demand := []*domain.BidRecord{rec(1, 200, 10), rec(1, 90, 40), rec(1, 3000, 5)}
	if err := s.bidStore.InsertBulk(ctx, domain.SideDemand, demand); err != nil {
		t.Fatalf("insert demand: %v", err)
	}
}

func TestOrchestrator_Run_Empty(t *testing.T) {
	stores := createTestStores()

	orch := New(Options{
		BidStore:   stores.bidStore,
		CurveStore: stores.curveStore,
		SkipStore:  stores.skipStore,
		Smoother:   newSmoother(t),
	})

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.UnitsTotal != 0 || len(result.Curves) != 0 || len(result.Skipped) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if result.RunID == "" {
		t.Error("expected generated run id")
	}
}

func TestOrchestrator_Run_StoresCurvesAndSkips(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seed(t, stores)
	metrics := observability.NewMetrics("test")

	orch := New(Options{
		BidStore:   stores.bidStore,
		CurveStore: stores.curveStore,
		SkipStore:  stores.skipStore,
		Smoother:   newSmoother(t),
		Workers:    3,
		RunID:      "run-1",
		Metrics:    metrics,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.UnitsTotal != 5 {
		t.Errorf("expected 5 units, got %d", result.UnitsTotal)
	}
	if len(result.Curves) != 3 {
		t.Fatalf("expected 3 curves, got %d", len(result.Curves))
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skipped units, got %d", len(result.Skipped))
	}
	if result.Interrupted {
		t.Error("expected Interrupted=false")
	}

	// Demand before supply, then by hour
	if result.Curves[0].Side != domain.SideDemand {
		t.Errorf("expected demand curve first, got %s", result.Curves[0].Side)
	}
	if result.Curves[1].Key.Hour != 1 || result.Curves[2].Key.Hour != 2 {
		t.Errorf("supply curves out of order: %d, %d", result.Curves[1].Key.Hour, result.Curves[2].Key.Hour)
	}

	// Sentinel and closing bids filtered before normalization
	if result.Curves[2].Vmax != 45 {
		t.Errorf("expected Vmax 45 for hour 2, got %v", result.Curves[2].Vmax)
	}
	// Demand keeps 3000 (sentinels are supply-only)
	if result.Curves[0].Vmax != 55 {
		t.Errorf("expected demand Vmax 55, got %v", result.Curves[0].Vmax)
	}

	wantReasons := map[int]domain.SkipReason{3: domain.SkipEmptyLadder, 4: domain.SkipDegenerateVolume}
	for _, s := range result.Skipped {
		if s.Reason != wantReasons[s.Key.Hour] {
			t.Errorf("hour %d: expected %s, got %s", s.Key.Hour, wantReasons[s.Key.Hour], s.Reason)
		}
		if s.RunID != "run-1" {
			t.Errorf("expected run id on skipped unit, got %q", s.RunID)
		}
	}

	// Stores hold exactly the reduced results
	if stores.curveStore.Len() != 3 {
		t.Errorf("expected 3 stored curves, got %d", stores.curveStore.Len())
	}
	skipped, err := stores.skipStore.GetByRun(ctx, "run-1")
	if err != nil || len(skipped) != 2 {
		t.Errorf("expected 2 persisted skips, got %d (%v)", len(skipped), err)
	}
	got, err := stores.curveStore.GetByKey(ctx, domain.SideSupply, domain.NewUnitKey(day1, 1))
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.RunID != "run-1" || len(got.Coefficients) != 18 {
		t.Errorf("unexpected stored curve: run=%q coefs=%d", got.RunID, len(got.Coefficients))
	}
}

func TestOrchestrator_Run_WorkerCountDoesNotChangeResults(t *testing.T) {
	ctx := context.Background()

	run := func(workers int) *RunResult {
		stores := createTestStores()
		seed(t, stores)
		orch := New(Options{
			BidStore:   stores.bidStore,
			CurveStore: stores.curveStore,
			Smoother:   newSmoother(t),
			Workers:    workers,
		})
		result, err := orch.Run(ctx)
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		return result
	}

	serial := run(1)
	parallel := run(8)

	if len(serial.Curves) != len(parallel.Curves) {
		t.Fatalf("curve counts differ: %d vs %d", len(serial.Curves), len(parallel.Curves))
	}
	for i := range serial.Curves {
		a, b := serial.Curves[i], parallel.Curves[i]
		if a.Key != b.Key || a.Side != b.Side || a.Lambda != b.Lambda {
			t.Errorf("curve %d differs: %s/%s λ=%v vs %s/%s λ=%v", i, a.Side, a.Key, a.Lambda, b.Side, b.Key, b.Lambda)
			continue
		}
		for j := range a.Coefficients {
			if a.Coefficients[j] != b.Coefficients[j] {
				t.Errorf("curve %d coefficient %d differs", i, j)
				break
			}
		}
	}
}

func TestOrchestrator_Run_SkipExisting(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seed(t, stores)

	opts := Options{
		BidStore:   stores.bidStore,
		CurveStore: stores.curveStore,
		Smoother:   newSmoother(t),
	}

	if _, err := New(opts).Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Append-only store rejects the second pass unless existing units are left alone
	_, err := New(opts).Run(ctx)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey on rerun, got %v", err)
	}

	opts.SkipExisting = true
	result, err := New(opts).Run(ctx)
	if err != nil {
		t.Fatalf("rerun with SkipExisting: %v", err)
	}
	if result.Existing != 3 || len(result.Curves) != 0 {
		t.Errorf("expected 3 existing and no new curves, got %d/%d", result.Existing, len(result.Curves))
	}
	// Skipped units have no curve, so they are retried and skipped again
	if len(result.Skipped) != 2 {
		t.Errorf("expected 2 skipped units, got %d", len(result.Skipped))
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	stores := createTestStores()
	seed(t, stores)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(Options{
		BidStore:   stores.bidStore,
		CurveStore: stores.curveStore,
		SkipStore:  stores.skipStore,
		Smoother:   newSmoother(t),
		Workers:    1,
	})

	result, err := orch.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || !result.Interrupted {
		t.Fatal("expected interrupted partial result")
	}
	if stores.curveStore.Len() != 0 {
		t.Errorf("expected nothing stored, got %d curves", stores.curveStore.Len())
	}
}

// failingBidStore fails record loads for one hour.
type failingBidStore struct {
	*memory.BidRecordStore
	failHour int
}

func (s *failingBidStore) GetByKey(ctx context.Context, side domain.Side, key domain.UnitKey) ([]*domain.BidRecord, error) {
	if key.Hour == s.failHour {
		return nil, errors.New("connection reset")
	}
	return s.BidRecordStore.GetByKey(ctx, side, key)
}

func TestOrchestrator_Run_StoreFailureAborts(t *testing.T) {
	stores := createTestStores()
	seed(t, stores)

	orch := New(Options{
		BidStore:   &failingBidStore{BidRecordStore: stores.bidStore, failHour: 2},
		CurveStore: stores.curveStore,
		Smoother:   newSmoother(t),
	})

	result, err := orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if result != nil {
		t.Error("expected no result on failure")
	}
	if stores.curveStore.Len() != 0 {
		t.Errorf("expected no partial store, got %d curves", stores.curveStore.Len())
	}
}
