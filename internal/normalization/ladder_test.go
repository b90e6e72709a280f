package normalization

import (
	"errors"
	"math"
	"testing"
	"time"

	"spot-curve-lab/internal/domain"
)

var testDate = time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC)

func bid(hour int, price, qty float64) *domain.BidRecord {
	return &domain.BidRecord{Date: testDate, Hour: hour, Price: price, Quantity: qty, ZoneClearingPrice: 42}
}

func TestFilterRecords(t *testing.T) {
	records := []*domain.BidRecord{
		bid(1, 0, 10),
		bid(1, -5, 10),
		bid(1, 3000, 10),
		bid(1, 4000, 10),
		bid(1, 3000.5, 10),
		bid(1, 55, 10),
	}

	tests := []struct {
		side domain.Side
		want int
	}{
		{domain.SideSupply, 2},
		{domain.SideDemand, 4},
	}

	for _, tt := range tests {
		t.Run(tt.side.String(), func(t *testing.T) {
			got := FilterRecords(tt.side, records)
			if len(got) != tt.want {
				t.Errorf("Expected %d records, got %d", tt.want, len(got))
			}
		})
	}

	if len(records) != 6 {
		t.Error("input slice was modified")
	}
}

func TestSortLadderRecords(t *testing.T) {
	newRecords := func() []*domain.BidRecord {
		return []*domain.BidRecord{bid(1, 80, 1), bid(1, 50, 2), bid(1, 80, 3), bid(1, 65, 4)}
	}

	supply := newRecords()
	SortLadderRecords(domain.SideSupply, supply)
	wantSupply := []float64{2, 4, 1, 3} // quantities identify the records; ties keep load order
	for i, r := range supply {
		if r.Quantity != wantSupply[i] {
			t.Errorf("supply[%d]: expected qty %v, got %v", i, wantSupply[i], r.Quantity)
		}
	}

	demand := newRecords()
	SortLadderRecords(domain.SideDemand, demand)
	wantDemand := []float64{1, 3, 4, 2}
	for i, r := range demand {
		if r.Quantity != wantDemand[i] {
			t.Errorf("demand[%d]: expected qty %v, got %v", i, wantDemand[i], r.Quantity)
		}
	}
}

func TestBuildLadder_CumulativeVolume(t *testing.T) {
	key := domain.NewUnitKey(testDate, 1)
	ladder := BuildLadder(key, domain.SideSupply, []*domain.BidRecord{bid(1, 80, 50), bid(1, 50, 100)})

	if ladder.Len() != 2 {
		t.Fatalf("Expected 2 rungs, got %d", ladder.Len())
	}
	if ladder.Rungs[0].Price != 50 || ladder.Rungs[0].CumulativeVolume != 100 {
		t.Errorf("Rung 0: got %+v", ladder.Rungs[0])
	}
	if ladder.Rungs[1].Price != 80 || ladder.Rungs[1].CumulativeVolume != 150 {
		t.Errorf("Rung 1: got %+v", ladder.Rungs[1])
	}
	if ladder.Vmax() != 150 {
		t.Errorf("Expected Vmax 150, got %v", ladder.Vmax())
	}
	if !ladder.IsPriceMonotonic() {
		t.Error("Expected sorted supply ladder to be monotonic")
	}
}

func TestExtractLadders_GroupsAndOrders(t *testing.T) {
	other := time.Date(2016, time.February, 29, 0, 0, 0, 0, time.UTC)
	records := []*domain.BidRecord{
		bid(2, 10, 1),
		bid(1, 20, 1),
		bid(1, 10, 1),
		{Date: other, Hour: 24, Price: 5, Quantity: 1},
		bid(3, -1, 1), // all filtered: still reported as an empty ladder
	}

	ladders := ExtractLadders(domain.SideSupply, records)
	if len(ladders) != 4 {
		t.Fatalf("Expected 4 ladders, got %d", len(ladders))
	}

	wantHours := []int{24, 1, 2, 3}
	for i, l := range ladders {
		if l.Key.Hour != wantHours[i] {
			t.Errorf("ladder %d: expected hour %d, got %d", i, wantHours[i], l.Key.Hour)
		}
	}
	if ladders[1].Len() != 2 {
		t.Errorf("Expected 2 rungs for hour 1, got %d", ladders[1].Len())
	}
	if ladders[3].Len() != 0 {
		t.Errorf("Expected empty ladder for hour 3, got %d rungs", ladders[3].Len())
	}
	if ladders[3].ZoneClearingPrice != 42 {
		t.Errorf("Expected zone clearing price kept for empty ladder, got %v", ladders[3].ZoneClearingPrice)
	}
}

func TestNormalizeVolumes_TwoBids(t *testing.T) {
	ladder := BuildLadder(domain.NewUnitKey(testDate, 1), domain.SideSupply,
		[]*domain.BidRecord{bid(1, 50, 100), bid(1, 80, 50)})

	volumes, err := NormalizeVolumes(ladder)
	if err != nil {
		t.Fatalf("NormalizeVolumes failed: %v", err)
	}

	want := []float64{0, 100.0 / 150.0, 1}
	if len(volumes) != len(want) {
		t.Fatalf("Expected %d volumes, got %d", len(want), len(volumes))
	}
	for i := range want {
		if math.Abs(volumes[i]-want[i]) > 1e-12 {
			t.Errorf("volume[%d]: expected %v, got %v", i, want[i], volumes[i])
		}
	}
}

func TestNormalizeVolumes_NonDecreasingInUnitInterval(t *testing.T) {
	records := []*domain.BidRecord{
		bid(1, 10, 3), bid(1, 12, 0), bid(1, 15, 7.5), bid(1, 20, 0.25), bid(1, 33, 11),
	}
	ladder := BuildLadder(domain.NewUnitKey(testDate, 1), domain.SideSupply, records)

	volumes, err := NormalizeVolumes(ladder)
	if err != nil {
		t.Fatalf("NormalizeVolumes failed: %v", err)
	}
	if volumes[0] != 0 || volumes[len(volumes)-1] != 1 {
		t.Errorf("Expected endpoints 0 and 1, got %v and %v", volumes[0], volumes[len(volumes)-1])
	}
	for i := 1; i < len(volumes); i++ {
		if volumes[i] < volumes[i-1] || volumes[i] < 0 || volumes[i] > 1 {
			t.Errorf("volume[%d]=%v breaks ordering or range", i, volumes[i])
		}
	}
}

func TestNormalizeVolumes_Errors(t *testing.T) {
	key := domain.NewUnitKey(testDate, 1)

	_, err := NormalizeVolumes(BuildLadder(key, domain.SideSupply, nil))
	if !errors.Is(err, ErrEmptyLadder) {
		t.Errorf("Expected ErrEmptyLadder, got %v", err)
	}

	_, err = NormalizeVolumes(BuildLadder(key, domain.SideSupply, []*domain.BidRecord{bid(1, 10, 0), bid(1, 20, 0)}))
	if !errors.Is(err, ErrDegenerateVolume) {
		t.Errorf("Expected ErrDegenerateVolume, got %v", err)
	}
}

func TestStepFunction_TwoBids(t *testing.T) {
	ladder := BuildLadder(domain.NewUnitKey(testDate, 1), domain.SideSupply,
		[]*domain.BidRecord{bid(1, 50, 100), bid(1, 80, 50)})
	volumes, _ := NormalizeVolumes(ladder)

	step, err := BuildStepFunction(ladder, volumes)
	if err != nil {
		t.Fatalf("BuildStepFunction failed: %v", err)
	}

	tests := []struct {
		v    float64
		want float64
	}{
		{-0.5, 50},
		{0, 50},
		{0.3, 50},
		{0.666, 50},
		{100.0 / 150.0, 80},
		{0.9, 80},
		{1, 80},
		{1.5, 80},
	}
	for _, tt := range tests {
		if got := step.At(tt.v); got != tt.want {
			t.Errorf("At(%v): expected %v, got %v", tt.v, tt.want, got)
		}
	}
}

func TestStepFunction_SingleBid(t *testing.T) {
	ladder := BuildLadder(domain.NewUnitKey(testDate, 1), domain.SideDemand, []*domain.BidRecord{bid(1, 70, 12)})
	volumes, err := NormalizeVolumes(ladder)
	if err != nil {
		t.Fatalf("NormalizeVolumes failed: %v", err)
	}

	step, err := BuildStepFunction(ladder, volumes)
	if err != nil {
		t.Fatalf("BuildStepFunction failed: %v", err)
	}
	for _, v := range step.EvalAt([]float64{0, 0.5, 1}) {
		if v != 70 {
			t.Errorf("Expected constant 70, got %v", v)
		}
	}
}

func TestNewStepFunction_Invalid(t *testing.T) {
	if _, err := NewStepFunction(nil, nil); !errors.Is(err, ErrBreakpoints) {
		t.Errorf("Expected ErrBreakpoints for empty input, got %v", err)
	}
	if _, err := NewStepFunction([]float64{0, 1}, []float64{1}); !errors.Is(err, ErrBreakpoints) {
		t.Errorf("Expected ErrBreakpoints for length mismatch, got %v", err)
	}
	if _, err := NewStepFunction([]float64{0, 0.5, 0.4}, []float64{1, 2, 3}); !errors.Is(err, ErrBreakpoints) {
		t.Errorf("Expected ErrBreakpoints for decreasing breakpoints, got %v", err)
	}
}

func TestStepFunction_LeadingZeroQuantity(t *testing.T) {
	ladder := BuildLadder(domain.NewUnitKey(testDate, 1), domain.SideSupply,
		[]*domain.BidRecord{bid(1, 20, 0), bid(1, 50, 10)})
	volumes, err := NormalizeVolumes(ladder)
	if err != nil {
		t.Fatalf("NormalizeVolumes failed: %v", err)
	}

	wantVolumes := []float64{0, 0, 1}
	for i, v := range wantVolumes {
		if volumes[i] != v {
			t.Errorf("volume %d: expected %v, got %v", i, v, volumes[i])
		}
	}

	step, err := BuildStepFunction(ladder, volumes)
	if err != nil {
		t.Fatalf("BuildStepFunction failed: %v", err)
	}
	// The empty first rung has no width: at 0 the next price already applies.
	if got := step.At(0); got != 50 {
		t.Errorf("At(0): expected 50, got %v", got)
	}
}
