package normalization

import (
	"sort"

	"spot-curve-lab/internal/domain"
)

// SortLadderRecords orders one unit's records along the curve:
// supply by price ASC, demand by price DESC. The sort is stable so equal
// prices keep their load order.
func SortLadderRecords(side domain.Side, records []*domain.BidRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return compareRecords(side, records[i], records[j]) < 0
	})
}

// SortKeys orders unit keys by (date ASC, hour ASC).
func SortKeys(keys []domain.UnitKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})
}

// compareRecords returns:
//   - negative if a comes before b on the side's curve
//   - zero if they are tied
//   - positive otherwise
func compareRecords(side domain.Side, a, b *domain.BidRecord) int {
	if a.Price == b.Price {
		return 0
	}
	before := a.Price < b.Price
	if side == domain.SideDemand {
		before = !before
	}
	if before {
		return -1
	}
	return 1
}
