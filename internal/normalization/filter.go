package normalization

import (
	"spot-curve-lab/internal/domain"
)

// FilterRecords drops bids that do not belong on the curve (Raw -> Filtered):
//   - closing bids (price <= 0) on both sides
//   - opening sentinels (price exactly 3000 or 4000) on the supply side
//
// The input slice is not modified.
func FilterRecords(side domain.Side, records []*domain.BidRecord) []*domain.BidRecord {
	out := make([]*domain.BidRecord, 0, len(records))
	for _, r := range records {
		if r == nil || !Keep(side, r.Price) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Keep reports whether a bid at the given price survives filtering.
func Keep(side domain.Side, price float64) bool {
	if !(price > 0) {
		return false
	}
	if side == domain.SideSupply && IsSupplySentinel(price) {
		return false
	}
	return true
}

// IsSupplySentinel reports whether price is one of the opening-bid sentinels.
func IsSupplySentinel(price float64) bool {
	return price == domain.SupplySentinelPriceLow || price == domain.SupplySentinelPriceHigh
}
