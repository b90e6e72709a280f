package normalization

import (
	"spot-curve-lab/internal/domain"
)

// BuildLadder turns one unit's filtered records into a ladder with cumulative volume.
// Records are ordered with SortLadderRecords first; the input slice is not modified.
// An empty input yields an empty ladder, which BuildCurve reports as EMPTY_LADDER.
func BuildLadder(key domain.UnitKey, side domain.Side, records []*domain.BidRecord) *domain.BidLadder {
	ordered := make([]*domain.BidRecord, len(records))
	copy(ordered, records)
	SortLadderRecords(side, ordered)

	ladder := &domain.BidLadder{
		Key:   key,
		Side:  side,
		Rungs: make([]domain.Rung, 0, len(ordered)),
	}

	var cumulative float64
	for _, r := range ordered {
		cumulative += r.Quantity
		ladder.Rungs = append(ladder.Rungs, domain.Rung{
			Price:            r.Price,
			Quantity:         r.Quantity,
			CumulativeVolume: cumulative,
		})
		ladder.ZoneClearingPrice = r.ZoneClearingPrice
	}

	return ladder
}

// ExtractLadders groups raw records by (date, hour), filters them for the side
// and builds one ladder per unit, ordered by key. Units whose records are all
// filtered out still get an (empty) ladder so they are reported, not dropped.
func ExtractLadders(side domain.Side, records []*domain.BidRecord) []*domain.BidLadder {
	groups := make(map[domain.UnitKey][]*domain.BidRecord)
	zcp := make(map[domain.UnitKey]float64)
	for _, r := range records {
		if r == nil {
			continue
		}
		k := r.Key()
		if _, ok := groups[k]; !ok {
			groups[k] = nil
		}
		zcp[k] = r.ZoneClearingPrice
		if Keep(side, r.Price) {
			groups[k] = append(groups[k], r)
		}
	}

	keys := make([]domain.UnitKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	SortKeys(keys)

	ladders := make([]*domain.BidLadder, 0, len(keys))
	for _, k := range keys {
		ladder := BuildLadder(k, side, groups[k])
		ladder.ZoneClearingPrice = zcp[k]
		ladders = append(ladders, ladder)
	}
	return ladders
}
