package domain

// Rung is one position in a bid ladder.
type Rung struct {
	Price            float64 // bid price
	Quantity         float64 // bid volume
	CumulativeVolume float64 // running sum of Quantity up to and including this rung
}

// BidLadder is the ordered set of bids sharing a (date, hour) key.
// Supply ladders are ordered by ascending price, demand ladders by descending price.
type BidLadder struct {
	Key               UnitKey
	Side              Side
	Rungs             []Rung
	ZoneClearingPrice float64 // shared by every record of the unit
}

// Len returns the number of rungs.
func (l *BidLadder) Len() int {
	return len(l.Rungs)
}

// Vmax returns the final cumulative volume, or 0 for an empty ladder.
func (l *BidLadder) Vmax() float64 {
	if len(l.Rungs) == 0 {
		return 0
	}
	return l.Rungs[len(l.Rungs)-1].CumulativeVolume
}

// IsPriceMonotonic reports whether prices follow the side's expected order:
// non-decreasing for supply, non-increasing for demand.
// Violations are reported, never repaired.
func (l *BidLadder) IsPriceMonotonic() bool {
	for i := 1; i < len(l.Rungs); i++ {
		prev, cur := l.Rungs[i-1].Price, l.Rungs[i].Price
		if l.Side == SideDemand {
			if cur > prev {
				return false
			}
		} else if cur < prev {
			return false
		}
	}
	return true
}
