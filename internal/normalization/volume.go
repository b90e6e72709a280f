package normalization

import (
	"errors"
	"math"

	"spot-curve-lab/internal/domain"
)

// Errors returned by normalization steps.
var (
	// ErrEmptyLadder is returned when a unit has no qualifying bids after filtering.
	ErrEmptyLadder = errors.New("empty bid ladder")

	// ErrDegenerateVolume is returned when the ladder's maximum volume is zero.
	ErrDegenerateVolume = errors.New("degenerate ladder volume")

	// ErrBreakpoints is returned for a step function with mismatched or unordered breakpoints.
	ErrBreakpoints = errors.New("invalid step function breakpoints")
)

// NormalizeVolumes rescales the ladder's cumulative volume by Vmax.
// The result has Len()+1 entries: a synthetic 0 followed by cumulative/Vmax
// for each rung. The last entry is exactly 1.
func NormalizeVolumes(ladder *domain.BidLadder) ([]float64, error) {
	if ladder == nil || ladder.Len() == 0 {
		return nil, ErrEmptyLadder
	}

	vmax := ladder.Vmax()
	if !(vmax > 0) || math.IsInf(vmax, 0) {
		return nil, ErrDegenerateVolume
	}

	volumes := make([]float64, ladder.Len()+1)
	for i, r := range ladder.Rungs {
		v := r.CumulativeVolume / vmax
		volumes[i+1] = math.Min(math.Max(v, 0), 1)
	}
	volumes[len(volumes)-1] = 1

	return volumes, nil
}
