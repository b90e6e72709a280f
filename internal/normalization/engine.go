package normalization

import (
	"context"
	"errors"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/smoothing"
)

// NormalizationEngine defines the main normalization interface.
type NormalizationEngine interface {
	// NormalizeUnit builds the curve of one (side, date, hour) unit.
	NormalizeUnit(ctx context.Context, side domain.Side, key domain.UnitKey) (*domain.NormalizedCurve, error)
}

// Smoother fits a sampled curve over a fixed grid. Implemented by *smoothing.Smoother.
type Smoother interface {
	GridPoints() []float64
	Fit(values []float64) (*smoothing.Fit, error)
	BasisSpec() domain.BasisSpec
}

// BuildCurve is the per-unit computation, a pure function of the ladder and the smoother.
// Steps:
//  1. Normalize cumulative volume by Vmax (EMPTY_LADDER / DEGENERATE_VOLUME)
//  2. Build the right-continuous step function
//  3. Sample it on the smoother's grid
//  4. Smooth with GCV-selected lambda (SMOOTHING_CONVERGENCE)
//
// Skips are returned as *domain.UnitError. The ladder is used as given:
// an unsorted ladder degrades the fit but is not reordered.
func BuildCurve(ladder *domain.BidLadder, smoother Smoother) (*domain.NormalizedCurve, error) {
	// 1. Normalize
	volumes, err := NormalizeVolumes(ladder)
	if err != nil {
		return nil, unitError(ladder, err)
	}

	// 2. Step function
	step, err := BuildStepFunction(ladder, volumes)
	if err != nil {
		return nil, err
	}

	// 3. Sample on the grid
	samples := step.EvalAt(smoother.GridPoints())

	// 4. Smooth
	fit, err := smoother.Fit(samples)
	if err != nil {
		return nil, unitError(ladder, err)
	}

	return &domain.NormalizedCurve{
		Key:               ladder.Key,
		Side:              ladder.Side,
		Vmax:              ladder.Vmax(),
		Volumes:           step.Breakpoints(),
		Prices:            step.Values(),
		Coefficients:      fit.Coefficients,
		Lambda:            fit.Lambda,
		GCV:               fit.GCV,
		DegreesOfFreedom:  fit.DF,
		ZoneClearingPrice: ladder.ZoneClearingPrice,
		Monotonic:         ladder.IsPriceMonotonic(),
		Basis:             smoother.BasisSpec(),
	}, nil
}

// unitError classifies a skip. Errors outside the skip taxonomy pass through unchanged.
func unitError(ladder *domain.BidLadder, err error) error {
	var reason domain.SkipReason
	switch {
	case errors.Is(err, ErrEmptyLadder):
		reason = domain.SkipEmptyLadder
	case errors.Is(err, ErrDegenerateVolume):
		reason = domain.SkipDegenerateVolume
	case errors.Is(err, smoothing.ErrSmoothingConvergence):
		reason = domain.SkipSmoothingConvergence
	default:
		return err
	}

	var key domain.UnitKey
	var side domain.Side
	if ladder != nil {
		key, side = ladder.Key, ladder.Side
	}
	return &domain.UnitError{Key: key, Side: side, Reason: reason, Err: err}
}
