package verification

import (
	"context"
	"errors"
	"math"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/lookup"
	"spot-curve-lab/internal/normalization"
	"spot-curve-lab/internal/storage"
)

var (
	// ErrCurveNotFound is returned when no curve is stored for the unit.
	ErrCurveNotFound = errors.New("curve not found")

	// ErrRebuildSkipped is returned when the stored input no longer yields a curve.
	ErrRebuildSkipped = errors.New("rebuild skipped unit")
)

// RebuildVerifier implements Verifier by re-running BuildCurve on the stored input.
type RebuildVerifier struct {
	bidStore   storage.BidRecordStore
	curveStore storage.CurveStore
	smoother   normalization.Smoother
	evaluator  *lookup.Evaluator
}

// RebuildVerifierOptions contains configuration for creating a RebuildVerifier.
type RebuildVerifierOptions struct {
	BidStore   storage.BidRecordStore
	CurveStore storage.CurveStore
	Smoother   normalization.Smoother
}

// NewRebuildVerifier creates a new RebuildVerifier.
func NewRebuildVerifier(opts RebuildVerifierOptions) *RebuildVerifier {
	return &RebuildVerifier{
		bidStore:   opts.BidStore,
		curveStore: opts.CurveStore,
		smoother:   opts.Smoother,
		evaluator:  lookup.NewEvaluator(),
	}
}

// Compile-time interface check.
var _ Verifier = (*RebuildVerifier)(nil)

// VerifyCurve verifies a single curve by rebuilding it.
func (v *RebuildVerifier) VerifyCurve(ctx context.Context, side domain.Side, key domain.UnitKey) (*VerificationResult, error) {
	// 1. Load stored curve
	stored, err := v.curveStore.GetByKey(ctx, side, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCurveNotFound
		}
		return nil, err
	}
	return v.verify(ctx, stored)
}

func (v *RebuildVerifier) verify(ctx context.Context, stored *domain.NormalizedCurve) (*VerificationResult, error) {
	// 2. Rebuild from the input ladder
	runner := normalization.NewRunner(v.bidStore, v.smoother)
	ladder, err := runner.Ladder(ctx, stored.Side, stored.Key)
	if err != nil {
		return nil, err
	}
	rebuilt, err := normalization.BuildCurve(ladder, v.smoother)
	if err != nil {
		if _, ok := domain.AsUnitError(err); ok {
			return nil, errors.Join(ErrRebuildSkipped, err)
		}
		return nil, err
	}

	// 3. Compare and measure
	basis, err := v.evaluator.Basis(stored.Basis)
	if err != nil {
		return nil, err
	}
	rt, err := RoundTripError(basis, stored)
	if err != nil {
		return nil, err
	}

	divergences := CompareCurves(stored, rebuilt)
	return &VerificationResult{
		Side:        stored.Side,
		Key:         stored.Key,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		RoundTrip:   rt,
	}, nil
}

// VerifyAll verifies all stored curves.
func (v *RebuildVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	curves, err := v.curveStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalCurves: len(curves),
		Results:     make([]VerificationResult, 0, len(curves)),
	}

	for _, c := range curves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.verify(ctx, c)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				Side:  c.Side,
				Key:   c.Key,
				Match: false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentCurves++
			continue
		}

		report.Results = append(report.Results, *result)
		report.MaxRoundTrip.Max = math.Max(report.MaxRoundTrip.Max, result.RoundTrip.Max)
		report.MaxRoundTrip.RMS = math.Max(report.MaxRoundTrip.RMS, result.RoundTrip.RMS)
		if result.Match {
			report.MatchedCurves++
		} else {
			report.DivergentCurves++
		}
	}

	return report, nil
}
