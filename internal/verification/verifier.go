// Package verification checks stored curves against a fresh rebuild from
// their input ladders and measures how closely each expansion tracks its step function.
package verification

import (
	"context"
	"fmt"
	"math"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/normalization"
	"spot-curve-lab/internal/spline"
)

// FloatTolerance is the tolerance for float64 comparisons between a stored
// curve and its rebuild.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and rebuilt values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // rebuilt value
}

// RoundTrip measures the basis expansion against the step function it smooths.
type RoundTrip struct {
	Max float64
	RMS float64
}

// VerificationResult contains the result of verifying a single curve.
type VerificationResult struct {
	Side        domain.Side
	Key         domain.UnitKey
	Match       bool              // true if the rebuild matches within tolerance
	Divergences []FieldDivergence // list of divergent fields
	RoundTrip   RoundTrip
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalCurves     int
	MatchedCurves   int
	DivergentCurves int
	MaxRoundTrip    RoundTrip // worst Max and worst RMS over all curves
	Results         []VerificationResult
}

// Verifier interface for curve verification.
type Verifier interface {
	// VerifyCurve rebuilds one stored curve from its ladder and compares.
	VerifyCurve(ctx context.Context, side domain.Side, key domain.UnitKey) (*VerificationResult, error)

	// VerifyAll verifies all stored curves.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareCurves compares a stored curve with its rebuild and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareCurves(stored, rebuilt *domain.NormalizedCurve) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Basis != rebuilt.Basis {
		divergences = append(divergences, FieldDivergence{
			Field:    "Basis",
			Expected: stored.Basis,
			Actual:   rebuilt.Basis,
		})
	}

	if !floatEquals(stored.Vmax, rebuilt.Vmax) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Vmax",
			Expected: stored.Vmax,
			Actual:   rebuilt.Vmax,
		})
	}

	// Lambda is picked from a fixed grid; any difference is a divergence
	if stored.Lambda != rebuilt.Lambda {
		divergences = append(divergences, FieldDivergence{
			Field:    "Lambda",
			Expected: stored.Lambda,
			Actual:   rebuilt.Lambda,
		})
	}

	divergences = append(divergences, compareSlices("Volumes", stored.Volumes, rebuilt.Volumes)...)
	divergences = append(divergences, compareSlices("Prices", stored.Prices, rebuilt.Prices)...)
	divergences = append(divergences, compareSlices("Coefficients", stored.Coefficients, rebuilt.Coefficients)...)

	return divergences
}

// compareSlices reports a length mismatch or the first differing element.
func compareSlices(field string, expected, actual []float64) []FieldDivergence {
	if len(expected) != len(actual) {
		return []FieldDivergence{{
			Field:    field + ".len",
			Expected: len(expected),
			Actual:   len(actual),
		}}
	}
	for i := range expected {
		if !floatEquals(expected[i], actual[i]) {
			return []FieldDivergence{{
				Field:    fmt.Sprintf("%s[%d]", field, i),
				Expected: expected[i],
				Actual:   actual[i],
			}}
		}
	}
	return nil
}

// RoundTripError evaluates the curve's expansion and its stored step function
// on the basis grid and returns the max and RMS absolute difference.
func RoundTripError(basis *spline.Basis, curve *domain.NormalizedCurve) (RoundTrip, error) {
	step, err := normalization.NewStepFunction(curve.Volumes, curve.Prices)
	if err != nil {
		return RoundTrip{}, fmt.Errorf("rebuild step function: %w", err)
	}

	grid := basis.GridPoints()
	smooth, err := basis.Expand(curve.Coefficients, grid)
	if err != nil {
		return RoundTrip{}, err
	}

	var rt RoundTrip
	var sumSq float64
	for i, v := range step.EvalAt(grid) {
		d := math.Abs(smooth[i] - v)
		rt.Max = math.Max(rt.Max, d)
		sumSq += d * d
	}
	if len(grid) > 0 {
		rt.RMS = math.Sqrt(sumSq / float64(len(grid)))
	}
	return rt, nil
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
