package smoothing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/spline"
)

func newTestSmoother(t *testing.T, nbasis int, lambdas []float64) *Smoother {
	t.Helper()
	spec := domain.DefaultBasisSpec()
	spec.NBasis = nbasis
	s, err := New(spline.MustNew(spec), Options{Lambdas: lambdas})
	require.NoError(t, err)
	return s
}

// stepSamples samples a unit step from lo to hi at the given volume fraction.
func stepSamples(grid []float64, at, lo, hi float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		if x < at {
			out[i] = lo
		} else {
			out[i] = hi
		}
	}
	return out
}

func rms(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(a)))
}

func TestLambdaGrid_Default(t *testing.T) {
	grid := DefaultLambdaGrid()

	require.Len(t, grid, 13)
	assert.InDelta(t, 1e-4, grid[0], 1e-18)
	assert.InDelta(t, 1e-1, grid[12], 1e-15)
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			t.Fatalf("grid not increasing at %d", i)
		}
	}
}

func TestLambdaGrid_Invalid(t *testing.T) {
	assert.Nil(t, LambdaGrid(-1, -4, 0.25))
	assert.Nil(t, LambdaGrid(-4, -1, 0))
}

func TestNew_InvalidOptions(t *testing.T) {
	basis := spline.MustNew(domain.DefaultBasisSpec())

	_, err := New(basis, Options{Lambdas: []float64{-1}})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(basis, Options{Lambdas: []float64{math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(basis, Options{PenaltyDeriv: 6})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestFit_SampleLengthMismatch(t *testing.T) {
	s := newTestSmoother(t, 18, nil)

	_, err := s.Fit([]float64{1, 2, 3})
	if !errors.Is(err, ErrSampleLength) {
		t.Errorf("expected ErrSampleLength, got %v", err)
	}
}

func TestFit_StepFunctionWithinTolerance(t *testing.T) {
	s := newTestSmoother(t, 18, nil)
	grid := s.GridPoints()
	y := stepSamples(grid, 2.0/3.0, 50, 80)

	fit, err := s.Fit(y)
	require.NoError(t, err)
	require.Len(t, fit.Coefficients, 18)

	fitted, err := s.Basis().Expand(fit.Coefficients, grid)
	require.NoError(t, err)

	// Jump is 30; the penalized fit may not resolve it sharply but stays bounded.
	assert.Less(t, rms(fitted, y), 0.25*30)
	for i := range fitted {
		assert.Less(t, math.Abs(fitted[i]-y[i]), 0.6*30, "grid point %d", i)
	}

	assert.Contains(t, s.Lambdas(), fit.Lambda)
	assert.True(t, fit.GCV > 0 && !math.IsInf(fit.GCV, 0))
	assert.Greater(t, fit.DF, 0.0)
	assert.Less(t, fit.DF, 18.0)
	assert.Len(t, fit.Candidates, 13)
}

func TestFit_SelectsMinimumGCV(t *testing.T) {
	s := newTestSmoother(t, 18, nil)
	y := stepSamples(s.GridPoints(), 0.4, 10, 25)

	fit, err := s.Fit(y)
	require.NoError(t, err)

	for _, c := range fit.Candidates {
		if c.Valid {
			assert.GreaterOrEqual(t, c.GCV, fit.GCV)
		}
	}
}

func TestFit_TieKeepsSmallestLambda(t *testing.T) {
	// Identical candidates produce identical GCV scores.
	s := newTestSmoother(t, 18, []float64{1e-3, 1e-3, 1e-3})
	y := stepSamples(s.GridPoints(), 0.5, 1, 2)

	fit, err := s.Fit(y)
	require.NoError(t, err)
	assert.Equal(t, 1e-3, fit.Lambda)
	assert.Equal(t, fit.Candidates[0].GCV, fit.GCV)
}

func TestFit_Deterministic(t *testing.T) {
	s := newTestSmoother(t, 18, nil)
	y := stepSamples(s.GridPoints(), 0.3, 40, 95)

	first, err := s.Fit(y)
	require.NoError(t, err)
	second, err := s.Fit(y)
	require.NoError(t, err)

	assert.Equal(t, first.Lambda, second.Lambda)
	assert.Equal(t, first.Coefficients, second.Coefficients)
}

func TestFit_ConstantCurve(t *testing.T) {
	s := newTestSmoother(t, 18, nil)
	y := make([]float64, len(s.GridPoints()))
	for i := range y {
		y[i] = 42
	}

	fit, err := s.Fit(y)
	require.NoError(t, err)

	fitted, err := s.Basis().Expand(fit.Coefficients, []float64{0, 0.5, 1})
	require.NoError(t, err)
	for _, v := range fitted {
		assert.InDelta(t, 42, v, 1e-4)
	}
}

func TestFit_NonFiniteSamples(t *testing.T) {
	s := newTestSmoother(t, 18, nil)
	y := stepSamples(s.GridPoints(), 0.5, 1, math.Inf(1))

	_, err := s.Fit(y)
	if !errors.Is(err, ErrSmoothingConvergence) {
		t.Errorf("expected ErrSmoothingConvergence, got %v", err)
	}
}

func TestFit_ErrorShrinksWithBasisCount(t *testing.T) {
	// Negligible penalty isolates the effect of the basis dimension.
	lambdas := []float64{1e-12}
	prev := math.Inf(1)

	for _, nbasis := range []int{8, 18, 30} {
		s := newTestSmoother(t, nbasis, lambdas)
		grid := s.GridPoints()
		y := stepSamples(grid, 2.0/3.0, 50, 80)

		fit, err := s.Fit(y)
		require.NoError(t, err)
		fitted, err := s.Basis().Expand(fit.Coefficients, grid)
		require.NoError(t, err)

		e := rms(fitted, y)
		assert.Less(t, e, prev, "nbasis %d", nbasis)
		prev = e
	}
}
