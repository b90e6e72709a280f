// Package smoothing fits roughness-penalized basis expansions to sampled curves,
// selecting the penalty weight by generalized cross-validation (GCV).
package smoothing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/spline"
)

// Options configures a Smoother.
type Options struct {
	Lambdas      []float64 // candidate grid, tried in order; default DefaultLambdaGrid()
	PenaltyDeriv int       // derivative order of the roughness penalty; default 4
}

// Candidate is the GCV evaluation of one lambda.
type Candidate struct {
	Lambda float64
	GCV    float64
	DF     float64 // trace of the smoother matrix
	Valid  bool    // false when GCV is undefined or non-finite
}

// Fit is the result of smoothing one sampled curve.
type Fit struct {
	Coefficients []float64 // final least-squares coefficients over the basis
	Lambda       float64   // selected lambda
	GCV          float64   // GCV at Lambda
	DF           float64   // degrees of freedom at Lambda
	Candidates   []Candidate
}

// Smoother holds the precomputed, read-only pieces shared by every fit:
// the grid evaluation matrix, its Gram matrix and the roughness penalty.
// A Smoother is safe for concurrent use.
type Smoother struct {
	basis   *spline.Basis
	grid    []float64
	phi     mat.Matrix
	gram    *mat.SymDense
	penalty *mat.SymDense
	lambdas []float64
	deriv   int
}

// New creates a Smoother over the basis' fixed grid.
func New(basis *spline.Basis, opts Options) (*Smoother, error) {
	lambdas := opts.Lambdas
	if len(lambdas) == 0 {
		lambdas = DefaultLambdaGrid()
	}
	for _, l := range lambdas {
		if l < 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, fmt.Errorf("%w: lambda %v", ErrInvalidOptions, l)
		}
	}

	deriv := opts.PenaltyDeriv
	if deriv == 0 {
		deriv = domain.DefaultPenaltyDeriv
	}
	if deriv < 0 || deriv >= basis.Spec().Order {
		return nil, fmt.Errorf("%w: penalty derivative %d needs order > %d, have %d",
			ErrInvalidOptions, deriv, deriv, basis.Spec().Order)
	}

	phi := basis.GridMatrix()
	var gram mat.SymDense
	gram.SymOuterK(1, phi.T())

	return &Smoother{
		basis:   basis,
		grid:    basis.GridPoints(),
		phi:     phi,
		gram:    &gram,
		penalty: basis.Penalty(deriv),
		lambdas: append([]float64(nil), lambdas...),
		deriv:   deriv,
	}, nil
}

// Basis returns the shared basis.
func (s *Smoother) Basis() *spline.Basis {
	return s.basis
}

// BasisSpec returns the definition of the shared basis.
func (s *Smoother) BasisSpec() domain.BasisSpec {
	return s.basis.Spec()
}

// GridPoints returns a copy of the grid the samples must be taken on.
func (s *Smoother) GridPoints() []float64 {
	return append([]float64(nil), s.grid...)
}

// Lambdas returns a copy of the candidate grid.
func (s *Smoother) Lambdas() []float64 {
	return append([]float64(nil), s.lambdas...)
}

// Fit smooths values sampled on the grid.
//
// Every candidate lambda is scored by GCV; the minimum wins and ties keep the
// first (smallest) lambda. The curve is then re-smoothed at the selected lambda
// and the smoothed values are projected onto the raw basis by ordinary least squares.
func (s *Smoother) Fit(values []float64) (*Fit, error) {
	n := len(s.grid)
	if len(values) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleLength, len(values), n)
	}

	y := mat.NewVecDense(n, append([]float64(nil), values...))
	var rhs mat.VecDense
	rhs.MulVec(s.phi.T(), y)

	candidates := make([]Candidate, 0, len(s.lambdas))
	best := -1
	for _, lambda := range s.lambdas {
		c := s.score(lambda, y, &rhs)
		candidates = append(candidates, c)
		if !c.Valid {
			continue
		}
		if best < 0 || c.GCV < candidates[best].GCV {
			best = len(candidates) - 1
		}
	}

	if best < 0 {
		return nil, fmt.Errorf("%w: %d candidates tried", ErrSmoothingConvergence, len(s.lambdas))
	}
	selected := candidates[best]

	smoothCoefs, err := s.solve(selected.Lambda, &rhs)
	if err != nil {
		return nil, fmt.Errorf("%w: re-smooth at lambda %v: %v", ErrSmoothingConvergence, selected.Lambda, err)
	}
	var smoothed mat.VecDense
	smoothed.MulVec(s.phi, smoothCoefs)

	coefs, err := s.project(&smoothed)
	if err != nil {
		return nil, err
	}

	return &Fit{
		Coefficients: coefs,
		Lambda:       selected.Lambda,
		GCV:          selected.GCV,
		DF:           selected.DF,
		Candidates:   candidates,
	}, nil
}

// score computes the GCV of one lambda: n*SSE / (n - df)^2.
func (s *Smoother) score(lambda float64, y, rhs *mat.VecDense) Candidate {
	c := Candidate{Lambda: lambda, GCV: math.NaN(), DF: math.NaN()}

	chol, ok := s.factorize(lambda)
	if !ok {
		return c
	}

	var coefs mat.VecDense
	if err := chol.SolveVecTo(&coefs, rhs); err != nil {
		return c
	}

	// df = tr((G + lambda*R)^-1 G)
	var hat mat.Dense
	if err := chol.SolveTo(&hat, s.gram); err != nil {
		return c
	}
	df := mat.Trace(&hat)

	var fitted mat.VecDense
	fitted.MulVec(s.phi, &coefs)
	var sse float64
	for i := 0; i < y.Len(); i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		sse += r * r
	}

	n := float64(y.Len())
	c.DF = df
	if n-df <= 0 {
		return c
	}
	gcv := n * sse / ((n - df) * (n - df))
	if math.IsNaN(gcv) || math.IsInf(gcv, 0) {
		return c
	}
	c.GCV = gcv
	c.Valid = true
	return c
}

func (s *Smoother) factorize(lambda float64) (*mat.Cholesky, bool) {
	var scaled, m mat.SymDense
	scaled.ScaleSym(lambda, s.penalty)
	m.AddSym(s.gram, &scaled)

	var chol mat.Cholesky
	if ok := chol.Factorize(&m); !ok {
		return nil, false
	}
	return &chol, true
}

func (s *Smoother) solve(lambda float64, rhs *mat.VecDense) (*mat.VecDense, error) {
	chol, ok := s.factorize(lambda)
	if !ok {
		return nil, errors.New("penalized system not positive definite")
	}
	var coefs mat.VecDense
	if err := chol.SolveVecTo(&coefs, rhs); err != nil {
		return nil, err
	}
	return &coefs, nil
}

// project returns the least-squares coefficients of values on the raw grid matrix.
// Ill-conditioning is tolerated; non-finite coefficients are not.
func (s *Smoother) project(values *mat.VecDense) ([]float64, error) {
	var coefs mat.VecDense
	if err := coefs.SolveVec(s.phi, values); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: least squares projection: %v", ErrSmoothingConvergence, err)
		}
	}

	out := make([]float64, coefs.Len())
	for i := range out {
		v := coefs.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient %d", ErrSmoothingConvergence, i)
		}
		out[i] = v
	}
	return out, nil
}
