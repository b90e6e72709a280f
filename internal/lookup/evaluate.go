package lookup

import (
	"fmt"
	"sync"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/spline"
)

// EvaluateCurve re-evaluates a stored curve's basis expansion at arbitrary
// volume fractions. The basis must be the one the curve was fitted with.
func EvaluateCurve(basis *spline.Basis, curve *domain.NormalizedCurve, points []float64) ([]float64, error) {
	if basis.Spec() != curve.Basis {
		return nil, fmt.Errorf("%w: %s %s fitted with %+v", ErrBasisMismatch, curve.Side, curve.Key, curve.Basis)
	}
	return basis.Expand(curve.Coefficients, points)
}

// Evaluator evaluates curves of any basis, building each basis once.
// Safe for concurrent use.
type Evaluator struct {
	mu    sync.Mutex
	bases map[domain.BasisSpec]*spline.Basis
}

// NewEvaluator creates an empty Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{bases: make(map[domain.BasisSpec]*spline.Basis)}
}

// Basis returns the shared basis for spec.
func (e *Evaluator) Basis(spec domain.BasisSpec) (*spline.Basis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.bases[spec]; ok {
		return b, nil
	}
	b, err := spline.New(spec)
	if err != nil {
		return nil, err
	}
	e.bases[spec] = b
	return b, nil
}

// Evaluate evaluates the curve at points with the curve's own basis.
func (e *Evaluator) Evaluate(curve *domain.NormalizedCurve, points []float64) ([]float64, error) {
	b, err := e.Basis(curve.Basis)
	if err != nil {
		return nil, fmt.Errorf("basis for %s %s: %w", curve.Side, curve.Key, err)
	}
	return EvaluateCurve(b, curve, points)
}
