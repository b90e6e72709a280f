// Package spline provides the B-spline basis shared by every fitted curve.
// A Basis is immutable after construction and safe for concurrent readers.
package spline

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"spot-curve-lab/internal/domain"
)

// Errors returned by basis construction and evaluation.
var (
	ErrInvalidSpec       = errors.New("invalid basis spec")
	ErrCoefficientLength = errors.New("coefficient length does not match basis size")
)

// Basis is a B-spline basis over [RangeMin, RangeMax] with equally spaced
// interior knots and Order-fold boundary knots.
type Basis struct {
	spec  domain.BasisSpec
	knots []float64

	grid       []float64
	gridMatrix *mat.Dense // GridSize x NBasis, never handed out mutable
}

// New validates the basis parameters, builds the knot vector and caches the evaluation
// matrix on the fixed grid.
func New(spec domain.BasisSpec) (*Basis, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	b := &Basis{
		spec:  spec,
		knots: buildKnots(spec),
	}
	b.grid = Grid(spec.RangeMin, spec.RangeMax, spec.GridSize)
	b.gridMatrix = b.Matrix(b.grid)

	return b, nil
}

// MustNew is New that panics on an invalid spec. Intended for package-level defaults and tests.
func MustNew(spec domain.BasisSpec) *Basis {
	b, err := New(spec)
	if err != nil {
		panic(err)
	}
	return b
}

func validateSpec(spec domain.BasisSpec) error {
	if spec.Order < 1 {
		return fmt.Errorf("%w: order %d < 1", ErrInvalidSpec, spec.Order)
	}
	if spec.NBasis < spec.Order {
		return fmt.Errorf("%w: nbasis %d < order %d", ErrInvalidSpec, spec.NBasis, spec.Order)
	}
	if !(spec.RangeMax > spec.RangeMin) {
		return fmt.Errorf("%w: empty range [%v, %v]", ErrInvalidSpec, spec.RangeMin, spec.RangeMax)
	}
	if spec.GridSize < 2 {
		return fmt.Errorf("%w: grid size %d < 2", ErrInvalidSpec, spec.GridSize)
	}
	return nil
}

// buildKnots returns Order copies of RangeMin, NBasis-Order equally spaced
// interior knots and Order copies of RangeMax.
func buildKnots(spec domain.BasisSpec) []float64 {
	interior := spec.NBasis - spec.Order
	knots := make([]float64, 0, spec.NBasis+spec.Order)
	for i := 0; i < spec.Order; i++ {
		knots = append(knots, spec.RangeMin)
	}
	width := spec.RangeMax - spec.RangeMin
	for i := 1; i <= interior; i++ {
		knots = append(knots, spec.RangeMin+width*float64(i)/float64(interior+1))
	}
	for i := 0; i < spec.Order; i++ {
		knots = append(knots, spec.RangeMax)
	}
	return knots
}

// Grid returns n evenly spaced points over [lo, hi]; the last point is exactly hi.
func Grid(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	points := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range points {
		points[i] = lo + step*float64(i)
	}
	points[n-1] = hi
	return points
}

// Spec returns the basis definition.
func (b *Basis) Spec() domain.BasisSpec {
	return b.spec
}

// Size returns the number of basis functions.
func (b *Basis) Size() int {
	return b.spec.NBasis
}

// Knots returns a copy of the knot vector.
func (b *Basis) Knots() []float64 {
	return append([]float64(nil), b.knots...)
}

// GridPoints returns a copy of the fixed evaluation grid.
func (b *Basis) GridPoints() []float64 {
	return append([]float64(nil), b.grid...)
}

// GridMatrix returns the cached evaluation matrix on the fixed grid.
// The returned value is read-only.
func (b *Basis) GridMatrix() mat.Matrix {
	return b.gridMatrix
}

// Eval returns the value of every basis function at x.
// Points outside the range evaluate to zero.
func (b *Basis) Eval(x float64) []float64 {
	return b.EvalDeriv(x, 0)
}

// EvalDeriv returns the m-th derivative of every basis function at x.
func (b *Basis) EvalDeriv(x float64, m int) []float64 {
	k := b.spec.Order
	out := make([]float64, b.spec.NBasis)
	if m < 0 || m >= k || x < b.spec.RangeMin || x > b.spec.RangeMax {
		return out
	}

	// Values of order k-m, then raise the order m times applying the derivative recursion:
	// D^s B(j,r) = (r-1) * (D^(s-1) B(j,r-1) / (t[j+r-1]-t[j]) - D^(s-1) B(j+1,r-1) / (t[j+r]-t[j+1]))
	cur := b.values(x, k-m)
	t := b.knots
	for r := k - m + 1; r <= k; r++ {
		next := make([]float64, len(t)-r)
		for j := range next {
			var v float64
			if d := t[j+r-1] - t[j]; d > 0 {
				v += cur[j] / d
			}
			if d := t[j+r] - t[j+1]; d > 0 {
				v -= cur[j+1] / d
			}
			next[j] = float64(r-1) * v
		}
		cur = next
	}

	copy(out, cur)
	return out
}

// values evaluates all B-splines of the given order at x by the Cox-de Boor recursion.
// The result has len(knots)-order entries.
func (b *Basis) values(x float64, order int) []float64 {
	t := b.knots
	n := len(t) - 1
	cur := make([]float64, n)

	if x >= b.spec.RangeMax {
		// Close the last non-degenerate interval on the right.
		for j := n - 1; j >= 0; j-- {
			if t[j] < t[j+1] {
				cur[j] = 1
				break
			}
		}
	} else {
		for j := 0; j < n; j++ {
			if t[j] <= x && x < t[j+1] {
				cur[j] = 1
				break
			}
		}
	}

	for k := 2; k <= order; k++ {
		next := make([]float64, len(t)-k)
		for j := range next {
			var v float64
			if d := t[j+k-1] - t[j]; d > 0 {
				v += (x - t[j]) / d * cur[j]
			}
			if d := t[j+k] - t[j+1]; d > 0 {
				v += (t[j+k] - x) / d * cur[j+1]
			}
			next[j] = v
		}
		cur = next
	}

	return cur
}

// Matrix returns the len(points) x NBasis evaluation matrix.
func (b *Basis) Matrix(points []float64) *mat.Dense {
	return b.DerivMatrix(points, 0)
}

// DerivMatrix returns the len(points) x NBasis matrix of m-th derivatives.
func (b *Basis) DerivMatrix(points []float64, m int) *mat.Dense {
	if len(points) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(points), b.spec.NBasis, nil)
	for i, x := range points {
		out.SetRow(i, b.EvalDeriv(x, m))
	}
	return out
}

// Expand evaluates the basis expansion sum(c_k * phi_k) at each point.
func (b *Basis) Expand(coefs, points []float64) ([]float64, error) {
	if len(coefs) != b.spec.NBasis {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCoefficientLength, len(coefs), b.spec.NBasis)
	}
	out := make([]float64, len(points))
	for i, x := range points {
		phi := b.Eval(x)
		var s float64
		for k, c := range coefs {
			s += c * phi[k]
		}
		out[i] = s
	}
	return out, nil
}
