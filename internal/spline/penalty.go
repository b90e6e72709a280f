package spline

import (
	"gonum.org/v1/gonum/mat"
)

// Five-point Gauss-Legendre rule on [-1, 1]. Exact for polynomials up to degree 9,
// which covers products of derivatives of order-6 splines.
var (
	gaussNodes   = [5]float64{-0.9061798459386640, -0.5384693101056831, 0, 0.5384693101056831, 0.9061798459386640}
	gaussWeights = [5]float64{0.2369268850561891, 0.4786286704993665, 0.5688888888888889, 0.4786286704993665, 0.2369268850561891}
)

// Penalty returns the roughness matrix R[i][j] = integral of D^m phi_i * D^m phi_j
// over the basis range. The result is a fresh matrix owned by the caller.
func (b *Basis) Penalty(m int) *mat.SymDense {
	n := b.spec.NBasis
	r := mat.NewSymDense(n, nil)
	t := b.knots

	for i := 0; i+1 < len(t); i++ {
		lo, hi := t[i], t[i+1]
		if !(hi > lo) {
			continue
		}
		half := (hi - lo) / 2
		mid := (hi + lo) / 2
		for q, node := range gaussNodes {
			x := mid + half*node
			w := gaussWeights[q] * half
			d := b.EvalDeriv(x, m)
			for a := 0; a < n; a++ {
				if d[a] == 0 {
					continue
				}
				for c := a; c < n; c++ {
					if d[c] == 0 {
						continue
					}
					r.SetSym(a, c, r.At(a, c)+w*d[a]*d[c])
				}
			}
		}
	}

	return r
}
