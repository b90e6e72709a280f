package domain

// BasisSpec describes the shared spline basis every curve is expressed in.
// It is exported with the results so coefficients can be re-evaluated later.
type BasisSpec struct {
	Order    int     `yaml:"order"`     // spline order (degree + 1)
	NBasis   int     `yaml:"nbasis"`    // number of basis functions
	RangeMin float64 `yaml:"range_min"` // domain lower bound
	RangeMax float64 `yaml:"range_max"` // domain upper bound
	GridSize int     `yaml:"grid_size"` // points of the fixed evaluation grid
}

// Default basis parameters.
const (
	DefaultBasisOrder   = 6
	DefaultBasisCount   = 18
	DefaultGridSize     = 201
	DefaultPenaltyDeriv = 4
)

// DefaultBasisSpec returns order 6, 18 functions over [0,1] on a 201-point grid.
func DefaultBasisSpec() BasisSpec {
	return BasisSpec{
		Order:    DefaultBasisOrder,
		NBasis:   DefaultBasisCount,
		RangeMin: 0,
		RangeMax: 1,
		GridSize: DefaultGridSize,
	}
}
