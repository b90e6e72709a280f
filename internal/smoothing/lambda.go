package smoothing

import "math"

// Default logarithmic lambda grid: 10^-4 .. 10^-1, step 0.25 in the exponent.
const (
	DefaultLambdaMinExp  = -4.0
	DefaultLambdaMaxExp  = -1.0
	DefaultLambdaExpStep = 0.25
)

// LambdaGrid returns 10^e for e = minExp, minExp+step, ..., maxExp (inclusive).
// Returns nil for a non-positive step or an inverted range.
func LambdaGrid(minExp, maxExp, step float64) []float64 {
	if !(step > 0) || maxExp < minExp {
		return nil
	}
	n := int(math.Round((maxExp-minExp)/step)) + 1
	lambdas := make([]float64, n)
	for i := range lambdas {
		lambdas[i] = math.Pow(10, minExp+float64(i)*step)
	}
	return lambdas
}

// DefaultLambdaGrid returns the 13-point default candidate grid.
func DefaultLambdaGrid() []float64 {
	return LambdaGrid(DefaultLambdaMinExp, DefaultLambdaMaxExp, DefaultLambdaExpStep)
}
