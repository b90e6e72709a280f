package normalization

import (
	"fmt"
	"sort"

	"spot-curve-lab/internal/domain"
)

// StepFunction is a right-continuous step function over normalized volume.
// At(v) is the value of the last breakpoint <= v; values left of the first
// breakpoint take the first value and values beyond the last take the last.
type StepFunction struct {
	breakpoints []float64
	values      []float64
}

// NewStepFunction validates and copies breakpoints and values.
// Breakpoints must be non-empty, non-decreasing and match values in length.
func NewStepFunction(breakpoints, values []float64) (*StepFunction, error) {
	if len(breakpoints) == 0 || len(breakpoints) != len(values) {
		return nil, fmt.Errorf("%w: %d breakpoints, %d values", ErrBreakpoints, len(breakpoints), len(values))
	}
	for i := 1; i < len(breakpoints); i++ {
		if breakpoints[i] < breakpoints[i-1] {
			return nil, fmt.Errorf("%w: decreasing at %d", ErrBreakpoints, i)
		}
	}
	return &StepFunction{
		breakpoints: append([]float64(nil), breakpoints...),
		values:      append([]float64(nil), values...),
	}, nil
}

// BuildStepFunction maps the ladder onto its normalized volumes.
// Breakpoint k carries the price of the rung whose fill starts there; the
// closing breakpoint (volume 1) repeats the last price.
func BuildStepFunction(ladder *domain.BidLadder, volumes []float64) (*StepFunction, error) {
	if ladder.Len()+1 != len(volumes) {
		return nil, fmt.Errorf("%w: %d rungs, %d volumes", ErrBreakpoints, ladder.Len(), len(volumes))
	}
	prices := make([]float64, len(volumes))
	for i, r := range ladder.Rungs {
		prices[i] = r.Price
	}
	prices[len(prices)-1] = ladder.Rungs[ladder.Len()-1].Price

	return NewStepFunction(volumes, prices)
}

// At evaluates the step function at v.
func (f *StepFunction) At(v float64) float64 {
	// First breakpoint strictly greater than v; the one before it is the last <= v.
	i := sort.Search(len(f.breakpoints), func(i int) bool {
		return f.breakpoints[i] > v
	})
	if i == 0 {
		return f.values[0]
	}
	return f.values[i-1]
}

// EvalAt evaluates the step function at every point.
func (f *StepFunction) EvalAt(points []float64) []float64 {
	out := make([]float64, len(points))
	for i, v := range points {
		out[i] = f.At(v)
	}
	return out
}

// Breakpoints returns a copy of the breakpoints.
func (f *StepFunction) Breakpoints() []float64 {
	return append([]float64(nil), f.breakpoints...)
}

// Values returns a copy of the step values.
func (f *StepFunction) Values() []float64 {
	return append([]float64(nil), f.values...)
}
