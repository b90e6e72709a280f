// Package lookup indexes stored curves by calendar attributes for downstream
// consumers. An index is built once, after the pass has stored every curve.
package lookup

import (
	"errors"
	"sort"

	"spot-curve-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrCurveNotFound = errors.New("curve not found")
	ErrBasisMismatch = errors.New("curve basis does not match evaluator basis")
)

type entryKey struct {
	side domain.Side
	date string
	hour int
}

func keyOf(side domain.Side, k domain.UnitKey) entryKey {
	return entryKey{side: side, date: k.Date.Format("2006-01-02"), hour: k.Hour}
}

// CurveIndex is a read-only view of a set of curves, ordered by (date, hour, side).
type CurveIndex struct {
	curves []*domain.NormalizedCurve
	byKey  map[entryKey]*domain.NormalizedCurve
	byHour map[int][]*domain.NormalizedCurve
}

// BuildCurveIndex copies the curves into an index. Later changes to the
// input slice or its curves do not affect the index.
func BuildCurveIndex(curves []*domain.NormalizedCurve) *CurveIndex {
	idx := &CurveIndex{
		curves: make([]*domain.NormalizedCurve, 0, len(curves)),
		byKey:  make(map[entryKey]*domain.NormalizedCurve, len(curves)),
		byHour: make(map[int][]*domain.NormalizedCurve),
	}

	for _, c := range curves {
		if c == nil {
			continue
		}
		cp := c.Clone()
		idx.curves = append(idx.curves, cp)
	}

	sort.SliceStable(idx.curves, func(i, j int) bool {
		a, b := idx.curves[i], idx.curves[j]
		if !a.Key.Date.Equal(b.Key.Date) || a.Key.Hour != b.Key.Hour {
			return a.Key.Before(b.Key)
		}
		return a.Side < b.Side
	})

	for _, c := range idx.curves {
		idx.byKey[keyOf(c.Side, c.Key)] = c
		idx.byHour[c.Hour()] = append(idx.byHour[c.Hour()], c)
	}

	return idx
}

// Len returns the number of indexed curves.
func (idx *CurveIndex) Len() int {
	return len(idx.curves)
}

// Get returns the curve of one unit.
func (idx *CurveIndex) Get(side domain.Side, key domain.UnitKey) (*domain.NormalizedCurve, error) {
	c, ok := idx.byKey[keyOf(side, key)]
	if !ok {
		return nil, ErrCurveNotFound
	}
	return c, nil
}

// Select returns the curves matching the filter in index order.
// Callers must not modify the returned curves.
func (idx *CurveIndex) Select(filter domain.CurveFilter) []*domain.NormalizedCurve {
	candidates := idx.curves
	if filter.Hour != nil {
		candidates = idx.byHour[*filter.Hour]
	}

	var out []*domain.NormalizedCurve
	for _, c := range candidates {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Years returns the distinct years present, ascending.
func (idx *CurveIndex) Years() []int {
	return idx.distinct(func(c *domain.NormalizedCurve) int { return c.Year() })
}

// Months returns the distinct months (1-12) present, ascending.
func (idx *CurveIndex) Months() []int {
	return idx.distinct(func(c *domain.NormalizedCurve) int { return c.Month() })
}

// Weekdays returns the distinct weekdays (0 = Sunday) present, ascending.
func (idx *CurveIndex) Weekdays() []int {
	return idx.distinct(func(c *domain.NormalizedCurve) int { return c.Weekday() })
}

// Hours returns the distinct hours present, ascending.
func (idx *CurveIndex) Hours() []int {
	hours := make([]int, 0, len(idx.byHour))
	for h := range idx.byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

func (idx *CurveIndex) distinct(field func(*domain.NormalizedCurve) int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, c := range idx.curves {
		v := field(c)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
