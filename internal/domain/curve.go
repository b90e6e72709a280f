package domain

// NormalizedCurve is the functional representation of one bid ladder.
// Created once per (side, date, hour) by the smoothing pass; read-only afterwards.
// Recomputation produces a new curve.
type NormalizedCurve struct {
	Key  UnitKey
	Side Side

	Vmax              float64   // maximum (total) called volume of the ladder
	Volumes           []float64 // normalized volume breakpoints, first is 0
	Prices            []float64 // step value at each breakpoint
	Coefficients      []float64 // fitted coefficients over Basis
	Lambda            float64   // selected roughness weight
	GCV               float64   // GCV score at Lambda
	DegreesOfFreedom  float64   // trace of the smoother matrix at Lambda
	ZoneClearingPrice float64   // realized clearing price of the unit
	Monotonic         bool      // ladder prices followed the side's expected order

	Basis BasisSpec // basis the coefficients refer to
	RunID string    // batch run that produced the curve
}

// Year returns the calendar year of the unit.
func (c *NormalizedCurve) Year() int { return c.Key.Year() }

// Month returns the calendar month of the unit.
func (c *NormalizedCurve) Month() int { return c.Key.Month() }

// Day returns the day of month of the unit.
func (c *NormalizedCurve) Day() int { return c.Key.Day() }

// Weekday returns the day of week (0 = Sunday) of the unit.
func (c *NormalizedCurve) Weekday() int { return c.Key.Weekday() }

// Hour returns the delivery hour of the unit.
func (c *NormalizedCurve) Hour() int { return c.Key.Hour }

// Clone returns a deep copy so stores never share slices with callers.
func (c *NormalizedCurve) Clone() *NormalizedCurve {
	cp := *c
	cp.Volumes = append([]float64(nil), c.Volumes...)
	cp.Prices = append([]float64(nil), c.Prices...)
	cp.Coefficients = append([]float64(nil), c.Coefficients...)
	return &cp
}

// CurveFilter selects curves by calendar attributes. Nil fields match everything.
type CurveFilter struct {
	Side    *Side
	Year    *int
	Month   *int
	Day     *int
	Weekday *int
	Hour    *int
}

// Matches reports whether the curve satisfies every set field.
func (f CurveFilter) Matches(c *NormalizedCurve) bool {
	if f.Side != nil && c.Side != *f.Side {
		return false
	}
	if f.Year != nil && c.Year() != *f.Year {
		return false
	}
	if f.Month != nil && c.Month() != *f.Month {
		return false
	}
	if f.Day != nil && c.Day() != *f.Day {
		return false
	}
	if f.Weekday != nil && c.Weekday() != *f.Weekday {
		return false
	}
	if f.Hour != nil && c.Hour() != *f.Hour {
		return false
	}
	return true
}
