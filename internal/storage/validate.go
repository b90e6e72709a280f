package storage

import (
	"fmt"
	"math"

	"spot-curve-lab/internal/domain"
)

// ValidateBidRecord checks the fields every backend relies on.
func ValidateBidRecord(side domain.Side, r *domain.BidRecord) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidInput)
	}
	if !side.IsValid() {
		return fmt.Errorf("%w: side %q", ErrInvalidInput, side)
	}
	if r.Date.IsZero() || !domain.IsValidHour(r.Hour) {
		return fmt.Errorf("%w: key %s", ErrInvalidInput, r.Key())
	}
	if r.Quantity < 0 || math.IsNaN(r.Quantity) || math.IsNaN(r.Price) {
		return fmt.Errorf("%w: record %s price=%v quantity=%v", ErrInvalidInput, r.Key(), r.Price, r.Quantity)
	}
	return nil
}

// ValidateCurve checks a curve before it is stored. No partial curve is ever stored.
func ValidateCurve(c *domain.NormalizedCurve) error {
	if c == nil {
		return fmt.Errorf("%w: nil curve", ErrInvalidInput)
	}
	if !c.Side.IsValid() || c.Key.Date.IsZero() || !domain.IsValidHour(c.Key.Hour) {
		return fmt.Errorf("%w: curve key %s %s", ErrInvalidInput, c.Side, c.Key)
	}
	if len(c.Coefficients) == 0 || len(c.Coefficients) != c.Basis.NBasis {
		return fmt.Errorf("%w: curve %s has %d coefficients for basis of %d",
			ErrInvalidInput, c.Key, len(c.Coefficients), c.Basis.NBasis)
	}
	if len(c.Volumes) == 0 || len(c.Volumes) != len(c.Prices) {
		return fmt.Errorf("%w: curve %s samples mismatch", ErrInvalidInput, c.Key)
	}
	if !(c.Vmax > 0) {
		return fmt.Errorf("%w: curve %s vmax %v", ErrInvalidInput, c.Key, c.Vmax)
	}
	return nil
}

// ValidateSkippedUnit checks a skipped unit record.
func ValidateSkippedUnit(u *domain.SkippedUnit) error {
	if u == nil || u.RunID == "" || !u.Reason.IsValid() || !u.Side.IsValid() || !domain.IsValidHour(u.Key.Hour) {
		return ErrInvalidInput
	}
	return nil
}
