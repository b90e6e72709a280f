package domain

import (
	"errors"
	"fmt"
)

// SkipReason classifies why a unit produced no curve.
type SkipReason string

const (
	SkipEmptyLadder          SkipReason = "EMPTY_LADDER"
	SkipDegenerateVolume     SkipReason = "DEGENERATE_VOLUME"
	SkipSmoothingConvergence SkipReason = "SMOOTHING_CONVERGENCE"
)

// String returns the string representation of SkipReason.
func (r SkipReason) String() string {
	return string(r)
}

// IsValid checks if the reason is a valid value.
func (r SkipReason) IsValid() bool {
	switch r {
	case SkipEmptyLadder, SkipDegenerateVolume, SkipSmoothingConvergence:
		return true
	}
	return false
}

// SkippedUnit records a (side, date, hour) that was recovered at the unit level.
type SkippedUnit struct {
	Key    UnitKey
	Side   Side
	Reason SkipReason
	Detail string // error message
	RunID  string
}

// UnitError is returned by per-unit processing when the unit must be skipped.
// It wraps the underlying sentinel so callers can match with errors.Is.
type UnitError struct {
	Key    UnitKey
	Side   Side
	Reason SkipReason
	Err    error
}

// Error implements error.
func (e *UnitError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Side, e.Key, e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// AsSkipped converts the error into a SkippedUnit record.
func (e *UnitError) AsSkipped(runID string) *SkippedUnit {
	detail := ""
	if e.Err != nil {
		detail = e.Err.Error()
	}
	return &SkippedUnit{
		Key:    e.Key,
		Side:   e.Side,
		Reason: e.Reason,
		Detail: detail,
		RunID:  runID,
	}
}

// AsUnitError extracts a UnitError from an error chain.
func AsUnitError(err error) (*UnitError, bool) {
	var ue *UnitError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
