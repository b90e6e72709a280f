package reporting

import (
	"time"

	"spot-curve-lab/internal/domain"
)

// Report represents the summary of one smoothing pass.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Basis       domain.BasisSpec

	Summary RunSummary

	// Per side (DEMAND, SUPPLY)
	Sides []SideSummaryRow

	// Skips, sorted by (side, date, hour)
	SkipReasons  []SkipReasonRow
	SkippedUnits []SkippedUnitRow

	// Selected lambda counts, ascending lambda
	LambdaHistogram []LambdaBucketRow

	// Nil when the pass was not verified
	Verification *VerificationSummary
}

// RunSummary contains pass-level counts.
type RunSummary struct {
	UnitsTotal     int
	CurvesStored   int
	UnitsSkipped   int
	UnitsExisting  int
	Interrupted    bool
	Duration       time.Duration
	DateRangeStart string // first unit date, YYYY-MM-DD
	DateRangeEnd   string
}

// SideSummaryRow aggregates the curves of one side.
type SideSummaryRow struct {
	Side         domain.Side
	Curves       int
	Skipped      int
	NonMonotonic int
	MeanVmax     float64
	MeanDF       float64
}

// SkipReasonRow counts skipped units by reason.
type SkipReasonRow struct {
	Reason domain.SkipReason
	Count  int
}

// SkippedUnitRow lists one skipped unit.
type SkippedUnitRow struct {
	Side   domain.Side
	Unit   string
	Reason domain.SkipReason
	Detail string
}

// LambdaBucketRow counts curves per selected lambda.
type LambdaBucketRow struct {
	Lambda float64
	Count  int
}

// VerificationSummary condenses a verification report.
type VerificationSummary struct {
	Verified    int
	Matched     int
	Divergent   int
	MaxError    float64
	MaxRMS      float64
	Divergences []string // "SIDE unit: field" lines, at most maxDivergenceLines
}
