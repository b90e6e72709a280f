package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/storage"
	"spot-curve-lab/internal/verification"
)

// maxDivergenceLines caps the divergences listed in a report.
const maxDivergenceLines = 20

// Input is everything a report is built from.
type Input struct {
	RunID        string
	Basis        domain.BasisSpec
	UnitsTotal   int
	Existing     int
	Interrupted  bool
	Duration     time.Duration
	Curves       []*domain.NormalizedCurve
	Skipped      []*domain.SkippedUnit
	Verification *verification.VerificationReport
}

// Generator produces reports from stored data.
type Generator struct {
	curveStore storage.CurveStore
	skipStore  storage.SkipStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(curveStore storage.CurveStore, skipStore storage.SkipStore) *Generator {
	return &Generator{
		curveStore: curveStore,
		skipStore:  skipStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of a stored run from the curve and skip stores.
func (g *Generator) Generate(ctx context.Context, runID string, basis domain.BasisSpec) (*Report, error) {
	curves, err := g.RunCurves(ctx, runID)
	if err != nil {
		return nil, err
	}

	var skipped []*domain.SkippedUnit
	if g.skipStore != nil {
		skipped, err = g.skipStore.GetByRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load skipped units: %w", err)
		}
	}

	return g.Build(Input{
		RunID:      runID,
		Basis:      basis,
		UnitsTotal: len(curves) + len(skipped),
		Curves:     curves,
		Skipped:    skipped,
	}), nil
}

// RunCurves returns the stored curves stamped with runID, ordered by (date, hour, side).
func (g *Generator) RunCurves(ctx context.Context, runID string) ([]*domain.NormalizedCurve, error) {
	all, err := g.curveStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load curves: %w", err)
	}
	var curves []*domain.NormalizedCurve
	for _, c := range all {
		if c.RunID == runID {
			curves = append(curves, c)
		}
	}
	return curves, nil
}

// Build produces a report from in-memory results.
func (g *Generator) Build(in Input) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		RunID:       in.RunID,
		Basis:       in.Basis,
		Summary: RunSummary{
			UnitsTotal:    in.UnitsTotal,
			CurvesStored:  len(in.Curves),
			UnitsSkipped:  len(in.Skipped),
			UnitsExisting: in.Existing,
			Interrupted:   in.Interrupted,
			Duration:      in.Duration,
		},
	}
	if in.Interrupted {
		r.Summary.CurvesStored = 0
	}

	r.Summary.DateRangeStart, r.Summary.DateRangeEnd = dateRange(in.Curves, in.Skipped)
	r.Sides = sideSummaries(in.Curves, in.Skipped)
	r.SkipReasons = skipReasons(in.Skipped)
	r.SkippedUnits = skippedUnits(in.Skipped)
	r.LambdaHistogram = lambdaHistogram(in.Curves)
	if in.Verification != nil {
		r.Verification = summarizeVerification(in.Verification)
	}

	return r
}

func dateRange(curves []*domain.NormalizedCurve, skipped []*domain.SkippedUnit) (string, string) {
	var first, last time.Time
	observe := func(t time.Time) {
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	for _, c := range curves {
		observe(c.Key.Date)
	}
	for _, s := range skipped {
		observe(s.Key.Date)
	}
	if first.IsZero() {
		return "", ""
	}
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}

func sideSummaries(curves []*domain.NormalizedCurve, skipped []*domain.SkippedUnit) []SideSummaryRow {
	rows := make(map[domain.Side]*SideSummaryRow)
	get := func(side domain.Side) *SideSummaryRow {
		row, ok := rows[side]
		if !ok {
			row = &SideSummaryRow{Side: side}
			rows[side] = row
		}
		return row
	}

	for _, c := range curves {
		row := get(c.Side)
		row.Curves++
		row.MeanVmax += c.Vmax
		row.MeanDF += c.DegreesOfFreedom
		if !c.Monotonic {
			row.NonMonotonic++
		}
	}
	for _, s := range skipped {
		get(s.Side).Skipped++
	}

	out := make([]SideSummaryRow, 0, len(rows))
	for _, row := range rows {
		if row.Curves > 0 {
			row.MeanVmax /= float64(row.Curves)
			row.MeanDF /= float64(row.Curves)
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Side < out[j].Side })
	return out
}

func skipReasons(skipped []*domain.SkippedUnit) []SkipReasonRow {
	counts := make(map[domain.SkipReason]int)
	for _, s := range skipped {
		counts[s.Reason]++
	}

	out := make([]SkipReasonRow, 0, len(counts))
	for reason, n := range counts {
		out = append(out, SkipReasonRow{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reason < out[j].Reason })
	return out
}

func skippedUnits(skipped []*domain.SkippedUnit) []SkippedUnitRow {
	sorted := make([]*domain.SkippedUnit, len(skipped))
	copy(sorted, skipped)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.Key.Before(b.Key)
	})

	out := make([]SkippedUnitRow, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, SkippedUnitRow{
			Side:   s.Side,
			Unit:   s.Key.String(),
			Reason: s.Reason,
			Detail: s.Detail,
		})
	}
	return out
}

func lambdaHistogram(curves []*domain.NormalizedCurve) []LambdaBucketRow {
	counts := make(map[float64]int)
	for _, c := range curves {
		counts[c.Lambda]++
	}

	out := make([]LambdaBucketRow, 0, len(counts))
	for l, n := range counts {
		out = append(out, LambdaBucketRow{Lambda: l, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lambda < out[j].Lambda })
	return out
}

func summarizeVerification(v *verification.VerificationReport) *VerificationSummary {
	s := &VerificationSummary{
		Verified:  v.TotalCurves,
		Matched:   v.MatchedCurves,
		Divergent: v.DivergentCurves,
		MaxError:  v.MaxRoundTrip.Max,
		MaxRMS:    v.MaxRoundTrip.RMS,
	}
	for _, res := range v.Results {
		for _, d := range res.Divergences {
			if len(s.Divergences) == maxDivergenceLines {
				return s
			}
			s.Divergences = append(s.Divergences, fmt.Sprintf("%s %s: %s", res.Side, res.Key, d.Field))
		}
	}
	return s
}
