package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Bid Curve Smoothing Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Basis: B-spline order %d, %d functions on [%g, %g], %d-point grid\n\n",
		r.Basis.Order, r.Basis.NBasis, r.Basis.RangeMin, r.Basis.RangeMax, r.Basis.GridSize))

	if r.Summary.Interrupted {
		sb.WriteString("**Pass interrupted.** Completed units are listed below and exported as partial curves; no curve was stored.\n\n")
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Units | %d |\n", r.Summary.UnitsTotal))
	sb.WriteString(fmt.Sprintf("| Curves Stored | %d |\n", r.Summary.CurvesStored))
	sb.WriteString(fmt.Sprintf("| Units Skipped | %d |\n", r.Summary.UnitsSkipped))
	if r.Summary.UnitsExisting > 0 {
		sb.WriteString(fmt.Sprintf("| Units Already Stored | %d |\n", r.Summary.UnitsExisting))
	}
	if r.Summary.DateRangeStart != "" {
		sb.WriteString(fmt.Sprintf("| Date Range | %s to %s |\n", r.Summary.DateRangeStart, r.Summary.DateRangeEnd))
	}
	if r.Summary.Duration > 0 {
		sb.WriteString(fmt.Sprintf("| Duration | %s |\n", r.Summary.Duration.Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	// Sides
	if len(r.Sides) > 0 {
		sb.WriteString("## Sides\n\n")
		sb.WriteString("| Side | Curves | Skipped | Non-monotonic | Mean Vmax | Mean DF |\n")
		sb.WriteString("|------|--------|---------|---------------|-----------|---------|\n")
		for _, s := range r.Sides {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f | %.2f |\n",
				s.Side, s.Curves, s.Skipped, s.NonMonotonic, s.MeanVmax, s.MeanDF))
		}
		sb.WriteString("\n")
	}

	// Lambda
	if len(r.LambdaHistogram) > 0 {
		sb.WriteString("## Selected Lambda\n\n")
		sb.WriteString("| Lambda | Curves |\n")
		sb.WriteString("|--------|--------|\n")
		for _, b := range r.LambdaHistogram {
			sb.WriteString(fmt.Sprintf("| %.4g | %d |\n", b.Lambda, b.Count))
		}
		sb.WriteString("\n")
	}

	// Skips
	sb.WriteString("## Skipped Units\n\n")
	if len(r.SkippedUnits) == 0 {
		sb.WriteString("None.\n\n")
	} else {
		for _, s := range r.SkipReasons {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", s.Reason, s.Count))
		}
		sb.WriteString("\n")
		sb.WriteString("| Side | Unit | Reason | Detail |\n")
		sb.WriteString("|------|------|--------|--------|\n")
		for _, s := range r.SkippedUnits {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				s.Side, s.Unit, s.Reason, escapeCell(s.Detail)))
		}
		sb.WriteString("\n")
	}

	// Verification
	if v := r.Verification; v != nil {
		sb.WriteString("## Verification\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Curves Verified | %d |\n", v.Verified))
		sb.WriteString(fmt.Sprintf("| Rebuild Matches | %d |\n", v.Matched))
		sb.WriteString(fmt.Sprintf("| Rebuild Divergences | %d |\n", v.Divergent))
		sb.WriteString(fmt.Sprintf("| Max Round-trip Error | %.6f |\n", v.MaxError))
		sb.WriteString(fmt.Sprintf("| Max Round-trip RMS | %.6f |\n", v.MaxRMS))
		sb.WriteString("\n")
		for _, d := range v.Divergences {
			sb.WriteString(fmt.Sprintf("- %s\n", d))
		}
		if len(v.Divergences) > 0 {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
