package reporting

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/idhash"
)

// RenderCurvesCSV renders curves as CSV string, one row per curve with its
// calendar fields, a coefficient digest and coefficients c1..cK.
// K is taken from the first curve.
func RenderCurvesCSV(curves []*domain.NormalizedCurve) string {
	var sb strings.Builder

	nb := domain.DefaultBasisCount
	if len(curves) > 0 {
		nb = len(curves[0].Coefficients)
	}

	// Header
	sb.WriteString("side,date,hour,year,month,day,weekday,vmax,lambda,gcv,dof,zone_clearing_price,monotonic,digest")
	for k := 1; k <= nb; k++ {
		sb.WriteString(fmt.Sprintf(",c%d", k))
	}
	sb.WriteString("\n")

	// Rows
	for _, c := range curves {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%s,%s,%s,%s,%s,%t,%s",
			c.Side,
			c.Key.Date.Format("2006-01-02"),
			c.Hour(),
			c.Year(),
			c.Month(),
			c.Day(),
			c.Weekday(),
			formatFloat(c.Vmax),
			formatFloat(c.Lambda),
			formatFloat(c.GCV),
			formatFloat(c.DegreesOfFreedom),
			formatFloat(c.ZoneClearingPrice),
			c.Monotonic,
			idhash.ComputeCurveDigest(c.Side, c.Key, c.Coefficients),
		))
		for _, v := range c.Coefficients {
			sb.WriteString(",")
			sb.WriteString(formatFloat(v))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatFloat writes the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// PartialName names the export of an interrupted pass, whose curves were
// never stored: curves.csv becomes curves.partial.csv.
func PartialName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".partial" + ext
}
