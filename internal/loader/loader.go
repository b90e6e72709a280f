// Package loader reads bid datasets (CSV or XLSX) into domain records.
//
// A dataset is a header row followed by one bid per row. The header must name
// the columns date, hour, price, quantity and zone_clearing_price in any order
// and any case; extra columns are ignored. A missing column is structural and
// fails the whole load before any row is parsed.
package loader

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spot-curve-lab/internal/domain"
)

var (
	// ErrMissingColumn is returned when a required header column is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrMalformedRow is returned when a row cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")

	// ErrUnsupportedFormat is returned for file extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	// ErrEmptyDataset is returned when the file has no header row.
	ErrEmptyDataset = errors.New("empty dataset")
)

// Column names of the data contract.
const (
	ColumnDate              = "date"
	ColumnHour              = "hour"
	ColumnPrice             = "price"
	ColumnQuantity          = "quantity"
	ColumnZoneClearingPrice = "zone_clearing_price"
)

var requiredColumns = []string{
	ColumnDate,
	ColumnHour,
	ColumnPrice,
	ColumnQuantity,
	ColumnZoneClearingPrice,
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"01-02-06", // excelize default rendering of date cells
}

// RowError describes a malformed row. Line is 1-based and counts the header.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %s value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

// Is matches ErrMalformedRow.
func (e *RowError) Is(target error) bool {
	return target == ErrMalformedRow
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Load reads the dataset at path, choosing the reader by file extension.
func Load(path string) ([]*domain.BidRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSVFile(path)
	case ".xlsx":
		return LoadXLSX(path, "")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// header maps required column names to their index in a row.
type header map[string]int

// parseHeader resolves every required column. All missing columns are reported at once.
func parseHeader(row []string) (header, error) {
	h := make(header, len(requiredColumns))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return h, nil
}

// rows converts data rows (header excluded) into records. firstLine is the
// file line of rows[0]. Blank rows are skipped.
func (h header) rows(rows [][]string, firstLine int) ([]*domain.BidRecord, error) {
	records := make([]*domain.BidRecord, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		rec, err := h.parseRow(row, firstLine+i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (h header) parseRow(row []string, line int) (*domain.BidRecord, error) {
	cell := func(col string) string {
		idx := h[col]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	fail := func(col string, err error) error {
		return &RowError{Line: line, Column: col, Value: cell(col), Err: err}
	}

	date, err := parseDate(cell(ColumnDate))
	if err != nil {
		return nil, fail(ColumnDate, err)
	}

	hour, err := strconv.Atoi(cell(ColumnHour))
	if err != nil {
		return nil, fail(ColumnHour, err)
	}
	if !domain.IsValidHour(hour) {
		return nil, fail(ColumnHour, errors.New("hour out of range 1..24"))
	}

	price, err := parseNumber(cell(ColumnPrice))
	if err != nil {
		return nil, fail(ColumnPrice, err)
	}

	quantity, err := parseNumber(cell(ColumnQuantity))
	if err != nil {
		return nil, fail(ColumnQuantity, err)
	}
	if quantity < 0 {
		return nil, fail(ColumnQuantity, errors.New("negative quantity"))
	}

	zcp, err := parseNumber(cell(ColumnZoneClearingPrice))
	if err != nil {
		return nil, fail(ColumnZoneClearingPrice, err)
	}

	return &domain.BidRecord{
		Date:              date,
		Hour:              hour,
		Price:             price,
		Quantity:          quantity,
		ZoneClearingPrice: zcp,
	}, nil
}

// parseNumber reads a plain decimal cell into a finite float64. A dot or a
// lone comma is the decimal separator. NaN and Inf spellings are rejected,
// as are values outside the float64 range.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%s is out of range", s)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NewUnitKey(t, 1).Date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
