package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"spot-curve-lab/internal/domain"
)

// LoadXLSX reads a workbook. An empty sheet name selects the first sheet.
func LoadXLSX(path, sheet string) ([]*domain.BidRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyDataset
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	h, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}
	return h.rows(rows[1:], 2)
}
