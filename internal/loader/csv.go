package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"spot-curve-lab/internal/domain"
)

// LoadCSVFile reads a comma-separated dataset from disk.
func LoadCSVFile(path string) ([]*domain.BidRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads a comma-separated dataset. Rows may have differing field counts.
func LoadCSV(r io.Reader) ([]*domain.BidRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := parseHeader(head)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &RowError{Line: perr.Line, Err: perr.Err}
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}
	// csv.Reader skips empty lines, so line numbers are only exact for files without them.
	return h.rows(rows, 2)
}
