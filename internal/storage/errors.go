package storage

import "errors"

var (
	// ErrNotFound is returned when no curve or unit exists for the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a (side, date, hour) curve, or a skipped
	// unit of the same run, is already stored. Stored results are never replaced.
	ErrDuplicateKey = errors.New("duplicate key: stored results are append-only")

	// ErrInvalidInput is returned when a record or curve fails validation
	// before anything is written.
	ErrInvalidInput = errors.New("invalid input")
)
