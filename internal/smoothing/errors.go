package smoothing

import "errors"

// Errors returned by the smoother.
var (
	// ErrSmoothingConvergence is returned when no candidate lambda yields a finite GCV score.
	ErrSmoothingConvergence = errors.New("no candidate lambda produced a finite GCV")

	// ErrSampleLength is returned when the sampled curve does not match the grid.
	ErrSampleLength = errors.New("sample length does not match evaluation grid")

	// ErrInvalidOptions is returned for an unusable lambda grid or penalty order.
	ErrInvalidOptions = errors.New("invalid smoother options")
)
