package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for malformed thresholds, sizes or strategies.
	// It is always surfaced before any frame is processed.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEmptyInput is returned when the frame sequence has no frames.
	ErrEmptyInput = errors.New("empty input")

	// ErrMalformedFrame marks a single frame that could not be scored.
	ErrMalformedFrame = errors.New("malformed frame")
)

// FrameError ties an error to the frame it came from so callers can
// correlate it with the source video.
type FrameError struct {
	Index     int
	Timestamp float64
	Err       error
}

// NewFrameError builds a FrameError for the given frame.
func NewFrameError(f FrameRecord, err error) *FrameError {
	return &FrameError{Index: f.Index, Timestamp: f.Timestamp, Err: err}
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s: frame %d (t=%.3fs): %v", ErrMalformedFrame, e.Index, e.Timestamp, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *FrameError) Unwrap() []error {
	return []error{ErrMalformedFrame, e.Err}
}

// MarshalText renders the error for JSON reports.
func (e *FrameError) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}

// InvalidConfigf wraps ErrInvalidConfig with a formatted reason.
func InvalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
