// Package scene flags frames that follow a significant visual change.
//
// A Detector is a single-pass state machine over one video:
//
//	AwaitingFirst -> (select first scorable frame) -> Comparing -> ... -> Done
//
// Each scorable frame is compared against the immediately preceding scorable
// frame, whether or not that frame was selected. A frame is selected when the
// distance exceeds Threshold and it is at least MinGap frames after the
// previous selection. Malformed frames are skipped and reported; they never
// abort the scan.
package scene

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/pkg/histogram"
	"github.com/menta2k/frame-selector/pkg/types"
)

// StrategyName is reported in results produced by a Detector
const StrategyName = "scene_change"

// State is the position of a Detector in its per-video lifecycle
type State int

const (
	AwaitingFirst State = iota
	Comparing
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingFirst:
		return "awaiting_first"
	case Comparing:
		return "comparing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds configuration for scene change detection
type Config struct {
	// Threshold is the distance a frame must exceed to be flagged.
	Threshold float64
	// MinGap is the minimum index distance between two selections.
	MinGap int
	// Metric compares consecutive signatures.
	Metric histogram.Metric
	// Workers bounds concurrent signature extraction in Detect.
	Workers int
}

// DefaultConfig returns the detection defaults
func DefaultConfig() Config {
	return Config{
		Threshold: 0.3,
		MinGap:    0,
		Metric:    histogram.DefaultMetric,
		Workers:   1,
	}
}

// Validate checks the detection parameters
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return types.InvalidConfigf("threshold must be between 0 and 1, got %v", c.Threshold)
	}
	if c.MinGap < 0 {
		return types.InvalidConfigf("min_gap must be >= 0, got %d", c.MinGap)
	}
	if c.Workers < 0 {
		return types.InvalidConfigf("workers must be >= 0, got %d", c.Workers)
	}
	if _, err := histogram.ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	return nil
}

// Detector selects frames following scene changes. It holds per-video state
// and is not safe for concurrent use; create one per video.
type Detector struct {
	config    Config
	extractor *histogram.Extractor
	logger    *zap.Logger

	state        State
	prev         histogram.Signature
	lastIndex    int
	lastSelected int
	observed     int
	selected     []types.FrameRecord
	scores       map[int]float64
	malformed    []*types.FrameError
}

// New creates a Detector. A nil extractor uses histogram defaults.
func New(config Config, extractor *histogram.Extractor) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	metric, _ := histogram.ParseMetric(string(config.Metric))
	config.Metric = metric
	if config.Workers == 0 {
		config.Workers = 1
	}
	if extractor == nil {
		extractor = histogram.New()
	}
	return &Detector{
		config:       config,
		extractor:    extractor,
		logger:       zap.NewNop(),
		lastIndex:    -1,
		lastSelected: -1,
		scores:       make(map[int]float64),
	}, nil
}

// SetLogger sets the logger used to report skipped frames
func (d *Detector) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d.logger = logger
}

// State returns the current lifecycle state
func (d *Detector) State() State {
	return d.state
}

// Observe scores the next frame and reports whether it was selected.
// A malformed frame is recorded, logged and returned as *types.FrameError;
// the detector stays usable for the following frames.
func (d *Detector) Observe(f types.FrameRecord) (bool, error) {
	if d.state == Done {
		return false, fmt.Errorf("scene detector: observe after finish (frame %d)", f.Index)
	}
	d.observed++
	if f.Index <= d.lastIndex {
		fe := types.NewFrameError(f, fmt.Errorf("out of order after frame %d", d.lastIndex))
		d.skip(fe)
		return false, fe
	}
	sig, err := d.extractor.ExtractFrame(f)
	if err != nil {
		fe := asFrameError(f, err)
		d.skip(fe)
		return false, fe
	}
	return d.observeSignature(f, sig)
}

// Skip records a frame the caller could not even load
func (d *Detector) Skip(f types.FrameRecord, err error) {
	if d.state == Done {
		return
	}
	d.observed++
	d.skip(asFrameError(f, err))
}

// Finish ends the scan and returns the selection
func (d *Detector) Finish() *types.SelectionResult {
	d.state = Done
	return &types.SelectionResult{
		Strategy:    StrategyName,
		TotalFrames: d.observed,
		Selected:    d.selected,
		Scores:      d.scores,
		Malformed:   d.malformed,
	}
}

// Detect scans a whole sequence. Signatures are computed ahead of the scan
// in bounded windows when Workers > 1; decisions are still made in order.
func (d *Detector) Detect(seq types.FrameSequence) (*types.SelectionResult, error) {
	n := seq.Len()
	if n == 0 {
		return nil, types.ErrEmptyInput
	}
	if d.state != AwaitingFirst || d.observed > 0 {
		return nil, fmt.Errorf("scene detector: Detect requires a fresh detector, state %s", d.state)
	}

	window := d.config.Workers * 4
	if d.config.Workers <= 1 {
		window = 1
	}
	for start := 0; start < n; start += window {
		end := start + window
		if end > n {
			end = n
		}
		for _, r := range d.extractor.ExtractRange(seq, start, end, d.config.Workers) {
			if r.Err != nil {
				d.Skip(r.Frame, r.Err)
				continue
			}
			d.observed++
			if r.Frame.Index <= d.lastIndex {
				d.skip(types.NewFrameError(r.Frame, fmt.Errorf("out of order after frame %d", d.lastIndex)))
				continue
			}
			if _, err := d.observeSignature(r.Frame, r.Signature); err != nil {
				return nil, err
			}
		}
	}
	return d.Finish(), nil
}

func (d *Detector) observeSignature(f types.FrameRecord, sig histogram.Signature) (bool, error) {
	d.lastIndex = f.Index

	if d.state == AwaitingFirst {
		d.prev = sig
		d.state = Comparing
		d.selectFrame(f)
		return true, nil
	}

	dist, err := d.config.Metric.Distance(d.prev, sig)
	if err != nil {
		return false, fmt.Errorf("scene detector: frame %d: %w", f.Index, err)
	}
	d.prev = sig
	d.scores[f.Index] = dist

	if dist <= d.config.Threshold {
		return false, nil
	}
	if d.lastSelected >= 0 && f.Index-d.lastSelected < d.config.MinGap {
		d.logger.Debug("scene change suppressed by min gap",
			zap.Int("frame_index", f.Index),
			zap.Int("last_selected", d.lastSelected),
			zap.Float64("distance", dist),
		)
		return false, nil
	}
	d.selectFrame(f)
	return true, nil
}

func (d *Detector) selectFrame(f types.FrameRecord) {
	d.selected = append(d.selected, f)
	d.lastSelected = f.Index
}

func (d *Detector) skip(fe *types.FrameError) {
	d.malformed = append(d.malformed, fe)
	d.logger.Warn("skipping malformed frame",
		zap.Int("frame_index", fe.Index),
		zap.Float64("timestamp", fe.Timestamp),
		zap.Error(fe.Err),
	)
}

func asFrameError(f types.FrameRecord, err error) *types.FrameError {
	var fe *types.FrameError
	if errors.As(err, &fe) {
		return fe
	}
	return types.NewFrameError(f, err)
}
