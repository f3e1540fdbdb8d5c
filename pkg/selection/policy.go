// Package selection decides which frames of a video are forwarded to object
// detection.
//
// A Policy is built once from a validated Config and dispatches to one of the
// Uniform, SceneChange or Both strategies. Select is a pure function of its
// input and the Config: it keeps no state between calls, so a single Policy
// can serve many videos, concurrently if needed.
package selection

import (
	"errors"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/pkg/histogram"
	"github.com/menta2k/frame-selector/pkg/sampler"
	"github.com/menta2k/frame-selector/pkg/types"
)

// Policy runs the configured selection strategy
type Policy struct {
	config    Config
	strategy  Strategy
	sampler   *sampler.UniformSampler
	extractor *histogram.Extractor
	logger    *zap.Logger
}

// New validates config and builds a Policy
func New(config Config) (*Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	strategy, _ := ParseStrategy(config.Strategy)
	config.Strategy = strategy.Name()
	if config.Workers == 0 {
		config.Workers = 1
	}

	var uniform *sampler.UniformSampler
	if strategy.usesSampler() {
		var err error
		uniform, err = sampler.New(config.SampleSize)
		if err != nil {
			return nil, err
		}
	}

	var extractor *histogram.Extractor
	if strategy.usesDetector() {
		var err error
		extractor, err = histogram.NewWithConfig(config.histogramConfig())
		if err != nil {
			return nil, err
		}
	}

	return &Policy{
		config:    config,
		strategy:  strategy,
		sampler:   uniform,
		extractor: extractor,
		logger:    zap.NewNop(),
	}, nil
}

// SetLogger sets the logger used to report skipped frames
func (p *Policy) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p.logger = logger
}

// Config returns the validated configuration
func (p *Policy) Config() Config {
	return p.config
}

// Strategy returns the strategy variant in use
func (p *Policy) Strategy() Strategy {
	return p.strategy
}

// Select returns the ordered subset of seq to forward to detection.
// An empty sequence fails with types.ErrEmptyInput and no partial result.
func (p *Policy) Select(seq types.FrameSequence) (*types.SelectionResult, error) {
	if seq == nil || seq.Len() == 0 {
		return nil, types.ErrEmptyInput
	}
	return p.strategy.apply(p, seq)
}

func toFrameError(f types.FrameRecord, err error) *types.FrameError {
	var fe *types.FrameError
	if errors.As(err, &fe) {
		return fe
	}
	return types.NewFrameError(f, err)
}
