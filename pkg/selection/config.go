package selection

import (
	"github.com/menta2k/frame-selector/pkg/histogram"
	"github.com/menta2k/frame-selector/pkg/scene"
	"github.com/menta2k/frame-selector/pkg/types"
)

// Config holds every parameter of a selection run. It is validated once when
// the Policy is built and never changes afterwards.
type Config struct {
	Strategy   string  `json:"strategy"`
	SampleSize int     `json:"sample_size"`
	Threshold  float64 `json:"threshold"`
	MinGap     int     `json:"min_gap"`

	BinsPerChannel int    `json:"bins_per_channel"`
	Metric         string `json:"metric"`
	AnalysisSize   int    `json:"analysis_size"`
	Workers        int    `json:"workers"`
}

// DefaultConfig returns the selection defaults
func DefaultConfig() Config {
	return Config{
		Strategy:       BothName,
		SampleSize:     20,
		Threshold:      0.3,
		MinGap:         0,
		BinsPerChannel: histogram.DefaultBinsPerChannel,
		Metric:         string(histogram.DefaultMetric),
		AnalysisSize:   0,
		Workers:        1,
	}
}

// Validate checks the configuration for the chosen strategy
func (c Config) Validate() error {
	strategy, err := ParseStrategy(c.Strategy)
	if err != nil {
		return err
	}
	if c.MinGap < 0 {
		return types.InvalidConfigf("min_gap must be >= 0, got %d", c.MinGap)
	}
	if c.Workers < 0 {
		return types.InvalidConfigf("workers must be >= 0, got %d", c.Workers)
	}
	if strategy.usesSampler() && c.SampleSize <= 0 {
		return types.InvalidConfigf("sample_size must be positive for strategy %s, got %d", strategy.Name(), c.SampleSize)
	}
	if strategy.usesDetector() {
		if !(c.Threshold > 0 && c.Threshold <= 1) {
			return types.InvalidConfigf("threshold must be in (0,1] for strategy %s, got %v", strategy.Name(), c.Threshold)
		}
		if _, err := histogram.ParseMetric(c.Metric); err != nil {
			return err
		}
		if err := c.histogramConfig().Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) histogramConfig() histogram.Config {
	return histogram.Config{
		BinsPerChannel: c.BinsPerChannel,
		AnalysisSize:   c.AnalysisSize,
	}
}

func (c Config) sceneConfig() scene.Config {
	metric, _ := histogram.ParseMetric(c.Metric)
	return scene.Config{
		Threshold: c.Threshold,
		MinGap:    c.MinGap,
		Metric:    metric,
		Workers:   c.Workers,
	}
}
