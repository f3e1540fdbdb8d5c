package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/menta2k/frame-selector/pkg/detection"
	"github.com/menta2k/frame-selector/pkg/selection"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "FRAMESEL_"

// Config holds the application configuration
type Config struct {
	Selection SelectionConfig `json:"selection"`
	Source    SourceConfig    `json:"source"`
	Detection DetectionConfig `json:"detection"`
	Output    OutputConfig    `json:"output"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// SelectionConfig holds the frame selection parameters
type SelectionConfig struct {
	Strategy       string  `json:"strategy" env:"STRATEGY"`
	SampleSize     int     `json:"sample_size" env:"SAMPLE_SIZE"`
	Threshold      float64 `json:"threshold" env:"THRESHOLD"`
	MinGap         int     `json:"min_gap" env:"MIN_GAP"`
	BinsPerChannel int     `json:"bins_per_channel" env:"BINS"`
	Metric         string  `json:"metric" env:"METRIC"`
	AnalysisSize   int     `json:"analysis_size" env:"ANALYSIS_SIZE"`
	Workers        int     `json:"workers" env:"WORKERS"`
}

// SourceConfig holds how videos are decoded into frames
type SourceConfig struct {
	FPS         float64 `json:"fps" env:"FPS"`
	FrameFormat string  `json:"frame_format" env:"FRAME_FORMAT"`
	TempDir     string  `json:"temp_dir" env:"TEMP_DIR"`
}

// DetectionConfig holds the model backend used on selected frames
type DetectionConfig struct {
	Enabled       bool    `json:"enabled" env:"DETECT"`
	Backend       string  `json:"backend" env:"BACKEND"`
	URL           string  `json:"url" env:"MODEL_URL"`
	Model         string  `json:"model" env:"MODEL"`
	MinConfidence float64 `json:"min_confidence" env:"MIN_CONFIDENCE"`
	MaxDimension  int     `json:"max_dimension" env:"MAX_DIMENSION"`
	Quality       int     `json:"quality" env:"QUALITY"`
}

// OutputConfig holds where reports and exported frames go
type OutputConfig struct {
	Dir          string `json:"output_dir" env:"OUTPUT_DIR"`
	ExportFormat string `json:"export_format" env:"EXPORT_FORMAT"`
	Prefix       string `json:"prefix" env:"PREFIX"`
	Debug        bool   `json:"debug" env:"DEBUG"`
}

// TelemetryConfig holds logging, metrics and tracing settings
type TelemetryConfig struct {
	LogLevel     string `json:"log_level" env:"LOG_LEVEL"`
	MetricsPort  int    `json:"metrics_port" env:"METRICS_PORT"`
	OTLPEndpoint string `json:"otlp_endpoint" env:"OTLP_ENDPOINT"`
}

// Default returns a configuration with default values
func Default() *Config {
	sel := selection.DefaultConfig()
	det := detection.DefaultConfig()
	return &Config{
		Selection: SelectionConfig{
			Strategy:       sel.Strategy,
			SampleSize:     sel.SampleSize,
			Threshold:      sel.Threshold,
			MinGap:         sel.MinGap,
			BinsPerChannel: sel.BinsPerChannel,
			Metric:         sel.Metric,
			AnalysisSize:   sel.AnalysisSize,
			Workers:        sel.Workers,
		},
		Source: SourceConfig{
			FPS:         1,
			FrameFormat: "png",
			TempDir:     os.TempDir(),
		},
		Detection: DetectionConfig{
			Enabled:       false,
			Backend:       "ollama",
			URL:           "http://localhost:11434",
			Model:         "llava:13b",
			MinConfidence: det.MinConfidence,
			MaxDimension:  det.MaxDimension,
			Quality:       det.Quality,
		},
		Output: OutputConfig{
			Dir:          "./output",
			ExportFormat: "jpg",
			Prefix:       "frame",
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			MetricsPort: 0,
		},
	}
}

// Load builds the effective configuration: defaults, then the JSON file at
// filename when it is not empty, then FRAMESEL_* environment variables.
// The result is not validated; callers validate once their own overrides
// are applied.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		var err error
		if cfg, err = LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from FRAMESEL_* environment variables. Unset
// variables leave the current value untouched.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.ToSelection().Validate(); err != nil {
		return fmt.Errorf("selection: %w", err)
	}

	if c.Source.FPS <= 0 {
		return fmt.Errorf("source.fps must be positive")
	}

	if c.Detection.Enabled {
		switch strings.ToLower(c.Detection.Backend) {
		case "ollama", "llamacpp":
		default:
			return fmt.Errorf("detection.backend must be ollama or llamacpp, got %q", c.Detection.Backend)
		}
		if c.Detection.Model == "" {
			return fmt.Errorf("detection.model cannot be empty")
		}
	}

	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1")
	}

	if c.Detection.Quality < 1 || c.Detection.Quality > 100 {
		return fmt.Errorf("detection.quality must be between 1 and 100")
	}

	switch strings.ToLower(c.Output.ExportFormat) {
	case "", "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.export_format must be jpg, png or webp")
	}

	if c.Telemetry.MetricsPort < 0 || c.Telemetry.MetricsPort > 65535 {
		return fmt.Errorf("telemetry.metrics_port out of range")
	}

	return nil
}

// ToSelection maps the selection section to a selection.Config
func (c *Config) ToSelection() selection.Config {
	s := c.Selection
	return selection.Config{
		Strategy:       s.Strategy,
		SampleSize:     s.SampleSize,
		Threshold:      s.Threshold,
		MinGap:         s.MinGap,
		BinsPerChannel: s.BinsPerChannel,
		Metric:         s.Metric,
		AnalysisSize:   s.AnalysisSize,
		Workers:        s.Workers,
	}
}

// ToDetection maps the detection section to a detection.Config
func (c *Config) ToDetection() detection.Config {
	d := detection.DefaultConfig()
	d.Model = c.Detection.Model
	d.MinConfidence = c.Detection.MinConfidence
	d.MaxDimension = c.Detection.MaxDimension
	d.Quality = c.Detection.Quality
	return d
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "frame-selector", "config.json")
}
