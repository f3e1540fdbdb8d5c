package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/internal/config"
	"github.com/menta2k/frame-selector/internal/logger"
	"github.com/menta2k/frame-selector/internal/tracing"
	"github.com/menta2k/frame-selector/pkg/client"
	"github.com/menta2k/frame-selector/pkg/detection"
	"github.com/menta2k/frame-selector/pkg/llamacpp"
	"github.com/menta2k/frame-selector/pkg/metrics"
	"github.com/menta2k/frame-selector/pkg/ollama"
	"github.com/menta2k/frame-selector/pkg/pipeline"
)

func main() {
	var in, configPath, saveConfig, reportPath string

	flag.StringVar(&in, "in", "", "input video file or directory of decoded frames")
	flag.StringVar(&configPath, "config", "", "JSON config file (FRAMESEL_* env vars override it)")
	flag.StringVar(&saveConfig, "save-config", "", "write the effective config to this path and exit")
	flag.StringVar(&reportPath, "report", "", "report path (default <out>/report.json)")

	flag.String("strategy", "", "selection strategy: uniform|scene_change|both")
	flag.Int("k", 0, "number of uniformly sampled frames")
	flag.Float64("threshold", 0, "scene-change distance threshold in (0,1]")
	flag.Int("mingap", 0, "minimum index distance between selected frames")
	flag.Int("bins", 0, "histogram bins per color channel")
	flag.String("metric", "", "histogram distance: bhattacharyya|chisquare")
	flag.Int("analysis-size", 0, "downscale frames to this long side before histogramming, 0=off")
	flag.Int("workers", 0, "parallel signature extraction workers")
	flag.Float64("fps", 0, "video sampling rate and timestamp base for frame directories")

	flag.String("out", "", "output directory for the report and exported frames")
	flag.String("ext", "", "export format for selected frames: jpg|png|webp")
	flag.Bool("export", false, "write the selected frames to the output directory")
	flag.Bool("debug", false, "also write frames with detection boxes drawn")

	flag.Bool("detect", false, "run object detection on selected frames")
	flag.String("backend", "", "detection backend: ollama|llamacpp")
	flag.String("url", "", "detection server URL")
	flag.String("model", "", "detection model name")

	flag.Int("metrics-port", 0, "serve Prometheus metrics on this port, 0=off")
	flag.String("otlp", "", "OTLP/HTTP traces endpoint, empty=off")
	flag.String("log-level", "", "log level: debug|info|warn|error")

	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	export := applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if saveConfig != "" {
		if err := cfg.SaveToFile(saveConfig); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", saveConfig)
		return
	}

	if in == "" {
		log.Fatalf("usage: %s -in video.mp4|frames_dir [-strategy uniform|scene_change|both] [-k 20] [-threshold 0.3] [-mingap 0] [-detect -backend ollama|llamacpp -model name] [-out dir]", filepath.Base(os.Args[0]))
	}

	zlog, err := logger.New(cfg.Telemetry.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			zlog.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	if cfg.Telemetry.MetricsPort > 0 {
		metrics.StartMetricsServer(ctx, cfg.Telemetry.MetricsPort, zlog)
	}

	opts := pipeline.Options{
		Selection:    cfg.ToSelection(),
		FPS:          cfg.Source.FPS,
		FrameFormat:  cfg.Source.FrameFormat,
		TempDir:      cfg.Source.TempDir,
		ExportFormat: cfg.Output.ExportFormat,
		ExportPrefix: cfg.Output.Prefix,
		Debug:        cfg.Output.Debug,
	}
	if export || cfg.Output.Debug {
		opts.ExportDir = cfg.Output.Dir
	}

	runner, err := pipeline.NewRunner(opts, zlog)
	if err != nil {
		zlog.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.Detection.Enabled {
		visionClient, err := newVisionClient(cfg.Detection.Backend, cfg.Detection.URL)
		if err != nil {
			zlog.Fatal("create detection client", zap.Error(err))
		}
		runner.SetDetector(detection.NewDetector(visionClient, cfg.ToDetection()))
	}

	report, err := runner.Run(ctx, in)
	if err != nil {
		zlog.Fatal("run failed", zap.Error(err))
	}

	if reportPath == "" {
		reportPath = filepath.Join(cfg.Output.Dir, "report.json")
	}
	if err := report.SaveToFile(reportPath); err != nil {
		zlog.Fatal("save report", zap.Error(err))
	}

	fmt.Printf("run %s: %d of %d frames selected (%s), %d malformed\n",
		report.RunID, len(report.Selected), report.TotalFrames, report.Strategy, len(report.Malformed))
	fmt.Printf("selected: %v\n", report.Indices())
	fmt.Println("report:", reportPath)
}

// applyFlags copies explicitly set flags over the loaded config and reports
// whether frame export was requested
func applyFlags(cfg *config.Config) bool {
	export := false
	flag.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "strategy":
			cfg.Selection.Strategy = v.(string)
		case "k":
			cfg.Selection.SampleSize = v.(int)
		case "threshold":
			cfg.Selection.Threshold = v.(float64)
		case "mingap":
			cfg.Selection.MinGap = v.(int)
		case "bins":
			cfg.Selection.BinsPerChannel = v.(int)
		case "metric":
			cfg.Selection.Metric = v.(string)
		case "analysis-size":
			cfg.Selection.AnalysisSize = v.(int)
		case "workers":
			cfg.Selection.Workers = v.(int)
		case "fps":
			cfg.Source.FPS = v.(float64)
		case "out":
			cfg.Output.Dir = v.(string)
		case "ext":
			cfg.Output.ExportFormat = v.(string)
		case "export":
			export = v.(bool)
		case "debug":
			cfg.Output.Debug = v.(bool)
		case "detect":
			cfg.Detection.Enabled = v.(bool)
		case "backend":
			cfg.Detection.Backend = v.(string)
		case "url":
			cfg.Detection.URL = v.(string)
		case "model":
			cfg.Detection.Model = v.(string)
		case "metrics-port":
			cfg.Telemetry.MetricsPort = v.(int)
		case "otlp":
			cfg.Telemetry.OTLPEndpoint = v.(string)
		case "log-level":
			cfg.Telemetry.LogLevel = v.(string)
		}
	})
	return export
}

func newVisionClient(backend, url string) (client.VisionClient, error) {
	switch strings.ToLower(backend) {
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		return ollama.NewClient(url)
	case "llamacpp":
		if url == "" {
			url = llamacpp.DefaultURL
		}
		return llamacpp.NewClient(url)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}
