// Package pipeline wires a frame source, the selection policy and an
// optional detection backend into a single run that produces a Report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/internal/utils"
	"github.com/menta2k/frame-selector/pkg/detection"
	"github.com/menta2k/frame-selector/pkg/framesource"
	"github.com/menta2k/frame-selector/pkg/metrics"
	"github.com/menta2k/frame-selector/pkg/processing"
	"github.com/menta2k/frame-selector/pkg/selection"
	"github.com/menta2k/frame-selector/pkg/types"
)

const tracerName = "github.com/menta2k/frame-selector/pkg/pipeline"

// Options configures a Runner
type Options struct {
	Selection selection.Config

	// FPS is the sampling rate for videos and the timestamp base for frame directories
	FPS         float64
	FrameFormat string
	TempDir     string

	// ExportDir receives the selected frames when not empty
	ExportDir    string
	ExportFormat string
	ExportPrefix string
	// Debug also writes each selected frame with its detection boxes drawn,
	// and one crop per detected item
	Debug bool
}

// Runner executes selection runs. It is safe for concurrent use as long as
// the detector's client is.
type Runner struct {
	opts      Options
	policy    *selection.Policy
	extractor *framesource.Extractor
	detector  *detection.Detector
	processor *processing.Processor
	logger    *zap.Logger
}

// NewRunner validates opts and builds a runner
func NewRunner(opts Options, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FPS <= 0 {
		return nil, types.InvalidConfigf("fps must be positive, got %v", opts.FPS)
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = "jpg"
	}
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = "frame"
	}

	policy, err := selection.New(opts.Selection)
	if err != nil {
		return nil, err
	}
	policy.SetLogger(logger)

	return &Runner{
		opts:      opts,
		policy:    policy,
		extractor: framesource.NewExtractor(opts.FPS, opts.FrameFormat, logger),
		processor: processing.NewProcessor(),
		logger:    logger,
	}, nil
}

// SetDetector enables object detection on selected frames
func (r *Runner) SetDetector(d *detection.Detector) {
	if d != nil {
		d.SetLogger(r.logger)
	}
	r.detector = d
}

// SetExtractor replaces the video frame extractor
func (r *Runner) SetExtractor(e *framesource.Extractor) {
	r.extractor = e
}

// Run processes input, which is either a directory of decoded frames or a
// video file.
func (r *Runner) Run(ctx context.Context, input string) (*Report, error) {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Runner.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("input", input),
		attribute.String("strategy", r.policy.Strategy().Name()),
	)

	report, err := r.run(ctx, runID, input, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		log.Error("run failed", zap.Error(err))
		return nil, err
	}
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	return report, nil
}

// RunSequence processes frames that are already available as a sequence
func (r *Runner) RunSequence(ctx context.Context, input string, seq types.FrameSequence) (*Report, error) {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Runner.RunSequence")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	report, err := r.process(ctx, runID, input, seq, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	return report, nil
}

func (r *Runner) run(ctx context.Context, runID, input string, log *zap.Logger) (*Report, error) {
	started := time.Now()

	var (
		seq      types.FrameSequence
		duration float64
	)
	switch {
	case utils.DirExists(input):
		dir, err := framesource.OpenDirectory(input, r.opts.FPS)
		if err != nil {
			return nil, err
		}
		seq = dir
	case utils.FileExists(input):
		stageCtx, stage := r.startStage(ctx, "extract_frames")
		extraction, cleanup, err := r.extractor.ExtractToTemp(stageCtx, input, r.opts.TempDir)
		r.endStage(stage, "extract", started, err)
		if err != nil {
			return nil, fmt.Errorf("extract frames: %w", err)
		}
		defer cleanup()
		seq = extraction.Frames
		duration = extraction.VideoDuration
		log.Info("frames extracted", zap.Int("count", extraction.FrameCount))
	default:
		return nil, fmt.Errorf("input not found: %s", input)
	}

	report, err := r.process(ctx, runID, input, seq, log)
	if err != nil {
		return nil, err
	}
	report.VideoDuration = duration
	report.StartedAt = started.UTC()
	report.Elapsed = time.Since(started).Seconds()
	return report, nil
}

func (r *Runner) process(ctx context.Context, runID, input string, seq types.FrameSequence, log *zap.Logger) (*Report, error) {
	started := time.Now()

	stageStart := time.Now()
	_, stage := r.startStage(ctx, "select_frames")
	result, err := r.policy.Select(seq)
	r.endStage(stage, "select", stageStart, err)
	if err != nil {
		return nil, fmt.Errorf("select frames: %w", err)
	}
	metrics.ObserveSelection(result)
	log.Info("frames selected",
		zap.String("strategy", result.Strategy),
		zap.Int("total", result.TotalFrames),
		zap.Int("selected", len(result.Selected)),
		zap.Int("malformed", len(result.Malformed)),
	)

	report := newReport(runID, input, result)
	report.StartedAt = started.UTC()

	var detections []types.FrameDetections
	if r.detector != nil && len(result.Selected) > 0 {
		stageStart = time.Now()
		stageCtx, stage := r.startStage(ctx, "detect_objects")
		detections, err = r.detector.DetectFrames(stageCtx, result)
		r.endStage(stage, "detect", stageStart, err)
		if err != nil {
			return nil, fmt.Errorf("detect objects: %w", err)
		}
		metrics.ObserveDetections(detections)
		for i, d := range detections {
			report.Selected[i].Items = d.Items
			report.Selected[i].DetectionError = d.Err
		}
		log.Info("objects detected", zap.Int("frames", len(detections)))
	}

	if r.opts.ExportDir != "" {
		stageStart = time.Now()
		_, stage := r.startStage(ctx, "export_frames")
		err = r.export(report, result, detections)
		r.endStage(stage, "export", stageStart, err)
		if err != nil {
			return nil, fmt.Errorf("export frames: %w", err)
		}
		log.Info("frames exported", zap.String("dir", r.opts.ExportDir))
	}

	report.Elapsed = time.Since(started).Seconds()
	return report, nil
}

// export writes every selected frame, plus a debug overlay and item crops
// when detections exist
func (r *Runner) export(report *Report, result *types.SelectionResult, detections []types.FrameDetections) error {
	if err := utils.EnsureDir(r.opts.ExportDir); err != nil {
		return err
	}
	prefix := utils.SanitizeFilename(r.opts.ExportPrefix) + "_"

	for i, f := range result.Selected {
		name := fmt.Sprintf("%06d", f.Index)
		path := utils.GenerateOutputFilename(name, r.opts.ExportDir, prefix, "", r.opts.ExportFormat)
		if err := r.processor.SaveImage(f.Pixels, path, r.opts.ExportFormat, 90, false); err != nil {
			return fmt.Errorf("frame %d: %w", f.Index, err)
		}
		report.Selected[i].Exported = path

		if !r.opts.Debug || i >= len(detections) || len(detections[i].Items) == 0 {
			continue
		}
		overlay := r.processor.CreateDebugOverlay(f.Pixels, detections[i].Items)
		debugPath := utils.GenerateOutputFilename(name, r.opts.ExportDir, prefix, "_debug", r.opts.ExportFormat)
		if err := r.processor.SaveImage(overlay, debugPath, r.opts.ExportFormat, 90, false); err != nil {
			return fmt.Errorf("frame %d debug overlay: %w", f.Index, err)
		}
		report.Selected[i].DebugImage = debugPath

		for j, item := range detections[i].Items {
			crop, err := r.processor.CropImageToBox(f.Pixels, item.Box, 0, 0)
			if err != nil {
				r.logger.Warn("item crop skipped",
					zap.Int("frame_index", f.Index),
					zap.String("label", item.Label),
					zap.Error(err),
				)
				continue
			}
			suffix := fmt.Sprintf("_item%02d_%s", j+1, utils.SanitizeFilename(item.Label))
			cropPath := utils.GenerateOutputFilename(name, r.opts.ExportDir, prefix, suffix, r.opts.ExportFormat)
			if err := r.processor.SaveImage(crop, cropPath, r.opts.ExportFormat, 90, false); err != nil {
				return fmt.Errorf("frame %d item crop: %w", f.Index, err)
			}
			report.Selected[i].ItemCrops = append(report.Selected[i].ItemCrops, cropPath)
		}
	}
	return nil
}

func (r *Runner) startStage(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

func (r *Runner) endStage(span trace.Span, stage string, started time.Time, err error) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
