package framesource

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/internal/utils"
)

// Extraction is the result of decoding a video into frame files
type Extraction struct {
	Frames        *Directory
	FrameCount    int
	VideoDuration float64
}

// Extractor decodes videos into frame files with ffmpeg
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
	fps         float64
	format      string
	logger      *zap.Logger
}

// NewExtractor creates an extractor sampling fps frames per second
func NewExtractor(fps float64, format string, logger *zap.Logger) *Extractor {
	if format == "" {
		format = "png"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		fps:         fps,
		format:      format,
		logger:      logger,
	}
}

// SetBinaries overrides the ffmpeg and ffprobe executables
func (e *Extractor) SetBinaries(ffmpegPath, ffprobePath string) {
	if ffmpegPath != "" {
		e.ffmpegPath = ffmpegPath
	}
	if ffprobePath != "" {
		e.ffprobePath = ffprobePath
	}
}

// ExtractFrames decodes videoPath into outputDir and opens the result as a
// frame sequence
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, outputDir string) (*Extraction, error) {
	if e.fps <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %v", e.fps)
	}
	if !utils.FileExists(videoPath) {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	duration, err := e.getVideoDuration(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not get video duration", zap.Error(err))
	}

	framePattern := filepath.Join(outputDir, fmt.Sprintf("frame_%%06d.%s", e.format))
	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-v", "error",
		"-i", videoPath,
		"-vf", "fps="+strconv.FormatFloat(e.fps, 'f', -1, 64),
		"-y",
		framePattern,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	frames, err := OpenDirectory(outputDir, e.fps)
	if err != nil {
		return nil, err
	}
	if frames.Len() == 0 {
		return nil, fmt.Errorf("no frames extracted from video")
	}

	e.logger.Info("frames extracted",
		zap.String("video", videoPath),
		zap.Int("count", frames.Len()),
		zap.Float64("video_duration", duration),
	)

	return &Extraction{
		Frames:        frames,
		FrameCount:    frames.Len(),
		VideoDuration: duration,
	}, nil
}

// ExtractToTemp extracts frames into a fresh temporary directory. The
// returned cleanup func removes it.
func (e *Extractor) ExtractToTemp(ctx context.Context, videoPath, tempRoot string) (*Extraction, func(), error) {
	dir, err := os.MkdirTemp(tempRoot, "frames-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	extraction, err := e.ExtractFrames(ctx, videoPath, dir)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return extraction, cleanup, nil
}

func (e *Extractor) getVideoDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
