// Package frameselector picks the few frames of a video worth sending to an
// expensive object-detection model.
//
// Frames are chosen by one of three strategies:
//
//   - uniform: k frames evenly spaced over the whole sequence
//   - scene_change: the first frame plus every frame whose color histogram
//     differs from its predecessor by more than a threshold
//   - both: the union of the two, with frames closer than min_gap collapsed
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		frameselector "github.com/menta2k/frame-selector"
//		"github.com/menta2k/frame-selector/pkg/selection"
//	)
//
//	func main() {
//		cfg := selection.DefaultConfig()
//		cfg.Strategy = selection.SceneChangeName
//		cfg.MinGap = 10
//
//		fs, err := frameselector.NewWithConfig(cfg)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := fs.SelectDirectory("frames/", 25)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println("selected frames:", result.Indices())
//	}
//
// The building blocks live in their own packages:
//
// 1. Sampler (pkg/sampler): uniform index sampling
// 2. Histogram (pkg/histogram): color signatures and distance metrics
// 3. Scene (pkg/scene): single pass scene-change detection
// 4. Selection (pkg/selection): strategy dispatch and merging
//
// Video decoding, detection backends and reporting are in pkg/framesource,
// pkg/detection and pkg/pipeline.
package frameselector

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/internal/utils"
	"github.com/menta2k/frame-selector/pkg/framesource"
	"github.com/menta2k/frame-selector/pkg/processing"
	"github.com/menta2k/frame-selector/pkg/selection"
	"github.com/menta2k/frame-selector/pkg/types"
)

// Version of the frame selector library
const Version = "1.0.0"

// FrameSelector provides a high-level interface for frame selection
type FrameSelector struct {
	policy    *selection.Policy
	processor *processing.Processor
}

// New creates a new FrameSelector with the default configuration
func New() *FrameSelector {
	fs, err := NewWithConfig(selection.DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("default selection config rejected: %v", err))
	}
	return fs
}

// NewWithConfig creates a new FrameSelector. The configuration is validated
// before any frame is read.
func NewWithConfig(config selection.Config) (*FrameSelector, error) {
	policy, err := selection.New(config)
	if err != nil {
		return nil, err
	}
	return &FrameSelector{
		policy:    policy,
		processor: processing.NewProcessor(),
	}, nil
}

// SetLogger sets the logger that receives malformed-frame warnings
func (fs *FrameSelector) SetLogger(logger *zap.Logger) {
	fs.policy.SetLogger(logger)
}

// Config returns the selection configuration in use
func (fs *FrameSelector) Config() selection.Config {
	return fs.policy.Config()
}

// Select chooses frames from any frame sequence
func (fs *FrameSelector) Select(seq types.FrameSequence) (*types.SelectionResult, error) {
	return fs.policy.Select(seq)
}

// SelectImages chooses frames from decoded images spaced 1/fps seconds apart
func (fs *FrameSelector) SelectImages(images []image.Image, fps float64) (*types.SelectionResult, error) {
	return fs.policy.Select(types.FromImages(images, fps))
}

// SelectDirectory chooses frames from the image files of dir, in natural
// filename order
func (fs *FrameSelector) SelectDirectory(dir string, fps float64) (*types.SelectionResult, error) {
	frames, err := framesource.OpenDirectory(dir, fps)
	if err != nil {
		return nil, err
	}
	return fs.policy.Select(frames)
}

// LoadImage loads an image from file
func (fs *FrameSelector) LoadImage(path string) (image.Image, error) {
	return fs.processor.LoadImage(path)
}

// ProcessDirectory is a convenience function that selects frames from
// inputDir and copies them to outputDir as jpg. It returns the written paths.
func (fs *FrameSelector) ProcessDirectory(inputDir, outputDir string, fps float64) ([]string, error) {
	result, err := fs.SelectDirectory(inputDir, fps)
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}

	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(result.Selected))
	for _, f := range result.Selected {
		out := utils.GenerateOutputFilename(f.Source, outputDir, "", "_selected", "jpg")
		if err := fs.processor.SaveImage(f.Pixels, out, "jpg", 90, false); err != nil {
			return paths, fmt.Errorf("failed to save frame %d: %w", f.Index, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
