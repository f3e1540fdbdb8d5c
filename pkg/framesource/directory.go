// Package framesource produces ordered frame sequences from decoded frame
// directories and video files.
package framesource

import (
	"fmt"

	"github.com/menta2k/frame-selector/internal/utils"
	"github.com/menta2k/frame-selector/pkg/processing"
	"github.com/menta2k/frame-selector/pkg/types"
)

// Directory is a lazy frame sequence over the image files of a directory.
// Frames are decoded on each At call and not retained.
type Directory struct {
	dir       string
	paths     []string
	fps       float64
	processor *processing.Processor
}

// OpenDirectory lists the frames of dir in natural filename order. Frame i
// is stamped at i/fps seconds.
func OpenDirectory(dir string, fps float64) (*Directory, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}
	paths, err := utils.ListImageFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames in %s: %w", dir, err)
	}
	return &Directory{
		dir:       dir,
		paths:     paths,
		fps:       fps,
		processor: processing.NewProcessor(),
	}, nil
}

// Dir returns the directory the frames were listed from
func (d *Directory) Dir() string {
	return d.dir
}

// Paths returns the frame files in sequence order
func (d *Directory) Paths() []string {
	return d.paths
}

// Len returns the number of frames
func (d *Directory) Len() int {
	return len(d.paths)
}

// At decodes frame i. On failure the returned record still carries the
// index, timestamp and source path.
func (d *Directory) At(i int) (types.FrameRecord, error) {
	if i < 0 || i >= len(d.paths) {
		return types.FrameRecord{}, fmt.Errorf("frame index %d out of range [0,%d)", i, len(d.paths))
	}
	f := types.FrameRecord{
		Index:     i,
		Timestamp: float64(i) / d.fps,
		Source:    d.paths[i],
	}
	img, err := d.processor.LoadImage(d.paths[i])
	if err != nil {
		return f, fmt.Errorf("failed to decode %s: %w", d.paths[i], err)
	}
	f.Pixels = img
	return f, nil
}
