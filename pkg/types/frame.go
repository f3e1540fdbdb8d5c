package types

import (
	"fmt"
	"image"
	"math"
)

// FrameRecord is a decoded frame plus its position in time.
type FrameRecord struct {
	Index     int         `json:"index"`
	Timestamp float64     `json:"timestamp"`
	Pixels    image.Image `json:"-"`
	Source    string      `json:"source,omitempty"`
}

// Validate reports a *FrameError when the record cannot be scored.
func (f FrameRecord) Validate() error {
	if f.Index < 0 {
		return NewFrameError(f, fmt.Errorf("negative index %d", f.Index))
	}
	if f.Timestamp < 0 || math.IsNaN(f.Timestamp) || math.IsInf(f.Timestamp, 0) {
		return NewFrameError(f, fmt.Errorf("invalid timestamp %v", f.Timestamp))
	}
	if f.Pixels == nil {
		return NewFrameError(f, fmt.Errorf("missing pixel data"))
	}
	if f.Pixels.Bounds().Empty() {
		return NewFrameError(f, fmt.Errorf("empty pixel grid %v", f.Pixels.Bounds()))
	}
	return nil
}

// FrameSequence is an ordered, gap-free collection of frames starting at index 0.
// At may load lazily; an error from At marks that single frame as malformed.
type FrameSequence interface {
	Len() int
	At(i int) (FrameRecord, error)
}

// Frames is an in-memory FrameSequence.
type Frames []FrameRecord

// Len returns the number of frames
func (fs Frames) Len() int { return len(fs) }

// At returns the frame at position i
func (fs Frames) At(i int) (FrameRecord, error) {
	if i < 0 || i >= len(fs) {
		return FrameRecord{}, fmt.Errorf("frame index %d out of range [0,%d)", i, len(fs))
	}
	return fs[i], nil
}

// FromImages wraps decoded images as frames spaced 1/fps seconds apart.
// A non-positive fps leaves every timestamp at its index in seconds.
func FromImages(images []image.Image, fps float64) Frames {
	if fps <= 0 {
		fps = 1
	}
	frames := make(Frames, len(images))
	for i, img := range images {
		frames[i] = FrameRecord{
			Index:     i,
			Timestamp: float64(i) / fps,
			Pixels:    img,
		}
	}
	return frames
}
