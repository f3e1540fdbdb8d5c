package detection

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/pkg/client"
	"github.com/menta2k/frame-selector/pkg/processing"
	"github.com/menta2k/frame-selector/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks the model to locate every distinct object in a frame
const DefaultPrompt = `You are an object locator for video frames.

Return JSON only:
{
  "items": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ],
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- List every distinct, clearly visible object (people, clothing, accessories, vehicles, products, animals).
- label: lowercase noun phrase, no brand guesses unless a logo is legible.
- confidence in [0,1].
- All coordinates are normalized to [0,1] (NOT pixels); x,y is the top-left corner.
- Do not guess real identities.
- If nothing is found, return {"items": [], "description": "empty scene"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config controls how frames are sent to the model and how replies are filtered
type Config struct {
	Model         string
	Prompt        string
	MaxDimension  int
	Format        string
	Quality       int
	MinConfidence float64
	MaxItems      int
}

// DefaultConfig returns the detection defaults
func DefaultConfig() Config {
	return Config{
		Prompt:        DefaultPrompt,
		MaxDimension:  1024,
		Format:        "jpeg",
		Quality:       85,
		MinConfidence: 0.25,
		MaxItems:      20,
	}
}

// Detector runs a vision model over selected frames
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
	logger    *zap.Logger
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, config Config) *Detector {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	return &Detector{
		client:    client,
		processor: processing.NewProcessor(),
		config:    config,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger used for per-frame failures
func (d *Detector) SetLogger(logger *zap.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// DetectImage runs the model on a single image and post-processes its reply
func (d *Detector) DetectImage(ctx context.Context, img image.Image) (*types.DetectionResult, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.config.Format, d.config.MaxDimension, d.config.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	result, err := d.client.DetectItems(ctx, d.config.Model, d.config.Prompt, imgB64)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	result.Items = d.filterItems(result.Items, b.Dx(), b.Dy())
	return result, nil
}

// DetectFrames runs detection over every selected frame in order. A frame
// that fails gets an entry carrying the error and the run moves on; only a
// cancelled context stops it early.
func (d *Detector) DetectFrames(ctx context.Context, selection *types.SelectionResult) ([]types.FrameDetections, error) {
	if selection == nil || len(selection.Selected) == 0 {
		return nil, types.ErrEmptyInput
	}

	out := make([]types.FrameDetections, 0, len(selection.Selected))
	for i, f := range selection.Selected {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		entry := types.FrameDetections{Index: f.Index, Timestamp: f.Timestamp}
		result, err := d.detectFrame(ctx, f)
		if err != nil {
			d.logger.Warn("detection failed",
				zap.Int("frame_index", f.Index),
				zap.Float64("timestamp", f.Timestamp),
				zap.Error(err),
			)
			entry.Err = err.Error()
		} else {
			entry.Items = result.Items
		}
		out = append(out, entry)

		d.logger.Debug("processed frame",
			zap.Int("frame_index", f.Index),
			zap.Int("position", i+1),
			zap.Int("total", len(selection.Selected)),
			zap.Int("items", len(entry.Items)),
		)
	}
	return out, nil
}

func (d *Detector) detectFrame(ctx context.Context, f types.FrameRecord) (*types.DetectionResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return d.DetectImage(ctx, f.Pixels)
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, img image.Image) (string, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.config.Format, d.config.MaxDimension, d.config.Quality)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image: %w", err)
	}
	return d.client.SimpleQuery(ctx, d.config.Model, SimpleTestPrompt, imgB64)
}

// filterItems normalizes boxes and labels, drops low-confidence and
// duplicate items, and returns the rest by descending confidence
func (d *Detector) filterItems(items []types.Item, imgW, imgH int) []types.Item {
	kept := make([]types.Item, 0, len(items))
	for _, it := range items {
		it.Label = strings.ToLower(strings.TrimSpace(it.Label))
		it.Confidence = clamp(it.Confidence, 0, 1)
		it.Box = normalizeBox(it.Box, imgW, imgH)
		if it.Label == "" || it.Label == "none" || it.Confidence < d.config.MinConfidence {
			continue
		}
		if it.Box.W <= 0 || it.Box.H <= 0 {
			continue
		}
		kept = append(kept, it)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})

	out := make([]types.Item, 0, len(kept))
	for _, it := range kept {
		if isDuplicate(out, it) {
			continue
		}
		out = append(out, it)
		if d.config.MaxItems > 0 && len(out) == d.config.MaxItems {
			break
		}
	}
	return out
}

// isDuplicate reports whether a same-label item with a mostly overlapping
// box is already in items
func isDuplicate(items []types.Item, it types.Item) bool {
	for _, other := range items {
		if other.Label == it.Label && iou(other.Box, it.Box) >= 0.5 {
			return true
		}
	}
	return false
}

func iou(a, b types.Box) float64 {
	x0 := max(a.X, b.X)
	y0 := max(a.Y, b.Y)
	x1 := min(a.X+a.W, b.X+b.W)
	y1 := min(a.Y+a.H, b.Y+b.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := (x1 - x0) * (y1 - y0)
	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox converts pixel boxes to [0,1] and keeps the box inside the frame
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}

	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}
