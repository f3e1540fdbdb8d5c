// Package histogram computes compact per-channel color signatures for frames
// and the bounded distances used to compare them.
//
// Signatures are L1-normalised per channel, which makes them independent of
// frame resolution. They are not immune to global exposure changes: a fade or
// a camera auto-exposure step shifts every bin and shows up as distance.
package histogram

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-selector/pkg/types"
)

const (
	DefaultBinsPerChannel = 32
	MaxBinsPerChannel     = 256
	channels              = 3
)

// Config holds configuration for signature extraction
type Config struct {
	// BinsPerChannel is the number of bins in each of the R, G and B
	// histograms.
	BinsPerChannel int

	// AnalysisSize bounds the long side of the image before binning.
	// Larger frames are downscaled with a box filter; 0 disables it.
	AnalysisSize int
}

// DefaultConfig returns the extraction defaults
func DefaultConfig() Config {
	return Config{
		BinsPerChannel: DefaultBinsPerChannel,
		AnalysisSize:   0,
	}
}

// Validate checks the extraction parameters
func (c Config) Validate() error {
	if c.BinsPerChannel < 1 || c.BinsPerChannel > MaxBinsPerChannel {
		return types.InvalidConfigf("bins_per_channel must be between 1 and %d, got %d", MaxBinsPerChannel, c.BinsPerChannel)
	}
	if c.AnalysisSize < 0 {
		return types.InvalidConfigf("analysis_size must be >= 0, got %d", c.AnalysisSize)
	}
	return nil
}

// Signature is the concatenated R, G and B histograms of a frame
type Signature struct {
	BinsPerChannel int
	Values         []float64
}

// Channel returns the normalised histogram of channel c (0=R, 1=G, 2=B)
func (s Signature) Channel(c int) []float64 {
	return s.Values[c*s.BinsPerChannel : (c+1)*s.BinsPerChannel]
}

// Extractor maps frames to signatures. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	config Config
}

// New creates an Extractor with default configuration
func New() *Extractor {
	return &Extractor{config: DefaultConfig()}
}

// NewWithConfig creates an Extractor with custom configuration
func NewWithConfig(config Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{config: config}, nil
}

// Config returns the extraction parameters
func (e *Extractor) Config() Config {
	return e.config
}

// Extract computes the signature of an image
func (e *Extractor) Extract(img image.Image) (Signature, error) {
	if img == nil || img.Bounds().Empty() {
		return Signature{}, types.ErrMalformedFrame
	}
	img = e.downscale(img)

	bins := e.config.BinsPerChannel
	sig := Signature{
		BinsPerChannel: bins,
		Values:         make([]float64, channels*bins),
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sig.Values[binIdx(r, bins)]++
			sig.Values[bins+binIdx(g, bins)]++
			sig.Values[2*bins+binIdx(b, bins)]++
		}
	}

	total := float64(bounds.Dx() * bounds.Dy())
	for i := range sig.Values {
		sig.Values[i] /= total
	}
	return sig, nil
}

// ExtractFrame validates a frame and computes its signature. Failures are
// returned as *types.FrameError.
func (e *Extractor) ExtractFrame(f types.FrameRecord) (Signature, error) {
	if err := f.Validate(); err != nil {
		return Signature{}, err
	}
	sig, err := e.Extract(f.Pixels)
	if err != nil {
		return Signature{}, types.NewFrameError(f, err)
	}
	return sig, nil
}

// Result is the outcome of loading and scoring a single frame
type Result struct {
	Position  int
	Frame     types.FrameRecord
	Signature Signature
	Err       error
}

// ExtractAll computes signatures for every frame of seq using up to
// workers goroutines. Results are returned in sequence order.
func (e *Extractor) ExtractAll(seq types.FrameSequence, workers int) []Result {
	return e.ExtractRange(seq, 0, seq.Len(), workers)
}

// ExtractRange computes signatures for positions [start, end) of seq.
// Results are returned in sequence order regardless of worker scheduling.
func (e *Extractor) ExtractRange(seq types.FrameSequence, start, end, workers int) []Result {
	if end <= start {
		return nil
	}
	results := make([]Result, end-start)
	if workers < 1 {
		workers = 1
	}
	if workers > len(results) {
		workers = len(results)
	}

	if workers == 1 {
		for i := range results {
			results[i] = e.load(seq, start+i)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.load(seq, start+i)
			}
		}()
	}
	for i := range results {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (e *Extractor) load(seq types.FrameSequence, pos int) Result {
	f, err := seq.At(pos)
	if err != nil {
		f.Index = pos
		return Result{Position: pos, Frame: f, Err: types.NewFrameError(f, err)}
	}
	sig, err := e.ExtractFrame(f)
	return Result{Position: pos, Frame: f, Signature: sig, Err: err}
}

func (e *Extractor) downscale(img image.Image) image.Image {
	size := e.config.AnalysisSize
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}
	if w >= h {
		return imaging.Resize(img, size, 0, imaging.Box)
	}
	return imaging.Resize(img, 0, size, imaging.Box)
}

// binIdx maps a 16-bit color component onto one of bins buckets
func binIdx(component uint32, bins int) int {
	idx := int(uint64(component) * uint64(bins) / 0x10000)
	if idx >= bins {
		idx = bins - 1
	}
	return idx
}
