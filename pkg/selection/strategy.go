package selection

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/frame-selector/pkg/scene"
	"github.com/menta2k/frame-selector/pkg/types"
)

const (
	UniformName     = "uniform"
	SceneChangeName = scene.StrategyName
	BothName        = "both"
)

// Strategy is one of the closed set of selection variants: Uniform,
// SceneChange or Both.
type Strategy interface {
	Name() string

	usesSampler() bool
	usesDetector() bool
	apply(p *Policy, seq types.FrameSequence) (*types.SelectionResult, error)
}

// Uniform picks evenly spaced frames regardless of content
type Uniform struct{}

// SceneChange picks frames following a significant visual change
type SceneChange struct{}

// Both merges Uniform and SceneChange and collapses near neighbours
type Both struct{}

// ParseStrategy resolves a strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case UniformName:
		return Uniform{}, nil
	case SceneChangeName, "scene", "scene-change":
		return SceneChange{}, nil
	case BothName:
		return Both{}, nil
	default:
		return nil, types.InvalidConfigf("unknown strategy %q (use uniform, scene_change or both)", name)
	}
}

// Strategies lists every variant
func Strategies() []Strategy {
	return []Strategy{Uniform{}, SceneChange{}, Both{}}
}

func (Uniform) Name() string       { return UniformName }
func (Uniform) usesSampler() bool  { return true }
func (Uniform) usesDetector() bool { return false }

func (Uniform) apply(p *Policy, seq types.FrameSequence) (*types.SelectionResult, error) {
	n := seq.Len()
	indices, err := p.sampler.Indices(n)
	if err != nil {
		return nil, err
	}

	result := &types.SelectionResult{
		Strategy:    UniformName,
		TotalFrames: n,
		Selected:    make([]types.FrameRecord, 0, len(indices)),
		Scores:      map[int]float64{},
	}
	for _, i := range indices {
		f, err := seq.At(i)
		switch {
		case err != nil:
			f.Index = i
		case f.Index != i:
			err = fmt.Errorf("frame at position %d carries index %d", i, f.Index)
			f.Index = i
		default:
			err = f.Validate()
		}
		if err != nil {
			fe := toFrameError(f, err)
			result.Malformed = append(result.Malformed, fe)
			p.logger.Warn("skipping malformed frame",
				zap.Int("frame_index", fe.Index),
				zap.Float64("timestamp", fe.Timestamp),
				zap.Error(fe.Err),
			)
			continue
		}
		result.Selected = append(result.Selected, f)
	}
	return result, nil
}

func (SceneChange) Name() string       { return SceneChangeName }
func (SceneChange) usesSampler() bool  { return false }
func (SceneChange) usesDetector() bool { return true }

func (SceneChange) apply(p *Policy, seq types.FrameSequence) (*types.SelectionResult, error) {
	d, err := scene.New(p.config.sceneConfig(), p.extractor)
	if err != nil {
		return nil, err
	}
	d.SetLogger(p.logger)
	return d.Detect(seq)
}

func (Both) Name() string       { return BothName }
func (Both) usesSampler() bool  { return true }
func (Both) usesDetector() bool { return true }

func (Both) apply(p *Policy, seq types.FrameSequence) (*types.SelectionResult, error) {
	uniform, err := Uniform{}.apply(p, seq)
	if err != nil {
		return nil, err
	}
	changes, err := SceneChange{}.apply(p, seq)
	if err != nil {
		return nil, err
	}

	merged := Merge(p.config.MinGap, uniform.Selected, changes.Selected)
	return &types.SelectionResult{
		Strategy:    BothName,
		TotalFrames: seq.Len(),
		Selected:    merged,
		Scores:      changes.Scores,
		Malformed:   mergeMalformed(uniform.Malformed, changes.Malformed),
	}, nil
}

// Merge unions frame selections, orders them by index and collapses frames
// closer than minGap to the earlier one.
func Merge(minGap int, selections ...[]types.FrameRecord) []types.FrameRecord {
	byIndex := make(map[int]types.FrameRecord)
	for _, sel := range selections {
		for _, f := range sel {
			if _, ok := byIndex[f.Index]; !ok {
				byIndex[f.Index] = f
			}
		}
	}

	indices := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]types.FrameRecord, 0, len(indices))
	last := -1
	for _, i := range indices {
		if last >= 0 && i-last < minGap {
			continue
		}
		out = append(out, byIndex[i])
		last = i
	}
	return out
}

func mergeMalformed(lists ...[]*types.FrameError) []*types.FrameError {
	seen := make(map[int]bool)
	var out []*types.FrameError
	for _, list := range lists {
		for _, fe := range list {
			if seen[fe.Index] {
				continue
			}
			seen[fe.Index] = true
			out = append(out, fe)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
