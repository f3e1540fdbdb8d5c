package selection

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/frame-selector/pkg/types"
)

// createTestFrames builds n frames whose color changes every `every` frames
func createTestFrames(n, every int) types.Frames {
	palette := []color.RGBA{
		{0, 0, 0, 255},
		{255, 0, 0, 255},
		{255, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 255, 255},
		{0, 255, 0, 255},
	}
	frames := make(types.Frames, n)
	for i := 0; i < n; i++ {
		c := palette[(i/every)%len(palette)]
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				img.Set(x, y, c)
			}
		}
		frames[i] = types.FrameRecord{Index: i, Timestamp: float64(i) / 30, Pixels: img}
	}
	return frames
}

func newPolicy(t *testing.T, mutate func(*Config)) *Policy {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
	}{
		{"uniform", Uniform{}},
		{"scene_change", SceneChange{}},
		{"Scene-Change", SceneChange{}},
		{"both", Both{}},
	}
	for _, tt := range tests {
		s, err := ParseStrategy(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, s)
	}

	_, err := ParseStrategy("motion")
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
	assert.Len(t, Strategies(), 3)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"unknown strategy", func(c *Config) { c.Strategy = "random" }, false},
		{"zero sample size uniform", func(c *Config) { c.Strategy = UniformName; c.SampleSize = 0 }, false},
		{"negative sample size both", func(c *Config) { c.SampleSize = -2 }, false},
		{"sample size ignored for scene", func(c *Config) { c.Strategy = SceneChangeName; c.SampleSize = 0 }, true},
		{"zero threshold", func(c *Config) { c.Strategy = SceneChangeName; c.Threshold = 0 }, false},
		{"threshold above one", func(c *Config) { c.Threshold = 1.5 }, false},
		{"threshold of one", func(c *Config) { c.Threshold = 1 }, true},
		{"threshold ignored for uniform", func(c *Config) { c.Strategy = UniformName; c.Threshold = 7 }, true},
		{"negative min gap", func(c *Config) { c.MinGap = -1 }, false},
		{"bad bins", func(c *Config) { c.BinsPerChannel = 0 }, false},
		{"bad metric", func(c *Config) { c.Metric = "emd" }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, types.ErrInvalidConfig)
			}
		})
	}
}

func TestSelectEmptyInput(t *testing.T) {
	for _, s := range Strategies() {
		p := newPolicy(t, func(c *Config) { c.Strategy = s.Name() })
		result, err := p.Select(types.Frames{})
		assert.ErrorIs(t, err, types.ErrEmptyInput, s.Name())
		assert.Nil(t, result)

		result, err = p.Select(nil)
		assert.ErrorIs(t, err, types.ErrEmptyInput)
		assert.Nil(t, result)
	}
}

func TestUniformScenario(t *testing.T) {
	p := newPolicy(t, func(c *Config) {
		c.Strategy = UniformName
		c.SampleSize = 5
	})

	result, err := p.Select(createTestFrames(100, 100))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 24, 49, 74, 99}, result.Indices())
	assert.Equal(t, UniformName, result.Strategy)
	assert.Equal(t, 100, result.TotalFrames)
}

func TestUniformSkipsMalformed(t *testing.T) {
	frames := createTestFrames(10, 10)
	frames[9].Pixels = nil

	p := newPolicy(t, func(c *Config) {
		c.Strategy = UniformName
		c.SampleSize = 4
	})
	result, err := p.Select(frames)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 6}, result.Indices())
	require.Len(t, result.Malformed, 1)
	assert.Equal(t, 9, result.Malformed[0].Index)
}

func TestUniformRejectsMisnumberedFrames(t *testing.T) {
	frames := createTestFrames(10, 10)
	frames[3].Index = 8

	p := newPolicy(t, func(c *Config) {
		c.Strategy = UniformName
		c.SampleSize = 4
	})
	result, err := p.Select(frames)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 6, 9}, result.Indices())
	require.Len(t, result.Malformed, 1)
	assert.Equal(t, 3, result.Malformed[0].Index)
	assert.ErrorIs(t, result.Malformed[0], types.ErrMalformedFrame)
}

func TestPolicyBuildsSamplerOnlyWhenNeeded(t *testing.T) {
	uniform := newPolicy(t, func(c *Config) { c.Strategy = UniformName })
	require.NotNil(t, uniform.sampler)
	assert.Equal(t, uniform.Config().SampleSize, uniform.sampler.SampleSize())

	scene := newPolicy(t, func(c *Config) { c.Strategy = SceneChangeName })
	assert.Nil(t, scene.sampler)
}

func TestSceneChangeDelegates(t *testing.T) {
	p := newPolicy(t, func(c *Config) { c.Strategy = SceneChangeName })

	result, err := p.Select(createTestFrames(30, 10))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20}, result.Indices())
	assert.Equal(t, SceneChangeName, result.Strategy)
}

func TestBothUnionProperty(t *testing.T) {
	frames := createTestFrames(60, 7)

	for _, gap := range []int{0, 2, 5, 12} {
		t.Run(fmt.Sprintf("min_gap=%d", gap), func(t *testing.T) {
			mutate := func(s string) func(*Config) {
				return func(c *Config) {
					c.Strategy = s
					c.SampleSize = 6
					c.MinGap = gap
				}
			}
			uniform, err := newPolicy(t, mutate(UniformName)).Select(frames)
			require.NoError(t, err)
			changes, err := newPolicy(t, mutate(SceneChangeName)).Select(frames)
			require.NoError(t, err)
			both, err := newPolicy(t, mutate(BothName)).Select(frames)
			require.NoError(t, err)

			got := both.Indices()
			assert.LessOrEqual(t, len(got), len(uniform.Selected)+len(changes.Selected))
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i], got[i-1])
				assert.GreaterOrEqual(t, got[i]-got[i-1], gap)
			}

			present := make(map[int]bool)
			for _, i := range got {
				present[i] = true
			}
			for _, idx := range append(uniform.Indices(), changes.Indices()...) {
				if present[idx] {
					continue
				}
				// a missing index must have been collapsed into an earlier kept one
				collapsed := false
				for _, kept := range got {
					if kept < idx && idx-kept < gap {
						collapsed = true
					}
				}
				assert.True(t, collapsed, "index %d dropped without collapse", idx)
			}
		})
	}
}

func TestBothMergeExample(t *testing.T) {
	// uniform picks 0,29,59; scene changes land on multiples of 10
	frames := createTestFrames(60, 10)

	p := newPolicy(t, func(c *Config) {
		c.SampleSize = 3
		c.MinGap = 0
	})
	result, err := p.Select(frames)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20, 29, 30, 40, 50, 59}, result.Indices())

	p = newPolicy(t, func(c *Config) {
		c.SampleSize = 3
		c.MinGap = 5
	})
	result, err = p.Select(frames)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20, 29, 40, 50, 59}, result.Indices())
	assert.Equal(t, BothName, result.Strategy)
	assert.NotEmpty(t, result.Scores)
}

func TestMerge(t *testing.T) {
	f := func(indices ...int) []types.FrameRecord {
		out := make([]types.FrameRecord, len(indices))
		for i, idx := range indices {
			out[i] = types.FrameRecord{Index: idx}
		}
		return out
	}
	indices := func(frames []types.FrameRecord) []int {
		out := make([]int, len(frames))
		for i, fr := range frames {
			out[i] = fr.Index
		}
		return out
	}

	assert.Equal(t, []int{0, 3, 5, 9}, indices(Merge(0, f(0, 5, 9), f(3, 5))))
	assert.Equal(t, []int{0, 5, 9}, indices(Merge(2, f(0, 5, 9), f(1, 6))))
	assert.Equal(t, []int{0, 4, 8}, indices(Merge(4, f(0, 1, 2, 3, 4, 5, 6, 7, 8))))
	assert.Empty(t, Merge(3))
}

func TestSelectIsIdempotent(t *testing.T) {
	frames := createTestFrames(45, 4)
	frames[11].Pixels = nil

	for _, s := range Strategies() {
		p := newPolicy(t, func(c *Config) {
			c.Strategy = s.Name()
			c.SampleSize = 7
			c.MinGap = 2
		})
		first, err := p.Select(frames)
		require.NoError(t, err)
		second, err := p.Select(frames)
		require.NoError(t, err)
		assert.Equal(t, first, second, s.Name())
	}
}

func TestPolicyConcurrentUse(t *testing.T) {
	frames := createTestFrames(40, 5)
	p := newPolicy(t, func(c *Config) { c.Workers = 2 })

	expected, err := p.Select(frames)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*types.SelectionResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = p.Select(frames)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, expected.Indices(), r.Indices())
	}
}

func BenchmarkSelectBoth(b *testing.B) {
	frames := createTestFrames(300, 25)
	p, err := New(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Select(frames)
	}
}
