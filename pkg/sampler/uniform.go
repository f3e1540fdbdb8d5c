// Package sampler picks frames at a fixed stride, independent of content.
package sampler

import "github.com/menta2k/frame-selector/pkg/types"

// UniformSampler selects evenly spaced frame indices
type UniformSampler struct {
	sampleSize int
}

// New creates a UniformSampler for k frames
func New(k int) (*UniformSampler, error) {
	if k < 0 {
		return nil, types.InvalidConfigf("sample_size must be >= 0, got %d", k)
	}
	return &UniformSampler{sampleSize: k}, nil
}

// SampleSize returns the configured target count
func (s *UniformSampler) SampleSize() int {
	return s.sampleSize
}

// Indices returns the sampled indices for a sequence of n frames
func (s *UniformSampler) Indices(n int) ([]int, error) {
	return Indices(n, s.sampleSize)
}

// Indices returns up to k strictly increasing indices spanning [0, n-1]
// with maximal even spacing: floor(i*(n-1)/(k-1)). k=1 yields the middle
// frame and n<=k yields every frame.
func Indices(n, k int) ([]int, error) {
	if k < 0 {
		return nil, types.InvalidConfigf("sample_size must be >= 0, got %d", k)
	}
	if n < 0 {
		return nil, types.InvalidConfigf("frame count must be >= 0, got %d", n)
	}
	if k == 0 || n == 0 {
		return []int{}, nil
	}
	if k == 1 {
		return []int{(n - 1) / 2}, nil
	}
	if n <= k {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	out := make([]int, k)
	span := n - 1
	for i := 0; i < k; i++ {
		out[i] = i * span / (k - 1)
	}
	return out, nil
}
