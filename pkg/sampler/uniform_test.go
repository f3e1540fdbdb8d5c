package sampler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/menta2k/frame-selector/pkg/types"
)

func TestIndicesHundredFramesFive(t *testing.T) {
	got, err := Indices(100, 5)
	if err != nil {
		t.Fatalf("Failed to sample indices: %v", err)
	}

	expected := []int{0, 24, 49, 74, 99}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestIndicesEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		n, k     int
		expected []int
	}{
		{"zero sample size", 10, 0, []int{}},
		{"single sample picks middle", 10, 1, []int{4}},
		{"single sample odd count", 11, 1, []int{5}},
		{"single frame", 1, 1, []int{0}},
		{"fewer frames than samples", 3, 5, []int{0, 1, 2}},
		{"exact fit", 4, 4, []int{0, 1, 2, 3}},
		{"two samples hit endpoints", 7, 2, []int{0, 6}},
		{"empty sequence", 0, 3, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Indices(tt.n, tt.k)
			if err != nil {
				t.Fatalf("Failed to sample indices: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIndicesNegativeSampleSize(t *testing.T) {
	if _, err := Indices(10, -1); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	if _, err := New(-3); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig from New, got %v", err)
	}
}

func TestIndicesProperties(t *testing.T) {
	for n := 1; n <= 60; n++ {
		for k := 1; k <= n; k++ {
			got, err := Indices(n, k)
			if err != nil {
				t.Fatalf("n=%d k=%d: %v", n, k, err)
			}
			if len(got) != k {
				t.Fatalf("n=%d k=%d: expected %d indices, got %d", n, k, k, len(got))
			}

			for i, idx := range got {
				if idx < 0 || idx >= n {
					t.Errorf("n=%d k=%d: index %d out of range", n, k, idx)
				}
				if i > 0 && idx <= got[i-1] {
					t.Errorf("n=%d k=%d: not strictly increasing at %d: %v", n, k, i, got)
				}
			}
			if k >= 2 && (got[0] != 0 || got[k-1] != n-1) {
				t.Errorf("n=%d k=%d: expected endpoints 0 and %d, got %v", n, k, n-1, got)
			}
		}
	}
}

func TestSamplerUsesConfiguredSize(t *testing.T) {
	s, err := New(3)
	if err != nil {
		t.Fatalf("Failed to create sampler: %v", err)
	}
	if s.SampleSize() != 3 {
		t.Errorf("Expected sample size 3, got %d", s.SampleSize())
	}

	got, err := s.Indices(9)
	if err != nil {
		t.Fatalf("Failed to sample indices: %v", err)
	}
	expected := []int{0, 4, 8}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}
