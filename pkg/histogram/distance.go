package histogram

import (
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/frame-selector/pkg/types"
)

// Metric selects how two signatures are compared. Every metric returns a
// value in [0,1] that is 0 for identical signatures.
type Metric string

const (
	// Bhattacharyya uses the Hellinger form sqrt(1 - sum(sqrt(p*q))).
	Bhattacharyya Metric = "bhattacharyya"
	// ChiSquare uses the symmetric form 0.5 * sum((p-q)^2 / (p+q)).
	ChiSquare Metric = "chisquare"
)

const DefaultMetric = Bhattacharyya

// ParseMetric resolves a metric name; the empty string selects the default
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultMetric, nil
	case Bhattacharyya, "hellinger":
		return Bhattacharyya, nil
	case ChiSquare, "chi-square", "chisqr":
		return ChiSquare, nil
	default:
		return "", types.InvalidConfigf("unknown distance metric %q", name)
	}
}

// Distance compares two signatures, averaging the per-channel distance
func (m Metric) Distance(a, b Signature) (float64, error) {
	if a.BinsPerChannel != b.BinsPerChannel || len(a.Values) != len(b.Values) {
		return 0, fmt.Errorf("signature shape mismatch: %d vs %d bins", a.BinsPerChannel, b.BinsPerChannel)
	}
	if a.BinsPerChannel == 0 {
		return 0, fmt.Errorf("empty signature")
	}

	var channelDist func(p, q []float64) float64
	switch m {
	case Bhattacharyya:
		channelDist = hellinger
	case ChiSquare:
		channelDist = chiSquare
	default:
		return 0, types.InvalidConfigf("unknown distance metric %q", string(m))
	}

	var total float64
	for c := 0; c < channels; c++ {
		total += channelDist(a.Channel(c), b.Channel(c))
	}
	d := total / channels
	return math.Min(math.Max(d, 0), 1), nil
}

func hellinger(p, q []float64) float64 {
	var bc float64
	for i := range p {
		bc += math.Sqrt(p[i] * q[i])
	}
	// rounding can push the coefficient of identical histograms past 1
	if bc >= 1-1e-12 {
		return 0
	}
	return math.Sqrt(1 - bc)
}

func chiSquare(p, q []float64) float64 {
	var sum float64
	for i := range p {
		s := p[i] + q[i]
		if s == 0 {
			continue
		}
		d := p[i] - q[i]
		sum += d * d / s
	}
	return sum / 2
}
