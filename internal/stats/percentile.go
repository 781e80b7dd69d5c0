// Package stats holds nearest-rank statistics over pixel samples.
package stats

import (
	"fmt"
	"math"
	"slices"

	"egt-segmenter/internal/models"
)

// ErrInvalidPercentile is returned for a query outside [0,1].
var ErrInvalidPercentile = fmt.Errorf("%w: percentile must be between 0 and 1 inclusive", models.ErrDomain)

// Round rounds half up, matching the rounding used when the calibration of
// the threshold selector was derived. math.Round would send -2.5 to -3.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Percentiles returns the nearest-rank percentile of samples for every
// query. samples is not modified. An empty sample yields NaN for every
// query.
func Percentiles(queries []float64, samples []float64) ([]float64, error) {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	return PercentilesInPlace(queries, sorted)
}

// PercentilesInPlace is Percentiles for a scratch buffer the caller owns:
// samples is sorted ascending as a side effect.
func PercentilesInPlace(queries []float64, samples []float64) ([]float64, error) {
	// Queries are checked before the sample size, so a bad query fails even
	// on an empty sample.
	for _, q := range queries {
		if math.IsNaN(q) || q < 0 || q > 1 {
			return nil, fmt.Errorf("%w: got %v", ErrInvalidPercentile, q)
		}
	}

	values := make([]float64, len(queries))
	if len(samples) == 0 {
		for i := range values {
			values[i] = math.NaN()
		}
		return values, nil
	}

	slices.Sort(samples)
	last := len(samples) - 1
	for i, q := range queries {
		// The outer conversion rounds the product to float64 before Round
		// adds 0.5, which keeps the compiler from fusing it into an FMA.
		idx := int(Round(float64(float64(last) * q)))
		idx = min(max(idx, 0), last)
		values[i] = samples[idx]
	}
	return values, nil
}
