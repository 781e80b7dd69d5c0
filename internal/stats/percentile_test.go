package stats

import (
	"errors"
	"math"
	"testing"

	"egt-segmenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentilesNearestRank(t *testing.T) {
	samples := []float64{5, 3, 1, 4, 2}
	got, err := Percentiles([]float64{0, 1, 0.5, 0.25, 0.1}, samples)
	require.NoError(t, err)
	// 0.25*4 = 1 -> 2, 0.1*4 = 0.4 -> index 0
	assert.Equal(t, []float64{1, 5, 3, 2, 1}, got)

	// caller's buffer untouched
	assert.Equal(t, []float64{5, 3, 1, 4, 2}, samples)
}

func TestPercentilesRoundsHalfUp(t *testing.T) {
	// (n-1)*p = 1.5 rounds to index 2
	got, err := Percentiles([]float64{0.5}, []float64{10, 20, 30, 40})
	require.NoError(t, err)
	assert.Equal(t, []float64{30}, got)
}

func TestPercentilesEmpty(t *testing.T) {
	got, err := Percentiles([]float64{0, 0.5, 1}, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestPercentilesInvalidQuery(t *testing.T) {
	for _, q := range []float64{1.5, -0.01, math.NaN()} {
		_, err := Percentiles([]float64{0.5, q}, []float64{1, 2, 3})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidPercentile))
		assert.True(t, errors.Is(err, models.ErrDomain))
	}

	// invalid queries fail even on an empty sample
	_, err := Percentiles([]float64{2}, nil)
	assert.ErrorIs(t, err, ErrInvalidPercentile)
}

func TestPercentilesInPlaceSorts(t *testing.T) {
	buf := []float64{3, 1, 2}
	got, err := PercentilesInPlace([]float64{1}, buf)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, got)
	assert.Equal(t, []float64{1, 2, 3}, buf)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.0, Round(2.5))
	assert.Equal(t, -2.0, Round(-2.5))
	assert.Equal(t, -3.0, Round(-2.6))
	assert.Equal(t, 0.0, Round(0.49))
}
