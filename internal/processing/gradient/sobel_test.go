package gradient

import (
	"testing"

	"egt-segmenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plane(t *testing.T, w, h int, pix ...float32) models.Plane {
	t.Helper()
	p, err := models.NewPlane(w, h, pix)
	require.NoError(t, err)
	return p
}

func TestSobelFlat(t *testing.T) {
	p := plane(t, 3, 3, 7, 7, 7, 7, 7, 7, 7, 7, 7)
	for _, v := range Sobel(p) {
		assert.Zero(t, v)
	}
}

func TestSobelVerticalEdge(t *testing.T) {
	// left column 0, right two columns 10
	p := plane(t, 3, 3,
		0, 10, 10,
		0, 10, 10,
		0, 10, 10,
	)
	g := Sobel(p)

	// centre: gy = (p1+2p4+p7) - (p3+2p6+p9) = 0 - 40
	assert.InDelta(t, 40, g[4], 1e-6)
	// left edge replicates the 0 column: gy = 0 - (10+20+10)
	assert.InDelta(t, 40, g[3], 1e-6)
	// right edge sees 10 on both sides
	assert.Zero(t, g[5])
}

func TestSobelDiagonalMagnitude(t *testing.T) {
	p := plane(t, 2, 2,
		0, 0,
		0, 4,
	)
	g := Sobel(p)
	// bottom-right: p1..p9 = 0 0 0 / 0 4 4 / 0 4 4 (replicated)
	// gx = 0 - 0 - 8 - 4 = -12, gy = 0 - 0 - 8 - 4 = -12
	assert.InDelta(t, 16.970562, g[3], 1e-5)
	// top-left only sees the 4 in its p9 slot
	assert.InDelta(t, 5.656854, g[0], 1e-5)
}

func TestSobelDoesNotMutate(t *testing.T) {
	pix := []float32{1, 2, 3, 4, 5, 6}
	p := plane(t, 3, 2, pix...)
	Sobel(p)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, p.Pix)
}

func TestNonZero(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2}, NonZero([]float32{0, 1.5, 0, 2}))
	assert.Empty(t, NonZero([]float32{0, 0}))
}
