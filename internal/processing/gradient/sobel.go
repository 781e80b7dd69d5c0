// Package gradient computes edge magnitude maps.
package gradient

import (
	"math"

	"egt-segmenter/internal/models"
)

// Sobel returns the 3x3 Sobel gradient magnitude of the plane. Pixels
// outside the image take the value of the nearest edge pixel. The plane is
// not modified.
//
// With p1..p9 the neighbourhood in row-major order:
//
//	gx = p1 + 2*p2 + p3 - p7 - 2*p8 - p9
//	gy = p1 + 2*p4 + p7 - p3 - 2*p6 - p9
func Sobel(plane models.Plane) []float32 {
	w, h := plane.Width, plane.Height
	src := plane.Pix
	out := make([]float32, len(src))

	for y := 0; y < h; y++ {
		rowUp := max(y-1, 0) * w
		row := y * w
		rowDown := min(y+1, h-1) * w
		for x := 0; x < w; x++ {
			left := max(x-1, 0)
			right := min(x+1, w-1)

			p1 := float64(src[rowUp+left])
			p2 := float64(src[rowUp+x])
			p3 := float64(src[rowUp+right])
			p4 := float64(src[row+left])
			p6 := float64(src[row+right])
			p7 := float64(src[rowDown+left])
			p8 := float64(src[rowDown+x])
			p9 := float64(src[rowDown+right])

			gx := p1 + 2*p2 + p3 - p7 - 2*p8 - p9
			gy := p1 + 2*p4 + p7 - p3 - 2*p6 - p9
			out[row+x] = float32(math.Sqrt(float64(gx*gx) + float64(gy*gy)))
		}
	}
	return out
}

// NonZero copies the strictly positive values of g into a new slice.
func NonZero(g []float32) []float64 {
	n := 0
	for _, v := range g {
		if v > 0 {
			n++
		}
	}
	out := make([]float64, 0, n)
	for _, v := range g {
		if v > 0 {
			out = append(out, float64(v))
		}
	}
	return out
}

// Step is the pipeline stage that fills the gradient field.
type Step struct{}

func NewStep() *Step {
	return &Step{}
}

func (s *Step) Name() string {
	return "sobel"
}

func (s *Step) Apply(seg *models.Segmentation) error {
	seg.Gradient = Sobel(seg.Plane)
	return nil
}
