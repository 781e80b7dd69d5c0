package filters

import (
	"fmt"

	"egt-segmenter/internal/labeling"
	"egt-segmenter/internal/models"
	"egt-segmenter/internal/stats"
)

// HoleOptions controls which background components get filled.
// Intensity percentiles are fractions in [0,1].
type HoleOptions struct {
	MinSize                float64
	MaxSize                float64
	Join                   models.JoinOperator
	MinIntensityPercentile float64
	MaxIntensityPercentile float64
}

// HoleOptionsFrom converts the parameter record, whose percentiles are in
// [0,100].
func HoleOptionsFrom(p models.Parameters) HoleOptions {
	return HoleOptions{
		MinSize:                p.MinHoleSize,
		MaxSize:                p.MaxHoleSize,
		Join:                   p.Join(),
		MinIntensityPercentile: p.MinHoleIntensityPercentile / 100,
		MaxIntensityPercentile: p.MaxHoleIntensityPercentile / 100,
	}
}

// HoleStats reports what FillHoles did.
type HoleStats struct {
	Holes        int
	Filled       int
	FilledPixels int
}

// FillHoles fills background components of mask that fail the size and
// intensity rules. A hole is kept when it lies strictly inside the size
// range and/or (per Join) its mean intensity lies strictly between the
// requested percentiles of the foreground intensities. Holes touching the
// image border are always kept since their extent is unknown. mask is
// modified in place; plane is read only.
func FillHoles(plane models.Plane, mask models.Mask, opts HoleOptions) (HoleStats, error) {
	if opts.Join != models.JoinAnd && opts.Join != models.JoinOr {
		return HoleStats{}, models.NewValidationError("join_operator", opts.Join, `must be "AND" or "OR"`)
	}

	w, h := mask.Width, mask.Height
	holes := labeling.FromMask(mask.Pix, true)
	n := labeling.Label4(holes, w, h)

	area := make([]int, n+1)
	sum := make([]float64, n+1)
	for k, id := range holes {
		if id > 0 {
			area[id]++
			sum[id] += float64(plane.Pix[k])
		}
	}

	foreground := make([]float64, 0, len(mask.Pix))
	for k, v := range mask.Pix {
		if v != 0 {
			foreground = append(foreground, float64(plane.Pix[k]))
		}
	}
	bounds, err := stats.PercentilesInPlace(
		[]float64{opts.MinIntensityPercentile, opts.MaxIntensityPercentile}, foreground)
	if err != nil {
		return HoleStats{}, fmt.Errorf("hole intensity bounds: %w", err)
	}
	lo, hi := bounds[0], bounds[1]

	keep := make([]bool, n+1)
	for id := 1; id <= n; id++ {
		size := float64(area[id])
		byArea := size > opts.MinSize && size < opts.MaxSize
		mean := sum[id] / size
		byIntensity := mean > lo && mean < hi

		if opts.Join == models.JoinAnd {
			keep[id] = byArea && byIntensity
		} else {
			keep[id] = byArea || byIntensity
		}
	}

	for x := 0; x < w; x++ {
		keep[holes[x]] = true
		keep[holes[(h-1)*w+x]] = true
	}
	for y := 0; y < h; y++ {
		keep[holes[y*w]] = true
		keep[holes[y*w+w-1]] = true
	}

	st := HoleStats{Holes: n}
	for id := 1; id <= n; id++ {
		if !keep[id] {
			st.Filled++
		}
	}
	for k, id := range holes {
		if id > 0 && !keep[id] {
			mask.Pix[k] = 1
			st.FilledPixels++
		}
	}
	return st, nil
}

// HoleFiller is the pipeline step around FillHoles.
type HoleFiller struct{}

func NewHoleFiller() *HoleFiller {
	return &HoleFiller{}
}

func (f *HoleFiller) Name() string {
	return "fill_holes"
}

func (f *HoleFiller) Apply(s *models.Segmentation) error {
	st, err := FillHoles(s.Plane, s.Mask, HoleOptionsFrom(s.Params))
	if err != nil {
		return err
	}
	s.Report.Holes = st.Holes
	s.Report.HolesFilled = st.Filled
	s.Report.FilledPixels = st.FilledPixels
	return nil
}
