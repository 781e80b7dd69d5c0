package threshold

import (
	"fmt"
	"math"

	"egt-segmenter/internal/models"
	"egt-segmenter/internal/processing/gradient"
	"egt-segmenter/internal/stats"

	"gonum.org/v1/gonum/floats"
)

const (
	// NumBins is the number of regular histogram bins. The histogram holds
	// one more bin that only the maximum value can round into.
	NumBins = 1000
	// NumModes is how many of the largest bins are averaged into the mode.
	NumModes = 3

	MinAutoPercentile = 25
	MaxAutoPercentile = 98
	MinPercentile     = 1
	MaxPercentile     = 100
)

// Calibration points of the density to percentile line.
const (
	lowDensity         = 3.0
	lowDensityPercent  = 95.0
	highDensity        = 42.0
	highDensityPercent = 40.0

	tailFraction     = 0.05
	lowerBoundFactor = 3
	upperBoundFactor = 18
)

// ErrNoGradient is returned for planes without any edge response.
var ErrNoGradient = fmt.Errorf("%w: input image has no nonzero gradient pixels", models.ErrDomain)

// Selection describes how the pixel threshold was derived.
type Selection struct {
	Min, Max       float32
	ModeLocation   int
	LowerBound     int
	UpperBound     int
	Density        float64
	AutoPercentile float64
	Percentile     float64
	PixelThreshold float64
}

// Histogram bins the nonzero values of g over [min,max] of those values.
func Histogram(g []float32) (hist []float64, minV, maxV float32, err error) {
	minV = math.MaxFloat32
	maxV = math.SmallestNonzeroFloat32
	found := false
	for _, v := range g {
		if v > 0 {
			found = true
			minV = min(minV, v)
			maxV = max(maxV, v)
		}
	}
	if !found {
		return nil, 0, 0, ErrNoGradient
	}

	hist = make([]float64, NumBins+1)
	if maxV == minV {
		// every value sits on the lower edge of the range
		for _, v := range g {
			if v > 0 {
				hist[0]++
			}
		}
		return hist, minV, maxV, nil
	}

	// rescale is computed in single precision and then widened, the
	// conversions keep the product rounded before the half-bin offset.
	rescale := float64(float32(NumBins) / (maxV - minV))
	for _, v := range g {
		if v > 0 {
			scaled := float64(float64(v-minV) * rescale)
			hist[int(scaled+0.5)]++
		}
	}
	return hist, minV, maxV, nil
}

// modeLocation averages the indexes of the NumModes largest bins. Bins are
// inserted into a descending list with a strict comparison, so among equal
// counts the first bin found wins.
func modeLocation(hist []float64) int {
	var modes [NumModes]float64
	var idxs [NumModes]int
	for k, c := range hist {
		for l := range modes {
			if c > modes[l] {
				for m := NumModes - 1; m > l; m-- {
					modes[m] = modes[m-1]
					idxs[m] = idxs[m-1]
				}
				modes[l] = c
				idxs[l] = k
				break
			}
		}
	}
	sum := 0.0
	for _, i := range idxs {
		sum += float64(i)
	}
	return int(stats.Round(sum / NumModes))
}

// AutoPercentile derives the percentile threshold in [25,98] from the
// histogram. hist is not modified.
func AutoPercentile(hist []float64) Selection {
	modeLoc := modeLocation(hist)

	norm := make([]float64, len(hist))
	total := floats.Sum(hist) / 100
	for k, c := range hist {
		norm[k] = c / total
	}

	// bounds are computed with 1-based indexes and shifted back
	lowerBound := lowerBoundFactor * (modeLoc + 1)
	if lowerBound >= len(norm) {
		lowerBound = len(norm) - 1
	}
	lowerBound--

	peak := floats.Max(norm)
	idx := 0
	for k := modeLoc; k < len(norm); k++ {
		if norm[k]/peak < tailFraction {
			idx = k
			break
		}
	}

	upperBound := max(idx, upperBoundFactor*(modeLoc+1))
	if upperBound >= len(norm) {
		upperBound = len(norm) - 1
	}
	upperBound--

	density := 0.0
	for k := lowerBound; k <= upperBound; k++ {
		density += norm[k]
	}

	a := (lowDensityPercent - highDensityPercent) / (lowDensity - highDensity)
	b := lowDensityPercent - a*lowDensity
	// float64 rounds a*density before b is added, so no FMA.
	percentile := stats.Round(float64(a*density) + b)
	percentile = min(max(percentile, MinAutoPercentile), MaxAutoPercentile)

	return Selection{
		ModeLocation:   modeLoc,
		LowerBound:     lowerBound,
		UpperBound:     upperBound,
		Density:        density,
		AutoPercentile: percentile,
		Percentile:     percentile,
	}
}

// ApplyGreedy shifts the percentile by the greedy bias and clamps the result
// to [1,100]. A positive bias lowers the percentile and keeps more
// foreground.
func ApplyGreedy(percentile float64, greedy int) float64 {
	p := percentile - float64(greedy)
	return min(max(p, MinPercentile), MaxPercentile)
}

// Select derives the absolute pixel threshold for the gradient g. g is not
// modified.
func Select(g []float32, greedy int) (Selection, error) {
	hist, minV, maxV, err := Histogram(g)
	if err != nil {
		return Selection{}, err
	}

	sel := AutoPercentile(hist)
	sel.Min, sel.Max = minV, maxV
	sel.Percentile = ApplyGreedy(sel.AutoPercentile, greedy)

	values, err := stats.PercentilesInPlace([]float64{sel.Percentile / 100}, gradient.NonZero(g))
	if err != nil {
		return Selection{}, fmt.Errorf("pixel threshold: %w", err)
	}
	sel.PixelThreshold = values[0]
	return sel, nil
}

// Binarize marks every pixel strictly above the threshold as foreground.
func Binarize(g []float32, width, height int, threshold float64) models.Mask {
	mask := models.NewMask(width, height)
	for i, v := range g {
		if float64(v) > threshold {
			mask.Pix[i] = 1
		}
	}
	return mask
}

// Step selects the threshold from the gradient and binarizes it.
type Step struct{}

func NewStep() *Step {
	return &Step{}
}

func (t *Step) Name() string {
	return "threshold"
}

func (t *Step) Apply(s *models.Segmentation) error {
	if s.Gradient == nil {
		return fmt.Errorf("%w: gradient not computed", models.ErrDomain)
	}
	sel, err := Select(s.Gradient, s.Params.Greedy)
	if err != nil {
		return err
	}

	s.Report.ModeLocation = sel.ModeLocation
	s.Report.Density = sel.Density
	s.Report.AutoPercentile = sel.AutoPercentile
	s.Report.Percentile = sel.Percentile
	s.Report.PixelThreshold = sel.PixelThreshold

	s.Mask = Binarize(s.Gradient, s.Plane.Width, s.Plane.Height, sel.PixelThreshold)
	return nil
}
