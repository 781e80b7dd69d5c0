package pipeline

import (
	"fmt"
	"math"

	"egt-segmenter/internal/models"
)

// SegmentationMetrics compares a segmented mask against a reference mask.
type SegmentationMetrics struct {
	IoU                    float64 // Intersection over Union
	DiceCoefficient        float64 // Dice Similarity Coefficient
	MisclassificationError float64 // Fraction of disagreeing pixels
	HausdorffDistance      float64 // Maximum boundary discrepancy in pixels
}

// CalculateSegmentationMetrics scores segmented against groundTruth. Both
// masks must have the same dimensions.
func CalculateSegmentationMetrics(segmented, groundTruth models.Mask) (*SegmentationMetrics, error) {
	if segmented.Width != groundTruth.Width || segmented.Height != groundTruth.Height {
		return nil, fmt.Errorf("mask dimensions must match: segmented %dx%d, ground truth %dx%d",
			segmented.Width, segmented.Height, groundTruth.Width, groundTruth.Height)
	}
	if len(segmented.Pix) != len(groundTruth.Pix) {
		return nil, fmt.Errorf("mask buffers differ in length: %d vs %d", len(segmented.Pix), len(groundTruth.Pix))
	}

	metrics := &SegmentationMetrics{}
	calculateBinaryMaskMetrics(segmented, groundTruth, metrics)

	gtBoundary := extractBoundaryPoints(groundTruth)
	segBoundary := extractBoundaryPoints(segmented)
	if len(gtBoundary) > 0 && len(segBoundary) > 0 {
		h1 := calculateDirectedHausdorff(gtBoundary, segBoundary)
		h2 := calculateDirectedHausdorff(segBoundary, gtBoundary)
		metrics.HausdorffDistance = math.Max(h1, h2)
	}

	return metrics, nil
}

func calculateBinaryMaskMetrics(segmented, groundTruth models.Mask, metrics *SegmentationMetrics) {
	var truePositive, falsePositive, falseNegative int

	for i, s := range segmented.Pix {
		seg := s != 0
		gt := groundTruth.Pix[i] != 0
		switch {
		case seg && gt:
			truePositive++
		case seg:
			falsePositive++
		case gt:
			falseNegative++
		}
	}

	intersection := float64(truePositive)
	union := float64(truePositive + falsePositive + falseNegative)
	if union > 0 {
		metrics.IoU = intersection / union
		metrics.DiceCoefficient = (2.0 * intersection) / float64(2*truePositive+falsePositive+falseNegative)
	} else {
		// both empty
		metrics.IoU = 1.0
		metrics.DiceCoefficient = 1.0
	}

	if total := len(segmented.Pix); total > 0 {
		metrics.MisclassificationError = float64(falsePositive+falseNegative) / float64(total)
	}
}

// Point is a pixel position.
type Point struct {
	X, Y int
}

// extractBoundaryPoints finds foreground pixels with an 8-connected
// background neighbour inside the image.
func extractBoundaryPoints(mask models.Mask) []Point {
	var boundary []Point
	w, h := mask.Width, mask.Height

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Pix[y*w+x] == 0 {
				continue
			}
			isBoundary := false
			for dy := -1; dy <= 1 && !isBoundary; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if mask.Pix[ny*w+nx] == 0 {
						isBoundary = true
						break
					}
				}
			}
			if isBoundary {
				boundary = append(boundary, Point{X: x, Y: y})
			}
		}
	}

	return boundary
}

func calculateDirectedHausdorff(set1, set2 []Point) float64 {
	maxDist := 0.0

	for _, p1 := range set1 {
		minDist := math.Inf(1)

		for _, p2 := range set2 {
			dx := float64(p1.X - p2.X)
			dy := float64(p1.Y - p2.Y)
			dist := math.Sqrt(dx*dx + dy*dy)

			if dist < minDist {
				minDist = dist
			}
		}

		if minDist > maxDist {
			maxDist = minDist
		}
	}

	return maxDist
}

// Fields flattens the metrics for structured logging.
func (m *SegmentationMetrics) Fields() map[string]interface{} {
	return map[string]interface{}{
		"iou":                     m.IoU,
		"dice":                    m.DiceCoefficient,
		"misclassification_error": m.MisclassificationError,
		"hausdorff_distance":      m.HausdorffDistance,
	}
}
