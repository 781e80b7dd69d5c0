package models

import "time"

// Segmentation is the working state of one plane's pipeline run. It is
// owned by a single invocation; steps read the plane and hand the mask
// along.
type Segmentation struct {
	Plane    Plane
	Params   Parameters
	Gradient []float32
	Mask     Mask
	Report   Report
}

// Report summarises a segmentation run.
type Report struct {
	Label          string
	ModeLocation   int
	Density        float64
	AutoPercentile float64
	Percentile     float64
	PixelThreshold float64
	Holes          int
	HolesFilled    int
	FilledPixels   int
	ErodedPixels   int
	Objects        int
	ObjectsRemoved int
	Foreground     int
	Elapsed        time.Duration
}

// Fields flattens the report for structured logging.
func (r Report) Fields() map[string]interface{} {
	return map[string]interface{}{
		"label":           r.Label,
		"mode_location":   r.ModeLocation,
		"density":         r.Density,
		"auto_percentile": r.AutoPercentile,
		"percentile":      r.Percentile,
		"pixel_threshold": r.PixelThreshold,
		"holes":           r.Holes,
		"holes_filled":    r.HolesFilled,
		"filled_pixels":   r.FilledPixels,
		"eroded_pixels":   r.ErodedPixels,
		"objects":         r.Objects,
		"objects_removed": r.ObjectsRemoved,
		"foreground":      r.Foreground,
		"elapsed_ms":      r.Elapsed.Milliseconds(),
	}
}
