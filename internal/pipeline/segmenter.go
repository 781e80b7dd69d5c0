// Package pipeline runs the EGT step chain on single planes and on stacks.
package pipeline

import (
	"fmt"
	"time"

	"egt-segmenter/internal/logger"
	"egt-segmenter/internal/models"
	"egt-segmenter/internal/processing/chain"
	"egt-segmenter/internal/processing/filters"
	"egt-segmenter/internal/processing/gradient"
	"egt-segmenter/internal/processing/threshold"
)

const component = "Segmenter"

// Segmenter turns grayscale planes into foreground masks.
// It holds no per-image state and is safe for concurrent use.
type Segmenter struct {
	logger logger.Logger
}

// NewSegmenter returns a segmenter logging to log. A nil log discards output.
func NewSegmenter(log logger.Logger) *Segmenter {
	if log == nil {
		log = logger.Nop()
	}
	return &Segmenter{logger: log}
}

func newChain() *chain.ProcessingChain {
	pc := chain.NewProcessingChain([]chain.ProcessingStep{
		gradient.NewStep(),
		threshold.NewStep(),
	})
	pc.AddStep(filters.NewHoleFiller())
	pc.AddStep(filters.NewEroder())
	pc.AddStep(filters.NewObjectSizeFilter())
	return pc
}

// Segment runs the full step chain on plane. Parameters are validated before
// any pixel work. The plane is never modified and the returned mask is owned
// by the caller.
func (s *Segmenter) Segment(plane models.Plane, params models.Parameters) (models.Mask, *models.Report, error) {
	if err := params.Validate(); err != nil {
		return models.Mask{}, nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return s.segment(plane, params)
}

func (s *Segmenter) segment(plane models.Plane, params models.Parameters) (models.Mask, *models.Report, error) {
	if err := plane.Validate(); err != nil {
		return models.Mask{}, nil, fmt.Errorf("invalid plane: %w", err)
	}

	start := time.Now()
	seg := &models.Segmentation{
		Plane:  plane,
		Params: params,
		Report: models.Report{Label: plane.Label},
	}

	pc := newChain()
	s.logger.Debug(component, "segmentation started", map[string]interface{}{
		"label":  plane.Label,
		"width":  plane.Width,
		"height": plane.Height,
		"steps":  pc.GetStepNames(),
	})

	if err := pc.Execute(seg); err != nil {
		s.logger.Error(component, err, map[string]interface{}{"label": plane.Label})
		return models.Mask{}, nil, err
	}

	seg.Report.Foreground = seg.Mask.Count()
	seg.Report.Elapsed = time.Since(start)

	s.logger.Debug(component, "threshold selected", map[string]interface{}{
		"label":           plane.Label,
		"auto_percentile": seg.Report.AutoPercentile,
		"percentile":      seg.Report.Percentile,
		"pixel_threshold": seg.Report.PixelThreshold,
	})
	s.logger.Info(component, "plane segmented", seg.Report.Fields())

	report := seg.Report
	return seg.Mask, &report, nil
}
