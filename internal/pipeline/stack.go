package pipeline

import (
	"context"
	"fmt"
	"sync"

	"egt-segmenter/internal/models"

	"golang.org/x/sync/errgroup"
)

// StackOptions controls SegmentStack.
type StackOptions struct {
	// Workers bounds the number of planes processed at once. Values below 1
	// mean sequential processing.
	Workers int
	// StopOnError stops scheduling planes after the first failure.
	StopOnError bool
	// Progress, if set, is called after every finished plane. Calls are
	// serialized.
	Progress func(done, total int)
}

// PlaneResult is the outcome of one plane of a stack.
type PlaneResult struct {
	Index  int
	Label  string
	Mask   models.Mask
	Report *models.Report
	Err    error
}

// SegmentStack segments independent planes. ctx is checked only before a
// plane starts; a plane that has started always runs to completion. Results
// are returned in plane order and include only planes that ran. The returned
// error is ctx.Err() on cancellation, the first plane error when
// StopOnError is set, or a configuration error.
func (s *Segmenter) SegmentStack(ctx context.Context, planes []models.Plane, params models.Parameters, opts StackOptions) ([]PlaneResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	workers := max(opts.Workers, 1)
	total := len(planes)
	results := make([]*PlaneResult, total)

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(r *PlaneResult) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Index] = r
		done++
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	s.logger.Info(component, "stack segmentation started", map[string]interface{}{
		"planes":  total,
		"workers": workers,
	})

	for i := range planes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			plane := planes[i]
			mask, report, err := s.segment(plane, params)
			finish(&PlaneResult{Index: i, Label: plane.Label, Mask: mask, Report: report, Err: err})
			if err != nil && opts.StopOnError {
				return fmt.Errorf("plane %d (%s): %w", i, plane.Label, err)
			}
			return nil
		})
	}
	groupErr := g.Wait()

	out := make([]PlaneResult, 0, total)
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warning(component, "stack segmentation cancelled", map[string]interface{}{
			"completed": len(out),
			"planes":    total,
		})
		return out, err
	}
	if groupErr != nil {
		return out, groupErr
	}

	s.logger.Info(component, "stack segmentation completed", map[string]interface{}{
		"planes": total,
	})
	return out, nil
}
