package filters

import (
	"egt-segmenter/internal/labeling"
	"egt-segmenter/internal/models"
)

// marked flags pixels scheduled for removal during one erosion pass.
const marked = 2

// ErodeDisk1 erodes mask in place with a radius 1 disk (the 4-neighbour
// cross). A foreground pixel survives only if every in-bounds 4-neighbour is
// foreground; neighbours outside the image are ignored. Decisions are taken
// on the state before the pass. It returns the number of removed pixels.
func ErodeDisk1(mask models.Mask) int {
	w, h := mask.Width, mask.Height
	px := mask.Pix

	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			k := row + x
			if px[k] == 0 {
				continue
			}
			if (x > 0 && px[k-1] == 0) ||
				(x < w-1 && px[k+1] == 0) ||
				(y > 0 && px[k-w] == 0) ||
				(y < h-1 && px[k+w] == 0) {
				px[k] = marked
			}
		}
	}

	removed := 0
	for k, v := range px {
		switch {
		case v == marked:
			px[k] = 0
			removed++
		case v != 0:
			px[k] = 1
		}
	}
	return removed
}

// RemoveSmallObjects clears every 8-connected foreground component with
// fewer than minSize pixels. It returns the number of components found and
// the number removed.
func RemoveSmallObjects(mask models.Mask, minSize float64) (objects, removed int) {
	labels := labeling.FromMask(mask.Pix, false)
	objects = labeling.Label8(labels, mask.Width, mask.Height)
	sizes := labeling.Sizes(labels, objects)

	for id := 1; id <= objects; id++ {
		if float64(sizes[id]) < minSize {
			removed++
		}
	}
	for k, id := range labels {
		if id > 0 && float64(sizes[id]) < minSize {
			mask.Pix[k] = 0
		}
	}
	return objects, removed
}

// Eroder is the pipeline step around ErodeDisk1.
type Eroder struct{}

func NewEroder() *Eroder {
	return &Eroder{}
}

func (e *Eroder) Name() string {
	return "erode_disk1"
}

func (e *Eroder) Apply(s *models.Segmentation) error {
	s.Report.ErodedPixels = ErodeDisk1(s.Mask)
	return nil
}

// ObjectSizeFilter is the pipeline step around RemoveSmallObjects.
type ObjectSizeFilter struct{}

func NewObjectSizeFilter() *ObjectSizeFilter {
	return &ObjectSizeFilter{}
}

func (o *ObjectSizeFilter) Name() string {
	return "remove_small_objects"
}

func (o *ObjectSizeFilter) Apply(s *models.Segmentation) error {
	s.Report.Objects, s.Report.ObjectsRemoved = RemoveSmallObjects(s.Mask, s.Params.MinObjectSize)
	return nil
}
