package models

import (
	"fmt"
	"image"
)

// OutputPixelValue is the intensity foreground pixels take when a mask is
// exported as an 8-bit image.
const OutputPixelValue uint8 = 255

// Plane is a single grayscale image plane stored row-major. Element (x,y)
// lives at index y*Width+x.
type Plane struct {
	Width  int
	Height int
	Pix    []float32
	Label  string
}

// NewPlane wraps pix as a plane after checking the dimensions agree.
func NewPlane(width, height int, pix []float32) (Plane, error) {
	if width <= 0 || height <= 0 {
		return Plane{}, NewValidationError("dimensions", fmt.Sprintf("%dx%d", width, height), "width and height must be positive")
	}
	if len(pix) != width*height {
		return Plane{}, NewValidationError("pixels", len(pix), fmt.Sprintf("expected %d pixels for %dx%d plane", width*height, width, height))
	}
	return Plane{Width: width, Height: height, Pix: pix}, nil
}

// Len returns the number of pixels in the plane.
func (p Plane) Len() int {
	return p.Width * p.Height
}

// At returns the intensity at (x,y).
func (p Plane) At(x, y int) float32 {
	return p.Pix[y*p.Width+x]
}

// Validate reports whether the plane is usable by the segmentation core.
func (p Plane) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return NewValidationError("dimensions", fmt.Sprintf("%dx%d", p.Width, p.Height), "width and height must be positive")
	}
	if len(p.Pix) != p.Width*p.Height {
		return NewValidationError("pixels", len(p.Pix), fmt.Sprintf("expected %d pixels for %dx%d plane", p.Width*p.Height, p.Width, p.Height))
	}
	return nil
}

// Mask is a binary image with the same layout as Plane. Pixels are 0
// (background) or 1 (foreground).
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an empty mask.
func NewMask(width, height int) Mask {
	return Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Count returns the number of foreground pixels.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
// Gray exports the mask as an 8-bit image with foreground at OutputPixelValue.
func (m Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+m.Width]
		for x := range row {
			if m.Pix[y*m.Width+x] != 0 {
				row[x] = OutputPixelValue
			}
		}
	}
	return img
}
