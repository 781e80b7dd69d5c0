// Package conversion moves pixel data between gocv matrices and the
// segmentation data model.
package conversion

import (
	"fmt"

	"egt-segmenter/internal/models"

	"gocv.io/x/gocv"
)

// PlaneFromMat copies a single-channel 8-bit, 16-bit unsigned or 32-bit float
// matrix into a plane. Colour matrices are rejected; convert them with
// gocv.CvtColor first.
func PlaneFromMat(src gocv.Mat, label string) (models.Plane, error) {
	if src.Empty() {
		return models.Plane{}, models.NewValidationError("mat", label, "matrix is empty")
	}
	if src.Channels() != 1 {
		return models.Plane{}, models.NewValidationError("channels", src.Channels(), "only single-channel grayscale matrices are supported")
	}

	mat := src
	if !src.IsContinuous() {
		mat = src.Clone()
		defer mat.Close()
	}

	rows, cols := mat.Rows(), mat.Cols()
	pix := make([]float32, rows*cols)

	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		data, err := mat.DataPtrUint8()
		if err != nil {
			return models.Plane{}, fmt.Errorf("mat data access failed: %w", err)
		}
		for i, v := range data[:len(pix)] {
			pix[i] = float32(v)
		}
	case gocv.MatTypeCV16UC1:
		data, err := mat.DataPtrUint16()
		if err != nil {
			return models.Plane{}, fmt.Errorf("mat data access failed: %w", err)
		}
		for i, v := range data[:len(pix)] {
			pix[i] = float32(v)
		}
	case gocv.MatTypeCV32FC1:
		data, err := mat.DataPtrFloat32()
		if err != nil {
			return models.Plane{}, fmt.Errorf("mat data access failed: %w", err)
		}
		copy(pix, data)
	default:
		return models.Plane{}, models.NewValidationError("mat_type", int(mat.Type()), "unsupported pixel type")
	}

	plane, err := models.NewPlane(cols, rows, pix)
	if err != nil {
		return models.Plane{}, err
	}
	plane.Label = label
	return plane, nil
}

// MaskToMat returns an 8-bit single-channel matrix with foreground at
// models.OutputPixelValue. The caller must Close it.
func MaskToMat(mask models.Mask) (gocv.Mat, error) {
	if mask.Width <= 0 || mask.Height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid mask dimensions %dx%d", mask.Width, mask.Height)
	}

	data := make([]byte, len(mask.Pix))
	for i, v := range mask.Pix {
		if v != 0 {
			data[i] = models.OutputPixelValue
		}
	}

	mat, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("Mat creation failed: %w", err)
	}
	return mat, nil
}
