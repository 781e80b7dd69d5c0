// Package imageio loads grayscale planes from image files and writes masks.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"egt-segmenter/internal/models"
	"egt-segmenter/internal/opencv/conversion"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// Load reads every page of a PNG, JPEG or TIFF file through OpenCV at its
// native depth, so 8-bit, 16-bit and 32-bit float samples survive. A single
// page is labelled with the file name; pages of a multi-page file are
// labelled <name>_<page>, numbered from 1. Files OpenCV cannot read are
// decoded with the image package instead.
func Load(path string) ([]models.Plane, error) {
	var mats []gocv.Mat
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		mats = gocv.IMReadMulti(path, gocv.IMReadUnchanged|gocv.IMReadAnyDepth)
	default:
		mats = []gocv.Mat{gocv.IMRead(path, gocv.IMReadUnchanged|gocv.IMReadAnyDepth)}
	}
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	if len(mats) == 0 || mats[0].Empty() {
		plane, err := decode(path)
		if err != nil {
			return nil, err
		}
		return []models.Plane{plane}, nil
	}

	planes, err := planesFromMats(mats, Label(path))
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	return planes, nil
}

func planesFromMats(mats []gocv.Mat, label string) ([]models.Plane, error) {
	planes := make([]models.Plane, 0, len(mats))
	for i, m := range mats {
		name := label
		if len(mats) > 1 {
			name = fmt.Sprintf("%s_%d", label, i+1)
		}
		plane, err := conversion.PlaneFromMat(m, name)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		planes = append(planes, plane)
	}
	return planes, nil
}

func decode(path string) (models.Plane, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Plane{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return models.Plane{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	plane, err := PlaneFromImage(img, Label(path))
	if err != nil {
		return models.Plane{}, fmt.Errorf("%s image %s: %w", format, path, err)
	}
	return plane, nil
}

// Label returns the file name of path without its extension.
func Label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PlaneFromImage copies an 8-bit or 16-bit grayscale image into a plane.
// Colour images are rejected rather than converted.
func PlaneFromImage(img image.Image, label string) (models.Plane, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]float32, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				pix[y*w+x] = float32(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+2*w]
			for x := 0; x < w; x++ {
				pix[y*w+x] = float32(uint16(row[2*x])<<8 | uint16(row[2*x+1]))
			}
		}
	default:
		switch img.ColorModel() {
		case color.GrayModel:
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
					pix[y*w+x] = float32(g.Y)
				}
			}
		case color.Gray16Model:
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
					pix[y*w+x] = float32(g.Y)
				}
			}
		default:
			return models.Plane{}, models.NewValidationError("image", fmt.Sprintf("%T", img),
				"only 8-bit or 16-bit grayscale images are supported; convert to grayscale first")
		}
	}

	plane, err := models.NewPlane(w, h, pix)
	if err != nil {
		return models.Plane{}, err
	}
	plane.Label = label
	return plane, nil
}

// MaskPath returns <outDir>/<label>_mask.png.
func MaskPath(outDir, label string) string {
	return filepath.Join(outDir, label+"_mask.png")
}

// SaveMask writes mask as an 8-bit PNG with foreground at
// models.OutputPixelValue.
func SaveMask(path string, mask models.Mask) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := png.Encode(file, mask.Gray()); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}
