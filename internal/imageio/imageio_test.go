package imageio

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"egt-segmenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"
)

func TestPlaneFromGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(1, 0, color.Gray{Y: 7})
	img.SetGray(2, 1, color.Gray{Y: 255})

	plane, err := PlaneFromImage(img, "g")
	require.NoError(t, err)
	assert.Equal(t, 3, plane.Width)
	assert.Equal(t, 2, plane.Height)
	assert.Equal(t, []float32{0, 7, 0, 0, 0, 255}, plane.Pix)
}

func TestPlaneFromGray16SubImage(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 4, 4))
	img.SetGray16(2, 1, color.Gray16{Y: 4000})
	sub := img.SubImage(image.Rect(1, 1, 3, 3))

	plane, err := PlaneFromImage(sub, "g16")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 4000, 0, 0}, plane.Pix)
}

func TestPlaneFromColourRejected(t *testing.T) {
	_, err := PlaneFromImage(image.NewRGBA(image.Rect(0, 0, 2, 2)), "rgb")
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestLoadTIFFAndSaveMask(t *testing.T) {
	dir := t.TempDir()
	src := image.NewGray16(image.Rect(0, 0, 2, 2))
	src.SetGray16(0, 0, color.Gray16{Y: 1000})

	path := filepath.Join(dir, "slice_01.tif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, src, nil))
	require.NoError(t, f.Close())

	planes, err := Load(path)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	plane := planes[0]
	assert.Equal(t, "slice_01", plane.Label)
	assert.Equal(t, []float32{1000, 0, 0, 0}, plane.Pix)

	out := MaskPath(dir, plane.Label)
	assert.Equal(t, filepath.Join(dir, "slice_01_mask.png"), out)
	require.NoError(t, SaveMask(out, models.Mask{Width: 2, Height: 2, Pix: []uint8{1, 0, 0, 1}}))

	g, err := os.Open(out)
	require.NoError(t, err)
	defer g.Close()
	decoded, err := png.Decode(g)
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, []uint8{255, 0, 0, 255}, gray.Pix)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadFloatTIFF(t *testing.T) {
	src, err := gocv.NewMatFromBytes(1, 3, gocv.MatTypeCV32FC1, float32Bytes(0.25, 1.5, 1000.75))
	require.NoError(t, err)
	defer src.Close()

	path := filepath.Join(t.TempDir(), "float.tif")
	require.True(t, gocv.IMWrite(path, src))

	planes, err := Load(path)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	assert.Equal(t, "float", planes[0].Label)
	assert.Equal(t, []float32{0.25, 1.5, 1000.75}, planes[0].Pix)
}

func TestPlanesFromMatsPageLabels(t *testing.T) {
	a, err := gocv.NewMatFromBytes(1, 2, gocv.MatTypeCV8UC1, []byte{1, 2})
	require.NoError(t, err)
	defer a.Close()
	b, err := gocv.NewMatFromBytes(1, 2, gocv.MatTypeCV8UC1, []byte{3, 4})
	require.NoError(t, err)
	defer b.Close()

	planes, err := planesFromMats([]gocv.Mat{a, b}, "stack")
	require.NoError(t, err)
	require.Len(t, planes, 2)
	assert.Equal(t, "stack_1", planes[0].Label)
	assert.Equal(t, "stack_2", planes[1].Label)
	assert.Equal(t, []float32{3, 4}, planes[1].Pix)

	planes, err = planesFromMats([]gocv.Mat{a}, "single")
	require.NoError(t, err)
	assert.Equal(t, "single", planes[0].Label)

	rgb := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
	defer rgb.Close()
	_, err = planesFromMats([]gocv.Mat{a, rgb}, "mixed")
	assert.ErrorIs(t, err, models.ErrConfiguration)
	assert.Contains(t, err.Error(), "page 2")
}

func float32Bytes(vs ...float32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}
