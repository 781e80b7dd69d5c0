package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func blobs(seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = uint8(10 + rng.Intn(4))
	}
	for _, c := range [][3]int{{12, 12, 5}, {28, 26, 6}} {
		for y := c[1] - c[2]; y <= c[1]+c[2]; y++ {
			for x := c[0] - c[2]; x <= c[0]+c[2]; x++ {
				if (x-c[0])*(x-c[0])+(y-c[1])*(y-c[1]) <= c[2]*c[2] {
					img.SetGray(x, y, color.Gray{Y: uint8(200 + rng.Intn(20))})
				}
			}
		}
	}
	return img
}

func TestRunWritesMasks(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "masks")
	writePNG(t, filepath.Join(in, "a.png"), blobs(1))
	writePNG(t, filepath.Join(in, "b.png"), blobs(2))

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-out", out, "-workers", "2", "-min-object-size", "5", "-min-hole-size", "5",
		"-log-format", "json",
		filepath.Join(in, "a.png"), filepath.Join(in, "b.png"),
	}, &stderr)
	require.Equal(t, 0, code, stderr.String())

	for _, name := range []string{"a_mask.png", "b_mask.png"} {
		f, err := os.Open(filepath.Join(out, name))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())
	}
	assert.Contains(t, stderr.String(), "plane segmented")
}

func TestRunScoresAgainstTruth(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), blobs(3))

	var stderr bytes.Buffer
	args := []string{"-out", out, "-min-object-size", "5", "-log-format", "json", filepath.Join(in, "a.png")}
	require.Equal(t, 0, run(context.Background(), args, &stderr), stderr.String())

	// scoring a mask against itself
	stderr.Reset()
	args = append([]string{"-truth", out}, args...)
	require.Equal(t, 0, run(context.Background(), args, &stderr), stderr.String())
	assert.Contains(t, stderr.String(), "mask scored")
	assert.Contains(t, stderr.String(), `"iou":1`)
}

func TestRunConfigFile(t *testing.T) {
	in := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "egt.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[segmentation]\nmin_object_size = 5\n[logging]\nformat = \"json\"\n"), 0o644))
	writePNG(t, filepath.Join(in, "c.png"), blobs(4))

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", cfgPath, "-out", in, filepath.Join(in, "c.png")}, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.FileExists(t, filepath.Join(in, "c_mask.png"))
}

func TestRunRejectsBadInput(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "rgb.png"), image.NewRGBA(image.Rect(0, 0, 4, 4)))

	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"-out", in, "-log-format", "json", filepath.Join(in, "rgb.png")}, &stderr))
	assert.Contains(t, stderr.String(), "grayscale")

	assert.Equal(t, 2, run(context.Background(), nil, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"-join", "XOR", "x.png"}, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"-min-hole-size", "-3", "x.png"}, &stderr))
}

func TestRunRejectsDuplicateLabels(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	for _, dir := range []string{"a", "b"} {
		require.NoError(t, os.Mkdir(filepath.Join(in, dir), 0o755))
		writePNG(t, filepath.Join(in, dir, "x.png"), blobs(6))
	}

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-out", out, "-log-format", "json",
		filepath.Join(in, "a", "x.png"), filepath.Join(in, "b", "x.png"),
	}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), `duplicate plane label \"x\"`)
	assert.NoFileExists(t, filepath.Join(out, "x_mask.png"))
}

func TestRunCountsWrittenMasks(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), blobs(7))
	writePNG(t, filepath.Join(in, "flat.png"), image.NewGray(image.Rect(0, 0, 8, 8)))

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-out", in, "-min-object-size", "5", "-log-format", "json",
		filepath.Join(in, "a.png"), filepath.Join(in, "flat.png"),
	}, &stderr)
	assert.Equal(t, 1, code)
	assert.FileExists(t, filepath.Join(in, "a_mask.png"))
	assert.NoFileExists(t, filepath.Join(in, "flat_mask.png"))
	assert.Contains(t, stderr.String(), `"written":1`)
}

func TestRunCancelled(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), blobs(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	code := run(ctx, []string{"-out", in, "-log-format", "json", filepath.Join(in, "a.png")}, &stderr)
	assert.Equal(t, 1, code)
	assert.NoFileExists(t, filepath.Join(in, "a_mask.png"))
	assert.Contains(t, stderr.String(), "segmentation interrupted")
}
