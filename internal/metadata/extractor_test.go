package metadata_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/kerr23/omnidupe/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestExtractBuildsCompleteRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, 40, 30)

	ex := metadata.NewExtractor(nil)
	rec, err := ex.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, path, rec.FilePath)
	assert.Equal(t, 40, rec.Width)
	assert.Equal(t, 30, rec.Height)
	assert.Equal(t, "PNG", rec.Format)
	assert.NotEmpty(t, rec.ContentHash)
	assert.NotEmpty(t, rec.AverageHash)
	assert.False(t, rec.HasTimestamp())
}

func TestExtractMissingFileErrors(t *testing.T) {
	ex := metadata.NewExtractor(nil)
	_, err := ex.Extract(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestExtractDegradesGracefullyOnUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-image.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	ex := metadata.NewExtractor(nil)
	rec, err := ex.Extract(path)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ContentHash)
	assert.Zero(t, rec.Width)
	assert.Empty(t, rec.AverageHash)
	assert.Equal(t, "JPG", rec.Format)
}
