package fingerprint_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/kerr23/omnidupe/internal/fingerprint"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / w)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func solidImage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestComputeAllIsDeterministic(t *testing.T) {
	calc := fingerprint.NewCalculator()
	img := gradientImage(64, 64)

	h1 := calc.ComputeAll(img)
	h2 := calc.ComputeAll(img)

	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1.AHash)
	assert.NotEmpty(t, h1.PHash)
	assert.NotEmpty(t, h1.DHash)
	assert.NotEmpty(t, h1.WHash)
}

func TestComputeAllDistinguishesDissimilarImages(t *testing.T) {
	calc := fingerprint.NewCalculator()
	black := calc.ComputeAll(solidImage(32, 32, 0))
	gradient := calc.ComputeAll(gradientImage(32, 32))

	aBlack, ok := omnidupe.ParseHexHash(black.AHash)
	require.True(t, ok)
	aGradient, ok := omnidupe.ParseHexHash(gradient.AHash)
	require.True(t, ok)

	assert.Greater(t, omnidupe.HammingDistance(aBlack, aGradient), 0)
}
