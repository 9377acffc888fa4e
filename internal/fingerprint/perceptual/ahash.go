package perceptual

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// AHash computes the average hash: resize to a small square, grayscale,
// then set each bit according to whether that pixel is brighter than
// the mean pixel value.
type AHash struct {
	Size int
}

// NewAHash creates an average-hash calculator producing an 8x8 = 64-bit
// fingerprint.
func NewAHash(size int) *AHash {
	return &AHash{Size: size}
}

// Compute calculates the average hash for a decoded, RGB-normalized
// image.
func (a *AHash) Compute(img image.Image) (uint64, error) {
	resized := resize.Resize(uint(a.Size), uint(a.Size), img, resize.Lanczos3)
	gray := imaging.Grayscale(resized)

	var sum uint64
	pixels := make([]uint64, 0, a.Size*a.Size)

	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := gray.At(x, y).RGBA()
			luminance := (uint64(r) + uint64(g) + uint64(b)) / 3
			sum += luminance
			pixels = append(pixels, luminance)
		}
	}

	if len(pixels) == 0 {
		return 0, nil
	}
	average := sum / uint64(len(pixels))

	var hash uint64
	for i, pixel := range pixels {
		if pixel > average {
			hash |= 1 << uint(i)
		}
	}
	return hash, nil
}
