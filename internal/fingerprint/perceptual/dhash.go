package perceptual

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// DHash computes the difference hash: resize to (width+1)xheight,
// grayscale, then set each bit according to whether a pixel is dimmer
// than its right-hand neighbor.
type DHash struct {
	Width  int
	Height int
}

// NewDHash creates a difference-hash calculator. Width*Height must be at
// least 64 for the output to fill a uint64; comparisons past the 64th
// are dropped (the default 9x8 configuration makes 72 and keeps the
// first 64).
func NewDHash(width, height int) *DHash {
	return &DHash{Width: width, Height: height}
}

// Compute calculates the difference hash for a decoded, RGB-normalized
// image.
func (d *DHash) Compute(img image.Image) (uint64, error) {
	resized := resize.Resize(uint(d.Width+1), uint(d.Height), img, resize.Lanczos3)
	gray := imaging.Grayscale(resized)

	bounds := gray.Bounds()
	var hash uint64
	bitPosition := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X-1; x++ {
			r1, g1, b1, _ := gray.At(x, y).RGBA()
			r2, g2, b2, _ := gray.At(x+1, y).RGBA()

			luminance1 := (uint64(r1) + uint64(g1) + uint64(b1)) / 3
			luminance2 := (uint64(r2) + uint64(g2) + uint64(b2)) / 3

			if luminance2 > luminance1 {
				hash |= 1 << uint(bitPosition)
			}
			bitPosition++
			if bitPosition >= 64 {
				return hash, nil
			}
		}
	}
	return hash, nil
}
