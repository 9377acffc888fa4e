package perceptual

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// PHash computes the perception hash: a DCT over a grayscale thumbnail,
// keeping the low-frequency corner and hashing each coefficient against
// the mean (excluding the DC term).
type PHash struct {
	Size      int
	SmallSize int
}

// NewPHash creates a perception-hash calculator. The hash holds one bit
// per low-frequency coefficient except the DC term, so it uses
// SmallSize*SmallSize-1 bits, capped at 64. The default configuration
// (32x32 down to an 8x8 corner) yields 63 bits; the top bit stays zero.
func NewPHash(size, smallSize int) *PHash {
	return &PHash{Size: size, SmallSize: smallSize}
}

// Compute calculates the perception hash for a decoded, RGB-normalized
// image.
func (p *PHash) Compute(img image.Image) (uint64, error) {
	gray := imaging.Grayscale(img)
	resized := resize.Resize(uint(p.Size), uint(p.Size), gray, resize.Lanczos3)

	dctMatrix := p.applyDCT(resized)

	var sum float64
	var count int
	for y := 0; y < p.SmallSize; y++ {
		for x := 0; x < p.SmallSize; x++ {
			if x == 0 && y == 0 {
				continue
			}
			sum += dctMatrix[y][x]
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	mean := sum / float64(count)

	var hash uint64
	bitPos := 0
	for y := 0; y < p.SmallSize; y++ {
		for x := 0; x < p.SmallSize; x++ {
			if x == 0 && y == 0 {
				continue
			}
			if dctMatrix[y][x] > mean {
				hash |= 1 << uint(bitPos)
			}
			bitPos++
			if bitPos >= 64 {
				return hash, nil
			}
		}
	}
	return hash, nil
}

// applyDCT runs a direct (O(n^4)) 2-D discrete cosine transform over the
// image's luminance channel.
func (p *PHash) applyDCT(img image.Image) [][]float64 {
	bounds := img.Bounds()
	size := bounds.Dx()

	matrix := make([][]float64, size)
	for i := range matrix {
		matrix[i] = make([]float64, size)
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			matrix[y][x] = float64(r) / 65535.0
		}
	}

	dct := make([][]float64, size)
	for i := range dct {
		dct[i] = make([]float64, size)
	}
	for u := 0; u < size; u++ {
		for v := 0; v < size; v++ {
			var sum float64
			for i := 0; i < size; i++ {
				for j := 0; j < size; j++ {
					cos1 := math.Cos(float64((2*i+1)*u) * math.Pi / (2 * float64(size)))
					cos2 := math.Cos(float64((2*j+1)*v) * math.Pi / (2 * float64(size)))
					sum += matrix[i][j] * cos1 * cos2
				}
			}
			dct[u][v] = sum
		}
	}
	return dct
}
