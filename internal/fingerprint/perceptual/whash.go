package perceptual

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// WHash computes the wavelet hash: a Haar wavelet transform over a
// power-of-2 grayscale thumbnail, hashing the detail coefficients
// against their mean absolute value.
type WHash struct {
	Size int
}

// NewWHash creates a wavelet-hash calculator.
func NewWHash(size int) *WHash {
	return &WHash{Size: size}
}

// Compute calculates the wavelet hash for a decoded, RGB-normalized
// image.
func (w *WHash) Compute(img image.Image) (uint64, error) {
	gray := imaging.Grayscale(img)

	size := w.nearestPowerOf2(w.Size)
	resized := resize.Resize(uint(size), uint(size), gray, resize.Lanczos3)

	wavelet := w.haarWavelet(resized)

	var sum float64
	var count int
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x == 0 && y == 0 {
				continue
			}
			sum += math.Abs(wavelet[y][x])
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	mean := sum / float64(count)

	var hash uint64
	bitPos := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x == 0 && y == 0 {
				continue
			}
			if math.Abs(wavelet[y][x]) > mean {
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

// haarWavelet runs an in-place multi-level 2-D Haar transform over the
// image's luminance channel.
func (w *WHash) haarWavelet(img image.Image) [][]float64 {
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

	tmp := make([]float64, size)
	for level := size; level > 1; level /= 2 {
		for y := 0; y < level; y++ {
			copy(tmp, matrix[y][:level])
			for x := 0; x < level/2; x++ {
				matrix[y][x] = (tmp[2*x] + tmp[2*x+1]) / 2
				matrix[y][x+level/2] = (tmp[2*x] - tmp[2*x+1]) / 2
			}
		}
		for x := 0; x < level; x++ {
			for y := 0; y < level; y++ {
				tmp[y] = matrix[y][x]
			}
			for y := 0; y < level/2; y++ {
				matrix[y][x] = (tmp[2*y] + tmp[2*y+1]) / 2
				matrix[y+level/2][x] = (tmp[2*y] - tmp[2*y+1]) / 2
			}
		}
	}
	return matrix
}

// nearestPowerOf2 rounds size to the nearest power of two, required by
// the Haar transform's recursive halving.
func (w *WHash) nearestPowerOf2(size int) int {
	return int(math.Pow(2, math.Round(math.Log2(float64(size)))))
}
