package fingerprint

import (
	"image"

	"github.com/kerr23/omnidupe/internal/fingerprint/perceptual"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
)

// PerceptualHashes holds the hex-encoded output of all four algorithms
// for one decoded image. Any field left empty means that algorithm
// failed for this image and the record should leave the corresponding
// column null, per §4.2's per-field failure localization.
type PerceptualHashes struct {
	PHash string
	AHash string
	DHash string
	WHash string
}

// Calculator computes all four perceptual hashes with a single set of
// configured algorithm instances, each producing a uniform 64-bit
// output so Hamming distance is comparable across them (§4.2).
type Calculator struct {
	aHash *perceptual.AHash
	pHash *perceptual.PHash
	dHash *perceptual.DHash
	wHash *perceptual.WHash
}

// NewCalculator builds a Calculator with the standard parameterization:
// 8x8 average hash, 32x32-DCT-down-to-8x8 perception hash, 9x8
// difference hash, and a wavelet hash over a 64x64 thumbnail.
func NewCalculator() *Calculator {
	return &Calculator{
		aHash: perceptual.NewAHash(8),
		pHash: perceptual.NewPHash(32, 8),
		dHash: perceptual.NewDHash(9, 8),
		wHash: perceptual.NewWHash(64),
	}
}

// ComputeAll computes all four perceptual hashes for an already
// RGB-normalized decoded image. Each algorithm's failure is isolated:
// a failing algorithm leaves its field empty rather than aborting the
// others.
func (c *Calculator) ComputeAll(img image.Image) PerceptualHashes {
	var out PerceptualHashes

	if v, err := c.pHash.Compute(img); err == nil {
		out.PHash = omnidupe.HexHash(v)
	}
	if v, err := c.aHash.Compute(img); err == nil {
		out.AHash = omnidupe.HexHash(v)
	}
	if v, err := c.dHash.Compute(img); err == nil {
		out.DHash = omnidupe.HexHash(v)
	}
	if v, err := c.wHash.Compute(img); err == nil {
		out.WHash = omnidupe.HexHash(v)
	}
	return out
}
