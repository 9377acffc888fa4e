package omnidupe_test

import (
	"testing"

	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/stretchr/testify/assert"
)

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, omnidupe.HammingDistance(0xFF00, 0xFF00))
	assert.Equal(t, 1, omnidupe.HammingDistance(0b1000, 0b0000))
	assert.Equal(t, 64, omnidupe.HammingDistance(0, ^uint64(0)))
}

func TestHexHashRoundTrip(t *testing.T) {
	const h uint64 = 0xDEADBEEF12345678
	s := omnidupe.HexHash(h)
	assert.Len(t, s, 16)

	got, ok := omnidupe.ParseHexHash(s)
	assert.True(t, ok)
	assert.Equal(t, h, got)
}

func TestParseHexHashInvalid(t *testing.T) {
	_, ok := omnidupe.ParseHexHash("")
	assert.False(t, ok)

	_, ok = omnidupe.ParseHexHash("not-hex")
	assert.False(t, ok)
}

func TestPrimaryPerceptualHashFallback(t *testing.T) {
	rec := &omnidupe.ImageRecord{AverageHash: omnidupe.HexHash(42)}
	v, ok := rec.PrimaryPerceptualHash()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)

	empty := &omnidupe.ImageRecord{}
	_, ok = empty.PrimaryPerceptualHash()
	assert.False(t, ok)
}
