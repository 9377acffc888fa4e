package omnidupe

import (
	"fmt"
	"math/bits"
	"strconv"
)

// HexHash renders a 64-bit perceptual hash as a fixed-width lowercase
// hex string, matching the catalog column format (§3).
func HexHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ParseHexHash parses a fixed-width hex string back into a 64-bit hash.
// An empty or malformed string reports ok=false so callers can fall
// through to the next candidate hash (§4.4).
func ParseHexHash(hex string) (uint64, bool) {
	if hex == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// HammingDistance returns the popcount of a XOR b, the number of bit
// positions at which the two 64-bit hashes differ (§4.4 glossary).
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
