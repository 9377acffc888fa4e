// Package fingerprint computes the content hash and the four perceptual
// hashes that make up an image's fingerprint (§4.2, §4.4). It is the
// in-scope, named-function home for the primitives the spec treats as
// deterministic leaves: callers (internal/metadata) own degrading a
// record on a per-field failure.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// chunkSize bounds memory while hashing arbitrarily large files (§4.2).
const chunkSize = 1 << 20

// ContentHash returns the lowercase hex SHA-256 of the file at path,
// read in fixed-size chunks.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
