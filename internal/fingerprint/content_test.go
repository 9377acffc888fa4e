package fingerprint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kerr23/omnidupe/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashIdenticalBytesMatch(t *testing.T) {
	dir := t.TempDir()
	data := []byte("identical payload")

	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(a, data, 0o644))
	require.NoError(t, os.WriteFile(b, data, 0o644))

	hashA, err := fingerprint.ContentHash(a)
	require.NoError(t, err)
	hashB, err := fingerprint.ContentHash(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64) // hex-encoded SHA-256
}

func TestContentHashDiffersOnDifferentBytes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("two"), 0o644))

	hashA, err := fingerprint.ContentHash(a)
	require.NoError(t, err)
	hashB, err := fingerprint.ContentHash(b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestContentHashMissingFile(t *testing.T) {
	_, err := fingerprint.ContentHash(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}
