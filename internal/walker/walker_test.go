package walker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kerr23/omnidupe/internal/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalkFindsCandidatesAndSkipsSystemDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "sub", "b.png"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "@eaDir", "thumb.jpg"))

	w := walker.New(walker.DefaultConfig(), nil)
	paths, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	var bases []string
	for _, p := range paths {
		bases = append(bases, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{"a.jpg", "b.png"}, bases)
}

func TestWalkEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	w := walker.New(walker.DefaultConfig(), nil)
	paths, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestWalkRejectsNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.jpg")
	touch(t, file)

	w := walker.New(walker.DefaultConfig(), nil)
	_, err := w.Walk(context.Background(), file)
	assert.Error(t, err)
}

func TestWalkIsDeterministicAndDeduplicated(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "z.jpg"))
	touch(t, filepath.Join(root, "a.jpg"))

	w := walker.New(walker.DefaultConfig(), nil)
	paths, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.True(t, paths[0] < paths[1])
}
