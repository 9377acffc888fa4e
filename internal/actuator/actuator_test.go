package actuator_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kerr23/omnidupe/internal/actuator"
	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func TestActuatorDeleteRemovesFileAndClearsMark(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	writeFile(t, path)

	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: path})
	require.NoError(t, err)
	require.NoError(t, m.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))

	a := actuator.New(m, omnidupe.ActuatorOptions{Mode: omnidupe.ActuatorDelete}, nil)
	res := a.Process(rec)

	assert.True(t, res.Succeeded)
	assert.NoFileExists(t, path)

	got, err := m.GetImageByID(rec.ID)
	require.NoError(t, err)
	assert.False(t, got.MarkedForRemoval)
}

func TestActuatorDryRunMakesNoChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	writeFile(t, path)

	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: path})
	require.NoError(t, err)
	require.NoError(t, m.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))

	a := actuator.New(m, omnidupe.ActuatorOptions{Mode: omnidupe.ActuatorDryRun}, nil)
	res := a.Process(rec)

	assert.True(t, res.Succeeded)
	assert.True(t, res.Skipped)
	assert.FileExists(t, path)

	got, err := m.GetImageByID(rec.ID)
	require.NoError(t, err)
	assert.True(t, got.MarkedForRemoval)
}

func TestActuatorMissingSourceIsSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.jpg")

	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: path})
	require.NoError(t, err)
	require.NoError(t, m.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))

	a := actuator.New(m, omnidupe.ActuatorOptions{Mode: omnidupe.ActuatorDelete}, nil)
	res := a.Process(rec)
	assert.True(t, res.Succeeded)
	assert.NoError(t, res.Err)
}

func TestActuatorMoveResolvesNameConflictWithTimestampSuffix(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	path1 := filepath.Join(srcDir, "dirA", "x.jpg")
	path2 := filepath.Join(srcDir, "dirB", "x.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(path1), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(path2), 0o755))
	writeFile(t, path1)
	writeFile(t, path2)

	m := catalog.NewMemoryStore()
	rec1, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: path1})
	require.NoError(t, err)
	rec2, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: path2})
	require.NoError(t, err)
	require.NoError(t, m.MarkForRemoval(rec1.ID, omnidupe.ReasonHashDuplicate))
	require.NoError(t, m.MarkForRemoval(rec2.ID, omnidupe.ReasonHashDuplicate))

	a := actuator.New(m, omnidupe.ActuatorOptions{Mode: omnidupe.ActuatorMove, MoveToDir: destDir}, nil)

	res1 := a.Process(rec1)
	require.True(t, res1.Succeeded)
	assert.Equal(t, filepath.Join(destDir, "x.jpg"), res1.NewPath)

	res2 := a.Process(rec2)
	require.True(t, res2.Succeeded)
	assert.NotEqual(t, res1.NewPath, res2.NewPath)
	assert.NoFileExists(t, path1)
	assert.NoFileExists(t, path2)
	assert.FileExists(t, res1.NewPath)
	assert.FileExists(t, res2.NewPath)
}

func TestVerifyKeepersClearsUngroupedCandidates(t *testing.T) {
	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)

	verified, aborted := actuator.VerifyKeepers(m, []*omnidupe.ImageRecord{rec})
	assert.Empty(t, aborted)
	require.Len(t, verified, 1)
}

func TestVerifyKeepersAbortsOnMissingKeeperFile(t *testing.T) {
	dir := t.TempDir()
	keeperPath := filepath.Join(dir, "keeper.jpg")
	dupPath := filepath.Join(dir, "dup.jpg")
	writeFile(t, dupPath)

	m := catalog.NewMemoryStore()
	keeper, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: keeperPath})
	require.NoError(t, err)
	dup, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: dupPath})
	require.NoError(t, err)

	groupID, err := m.CreateGroup(omnidupe.GroupKindHash, nil)
	require.NoError(t, err)
	require.NoError(t, m.AddToGroup(groupID, keeper.ID, true))
	require.NoError(t, m.AddToGroup(groupID, dup.ID, false))

	verified, aborted := actuator.VerifyKeepers(m, []*omnidupe.ImageRecord{dup})
	assert.Empty(t, verified)
	require.Len(t, aborted, 1)
	assert.ErrorIs(t, aborted[0].Err, omnidupe.ErrKeeperMissing)
}

func TestActuatorNotRegularFileErrors(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "a_dir")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: subdir})
	require.NoError(t, err)

	a := actuator.New(m, omnidupe.ActuatorOptions{Mode: omnidupe.ActuatorDelete}, nil)
	res := a.Process(rec)
	assert.False(t, res.Succeeded)
	assert.ErrorIs(t, res.Err, omnidupe.ErrNotRegularFile)
}
