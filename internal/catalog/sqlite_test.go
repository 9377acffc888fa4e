package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), omnidupe.CatalogFileName)
	s, err := catalog.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreUpsertByPathReusesID(t *testing.T) {
	s := openTestStore(t)

	rec1, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 10})
	require.NoError(t, err)
	require.NotZero(t, rec1.ID)

	rec2, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 20})
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, rec2.ID)

	got, err := s.GetImageByPath("/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.FileSize)
}

func TestStoreStickyProtectionSurvivesReinsertion(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)

	found, err := s.MarkProtected("/a.jpg")
	require.NoError(t, err)
	require.True(t, found)

	_, err = s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 99})
	require.NoError(t, err)

	got, err := s.GetImageByID(rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProtected)
}

func TestStoreMarkForRemovalSkipsProtectedRows(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)
	_, err = s.MarkProtected("/a.jpg")
	require.NoError(t, err)

	require.NoError(t, s.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))

	got, err := s.GetImageByID(rec.ID)
	require.NoError(t, err)
	assert.False(t, got.MarkedForRemoval)
}

func TestStoreMarkThenUnmarkRestoresPriorState(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)

	require.NoError(t, s.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))
	require.NoError(t, s.UnmarkForRemoval(rec.ID))

	got, err := s.GetImageByID(rec.ID)
	require.NoError(t, err)
	assert.False(t, got.MarkedForRemoval)
	assert.Empty(t, got.RemovalReason)
}

func TestStoreImagesByContentHashGroupsDuplicatesOnly(t *testing.T) {
	s := openTestStore(t)

	_, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", ContentHash: "X"})
	require.NoError(t, err)
	_, err = s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/b.jpg", ContentHash: "X"})
	require.NoError(t, err)
	_, err = s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/c.jpg", ContentHash: "Y"})
	require.NoError(t, err)

	groups, err := s.ImagesByContentHash()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestStoreKeeperPathForImage(t *testing.T) {
	s := openTestStore(t)

	keeper, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)
	dup, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/b.jpg"})
	require.NoError(t, err)

	groupID, err := s.CreateGroup(omnidupe.GroupKindHash, nil)
	require.NoError(t, err)
	require.NoError(t, s.AddToGroup(groupID, keeper.ID, true))
	require.NoError(t, s.AddToGroup(groupID, dup.ID, false))

	path, ok, err := s.KeeperPathForImage(dup.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/a.jpg", path)

	_, ok, err = s.KeeperPathForImage(999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreStatsCountsReclaimable(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 100})
	require.NoError(t, err)
	require.NoError(t, s.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalImages)
	assert.Equal(t, int64(100), stats.ReclaimableBytes)
}
