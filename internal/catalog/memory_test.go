package catalog_test

import (
	"testing"
	"time"

	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, layout string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04:05", layout)
	require.NoError(t, err)
	return parsed
}

func TestMemoryStoreMarkProtectedMutualExclusion(t *testing.T) {
	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 10})
	require.NoError(t, err)

	require.NoError(t, m.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))
	found, err := m.MarkProtected("/a.jpg")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := m.GetImageByPath("/a.jpg")
	require.NoError(t, err)
	assert.True(t, got.IsProtected)
	assert.False(t, got.MarkedForRemoval)
}

func TestMemoryStoreMarkProtectedIsIdempotent(t *testing.T) {
	m := catalog.NewMemoryStore()
	_, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		found, err := m.MarkProtected("/a.jpg")
		require.NoError(t, err)
		assert.True(t, found)
	}
}

func TestMemoryStoreUpsertCarriesForwardProtection(t *testing.T) {
	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 1})
	require.NoError(t, err)
	_, err = m.MarkProtected("/a.jpg")
	require.NoError(t, err)

	rec2, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", FileSize: 2})
	require.NoError(t, err)

	assert.Equal(t, rec.ID, rec2.ID)
	assert.True(t, rec2.IsProtected)
}

func TestMemoryStoreImagesForRemovalExcludesProtected(t *testing.T) {
	m := catalog.NewMemoryStore()
	rec, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)
	require.NoError(t, m.MarkForRemoval(rec.ID, omnidupe.ReasonHashDuplicate))
	_, err = m.MarkProtected("/a.jpg")
	require.NoError(t, err)

	candidates, err := m.ImagesForRemoval()
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestMemoryStoreImagesByTimestampGroupsOnlyDuplicates(t *testing.T) {
	m := catalog.NewMemoryStore()
	ts := mustTime(t, "2024-01-01T12:00:00")

	_, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg", Timestamp: &ts})
	require.NoError(t, err)
	_, err = m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/b.jpg", Timestamp: &ts})
	require.NoError(t, err)
	_, err = m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/c.jpg"})
	require.NoError(t, err)

	groups, err := m.ImagesByTimestamp()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestMemoryStoreKeeperPathForImage(t *testing.T) {
	m := catalog.NewMemoryStore()
	keeper, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/a.jpg"})
	require.NoError(t, err)
	dup, err := m.StoreImageMetadata(&omnidupe.ImageRecord{FilePath: "/b.jpg"})
	require.NoError(t, err)

	groupID, err := m.CreateGroup(omnidupe.GroupKindHash, nil)
	require.NoError(t, err)
	require.NoError(t, m.AddToGroup(groupID, keeper.ID, true))
	require.NoError(t, m.AddToGroup(groupID, dup.ID, false))

	path, ok, err := m.KeeperPathForImage(dup.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/a.jpg", path)

	_, ok, err = m.KeeperPathForImage(999)
	require.NoError(t, err)
	assert.False(t, ok)
}
