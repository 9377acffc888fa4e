// Package catalog is the persistent store of image fingerprint records,
// duplicate groups and marking/protection state (§4.3). It is the single
// gate on destructive work: the detector writes marks here, and the
// actuator is only ever allowed to act on what Catalog.ImagesForRemoval
// returns.
package catalog

import "github.com/kerr23/omnidupe/pkg/omnidupe"

// Stats reports catalog-wide diagnostics, logged at info level at the
// end of detect and remove (§4.3 Diagnostics, §9.1).
type Stats struct {
	TotalImages      int64
	TotalSizeBytes    int64
	GroupsByKind      map[omnidupe.GroupKind]int64
	ReclaimableBytes  int64
	CatalogSizeBytes  int64
}

// Catalog is the full storage contract the detector, actuator and
// orchestrator depend on. Both the SQLite-backed Store and the
// in-memory MemoryStore implement it, so components under test never
// need a real database file.
type Catalog interface {
	// StoreImageMetadata is insert-or-replace keyed on FilePath (§4.3).
	// It never clears IsProtected/MarkedForRemoval on re-insertion; the
	// returned record carries the assigned ID and any carried-forward
	// protection/mark state.
	StoreImageMetadata(rec *omnidupe.ImageRecord) (*omnidupe.ImageRecord, error)

	GetImageByPath(path string) (*omnidupe.ImageRecord, error)
	GetImageByID(id int64) (*omnidupe.ImageRecord, error)

	// ImagesByTimestamp returns groups of >=2 rows (sorted by FilePath
	// within each group) sharing a non-null timestamp, keyed in the
	// order each timestamp first appears in FilePath-sorted order.
	ImagesByTimestamp() ([][]*omnidupe.ImageRecord, error)
	// ImagesByContentHash is the content-identity analogue of
	// ImagesByTimestamp.
	ImagesByContentHash() ([][]*omnidupe.ImageRecord, error)
	// ImagesWithPerceptualHashes returns every row with a non-null
	// perceptual_hash, sorted by FilePath.
	ImagesWithPerceptualHashes() ([]*omnidupe.ImageRecord, error)
	// ImagesForRemoval returns rows where MarkedForRemoval && !IsProtected.
	ImagesForRemoval() ([]*omnidupe.ImageRecord, error)

	MarkForRemoval(id int64, reason string) error
	UnmarkForRemoval(id int64) error
	// MarkProtected sets IsProtected and clears any mark atomically. It
	// reports found=false if path is not in the catalog.
	MarkProtected(path string) (found bool, err error)

	CreateGroup(kind omnidupe.GroupKind, score *float64) (groupID int64, err error)
	AddToGroup(groupID, imageID int64, isKeeper bool) error

	// KeeperPathForImage returns the FilePath of the keeper of imageID's
	// duplicate group. ok is false if imageID is not a member of any
	// group. Backs the actuator's keeper-file pre-flight check (§9.1).
	KeeperPathForImage(imageID int64) (path string, ok bool, err error)

	Stats() (*Stats, error)
	Compact() error
	Close() error
}
