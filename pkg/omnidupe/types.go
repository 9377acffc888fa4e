// Package omnidupe defines the domain types shared across the catalog,
// detector, actuator and orchestrator: the image record, duplicate group
// and group membership rows described by the catalog schema, plus the
// small set of enums and option structs the CLI and orchestrator pass
// between components.
package omnidupe

import "time"

// GroupKind identifies the equivalence relation that produced a
// DuplicateGroup.
type GroupKind string

const (
	GroupKindTimestamp  GroupKind = "timestamp"
	GroupKindHash       GroupKind = "hash"
	GroupKindPerceptual GroupKind = "perceptual"
)

// Removal reasons recorded on an ImageRecord when the detector marks it
// for removal. Each corresponds 1:1 with a GroupKind.
const (
	ReasonTimestampDuplicate  = "timestamp_duplicate"
	ReasonHashDuplicate       = "hash_duplicate"
	ReasonPerceptualDuplicate = "perceptual_duplicate"
)

// ReasonForKind maps a group kind to the removal_reason tag stamped on
// its non-keeper members.
func ReasonForKind(kind GroupKind) string {
	switch kind {
	case GroupKindTimestamp:
		return ReasonTimestampDuplicate
	case GroupKindHash:
		return ReasonHashDuplicate
	case GroupKindPerceptual:
		return ReasonPerceptualDuplicate
	default:
		return ""
	}
}

// ImageRecord is the catalog row for one image, keyed by canonical
// absolute path. Fields that the extractor could not populate are left
// at their zero value (empty string / nil pointer / zero dimensions);
// a degraded record is still stored so partial extraction never drops
// an image from the catalog.
type ImageRecord struct {
	ID                 int64
	FilePath           string
	FileSize           int64
	ContentHash        string
	Width              int
	Height             int
	Format             string
	Timestamp          *time.Time
	CameraMake         string
	CameraModel        string
	GPSLatitude        *float64
	GPSLongitude       *float64
	PerceptualHash     string
	AverageHash        string
	DifferenceHash     string
	WaveletHash        string
	CreationTime       time.Time
	ModificationTime   time.Time
	ProcessedAt        time.Time
	MarkedForRemoval   bool
	IsProtected        bool
	RemovalReason      string
}

// HasTimestamp reports whether the record carries a usable EXIF capture
// instant for stage-1 clustering.
func (r *ImageRecord) HasTimestamp() bool {
	return r.Timestamp != nil
}

// HasContentHash reports whether the record carries a usable SHA-256 for
// stage-2 clustering.
func (r *ImageRecord) HasContentHash() bool {
	return r.ContentHash != ""
}

// PrimaryPerceptualHash returns the hash stage 3 should compare, falling
// back from perceptual_hash to average_hash to difference_hash per §4.4.
// The bool is false when none of the three parsed.
func (r *ImageRecord) PrimaryPerceptualHash() (uint64, bool) {
	for _, candidate := range []string{r.PerceptualHash, r.AverageHash, r.DifferenceHash} {
		if v, ok := ParseHexHash(candidate); ok {
			return v, true
		}
	}
	return 0, false
}

// DuplicateGroup is the catalog row describing one finalized cluster.
type DuplicateGroup struct {
	ID              int64
	Kind            GroupKind
	SimilarityScore *float64
	CreatedAt       time.Time
}

// GroupMember is one row of the group_images join table.
type GroupMember struct {
	GroupID  int64
	ImageID  int64
	IsKeeper bool
}

// Group is the in-memory representation the detector builds before
// persisting: a kind, its members (the image records read from the
// catalog), and which member is the keeper. It never holds a
// back-reference to the catalog.
type Group struct {
	Kind            GroupKind
	Members         []*ImageRecord
	KeeperIndex     int
	SimilarityScore *float64
}

// Keeper returns the selected keeper record, or nil if the group is
// empty.
func (g *Group) Keeper() *ImageRecord {
	if g.KeeperIndex < 0 || g.KeeperIndex >= len(g.Members) {
		return nil
	}
	return g.Members[g.KeeperIndex]
}

// ActuatorMode selects what the file actuator does with a marked image.
type ActuatorMode int

const (
	ActuatorDelete ActuatorMode = iota
	ActuatorMove
	ActuatorDryRun
)

// ActuatorOptions configures a remove pass.
type ActuatorOptions struct {
	Mode       ActuatorMode
	MoveToDir  string
	BackupDir  string
}

// ActuatorResult describes the outcome of processing one marked image.
type ActuatorResult struct {
	Record    *ImageRecord
	Succeeded bool
	Skipped   bool
	NewPath   string
	Err       error
}

// DetectOptions configures one detect pass.
type DetectOptions struct {
	InputDir            string
	SimilarityThreshold  int
	MaxWorkers           int
}

// RemovalCandidate is a denormalized row: an image plus the kind of
// group it was marked from.
type RemovalCandidate struct {
	Record *ImageRecord
	Kind   GroupKind
}
