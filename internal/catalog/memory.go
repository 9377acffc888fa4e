package catalog

import (
	"sort"
	"sync"

	"github.com/kerr23/omnidupe/pkg/omnidupe"
)

// MemoryStore is an in-memory Catalog implementation used as a test
// fixture for components that depend on the Catalog interface without
// needing a SQLite file (§2.1 ambient test tooling).
type MemoryStore struct {
	mu         sync.Mutex
	byPath     map[string]*omnidupe.ImageRecord
	byID       map[int64]*omnidupe.ImageRecord
	nextID     int64
	groups     map[int64]*groupRow
	nextGroup  int64
	members    map[int64][]omnidupe.GroupMember
}

type groupRow struct {
	kind  omnidupe.GroupKind
	score *float64
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byPath:  make(map[string]*omnidupe.ImageRecord),
		byID:    make(map[int64]*omnidupe.ImageRecord),
		groups:  make(map[int64]*groupRow),
		members: make(map[int64][]omnidupe.GroupMember),
	}
}

func (m *MemoryStore) StoreImageMetadata(rec *omnidupe.ImageRecord) (*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *rec
	if existing, ok := m.byPath[rec.FilePath]; ok {
		clone.ID = existing.ID
		clone.IsProtected = existing.IsProtected
		clone.MarkedForRemoval = existing.MarkedForRemoval
		clone.RemovalReason = existing.RemovalReason
	} else {
		m.nextID++
		clone.ID = m.nextID
	}

	m.byPath[clone.FilePath] = &clone
	m.byID[clone.ID] = &clone

	out := clone
	return &out, nil
}

func (m *MemoryStore) GetImageByPath(path string) (*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byPath[path]
	if !ok {
		return nil, omnidupe.ErrImageNotFound
	}
	out := *rec
	return &out, nil
}

func (m *MemoryStore) GetImageByID(id int64) (*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, omnidupe.ErrImageNotFound
	}
	out := *rec
	return &out, nil
}

func (m *MemoryStore) sortedRecords() []*omnidupe.ImageRecord {
	out := make([]*omnidupe.ImageRecord, 0, len(m.byPath))
	for _, r := range m.byPath {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

func (m *MemoryStore) ImagesByTimestamp() ([][]*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return groupBy(m.sortedRecords(), func(r *omnidupe.ImageRecord) string {
		if r.Timestamp == nil {
			return ""
		}
		return r.Timestamp.Format(timeLayout)
	}), nil
}

func (m *MemoryStore) ImagesByContentHash() ([][]*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return groupBy(m.sortedRecords(), func(r *omnidupe.ImageRecord) string { return r.ContentHash }), nil
}

func (m *MemoryStore) ImagesWithPerceptualHashes() ([]*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*omnidupe.ImageRecord
	for _, r := range m.sortedRecords() {
		if r.PerceptualHash != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) ImagesForRemoval() ([]*omnidupe.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*omnidupe.ImageRecord
	for _, r := range m.sortedRecords() {
		if r.MarkedForRemoval && !r.IsProtected {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkForRemoval(id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return omnidupe.ErrImageNotFound
	}
	if rec.IsProtected {
		return nil
	}
	rec.MarkedForRemoval = true
	rec.RemovalReason = reason
	m.byPath[rec.FilePath] = rec
	return nil
}

func (m *MemoryStore) UnmarkForRemoval(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return omnidupe.ErrImageNotFound
	}
	rec.MarkedForRemoval = false
	rec.RemovalReason = ""
	return nil
}

func (m *MemoryStore) MarkProtected(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byPath[path]
	if !ok {
		return false, nil
	}
	rec.IsProtected = true
	rec.MarkedForRemoval = false
	rec.RemovalReason = ""
	return true, nil
}

func (m *MemoryStore) CreateGroup(kind omnidupe.GroupKind, score *float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextGroup++
	m.groups[m.nextGroup] = &groupRow{kind: kind, score: score}
	return m.nextGroup, nil
}

func (m *MemoryStore) AddToGroup(groupID, imageID int64, isKeeper bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[groupID] = append(m.members[groupID], omnidupe.GroupMember{
		GroupID: groupID, ImageID: imageID, IsKeeper: isKeeper,
	})
	return nil
}

// KeeperPathForImage is the in-memory analogue of Store's SQL join
// (§9.1): scan every group's membership list for imageID, then return
// that group's keeper's file_path.
func (m *MemoryStore) KeeperPathForImage(imageID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, members := range m.members {
		var inGroup bool
		for _, mem := range members {
			if mem.ImageID == imageID {
				inGroup = true
				break
			}
		}
		if !inGroup {
			continue
		}
		for _, mem := range members {
			if mem.IsKeeper {
				if keeper, ok := m.byID[mem.ImageID]; ok {
					return keeper.FilePath, true, nil
				}
			}
		}
		return "", false, nil
	}
	return "", false, nil
}

func (m *MemoryStore) Stats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{GroupsByKind: make(map[omnidupe.GroupKind]int64)}
	for _, r := range m.byPath {
		stats.TotalImages++
		stats.TotalSizeBytes += r.FileSize
		if r.MarkedForRemoval && !r.IsProtected {
			stats.ReclaimableBytes += r.FileSize
		}
	}
	for _, g := range m.groups {
		stats.GroupsByKind[g.kind]++
	}
	return stats, nil
}

func (m *MemoryStore) Compact() error { return nil }
func (m *MemoryStore) Close() error   { return nil }
