// Package detector implements the three-stage duplicate clustering
// algorithm (§4.5): timestamp identity, content identity, then greedy
// perceptual-similarity clustering, each stage guarded by a shared
// processed set so no image is ever claimed by more than one group.
// Keeper selection and group persistence live here too, since both are
// inseparable from the clustering pass that produces the groups.
package detector

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
)

// Detector runs the multi-stage clustering pass against a Catalog.
type Detector struct {
	cat       catalog.Catalog
	threshold int
	log       *logrus.Entry
}

// New creates a Detector. threshold is T from §4.4, the maximum Hamming
// distance for two hashes to be considered perceptually similar.
func New(cat catalog.Catalog, threshold int, log *logrus.Logger) *Detector {
	if log == nil {
		log = logrus.New()
	}
	return &Detector{cat: cat, threshold: threshold, log: log.WithField("component", "detector")}
}

// Run executes all three stages in order and persists every group found,
// marking non-keeper members for removal subject to the protection
// guard enforced by the catalog (§4.3, §4.5). It returns the groups it
// built, primarily for the orchestrator's end-of-run report.
func (d *Detector) Run() ([]*omnidupe.Group, error) {
	processed := make(map[int64]bool)
	var groups []*omnidupe.Group

	timestampGroups, err := d.cat.ImagesByTimestamp()
	if err != nil {
		return nil, fmt.Errorf("stage 1 (timestamp): %w", err)
	}
	groups = append(groups, d.buildStageGroups(timestampGroups, omnidupe.GroupKindTimestamp, processed)...)

	hashGroups, err := d.cat.ImagesByContentHash()
	if err != nil {
		return nil, fmt.Errorf("stage 2 (content hash): %w", err)
	}
	groups = append(groups, d.buildStageGroups(hashGroups, omnidupe.GroupKindHash, processed)...)

	perceptualGroups, err := d.clusterPerceptual(processed)
	if err != nil {
		return nil, fmt.Errorf("stage 3 (perceptual): %w", err)
	}
	groups = append(groups, perceptualGroups...)

	for _, g := range groups {
		selectKeeper(g)
		if err := d.persist(g); err != nil {
			d.log.WithError(err).WithField("kind", g.Kind).Error("failed to persist group")
			continue
		}
	}

	return groups, nil
}

// buildStageGroups converts already-identity-grouped catalog rows
// (stages 1 and 2, where the catalog query itself enforced >= 2 members
// and key ordering) into Groups, filtering out any member already
// claimed by an earlier stage and re-checking the >= 2 threshold after
// that filter (§4.5 "not-yet-processed").
func (d *Detector) buildStageGroups(raw [][]*omnidupe.ImageRecord, kind omnidupe.GroupKind, processed map[int64]bool) []*omnidupe.Group {
	var groups []*omnidupe.Group
	for _, members := range raw {
		var remaining []*omnidupe.ImageRecord
		for _, m := range members {
			if !processed[m.ID] {
				remaining = append(remaining, m)
			}
		}
		if len(remaining) < 2 {
			continue
		}
		for _, m := range remaining {
			processed[m.ID] = true
		}
		groups = append(groups, &omnidupe.Group{Kind: kind, Members: remaining})
	}
	return groups
}

// clusterPerceptual runs greedy connected-component clustering over the
// not-yet-processed rows with a usable perceptual hash (§4.5 stage 3).
func (d *Detector) clusterPerceptual(processed map[int64]bool) ([]*omnidupe.Group, error) {
	rows, err := d.cat.ImagesWithPerceptualHashes()
	if err != nil {
		return nil, err
	}

	type candidate = struct {
		rec  *omnidupe.ImageRecord
		hash uint64
	}

	var pool []candidate
	for _, r := range rows {
		if processed[r.ID] {
			continue
		}
		h, ok := r.PrimaryPerceptualHash()
		if !ok {
			continue
		}
		pool = append(pool, candidate{rec: r, hash: h})
	}

	var groups []*omnidupe.Group
	for len(pool) > 0 {
		seed := pool[0]
		pool = pool[1:]

		cluster := []candidate{seed}
		var remaining []candidate
		for _, c := range pool {
			matched := false
			for _, member := range cluster {
				if omnidupe.HammingDistance(member.hash, c.hash) <= d.threshold {
					matched = true
					break
				}
			}
			if matched {
				cluster = append(cluster, c)
			} else {
				remaining = append(remaining, c)
			}
		}
		pool = remaining

		if len(cluster) < 2 {
			continue
		}

		members := make([]*omnidupe.ImageRecord, 0, len(cluster))
		for _, c := range cluster {
			members = append(members, c.rec)
			processed[c.rec.ID] = true
		}
		score := meanPairwiseDistance(cluster)
		groups = append(groups, &omnidupe.Group{
			Kind:            omnidupe.GroupKindPerceptual,
			Members:         members,
			SimilarityScore: &score,
		})
	}

	return groups, nil
}

func meanPairwiseDistance(cluster []struct {
	rec  *omnidupe.ImageRecord
	hash uint64
}) float64 {
	if len(cluster) < 2 {
		return 0
	}
	var sum, pairs float64
	for i := 0; i < len(cluster); i++ {
		for j := i + 1; j < len(cluster); j++ {
			sum += float64(omnidupe.HammingDistance(cluster[i].hash, cluster[j].hash))
			pairs++
		}
	}
	return sum / pairs
}

// selectKeeper sorts the group's members by the lexicographic key
// (-width*height, -file_size, len(basename), file_path) and records the
// index of the first (minimal) element as the keeper (§4.5).
func selectKeeper(g *omnidupe.Group) {
	sort.SliceStable(g.Members, func(i, j int) bool {
		a, b := g.Members[i], g.Members[j]
		areaA, areaB := int64(a.Width)*int64(a.Height), int64(b.Width)*int64(b.Height)
		if areaA != areaB {
			return areaA > areaB
		}
		if a.FileSize != b.FileSize {
			return a.FileSize > b.FileSize
		}
		lenA, lenB := len(filepath.Base(a.FilePath)), len(filepath.Base(b.FilePath))
		if lenA != lenB {
			return lenA < lenB
		}
		return a.FilePath < b.FilePath
	})
	g.KeeperIndex = 0
}

// persist writes the group and its members, then marks every non-keeper
// member for removal, subject to the catalog's protection guard
// (§4.5 Persistence of groups).
func (d *Detector) persist(g *omnidupe.Group) error {
	groupID, err := d.cat.CreateGroup(g.Kind, g.SimilarityScore)
	if err != nil {
		return err
	}

	reason := omnidupe.ReasonForKind(g.Kind)
	for i, m := range g.Members {
		isKeeper := i == g.KeeperIndex
		if err := d.cat.AddToGroup(groupID, m.ID, isKeeper); err != nil {
			return err
		}
		if isKeeper {
			continue
		}
		if err := d.cat.MarkForRemoval(m.ID, reason); err != nil {
			return err
		}
	}
	return nil
}
