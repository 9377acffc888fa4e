// Package actuator implements safe delete-or-move processing of the
// catalog's removal set (§4.6): existence/regular-file/writability
// checks, move-mode conflict resolution, and transactional catalog
// reconciliation after each file operation.
package actuator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
)

// Actuator processes one image at a time per §4.6's five-step contract.
type Actuator struct {
	cat  catalog.Catalog
	opts omnidupe.ActuatorOptions
	log  *logrus.Entry
	now  func() time.Time
}

// New creates an Actuator configured for one remove pass.
func New(cat catalog.Catalog, opts omnidupe.ActuatorOptions, log *logrus.Logger) *Actuator {
	if log == nil {
		log = logrus.New()
	}
	return &Actuator{
		cat:  cat,
		opts: opts,
		log:  log.WithField("component", "actuator"),
		now:  time.Now,
	}
}

// ProcessAll runs every record in candidates through Process, continuing
// past per-item failures (§7: file-op failures never abort the batch).
func (a *Actuator) ProcessAll(candidates []*omnidupe.ImageRecord) []omnidupe.ActuatorResult {
	results := make([]omnidupe.ActuatorResult, 0, len(candidates))
	for _, rec := range candidates {
		results = append(results, a.Process(rec))
	}
	return results
}

// Process carries out §4.6's five steps for one record.
func (a *Actuator) Process(rec *omnidupe.ImageRecord) omnidupe.ActuatorResult {
	entry := a.log.WithField("path", rec.FilePath)

	info, err := os.Lstat(rec.FilePath)
	if os.IsNotExist(err) {
		// Step 1: missing source is success (§4.6, §8 boundary behavior).
		if clearErr := a.clearMark(rec); clearErr != nil {
			entry.WithError(clearErr).Warn("file already gone but catalog reconciliation failed")
		}
		return omnidupe.ActuatorResult{Record: rec, Succeeded: true}
	}
	if err != nil {
		return omnidupe.ActuatorResult{Record: rec, Err: fmt.Errorf("stat: %w", err)}
	}
	if !info.Mode().IsRegular() {
		return omnidupe.ActuatorResult{Record: rec, Err: omnidupe.ErrNotRegularFile}
	}

	if a.opts.Mode == omnidupe.ActuatorDryRun {
		return omnidupe.ActuatorResult{Record: rec, Succeeded: true, Skipped: true}
	}

	var newPath string
	switch a.opts.Mode {
	case omnidupe.ActuatorDelete:
		newPath, err = a.doDelete(rec.FilePath)
	case omnidupe.ActuatorMove:
		newPath, err = a.doMove(rec.FilePath)
	}
	if err != nil {
		return omnidupe.ActuatorResult{Record: rec, Err: err}
	}

	if clearErr := a.clearMark(rec); clearErr != nil {
		// Step 5: the file operation already succeeded and is not
		// reverted; only the catalog reconciliation is logged.
		entry.WithError(clearErr).Warn("file operation succeeded but catalog reconciliation failed")
	}

	return omnidupe.ActuatorResult{Record: rec, Succeeded: true, NewPath: newPath}
}

// KeeperResolver resolves the file path of the keeper of a marked
// image's duplicate group. catalog.Catalog satisfies this.
type KeeperResolver interface {
	KeeperPathForImage(imageID int64) (path string, ok bool, err error)
}

// VerifyKeepers partitions candidates into those cleared to actuate and
// those whose group keeper has gone missing or unreadable since detect
// ran. A candidate with no resolvable group (nothing to check against)
// is cleared rather than aborted -- the check only ever blocks a
// removal it can positively confirm would leave a group keeperless,
// never one it merely lacks group metadata for. Aborted candidates are
// returned as results carrying omnidupe.ErrKeeperMissing rather than
// being silently dropped, so a remove pass never deletes the last
// surviving copy of a group because its keeper vanished out from under
// the catalog (§9.1).
func VerifyKeepers(resolver KeeperResolver, candidates []*omnidupe.ImageRecord) (verified []*omnidupe.ImageRecord, aborted []omnidupe.ActuatorResult) {
	for _, rec := range candidates {
		keeperPath, ok, err := resolver.KeeperPathForImage(rec.ID)
		if err != nil || !ok {
			verified = append(verified, rec)
			continue
		}
		info, statErr := os.Lstat(keeperPath)
		if statErr != nil || !info.Mode().IsRegular() {
			aborted = append(aborted, omnidupe.ActuatorResult{Record: rec, Err: omnidupe.ErrKeeperMissing})
			continue
		}
		f, openErr := os.Open(keeperPath)
		if openErr != nil {
			aborted = append(aborted, omnidupe.ActuatorResult{Record: rec, Err: omnidupe.ErrKeeperMissing})
			continue
		}
		f.Close()
		verified = append(verified, rec)
	}
	return verified, aborted
}

func (a *Actuator) clearMark(rec *omnidupe.ImageRecord) error {
	return a.cat.UnmarkForRemoval(rec.ID)
}

func (a *Actuator) doDelete(path string) (string, error) {
	if err := checkWritable(path); err != nil {
		return "", fmt.Errorf("permission check: %w", err)
	}
	if a.opts.BackupDir != "" {
		if _, err := a.backup(path); err != nil {
			return "", fmt.Errorf("backup: %w", err)
		}
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove: %w", err)
	}
	return "", nil
}

func (a *Actuator) backup(path string) (string, error) {
	if err := os.MkdirAll(a.opts.BackupDir, 0o755); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(a.opts.BackupDir, filepath.Base(path))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func (a *Actuator) doMove(path string) (string, error) {
	if err := checkWritable(path); err != nil {
		return "", fmt.Errorf("source permission check: %w", err)
	}
	if err := os.MkdirAll(a.opts.MoveToDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}
	if err := checkDirWritable(a.opts.MoveToDir); err != nil {
		return "", fmt.Errorf("destination permission check: %w", err)
	}

	dest, err := a.resolveDestination(path)
	if err != nil {
		return "", err
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move: %w", err)
	}
	return dest, nil
}

// resolveDestination implements §4.6 step 4: on a name collision, try a
// monotonic-millisecond-timestamp suffix first (which resolves the
// overwhelming majority of collisions on the first attempt), then an
// incrementing counter, aborting after MoveConflictMaxAttempts.
func (a *Actuator) resolveDestination(srcPath string) (string, error) {
	base := filepath.Base(srcPath)
	dest := filepath.Join(a.opts.MoveToDir, base)
	if !exists(dest) {
		return dest, nil
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	tsName := fmt.Sprintf("%s_%d%s", stem, a.now().UnixMilli(), ext)
	tsDest := filepath.Join(a.opts.MoveToDir, tsName)
	if !exists(tsDest) {
		return tsDest, nil
	}

	for i := 1; i <= omnidupe.MoveConflictMaxAttempts; i++ {
		candidate := filepath.Join(a.opts.MoveToDir, fmt.Sprintf("%s_%d_%d%s", stem, a.now().UnixMilli(), i, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", omnidupe.ErrConflictExhausted
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkWritable(path string) error {
	dir := filepath.Dir(path)
	return checkDirWritable(dir)
}

func checkDirWritable(dir string) error {
	probe := filepath.Join(dir, fmt.Sprintf(".omnidupe-write-check-%d", time.Now().UnixNano()))
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}
