// Package walker implements the recursive, symlink-skipping,
// system-directory-skipping directory traversal described in §4.1. It
// yields a stable, deduplicated, sorted sequence of canonical absolute
// paths to candidate image files; everything past that contract
// (decoding, hashing) belongs to internal/metadata.
package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
)

// Config controls traversal behavior.
type Config struct {
	SkipDirs   []string
	Extensions []string
	NumWorkers int
}

// DefaultConfig returns the spec's default skip set, extension list and
// worker count.
func DefaultConfig() Config {
	return Config{
		SkipDirs:   append([]string(nil), omnidupe.DefaultSkipDirs...),
		Extensions: append([]string(nil), omnidupe.DefaultExtensions...),
		NumWorkers: omnidupe.DefaultMaxWorkers,
	}
}

// Walker discovers candidate image paths under a root directory.
type Walker struct {
	cfg Config
	log *logrus.Entry
}

// New creates a Walker. A zero NumWorkers falls back to the default.
func New(cfg Config, log *logrus.Logger) *Walker {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = omnidupe.DefaultMaxWorkers
	}
	if log == nil {
		log = logrus.New()
	}
	return &Walker{cfg: cfg, log: log.WithField("component", "walker")}
}

// Walk returns the sorted, deduplicated list of canonical absolute
// candidate paths under root. Unreadable directories are logged and
// skipped, never fatal; only a bad root itself is a hard error.
func (w *Walker) Walk(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Lstat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	dirJobs := make(chan string, w.cfg.NumWorkers*2)
	var mu sync.Mutex
	var results []string
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range dirJobs {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				found := w.listImagesIn(dir)
				if len(found) == 0 {
					continue
				}
				mu.Lock()
				results = append(results, found...)
				mu.Unlock()
			}
		}()
	}

	w.enqueueDirs(ctx, absRoot, dirJobs)
	close(dirJobs)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, omnidupe.ErrCancelled
	}

	sort.Strings(results)
	return dedupe(results), nil
}

// enqueueDirs walks the tree depth-first, pruning skip-directories and
// never following symlinks (§4.1), feeding each directory it descends
// into to the worker pool.
func (w *Walker) enqueueDirs(ctx context.Context, dir string, jobs chan<- string) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	jobs <- dir

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.log.WithError(err).WithField("dir", dir).Warn("unreadable directory, skipping")
		return
	}

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if !entry.IsDir() {
			continue
		}
		if omnidupe.IsSkippedDir(entry.Name(), w.cfg.SkipDirs) {
			w.log.WithField("dir", filepath.Join(dir, entry.Name())).Debug("skipping configured directory")
			continue
		}
		w.enqueueDirs(ctx, filepath.Join(dir, entry.Name()), jobs)
	}
}

// listImagesIn returns the canonical absolute paths of candidate image
// files directly inside dir (non-recursive; subdirectories are separate
// jobs).
func (w *Walker) listImagesIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.log.WithError(err).WithField("dir", dir).Warn("unreadable directory, skipping")
		return nil
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if !w.isCandidate(entry.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out
}

func (w *Walker) isCandidate(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range w.cfg.Extensions {
		if ext == known {
			return true
		}
	}
	return omnidupe.IsImageExtension(ext)
}

func dedupe(sorted []string) []string {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
