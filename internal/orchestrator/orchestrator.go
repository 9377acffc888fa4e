// Package orchestrator drives the three top-level modes — detect,
// remove, protect — end to end (§4.7), owning the confirmation
// protocol and cancellation handling that the CLI layer delegates to
// it.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/kerr23/omnidupe/internal/actuator"
	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/internal/detector"
	"github.com/kerr23/omnidupe/internal/metadata"
	"github.com/kerr23/omnidupe/internal/report"
	"github.com/kerr23/omnidupe/internal/walker"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
)

// Orchestrator coordinates the walker, extractor, detector and
// actuator against one open catalog.
type Orchestrator struct {
	cat    catalog.Catalog
	log    *logrus.Entry
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	isTTY  func() bool
}

// New creates an Orchestrator bound to cat. Stdin/Stdout/Stderr default
// to os.Stdin/os.Stdout/os.Stderr; tests override them.
func New(cat catalog.Catalog, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	return &Orchestrator{
		cat:    cat,
		log:    log.WithField("component", "orchestrator"),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		isTTY:  func() bool { return isatty.IsTerminal(os.Stdin.Fd()) },
	}
}

// DetectOptions configures a Detect pass, layering the CLI flags over
// the loaded config.
type DetectOptions struct {
	InputDir            string
	SimilarityThreshold int
	MaxWorkers          int
	ReportFormat        report.Format
	OutputDir           string
	SkipDirs            []string
	Extensions          []string
	Now                 string // generated-at timestamp for report file naming, caller-supplied
}

// Detect runs walk -> extract -> persist -> cluster -> mark -> emit
// report (§4.7). No destructive work happens here; only the catalog
// and the report file are written.
func (o *Orchestrator) Detect(ctx context.Context, opts DetectOptions) ([]*omnidupe.Group, error) {
	if opts.SimilarityThreshold < 0 || opts.SimilarityThreshold > omnidupe.MaxSimilarityThreshold {
		return nil, omnidupe.ErrInvalidThreshold
	}

	wcfg := walker.Config{SkipDirs: opts.SkipDirs, Extensions: opts.Extensions, NumWorkers: opts.MaxWorkers}
	w := walker.New(wcfg, o.entryLogger())
	paths, err := w.Walk(ctx, opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	o.log.WithField("count", len(paths)).Info("discovered candidate images")

	if err := o.extractAndStore(ctx, paths, opts.MaxWorkers); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, omnidupe.ErrCancelled
	}

	det := detector.New(o.cat, opts.SimilarityThreshold, o.entryLogger())
	groups, err := det.Run()
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	if stats, err := o.cat.Stats(); err != nil {
		o.log.WithError(err).Warn("failed to compute detection statistics")
	} else {
		o.log.WithFields(logrus.Fields{
			"total_images":      stats.TotalImages,
			"groups_by_kind":    stats.GroupsByKind,
			"reclaimable_bytes": stats.ReclaimableBytes,
		}).Info("detection statistics")
	}

	if opts.OutputDir != "" && opts.ReportFormat != "" {
		if err := o.writeReport(groups, opts); err != nil {
			o.log.WithError(err).Warn("failed to write report file")
		}
	}

	return groups, nil
}

func (o *Orchestrator) entryLogger() *logrus.Logger {
	return o.log.Logger
}

// extractAndStore fans out metadata extraction across a bounded worker
// pool (§5's second named fan-out, sized by --max-workers) and
// serializes every StoreImageMetadata call through a single writer
// goroutine, since the catalog accepts submissions from many
// extractors but commits them one at a time.
func (o *Orchestrator) extractAndStore(ctx context.Context, paths []string, maxWorkers int) error {
	if len(paths) == 0 {
		return nil
	}

	ex := metadata.NewExtractor(o.entryLogger())
	jobs := make(chan string)
	records := make(chan *omnidupe.ImageRecord)
	done := make(chan struct{})

	workers := maxWorkers
	if workers <= 0 {
		workers = omnidupe.DefaultMaxWorkers
	}
	for i := 0; i < workers; i++ {
		go func() {
			for path := range jobs {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				rec, err := ex.Extract(path)
				if err != nil {
					o.log.WithError(err).WithField("path", path).Warn("extraction skipped")
					continue
				}
				records <- rec
			}
			done <- struct{}{}
		}()
	}

	go func() {
		for _, p := range paths {
			jobs <- p
		}
		close(jobs)
	}()

	go func() {
		for i := 0; i < workers; i++ {
			<-done
		}
		close(records)
	}()

	for rec := range records {
		if _, err := o.cat.StoreImageMetadata(rec); err != nil {
			return fmt.Errorf("store metadata for %s: %w", rec.FilePath, err)
		}
	}
	return nil
}

func (o *Orchestrator) writeReport(groups []*omnidupe.Group, opts DetectOptions) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return err
	}
	path := report.FileName(opts.OutputDir, opts.ReportFormat, opts.Now)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.Render(f, opts.ReportFormat, groups, opts.Now)
}

// writeRemovalScript emits the §9.1 removal shell script for the
// current removal set and makes it executable.
func (o *Orchestrator) writeRemovalScript(candidates []*omnidupe.ImageRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.RemovalScript(f, candidates); err != nil {
		return err
	}
	return os.Chmod(path, 0o755)
}

// RemoveOptions configures a Remove pass.
type RemoveOptions struct {
	DryRun     bool
	MoveToDir  string
	BackupDir  string
	Yes        bool
	ScriptPath string // §9.1: if set, also write a removal shell script here; actuation still runs
}

// Remove reads the removal set, shows the confirmation summary, and
// actuates (§4.7, §6's confirmation protocol). It returns (cancelled,
// results, error): cancelled is true when the user declined.
func (o *Orchestrator) Remove(ctx context.Context, opts RemoveOptions) (bool, []omnidupe.ActuatorResult, error) {
	rawCandidates, err := o.cat.ImagesForRemoval()
	if err != nil {
		return false, nil, fmt.Errorf("read removal set: %w", err)
	}
	if len(rawCandidates) == 0 {
		fmt.Fprintln(o.Stdout, "no images marked for removal")
		return false, nil, nil
	}

	// §9.1 pre-flight: never actuate a removal whose group keeper has
	// gone missing since detect ran.
	candidates, aborted := actuator.VerifyKeepers(o.cat, rawCandidates)
	for _, a := range aborted {
		o.log.WithField("path", a.Record.FilePath).Warn("keeper file missing, aborting this group's removal")
	}
	if len(candidates) == 0 {
		fmt.Fprintln(o.Stdout, "no images marked for removal (all keepers missing)")
		return false, aborted, nil
	}

	if err := o.printSummary(candidates); err != nil {
		return false, nil, err
	}

	if opts.ScriptPath != "" {
		if err := o.writeRemovalScript(candidates, opts.ScriptPath); err != nil {
			o.log.WithError(err).Warn("failed to write removal script")
		} else {
			o.log.WithField("path", opts.ScriptPath).Info("wrote removal script")
		}
	}

	if !opts.DryRun {
		proceed, err := o.confirm(opts.Yes)
		if err != nil {
			return false, nil, err
		}
		if !proceed {
			return true, nil, nil
		}
	}

	mode := omnidupe.ActuatorDelete
	switch {
	case opts.DryRun:
		mode = omnidupe.ActuatorDryRun
	case opts.MoveToDir != "":
		mode = omnidupe.ActuatorMove
	}

	act := actuator.New(o.cat, omnidupe.ActuatorOptions{
		Mode:      mode,
		MoveToDir: opts.MoveToDir,
		BackupDir: opts.BackupDir,
	}, o.entryLogger())

	results := make([]omnidupe.ActuatorResult, 0, len(candidates))
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return false, results, omnidupe.ErrCancelled
		default:
		}
		results = append(results, act.Process(c))
	}

	for _, r := range results {
		if r.Err != nil {
			o.log.WithError(r.Err).WithField("path", r.Record.FilePath).Error("failed to remove image")
		}
	}

	if !opts.DryRun {
		// Operational convenience only (§4.3 Diagnostics): VACUUM the
		// catalog after the marks of removed files are cleared.
		if err := o.cat.Compact(); err != nil {
			o.log.WithError(err).Warn("failed to compact catalog after remove")
		}
	}
	if stats, err := o.cat.Stats(); err != nil {
		o.log.WithError(err).Warn("failed to compute post-remove statistics")
	} else {
		o.log.WithFields(logrus.Fields{
			"total_images":      stats.TotalImages,
			"reclaimable_bytes": stats.ReclaimableBytes,
		}).Info("post-remove statistics")
	}

	return false, append(results, aborted...), nil
}

func (o *Orchestrator) printSummary(candidates []*omnidupe.ImageRecord) error {
	var total int64
	for _, c := range candidates {
		total += c.FileSize
	}
	fmt.Fprintf(o.Stdout, "%d images marked for removal, %s total\n", len(candidates), humanize.Bytes(uint64(total)))

	sorted := append([]*omnidupe.ImageRecord(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FilePath < sorted[j].FilePath })

	limit := 5
	if len(sorted) < limit {
		limit = len(sorted)
	}
	for _, c := range sorted[:limit] {
		fmt.Fprintf(o.Stdout, "  %s (%s)\n", c.FilePath, c.RemovalReason)
	}
	return nil
}

// confirm implements §6's confirmation protocol: --yes short-circuits,
// a non-interactive stdin without --yes aborts, otherwise prompt y/N.
func (o *Orchestrator) confirm(yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !o.isTTY() {
		return false, fmt.Errorf("confirmation required but stdin is not interactive; pass --yes")
	}

	fmt.Fprint(o.Stdout, "proceed? (y/N) ")
	reader := bufio.NewReader(o.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch line {
	case "y\n", "Y\n", "y", "Y":
		return true, nil
	default:
		return false, nil
	}
}

// Protect canonicalizes path and marks the corresponding row protected
// (§4.7). found is false when the path is not in the catalog.
func (o *Orchestrator) Protect(path string) (found bool, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}
	return o.cat.MarkProtected(abs)
}
