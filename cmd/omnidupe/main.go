package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kerr23/omnidupe/internal/catalog"
	"github.com/kerr23/omnidupe/internal/config"
	"github.com/kerr23/omnidupe/internal/orchestrator"
	"github.com/kerr23/omnidupe/internal/report"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "omnidupe",
		Version: "1.0.0",
		Usage:   "Find, catalog and safely remove duplicate images",
		Commands: []*cli.Command{
			detectCommand(),
			removeCommand(),
			protectCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:  "detect",
		Usage: "Walk a directory tree and catalog duplicate images",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input-dir", Required: true, EnvVars: []string{"INPUT_DIR"}},
			&cli.StringFlag{Name: "output-dir", Required: true, EnvVars: []string{"OUTPUT_DIR"}},
			&cli.IntFlag{Name: "similarity-threshold", Value: omnidupe.DefaultSimilarityThreshold},
			&cli.StringFlag{Name: "report-format", Value: "text"},
			&cli.IntFlag{Name: "max-workers", Value: omnidupe.DefaultMaxWorkers},
			&cli.StringFlag{Name: "config"},
			&cli.BoolFlag{Name: "verbose"},
		},
		Action: runDetect,
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:  "remove",
		Usage: "Delete or relocate every image marked for removal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output-dir", Required: true, EnvVars: []string{"OUTPUT_DIR"}},
			&cli.BoolFlag{Name: "dry-run"},
			&cli.StringFlag{Name: "move-to"},
			&cli.StringFlag{Name: "backup-dir"},
			&cli.BoolFlag{Name: "script", Usage: "also emit a removal_script_<timestamp>.sh under --output-dir (§9.1)"},
			&cli.BoolFlag{Name: "yes"},
			&cli.BoolFlag{Name: "verbose"},
		},
		Action: runRemove,
	}
}

func protectCommand() *cli.Command {
	return &cli.Command{
		Name:  "protect",
		Usage: "Mark a single image as protected from removal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output-dir", Required: true, EnvVars: []string{"OUTPUT_DIR"}},
			&cli.StringFlag{Name: "file-path", Required: true},
			&cli.BoolFlag{Name: "verbose"},
		},
		Action: runProtect,
	}
}

func runDetect(c *cli.Context) error {
	log := config.NewLogger(c.Bool("verbose"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
	}

	threshold := c.Int("similarity-threshold")
	if !c.IsSet("similarity-threshold") {
		threshold = cfg.SimilarityThreshold
	}
	if threshold < 0 || threshold > omnidupe.MaxSimilarityThreshold {
		return cli.Exit(omnidupe.ErrInvalidThreshold.Error(), 1)
	}
	maxWorkers := c.Int("max-workers")
	if !c.IsSet("max-workers") {
		maxWorkers = cfg.MaxWorkers
	}

	outputDir := c.String("output-dir")
	cat, err := openCatalog(outputDir, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cat.Close()

	ctx, cancel := withInterruptHandling(log)
	defer cancel()

	orch := orchestrator.New(cat, log)
	groups, err := orch.Detect(ctx, orchestrator.DetectOptions{
		InputDir:            c.String("input-dir"),
		SimilarityThreshold: threshold,
		MaxWorkers:          maxWorkers,
		ReportFormat:        report.Format(c.String("report-format")),
		OutputDir:           outputDir,
		SkipDirs:            cfg.SkipDirs,
		Extensions:          cfg.Extensions,
		Now:                 time.Now().Format("20060102_150405"),
	})
	if err != nil {
		if err == omnidupe.ErrCancelled {
			return cli.Exit("detect cancelled", 1)
		}
		return cli.Exit(fmt.Sprintf("detect failed: %v", err), 1)
	}

	fmt.Printf("detect complete: %d duplicate groups found\n", len(groups))
	return nil
}

func runRemove(c *cli.Context) error {
	log := config.NewLogger(c.Bool("verbose"))

	outputDir := c.String("output-dir")
	cat, err := openCatalog(outputDir, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cat.Close()

	ctx, cancel := withInterruptHandling(log)
	defer cancel()

	var scriptPath string
	if c.Bool("script") {
		scriptPath = report.ScriptFileName(outputDir, time.Now().Format("20060102_150405"))
	}

	orch := orchestrator.New(cat, log)
	cancelled, results, err := orch.Remove(ctx, orchestrator.RemoveOptions{
		DryRun:     c.Bool("dry-run"),
		MoveToDir:  c.String("move-to"),
		BackupDir:  c.String("backup-dir"),
		Yes:        c.Bool("yes"),
		ScriptPath: scriptPath,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("remove failed: %v", err), 1)
	}
	if cancelled {
		fmt.Println("remove cancelled by user")
		return nil
	}

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	fmt.Printf("remove complete: %d/%d processed\n", succeeded, len(results))
	return nil
}

func runProtect(c *cli.Context) error {
	log := config.NewLogger(c.Bool("verbose"))

	outputDir := c.String("output-dir")
	cat, err := openCatalog(outputDir, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cat.Close()

	orch := orchestrator.New(cat, log)
	found, err := orch.Protect(c.String("file-path"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("protect failed: %v", err), 1)
	}
	if !found {
		return cli.Exit("path not found in catalog", 1)
	}

	fmt.Println("protected")
	return nil
}

func openCatalog(outputDir string, log *logrus.Logger) (*catalog.Store, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return catalog.Open(filepath.Join(outputDir, omnidupe.CatalogFileName), log)
}

func withInterruptHandling(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("received interrupt, finishing in-flight work...")
		cancel()
	}()
	return ctx, cancel
}
