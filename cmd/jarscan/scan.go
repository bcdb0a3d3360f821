package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"jarscan/internal/config"
	"jarscan/internal/errors"
	"jarscan/internal/inspect"
	"jarscan/internal/output"
	"jarscan/internal/paths"
	"jarscan/internal/search"
	"jarscan/internal/slogutil"
	"jarscan/internal/walker"
)

type scanParams struct {
	root     string
	target   string
	cfg      *config.Config
	warnings []string
	level    slog.Level
	fsys     paths.FS
	stdout   io.Writer
	stderr   io.Writer
}

func runScan(ctx context.Context, p scanParams) error {
	logger, closeLog, err := newLogger(p.cfg.Log, p.level, p.stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	runID := uuid.NewString()
	logger = logger.With(slogutil.RunKey, runID)
	for _, w := range p.warnings {
		logger.Warn("Config warning", "detail", w)
	}

	req := search.NewRequest(p.fsys, p.root, p.target)
	if !req.Valid() {
		logger.Debug("Search root not found", "code", errors.RootNotFound, "path", p.root)
		fmt.Fprintf(p.stderr, "Error: The input directory/file %s was not found\n", p.root)
		printUsage(p.stdout)
		return nil
	}

	printer, err := output.NewPrinter(p.stdout, output.Options{
		Format: output.Format(p.cfg.Output.Format),
		Color:  useColor(p.cfg.Output.Color, p.stdout),
		RunID:  runID,
	})
	if err != nil {
		return errors.NewScanError(errors.ConfigInvalid, "invalid output format", "", err)
	}

	w := walker.New(p.fsys, walker.Options{
		SkipDirs: p.cfg.Scan.SkipDirs,
		Logger:   logger,
	})
	in := inspect.New(p.fsys, inspect.Options{
		Suffixes: p.cfg.Scan.Extensions,
		Verify:   p.cfg.Scan.Verify,
		Logger:   logger,
	})

	sum, searchErr := search.New(w, in, logger).Search(ctx, req, printer)
	if err := printer.Close(); err != nil && searchErr == nil {
		searchErr = err
	}
	if p.cfg.Output.Summary {
		printSummary(p.stderr, sum)
	}
	return searchErr
}

// logLevel lets -v and -q override the configured level.
func logLevel(cfg *config.Config, verbose int, quiet bool) slog.Level {
	if quiet || verbose > 0 {
		return slogutil.LevelFromVerbosity(verbose, quiet)
	}
	return slogutil.LevelFromString(cfg.Log.Level)
}

// newLogger builds the stderr logger, teeing into cfg.File when set. The
// returned func closes the log file.
func newLogger(cfg config.LogConfig, level slog.Level, stderr io.Writer) (*slog.Logger, func() error, error) {
	format := slogutil.Format(cfg.Format)
	handler := slogutil.NewHandler(stderr, format, level)
	if cfg.File == "" {
		return slog.New(handler), func() error { return nil }, nil
	}

	fileLogger, f, err := slogutil.NewFileLogger(cfg.File, format, level)
	if err != nil {
		return nil, nil, errors.NewScanError(errors.ConfigInvalid, "cannot open log file", cfg.File, err)
	}
	return slog.New(slogutil.NewTeeHandler(handler, fileLogger.Handler())), f.Close, nil
}

// useColor resolves a color mode. auto colors only a terminal stdout.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorAuto:
		f, ok := w.(*os.File)
		return ok && f == os.Stdout && !color.NoColor
	default:
		return false
	}
}

func printSummary(w io.Writer, sum search.Summary) {
	fmt.Fprintf(w, "Scanned %d files (%d archives, %d entries, %d classes) in %s\n",
		sum.Files, sum.Archives, sum.Entries, sum.Classes, sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Matches: %d  Failures: %d  Directories: %d  Unreadable: %d  Cycles skipped: %d\n",
		sum.Matches, sum.Failures, sum.Walk.Dirs, sum.Walk.ListingFailed, sum.Walk.CyclesSkipped)
}
