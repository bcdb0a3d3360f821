// Package walker enumerates every regular file reachable from a root path.
package walker

import (
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"jarscan/internal/errors"
	"jarscan/internal/paths"
	"jarscan/internal/slogutil"
)

// Options configures a Walker.
type Options struct {
	// SkipDirs lists directory base names that are never entered.
	SkipDirs []string
	// Logger receives debug diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Stats counts what one walk encountered.
type Stats struct {
	Files         int // regular files yielded
	Dirs          int // directories listed
	ListingFailed int // directories whose listing could not be read
	CyclesSkipped int // directories already entered under another path
	Skipped       int // directories excluded by SkipDirs
	OtherIgnored  int // entries that are neither files nor directories
}

// Walker walks directory trees on a filesystem.
type Walker struct {
	fs       paths.FS
	skipDirs map[string]struct{}
	logger   *slog.Logger
}

// New creates a Walker over fsys.
func New(fsys paths.FS, opts Options) *Walker {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		if d != "" {
			skip[d] = struct{}{}
		}
	}
	return &Walker{fs: fsys, skipDirs: skip, logger: logger}
}

// frame is one directory on the worklist with its unread children.
// canonical is dir with every link resolved.
type frame struct {
	dir       string
	canonical string
	children  []os.FileInfo
	next      int
}

// Walk returns the files under root. A file root yields itself. A
// directory root yields files depth-first in listing order. Unreadable
// directories contribute nothing. Each call starts a fresh walk.
func (w *Walker) Walk(root string) iter.Seq[string] {
	return w.WalkWithStats(root, nil)
}

// WalkWithStats is Walk, recording counts into stats when non-nil.
func (w *Walker) WalkWithStats(root string, stats *Stats) iter.Seq[string] {
	if stats == nil {
		stats = &Stats{}
	}
	return func(yield func(string) bool) {
		fi, err := w.fs.Stat(root)
		if err != nil {
			w.logger.Debug("Root not accessible", "root", root, "error", err)
			return
		}
		if !fi.IsDir() {
			if fi.Mode().IsRegular() {
				stats.Files++
				yield(root)
			} else {
				stats.OtherIgnored++
			}
			return
		}

		visited := make(map[string]struct{})
		var stack []*frame
		if f := w.enter(root, paths.CanonicalOrAbs(w.fs, root), visited, stats); f != nil {
			stack = append(stack, f)
		}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.children) {
				stack = stack[:len(stack)-1]
				continue
			}
			child := top.children[top.next]
			top.next++

			p := w.fs.Join(top.dir, child.Name())
			info := child
			link := child.Mode()&os.ModeSymlink != 0
			if link {
				resolved, err := w.fs.Stat(p)
				if err != nil {
					w.logger.Debug("Dangling link ignored", "path", p, "error", err)
					stats.OtherIgnored++
					continue
				}
				info = resolved
			}

			switch {
			case info.IsDir():
				if _, skip := w.skipDirs[child.Name()]; skip {
					stats.Skipped++
					continue
				}
				canonical := filepath.Join(top.canonical, child.Name())
				if link {
					canonical = paths.CanonicalOrAbs(w.fs, p)
				}
				if f := w.enter(p, canonical, visited, stats); f != nil {
					stack = append(stack, f)
				}
			case info.Mode().IsRegular():
				stats.Files++
				if !yield(p) {
					return
				}
			default:
				stats.OtherIgnored++
			}
		}
	}
}

// enter lists dir unless its canonical path was already entered.
// It returns nil for revisited or unreadable directories. Only the root and
// linked directories are resolved through the filesystem; a plain child
// extends its parent's canonical path.
func (w *Walker) enter(dir, canonical string, visited map[string]struct{}, stats *Stats) *frame {
	if _, seen := visited[canonical]; seen {
		stats.CyclesSkipped++
		w.logger.Debug("Directory already visited", "path", dir, "canonical", canonical)
		return nil
	}
	visited[canonical] = struct{}{}

	children, err := w.fs.ReadDir(dir)
	if err != nil {
		stats.ListingFailed++
		w.logger.Debug("Directory listing failed",
			"path", dir,
			"code", errors.ListingFailed,
			"error", err,
		)
		return nil
	}
	stats.Dirs++
	if len(children) == 0 {
		return nil
	}
	return &frame{dir: dir, canonical: canonical, children: children}
}
