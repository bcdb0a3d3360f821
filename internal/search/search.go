// Package search walks a root and inspects every candidate archive for a
// class name.
package search

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"jarscan/internal/errors"
	"jarscan/internal/inspect"
	"jarscan/internal/paths"
	"jarscan/internal/slogutil"
	"jarscan/internal/walker"
)

// Request is an immutable (root, target) pair. The root is resolved once
// when the request is built.
type Request struct {
	root   string
	target string
	valid  bool
}

// NewRequest resolves root on fsys. A blank or missing root yields a request
// whose Valid method reports false; searching it does nothing.
func NewRequest(fsys paths.FS, root, target string) Request {
	req := Request{target: target}
	if strings.TrimSpace(root) == "" || !paths.Exists(fsys, root) {
		req.root = root
		return req
	}
	req.root = paths.CanonicalOrAbs(fsys, root)
	req.valid = true
	return req
}

// Root returns the resolved root path.
func (r Request) Root() string { return r.root }

// Target returns the identifier searched for.
func (r Request) Target() string { return r.target }

// Valid reports whether the root existed when the request was built.
func (r Request) Valid() bool { return r.valid }

// HasTarget reports whether the target is non-blank.
func (r Request) HasTarget() bool { return strings.TrimSpace(r.target) != "" }

// Summary aggregates the outcomes of one search.
type Summary struct {
	Root     string        `json:"root"`
	Target   string        `json:"target"`
	Files    int           `json:"files"`
	Archives int           `json:"archives"`
	Entries  int           `json:"entries"`
	Classes  int           `json:"classes"`
	Matches  int           `json:"matches"`
	Failures int           `json:"failures"`
	Walk     walker.Stats  `json:"walk"`
	Duration time.Duration `json:"duration"`
}

// Searcher composes a Walker and an Inspector.
type Searcher struct {
	walker    *walker.Walker
	inspector *inspect.Inspector
	logger    *slog.Logger
}

// New creates a Searcher. A nil logger discards diagnostics.
func New(w *walker.Walker, in *inspect.Inspector, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Searcher{walker: w, inspector: in, logger: logger}
}

// Search inspects every file under req's root and sends matches to emit.
// Blank targets and invalid roots return immediately with an empty summary.
// Per-file failures are logged and counted, never returned. Search stops
// early only when ctx is done or emit fails.
func (s *Searcher) Search(ctx context.Context, req Request, emit inspect.Emitter) (Summary, error) {
	start := time.Now()
	sum := Summary{Root: req.Root(), Target: req.Target()}

	if !req.HasTarget() {
		s.logger.Debug("Blank target, nothing to search")
		return sum, nil
	}
	if !req.Valid() {
		s.logger.Debug("Root does not exist, nothing to search", "root", req.Root())
		return sum, nil
	}

	s.logger.Info("Search started", "root", req.Root(), "target", req.Target())

	for path := range s.walker.WalkWithStats(req.Root(), &sum.Walk) {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}

		out := s.inspector.Inspect(ctx, path, req.Target(), emit)
		sum.Files++
		if out.Skipped {
			continue
		}
		sum.Archives++
		sum.Entries += out.Entries
		sum.Classes += out.Classes
		sum.Matches += out.Matches

		if out.Err == nil {
			s.logger.Debug("Archive inspected",
				"path", out.Archive,
				"entries", out.Entries,
				"classes", out.Classes,
				"matches", out.Matches,
			)
			continue
		}

		if stderrors.Is(out.Err, context.Canceled) || stderrors.Is(out.Err, context.DeadlineExceeded) {
			sum.Duration = time.Since(start)
			return sum, out.Err
		}

		code := errors.CodeOf(out.Err)
		if !errors.Recoverable(code) {
			sum.Duration = time.Since(start)
			return sum, out.Err
		}

		sum.Failures++
		s.logger.Warn("Archive inspection failed",
			"path", out.Archive,
			"code", code,
			"entries", out.Entries,
			"error", out.Err,
		)
	}

	sum.Duration = time.Since(start)
	s.logger.Info("Search completed",
		"files", sum.Files,
		"archives", sum.Archives,
		"matches", sum.Matches,
		"failures", sum.Failures,
		"duration", sum.Duration,
	)
	return sum, nil
}
