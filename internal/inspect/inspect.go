// Package inspect scans the entries of one archive for classes whose simple
// name equals a target.
package inspect

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"jarscan/internal/archive"
	"jarscan/internal/classname"
	"jarscan/internal/errors"
	"jarscan/internal/paths"
	"jarscan/internal/slogutil"
)

// DefaultSuffixes are the archive suffixes inspected when none are configured.
var DefaultSuffixes = []string{".jar"}

// Match is a class entry whose identifier equals the search target.
type Match struct {
	// Archive is the canonical filesystem path of the containing archive.
	Archive string `json:"archive" yaml:"archive"`
	// Class is the dotted entry name, e.g. com.example.Logger.
	Class string `json:"class" yaml:"class"`
	// Entry is the trimmed entry path as stored in the archive.
	Entry string `json:"entry" yaml:"entry"`
}

// Emitter receives matches as soon as they are found.
type Emitter interface {
	Emit(Match) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Match) error

// Emit calls f(m).
func (f EmitterFunc) Emit(m Match) error {
	return f(m)
}

// Outcome records what happened while inspecting one candidate file.
type Outcome struct {
	Path    string // candidate path as walked
	Archive string // canonical archive path, empty when skipped
	Skipped bool   // not an archive by suffix
	Entries int    // entries read
	Classes int    // class-like entries among them
	Matches int    // matches emitted
	Err     error  // open, read or emit failure
}

// Options configures an Inspector.
type Options struct {
	// Suffixes selects which files are archives. Defaults to DefaultSuffixes.
	Suffixes []string
	// Registry opens archives. Defaults to archive.DefaultRegistry().
	Registry *archive.Registry
	// Verify decompresses every class entry so corrupt data is reported.
	Verify bool
	// Logger receives debug diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Inspector matches archive entries against a target identifier.
type Inspector struct {
	fs       paths.FS
	suffixes []string
	registry *archive.Registry
	verify   bool
	logger   *slog.Logger
}

// New creates an Inspector reading from fsys.
func New(fsys paths.FS, opts Options) *Inspector {
	in := &Inspector{
		fs:       fsys,
		suffixes: opts.Suffixes,
		registry: opts.Registry,
		verify:   opts.Verify,
		logger:   opts.Logger,
	}
	if len(in.suffixes) == 0 {
		in.suffixes = DefaultSuffixes
	}
	if in.registry == nil {
		in.registry = archive.DefaultRegistry()
	}
	if in.logger == nil {
		in.logger = slogutil.NewDiscardLogger()
	}
	return in
}

// Suffixes returns the archive suffixes this inspector accepts.
func (in *Inspector) Suffixes() []string {
	return in.suffixes
}

// Inspect scans path for class entries whose identifier equals target,
// ignoring case, and passes each match to emit. Files whose canonical name
// lacks an archive suffix are skipped without being opened. Failures are
// returned in the Outcome; the archive is always closed before returning.
func (in *Inspector) Inspect(ctx context.Context, path, target string, emit Emitter) (out Outcome) {
	out.Path = path

	canonical, ok := in.accept(path)
	if !ok {
		out.Skipped = true
		return out
	}
	out.Archive = canonical

	r, err := in.registry.Open(in.fs, canonical)
	if err != nil {
		out.Err = err
		return out
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			in.logger.Debug("Archive close failed", "path", canonical, "error", cerr)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			out.Err = err
			return out
		}

		entry, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			out.Err = errors.NewScanError(errors.ArchiveReadFailed, "entry stream unreadable", canonical, err)
			return out
		}
		out.Entries++

		cls, ok := classname.Parse(entry.Name)
		if !ok {
			continue
		}
		out.Classes++

		if in.verify {
			if err := drain(entry); err != nil {
				out.Err = errors.NewScanError(errors.ArchiveReadFailed, "corrupt entry "+cls.Path, canonical, err)
				return out
			}
		}

		if !classname.Matches(cls.Identifier, target) {
			continue
		}

		m := Match{Archive: canonical, Class: cls.Dotted, Entry: cls.Path}
		if err := emit.Emit(m); err != nil {
			out.Err = errors.NewScanError(errors.InternalError, "cannot write match", canonical, err)
			return out
		}
		out.Matches++
	}
}

// accept reports whether path names an archive and returns its canonical
// path. Only a link in the final component can change the base name, so
// other files are filtered on their walked name before resolving.
func (in *Inspector) accept(path string) (string, bool) {
	if fi, err := in.fs.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink == 0 {
		if _, ok := paths.HasSuffixFold(filepath.Base(path), in.suffixes); !ok {
			return "", false
		}
	}

	canonical := paths.CanonicalOrAbs(in.fs, path)
	if _, ok := paths.HasSuffixFold(canonical, in.suffixes); !ok {
		return "", false
	}
	return canonical, true
}

func drain(e archive.Entry) error {
	rc, err := e.Open()
	if err != nil {
		return err
	}
	_, err = io.Copy(io.Discard, rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	return err
}
