// Package archive opens single-file compressed containers and iterates their
// entries one at a time.
//
// Every format is exposed through Reader: call Next until it returns io.EOF,
// then Close. Close releases the decoder and the underlying file, and must be
// called on every path, including after Next fails.
package archive

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"jarscan/internal/errors"
	"jarscan/internal/paths"
)

// Entry is one named unit inside an archive. It is only valid until the
// next call to Reader.Next.
type Entry struct {
	// Name is the entry path exactly as stored in the archive.
	Name string
	// Size is the uncompressed size when the format records it, else -1.
	Size int64
	// Dir is true for directory entries.
	Dir bool

	open func() (io.ReadCloser, error)
}

// Open returns the entry's decompressed data stream.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.open == nil {
		return io.NopCloser(strings.NewReader("")), nil
	}
	return e.open()
}

// Reader iterates the entries of one opened archive.
type Reader interface {
	// Next returns the next entry, or io.EOF after the last one.
	Next() (Entry, error)
	// Close releases the archive and the file it was read from.
	Close() error
}

// Source is the file an archive is read from. billy.File satisfies it.
type Source interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// OpenFunc builds a Reader over an open source of the given size.
// On success the Reader owns src; on error the caller still does.
type OpenFunc func(src Source, size int64) (Reader, error)

// Format describes one archive container type.
type Format struct {
	Name     string
	Suffixes []string
	Open     OpenFunc
}

// Registry maps file suffixes to formats.
type Registry struct {
	formats []Format
}

// NewRegistry returns a registry holding the given formats.
func NewRegistry(formats ...Format) *Registry {
	return &Registry{formats: formats}
}

// DefaultRegistry returns a registry with the zip and tar families.
func DefaultRegistry() *Registry {
	return NewRegistry(ZipFormat(), TarFormat(), TarGzipFormat(), TarZstdFormat())
}

// Suffixes returns every suffix known to the registry, sorted.
func (r *Registry) Suffixes() []string {
	var out []string
	for _, f := range r.formats {
		out = append(out, f.Suffixes...)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the format whose suffix matches the end of name, ignoring
// case. The longest matching suffix wins, so ".tar.gz" beats ".gz".
func (r *Registry) Lookup(name string) (Format, bool) {
	lower := strings.ToLower(name)
	var (
		best    Format
		bestLen int
	)
	for _, f := range r.formats {
		for _, s := range f.Suffixes {
			s = strings.ToLower(s)
			if len(s) > bestLen && strings.HasSuffix(lower, s) {
				best, bestLen = f, len(s)
			}
		}
	}
	return best, bestLen > 0
}

// Open opens path on fsys and returns a Reader for its format.
// Failures carry errors.ArchiveOpenFailed or errors.UnsupportedFormat.
// The file is closed before Open returns an error.
func (r *Registry) Open(fsys paths.FS, path string) (Reader, error) {
	format, ok := r.Lookup(path)
	if !ok {
		return nil, errors.NewScanError(errors.UnsupportedFormat, "no reader for archive suffix", path, nil)
	}

	fi, err := fsys.Stat(path)
	if err != nil {
		return nil, errors.NewScanError(errors.ArchiveOpenFailed, "cannot stat archive", path, err)
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.NewScanError(errors.ArchiveOpenFailed, "cannot open archive", path, err)
	}

	reader, err := format.Open(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, errors.NewScanError(errors.ArchiveOpenFailed, fmt.Sprintf("cannot read %s header", format.Name), path, err)
	}
	return reader, nil
}
