// Package paths resolves filesystem paths for the walker and inspector.
// All access goes through a go-billy filesystem so the same code runs on the
// native filesystem and on in-memory trees.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// maxLinks bounds symlink expansion while canonicalizing.
const maxLinks = 255

// FS is the subset of billy.Filesystem jarscan reads from:
// existence and kind checks, directory listing, link resolution and open.
type FS interface {
	billy.Basic
	billy.Dir
	billy.Symlink
}

// OS returns an FS backed by the native filesystem using unmodified paths.
func OS() FS {
	return &osfs.ChrootOS{}
}

// Exists reports whether path exists. Permission and other stat errors
// are reported as non-existence.
func Exists(fsys FS, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}

// Canonical converts path to an absolute path with every symlink resolved
// and "." / ".." components removed.
// - Relative paths are made absolute against the working directory
// - Links are expanded component by component through fsys
// - A missing component stops resolution; the remainder is joined lexically
func Canonical(fsys FS, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("paths: abs %q: %w", path, err)
	}

	vol := filepath.VolumeName(abs)
	resolved := vol + string(filepath.Separator)
	pending := splitComponents(abs[len(vol):])
	links := 0

	for len(pending) > 0 {
		part := pending[0]
		pending = pending[1:]

		switch part {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, part)
		fi, err := fsys.Lstat(next)
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.Join(append([]string{next}, pending...)...), nil
			}
			return "", fmt.Errorf("paths: lstat %q: %w", next, err)
		}

		if fi.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		links++
		if links > maxLinks {
			return "", fmt.Errorf("paths: too many links resolving %q", path)
		}

		target, err := fsys.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("paths: readlink %q: %w", next, err)
		}
		if filepath.IsAbs(target) {
			tvol := filepath.VolumeName(target)
			resolved = tvol + string(filepath.Separator)
			target = target[len(tvol):]
		}
		pending = append(splitComponents(target), pending...)
	}

	return resolved, nil
}

// CanonicalOrAbs returns Canonical(path), falling back to the cleaned
// absolute path (or path itself) when resolution fails.
func CanonicalOrAbs(fsys FS, path string) string {
	if c, err := Canonical(fsys, path); err == nil {
		return c
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// HasSuffixFold reports whether path ends with any of suffixes, ignoring case.
// It returns the matching suffix in its configured spelling.
func HasSuffixFold(path string, suffixes []string) (string, bool) {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(lower, strings.ToLower(s)) {
			return s, true
		}
	}
	return "", false
}

func splitComponents(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
}
