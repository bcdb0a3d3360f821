// Package testutil builds archive fixtures and compares golden output.
package testutil

import (
	"archive/tar"
	"bytes"
	"path"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// classBytes is the magic number every compiled class starts with.
var classBytes = []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52}

// Contents returns fixture data for an entry name: a class header for
// class-like names, short text otherwise.
func Contents(name string) []byte {
	if path.Ext(name) == ".class" {
		return classBytes
	}
	return []byte("fixture: " + name + "\n")
}

// ZipBytes returns a zip (jar) archive holding the named entries in order.
// Names ending in "/" become directory entries.
func ZipBytes(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %q: %v", name, err)
		}
		if name == "" || name[len(name)-1] == '/' {
			continue
		}
		if _, err := w.Write(Contents(name)); err != nil {
			t.Fatalf("zip write %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// TarBytes returns an uncompressed tar holding the named entries in order.
func TarBytes(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range names {
		data := Contents(name)
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if name != "" && name[len(name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
			data = nil
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %q: %v", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("tar write %q: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	return buf.Bytes()
}

// TarGzipBytes returns a gzip-compressed tar holding the named entries.
func TarGzipBytes(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(TarBytes(t, names...)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// TarZstdBytes returns a zstd-compressed tar holding the named entries.
func TarZstdBytes(t *testing.T, names ...string) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(TarBytes(t, names...), nil)
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() billy.Filesystem {
	return memfs.New()
}

// WriteFile writes data to name on fs, creating parent directories.
func WriteFile(t *testing.T, fs billy.Filesystem, name string, data []byte) {
	t.Helper()

	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", path.Dir(name), err)
	}
	if err := util.WriteFile(fs, name, data, 0o644); err != nil {
		t.Fatalf("write %q: %v", name, err)
	}
}

// WriteJar writes a jar holding the named entries to name on fs.
func WriteJar(t *testing.T, fs billy.Filesystem, name string, entries ...string) {
	t.Helper()
	WriteFile(t, fs, name, ZipBytes(t, entries...))
}

// Mkdir creates dir and its parents on fs.
func Mkdir(t *testing.T, fs billy.Filesystem, dir string) {
	t.Helper()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", dir, err)
	}
}
