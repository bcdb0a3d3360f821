package archive

import (
	"archive/tar"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// TarFormat reads uncompressed tar files.
func TarFormat() Format {
	return Format{
		Name:     "tar",
		Suffixes: []string{".tar"},
		Open: func(src Source, _ int64) (Reader, error) {
			return newTarReader(src, nil), nil
		},
	}
}

// TarGzipFormat reads gzip-compressed tar files.
func TarGzipFormat() Format {
	return Format{
		Name:     "tar.gz",
		Suffixes: []string{".tar.gz", ".tgz"},
		Open: func(src Source, _ int64) (Reader, error) {
			gz, err := gzip.NewReader(src)
			if err != nil {
				return nil, err
			}
			return newTarReader(src, gz), nil
		},
	}
}

// TarZstdFormat reads zstd-compressed tar files. The decoder runs
// single-threaded.
func TarZstdFormat() Format {
	return Format{
		Name:     "tar.zst",
		Suffixes: []string{".tar.zst", ".tzst"},
		Open: func(src Source, _ int64) (Reader, error) {
			dec, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}
			return newTarReader(src, dec.IOReadCloser()), nil
		},
	}
}

// tarReader streams entries from a tar, optionally behind a decompressor.
type tarReader struct {
	src    Source
	decomp io.ReadCloser
	tr     *tar.Reader
}

func newTarReader(src Source, decomp io.ReadCloser) *tarReader {
	var r io.Reader = src
	if decomp != nil {
		r = decomp
	}
	return &tarReader{src: src, decomp: decomp, tr: tar.NewReader(r)}
}

func (t *tarReader) Next() (Entry, error) {
	hdr, err := t.tr.Next()
	if err != nil {
		return Entry{}, err
	}
	tr := t.tr
	return Entry{
		Name: hdr.Name,
		Size: hdr.Size,
		Dir:  hdr.Typeflag == tar.TypeDir,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		},
	}, nil
}

func (t *tarReader) Close() error {
	var firstErr error
	if t.decomp != nil {
		if err := t.decomp.Close(); err != nil {
			firstErr = err
		}
	}
	if err := t.src.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
