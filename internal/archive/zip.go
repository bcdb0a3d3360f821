package archive

import (
	"io"

	"github.com/klauspost/compress/zip"
)

// ZipFormat reads jar, war, ear and plain zip files.
func ZipFormat() Format {
	return Format{
		Name:     "zip",
		Suffixes: []string{".jar", ".war", ".ear", ".zip"},
		Open:     openZip,
	}
}

type zipReader struct {
	src   Source
	files []*zip.File
	next  int
}

// openZip reads the central directory. When it is missing or damaged, as in
// a truncated download, the local headers are read in file order instead so
// the entries before the damage are still listed.
func openZip(src Source, size int64) (Reader, error) {
	zr, err := zip.NewReader(src, size)
	if zr == nil {
		if stream, serr := openZipStream(src, size); serr == nil {
			return stream, nil
		}
		return nil, err
	}
	// A non-nil reader with an error only flags insecure entry names,
	// which are never extracted here.
	return &zipReader{src: src, files: zr.File}, nil
}

func (z *zipReader) Next() (Entry, error) {
	if z.next >= len(z.files) {
		return Entry{}, io.EOF
	}
	f := z.files[z.next]
	z.next++

	fi := f.FileInfo()
	return Entry{
		Name: f.Name,
		Size: int64(f.UncompressedSize64),
		Dir:  fi.IsDir(),
		open: f.Open,
	}, nil
}

func (z *zipReader) Close() error {
	z.files = nil
	return z.src.Close()
}
