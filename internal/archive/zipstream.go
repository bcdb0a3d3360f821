package archive

import (
	"bufio"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

const (
	localHeaderSig     = 0x04034b50
	dataDescriptorSig  = 0x08074b50
	localHeaderLen     = 30
	flagDataDescriptor = 0x8
	zip64ExtraID       = 0x0001
	size32Max          = 0xFFFFFFFF
)

var (
	errNoLocalHeader    = stderrors.New("zip: no local file header")
	errStoredDescriptor = stderrors.New("zip: stored entry with trailing data descriptor cannot be streamed")
)

// zipStream walks local file headers front to back. It stops at the first
// record that is not a local header, which is normally the central
// directory.
type zipStream struct {
	src     Source
	br      *bufio.Reader
	cur     streamEntry
	pending *Entry
	done    bool
}

// streamEntry holds the unread body of the entry last returned.
type streamEntry struct {
	active bool
	// raw is the rest of the compressed body when its size is in the header.
	raw *io.LimitedReader
	// inflater decompresses a body whose size follows it in a data descriptor.
	inflater io.ReadCloser
	zip64    bool
}

// openZipStream succeeds only when the first local header parses, so
// arbitrary bytes are still reported as an unreadable archive.
func openZipStream(src Source, size int64) (*zipStream, error) {
	z := &zipStream{src: src, br: bufio.NewReader(io.NewSectionReader(src, 0, size))}
	first, err := z.next()
	if err == io.EOF {
		return nil, errNoLocalHeader
	}
	if err != nil {
		return nil, err
	}
	z.pending = &first
	return z, nil
}

func (z *zipStream) Next() (Entry, error) {
	if z.pending != nil {
		e := *z.pending
		z.pending = nil
		return e, nil
	}
	return z.next()
}

func (z *zipStream) Close() error {
	if z.cur.inflater != nil {
		_ = z.cur.inflater.Close()
	}
	z.cur = streamEntry{}
	return z.src.Close()
}

func (z *zipStream) next() (Entry, error) {
	if z.done {
		return Entry{}, io.EOF
	}
	if err := z.finish(); err != nil {
		z.done = true
		return Entry{}, err
	}

	var sig [4]byte
	if _, err := io.ReadFull(z.br, sig[:]); err != nil {
		z.done = true
		if err == io.EOF {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("zip: read local header: %w", err)
	}
	if binary.LittleEndian.Uint32(sig[:]) != localHeaderSig {
		z.done = true
		return Entry{}, io.EOF
	}

	e, err := z.readHeader()
	if err != nil {
		z.done = true
		return Entry{}, err
	}
	return e, nil
}

func (z *zipStream) readHeader() (Entry, error) {
	le := binary.LittleEndian

	var hdr [localHeaderLen - 4]byte
	if _, err := io.ReadFull(z.br, hdr[:]); err != nil {
		return Entry{}, fmt.Errorf("zip: read local header: %w", truncated(err))
	}
	flags := le.Uint16(hdr[2:])
	method := le.Uint16(hdr[4:])
	crc := le.Uint32(hdr[10:])
	csize := uint64(le.Uint32(hdr[14:]))
	usize := uint64(le.Uint32(hdr[18:]))
	nameLen := int(le.Uint16(hdr[22:]))
	extraLen := int(le.Uint16(hdr[24:]))

	buf := make([]byte, nameLen+extraLen)
	if _, err := io.ReadFull(z.br, buf); err != nil {
		return Entry{}, fmt.Errorf("zip: read entry name: %w", truncated(err))
	}
	name := string(buf[:nameLen])

	cur := streamEntry{active: true}
	if extra, ok := findExtra(buf[nameLen:], zip64ExtraID); ok {
		cur.zip64 = true
		if usize == size32Max && len(extra) >= 8 {
			usize = le.Uint64(extra)
			extra = extra[8:]
		}
		if csize == size32Max && len(extra) >= 8 {
			csize = le.Uint64(extra)
		}
	}

	e := Entry{Name: name, Size: -1, Dir: strings.HasSuffix(name, "/")}
	switch {
	case flags&flagDataDescriptor == 0:
		raw := &io.LimitedReader{R: z.br, N: int64(csize)}
		cur.raw = raw
		e.Size = int64(usize)
		e.open = func() (io.ReadCloser, error) {
			rc, err := decompressor(method, raw)
			if err != nil {
				return nil, err
			}
			return &checksumReader{rc: rc, hash: crc32.NewIEEE(), want: crc, size: usize}, nil
		}
	case method == zip.Deflate:
		inflater := flate.NewReader(z.br)
		cur.inflater = inflater
		e.open = func() (io.ReadCloser, error) { return io.NopCloser(inflater), nil }
	default:
		return Entry{}, fmt.Errorf("%w: %s", errStoredDescriptor, name)
	}

	z.cur = cur
	return e, nil
}

// finish skips whatever the caller left unread of the current entry body,
// and its data descriptor.
func (z *zipStream) finish() error {
	cur := z.cur
	z.cur = streamEntry{}
	if !cur.active {
		return nil
	}

	if cur.raw != nil {
		if _, err := io.Copy(io.Discard, cur.raw); err != nil {
			return fmt.Errorf("zip: skip entry data: %w", err)
		}
		if cur.raw.N > 0 {
			return fmt.Errorf("zip: skip entry data: %w", io.ErrUnexpectedEOF)
		}
		return nil
	}

	_, err := io.Copy(io.Discard, cur.inflater)
	_ = cur.inflater.Close()
	if err != nil {
		return fmt.Errorf("zip: inflate entry: %w", err)
	}

	var sig [4]byte
	if _, err := io.ReadFull(z.br, sig[:]); err != nil {
		return fmt.Errorf("zip: read data descriptor: %w", truncated(err))
	}
	rest := int64(8)
	if cur.zip64 {
		rest = 16
	}
	if binary.LittleEndian.Uint32(sig[:]) == dataDescriptorSig {
		rest += 4
	}
	if _, err := io.CopyN(io.Discard, z.br, rest); err != nil {
		return fmt.Errorf("zip: read data descriptor: %w", truncated(err))
	}
	return nil
}

func decompressor(method uint16, r io.Reader) (io.ReadCloser, error) {
	switch method {
	case zip.Store:
		return io.NopCloser(r), nil
	case zip.Deflate:
		return flate.NewReader(r), nil
	default:
		return nil, zip.ErrAlgorithm
	}
}

func findExtra(extra []byte, id uint16) ([]byte, bool) {
	le := binary.LittleEndian
	for len(extra) >= 4 {
		tag := le.Uint16(extra)
		size := int(le.Uint16(extra[2:]))
		extra = extra[4:]
		if size > len(extra) {
			break
		}
		if tag == id {
			return extra[:size], true
		}
		extra = extra[size:]
	}
	return nil, false
}

func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// checksumReader fails the final read when the body's CRC-32 or length
// differs from its header.
type checksumReader struct {
	rc   io.ReadCloser
	hash hash.Hash32
	want uint32
	size uint64
	n    uint64
}

func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	c.hash.Write(p[:n])
	c.n += uint64(n)
	if err == io.EOF && (c.n != c.size || c.hash.Sum32() != c.want) {
		return n, zip.ErrChecksum
	}
	return n, err
}

func (c *checksumReader) Close() error {
	return c.rc.Close()
}
