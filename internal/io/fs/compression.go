package fs

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/DataDog/zstd"

	"github.com/mimecast/gzscan/internal/errors"
)

// Compression is the compression format of the input files.
type Compression int

const (
	// Gzip expects a (possibly multi-member) gzip stream.
	Gzip Compression = iota
	// Zstd expects a zstandard stream.
	Zstd
	// Auto detects gzip or zstd from the magic bytes.
	Auto
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// ParseCompression parses "gzip", "zstd" or "auto".
func ParseCompression(str string) (Compression, error) {
	switch strings.ToLower(str) {
	case "gzip", "gz", "":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "auto":
		return Auto, nil
	default:
		return Gzip, errors.Wrapf(errors.ErrInvalidArgument, "unknown compression %q", str)
	}
}

// trackingReader remembers the last non-EOF error of the underlying file so
// that read failures can be told apart from corrupt compressed data.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

// classify maps an error seen while decompressing to a file error.
func (t *trackingReader) classify(path string, err error) error {
	if t.err != nil {
		return errors.NewFileError(path, errors.OpRead, err)
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.NewFileError(path, errors.OpDecompress, err)
}

// decompressor wraps the compressed reader according to c. The returned
// close function releases decompressor resources but not the source.
func decompressor(c Compression, compressed *bufio.Reader) (io.Reader, func() error, error) {
	if c == Auto {
		magic, err := compressed.Peek(len(zstdMagic))
		switch {
		case bytes.HasPrefix(magic, gzipMagic):
			c = Gzip
		case bytes.Equal(magic, zstdMagic):
			c = Zstd
		case err != nil:
			return nil, nil, err
		default:
			return nil, nil, fmt.Errorf("unknown compression format, magic % x", magic)
		}
	}

	switch c {
	case Zstd:
		// The zstd reader only validates its input on the first read.
		magic, err := compressed.Peek(len(zstdMagic))
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(magic, zstdMagic) {
			return nil, nil, fmt.Errorf("invalid zstd header % x", magic)
		}
		zr := zstd.NewReader(compressed)
		return zr, zr.Close, nil
	default:
		gz, err := gzip.NewReader(compressed)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz.Close, nil
	}
}
