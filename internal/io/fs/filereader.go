// Package fs provides the file decoder of gzscan. A Decoder opens one
// compressed input file, decompresses it and hands every line of the
// decompressed stream to a callback.
//
// Key components:
// - Decoder with a configurable Strategy (streaming or buffer-then-split)
// - Explicit terminator handling, kept by default
// - gzip and zstd decompression, with optional magic byte detection
//
// Lines passed to the callback are borrowed: they are only valid until the
// callback returns. Failures to open, decompress or read a file are returned
// as *errors.FileError so that callers can isolate them to that file.
package fs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mimecast/gzscan/internal/constants"
	"github.com/mimecast/gzscan/internal/errors"
)

// Strategy selects how a decompressed stream is split into lines.
type Strategy int

const (
	// Streaming reads and splits incrementally with bounded memory.
	Streaming Strategy = iota
	// Buffered decompresses the whole file into memory before splitting.
	Buffered
)

func (s Strategy) String() string {
	switch s {
	case Streaming:
		return "stream"
	case Buffered:
		return "buffer"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "stream" or "buffer".
func ParseStrategy(str string) (Strategy, error) {
	switch strings.ToLower(str) {
	case "stream", "streaming", "":
		return Streaming, nil
	case "buffer", "buffered":
		return Buffered, nil
	default:
		return Streaming, errors.Wrapf(errors.ErrInvalidArgument, "unknown decode strategy %q", str)
	}
}

// LineFunc receives one decoded line. The slice must not be retained after
// the call returns. A non-nil error stops decoding and is returned as is.
type LineFunc func(line []byte) error

// Options configure a Decoder.
type Options struct {
	Strategy    Strategy
	Compression Compression
	// StripTerminators removes a trailing "\n" or "\r\n" from every line.
	StripTerminators bool
	// BufferSize is the size of the read buffers around the decompressor.
	BufferSize int
}

// Decoder turns compressed files into lines. It holds no per-file state and
// is safe for concurrent use.
type Decoder struct {
	opts Options
}

// NewDecoder returns a decoder, filling in defaults for zero options.
func NewDecoder(opts Options) *Decoder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = constants.DecompressBufferSize
	}
	return &Decoder{opts: opts}
}

// DecodeFile opens path and calls fn for every line of its decompressed
// content.
func (d *Decoder) DecodeFile(ctx context.Context, path string, fn LineFunc) error {
	fd, err := os.Open(path)
	if err != nil {
		return errors.NewFileError(path, errors.OpOpen, err)
	}
	defer fd.Close()

	return d.decode(ctx, fd, path, fn)
}
