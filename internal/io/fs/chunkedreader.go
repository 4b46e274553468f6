package fs

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/mimecast/gzscan/internal/io/pool"
)

// ctxCheckInterval is how many lines are decoded between context checks.
const ctxCheckInterval = 1024

// decode reads the compressed stream r through two buffered readers and the
// decompressor, and splits the result into lines using the configured
// strategy.
func (d *Decoder) decode(ctx context.Context, r io.Reader, path string, fn LineFunc) error {
	tracker := &trackingReader{r: r}
	compressed := pool.GetReader(tracker, d.opts.BufferSize)
	defer pool.PutReader(compressed)

	plain, closeFn, err := decompressor(d.opts.Compression, compressed)
	if err != nil {
		return tracker.classify(path, err)
	}
	defer closeFn()

	if d.opts.Strategy == Buffered {
		data, err := io.ReadAll(plain)
		if err != nil {
			return tracker.classify(path, err)
		}
		return d.splitLines(ctx, data, fn)
	}

	decompressed := pool.GetReader(plain, d.opts.BufferSize)
	defer pool.PutReader(decompressed)

	stopErr, readErr := d.streamLines(ctx, decompressed, fn)
	if stopErr != nil {
		return stopErr
	}
	if readErr != nil {
		return tracker.classify(path, readErr)
	}
	return nil
}

// streamLines splits the decompressed stream incrementally. Lines longer than
// the read buffer are assembled in a scratch buffer. A partial line in front
// of a read error is dropped. stopErr is a callback or context error, readErr
// a failure of the stream itself.
func (d *Decoder) streamLines(ctx context.Context, r *bufio.Reader, fn LineFunc) (stopErr, readErr error) {
	var scratch []byte

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err, nil
			}
		}

		line, err := r.ReadSlice('\n')
		switch err {
		case nil, io.EOF:
		case bufio.ErrBufferFull:
			scratch = append(scratch, line...)
			continue
		default:
			return nil, err
		}

		if len(scratch) > 0 {
			scratch = append(scratch, line...)
			line = scratch
		}
		if len(line) > 0 {
			if cbErr := fn(d.terminate(line)); cbErr != nil {
				return cbErr, nil
			}
		}
		scratch = scratch[:0]

		if err == io.EOF {
			return nil, nil
		}
	}
}

// splitLines splits a fully decompressed file.
func (d *Decoder) splitLines(ctx context.Context, data []byte, fn LineFunc) error {
	for n := 0; len(data) > 0; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i+1], data[i+1:]
		} else {
			line, data = data, nil
		}

		if err := fn(d.terminate(line)); err != nil {
			return err
		}
	}
	return nil
}

// terminate applies the terminator option to a line.
func (d *Decoder) terminate(line []byte) []byte {
	if !d.opts.StripTerminators || len(line) == 0 || line[len(line)-1] != '\n' {
		return line
	}
	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line
}
