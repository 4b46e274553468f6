package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/mimecast/gzscan/internal/constants"
	"github.com/mimecast/gzscan/internal/errors"
	"github.com/mimecast/gzscan/internal/io/pool"
	"github.com/mimecast/gzscan/internal/metrics"
)

// Writer is the only goroutine touching the output stream. It drains the
// handoff channel and writes every chunk verbatim, in arrival order.
type Writer struct {
	out     *bufio.Writer
	handoff *Handoff
	metrics *metrics.Collector

	// Stats
	chunksWritten atomic.Uint64
	bytesWritten  atomic.Uint64
}

// NewWriter returns a writer with an output buffer of bufSize bytes.
func NewWriter(w io.Writer, bufSize int, handoff *Handoff, m *metrics.Collector) *Writer {
	if bufSize <= 0 {
		bufSize = constants.OutputBufferSize
	}
	return &Writer{
		out:     bufio.NewWriterSize(w, bufSize),
		handoff: handoff,
		metrics: m,
	}
}

// Run receives chunks until the handoff is closed and drained, then flushes
// the output buffer once.
//
// The first write error is passed to onError and returned. The writer keeps
// draining afterwards and discards the remaining chunks, so no worker stays
// blocked on a full handoff.
func (w *Writer) Run(onError func(error)) error {
	var writeErr error

	for {
		chunk, ok := w.handoff.Receive()
		if !ok {
			break
		}
		w.metrics.HandoffDepth(w.handoff.Len())

		if writeErr == nil {
			n, err := w.out.Write(chunk.Bytes())
			w.bytesWritten.Add(uint64(n))
			w.metrics.BytesWritten(n)
			if err != nil {
				writeErr = fmt.Errorf("%w: %w", errors.ErrWriteFailed, err)
				if onError != nil {
					onError(writeErr)
				}
			} else {
				w.chunksWritten.Add(1)
			}
		}
		pool.RecycleChunk(chunk)
	}

	if writeErr != nil {
		return writeErr
	}
	if err := w.out.Flush(); err != nil {
		writeErr = fmt.Errorf("%w: %w", errors.ErrWriteFailed, err)
		if onError != nil {
			onError(writeErr)
		}
	}
	return writeErr
}

// Stats returns the number of chunks and bytes accepted by the output buffer.
func (w *Writer) Stats() (chunks, bytes uint64) {
	return w.chunksWritten.Load(), w.bytesWritten.Load()
}
