package pipeline

import (
	"bytes"
	"context"

	"github.com/mimecast/gzscan/internal/io/pool"
	"github.com/mimecast/gzscan/internal/metrics"
)

// accumulator collects matching lines of one file into chunks and hands every
// chunk reaching the threshold to the writer. It is owned by a single worker.
type accumulator struct {
	buf       *bytes.Buffer
	threshold int
	handoff   *Handoff
	metrics   *metrics.Collector
	chunks    uint64
}

func newAccumulator(handoff *Handoff, threshold int, m *metrics.Collector) *accumulator {
	return &accumulator{
		threshold: threshold,
		handoff:   handoff,
		metrics:   m,
	}
}

// append copies line into the current chunk and hands the chunk off once it
// reaches the threshold.
func (a *accumulator) append(ctx context.Context, line []byte) error {
	if a.buf == nil {
		a.buf = pool.GetChunk()
	}
	a.buf.Write(line)

	if a.buf.Len() >= a.threshold {
		return a.handOff(ctx)
	}
	return nil
}

// flush hands off a non-empty chunk regardless of the threshold.
func (a *accumulator) flush(ctx context.Context) error {
	if a.buf == nil || a.buf.Len() == 0 {
		return nil
	}
	return a.handOff(ctx)
}

// handOff transfers the current chunk. The next append starts a fresh one.
func (a *accumulator) handOff(ctx context.Context) error {
	chunk := a.buf
	a.buf = nil

	if err := a.handoff.Send(ctx, chunk); err != nil {
		pool.RecycleChunk(chunk)
		return err
	}

	a.chunks++
	a.metrics.ChunkHandedOff()
	return nil
}

// release drops a chunk that was never handed off.
func (a *accumulator) release() {
	if a.buf != nil {
		pool.RecycleChunk(a.buf)
		a.buf = nil
	}
}
