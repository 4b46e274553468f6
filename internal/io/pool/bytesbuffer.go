package pool

import (
	"bytes"
	"sync"

	"github.com/mimecast/gzscan/internal/constants"
)

// Chunk buffers travel from a worker through the handoff channel to the
// writer, which recycles them once written. Pooling them keeps allocations
// flat while many files are scanned.
var chunkBuffer = sync.Pool{
	New: func() interface{} {
		b := bytes.Buffer{}
		b.Grow(constants.InitialChunkCapacity)
		return &b
	},
}

// GetChunk returns an empty chunk buffer.
func GetChunk() *bytes.Buffer {
	return chunkBuffer.Get().(*bytes.Buffer)
}

// RecycleChunk returns the buffer to the pool. Oversized buffers are dropped.
func RecycleChunk(b *bytes.Buffer) {
	if b == nil || b.Cap() > constants.MaxPooledChunkCapacity {
		return
	}
	b.Reset()
	chunkBuffer.Put(b)
}
