package constants

// Buffer size constants in bytes
const (
	// DecompressBufferSize is the size of both read buffers wrapped around a
	// compressed file, below and above the decompressor (256KB).
	DecompressBufferSize = 256 * 1024

	// FlushThreshold is the chunk size at which a worker hands its chunk off
	// to the writer (1MB).
	FlushThreshold = 1024 * 1024

	// OutputBufferSize is the size of the writer's output buffer (1MB).
	OutputBufferSize = 1024 * 1024

	// InitialChunkCapacity is the initial capacity of a pooled chunk buffer (64KB)
	InitialChunkCapacity = 64 * 1024

	// MaxPooledChunkCapacity caps the capacity of chunks returned to the pool.
	// Larger buffers are left to the garbage collector.
	MaxPooledChunkCapacity = 4 * FlushThreshold
)
