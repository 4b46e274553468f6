package pool

import (
	"bufio"
	"io"
	"sync"
)

// readerPool holds bufio.Readers used by the decoder. Each decoded file takes
// two of them, one below and one above the decompressor.
var readerPool = sync.Pool{
	New: func() interface{} {
		return (*bufio.Reader)(nil)
	},
}

// GetReader returns a bufio.Reader of the given size reading from r.
func GetReader(r io.Reader, size int) *bufio.Reader {
	if br, _ := readerPool.Get().(*bufio.Reader); br != nil && br.Size() == size {
		br.Reset(r)
		return br
	}
	return bufio.NewReaderSize(r, size)
}

// PutReader returns a reader to the pool. It drops the reference to the
// underlying io.Reader so closed files are not kept alive.
func PutReader(br *bufio.Reader) {
	if br == nil {
		return
	}
	br.Reset(nil)
	readerPool.Put(br)
}
