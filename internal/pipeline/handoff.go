package pipeline

import (
	"bytes"
	"context"
	"sync"

	"github.com/mimecast/gzscan/internal/errors"
)

// Handoff is the bounded channel carrying chunks from the workers to the
// writer. Any number of goroutines may send; exactly one receives.
//
// A successful Send transfers ownership of the chunk to the receiver. After a
// failed Send the caller still owns it.
type Handoff struct {
	ch      chan *bytes.Buffer
	closing chan struct{}
	once    sync.Once

	// mu keeps close(ch) from racing with senders: senders hold it shared,
	// Close takes it exclusively once closing has woken all blocked senders.
	mu     sync.RWMutex
	closed bool
}

// NewHandoff returns a handoff channel holding at most capacity chunks.
func NewHandoff(capacity int) *Handoff {
	if capacity < 1 {
		capacity = 1
	}
	return &Handoff{
		ch:      make(chan *bytes.Buffer, capacity),
		closing: make(chan struct{}),
	}
}

// Send blocks until the chunk is queued, the handoff is closed or ctx is done.
func (h *Handoff) Send(ctx context.Context, chunk *bytes.Buffer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return errors.ErrHandoffClosed
	}

	select {
	case h.ch <- chunk:
		return nil
	case <-h.closing:
		return errors.ErrHandoffClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a chunk is available. ok is false once the handoff is
// closed and drained.
func (h *Handoff) Receive() (chunk *bytes.Buffer, ok bool) {
	chunk, ok = <-h.ch
	return
}

// Close signals that no further sends will occur. Chunks already queued can
// still be received. Close is idempotent.
func (h *Handoff) Close() {
	h.once.Do(func() {
		close(h.closing)

		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		close(h.ch)
	})
}

// Len returns the number of queued chunks.
func (h *Handoff) Len() int {
	return len(h.ch)
}

// Cap returns the capacity of the handoff.
func (h *Handoff) Cap() int {
	return cap(h.ch)
}
