package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimecast/gzscan/internal/errors"
)

func chunkOf(s string) *bytes.Buffer {
	return bytes.NewBufferString(s)
}

func TestHandoffCapacity(t *testing.T) {
	h := NewHandoff(2)
	assert.Equal(t, 2, h.Cap())

	require.NoError(t, h.Send(context.Background(), chunkOf("a")))
	require.NoError(t, h.Send(context.Background(), chunkOf("b")))
	assert.Equal(t, 2, h.Len())

	// Full: the third send blocks until the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Send(ctx, chunkOf("c")), context.DeadlineExceeded)

	chunk, ok := h.Receive()
	require.True(t, ok)
	assert.Equal(t, "a", chunk.String())
	require.NoError(t, h.Send(context.Background(), chunkOf("c")))

	h.Close()
}

func TestHandoffMinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewHandoff(0).Cap())
	assert.Equal(t, 1, NewHandoff(-5).Cap())
}

func TestHandoffCloseDrains(t *testing.T) {
	h := NewHandoff(4)
	require.NoError(t, h.Send(context.Background(), chunkOf("a")))
	require.NoError(t, h.Send(context.Background(), chunkOf("b")))

	h.Close()
	h.Close()

	assert.ErrorIs(t, h.Send(context.Background(), chunkOf("c")), errors.ErrHandoffClosed)

	var got []string
	for {
		chunk, ok := h.Receive()
		if !ok {
			break
		}
		got = append(got, chunk.String())
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHandoffCloseWakesBlockedSender(t *testing.T) {
	h := NewHandoff(1)
	require.NoError(t, h.Send(context.Background(), chunkOf("a")))

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Send(context.Background(), chunkOf("b"))
	}()

	// Let the sender block on the full channel.
	time.Sleep(20 * time.Millisecond)
	h.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errors.ErrHandoffClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked sender was not released by Close")
	}

	chunk, ok := h.Receive()
	require.True(t, ok)
	assert.Equal(t, "a", chunk.String())
	_, ok = h.Receive()
	assert.False(t, ok)
}

func TestHandoffPerProducerOrder(t *testing.T) {
	const producers = 8
	const perProducer = 500

	h := NewHandoff(3)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := h.Send(context.Background(), chunkOf(fmt.Sprintf("%d:%d", p, i))); err != nil {
					t.Errorf("send failed: %v", err)
					return
				}
			}
		}(p)
	}
	go func() {
		wg.Wait()
		h.Close()
	}()

	next := make([]int, producers)
	total := 0
	for {
		chunk, ok := h.Receive()
		if !ok {
			break
		}
		assert.LessOrEqual(t, h.Len(), h.Cap())

		var p, i int
		_, err := fmt.Sscanf(chunk.String(), "%d:%d", &p, &i)
		require.NoError(t, err)
		assert.Equal(t, next[p], i, "producer %d out of order", p)
		next[p] = i + 1
		total++
	}
	assert.Equal(t, producers*perProducer, total)
}
