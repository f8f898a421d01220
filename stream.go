package serialport

import (
	"context"
	"io"
	"sync"
)

// inboundBuffer holds bytes read from the binding until the consumer pulls
// them. The reader goroutine stops asking the binding for more while the
// buffer is full, which is how a slow consumer pauses upstream reads.
type inboundBuffer struct {
	mu      sync.Mutex
	buf     []byte
	limit   int
	closed  bool
	changed chan struct{} // closed and replaced on every state change
}

func newInboundBuffer(limit int) *inboundBuffer {
	return &inboundBuffer{
		limit:   limit,
		changed: make(chan struct{}),
	}
}

// broadcast must be called with mu held.
func (b *inboundBuffer) broadcast() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// waitRoom blocks until at least one byte fits and returns how many do.
// It returns io.EOF once the buffer is closed.
func (b *inboundBuffer) waitRoom(ctx context.Context) (int, error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return 0, io.EOF
		}
		if room := b.limit - len(b.buf); room > 0 {
			b.mu.Unlock()
			return room, nil
		}
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (b *inboundBuffer) push(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || len(p) == 0 {
		return
	}
	b.buf = append(b.buf, p...)
	b.broadcast()
}

// read blocks until data is buffered. Data pushed before close is still
// returned; after that read reports io.EOF.
func (b *inboundBuffer) read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		b.mu.Lock()
		if len(b.buf) > 0 {
			n := copy(p, b.buf)
			b.buf = b.buf[n:]
			if len(b.buf) == 0 {
				b.buf = nil
			}
			b.broadcast()
			b.mu.Unlock()
			return n, nil
		}
		if b.closed {
			b.mu.Unlock()
			return 0, io.EOF
		}
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (b *inboundBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *inboundBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.broadcast()
}
