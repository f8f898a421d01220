package serialport

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundBufferReadAfterPush(t *testing.T) {
	b := newInboundBuffer(8)
	b.push([]byte("abc"))

	p := make([]byte, 2)
	n, err := b.read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(p[:n]))

	n, err = b.read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "c", string(p[:n]))
}

func TestInboundBufferBackpressure(t *testing.T) {
	b := newInboundBuffer(4)

	room, err := b.waitRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, room)

	b.push([]byte("full"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.waitRoom(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a full buffer must block the producer")

	got := make(chan int, 1)
	go func() {
		room, _ := b.waitRoom(context.Background())
		got <- room
	}()

	p := make([]byte, 3)
	_, err = b.read(context.Background(), p)
	require.NoError(t, err)

	select {
	case room := <-got:
		assert.Equal(t, 3, room)
	case <-time.After(2 * time.Second):
		t.Fatal("producer was not woken after the consumer drained")
	}
}

func TestInboundBufferCloseDrainsThenEOF(t *testing.T) {
	b := newInboundBuffer(8)
	b.push([]byte("x"))
	b.close()

	p := make([]byte, 4)
	n, err := b.read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = b.read(context.Background(), p)
	assert.ErrorIs(t, err, io.EOF)

	_, err = b.waitRoom(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestInboundBufferCloseWakesReader(t *testing.T) {
	b := newInboundBuffer(8)

	done := make(chan error, 1)
	go func() {
		_, err := b.read(context.Background(), make([]byte, 1))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("reader not woken by close")
	}
}
