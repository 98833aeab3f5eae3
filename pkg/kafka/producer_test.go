package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_SendAfterClose(t *testing.T) {
	p := NewProducer([]string{"localhost:0"}, 4)
	p.Start()

	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close is idempotent")

	err := p.Send(context.Background(), "cart.item.added", []byte("1"), []byte("{}"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_SendHonoursContextWhenInboxFull(t *testing.T) {
	// not started, so nothing drains the inbox
	p := NewProducer([]string{"localhost:0"}, 1)

	require.NoError(t, p.Send(context.Background(), "cart.item.added", nil, []byte("{}")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Send(ctx, "cart.item.added", nil, []byte("{}"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProducer_CloseWithoutStart(t *testing.T) {
	p := NewProducer([]string{"localhost:0"}, 1)
	require.NoError(t, p.Send(context.Background(), "cart.item.added", nil, []byte("{}")))

	done := make(chan struct{})
	go func() {
		_ = p.Close()
		_ = p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close blocked without a running drain loop")
	}

	p.Start()
	assert.ErrorIs(t, p.Send(context.Background(), "cart.item.added", nil, nil), ErrProducerClosed)
}
