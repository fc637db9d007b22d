package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeReceiver_PushThenRecv(t *testing.T) {
	r := NewFakeReceiver(1)
	r.Push(Frame{Payload: []byte{1, 2, 3}, TimestampS: 100})

	frame, err := r.Recv(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, frame.Payload)
	assert.Equal(t, int64(100), frame.TimestampS)
}

func TestFakeReceiver_RecvBlocksUntilPush(t *testing.T) {
	r := NewFakeReceiver(1)
	done := make(chan struct{})
	go func() {
		_, err := r.Recv(nil)
		assert.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Recv returned before any frame was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	r.Push(Frame{})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Recv did not return after Push")
	}
}

func TestFakeReceiver_CloseUnblocksRecv(t *testing.T) {
	r := NewFakeReceiver(1)
	_ = r.Close()
	_, err := r.Recv(nil)
	assert.ErrorIs(t, err, ErrClosed)
}
