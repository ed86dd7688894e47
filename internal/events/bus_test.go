package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishAndReceive(t *testing.T) {
	b := NewBus(4)
	b.Publish(New(TypeServerStarted, ServerLifecycleData{ServerID: "demo"}))

	select {
	case e := <-b.Events():
		assert.Equal(t, TypeServerStarted, e.Type)
	default:
		t.Fatal("expected an event to be queued")
	}
}

func TestBus_PublishDoesNotBlockWhenFull(t *testing.T) {
	b := NewBus(1)
	b.Publish(New(TypeHeartbeat, nil))

	done := make(chan struct{})
	go func() {
		b.Publish(New(TypeHeartbeat, nil)) // queue is full; must not block
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // Publish must return promptly even though the channel is full.
}

func TestBus_LenAndCap(t *testing.T) {
	b := NewBus(10)
	require.Equal(t, 10, b.Cap())
	require.Equal(t, 0, b.Len())

	b.Publish(New(TypeHeartbeat, nil))
	assert.Equal(t, 1, b.Len())
}

func TestBus_Snapshot(t *testing.T) {
	b := NewBus(100)
	for i := 0; i < 5; i++ {
		b.Publish(New(TypeHeartbeat, nil))
	}

	snap := b.Snapshot(3)
	assert.Len(t, snap, 3)

	all := b.Snapshot(0)
	assert.Len(t, all, 5)
}
