package bus

import (
	"context"
	"testing"
	"time"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/stretchr/testify/assert"
)

func TestStation_Broadcast(t *testing.T) {
	s := New()
	ch := s.AddListener("l1")

	s.Broadcast(aries.Event{ID: "1", Type: aries.EventCredentialOffer})
	ev := <-ch
	assert.Equal(t, "1", ev.ID)
	assert.Equal(t, aries.EventCredentialOffer, ev.Type)

	s.RmListener("l1")
	_, ok := <-ch
	assert.False(t, ok)
}

func TestStation_Buffered(t *testing.T) {
	s := New()
	s.Broadcast(aries.Event{ID: "early1"})
	s.Broadcast(aries.Event{ID: "early2"})

	ch := s.AddListener("late")
	assert.Equal(t, "early1", (<-ch).ID)
	assert.Equal(t, "early2", (<-ch).ID)
	s.RmListener("late")
}

func TestStation_ReplaceListener(t *testing.T) {
	s := New()
	old := s.AddListener("same")
	c := s.AddListener("same")
	_, ok := <-old
	assert.False(t, ok)

	s.Broadcast(aries.Event{ID: "x"})
	assert.Equal(t, "x", (<-c).ID)
	s.RmListener("same")
}

func TestStation_Pump(t *testing.T) {
	s := New()
	ch := s.AddListener("pump")
	src := make(chan aries.Event, 2)
	src <- aries.Event{ID: "a"}
	src <- aries.Event{ID: "b"}
	close(src)

	s.Pump(context.Background(), src)
	assert.Equal(t, "a", (<-ch).ID)
	assert.Equal(t, "b", (<-ch).ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Pump(ctx, make(chan aries.Event))
	s.RmListener("pump")
}

func TestStation_RmListenerWithFullChannel(t *testing.T) {
	s := New()
	s.AddListener("alice")

	src := make(chan aries.Event, 2*listenerBufSize)
	for i := 0; i < cap(src); i++ {
		src <- aries.Event{ID: "full"}
	}
	close(src)

	pumped := make(chan struct{})
	go func() {
		s.Pump(context.Background(), src)
		close(pumped)
	}()

	removed := make(chan struct{})
	go func() {
		// let the pump fill the channel first
		time.Sleep(50 * time.Millisecond)
		s.RmListener("alice")
		close(removed)
	}()

	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("RmListener blocked by a pending broadcast")
	}
	select {
	case <-pumped:
	case <-time.After(2 * time.Second):
		t.Fatal("pump blocked after the listener was removed")
	}
}
