// Package bus delivers the inbound protocol events of the agent runtime to
// the listeners of the process. Events broadcast while nobody listens are
// buffered and sent to the first listener which joins.
package bus

import (
	"container/list"
	"context"
	"sync"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/golang/glog"
)

const listenerBufSize = 8

type KeyType string

type EventChan chan aries.Event

type buffer struct {
	buf *list.List
	sync.Mutex
}

type listener struct {
	ch   EventChan
	done chan struct{}

	// senders counts broadcasts writing to ch at the moment
	senders sync.WaitGroup
}

func newListener() *listener {
	return &listener{
		ch:   make(EventChan, listenerBufSize),
		done: make(chan struct{}),
	}
}

// retire stops the pending sends and closes the channel. The listener must
// be out of the station map already.
func (l *listener) retire() {
	close(l.done)
	l.senders.Wait()
	close(l.ch)
}

func (l *listener) send(ev aries.Event) {
	defer l.senders.Done()

	select {
	case l.ch <- ev:
	case <-l.done:
		glog.V(3).Infoln("bus listener gone, event dropped:", ev)
	}
}

// Station is a broadcast hub of aries.Events.
type Station struct {
	listeners map[KeyType]*listener
	sync.Mutex

	// buffer stores events if no one listens
	buffer
}

// Events is the process wide station.
var Events = New()

func New() *Station {
	return &Station{
		listeners: make(map[KeyType]*listener),
		buffer:    buffer{buf: list.New()},
	}
}

// AddListener adds a listener for the key. If the key is already listening
// its old channel is closed and replaced.
func (s *Station) AddListener(key KeyType) EventChan {
	l := newListener()

	s.Lock()
	old, exists := s.listeners[key]
	s.listeners[key] = l
	s.Unlock()

	if exists {
		glog.Warningln("listener replaced:", key)
		old.retire()
	}
	glog.V(4).Infoln("bus listener ADD:", key)

	go s.checkBuffered()
	return l.ch
}

// RmListener removes the listener and closes its channel. It doesn't wait
// for the listener to read.
func (s *Station) RmListener(key KeyType) {
	s.Lock()
	l, ok := s.listeners[key]
	delete(s.listeners, key)
	s.Unlock()

	glog.V(4).Infoln("bus listener RM:", key)
	if ok {
		l.retire()
	}
}

// Broadcast sends the event to all listeners. The event is buffered when no
// one listens.
func (s *Station) Broadcast(ev aries.Event) {
	s.buffer.Lock()
	defer s.buffer.Unlock()

	if !s.broadcast(ev) {
		glog.V(3).Infoln("there are no one to listen us, buffering:", ev)
		s.buffer.buf.PushBack(ev)
	}
}

// Pump broadcasts the events read from src until src is closed or the
// context is done.
func (s *Station) Pump(ctx context.Context, src <-chan aries.Event) {
	for {
		select {
		case <-ctx.Done():
			glog.V(3).Infoln("bus pump stopped:", ctx.Err())
			return
		case ev, ok := <-src:
			if !ok {
				glog.V(3).Infoln("bus pump source closed")
				return
			}
			s.Broadcast(ev)
		}
	}
}

// checkBuffered sends all buffered events to listeners and resets the
// buffer.
func (s *Station) checkBuffered() {
	s.buffer.Lock()
	defer s.buffer.Unlock()

	l := s.buffer.buf

	// using linked list this way it's safe to remove items during iteration
	for e := l.Front(); e != nil; {
		ev := e.Value.(aries.Event)

		old := e
		e = e.Next()

		if !s.broadcast(ev) {
			break
		}
		l.Remove(old)
	}
	glog.V(3).Infoln("checkBuffered done")
}

// broadcast takes a snapshot of the listeners and leaves the lock before
// writing the channels. The caller holds the buffer lock, which keeps the
// event order.
func (s *Station) broadcast(ev aries.Event) (found bool) {
	s.Lock()
	targets := make([]*listener, 0, len(s.listeners))
	for key, l := range s.listeners {
		glog.V(3).Infoln("bus broadcast", ev, "to", key)
		l.senders.Add(1)
		targets = append(targets, l)
	}
	s.Unlock()

	for _, l := range targets {
		l.send(ev)
	}
	return len(targets) > 0
}
