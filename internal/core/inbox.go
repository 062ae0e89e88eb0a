package core

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Envelope is inbound traffic from the transport.
type Envelope struct {
	// Source is the remote sender.
	Source uuid.UUID
	// Target is the local repository to deliver to. uuid.Nil delivers to
	// every local repository.
	Target  uuid.UUID
	Payload []byte
}

// Inbox is a thread-safe FIFO queue handing transport traffic to the
// registry goroutine.
//
// The queue is unbounded so transport readers never block on a slow
// registry. A size-1 signal channel lets the consumer wait with a context.
type Inbox struct {
	mu        sync.Mutex
	envelopes []Envelope
	closed    bool
	signal    chan struct{}
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{
		envelopes: make([]Envelope, 0, 16),
		signal:    make(chan struct{}, 1),
	}
}

// Post adds an envelope to the back of the queue.
// Safe to call from any goroutine. Returns false if the inbox is closed.
func (q *Inbox) Post(e Envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	e.Payload = slices.Clone(e.Payload)
	q.envelopes = append(q.envelopes, e)

	// Buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryTake removes and returns the front envelope without blocking.
func (q *Inbox) TryTake() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.envelopes) == 0 {
		return Envelope{}, false
	}

	e := q.envelopes[0]
	// Release the payload for GC.
	q.envelopes[0] = Envelope{}
	if len(q.envelopes) == 1 {
		q.envelopes = q.envelopes[:0]
	} else {
		q.envelopes = q.envelopes[1:]
	}
	return e, true
}

// Wait returns a channel that signals when envelopes may be available.
// The channel is closed once the inbox is closed.
func (q *Inbox) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued envelopes.
func (q *Inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.envelopes)
}

// Close stops accepting envelopes and wakes any waiter.
// Envelopes already queued can still be taken.
func (q *Inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	// Drop a pending wake so waiters observe the close on their next receive.
	select {
	case <-q.signal:
	default:
	}
	close(q.signal)
}
