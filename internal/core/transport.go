package core

import (
	"context"
	"sync"

	"github.com/roach88/qstream/internal/object"
)

// Transport carries repository messages to remote peers.
//
// Send is called on the registry goroutine for every message that has at
// least one target outside the local repository table, and for every
// broadcast. Implementations that do I/O should queue and return.
type Transport interface {
	Send(ctx context.Context, msg object.Message) error
}

// discardTransport drops every message.
type discardTransport struct{}

func (discardTransport) Send(context.Context, object.Message) error { return nil }

// RecordingTransport keeps every message it is asked to send.
type RecordingTransport struct {
	mu   sync.Mutex
	sent []object.Message
}

// Send implements Transport.
func (t *RecordingTransport) Send(_ context.Context, msg object.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return nil
}

// Sent returns the recorded messages in send order.
func (t *RecordingTransport) Sent() []object.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]object.Message, len(t.sent))
	copy(out, t.sent)
	return out
}
