package object

import (
	"slices"

	"github.com/google/uuid"
)

// Message is an opaque payload passing between a repository and the
// transport that links it to remote peers.
type Message struct {
	// Source is the sending repository for outbound traffic, or the remote
	// peer for inbound traffic.
	Source uuid.UUID
	// Targets lists the recipients. Empty for broadcasts and inbound traffic.
	Targets []uuid.UUID
	// Broadcast is set for SendMessageToAll.
	Broadcast bool
	Payload   []byte
}

// SendMessage asks the transport to deliver payload to targets.
func (r *Repository) SendMessage(targets []uuid.UUID, payload []byte) {
	r.MessageSent.Emit(Message{
		Source:  r.id,
		Targets: slices.Clone(targets),
		Payload: slices.Clone(payload),
	})
}

// SendMessageToAll asks the transport to deliver payload to every peer.
func (r *Repository) SendMessageToAll(payload []byte) {
	r.MessageSent.Emit(Message{
		Source:    r.id,
		Broadcast: true,
		Payload:   slices.Clone(payload),
	})
}

// DeliverMessage hands inbound traffic from source to the repository's
// listeners. The transport must call it on the repository's goroutine.
func (r *Repository) DeliverMessage(source uuid.UUID, payload []byte) {
	r.MessageReceived.Emit(Message{
		Source:  source,
		Payload: slices.Clone(payload),
	})
}
