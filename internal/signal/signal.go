// Package signal provides synchronous, owner-keyed notification channels.
//
// A Signal delivers each emitted value to its connected slots in connection
// order, on the caller's goroutine, before Emit returns. Slots are grouped by
// an owner key so that a subscriber can drop every slot it holds on a signal
// with one Disconnect call.
//
// Delivery is reentrant: a slot may connect, disconnect, or emit while the
// signal is being emitted. Emit iterates a snapshot of the slots taken when
// it starts, and it skips slots that were disconnected before their turn.
// Slots connected during an emit receive the next emit, not the current one.
//
// Thread-safety: none. Like the registry that uses it, a Signal belongs to a
// single goroutine.
package signal

// Signal is a synchronous multi-subscriber notification.
// The zero value is ready to use.
type Signal[T any] struct {
	slots []*slot[T]
}

type slot[T any] struct {
	owner     any
	fn        func(T)
	connected bool
}

// Connection is a handle to a single connected slot.
type Connection struct {
	disconnect func()
}

// Disconnect removes the slot. Safe to call more than once.
func (c *Connection) Disconnect() {
	if c == nil || c.disconnect == nil {
		return
	}
	c.disconnect()
	c.disconnect = nil
}

// Connect adds fn as a slot owned by owner and returns its handle.
// owner must be comparable; pointers are the usual choice.
func (s *Signal[T]) Connect(owner any, fn func(T)) *Connection {
	sl := &slot[T]{owner: owner, fn: fn, connected: true}
	s.slots = append(s.slots, sl)
	return &Connection{disconnect: func() { s.remove(sl) }}
}

// Disconnect removes every slot owned by owner and returns how many were removed.
func (s *Signal[T]) Disconnect(owner any) int {
	removed := 0
	kept := s.slots[:0]
	for _, sl := range s.slots {
		if sl.owner == owner {
			sl.connected = false
			removed++
			continue
		}
		kept = append(kept, sl)
	}
	clearTail(s.slots, len(kept))
	s.slots = kept
	return removed
}

// DisconnectAll removes every slot.
func (s *Signal[T]) DisconnectAll() {
	for _, sl := range s.slots {
		sl.connected = false
	}
	s.slots = nil
}

// Connected reports whether owner holds at least one slot.
func (s *Signal[T]) Connected(owner any) bool {
	for _, sl := range s.slots {
		if sl.owner == owner {
			return true
		}
	}
	return false
}

// Len returns the number of connected slots.
func (s *Signal[T]) Len() int {
	return len(s.slots)
}

// Emit delivers v to every slot connected when Emit started.
func (s *Signal[T]) Emit(v T) {
	if len(s.slots) == 0 {
		return
	}
	snapshot := make([]*slot[T], len(s.slots))
	copy(snapshot, s.slots)
	for _, sl := range snapshot {
		if sl.connected {
			sl.fn(v)
		}
	}
}

func (s *Signal[T]) remove(target *slot[T]) {
	for i, sl := range s.slots {
		if sl == target {
			sl.connected = false
			last := len(s.slots) - 1
			copy(s.slots[i:], s.slots[i+1:])
			s.slots[last] = nil
			s.slots = s.slots[:last]
			return
		}
	}
}

// clearTail nils out the abandoned tail so removed slots can be collected.
func clearTail[T any](slots []*slot[T], from int) {
	for i := from; i < len(slots); i++ {
		slots[i] = nil
	}
}

// Notifier is a Signal that carries no value.
type Notifier = Signal[struct{}]

// Fire emits on a Notifier.
func Fire(n *Notifier) {
	n.Emit(struct{}{})
}
