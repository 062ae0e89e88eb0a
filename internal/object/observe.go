package object

import "github.com/roach88/qstream/internal/signal"

// observe subscribes r to e's field notifications. Only fields the class
// observes reach the updated log. Observing twice is a no-op.
func (r *Repository) observe(e Entity) {
	b := e.Base()
	if b.FieldChanged.Connected(r) {
		return
	}
	class := b.class
	b.FieldChanged.Connect(r, func(field string) {
		if class.Observes(field) {
			r.onObjectChanged(e)
		}
	})
}

// unobserve drops every subscription r holds on e.
func (r *Repository) unobserve(e Entity) {
	if e == nil {
		return
	}
	e.Base().FieldChanged.Disconnect(r)
}

// IsObserving reports whether r is subscribed to e.
func (r *Repository) IsObserving(e Entity) bool {
	if e == nil {
		return false
	}
	return e.Base().FieldChanged.Connected(r)
}

func (r *Repository) onObjectChanged(e Entity) {
	if r.updated.Add(e) && !r.loading {
		signal.Fire(&r.UpdatedObjectsChanged)
	}
}

// onOwnFieldChanged reacts to the repository's own fields. Losing
// availability marks every member unavailable; regaining it does not restore
// them, a resync must do that explicitly.
func (r *Repository) onOwnFieldChanged(field string) {
	if field != FieldAvailable || r.available {
		return
	}
	for _, key := range r.Keys() {
		if e, ok := r.objects[key]; ok {
			e.Base().SetAvailable(false)
		}
	}
}
