package object

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/qstream/internal/signal"
)

// forwardLink relays membership changes of src into dst.
// It is the owner key of dst's subscriptions on src.
type forwardLink struct {
	src *Repository
	dst *Repository
}

func (l *forwardLink) onAdded(e Entity) {
	if e == nil {
		slog.Warn("forwarded repository announced a nil object", "src", l.src.Key())
		return
	}
	key := e.Base().Key()
	// Already present: skipping keeps mutually forwarding repositories
	// from relaying the same add back and forth.
	if cur, ok := l.dst.objects[key]; ok && cur == e {
		return
	}
	l.dst.Add(key, e, true)
}

func (l *forwardLink) onDeleted(key string) {
	l.dst.Remove(key, false)
}

// Forward mirrors src into r. Every current member of src is added with
// force, so src's entity wins over a local entity with the same key, and
// later adds and removals on src are relayed. Fails if src is nil, r itself,
// or already forwarded.
func (r *Repository) Forward(src *Repository) bool {
	if src == nil || src == r {
		return false
	}
	if r.IsForwarding(src) {
		return false
	}

	for _, key := range src.Keys() {
		r.Add(key, src.objects[key], true)
	}

	link := &forwardLink{src: src, dst: r}
	src.ObjectAdded.Connect(link, link.onAdded)
	src.ObjectDeleted.Connect(link, link.onDeleted)

	r.forwarded = append(r.forwarded, link)
	src.forwardedBy = append(src.forwardedBy, link)

	slog.Debug("forwarding repository", "dst", r.Key(), "src", src.Key())
	signal.Fire(&r.ForwardedReposChanged)
	return true
}

// Unforward stops mirroring src and removes every entity that is a member of
// src at the time of the call. A local entity that merely shares a key with
// one of src's members is kept. Fails if src is nil or not forwarded.
func (r *Repository) Unforward(src *Repository) bool {
	if src == nil {
		return false
	}
	i := slices.IndexFunc(r.forwarded, func(l *forwardLink) bool { return l.src == src })
	if i < 0 {
		return false
	}
	link := r.forwarded[i]

	src.ObjectAdded.Disconnect(link)
	src.ObjectDeleted.Disconnect(link)

	r.forwarded = slices.Delete(r.forwarded, i, i+1)

	members := src.Objects()
	for _, key := range slices.Sorted(maps.Keys(members)) {
		if cur, ok := r.objects[key]; ok && cur == members[key] {
			r.Remove(key, false)
		}
	}

	if j := slices.Index(src.forwardedBy, link); j >= 0 {
		src.forwardedBy = slices.Delete(src.forwardedBy, j, j+1)
	}

	slog.Debug("stopped forwarding repository", "dst", r.Key(), "src", src.Key())
	signal.Fire(&r.ForwardedReposChanged)
	return true
}

// IsForwarding reports whether r mirrors src.
func (r *Repository) IsForwarding(src *Repository) bool {
	return slices.ContainsFunc(r.forwarded, func(l *forwardLink) bool { return l.src == src })
}

// ForwardedRepos returns the repositories r mirrors, in forwarding order.
func (r *Repository) ForwardedRepos() []*Repository {
	out := make([]*Repository, len(r.forwarded))
	for i, l := range r.forwarded {
		out[i] = l.src
	}
	return out
}
