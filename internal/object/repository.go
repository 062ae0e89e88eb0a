package object

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/qstream/internal/signal"
)

// DefaultRepositoryName is the name of a Repository created without WithName.
const DefaultRepositoryName = "Repo"

// Repository is an Entity that tracks a set of member entities by key
// (the string form of their id) and logs membership and field changes
// in three differential sets until a consumer drains them.
//
// A Repository never owns the lifetime of its members.
//
// Thread-safety: none. A Repository and all entities reachable from it
// belong to one goroutine; other goroutines hand work in through
// core.Inbox.
type Repository struct {
	Object

	name       string
	rootObject Entity
	loading    bool

	objects map[string]Entity
	added   *orderedSet[Entity]
	updated *orderedSet[Entity]
	deleted *orderedSet[string]

	forwarded   []*forwardLink
	forwardedBy []*forwardLink

	// ObjectAdded fires for every successful Add, loading or not.
	ObjectAdded signal.Signal[Entity]
	// ObjectDeleted fires with the key of every removed member.
	ObjectDeleted signal.Signal[string]

	ObjectsChanged        signal.Notifier
	AddedObjectsChanged   signal.Notifier
	UpdatedObjectsChanged signal.Notifier
	DeletedObjectsChanged signal.Notifier
	ForwardedReposChanged signal.Notifier

	// MessageReceived fires for inbound traffic handed in by DeliverMessage.
	MessageReceived signal.Signal[Message]
	// MessageSent fires for outbound traffic from SendMessage and SendMessageToAll.
	MessageSent signal.Signal[Message]
}

// NewRepository creates a Repository. With a parent, it is attached the same
// way a plain object would be.
func NewRepository(parent Entity, opts ...Option) *Repository {
	r := &Repository{}
	r.InitRepository(r, RepositoryClass, parent, opts...)
	return r
}

// InitRepository prepares a Repository embedded in self. class must descend
// from RepositoryClass.
func (r *Repository) InitRepository(self Entity, class *Class, parent Entity, opts ...Option) {
	cfg := buildOptions(opts)
	r.name = DefaultRepositoryName
	if cfg.name != "" {
		r.name = cfg.name
	}
	r.objects = make(map[string]Entity)
	r.added = newOrderedSet[Entity]()
	r.updated = newOrderedSet[Entity]()
	r.deleted = newOrderedSet[string]()
	r.asRepo = r

	r.FieldChanged.Connect(r, r.onOwnFieldChanged)

	r.Object.Init(self, class, parent, opts...)
}

// Name returns the display name.
func (r *Repository) Name() string { return r.name }

// SetName sets the display name.
func (r *Repository) SetName(name string) {
	SetField(&r.Object, &r.name, name, FieldName)
}

// RootObject returns the designated root entity, or nil.
func (r *Repository) RootObject() Entity { return r.rootObject }

// SetRootObject designates the root entity of a tree-shaped repository.
func (r *Repository) SetRootObject(e Entity) {
	if r.rootObject == e {
		return
	}
	r.rootObject = e
	r.NotifyChanged(FieldRootObject)
}

// Loading reports whether a bulk load is in progress.
func (r *Repository) Loading() bool { return r.loading }

// SetLoading toggles bulk-load mode. While loading, RegisterObject accepts
// objects without adding them, and the changed notifications of the object
// map and the differential sets are suppressed.
func (r *Repository) SetLoading(loading bool) {
	SetField(&r.Object, &r.loading, loading, FieldLoading)
}

// Len returns the number of members.
func (r *Repository) Len() int { return len(r.objects) }

// Contains reports whether key is a member key.
func (r *Repository) Contains(key string) bool {
	_, ok := r.objects[key]
	return ok
}

// Lookup returns the member stored under key.
func (r *Repository) Lookup(key string) (Entity, bool) {
	e, ok := r.objects[key]
	return e, ok
}

// Keys returns the member keys in sorted order.
func (r *Repository) Keys() []string {
	return slices.Sorted(maps.Keys(r.objects))
}

// Objects returns a copy of the member map.
func (r *Repository) Objects() map[string]Entity {
	return maps.Clone(r.objects)
}

// Add stores e under key. key must be e's current key.
//
// An occupied key fails unless force is set, in which case the previous
// occupant stops being observed and loses its membership. The key leaves the
// deleted log and e joins the added log.
func (r *Repository) Add(key string, e Entity, force bool) bool {
	if e == nil {
		return false
	}
	b := e.Base()
	if b == &r.Object || b.destroyed {
		return false
	}
	if key != b.Key() {
		slog.Warn("refusing to add object under foreign key",
			"repo", r.Key(),
			"key", key,
			"id", b.Key())
		return false
	}

	if prev, ok := r.objects[key]; ok {
		if !force {
			slog.Warn("skipped adding object, id already registered",
				"repo", r.Key(),
				"key", key)
			return false
		}
		r.unobserve(prev)
		if prev != e {
			r.evict(prev)
		}
	}

	r.deleted.Remove(key)
	r.objects[key] = e
	r.observe(e)

	r.ObjectAdded.Emit(e)
	if !r.loading {
		signal.Fire(&r.ObjectsChanged)
	}
	if r.added.Add(e) && !r.loading {
		signal.Fire(&r.AddedObjectsChanged)
	}
	return true
}

// evict clears the back reference of a member that left r.
func (r *Repository) evict(e Entity) {
	b := e.Base()
	if b.repo == r {
		b.repo = nil
		b.NotifyChanged(FieldRepository)
	}
}

// Remove drops the member stored under key. Returns false if key is absent.
//
// The entity leaves the added and updated logs silently and key joins the
// deleted log. A member that belonged to r is left unattached, so a later
// AttachTo registers it again. suppress withholds the changed notifications,
// as Clear does to emit them once at the end.
func (r *Repository) Remove(key string, suppress bool) bool {
	e, ok := r.objects[key]
	if !ok {
		return false
	}
	delete(r.objects, key)
	r.unobserve(e)
	r.evict(e)
	r.added.Remove(e)
	r.updated.Remove(e)

	r.ObjectDeleted.Emit(key)

	quiet := r.loading || suppress
	if !quiet {
		signal.Fire(&r.ObjectsChanged)
	}
	if r.deleted.Add(key) && !quiet {
		signal.Fire(&r.DeletedObjectsChanged)
	}
	return true
}

// Clear removes every member, lowest key first. Handlers may add members
// while it runs; Clear continues until the map is empty. The changed
// notifications fire once at the end. Returns whether anything was removed.
func (r *Repository) Clear() bool {
	if len(r.objects) == 0 {
		return false
	}
	changed := false
	for len(r.objects) > 0 {
		for _, key := range r.Keys() {
			if r.Remove(key, true) {
				changed = true
			}
		}
	}
	if !r.loading {
		signal.Fire(&r.ObjectsChanged)
		signal.Fire(&r.DeletedObjectsChanged)
	}
	return changed
}

// RegisterObject is the entry point used by AttachTo. While loading it
// accepts e without adding it.
func (r *Repository) RegisterObject(e Entity) bool {
	if e == nil {
		return false
	}
	if r.loading {
		return true
	}
	return r.Add(e.Base().Key(), e, false)
}

// UnregisterObject removes e if it is the member stored under its key.
// A nil e, or one that is not a member, counts as already removed.
func (r *Repository) UnregisterObject(e Entity) bool {
	if e == nil {
		return true
	}
	key := e.Base().Key()
	if cur, ok := r.objects[key]; ok && cur == e {
		r.Remove(key, false)
	}
	return true
}

// AddedObjects returns the added log in insertion order.
func (r *Repository) AddedObjects() []Entity { return r.added.Items() }

// UpdatedObjects returns the updated log in insertion order.
func (r *Repository) UpdatedObjects() []Entity { return r.updated.Items() }

// DeletedObjects returns the deleted log in insertion order.
func (r *Repository) DeletedObjects() []string { return r.deleted.Items() }

// Changes holds the drained contents of the three differential logs.
type Changes struct {
	Added   []Entity
	Updated []Entity
	Deleted []string
}

// Empty reports whether no changes were drained.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// TakeChanges drains all three logs. A changed notification fires for each
// log that was not already empty.
func (r *Repository) TakeChanges() Changes {
	return Changes{
		Added:   r.ResetAddedObjects(),
		Updated: r.ResetUpdatedObjects(),
		Deleted: r.ResetDeletedObjects(),
	}
}

// ResetAddedObjects drains the added log.
func (r *Repository) ResetAddedObjects() []Entity {
	return drain(r.added, &r.AddedObjectsChanged)
}

// ResetUpdatedObjects drains the updated log.
func (r *Repository) ResetUpdatedObjects() []Entity {
	return drain(r.updated, &r.UpdatedObjectsChanged)
}

// ResetDeletedObjects drains the deleted log.
func (r *Repository) ResetDeletedObjects() []string {
	return drain(r.deleted, &r.DeletedObjectsChanged)
}

func drain[T comparable](s *orderedSet[T], changed *signal.Notifier) []T {
	if s.Len() == 0 {
		return nil
	}
	items := s.Take()
	signal.Fire(changed)
	return items
}

// teardown runs when the repository is destroyed.
func (r *Repository) teardown() {
	for _, link := range slices.Clone(r.forwarded) {
		r.Unforward(link.src)
	}
	for _, link := range slices.Clone(r.forwardedBy) {
		link.dst.Unforward(r)
	}

	for _, key := range r.Keys() {
		e := r.objects[key]
		r.unobserve(e)
		if b := e.Base(); b.repo == r {
			b.repo = nil
		}
	}
	clear(r.objects)
	r.rootObject = nil
}
