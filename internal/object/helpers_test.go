package object

import (
	"github.com/google/uuid"

	"github.com/roach88/qstream/internal/ident"
)

var (
	itemInterface = NewClass("I_Item", ObjectClass, "label", "_secret")
	itemClass     = NewClass("Item_QMLTYPE_12", itemInterface, "internal")
	plainClass    = NewClass("Plain", ObjectClass, "label", "_hidden")
)

// item is a concrete entity with an interface class.
type item struct {
	Object
	label    string
	secret   string
	internal string
}

func newItem(parent Entity, opts ...Option) *item {
	i := &item{}
	i.Init(i, itemClass, parent, opts...)
	return i
}

func (i *item) SetLabel(v string)    { SetField(&i.Object, &i.label, v, "label") }
func (i *item) SetSecret(v string)   { SetField(&i.Object, &i.secret, v, "_secret") }
func (i *item) SetInternal(v string) { SetField(&i.Object, &i.internal, v, "internal") }

// plain is an entity without an interface class.
type plain struct {
	Object
	label  string
	hidden string
}

func newPlain(parent Entity, opts ...Option) *plain {
	p := &plain{}
	p.Init(p, plainClass, parent, opts...)
	return p
}

func (p *plain) SetLabel(v string)  { SetField(&p.Object, &p.label, v, "label") }
func (p *plain) SetHidden(v string) { SetField(&p.Object, &p.hidden, v, "_hidden") }

var (
	repoAID = uuid.MustParse("11223344-5566-0001-0000-000000000000")
	repoBID = uuid.MustParse("11223344-5566-0002-0000-000000000000")
	repoCID = uuid.MustParse("aabbccdd-eeff-0003-0000-000000000000")
)

func newRepo(id uuid.UUID, name string) *Repository {
	return NewRepository(nil, WithID(id), WithName(name))
}

// unscopedID returns a deterministic unassigned id ending in n.
func unscopedID(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	id[8] = 0x80
	return ident.Unassign(id)
}

// scopedID returns the id an object created with unscopedID(n) gets in repo.
func scopedID(repo *Repository, n byte) uuid.UUID {
	return ident.WithPrefix(unscopedID(n), repo.ID())
}

// events counts the notifications of a repository.
type events struct {
	objects   int
	added     int
	updated   int
	deleted   int
	forwarded int
	addedIDs  []string
	deleteIDs []string
}

func watch(r *Repository) *events {
	ev := &events{}
	r.ObjectsChanged.Connect(ev, func(struct{}) { ev.objects++ })
	r.AddedObjectsChanged.Connect(ev, func(struct{}) { ev.added++ })
	r.UpdatedObjectsChanged.Connect(ev, func(struct{}) { ev.updated++ })
	r.DeletedObjectsChanged.Connect(ev, func(struct{}) { ev.deleted++ })
	r.ForwardedReposChanged.Connect(ev, func(struct{}) { ev.forwarded++ })
	r.ObjectAdded.Connect(ev, func(e Entity) { ev.addedIDs = append(ev.addedIDs, e.Base().Key()) })
	r.ObjectDeleted.Connect(ev, func(key string) { ev.deleteIDs = append(ev.deleteIDs, key) })
	return ev
}

func keysOf(es []Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Base().Key()
	}
	return out
}
