package object

import (
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/qstream/internal/ident"
	"github.com/roach88/qstream/internal/signal"
)

// Entity is anything that embeds an Object.
// The embedded Object provides Base, so embedding is all that is required.
type Entity interface {
	Base() *Object
}

// Object is the identity-bearing unit managed by a Repository.
//
// Concrete types embed Object and call Init from their constructor:
//
//	type Note struct {
//		object.Object
//		text string
//	}
//
//	func NewNote(parent object.Entity) *Note {
//		n := &Note{}
//		n.Init(n, NoteClass, parent)
//		return n
//	}
//
// Parent and repository are separate relations. The parent owns the lifetime
// of its children (Destroy cascades down the tree); the repository only
// tracks membership.
type Object struct {
	self  Entity
	class *Class
	repo  *Repository

	// asRepo is set when this Object is the base of a Repository.
	asRepo *Repository

	id        uuid.UUID
	available bool
	destroyed bool

	parent   *Object
	children []*Object

	// FieldChanged carries the name of each field that changed.
	FieldChanged signal.Signal[string]

	// Destroyed fires once, at the end of Destroy.
	Destroyed signal.Notifier
}

// Option configures an Object or Repository at construction.
type Option func(*options)

type options struct {
	id          uuid.UUID
	hasID       bool
	generator   ident.Generator
	name        string
	unavailable bool
}

// WithID sets the initial id instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(o *options) {
		o.id = id
		o.hasID = true
	}
}

// WithGenerator sets the source of the initial id.
func WithGenerator(g ident.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithName sets a Repository's display name. Ignored for plain objects.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithAvailable sets the initial availability. The object joins its
// parent's repository with this value already in place.
func WithAvailable(available bool) Option {
	return func(o *options) {
		o.unavailable = !available
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a plain Object of the given class.
// A nil class means ObjectClass.
func New(class *Class, parent Entity, opts ...Option) *Object {
	o := &Object{}
	o.Init(o, class, parent, opts...)
	return o
}

// Init prepares o for use. It must be called exactly once, with self being
// the outermost value that embeds o.
//
// If parent is a Repository the object joins it; otherwise it joins the
// parent's repository, if any. Joining copies the repository prefix into a
// still-unscoped id.
func (o *Object) Init(self Entity, class *Class, parent Entity, opts ...Option) {
	cfg := buildOptions(opts)
	if class == nil {
		class = ObjectClass
	}
	o.self = self
	o.class = class
	o.available = !cfg.unavailable
	switch {
	case cfg.hasID:
		o.id = cfg.id
	case cfg.generator != nil:
		o.id = cfg.generator.Next()
	default:
		o.id = ident.NewUnassigned()
	}

	if parent == nil {
		return
	}
	p := parent.Base()
	p.children = append(p.children, o)
	o.parent = p

	target := p.repo
	if p.asRepo != nil {
		target = p.asRepo
	}
	if target != nil {
		o.AttachTo(target)
	}
}

// Base returns o. It makes every embedding type an Entity.
func (o *Object) Base() *Object { return o }

// Entity returns the outermost value embedding o.
func (o *Object) Entity() Entity { return o.self }

// Class returns the class o was initialised with.
func (o *Object) Class() *Class { return o.class }

// TypeName returns the concrete type name.
func (o *Object) TypeName() string { return o.class.TypeName() }

// InterfaceType returns the interface type name, or "" without one.
func (o *Object) InterfaceType() string { return o.class.InterfaceType() }

// InterfaceFields returns every field declared on the interface class and
// its ancestors, or nil without an interface.
func (o *Object) InterfaceFields() []string { return interfaceFields(o.class) }

// ID returns the current id.
func (o *Object) ID() uuid.UUID { return o.id }

// Key returns the id in the form used as a repository key.
func (o *Object) Key() string { return ident.Key(o.id) }

// Available reports the availability flag.
func (o *Object) Available() bool { return o.available }

// Repository returns the repository o is a member of, or nil.
func (o *Object) Repository() *Repository { return o.repo }

// IsDestroyed reports whether Destroy has run.
func (o *Object) IsDestroyed() bool { return o.destroyed }

// Parent returns the structural parent, or nil.
func (o *Object) Parent() Entity {
	if o.parent == nil {
		return nil
	}
	return o.parent.self
}

// Children returns the structural children in creation order.
func (o *Object) Children() []Entity {
	out := make([]Entity, len(o.children))
	for i, c := range o.children {
		out[i] = c.self
	}
	return out
}

// NotifyChanged reports a change to field on FieldChanged.
func (o *Object) NotifyChanged(field string) {
	o.FieldChanged.Emit(field)
}

// SetField assigns v to *dst and reports field as changed when the value
// differs. Returns true if a change was reported.
func SetField[T comparable](o *Object, dst *T, v T, field string) bool {
	if *dst == v {
		return false
	}
	*dst = v
	o.NotifyChanged(field)
	return true
}

// SetAvailable sets the availability flag, notifying only on change.
func (o *Object) SetAvailable(available bool) {
	SetField(o, &o.available, available, FieldAvailable)
}

// SetID replaces the id. It is refused once the id is scoped and the object
// is a repository member. A member with an unscoped id is re-registered
// under its new key.
func (o *Object) SetID(id uuid.UUID) bool {
	if ident.IsScoped(o.id) && o.repo != nil {
		slog.Warn("cannot change id of registered object",
			"type", o.TypeName(),
			"id", o.Key())
		return false
	}

	repo := o.repo
	if repo != nil {
		o.repo = nil
		repo.UnregisterObject(o.self)
	}
	o.id = id
	o.NotifyChanged(FieldID)

	if repo == nil {
		return true
	}
	if !repo.RegisterObject(o.self) {
		o.NotifyChanged(FieldRepository)
		return true
	}
	o.repo = repo
	return true
}

// AttachTo moves o into repo, or out of any repository when repo is nil.
//
// An unscoped id takes repo's prefix before registration. If repo refuses
// the object (duplicate key) the call fails and o is left unattached.
// On success the structural children follow transitively, parent before
// children. This holds for a Repository too: its children leave it for repo.
func (o *Object) AttachTo(repo *Repository) bool {
	if o.repo == repo {
		return true
	}
	if o.destroyed && repo != nil {
		return false
	}

	prev := o.repo
	if prev != nil {
		o.repo = nil
		prev.UnregisterObject(o.self)
	}

	if repo != nil {
		if !ident.IsScoped(o.id) {
			o.id = ident.WithPrefix(o.id, repo.ID())
		}
		if !repo.RegisterObject(o.self) {
			if prev != nil {
				o.NotifyChanged(FieldRepository)
			}
			return false
		}
	}

	o.repo = repo
	o.NotifyChanged(FieldRepository)

	for _, c := range slices.Clone(o.children) {
		c.AttachTo(repo)
	}
	return true
}

// SetParent moves o under a new structural parent. Repository membership is
// not changed. Fails if the move would create a cycle.
func (o *Object) SetParent(parent Entity) bool {
	var p *Object
	if parent != nil {
		p = parent.Base()
	}
	if p == o.parent {
		return true
	}
	for k := p; k != nil; k = k.parent {
		if k == o {
			return false
		}
	}

	o.detachFromParent()
	if p != nil {
		p.children = append(p.children, o)
		o.parent = p
	}
	return true
}

func (o *Object) detachFromParent() {
	if o.parent == nil {
		return
	}
	p := o.parent
	if i := slices.Index(p.children, o); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	o.parent = nil
}

// Destroy ends the lifetime of o and its structural subtree. o leaves its
// repository first, then children are destroyed depth-first. A destroyed
// Repository also tears down its forwarding links and clears the back
// references of any remaining members.
func (o *Object) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true

	if repo := o.repo; repo != nil {
		o.repo = nil
		repo.UnregisterObject(o.self)
	}

	for _, c := range slices.Clone(o.children) {
		c.Destroy()
	}

	if o.asRepo != nil {
		o.asRepo.teardown()
	}

	o.detachFromParent()

	signal.Fire(&o.Destroyed)
	o.Destroyed.DisconnectAll()
	o.FieldChanged.DisconnectAll()
}
