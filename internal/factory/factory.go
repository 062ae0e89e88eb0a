// Package factory builds object classes from ir.ClassSpec declarations and
// constructs Dynamic entities of those classes.
package factory

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/qstream/internal/ident"
	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/object"
)

// RootClassName names the built-in root class. A spec without a base
// extends it.
const RootClassName = "Object"

// Factory is a registry of runtime-declared classes.
type Factory struct {
	specs   map[string]ir.ClassSpec
	classes map[string]*object.Class
	fields  map[string]map[string]ir.FieldSpec
	gen     ident.Generator
}

// Option configures a Factory.
type Option func(*Factory)

// WithGenerator sets the id generator for created entities.
func WithGenerator(g ident.Generator) Option {
	return func(f *Factory) {
		f.gen = g
	}
}

// New creates an empty factory.
func New(opts ...Option) *Factory {
	f := &Factory{
		specs:   make(map[string]ir.ClassSpec),
		classes: make(map[string]*object.Class),
		fields:  make(map[string]map[string]ir.FieldSpec),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds specs to the factory. Specs may reference each other and
// previously registered classes in any order. Either every spec is
// registered or none is.
func (f *Factory) Register(specs ...ir.ClassSpec) error {
	pending := make(map[string]ir.ClassSpec, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return &Error{Code: ErrCodeInvalidClass, Message: "class name is required"}
		}
		if _, ok := f.specs[spec.Name]; ok || spec.Name == RootClassName {
			return &Error{Code: ErrCodeDuplicateClass, Class: spec.Name, Message: "class already registered"}
		}
		if _, ok := pending[spec.Name]; ok {
			return &Error{Code: ErrCodeDuplicateClass, Class: spec.Name, Message: "class declared twice"}
		}
		pending[spec.Name] = spec
	}

	b := &builder{
		f:       f,
		pending: pending,
		built:   make(map[string]*object.Class),
		fields:  make(map[string]map[string]ir.FieldSpec),
		state:   make(map[string]visitState),
	}
	for _, name := range slices.Sorted(maps.Keys(pending)) {
		if _, err := b.build(name, nil); err != nil {
			return err
		}
	}

	for name, class := range b.built {
		f.specs[name] = pending[name]
		f.classes[name] = class
		f.fields[name] = b.fields[name]
	}
	slog.Debug("registered classes", "count", len(b.built))
	return nil
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

// builder resolves base classes depth-first, detecting cycles with the
// usual three-colour marking.
type builder struct {
	f       *Factory
	pending map[string]ir.ClassSpec
	built   map[string]*object.Class
	fields  map[string]map[string]ir.FieldSpec
	state   map[string]visitState
}

func (b *builder) build(name string, path []string) (*object.Class, error) {
	if class, ok := b.f.lookup(name); ok {
		return class, nil
	}
	switch b.state[name] {
	case done:
		return b.built[name], nil
	case visiting:
		cycle := append(slices.Clone(path), name)
		return nil, &Error{Code: ErrCodeBaseCycle, Class: name, Message: fmt.Sprintf("base cycle: %v", cycle)}
	}

	spec, ok := b.pending[name]
	if !ok {
		from := ""
		if len(path) > 0 {
			from = path[len(path)-1]
		}
		return nil, &Error{Code: ErrCodeUnknownBase, Class: from, Message: fmt.Sprintf("unknown base class %q", name)}
	}

	b.state[name] = visiting
	baseName := spec.Base
	if baseName == "" {
		baseName = RootClassName
	}
	base, err := b.build(baseName, append(path, name))
	if err != nil {
		return nil, err
	}

	inherited := b.fieldsOf(baseName)
	own := make(map[string]ir.FieldSpec, len(inherited)+len(spec.Fields))
	maps.Copy(own, inherited)
	names := make([]string, 0, len(spec.Fields))
	for _, field := range spec.Fields {
		if base.HasField(field.Name) {
			return nil, &Error{Code: ErrCodeFieldConflict, Class: name, Field: field.Name, Message: "field redeclares an inherited field"}
		}
		if _, dup := own[field.Name]; dup {
			return nil, &Error{Code: ErrCodeFieldConflict, Class: name, Field: field.Name, Message: "field declared twice"}
		}
		if !ir.ValidKinds[field.Kind] {
			return nil, &Error{Code: ErrCodeKindMismatch, Class: name, Field: field.Name, Message: fmt.Sprintf("invalid kind %q", field.Kind)}
		}
		if field.Default != nil && !field.Kind.Accepts(field.Default) {
			return nil, &Error{Code: ErrCodeKindMismatch, Class: name, Field: field.Name, Message: "default does not match kind"}
		}
		own[field.Name] = field
		names = append(names, field.Name)
	}

	class := object.NewClass(name, base, names...)
	b.built[name] = class
	b.fields[name] = own
	b.state[name] = done
	return class, nil
}

func (b *builder) fieldsOf(name string) map[string]ir.FieldSpec {
	if fs, ok := b.f.fields[name]; ok {
		return fs
	}
	return b.fields[name]
}

func (f *Factory) lookup(name string) (*object.Class, bool) {
	if name == RootClassName {
		return object.ObjectClass, true
	}
	class, ok := f.classes[name]
	return class, ok
}

// Class returns the registered class with name. The root class is always
// present.
func (f *Factory) Class(name string) (*object.Class, bool) {
	return f.lookup(name)
}

// Spec returns the declaration of a registered class.
func (f *Factory) Spec(name string) (ir.ClassSpec, bool) {
	spec, ok := f.specs[name]
	return spec, ok
}

// Names returns the registered class names in sorted order.
func (f *Factory) Names() []string {
	return slices.Sorted(maps.Keys(f.specs))
}

// Fields returns every field of the class with name, inherited ones
// included, ordered root first.
func (f *Factory) Fields(name string) []ir.FieldSpec {
	class, ok := f.classes[name]
	if !ok {
		return nil
	}
	all := f.fields[name]
	var out []ir.FieldSpec
	for _, field := range class.Fields() {
		if spec, ok := all[field]; ok {
			out = append(out, spec)
		}
	}
	return out
}

// Create constructs an entity of typeName under parent. Declared defaults
// are applied first, then props. The entity joins parent's repository as
// part of construction, so it is observed with its initial values already
// in place.
func (f *Factory) Create(typeName string, parent object.Entity, props ir.Map) (*object.Dynamic, error) {
	class, initial, available, err := f.prepare(typeName, props)
	if err != nil {
		return nil, err
	}
	return f.construct(class, parent, initial, available), nil
}

// CreateMany constructs count entities of typeName under parent, all with
// the same props.
func (f *Factory) CreateMany(count int, typeName string, parent object.Entity, props ir.Map) ([]*object.Dynamic, error) {
	if count < 0 {
		return nil, &Error{Code: ErrCodeInvalidCount, Class: typeName, Message: fmt.Sprintf("count must not be negative, got %d", count)}
	}
	class, initial, available, err := f.prepare(typeName, props)
	if err != nil {
		return nil, err
	}
	out := make([]*object.Dynamic, count)
	for i := range out {
		out[i] = f.construct(class, parent, initial, available)
	}
	return out, nil
}

// Set assigns field on d after checking the value against the declared kind.
func (f *Factory) Set(d *object.Dynamic, field string, v ir.Value) error {
	name := d.Class().Name()
	if err := f.check(name, field, v); err != nil {
		return err
	}
	if !d.Set(field, v) {
		return &Error{Code: ErrCodeUnknownField, Class: name, Field: field, Message: "field is not settable"}
	}
	return nil
}

func (f *Factory) prepare(typeName string, props ir.Map) (*object.Class, ir.Map, bool, error) {
	class, ok := f.classes[typeName]
	if !ok {
		return nil, nil, false, &Error{Code: ErrCodeUnknownType, Class: typeName, Message: "class not registered"}
	}

	initial := ir.Map{}
	for _, field := range f.Fields(typeName) {
		if field.Default != nil {
			initial[field.Name] = ir.Clone(field.Default)
		}
	}

	available := true
	for _, key := range props.SortedKeys() {
		v := props[key]
		if err := f.check(typeName, key, v); err != nil {
			return nil, nil, false, err
		}
		if key == object.FieldAvailable {
			available = bool(v.(ir.Bool))
			continue
		}
		initial[key] = ir.Clone(v)
	}
	return class, initial, available, nil
}

func (f *Factory) check(typeName, field string, v ir.Value) error {
	if field == object.FieldAvailable {
		if _, ok := v.(ir.Bool); !ok {
			return &Error{Code: ErrCodeKindMismatch, Class: typeName, Field: field, Message: fmt.Sprintf("expected bool, got %s", ir.KindOf(v))}
		}
		return nil
	}
	spec, ok := f.fields[typeName][field]
	if !ok {
		return &Error{Code: ErrCodeUnknownField, Class: typeName, Field: field, Message: "class has no such field"}
	}
	if !spec.Kind.Accepts(v) {
		return &Error{Code: ErrCodeKindMismatch, Class: typeName, Field: field, Message: fmt.Sprintf("expected %s, got %s", spec.Kind, ir.KindOf(v))}
	}
	return nil
}

func (f *Factory) construct(class *object.Class, parent object.Entity, initial ir.Map, available bool) *object.Dynamic {
	opts := []object.Option{object.WithAvailable(available)}
	if f.gen != nil {
		opts = append(opts, object.WithID(ident.Unassign(f.gen.Next())))
	}
	return object.NewDynamic(class, parent, initial, opts...)
}
