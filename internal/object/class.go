package object

import (
	"slices"
	"strings"
	"sync"
)

const (
	// InterfacePrefix marks a class whose fields form a replication contract.
	InterfacePrefix = "I_"

	// generatedSuffix is appended by code generators to concrete type names.
	// Everything from the suffix on is dropped when deriving TypeName.
	generatedSuffix = "_QMLTYPE"

	// privateMarker prefixes fields that are never observed for replication.
	privateMarker = "_"
)

// Field names declared on the base classes.
const (
	FieldAvailable  = "available"
	FieldID         = "_id"
	FieldRepository = "_repository"
	FieldName       = "name"
	FieldRootObject = "rootObject"
	FieldLoading    = "_loading"
)

// ObjectClass is the root of every class chain.
var ObjectClass = NewClass("Object", nil, FieldAvailable, FieldID, FieldRepository)

// RepositoryClass describes Repository.
var RepositoryClass = NewClass("Repository", ObjectClass, FieldName, FieldRootObject, FieldLoading)

// Class is the static description of an entity type: its name, its base
// class, and the fields whose mutations it reports through FieldChanged.
//
// A Class is immutable after NewClass and safe to share between goroutines.
// Derived information (type name, interface, observed fields) is computed
// once on first use.
type Class struct {
	name   string
	base   *Class
	fields []string

	once      sync.Once
	typeName  string
	iface     *Class
	ifaceName string
	observed  map[string]bool
}

// NewClass declares a class. base may be nil only for a root class;
// every class meant to be registered should descend from ObjectClass.
func NewClass(name string, base *Class, fields ...string) *Class {
	return &Class{
		name:   name,
		base:   base,
		fields: slices.Clone(fields),
	}
}

// Name returns the declared class name, suffix included.
func (c *Class) Name() string { return c.name }

// Base returns the parent class, or nil for a root class.
func (c *Class) Base() *Class { return c.base }

// DeclaredFields returns the fields declared on c itself, excluding ancestors.
func (c *Class) DeclaredFields() []string { return slices.Clone(c.fields) }

// Fields returns every field of c and its ancestors, root class first.
func (c *Class) Fields() []string {
	var chain []*Class
	for k := c; k != nil; k = k.base {
		chain = append(chain, k)
	}
	var out []string
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].fields...)
	}
	return out
}

// HasField reports whether c or one of its ancestors declares name.
func (c *Class) HasField(name string) bool {
	for k := c; k != nil; k = k.base {
		if slices.Contains(k.fields, name) {
			return true
		}
	}
	return false
}

// IsA reports whether c is other or descends from it.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.base {
		if k == other {
			return true
		}
	}
	return false
}

// TypeName returns the class name with any generated suffix stripped.
func (c *Class) TypeName() string {
	c.derive()
	return c.typeName
}

// InterfaceType returns the stripped name of the most specific class in the
// chain (c included) whose name starts with InterfacePrefix, or "".
func (c *Class) InterfaceType() string {
	c.derive()
	return c.ifaceName
}

// Interface returns the interface class, or nil.
func (c *Class) Interface() *Class {
	c.derive()
	return c.iface
}

// Observes reports whether a change to field should be folded into a
// repository's updated log. Observation is scoped to the interface class and
// its ancestors when an interface exists, otherwise to the whole chain.
// Private fields are never observed.
func (c *Class) Observes(field string) bool {
	c.derive()
	return c.observed[field]
}

// ObservedFields returns the observed field names, root class first.
func (c *Class) ObservedFields() []string {
	scope := c
	if iface := c.Interface(); iface != nil {
		scope = iface
	}
	var out []string
	for _, f := range scope.Fields() {
		if c.observed[f] {
			out = append(out, f)
		}
	}
	return out
}

func (c *Class) derive() {
	c.once.Do(func() {
		c.typeName = stripGenerated(c.name)
		for k := c; k != nil; k = k.base {
			if strings.HasPrefix(k.name, InterfacePrefix) {
				c.iface = k
				c.ifaceName = stripGenerated(k.name)
				break
			}
		}

		scope := c
		if c.iface != nil {
			scope = c.iface
		}
		c.observed = make(map[string]bool)
		for _, f := range scope.Fields() {
			if !strings.HasPrefix(f, privateMarker) {
				c.observed[f] = true
			}
		}
	})
}

func stripGenerated(name string) string {
	if i := strings.Index(name, generatedSuffix); i >= 0 {
		return name[:i]
	}
	return name
}

// interfaceFieldCache maps interface type names to their full field lists.
var interfaceFieldCache sync.Map // string -> []string

// interfaceFields returns every field of the interface class and its
// ancestors, private fields included. The result is cached per interface
// type name for the life of the process.
func interfaceFields(c *Class) []string {
	iface := c.Interface()
	if iface == nil {
		return nil
	}
	name := c.InterfaceType()
	if cached, ok := interfaceFieldCache.Load(name); ok {
		return slices.Clone(cached.([]string))
	}
	fields := iface.Fields()
	actual, _ := interfaceFieldCache.LoadOrStore(name, fields)
	return slices.Clone(actual.([]string))
}
