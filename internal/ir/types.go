package ir

// Kind names the declared type of a field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"
	// KindAny accepts every Value.
	KindAny Kind = "any"
)

// ValidKinds defines the allowed field kinds.
// NO "float" - floats are forbidden.
var ValidKinds = map[Kind]bool{
	KindString: true,
	KindInt:    true,
	KindBool:   true,
	KindList:   true,
	KindMap:    true,
	KindAny:    true,
}

// KindOf returns the kind of v. Null and nil report KindAny.
func KindOf(v Value) Kind {
	switch v.(type) {
	case String:
		return KindString
	case Int:
		return KindInt
	case Bool:
		return KindBool
	case List:
		return KindList
	case Map:
		return KindMap
	default:
		return KindAny
	}
}

// Accepts reports whether v may be stored in a field of kind k.
// Null is accepted by every kind.
func (k Kind) Accepts(v Value) bool {
	if k == KindAny {
		return true
	}
	if _, ok := v.(Null); ok || v == nil {
		return true
	}
	return KindOf(v) == k
}

// Zero returns the value a field of kind k holds before it is set.
func (k Kind) Zero() Value {
	switch k {
	case KindString:
		return String("")
	case KindInt:
		return Int(0)
	case KindBool:
		return Bool(false)
	case KindList:
		return List{}
	case KindMap:
		return Map{}
	default:
		return Null{}
	}
}

// FieldSpec declares one field of a class.
type FieldSpec struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Default Value  `json:"default,omitempty"`
}

// ClassSpec is a compiled class declaration.
type ClassSpec struct {
	Name   string      `json:"name"`
	Base   string      `json:"base,omitempty"`
	Fields []FieldSpec `json:"fields"`
	// Source is the file:line the class was declared at, when known.
	Source string `json:"source,omitempty"`
}

// Field returns the declared field with the given name.
func (c ClassSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
