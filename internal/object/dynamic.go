package object

import (
	"github.com/roach88/qstream/internal/ir"
)

// Dynamic is an entity whose fields are held as ir values, for classes
// declared at runtime rather than as Go types.
type Dynamic struct {
	Object
	values ir.Map
}

// NewDynamic creates a Dynamic of the given class under parent.
// Fields start from initial; missing fields are unset.
func NewDynamic(class *Class, parent Entity, initial ir.Map, opts ...Option) *Dynamic {
	d := &Dynamic{values: initial.Clone()}
	if d.values == nil {
		d.values = ir.Map{}
	}
	d.Init(d, class, parent, opts...)
	return d
}

// Get returns the value of field. Unset fields report ir.Null{}.
// ok is false if the class does not declare field.
func (d *Dynamic) Get(field string) (v ir.Value, ok bool) {
	if field == FieldAvailable {
		return ir.Bool(d.available), true
	}
	if ObjectClass.HasField(field) || !d.class.HasField(field) {
		return nil, false
	}
	if v, set := d.values[field]; set {
		return v, true
	}
	return ir.Null{}, true
}

// Set assigns field and reports the change when the value differs.
// Returns false if the class does not declare field, or if field is one
// of the identity fields managed by Object.
func (d *Dynamic) Set(field string, v ir.Value) bool {
	if field == FieldAvailable {
		b, ok := v.(ir.Bool)
		if ok {
			d.SetAvailable(bool(b))
		}
		return ok
	}
	if ObjectClass.HasField(field) || !d.class.HasField(field) {
		return false
	}
	if v == nil {
		v = ir.Null{}
	}
	if ir.Equal(d.values[field], v) {
		return true
	}
	d.values[field] = ir.Clone(v)
	d.NotifyChanged(field)
	return true
}

// Values returns a copy of the set field values, excluding availability.
func (d *Dynamic) Values() ir.Map {
	return d.values.Clone()
}
