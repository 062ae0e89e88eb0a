// Package compiler turns CUE class declarations into ir.ClassSpec values.
//
// A class is declared under the top-level "class" struct:
//
//	class: I_Note: {
//		fields: {
//			title: string | *"untitled"
//			tags:  [...string]
//			_rev:  int
//		}
//	}
//
//	class: Note: {
//		base: "I_Note"
//		fields: draft: bool | *true
//	}
//
// Field types map to ir kinds: string, int, bool, list, struct (map), and
// top (_) for any. Floats are forbidden. A concrete value or a marked
// default becomes the field default.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qstream/internal/ir"
)

// CompileClass parses a CUE value into a ClassSpec.
// The value must be the class struct itself, e.g. the value at path
// "class.Note".
func CompileClass(v cue.Value) (*ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ClassSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}
	if spec.Name == "" {
		return nil, &CompileError{Field: "class", Message: "class name is required", Pos: v.Pos()}
	}
	if pos := v.Pos(); pos.IsValid() {
		spec.Source = fmt.Sprintf("%s:%d", pos.Filename(), pos.Line())
	}

	baseVal := v.LookupPath(cue.ParsePath("base"))
	if baseVal.Exists() {
		base, err := baseVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("class.%s.base", spec.Name),
				Message: "base must be a class name string",
				Pos:     baseVal.Pos(),
			}
		}
		if base == spec.Name {
			return nil, &CompileError{
				Field:   fmt.Sprintf("class.%s.base", spec.Name),
				Message: "class cannot extend itself",
				Pos:     baseVal.Pos(),
			}
		}
		spec.Base = base
	}

	fields, err := parseFields(spec.Name, v)
	if err != nil {
		return nil, err
	}
	spec.Fields = fields

	return spec, nil
}

// parseFields extracts field declarations in declaration order.
func parseFields(class string, v cue.Value) ([]ir.FieldSpec, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil // a class may only refine its base
	}

	iter, err := fieldsVal.Fields(cue.Hidden(true), cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []ir.FieldSpec
	seen := make(map[string]bool)
	for iter.Next() {
		name := iter.Selector().String()
		if sel := iter.Selector(); sel.IsString() {
			name = sel.Unquoted()
		}
		fieldVal := iter.Value()
		path := fmt.Sprintf("class.%s.fields.%s", class, name)

		if seen[name] {
			return nil, &CompileError{Field: path, Message: "duplicate field", Pos: fieldVal.Pos()}
		}
		seen[name] = true

		kind, err := extractKind(path, fieldVal)
		if err != nil {
			return nil, err
		}
		def, err := extractDefault(path, fieldVal)
		if err != nil {
			return nil, err
		}
		if def != nil && !kind.Accepts(def) {
			return nil, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("default %s does not match kind %s", ir.KindOf(def), kind),
				Pos:     fieldVal.Pos(),
			}
		}

		fields = append(fields, ir.FieldSpec{Name: name, Kind: kind, Default: def})
	}

	return fields, nil
}

// extractKind converts a CUE type to an ir kind.
func extractKind(path string, v cue.Value) (ir.Kind, error) {
	switch k := v.IncompleteKind(); k {
	case cue.StringKind:
		return ir.KindString, nil
	case cue.IntKind:
		return ir.KindInt, nil
	case cue.BoolKind:
		return ir.KindBool, nil
	case cue.ListKind:
		return ir.KindList, nil
	case cue.StructKind:
		return ir.KindMap, nil
	case cue.TopKind:
		return ir.KindAny, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   path,
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported type kind: %v", k),
			Pos:     v.Pos(),
		}
	}
}

// extractDefault returns the default of a field, or nil if it has none.
// Lists and structs only carry a default when one is marked with * in the
// source. CUE reports an implicit [] default for open lists.
func extractDefault(path string, v cue.Value) (ir.Value, error) {
	d, marked := v.Default()
	switch v.IncompleteKind() {
	case cue.ListKind, cue.StructKind, cue.TopKind:
		if !marked || !hasMarkedDefault(v.Source()) {
			return nil, nil
		}
	default:
		if !marked {
			d = v
		}
	}
	if !d.IsConcrete() {
		return nil, nil
	}
	return toValue(path, d)
}

// hasMarkedDefault reports whether a field expression has a *-marked
// disjunct.
func hasMarkedDefault(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.UnaryExpr:
		return x.Op == token.MUL
	case *ast.BinaryExpr:
		return x.Op == token.OR && (hasMarkedDefault(x.X) || hasMarkedDefault(x.Y))
	case *ast.ParenExpr:
		return hasMarkedDefault(x.X)
	}
	return false
}

// toValue converts a concrete CUE value to an ir value.
func toValue(path string, v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(i), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.List{}
		for iter.Next() {
			elem, err := toValue(path, iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.Map{}
		for iter.Next() {
			elem, err := toValue(path, iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Selector().Unquoted()] = elem
		}
		return out, nil
	case cue.FloatKind:
		return nil, &CompileError{
			Field:   path,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Report the first error that carries a position.
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
