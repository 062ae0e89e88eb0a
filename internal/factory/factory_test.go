package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qstream/internal/compiler"
	"github.com/roach88/qstream/internal/ident"
	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/object"
)

var noteSpecs = []ir.ClassSpec{
	{Name: "Note_QMLTYPE_4", Base: "I_Note", Fields: []ir.FieldSpec{
		{Name: "draft", Kind: ir.KindBool, Default: ir.Bool(true)},
	}},
	{Name: "I_Note", Fields: []ir.FieldSpec{
		{Name: "title", Kind: ir.KindString, Default: ir.String("untitled")},
		{Name: "tags", Kind: ir.KindList},
		{Name: "_rev", Kind: ir.KindInt},
	}},
}

func newNoteFactory(t *testing.T) *Factory {
	t.Helper()
	f := New()
	require.NoError(t, f.Register(noteSpecs...))
	return f
}

func TestFactory_RegisterResolvesBasesInAnyOrder(t *testing.T) {
	f := newNoteFactory(t)

	note, ok := f.Class("Note_QMLTYPE_4")
	require.True(t, ok)
	assert.Equal(t, "Note", note.TypeName())
	assert.Equal(t, "I_Note", note.InterfaceType())
	assert.True(t, note.IsA(object.ObjectClass))
	assert.Equal(t, []string{"available", "title", "tags"}, note.ObservedFields())

	assert.Equal(t, []string{"I_Note", "Note_QMLTYPE_4"}, f.Names())
	root, ok := f.Class(RootClassName)
	require.True(t, ok)
	assert.Same(t, object.ObjectClass, root)
}

func TestFactory_Fields(t *testing.T) {
	f := newNoteFactory(t)

	names := []string{}
	for _, field := range f.Fields("Note_QMLTYPE_4") {
		names = append(names, field.Name)
	}

	assert.Equal(t, []string{"title", "tags", "_rev", "draft"}, names)
	assert.Nil(t, f.Fields("missing"))
}

func TestFactory_RegisterAgainstExistingClasses(t *testing.T) {
	f := newNoteFactory(t)

	err := f.Register(ir.ClassSpec{Name: "Memo", Base: "Note_QMLTYPE_4"})
	require.NoError(t, err)

	memo, _ := f.Class("Memo")
	assert.Equal(t, "I_Note", memo.InterfaceType())
	assert.Len(t, f.Fields("Memo"), 4)
}

func TestFactory_RegisterErrors(t *testing.T) {
	tests := []struct {
		name  string
		specs []ir.ClassSpec
		code  ErrorCode
	}{
		{"unknown base", []ir.ClassSpec{{Name: "A", Base: "Missing"}}, ErrCodeUnknownBase},
		{"cycle", []ir.ClassSpec{{Name: "A", Base: "B"}, {Name: "B", Base: "C"}, {Name: "C", Base: "A"}}, ErrCodeBaseCycle},
		{"self cycle", []ir.ClassSpec{{Name: "A", Base: "A"}}, ErrCodeBaseCycle},
		{"duplicate in batch", []ir.ClassSpec{{Name: "A"}, {Name: "A"}}, ErrCodeDuplicateClass},
		{"root name", []ir.ClassSpec{{Name: RootClassName}}, ErrCodeDuplicateClass},
		{"empty name", []ir.ClassSpec{{}}, ErrCodeInvalidClass},
		{"redeclares object field", []ir.ClassSpec{{Name: "A", Fields: []ir.FieldSpec{{Name: "available", Kind: ir.KindBool}}}}, ErrCodeFieldConflict},
		{"redeclares base field", []ir.ClassSpec{
			{Name: "A", Fields: []ir.FieldSpec{{Name: "x", Kind: ir.KindInt}}},
			{Name: "B", Base: "A", Fields: []ir.FieldSpec{{Name: "x", Kind: ir.KindInt}}},
		}, ErrCodeFieldConflict},
		{"bad kind", []ir.ClassSpec{{Name: "A", Fields: []ir.FieldSpec{{Name: "x", Kind: "float"}}}}, ErrCodeKindMismatch},
		{"bad default", []ir.ClassSpec{{Name: "A", Fields: []ir.FieldSpec{{Name: "x", Kind: ir.KindInt, Default: ir.String("1")}}}}, ErrCodeKindMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			err := f.Register(tt.specs...)

			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, f.Names(), "nothing registered on failure")
		})
	}
}

func TestFactory_RegisterDuplicateOfExisting(t *testing.T) {
	f := newNoteFactory(t)

	err := f.Register(ir.ClassSpec{Name: "I_Note"})

	assert.True(t, HasCode(err, ErrCodeDuplicateClass))
}

func TestFactory_CreateAppliesDefaultsThenProps(t *testing.T) {
	f := newNoteFactory(t)

	d, err := f.Create("Note_QMLTYPE_4", nil, ir.Map{"title": ir.String("hello")})
	require.NoError(t, err)

	assert.Equal(t, ir.Map{"title": ir.String("hello"), "draft": ir.Bool(true)}, d.Values())
	assert.Equal(t, "Note", d.TypeName())
	assert.Nil(t, d.Repository())
	assert.False(t, ident.IsScoped(d.ID()))
}

func TestFactory_CreateUnderRepository(t *testing.T) {
	f := newNoteFactory(t)
	repo := object.NewRepository(nil, object.WithID(ident.WithPrefix(ident.NewUnassigned(), [16]byte{1, 2, 3, 4, 5, 6})))

	d, err := f.Create("Note_QMLTYPE_4", repo, ir.Map{"available": ir.Bool(false)})
	require.NoError(t, err)

	assert.Same(t, repo, d.Repository())
	assert.True(t, repo.Contains(d.Key()))
	assert.False(t, d.Available())
	assert.Empty(t, repo.UpdatedObjects(), "initial values are not updates")
	assert.Equal(t, []object.Entity{object.Entity(d)}, repo.AddedObjects())
}

func TestFactory_CreateErrors(t *testing.T) {
	f := newNoteFactory(t)

	_, err := f.Create("Missing", nil, nil)
	assert.True(t, IsUnknownType(err))

	_, err = f.Create("Note_QMLTYPE_4", nil, ir.Map{"title": ir.Int(1)})
	assert.True(t, IsKindMismatch(err))

	_, err = f.Create("Note_QMLTYPE_4", nil, ir.Map{"nope": ir.Int(1)})
	assert.True(t, HasCode(err, ErrCodeUnknownField))

	_, err = f.Create("Note_QMLTYPE_4", nil, ir.Map{"_id": ir.String("x")})
	assert.True(t, HasCode(err, ErrCodeUnknownField), "identity fields cannot be set")

	_, err = f.Create("Note_QMLTYPE_4", nil, ir.Map{"available": ir.Int(0)})
	assert.True(t, IsKindMismatch(err))
}

func TestFactory_CreateMany(t *testing.T) {
	f := newNoteFactory(t)
	repo := object.NewRepository(nil)

	ds, err := f.CreateMany(3, "I_Note", repo, ir.Map{"tags": ir.List{ir.String("x")}})
	require.NoError(t, err)

	require.Len(t, ds, 3)
	assert.Equal(t, 3, repo.Len())
	ds[0].Set("tags", ir.List{})
	v, _ := ds[1].Get("tags")
	assert.Equal(t, ir.List{ir.String("x")}, v, "props are not shared between entities")

	none, err := f.CreateMany(0, "I_Note", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.CreateMany(-1, "I_Note", nil, nil)
	assert.True(t, HasCode(err, ErrCodeInvalidCount))
}

func TestFactory_CreateWithGenerator(t *testing.T) {
	f := New(WithGenerator(ident.NewSequenceGenerator()))
	require.NoError(t, f.Register(noteSpecs...))

	a, err := f.Create("I_Note", nil, nil)
	require.NoError(t, err)
	b, err := f.Create("I_Note", nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, ident.IsScoped(a.ID()))
}

func TestFactory_Set(t *testing.T) {
	f := newNoteFactory(t)
	d, err := f.Create("Note_QMLTYPE_4", nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.Set(d, "title", ir.String("new")))
	assert.True(t, IsKindMismatch(f.Set(d, "draft", ir.String("yes"))))
	assert.True(t, HasCode(f.Set(d, "ghost", ir.Null{}), ErrCodeUnknownField))
	require.NoError(t, f.Set(d, "available", ir.Bool(false)))

	v, _ := d.Get("title")
	assert.Equal(t, ir.String("new"), v)
	assert.False(t, d.Available())
}

func TestFactory_FromCompiledCUE(t *testing.T) {
	specs, err := compiler.CompileSource("notes.cue", `
		class: I_Task: fields: {
			title: string | *"todo"
			done:  bool | *false
		}
		class: Task: base: "I_Task"
	`)
	require.NoError(t, err)
	f := New()
	require.NoError(t, f.Register(specs...))

	d, err := f.Create("Task", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, ir.Map{"title": ir.String("todo"), "done": ir.Bool(false)}, d.Values())
	assert.Equal(t, "I_Task", d.InterfaceType())
}

func TestError_Format(t *testing.T) {
	assert.Equal(t, "UNKNOWN_TYPE: x", (&Error{Code: ErrCodeUnknownType, Message: "x"}).Error())
	assert.Equal(t, "UNKNOWN_TYPE: x (class=A)", (&Error{Code: ErrCodeUnknownType, Class: "A", Message: "x"}).Error())
	assert.Equal(t, "KIND_MISMATCH: x (class=A, field=f)", (&Error{Code: ErrCodeKindMismatch, Class: "A", Field: "f", Message: "x"}).Error())
}
