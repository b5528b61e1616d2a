package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarCount(t *testing.T) {
	nested := NewTuple(PrimTypeI64, NewTuple(PrimTypeBool, NewTuple(), PrimTypeF64), &ClassType{Name: "C"})

	assert.Equal(t, 1, ScalarCount(PrimTypeI64))
	assert.Equal(t, 0, ScalarCount(Unit()))
	assert.Equal(t, 4, ScalarCount(nested))
}

func TestTupleEquality(t *testing.T) {
	a := NewTuple(PrimTypeI64, PrimTypeBool)
	b := NewTuple(PrimTypeI64, PrimTypeBool)
	c := &TupleType{Elems: []TupleElem{{Label: "x", Type: PrimTypeI64}, {Type: PrimTypeBool}}}

	assert.True(t, Equals(a, b))
	assert.False(t, Equals(a, c))
	assert.False(t, Equals(a, PrimTypeI64))
	assert.Equal(t, "(x: Int, Bool)", c.Repr())
}

func TestFuncTypeEquality(t *testing.T) {
	f := &FuncType{Params: []Type{PrimTypeI64}, Result: Unit()}
	g := &FuncType{Params: []Type{PrimTypeI64}, Result: Unit(), Throws: true}

	assert.True(t, Equals(f, &FuncType{Params: []Type{PrimTypeI64}, Result: Unit()}))
	assert.False(t, Equals(f, g))
	assert.False(t, Equals(f, f.WithThin(true)))
	assert.Equal(t, "(Int) throws -> ()", g.Repr())
}

func TestClassHierarchy(t *testing.T) {
	base := &ClassType{Name: "B"}
	derived := &ClassType{Name: "D", Super: base}

	assert.True(t, derived.IsSubclassOf(base))
	assert.False(t, base.IsSubclassOf(derived))
}

func TestAbstractionPattern(t *testing.T) {
	generic := &FuncType{Params: []Type{&ArchetypeType{Name: "T"}}, Result: NewTuple(PrimTypeI64, &ArchetypeType{Name: "U"})}
	ap := PatternOf(generic)

	assert.True(t, ap.FuncParam(0).IsOpaque())
	require.True(t, ap.FuncResult().IsTuple())
	assert.False(t, ap.FuncResult().TupleElement(0).IsOpaque())
	assert.True(t, ap.FuncResult().TupleElement(1).IsOpaque())
	assert.True(t, OpaquePattern().IsOpaque())
	assert.True(t, ContainsArchetype(generic))
}

func TestStorageType(t *testing.T) {
	assert.Equal(t, "i1", StorageType(PrimTypeBool).String())
	assert.Equal(t, "i64", StorageType(PrimTypeI64).String())
	assert.NotNil(t, StorageType(NewTuple(PrimTypeI64, &ClassType{Name: "C"})))

	assert.Nil(t, StorageType(&ArchetypeType{Name: "T"}))
	assert.Nil(t, StorageType(&ProtocolType{Name: "P"}))
	assert.Nil(t, StorageType(NewTuple(PrimTypeI64, &ArchetypeType{Name: "T"})))
	assert.Nil(t, StorageType(&StructType{Name: "S", Resilient: true}))
}
