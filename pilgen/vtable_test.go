package pilgen

import (
	"testing"

	"pilc/ast"
	"pilc/common"
	"pilc/pil"
	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClass declares a class in the test module inheriting from super.
func newClass(name string, super *ast.ClassDecl) *ast.ClassDecl {
	cd := &ast.ClassDecl{
		Name:       name,
		Type:       &types.ClassType{Name: name},
		Super:      super,
		Access:     ast.AccessPublic,
		ModuleName: testModuleName,
	}

	if super != nil {
		cd.Type.Super = super.Type
	}

	return cd
}

// addMethod adds `func name(params) -> Int { return 1 }` to a class.
func addMethod(cd *ast.ClassDecl, name string, overridden *ast.FuncDecl, params ...*ast.ParamDecl) *ast.FuncDecl {
	method := &ast.FuncDecl{
		Name:       name,
		Params:     params,
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Parent:     cd,
		Overridden: overridden,
		Body:       block(ret(intLit(1))),
	}

	cd.Methods = append(cd.Methods, method)
	return method
}

func mustVTable(t *testing.T, m *pil.Module, cd *ast.ClassDecl) *pil.VTable {
	t.Helper()

	vt := m.LookupVTable(cd.Name)
	require.NotNil(t, vt, "no vtable for %s", cd.Name)
	return vt
}

func TestOverrideWithSameConventionUsesMethodDirectly(t *testing.T) {
	base := newClass("Base", nil)
	baseM := addMethod(base, "m", nil)

	derived := newClass("Derived", base)
	derivedM := addMethod(derived, "m", baseM)

	m := emitTestModule(t, newTestModule(base, derived), nil)

	baseVT := mustVTable(t, m, base)
	require.Len(t, baseVT.Entries, 1)
	assert.Equal(t, pil.VTableNormal, baseVT.Entries[0].Kind)
	assert.Same(t, mustLookupFunc(t, m, baseM), baseVT.Entries[0].Impl)

	vt := mustVTable(t, m, derived)
	entry, ok := vt.EntryFor(pil.FuncRef(baseM))
	require.True(t, ok)

	assert.Equal(t, pil.VTableOverride, entry.Kind)
	assert.Same(t, mustLookupFunc(t, m, derivedM), entry.Impl)
	assert.Equal(t, pil.NotThunk, entry.Impl.Thunk)
}

func TestOverrideOfAbstractParameterNeedsThunk(t *testing.T) {
	elem := &types.ArchetypeType{Name: "T"}

	base := newClass("Box", nil)
	baseM := addMethod(base, "get", nil, &ast.ParamDecl{Name: "x", Type: elem})

	derived := newClass("IntBox", base)
	derivedM := addMethod(derived, "get", baseM, &ast.ParamDecl{Name: "x", Type: types.PrimTypeI64})

	sgm := NewPILGenModule(newTestModule(base, derived), common.DefaultOptions())
	sgm.emitDecl(base)
	sgm.emitDecl(derived)

	vt := sgm.M.LookupVTable(derived.Name)
	require.NotNil(t, vt)

	entry, ok := vt.EntryFor(pil.FuncRef(baseM))
	require.True(t, ok)

	thunk := entry.Impl
	assert.Equal(t, pil.ThunkVTable, thunk.Thunk)
	assert.Equal(t, pil.LinkageShared, thunk.Linkage)
	assert.True(t, thunk.IsDefinition())
	assert.NoError(t, pil.Verify(thunk))

	// the thunk takes the element indirectly and passes it directly
	require.NotEmpty(t, thunk.Sig.Params)
	assert.Equal(t, pil.ParamIndirectInGuaranteed, thunk.Sig.Params[0].Conv)
	assert.Equal(t, pil.ParamDirectUnowned, sgm.SignatureOf(pil.FuncRef(derivedM)).Params[0].Conv)
	assert.Equal(t, 1, countOp(thunk, pil.OpApply))

	// a single thunk exists per override
	assert.Same(t, thunk, sgm.getVTableThunk(baseM, derivedM))
	assert.Same(t, vt, sgm.emitVTable(derived))
}

func TestLessVisibleOverrideNeedsThunk(t *testing.T) {
	base := newClass("Base", nil)
	baseM := addMethod(base, "m", nil)

	derived := newClass("Derived", base)
	derivedM := addMethod(derived, "m", baseM)
	derivedM.Access = ast.AccessInternal

	m := emitTestModule(t, newTestModule(base, derived), nil)

	entry, ok := mustVTable(t, m, derived).EntryFor(pil.FuncRef(baseM))
	require.True(t, ok)

	assert.Equal(t, pil.ThunkVTable, entry.Impl.Thunk)
	assert.NotSame(t, mustLookupFunc(t, m, derivedM), entry.Impl)
	assert.Equal(t, pil.LinkageHidden, mustLookupFunc(t, m, derivedM).Linkage)
}

func TestInheritedEntriesComeFirst(t *testing.T) {
	root := newClass("Root", nil)
	rootM := addMethod(root, "m", nil)
	rootN := addMethod(root, "n", nil)

	mid := newClass("Mid", root)
	midM := addMethod(mid, "m", rootM)

	leaf := newClass("Leaf", mid)
	leafK := addMethod(leaf, "k", nil)

	final := addMethod(leaf, "f", nil)
	final.Final = true

	m := emitTestModule(t, newTestModule(root, mid, leaf), nil)

	vt := mustVTable(t, m, leaf)
	require.Len(t, vt.Entries, 3)

	assert.Equal(t, pil.FuncRef(rootM), vt.Entries[0].Method)
	assert.Equal(t, pil.VTableInherited, vt.Entries[0].Kind)
	assert.Same(t, mustLookupFunc(t, m, midM), vt.Entries[0].Impl)

	assert.Equal(t, pil.FuncRef(rootN), vt.Entries[1].Method)
	assert.Equal(t, pil.VTableInherited, vt.Entries[1].Kind)

	assert.Equal(t, pil.FuncRef(leafK), vt.Entries[2].Method)
	assert.Equal(t, pil.VTableNormal, vt.Entries[2].Kind)

	_, ok := vt.EntryFor(pil.FuncRef(final))
	assert.False(t, ok)
}

func TestResilientInheritedEntryIsOmitted(t *testing.T) {
	// the superclass is defined in another module: only its declaration is
	// visible here
	base := newClass("Base", nil)
	base.ModuleName = "other"
	base.Resilient = true

	baseM := addMethod(base, "m", nil)
	baseM.Body = nil

	derived := newClass("Derived", base)
	derivedN := addMethod(derived, "n", nil)

	m := emitTestModule(t, newTestModule(derived), nil)

	vt := mustVTable(t, m, derived)
	require.Len(t, vt.Entries, 1)
	assert.Equal(t, pil.FuncRef(derivedN), vt.Entries[0].Method)
	assert.Nil(t, m.LookupVTable(base.Name))
}

func TestOverrideWithoutSlotIsInternalError(t *testing.T) {
	unrelated := &ast.FuncDecl{Name: "m", ResultType: types.PrimTypeI64}

	base := newClass("Base", nil)
	derived := newClass("Derived", base)
	addMethod(derived, "m", unrelated)

	_, err := EmitModule(newTestModule(base, derived), nil)
	assert.Error(t, err)
}
