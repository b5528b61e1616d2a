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

// newGlobal declares `var name: Int = 1`.
func newGlobal(name string, access ast.AccessLevel) *ast.GlobalVarDecl {
	return &ast.GlobalVarDecl{
		Var:  &ast.VarDecl{Name: name, Type: types.PrimTypeI64, Mutable: true, Global: true, Access: access},
		Init: intLit(1),
	}
}

func lookupAccessor(m *pil.Module, vd *ast.VarDecl) *pil.Function {
	return m.LookupFunction(NewMangler(testModuleName).MangleDeclRef(pil.GlobalAccessorRef(vd)))
}

func lookupInitializer(m *pil.Module, vd *ast.VarDecl) *pil.Function {
	return m.LookupFunction(NewMangler(testModuleName).MangleDeclRef(pil.GlobalInitRef(vd)))
}

func TestUnusedInternalGlobalHasOnlyStorage(t *testing.T) {
	gd := newGlobal("g", ast.AccessInternal)
	m := emitTestModule(t, newTestModule(gd), nil)

	assert.NotNil(t, m.LookupGlobal(NewMangler(testModuleName).MangleGlobal(gd.Var)))
	assert.Nil(t, lookupAccessor(m, gd.Var))
	assert.Nil(t, lookupInitializer(m, gd.Var))
}

func TestPublicGlobalAccessorRunsInitializerOnce(t *testing.T) {
	gd := newGlobal("g", ast.AccessPublic)
	m := emitTestModule(t, newTestModule(gd), nil)

	accessor := lookupAccessor(m, gd.Var)
	require.NotNil(t, accessor)
	assert.Equal(t, pil.LinkagePublic, accessor.Linkage)
	assert.NoError(t, pil.Verify(accessor))
	assert.Equal(t, []pil.Opcode{
		pil.OpFunctionRef,
		pil.OpBuiltin,
		pil.OpGlobalAddr,
		pil.OpAddressToPointer,
		pil.OpReturn,
	}, opcodes(accessor, accessor.EntryBlock()))

	// the initializer is referenced by the accessor
	init := lookupInitializer(m, gd.Var)
	require.NotNil(t, init)
	assert.True(t, init.IsDefinition())
	assert.Equal(t, pil.LinkagePrivate, init.Linkage)
	assert.Equal(t, 1, countOp(init, pil.OpStore))
	assert.NoError(t, pil.Verify(init))
}

func TestGlobalIsReadThroughAccessor(t *testing.T) {
	gd := newGlobal("g", ast.AccessInternal)
	reader := &ast.FuncDecl{
		Name:       "read",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body:       block(ret(declRef(gd.Var, types.PrimTypeI64))),
	}

	m := emitTestModule(t, newTestModule(gd, reader), nil)

	f := mustLookupFunc(t, m, reader)
	assert.Equal(t, 1, countOp(f, pil.OpApply))
	assert.Equal(t, 1, countOp(f, pil.OpPointerToAddress))
	assert.Equal(t, 1, countOp(f, pil.OpLoad))
	assert.Zero(t, countOp(f, pil.OpGlobalAddr))

	// the delayed accessor and initializer are forced by the use
	accessor := lookupAccessor(m, gd.Var)
	require.NotNil(t, accessor)
	assert.True(t, accessor.IsDefinition())
	assert.Equal(t, pil.LinkageHidden, accessor.Linkage)
	assert.NotNil(t, lookupInitializer(m, gd.Var))
}

func TestScriptMainInitializesGlobalsFirst(t *testing.T) {
	gd := newGlobal("g", ast.AccessInternal)

	printer := returnsOne("printer", ast.AccessPublic)
	printer.Captures = []*ast.VarDecl{gd.Var}

	astMod := newTestModule(gd, printer)
	astMod.Files[0].TopLevel = []ast.Stmt{&ast.ExprStmt{Expr: call(printer)}}

	opts := common.DefaultOptions()
	opts.ScriptMode = true

	m := emitTestModule(t, astMod, opts)

	main := m.LookupFunction("main")
	require.NotNil(t, main)
	assert.Equal(t, pil.LinkagePublic, main.Linkage)
	assert.NoError(t, pil.Verify(main))

	// script globals are addressed directly
	assert.Nil(t, lookupAccessor(m, gd.Var))
	assert.Nil(t, lookupInitializer(m, gd.Var))

	ops := opcodes(main, main.EntryBlock())
	store, escape, apply := -1, -1, -1
	for i, op := range ops {
		switch op {
		case pil.OpStore:
			store = i
		case pil.OpMarkFunctionEscape:
			escape = i
		case pil.OpApply:
			apply = i
		}
	}

	require.NotEqual(t, -1, store)
	require.NotEqual(t, -1, escape)
	assert.Less(t, store, escape)
	assert.Less(t, escape, apply)

	// the exit code is zero
	term := main.Terminator(main.EntryBlock())
	require.Equal(t, pil.OpReturn, term.Op)
	lit := main.DefiningInst(term.Operands[0])
	require.NotNil(t, lit)
	assert.Equal(t, pil.OpIntegerLiteral, lit.Op)
}
