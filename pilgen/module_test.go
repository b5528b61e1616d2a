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

func functionNames(m *pil.Module) []string {
	var names []string
	for _, f := range m.Functions() {
		names = append(names, f.Name)
	}

	return names
}

func TestFunctionIsCreatedOnce(t *testing.T) {
	fd := returnsOne("once", ast.AccessPublic)
	sgm := NewPILGenModule(newTestModule(fd), common.DefaultOptions())

	decl := sgm.GetFunction(pil.FuncRef(fd), false)
	assert.Same(t, decl, sgm.GetFunction(pil.FuncRef(fd), false))
	assert.Equal(t, pil.LinkagePublicExternal, decl.Linkage)
	assert.False(t, decl.IsDefinition())

	sgm.emitFuncDecl(fd)
	assert.True(t, decl.IsDefinition())
	assert.Equal(t, pil.LinkagePublic, decl.Linkage)

	assert.Panics(t, func() {
		sgm.emitFuncDecl(fd)
	})
}

func TestUnreferencedImplicitFunctionIsPruned(t *testing.T) {
	implicit := returnsOne("synthesized", ast.AccessInternal)
	implicit.Implicit = true

	explicit := returnsOne("written", ast.AccessInternal)

	m := emitTestModule(t, newTestModule(implicit, explicit), nil)

	assert.Nil(t, lookupFunc(m, implicit))
	assert.NotNil(t, lookupFunc(m, explicit))
}

func TestPublicImplicitFunctionIsNotDelayed(t *testing.T) {
	implicit := returnsOne("synthesized", ast.AccessPublic)
	implicit.Implicit = true

	m := emitTestModule(t, newTestModule(implicit), nil)

	f := mustLookupFunc(t, m, implicit)
	assert.True(t, f.IsDefinition())
	assert.Equal(t, pil.LinkagePublic, f.Linkage)
}

func TestForcedFunctionKeepsDeclarationOrder(t *testing.T) {
	a := returnsOne("a", ast.AccessPublic)

	b := returnsOne("b", ast.AccessInternal)
	b.Implicit = true

	c := &ast.FuncDecl{
		Name:       "c",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body:       block(ret(call(b))),
	}

	m := emitTestModule(t, newTestModule(a, b, c), nil)

	fa, fb, fc := mustLookupFunc(t, m, a), mustLookupFunc(t, m, b), mustLookupFunc(t, m, c)
	assert.Equal(t, []string{fa.Name, fb.Name, fc.Name}, functionNames(m))

	assert.True(t, fb.IsDefinition())
	assert.Equal(t, pil.LinkageShared, fb.Linkage)
	assert.Equal(t, 1, countOp(fc, pil.OpApply))
}

func TestForcedFunctionsStayInRecordedOrder(t *testing.T) {
	first := returnsOne("first", ast.AccessPrivate)
	first.Implicit = true

	second := returnsOne("second", ast.AccessPrivate)
	second.Implicit = true

	// the later function is referenced first
	user := &ast.FuncDecl{
		Name:   "user",
		Access: ast.AccessPublic,
		Body: block(
			&ast.ExprStmt{Expr: call(second)},
			&ast.ExprStmt{Expr: call(first)},
		),
	}

	m := emitTestModule(t, newTestModule(first, second, user), nil)

	f1, f2, fu := mustLookupFunc(t, m, first), mustLookupFunc(t, m, second), mustLookupFunc(t, m, user)
	assert.Equal(t, []string{f1.Name, f2.Name, fu.Name}, functionNames(m))
}

func TestEmitAllDisablesDelay(t *testing.T) {
	implicit := returnsOne("synthesized", ast.AccessInternal)
	implicit.Implicit = true

	opts := common.DefaultOptions()
	opts.EmitAll = true

	m := emitTestModule(t, newTestModule(implicit), opts)
	f := mustLookupFunc(t, m, implicit)
	assert.True(t, f.IsDefinition())
}

func TestFunctionWithoutBodyIsOnlyDeclared(t *testing.T) {
	external := &ast.FuncDecl{Name: "external", ResultType: types.PrimTypeI64, Access: ast.AccessPublic}
	user := &ast.FuncDecl{
		Name:       "user",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body:       block(ret(call(external))),
	}

	m := emitTestModule(t, newTestModule(external, user), nil)

	f := mustLookupFunc(t, m, external)
	assert.False(t, f.IsDefinition())
	assert.True(t, f.Linkage.IsExternal())
}

func TestModuleNameDefaultsToOptions(t *testing.T) {
	opts := common.DefaultOptions()
	opts.ModuleName = "fallback"

	m := emitTestModule(t, &ast.Module{}, opts)
	assert.Equal(t, "fallback", m.Name)
	assert.Empty(t, m.Functions())
}

func TestUnknownDeclarationIsInternalError(t *testing.T) {
	stray := &ast.AssociatedTypeDecl{Name: "Element"}

	_, err := EmitModule(newTestModule(stray), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown declaration")
}
