package pilgen

import (
	"testing"

	"pilc/ast"
	"pilc/common"
	"pilc/pil"
	"pilc/report"
	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModuleName = "test"

func intLit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{ExprBase: ast.NewExprBase(types.PrimTypeI64, nil), Value: v}
}

func declRef(d ast.Decl, typ types.Type) *ast.DeclRef {
	return &ast.DeclRef{ExprBase: ast.NewExprBase(typ, nil), Decl: d}
}

func call(fd *ast.FuncDecl, args ...ast.Expr) *ast.CallExpr {
	ft := fd.InterfaceType()
	return &ast.CallExpr{
		ExprBase: ast.NewExprBase(ft.Result, nil),
		Func:     declRef(fd, ft),
		Args:     args,
	}
}

func block(stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Stmts: stmts}
}

func ret(e ast.Expr) *ast.ReturnStmt {
	return &ast.ReturnStmt{Value: e}
}

// returnsOne builds `func name() -> Int { return 1 }`.
func returnsOne(name string, access ast.AccessLevel) *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:       name,
		ResultType: types.PrimTypeI64,
		Access:     access,
		Body:       block(ret(intLit(1))),
	}
}

func newTestModule(decls ...ast.Decl) *ast.Module {
	return &ast.Module{
		Name: testModuleName,
		Files: []*ast.SourceFile{{
			AbsPath:  "/src/test.pil",
			ReprPath: "test.pil",
			Decls:    decls,
		}},
	}
}

func emitTestModule(t *testing.T, astMod *ast.Module, opts *common.Options) *pil.Module {
	t.Helper()

	m, err := EmitModule(astMod, opts)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

// lookupFunc returns the function emitted for fd or nil.
func lookupFunc(m *pil.Module, fd *ast.FuncDecl) *pil.Function {
	return m.LookupFunction(NewMangler(testModuleName).MangleDeclRef(pil.FuncRef(fd)))
}

func mustLookupFunc(t *testing.T, m *pil.Module, fd *ast.FuncDecl) *pil.Function {
	t.Helper()

	f := lookupFunc(m, fd)
	require.NotNil(t, f, "no function for `%s`", fd.Name)
	return f
}

// opcodes returns the opcodes of a block in order.
func opcodes(f *pil.Function, bb pil.BlockID) []pil.Opcode {
	var ops []pil.Opcode
	for _, id := range f.Block(bb).Insts() {
		ops = append(ops, f.Inst(id).Op)
	}

	return ops
}

func countOp(f *pil.Function, op pil.Opcode) int {
	n := 0
	f.EachInst(func(inst *pil.Instruction) {
		if inst.Op == op {
			n++
		}
	})

	return n
}

// -----------------------------------------------------------------------------

func TestStraightLineReturnHasSingleBlock(t *testing.T) {
	fd := returnsOne("one", ast.AccessPublic)
	m := emitTestModule(t, newTestModule(fd), nil)

	f := mustLookupFunc(t, m, fd)
	require.Equal(t, 1, f.NumBlocks())
	assert.Equal(t, []pil.Opcode{pil.OpIntegerLiteral, pil.OpReturn}, opcodes(f, f.EntryBlock()))
	assert.Equal(t, pil.LinkagePublic, f.Linkage)
	assert.NoError(t, pil.Verify(f))
}

func TestNestedReturnFoldsIntoEntry(t *testing.T) {
	fd := &ast.FuncDecl{
		Name:       "nested",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body:       block(block(block(ret(intLit(1))))),
	}

	m := emitTestModule(t, newTestModule(fd), nil)
	f := mustLookupFunc(t, m, fd)

	require.Equal(t, 1, f.NumBlocks())
	assert.Equal(t, []pil.Opcode{pil.OpIntegerLiteral, pil.OpReturn}, opcodes(f, f.EntryBlock()))
}

func TestBranchingReturnsJoinInReturnBlock(t *testing.T) {
	cond := &ast.ParamDecl{Name: "c", Type: types.PrimTypeBool}
	fd := &ast.FuncDecl{
		Name:       "pick",
		Params:     []*ast.ParamDecl{cond},
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body: block(&ast.IfStmt{
			Cond: declRef(cond, types.PrimTypeBool),
			Then: block(ret(intLit(1))),
			Else: block(ret(intLit(2))),
		}),
	}

	m := emitTestModule(t, newTestModule(fd), nil)
	f := mustLookupFunc(t, m, fd)

	blocks := f.Blocks()
	require.Len(t, blocks, 4)

	returnBB := blocks[len(blocks)-1]
	assert.Len(t, f.Predecessors(returnBB), 2)
	assert.Len(t, f.Block(returnBB).Args, 1)
	assert.Equal(t, pil.OpReturn, f.Terminator(returnBB).Op)
	assert.Equal(t, pil.OpCondBranch, f.Terminator(f.EntryBlock()).Op)
}

func TestSingleReturnIsSplicedIntoItsBlock(t *testing.T) {
	cond := &ast.ParamDecl{Name: "c", Type: types.PrimTypeBool}
	fd := &ast.FuncDecl{
		Name:       "maybe",
		Params:     []*ast.ParamDecl{cond},
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body: block(&ast.IfStmt{
			Cond: declRef(cond, types.PrimTypeBool),
			Then: block(ret(intLit(1))),
		}),
	}

	m := emitTestModule(t, newTestModule(fd), nil)
	f := mustLookupFunc(t, m, fd)
	require.NoError(t, pil.Verify(f))

	// entry, then and the continuation falling off the end
	require.Equal(t, 3, f.NumBlocks())
	assert.Zero(t, countOp(f, pil.OpBranch))

	entry := f.Terminator(f.EntryBlock())
	require.Equal(t, pil.OpCondBranch, entry.Op)

	thenBB := entry.Targets[0]
	assert.Equal(t, pil.OpReturn, f.Terminator(thenBB).Op)
	assert.Equal(t, []pil.Opcode{pil.OpIntegerLiteral, pil.OpReturn}, opcodes(f, thenBB))
	assert.Equal(t, pil.OpUnreachable, f.Terminator(entry.Targets[1]).Op)
}

func TestCallResultsAreOnlySplitWhenNeeded(t *testing.T) {
	noop := &ast.FuncDecl{Name: "noop", Access: ast.AccessPublic, Body: block()}
	one := returnsOne("one", ast.AccessPublic)

	user := &ast.FuncDecl{
		Name:       "user",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body: block(
			&ast.ExprStmt{Expr: call(noop)},
			ret(call(one)),
		),
	}

	m := emitTestModule(t, newTestModule(noop, one, user), nil)
	f := mustLookupFunc(t, m, user)
	require.NoError(t, pil.Verify(f))

	assert.Equal(t, 2, countOp(f, pil.OpApply))
	assert.Zero(t, countOp(f, pil.OpDestructureTuple))
	assert.Zero(t, countOp(f, pil.OpTupleExtract))
}

func TestLocalIsDestroyedBeforeReturn(t *testing.T) {
	classDecl := &ast.ClassDecl{Name: "C", Type: &types.ClassType{Name: "C"}, ModuleName: testModuleName}
	x := &ast.VarDecl{Name: "x", Type: classDecl.Type}

	fd := &ast.FuncDecl{
		Name:       "k",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Body: block(
			&ast.VarDeclStmt{
				Var:  x,
				Init: &ast.AllocClassExpr{ExprBase: ast.NewExprBase(classDecl.Type, nil), Class: classDecl},
			},
			ret(intLit(1)),
		),
	}

	m := emitTestModule(t, newTestModule(classDecl, fd), nil)
	f := mustLookupFunc(t, m, fd)

	require.Equal(t, 1, f.NumBlocks())
	ops := opcodes(f, f.EntryBlock())
	require.GreaterOrEqual(t, len(ops), 2)
	assert.Equal(t, pil.OpDestroyValue, ops[len(ops)-2])
	assert.Equal(t, pil.OpReturn, ops[len(ops)-1])
	assert.Equal(t, 1, countOp(f, pil.OpDestroyValue))
}

func TestLocalIsReleasedWithoutOwnership(t *testing.T) {
	classDecl := &ast.ClassDecl{Name: "C", Type: &types.ClassType{Name: "C"}, ModuleName: testModuleName}
	x := &ast.VarDecl{Name: "x", Type: classDecl.Type}

	fd := &ast.FuncDecl{
		Name:   "k",
		Access: ast.AccessPublic,
		Body: block(&ast.VarDeclStmt{
			Var:  x,
			Init: &ast.AllocClassExpr{ExprBase: ast.NewExprBase(classDecl.Type, nil), Class: classDecl},
		}),
	}

	opts := common.DefaultOptions()
	opts.Ownership = false

	m := emitTestModule(t, newTestModule(classDecl, fd), opts)
	f := mustLookupFunc(t, m, fd)

	assert.False(t, f.HasOwnership)
	assert.Zero(t, countOp(f, pil.OpDestroyValue))
	assert.Equal(t, 1, countOp(f, pil.OpReleaseValue))
}

func TestMissingRuntimeSupportIsFatal(t *testing.T) {
	classDecl := &ast.ClassDecl{Name: "C", Type: &types.ClassType{Name: "C"}, ModuleName: testModuleName}
	operand := &ast.AllocClassExpr{ExprBase: ast.NewExprBase(classDecl.Type, nil), Class: classDecl}

	fd := &ast.FuncDecl{
		Name:   "bridge",
		Access: ast.AccessPublic,
		Body: block(&ast.ExprStmt{Expr: &ast.BridgeExpr{
			ExprBase:  ast.NewExprBase(types.PrimTypeNativeObject, nil),
			Operand:   operand,
			Intrinsic: "bridgeToObject",
		}}),
	}

	_, err := EmitModule(newTestModule(classDecl, fd), nil)
	require.Error(t, err)

	var fatal *report.FatalError
	assert.ErrorAs(t, err, &fatal)
}
