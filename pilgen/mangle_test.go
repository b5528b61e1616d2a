package pilgen

import (
	"testing"

	"pilc/ast"
	"pilc/pil"
	"pilc/types"

	"github.com/stretchr/testify/assert"
)

func TestMangleFunctions(t *testing.T) {
	mg := NewMangler(testModuleName)

	free := returnsOne("one", ast.AccessPublic)
	assert.Equal(t, "$s4test3oneSiytXfF", mg.MangleDeclRef(pil.FuncRef(free)))

	class := &ast.ClassDecl{Name: "Base", Type: &types.ClassType{Name: "Base"}}
	method := &ast.FuncDecl{Name: "m", ResultType: types.PrimTypeI64, Parent: class}
	assert.Equal(t, "$s4test4Base1mSi4BaseC_tXfF", mg.MangleDeclRef(pil.FuncRef(method)))

	static := &ast.FuncDecl{Name: "make", ResultType: class.Type, Parent: class, Static: true}
	assert.Equal(t, "$s4test4Base4make4BaseC4BaseCXM_tXfFZ", mg.MangleDeclRef(pil.FuncRef(static)))
}

func TestMangleGlobals(t *testing.T) {
	mg := NewMangler(testModuleName)
	vd := &ast.VarDecl{Name: "g", Type: types.PrimTypeI64, Global: true}

	assert.Equal(t, "$s4test1gVp", mg.MangleGlobal(vd))
	assert.Equal(t, "$s4test1gWZ", mg.MangleDeclRef(pil.GlobalInitRef(vd)))
	assert.Equal(t, "$s4test1gvau", mg.MangleDeclRef(pil.GlobalAccessorRef(vd)))
}

func TestMangledNamesDistinguishOverloads(t *testing.T) {
	mg := NewMangler(testModuleName)

	byInt := &ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{{Name: "x", Type: types.PrimTypeI64}}}
	byBool := &ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{{Name: "x", Type: types.PrimTypeBool}}}
	throwing := &ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{{Name: "x", Type: types.PrimTypeI64}}, Throws: true}

	names := map[string]bool{
		mg.MangleDeclRef(pil.FuncRef(byInt)):    true,
		mg.MangleDeclRef(pil.FuncRef(byBool)):   true,
		mg.MangleDeclRef(pil.FuncRef(throwing)): true,
	}
	assert.Len(t, names, 3)

	// names only depend on the declaration
	assert.Equal(t, mg.MangleDeclRef(pil.FuncRef(byInt)), NewMangler(testModuleName).MangleDeclRef(pil.FuncRef(byInt)))
	assert.NotEqual(t, mg.MangleDeclRef(pil.FuncRef(byInt)), NewMangler("other").MangleDeclRef(pil.FuncRef(byInt)))
}

func TestMangleThunksAndTables(t *testing.T) {
	mg := NewMangler(testModuleName)

	proto := &ast.ProtocolDecl{Name: "Shape"}
	req := &ast.FuncDecl{Name: "area", ResultType: types.PrimTypeI64, Parent: proto}
	square := &types.StructType{Name: "Square"}
	c := &ast.Conformance{Type: square, Protocol: proto}

	assert.Equal(t, "$s6SquareV5ShapePWP", mg.MangleWitnessTable(c))
	assert.Equal(t, "$s6SquareV5ShapeP4test5Shape4areaSi4SelfQz_tXfFTW", mg.MangleWitnessThunk(c, req))
	assert.Equal(t, "$s4test5Shape4areaSi4SelfQz_tXfFTW", mg.MangleDefaultWitnessThunk(req))
	assert.NotEqual(t, mg.MangleWitnessThunk(c, req), mg.MangleDefaultWitnessThunk(req))
}
