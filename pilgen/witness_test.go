package pilgen

import (
	"testing"

	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shapeFixture is a protocol `Shape { func area() -> Int }` and a struct
// `Square` declaring a method `area`.
type shapeFixture struct {
	proto  *ast.ProtocolDecl
	req    *ast.FuncDecl
	square *ast.StructDecl
	area   *ast.FuncDecl
}

func newShapeFixture(access ast.AccessLevel) *shapeFixture {
	sf := &shapeFixture{}

	sf.proto = &ast.ProtocolDecl{Name: "Shape", Access: access}
	sf.req = &ast.FuncDecl{Name: "area", ResultType: types.PrimTypeI64, Access: access, Parent: sf.proto}
	sf.proto.Requirements = []*ast.FuncDecl{sf.req}

	sf.square = &ast.StructDecl{
		Name: "Square",
		Type: &types.StructType{
			Name:   "Square",
			Fields: []types.StructField{{Name: "side", Type: types.PrimTypeI64}},
		},
		Access: access,
	}

	sf.area = &ast.FuncDecl{
		Name:       "area",
		ResultType: types.PrimTypeI64,
		Access:     access,
		Parent:     sf.square,
		Body:       block(ret(intLit(4))),
	}
	sf.square.Methods = []*ast.FuncDecl{sf.area}

	return sf
}

func (sf *shapeFixture) conformance(witnesses map[*ast.FuncDecl]*ast.FuncDecl) *ast.Conformance {
	return &ast.Conformance{
		Type:       sf.square.Type,
		Protocol:   sf.proto,
		ModuleName: testModuleName,
		Witnesses:  witnesses,
	}
}

func TestConformanceGetsWitnessTable(t *testing.T) {
	sf := newShapeFixture(ast.AccessPublic)
	c := sf.conformance(map[*ast.FuncDecl]*ast.FuncDecl{sf.req: sf.area})

	astMod := newTestModule(sf.proto, sf.square)
	astMod.Conformances = []*ast.Conformance{c}

	m := emitTestModule(t, astMod, nil)

	require.Len(t, m.WitnessTables, 1)
	wt := m.WitnessTables[0]
	assert.Same(t, c, wt.Conformance)
	assert.Equal(t, pil.LinkagePublic, wt.Linkage)
	assert.Equal(t, NewMangler(testModuleName).MangleWitnessTable(c), wt.Name)

	require.Len(t, wt.Entries, 1)
	entry := wt.Entries[0]
	assert.Equal(t, pil.WitnessMethod, entry.Kind)
	assert.Equal(t, pil.FuncRef(sf.req), entry.Requirement)

	thunk := entry.Witness
	require.NotNil(t, thunk)
	assert.Equal(t, pil.ThunkWitness, thunk.Thunk)
	assert.Equal(t, pil.LinkagePrivate, thunk.Linkage)
	assert.True(t, thunk.IsDefinition())

	// self is taken at the abstraction of the protocol
	require.Len(t, thunk.Sig.Params, 1)
	assert.Equal(t, pil.ParamIndirectInGuaranteed, thunk.Sig.Params[0].Conv)

	var callee string
	thunk.EachInst(func(inst *pil.Instruction) {
		if inst.Op == pil.OpFunctionRef {
			callee = inst.Symbol
		}
	})
	assert.Equal(t, mustLookupFunc(t, m, sf.area).Name, callee)
}

func TestInternalConformanceIsEmittedOnUse(t *testing.T) {
	sf := newShapeFixture(ast.AccessInternal)
	c := sf.conformance(map[*ast.FuncDecl]*ast.FuncDecl{sf.req: sf.area})

	unused := newTestModule(sf.proto, sf.square)
	unused.Conformances = []*ast.Conformance{c}
	assert.Empty(t, emitTestModule(t, unused, nil).WitnessTables)

	// a call through the protocol references the conformance
	sf = newShapeFixture(ast.AccessInternal)
	c = sf.conformance(map[*ast.FuncDecl]*ast.FuncDecl{sf.req: sf.area})

	s := &ast.ParamDecl{Name: "s", Type: sf.square.Type}
	user := &ast.FuncDecl{
		Name:       "measure",
		Params:     []*ast.ParamDecl{s},
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessInternal,
		Body: block(ret(&ast.CallExpr{
			ExprBase: ast.NewExprBase(types.PrimTypeI64, nil),
			Func: &ast.MethodRef{
				ExprBase: ast.NewExprBase(sf.req.InterfaceType(), nil),
				Base:     declRef(s, sf.square.Type),
				Method:   sf.req,
			},
		})),
	}

	used := newTestModule(sf.proto, sf.square, user)
	used.Conformances = []*ast.Conformance{c}

	m := emitTestModule(t, used, nil)
	require.Len(t, m.WitnessTables, 1)
	assert.Equal(t, pil.LinkageHidden, m.WitnessTables[0].Linkage)

	f := mustLookupFunc(t, m, user)
	found := false
	f.EachInst(func(inst *pil.Instruction) {
		if inst.Op == pil.OpWitnessMethod {
			found = true
			assert.Equal(t, c.Repr(), inst.Conformance)
		}
	})
	assert.True(t, found)
}

func TestDefaultImplementationWitnessesRequirement(t *testing.T) {
	sf := newShapeFixture(ast.AccessPublic)
	sf.req.DefaultImpl = &ast.FuncDecl{
		Name:       "area",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Parent:     sf.proto,
	}

	c := sf.conformance(map[*ast.FuncDecl]*ast.FuncDecl{})

	astMod := newTestModule(sf.proto, sf.square)
	astMod.Conformances = []*ast.Conformance{c}

	m := emitTestModule(t, astMod, nil)
	require.Len(t, m.WitnessTables, 1)
	require.Len(t, m.WitnessTables[0].Entries, 1)
	assert.Equal(t, pil.WitnessMethod, m.WitnessTables[0].Entries[0].Kind)
}

func TestMissingWitnessIsInternalError(t *testing.T) {
	sf := newShapeFixture(ast.AccessPublic)
	c := sf.conformance(map[*ast.FuncDecl]*ast.FuncDecl{})

	astMod := newTestModule(sf.proto, sf.square)
	astMod.Conformances = []*ast.Conformance{c}

	_, err := EmitModule(astMod, nil)
	require.Error(t, err)

	var ice *report.InternalError
	require.ErrorAs(t, err, &ice)
	assert.Contains(t, ice.Message, "no witness")
}

func TestResilientProtocolGetsDefaultWitnessTable(t *testing.T) {
	sf := newShapeFixture(ast.AccessPublic)
	sf.proto.Resilient = true

	perimeter := &ast.FuncDecl{Name: "perimeter", ResultType: types.PrimTypeI64, Access: ast.AccessPublic, Parent: sf.proto}
	perimeter.DefaultImpl = &ast.FuncDecl{
		Name:       "perimeter",
		ResultType: types.PrimTypeI64,
		Access:     ast.AccessPublic,
		Parent:     sf.proto,
		Body:       block(ret(intLit(0))),
	}
	sf.proto.Requirements = append(sf.proto.Requirements, perimeter)

	m := emitTestModule(t, newTestModule(sf.proto), nil)

	require.Len(t, m.DefaultWitnessTables, 1)
	dt := m.DefaultWitnessTables[0]
	assert.Same(t, sf.proto, dt.Protocol)
	require.Len(t, dt.Entries, 2)

	assert.Equal(t, pil.WitnessMissing, dt.Entries[0].Kind)
	assert.Nil(t, dt.Entries[0].Witness)

	assert.Equal(t, pil.WitnessMethod, dt.Entries[1].Kind)
	require.NotNil(t, dt.Entries[1].Witness)
	assert.Equal(t, pil.ThunkWitness, dt.Entries[1].Witness.Thunk)
	assert.Equal(t, pil.LinkageShared, dt.Entries[1].Witness.Linkage)
}

func TestWitnessTableFollowsInheritedConformances(t *testing.T) {
	sf := newShapeFixture(ast.AccessPublic)

	named := &ast.ProtocolDecl{Name: "Named", Access: ast.AccessPublic, Inherited: []*ast.ProtocolDecl{sf.proto}}
	elem := &ast.AssociatedTypeDecl{Name: "Element"}
	named.AssocTypes = []*ast.AssociatedTypeDecl{elem}

	shape := sf.conformance(map[*ast.FuncDecl]*ast.FuncDecl{sf.req: sf.area})
	c := &ast.Conformance{
		Type:          sf.square.Type,
		Protocol:      named,
		ModuleName:    testModuleName,
		TypeWitnesses: map[*ast.AssociatedTypeDecl]types.Type{elem: types.PrimTypeI64},
		Inherited:     map[*ast.ProtocolDecl]*ast.Conformance{sf.proto: shape},
	}

	astMod := newTestModule(sf.proto, named, sf.square)
	astMod.Conformances = []*ast.Conformance{c}

	m := emitTestModule(t, astMod, nil)

	// the inherited conformance's table is emitted because it is used
	require.Len(t, m.WitnessTables, 2)
	wt := m.WitnessTables[0]
	assert.Same(t, c, wt.Conformance)

	require.Len(t, wt.Entries, 2)
	assert.Equal(t, pil.WitnessBaseProtocol, wt.Entries[0].Kind)
	assert.Same(t, shape, wt.Entries[0].Conformance)
	assert.Equal(t, pil.WitnessAssociatedType, wt.Entries[1].Kind)
	assert.True(t, types.Equals(types.PrimTypeI64, wt.Entries[1].TypeWitness))

	assert.Same(t, shape, m.WitnessTables[1].Conformance)
}
