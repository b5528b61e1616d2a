package pil

import (
	"strings"
	"testing"

	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureFlattensTuples(t *testing.T) {
	tc := NewTypeConverter()

	ft := &types.FuncType{
		Params: []types.Type{types.NewTuple(types.PrimTypeI64, classType), types.PrimTypeBool},
		Result: types.NewTuple(types.PrimTypeI64, classType),
		Thin:   true,
	}

	sig := tc.LowerNaturalSignature(ft, []ParamPassing{PassOwned})
	require.Len(t, sig.Params, 3)
	assert.Equal(t, []int{2, 1}, sig.ParamLeafCounts)
	assert.Equal(t, ParamDirectUnowned, sig.Params[0].Conv)
	assert.Equal(t, ParamDirectOwned, sig.Params[1].Conv)
	assert.Equal(t, ParamDirectUnowned, sig.Params[2].Conv)

	require.Len(t, sig.Results, 2)
	assert.Equal(t, ResultOwned, sig.Results[1].Conv)
	assert.True(t, sig.DirectResultType().IsTuple())
}

func TestOpaquePatternMakesIndirect(t *testing.T) {
	tc := NewTypeConverter()

	archetype := &types.ArchetypeType{Name: "T"}
	pattern := types.PatternOf(&types.FuncType{Params: []types.Type{archetype}, Result: archetype, Thin: true})
	concrete := &types.FuncType{Params: []types.Type{types.PrimTypeI64}, Result: types.PrimTypeI64, Thin: true}

	abstract := tc.LowerSignature(pattern, concrete, nil)
	natural := tc.LowerNaturalSignature(concrete, nil)

	assert.Equal(t, ParamIndirectInGuaranteed, abstract.Params[0].Conv)
	assert.Equal(t, ResultIndirect, abstract.Results[0].Conv)
	assert.Len(t, abstract.IndirectResults(), 1)
	assert.Equal(t, ABINeedsThunk, CheckABICompatibility(abstract, natural))
	assert.Equal(t, ABICompatible, CheckABICompatibility(natural, tc.LowerNaturalSignature(concrete, nil)))
}

func TestABIDifferences(t *testing.T) {
	tc := NewTypeConverter()

	base := &types.FuncType{Params: []types.Type{classType}, Result: types.Unit(), Thin: true}
	throwing := &types.FuncType{Params: []types.Type{classType}, Result: types.Unit(), Throws: true, Thin: true}

	assert.Equal(t, ABINeedsThunk, CheckABICompatibility(tc.LowerNaturalSignature(base, nil), tc.LowerNaturalSignature(throwing, nil)))
	assert.Equal(t, ABINeedsThunk, CheckABICompatibility(tc.LowerNaturalSignature(base, nil), tc.LowerNaturalSignature(base, []ParamPassing{PassOwned})))
}

func TestTypeLoweringCache(t *testing.T) {
	tc := NewTypeConverter()

	a := tc.Lowering(types.NewTuple(types.PrimTypeI64, classType))
	b := tc.Lowering(types.NewTuple(types.PrimTypeI64, classType))

	assert.Same(t, a, b)
	assert.Equal(t, TypeKindLoadable, a.Kind)
	assert.NotNil(t, a.Storage)

	assert.True(t, tc.Lowering(types.PrimTypeI64).IsTrivial())
	assert.True(t, tc.Lowering(&types.ProtocolType{Name: "P"}).IsAddressOnly())
	assert.True(t, tc.GetTypeLowering(types.OpaquePattern(), types.PrimTypeI64).IsAddressOnly())
}

func TestModuleSymbolsAreSorted(t *testing.T) {
	m := NewModule("test", true)
	sig := m.Types.LowerNaturalSignature(&types.FuncType{Result: types.Unit(), Thin: true}, nil)

	zeta := m.CreateFunction("zeta", sig, LinkageHidden)
	alpha := m.CreateFunction("alpha", sig, LinkageHidden)
	m.CreateGlobal(&GlobalVariable{Name: "mid", Type: types.PrimTypeI64})
	first := m.CreateFunctionAfter("first", sig, LinkageHidden, nil)

	assert.Equal(t, []string{"alpha", "first", "mid", "zeta"}, m.Symbols())
	assert.Equal(t, []*Function{first, zeta, alpha}, m.Functions())
	assert.Same(t, alpha, m.LookupFunction("alpha"))
	assert.Nil(t, m.LookupFunction("mid"))
	assert.NotNil(t, m.LookupGlobal("mid"))

	require.Panics(t, func() { m.CreateFunction("alpha", sig, LinkageHidden) })
}

func TestFunctionRepr(t *testing.T) {
	f, b := newTestFunction(t, true)

	addr := b.CreateAllocStack(nil, classObj)
	obj := b.CreateAllocRef(nil, classType)
	b.CreateStore(nil, obj, addr, StoreInit)
	b.CreateDestroyAddr(nil, addr)
	b.CreateDeallocStack(nil, addr)
	emitUnitReturn(b)

	text := f.Repr()
	assert.True(t, strings.HasPrefix(text, "pil [hidden] @f : $() -> ()"))
	assert.Contains(t, text, "%0 = alloc_stack $C")
	assert.Contains(t, text, "store %1 to [init] %0 : $*C")
	assert.Contains(t, text, "return %2 : $()")
}

func TestVerifyCatchesMissingTerminator(t *testing.T) {
	f, b := newTestFunction(t, true)

	b.CreateIntegerLiteral(nil, intType, 1)
	assert.Error(t, Verify(f))

	emitUnitReturn(b)
	assert.NoError(t, Verify(f))

	f.CreateBlock()
	assert.Error(t, Verify(f))
}
