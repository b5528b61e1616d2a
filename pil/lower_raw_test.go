package pil

import (
	"testing"

	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opcodes(f *Function) []Opcode {
	var ops []Opcode
	f.EachInst(func(inst *Instruction) {
		ops = append(ops, inst.Op)
	})

	return ops
}

func TestLowerAssignQualifiers(t *testing.T) {
	cases := []struct {
		name string
		qual AssignQualifier
		want []Opcode
	}{
		{"init", AssignInit, []Opcode{OpAllocStack, OpAllocRef, OpStore, OpDeallocStack}},
		{"reassign", AssignReassign, []Opcode{OpAllocStack, OpAllocRef, OpStore, OpDeallocStack}},
		{"reinit", AssignReinit, []Opcode{OpAllocStack, OpAllocRef, OpLoad, OpStore, OpDestroyValue, OpDeallocStack}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, b := newTestFunction(t, true)

			addr := b.CreateAllocStack(nil, classObj)
			obj := b.CreateAllocRef(nil, classType)
			assign := b.CreateAssign(nil, obj, addr)
			b.CreateDeallocStack(nil, addr)
			emitUnitReturn(b)

			b.SetAssignQualifier(assign, c.qual)
			LowerRawInstructions(f)

			ops := opcodes(f)
			assert.Equal(t, c.want, ops[:len(ops)-2])
			require.NoError(t, VerifyLowered(f))
		})
	}
}

func TestLowerReassignUsesAssignQualifier(t *testing.T) {
	f, b := newTestFunction(t, true)

	addr := b.CreateAllocStack(nil, classObj)
	obj := b.CreateAllocRef(nil, classType)
	assign := b.CreateAssign(nil, obj, addr)
	emitUnitReturn(b)

	b.SetAssignQualifier(assign, AssignReassign)
	LowerRawInstructions(f)

	var store *Instruction
	f.EachInst(func(inst *Instruction) {
		if inst.Op == OpStore {
			store = inst
		}
	})

	require.NotNil(t, store)
	assert.Equal(t, StoreAssign, store.StoreQual)
}

func TestLowerUnqualifiedAssignPanics(t *testing.T) {
	f, b := newTestFunction(t, true)

	addr := b.CreateAllocStack(nil, intType)
	lit := b.CreateIntegerLiteral(nil, intType, 1)
	b.CreateAssign(nil, lit, addr)
	emitUnitReturn(b)

	require.Panics(t, func() { LowerRawInstructions(f) })
}

func TestLowerMarkInstructions(t *testing.T) {
	f, b := newTestFunction(t, true)

	raw := b.CreateAllocStack(nil, intType)
	marked := b.CreateMarkUninitialized(nil, raw)
	lit := b.CreateIntegerLiteral(nil, intType, 1)
	b.CreateStore(nil, lit, marked, StoreTrivial)
	b.CreateMarkFunctionEscape(nil, []Value{marked})
	b.CreateDeallocStack(nil, marked)
	emitUnitReturn(b)

	LowerRawInstructions(f)

	require.NoError(t, VerifyLowered(f))
	assert.NotContains(t, opcodes(f), OpMarkUninitialized)
	assert.NotContains(t, opcodes(f), OpMarkFunctionEscape)
	assert.Len(t, f.Uses(raw), 2)
}

func TestLowerAssignByWrapper(t *testing.T) {
	m := NewModule("test", true)
	tc := m.Types

	backing := &types.StructType{Name: "Wrapper", Fields: []types.StructField{{Name: "v", Type: types.PrimTypeI64}}}
	initFn := m.CreateFunction("init", tc.LowerNaturalSignature(&types.FuncType{Params: []types.Type{types.PrimTypeI64}, Result: backing, Thin: true}, nil), LinkageHidden)
	setFn := m.CreateFunction("set", tc.LowerNaturalSignature(&types.FuncType{Params: []types.Type{types.PrimTypeI64, backing}, Result: types.Unit(), Thin: true}, []ParamPassing{PassOwned, PassInout}), LinkageHidden)

	for _, qual := range []AssignQualifier{AssignInit, AssignReassign} {
		f := m.CreateFunction("f"+qual.Repr(), tc.LowerNaturalSignature(&types.FuncType{Result: types.Unit(), Thin: true}, nil), LinkageHidden)
		b := NewBuilder(f)
		b.SetInsertionPoint(f.CreateBlock())

		addr := b.CreateAllocStack(nil, ObjectType(backing))
		lit := b.CreateIntegerLiteral(nil, intType, 7)
		assign := b.CreateAssignByWrapper(nil, lit, addr, b.CreateFunctionRef(nil, initFn), b.CreateFunctionRef(nil, setFn))
		b.CreateDeallocStack(nil, addr)
		emitUnitReturn(b)

		b.SetAssignQualifier(assign, qual)
		LowerRawInstructions(f)
		require.NoError(t, VerifyLowered(f))

		applies := 0
		stores := 0
		f.EachInst(func(inst *Instruction) {
			switch inst.Op {
			case OpApply:
				applies++
			case OpStore:
				stores++
			}
		})

		assert.Equal(t, 1, applies)
		if qual == AssignInit {
			assert.Equal(t, 1, stores)
		} else {
			assert.Equal(t, 0, stores)
		}
	}
}
