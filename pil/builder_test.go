package pil

import (
	"testing"

	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	intType   = ObjectType(types.PrimTypeI64)
	classType = &types.ClassType{Name: "C"}
	classObj  = ObjectType(classType)
)

// newTestFunction creates a function `() -> ()` with an entry block and a
// builder positioned in it.
func newTestFunction(t *testing.T, ownership bool) (*Function, *Builder) {
	t.Helper()

	m := NewModule("test", ownership)
	sig := m.Types.LowerNaturalSignature(&types.FuncType{Result: types.Unit(), Thin: true}, nil)
	f := m.CreateFunction("f", sig, LinkageHidden)

	b := NewBuilder(f)
	b.SetInsertionPoint(f.CreateBlock())
	return f, b
}

func emitUnitReturn(b *Builder) {
	unit := b.CreateTuple(nil, ObjectType(types.Unit()), nil)
	b.CreateReturn(nil, unit)
}

func TestTerminatorClearsInsertionPoint(t *testing.T) {
	f, b := newTestFunction(t, true)

	require.True(t, b.HasValidInsertionPoint())
	emitUnitReturn(b)
	assert.False(t, b.HasValidInsertionPoint())

	require.Panics(t, func() {
		b.CreateIntegerLiteral(nil, intType, 1)
	})

	assert.NoError(t, Verify(f))
}

func TestCreateAfterTerminatorPanics(t *testing.T) {
	f, b := newTestFunction(t, true)
	entry := f.EntryBlock()

	emitUnitReturn(b)
	b.SetInsertionPoint(entry)

	require.Panics(t, func() {
		b.CreateIntegerLiteral(nil, intType, 1)
	})
}

func TestInsertBefore(t *testing.T) {
	f, b := newTestFunction(t, true)

	one := b.CreateIntegerLiteral(nil, intType, 1)
	emitUnitReturn(b)

	b.SetInsertionPointBefore(f.DefiningInst(one).ID)
	two := b.CreateIntegerLiteral(nil, intType, 2)

	insts := f.Block(f.EntryBlock()).Insts()
	assert.Equal(t, f.DefiningInst(two).ID, insts[0])
	assert.Equal(t, f.DefiningInst(one).ID, insts[1])
}

func TestTrackingList(t *testing.T) {
	_, b := newTestFunction(t, true)

	var tracked []InstID
	b.SetTrackingList(&tracked)
	b.CreateIntegerLiteral(nil, intType, 1)
	b.CreateIntegerLiteral(nil, intType, 2)
	b.SetTrackingList(nil)
	b.CreateIntegerLiteral(nil, intType, 3)

	assert.Len(t, tracked, 2)
}

func TestEmitBlockFallsThrough(t *testing.T) {
	f, b := newTestFunction(t, true)
	entry := f.EntryBlock()

	next := f.CreateBlock()
	b.EmitBlock(nil, next)

	assert.Equal(t, next, b.InsertionBlock())
	assert.Equal(t, []BlockID{entry}, f.Predecessors(next))
	assert.Equal(t, OpBranch, f.Terminator(entry).Op)
}

func TestLoadStoreQualifiers(t *testing.T) {
	_, b := newTestFunction(t, true)

	addr := b.CreateAllocStack(nil, classObj)
	obj := b.CreateAllocRef(nil, classType)

	require.Panics(t, func() { b.CreateStore(nil, obj, addr, StoreUnqualified) })
	require.Panics(t, func() { b.CreateStore(nil, obj, addr, StoreTrivial) })
	b.CreateStore(nil, obj, addr, StoreInit)

	require.Panics(t, func() { b.CreateLoad(nil, addr, LoadUnqualified) })
	require.Panics(t, func() { b.CreateLoad(nil, addr, LoadTrivial) })
	loaded := b.CreateLoad(nil, addr, LoadTake)
	assert.Equal(t, OwnershipOwned, b.Function().Ownership(loaded))

	require.Panics(t, func() { b.CreateRetainValue(nil, loaded) })
}

func TestNonOwnershipRejectsQualifiers(t *testing.T) {
	_, b := newTestFunction(t, false)

	addr := b.CreateAllocStack(nil, intType)
	lit := b.CreateIntegerLiteral(nil, intType, 3)

	require.Panics(t, func() { b.CreateStore(nil, lit, addr, StoreTrivial) })
	b.CreateStore(nil, lit, addr, StoreUnqualified)
	require.Panics(t, func() { b.CreateCopyValue(nil, lit) })
}

func TestLoadableAssertion(t *testing.T) {
	_, b := newTestFunction(t, true)

	archetype := &types.ArchetypeType{Name: "T"}
	addr := b.CreateAllocStack(nil, ObjectType(archetype))

	require.Panics(t, func() { b.CreateLoad(nil, addr, LoadCopy) })

	// copy_addr works on address-only values
	other := b.CreateAllocStack(nil, ObjectType(archetype))
	b.CreateCopyAddr(nil, addr, other, false, true)
}

func TestDestructureForwardsOwnership(t *testing.T) {
	f, b := newTestFunction(t, true)

	pairType := ObjectType(types.NewTuple(classType, types.PrimTypeI64))
	obj := b.CreateAllocRef(nil, classType)
	lit := b.CreateIntegerLiteral(nil, intType, 3)
	pair := b.CreateTuple(nil, pairType, []Value{obj, lit})
	require.Equal(t, OwnershipOwned, f.Ownership(pair))

	parts := b.CreateDestructureTuple(nil, pair)
	require.Len(t, parts, 2)
	assert.Equal(t, OwnershipOwned, f.Ownership(parts[0]))
	assert.Equal(t, OwnershipNone, f.Ownership(parts[1]))
}

func TestBranchArgumentCount(t *testing.T) {
	f, b := newTestFunction(t, true)

	join := f.CreateBlock()
	f.AddBlockArg(join, intType, OwnershipNone)

	require.Panics(t, func() { b.CreateBranch(nil, join, nil) })

	lit := b.CreateIntegerLiteral(nil, intType, 3)
	b.CreateBranch(nil, join, []Value{lit})

	b.SetInsertionPoint(join)
	emitUnitReturn(b)

	assert.NoError(t, Verify(f))
}

func TestEraseBlockWithPredecessorsPanics(t *testing.T) {
	f, b := newTestFunction(t, true)

	next := f.CreateBlock()
	b.CreateBranch(nil, next, nil)

	require.Panics(t, func() { f.EraseBlock(next) })

	f.EraseInst(f.Terminator(f.EntryBlock()).ID)
	f.EraseBlock(next)
	assert.Equal(t, 1, f.NumBlocks())
}

func TestMoveBlocks(t *testing.T) {
	f, _ := newTestFunction(t, true)
	entry := f.EntryBlock()

	a := f.CreateBlock()
	c := f.CreateBlock()
	d := f.CreateBlockAfter(entry)

	assert.Equal(t, []BlockID{entry, d, a, c}, f.Blocks())

	f.MoveBlockBefore(c, a)
	assert.Equal(t, []BlockID{entry, d, c, a}, f.Blocks())

	f.MoveBlockBefore(d, 0)
	assert.Equal(t, []BlockID{entry, c, a, d}, f.Blocks())
}
