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

// newTestFunction creates the lowering state of a function `() -> ()` with an
// entry block holding the insertion point.
func newTestFunction(t *testing.T) *PILGenFunction {
	t.Helper()

	sgm := NewPILGenModule(&ast.Module{Name: testModuleName}, common.DefaultOptions())
	sig := sgm.Types().LowerNaturalSignature(&types.FuncType{Result: types.Unit(), Thin: true}, nil)
	f := sgm.M.CreateFunction("f", sig, pil.LinkageHidden)

	sgf := NewPILGenFunction(sgm, f)
	sgf.B.SetInsertionPoint(f.CreateBlock())
	return sgf
}

// recordingCleanup logs its name when it runs.
type recordingCleanup struct {
	name string
	log  *[]string
}

func (c *recordingCleanup) Emit(sgf *PILGenFunction, loc *report.TextSpan, forUnwind bool) {
	*c.log = append(*c.log, c.name)
}

func TestCleanupsRunInReverseOrder(t *testing.T) {
	sgf := newTestFunction(t)
	var log []string

	scope := sgf.Cleanups.EnterScope(nil)
	for _, name := range []string{"a", "b", "c"} {
		sgf.Cleanups.PushCleanup(&recordingCleanup{name: name, log: &log})
	}

	require.Equal(t, CleanupsDepth(3), sgf.Cleanups.Depth())
	scope.Exit()

	assert.Equal(t, []string{"c", "b", "a"}, log)
	assert.Equal(t, CleanupsDepth(0), sgf.Cleanups.Depth())
}

func TestForwardedCleanupDoesNotRun(t *testing.T) {
	sgf := newTestFunction(t)
	var log []string

	scope := sgf.Cleanups.EnterScope(nil)
	sgf.Cleanups.PushCleanup(&recordingCleanup{name: "a", log: &log})
	h := sgf.Cleanups.PushCleanup(&recordingCleanup{name: "b", log: &log})

	sgf.Cleanups.ForwardCleanup(h)
	assert.Equal(t, CleanupDead, sgf.Cleanups.State(h))

	require.Panics(t, func() {
		sgf.Cleanups.ForwardCleanup(h)
	})

	scope.Exit()
	assert.Equal(t, []string{"a"}, log)
}

func TestDormantCleanupRunsOnceActivated(t *testing.T) {
	sgf := newTestFunction(t)
	var log []string

	scope := sgf.Cleanups.EnterScope(nil)
	dormant := sgf.Cleanups.PushCleanupInState(&recordingCleanup{name: "dormant", log: &log}, CleanupDormant)
	activated := sgf.Cleanups.PushCleanupInState(&recordingCleanup{name: "activated", log: &log}, CleanupDormant)
	sgf.Cleanups.SetState(activated, CleanupActive)

	assert.False(t, sgf.Cleanups.HasAnyActiveCleanups(1, 0))
	assert.True(t, sgf.Cleanups.HasAnyActiveCleanups(2, 0))

	scope.Exit()
	assert.Equal(t, []string{"activated"}, log)
	assert.Panics(t, func() {
		sgf.Cleanups.State(dormant)
	})
}

func TestDeadCleanupCannotBeRevived(t *testing.T) {
	sgf := newTestFunction(t)
	var log []string

	h := sgf.Cleanups.PushCleanup(&recordingCleanup{name: "a", log: &log})
	sgf.Cleanups.ForwardCleanup(h)

	assert.Panics(t, func() {
		sgf.Cleanups.SetState(h, CleanupActive)
	})
}

func TestBranchKeepsCleanupsForFallthrough(t *testing.T) {
	sgf := newTestFunction(t)
	var log []string

	dest := NewJumpDest(sgf.CreateBasicBlock(), sgf.Cleanups.Depth(), nil)

	scope := sgf.Cleanups.EnterScope(nil)
	sgf.Cleanups.PushCleanup(&recordingCleanup{name: "a", log: &log})

	sgf.Cleanups.EmitBranchAndCleanups(dest, nil, nil, false)
	assert.Equal(t, []string{"a"}, log)
	assert.Equal(t, CleanupsDepth(1), sgf.Cleanups.Depth())
	assert.False(t, sgf.B.HasValidInsertionPoint())

	// nothing is emitted on the unreachable fallthrough path
	scope.Exit()
	assert.Equal(t, []string{"a"}, log)
	assert.Equal(t, CleanupsDepth(0), sgf.Cleanups.Depth())

	assert.Equal(t, []pil.Opcode{pil.OpBranch}, opcodes(sgf.F, sgf.F.EntryBlock()))
}

func TestScopeCannotExitTwice(t *testing.T) {
	sgf := newTestFunction(t)

	scope := sgf.Cleanups.EnterScope(nil)
	scope.Exit()

	assert.Panics(t, scope.Exit)
}

func TestPopCleanupRequiresTopOfStack(t *testing.T) {
	sgf := newTestFunction(t)
	var log []string

	below := sgf.Cleanups.PushCleanup(&recordingCleanup{name: "below", log: &log})
	top := sgf.Cleanups.PushCleanup(&recordingCleanup{name: "top", log: &log})

	require.Panics(t, func() {
		sgf.Cleanups.PopCleanup(below, nil)
	})

	sgf.Cleanups.PopCleanup(top, nil)
	assert.Equal(t, []string{"top"}, log)
	assert.Equal(t, CleanupsDepth(1), sgf.Cleanups.Depth())
}

func TestOwnedValueIsDestroyedUnlessForwarded(t *testing.T) {
	sgf := newTestFunction(t)
	class := &types.ClassType{Name: "C"}

	scope := sgf.Cleanups.EnterScope(nil)
	kept := sgf.B.CreateAllocRef(nil, class)
	forwarded := sgf.B.CreateAllocRef(nil, class)

	require.True(t, kept.HasCleanup())
	require.True(t, forwarded.IsPlusOne(sgf))

	v := forwarded.Forward(sgf)
	assert.Equal(t, CleanupDead, sgf.Cleanups.State(forwarded.Cleanup()))
	scope.Exit()

	destroyed := 0
	sgf.F.EachInst(func(inst *pil.Instruction) {
		if inst.Op == pil.OpDestroyValue {
			destroyed++
			assert.Equal(t, kept.Value(), inst.Operands[0])
			assert.NotEqual(t, v, inst.Operands[0])
		}
	})

	assert.Equal(t, 1, destroyed)
}

func TestBorrowedValueIsCopiedForConsumption(t *testing.T) {
	sgf := newTestFunction(t)
	class := &types.ClassType{Name: "C"}

	scope := sgf.Cleanups.EnterScope(nil)
	owned := sgf.B.CreateAllocRef(nil, class)
	borrowed := owned.Borrow(sgf, nil)

	assert.False(t, borrowed.HasCleanup())
	assert.False(t, borrowed.IsPlusOne(sgf))

	cp := borrowed.EnsurePlusOne(sgf, nil)
	assert.True(t, cp.HasCleanup())
	assert.NotEqual(t, owned.Value(), cp.Value())
	scope.Exit()

	assert.Equal(t, 1, countOp(sgf.F, pil.OpCopyValue))
	assert.Equal(t, 2, countOp(sgf.F, pil.OpDestroyValue))
}
