package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
)

// Cleanup is a deferred action run when the scope it was pushed in exits.
// forUnwind is set when the scope is exited by a throw or by unwinding a
// coroutine.
type Cleanup interface {
	Emit(sgf *PILGenFunction, loc *report.TextSpan, forUnwind bool)
}

// CleanupState is the state of a cleanup on the stack.
type CleanupState int

// Enumeration of cleanup states.
const (
	// The cleanup is pushed but does not run yet (eg. the value it destroys
	// is not initialized yet).
	CleanupDormant CleanupState = iota

	// The cleanup runs when its scope exits.
	CleanupActive

	// The cleanup was forwarded: it never runs again.
	CleanupDead
)

// CleanupsDepth is a stable handle to a position on the cleanup stack: the
// number of cleanups below it.
type CleanupsDepth int

// CleanupHandle identifies a single cleanup on the stack.  The zero handle is
// the invalid handle.
type CleanupHandle int

// IsValid returns whether h refers to a cleanup.
func (h CleanupHandle) IsValid() bool {
	return h > 0
}

type cleanupEntry struct {
	cleanup Cleanup
	state   CleanupState
}

// CleanupManager is the stack of pending cleanups of a function.  Cleanups
// fire in strict reverse order of creation.  Forwarding a cleanup marks it dead
// without removing it so the depths of the cleanups above it are preserved.
type CleanupManager struct {
	sgf   *PILGenFunction
	stack []*cleanupEntry
}

// NewCleanupManager creates an empty cleanup stack for a function.
func NewCleanupManager(sgf *PILGenFunction) *CleanupManager {
	return &CleanupManager{sgf: sgf}
}

// Depth returns the current depth of the stack.
func (cm *CleanupManager) Depth() CleanupsDepth {
	return CleanupsDepth(len(cm.stack))
}

// PushCleanup pushes an active cleanup and returns its handle.
func (cm *CleanupManager) PushCleanup(c Cleanup) CleanupHandle {
	return cm.PushCleanupInState(c, CleanupActive)
}

// PushCleanupInState pushes a cleanup in the given state.
func (cm *CleanupManager) PushCleanupInState(c Cleanup, state CleanupState) CleanupHandle {
	cm.stack = append(cm.stack, &cleanupEntry{cleanup: c, state: state})
	return CleanupHandle(len(cm.stack))
}

func (cm *CleanupManager) entry(h CleanupHandle) *cleanupEntry {
	if !h.IsValid() || int(h) > len(cm.stack) {
		report.ReportICE("invalid cleanup handle %d (stack depth %d)", h, len(cm.stack))
	}

	return cm.stack[h-1]
}

// State returns the state of a cleanup.
func (cm *CleanupManager) State(h CleanupHandle) CleanupState {
	return cm.entry(h).state
}

// SetState changes the state of a cleanup.  A dead cleanup cannot be revived.
func (cm *CleanupManager) SetState(h CleanupHandle, state CleanupState) {
	e := cm.entry(h)
	if e.state == CleanupDead && state != CleanupDead {
		report.ReportICE("reviving a forwarded cleanup")
	}

	e.state = state
}

// ForwardCleanup deactivates a cleanup without running it: ownership of the
// value it manages has been handed elsewhere.  A cleanup may only be forwarded
// once.
func (cm *CleanupManager) ForwardCleanup(h CleanupHandle) {
	e := cm.entry(h)
	if e.state != CleanupActive {
		report.ReportICE("forwarding a cleanup which is not active")
	}

	e.state = CleanupDead
}

// PopCleanup pops the cleanup on top of the stack, running it if it is
// active.  h must be the top of the stack.
func (cm *CleanupManager) PopCleanup(h CleanupHandle, loc *report.TextSpan) {
	if int(h) != len(cm.stack) {
		report.ReportICE("popping cleanup %d which is not on top of the stack", h)
	}

	cm.EmitCleanups(CleanupsDepth(h-1), loc, false)
}

// EmitCleanups runs every active cleanup above depth in reverse order of
// creation and then pops them.  If there is no insertion point the cleanups
// are popped without emitting anything.
func (cm *CleanupManager) EmitCleanups(depth CleanupsDepth, loc *report.TextSpan, forUnwind bool) {
	cm.emitActiveCleanups(depth, loc, forUnwind)
	cm.stack = cm.stack[:depth]
}

// emitActiveCleanups runs the active cleanups above depth without popping.
func (cm *CleanupManager) emitActiveCleanups(depth CleanupsDepth, loc *report.TextSpan, forUnwind bool) {
	if depth > cm.Depth() {
		report.ReportICE("emitting cleanups down to depth %d above the current depth %d", depth, cm.Depth())
	}

	for i := len(cm.stack) - 1; i >= int(depth); i-- {
		if !cm.sgf.B.HasValidInsertionPoint() {
			return
		}

		if e := cm.stack[i]; e.state == CleanupActive {
			e.cleanup.Emit(cm.sgf, loc, forUnwind)
		}
	}
}

// EmitCleanupsForReturn runs every active cleanup of the function without
// popping them: each epilog leaving the function runs the same cleanups.
func (cm *CleanupManager) EmitCleanupsForReturn(loc *report.TextSpan, forUnwind bool) {
	cm.emitActiveCleanups(0, loc, forUnwind)
}

// popAll drops every cleanup without emitting anything.
func (cm *CleanupManager) popAll() {
	cm.stack = cm.stack[:0]
}

// EmitBranchAndCleanups runs the active cleanups above the destination's depth
// and branches to it.  The cleanups stay on the stack: they still apply to
// the fallthrough path.
func (cm *CleanupManager) EmitBranchAndCleanups(dest JumpDest, loc *report.TextSpan, args []pil.Value, forUnwind bool) {
	if !dest.IsValid() {
		report.ReportICE("branch to an invalid jump destination")
	}

	if !cm.sgf.B.HasValidInsertionPoint() {
		return
	}

	cm.emitActiveCleanups(dest.Depth(), loc, forUnwind)
	cm.sgf.B.Raw().CreateBranch(loc, dest.Block(), args)
}

// HasAnyActiveCleanups returns whether any cleanup between the two depths is
// active.
func (cm *CleanupManager) HasAnyActiveCleanups(from, to CleanupsDepth) bool {
	for i := int(to); i < int(from) && i < len(cm.stack); i++ {
		if cm.stack[i].state == CleanupActive {
			return true
		}
	}

	return false
}

// -----------------------------------------------------------------------------

// Scope is a lexical cleanup scope.  Exit must be called exactly once on
// every path that leaves the scope normally; branches out of the scope use
// EmitBranchAndCleanups instead.
type Scope struct {
	cm     *CleanupManager
	depth  CleanupsDepth
	loc    *report.TextSpan
	exited bool
}

// EnterScope opens a new cleanup scope.
func (cm *CleanupManager) EnterScope(loc *report.TextSpan) *Scope {
	return &Scope{cm: cm, depth: cm.Depth(), loc: loc}
}

// Depth returns the depth of the stack when the scope was entered.
func (s *Scope) Depth() CleanupsDepth {
	return s.depth
}

// Exit runs and pops the cleanups pushed inside the scope.
func (s *Scope) Exit() {
	if s.exited {
		report.ReportICE("exiting a cleanup scope twice")
	}

	s.exited = true
	s.cm.EmitCleanups(s.depth, s.loc, false)
}

// -----------------------------------------------------------------------------

// destroyValueCleanup destroys a +1 object.
type destroyValueCleanup struct {
	v pil.Value
}

func (c *destroyValueCleanup) Emit(sgf *PILGenFunction, loc *report.TextSpan, forUnwind bool) {
	switch {
	case !c.v.Type().IsBox():
		sgf.Types().LoweringOf(c.v.Type()).EmitDestroyValue(sgf.B.Raw(), loc, c.v)
	case sgf.F.HasOwnership:
		sgf.B.Raw().CreateDestroyValue(loc, c.v)
	default:
		sgf.B.Raw().CreateReleaseValue(loc, c.v)
	}
}

// destroyAddrCleanup destroys the value stored at an address.
type destroyAddrCleanup struct {
	addr pil.Value
}

func (c *destroyAddrCleanup) Emit(sgf *PILGenFunction, loc *report.TextSpan, forUnwind bool) {
	sgf.Types().LoweringOf(c.addr.Type()).EmitDestroyAddress(sgf.B.Raw(), loc, c.addr)
}

// deallocStackCleanup deallocates a stack allocation.
type deallocStackCleanup struct {
	addr pil.Value
}

func (c *deallocStackCleanup) Emit(sgf *PILGenFunction, loc *report.TextSpan, forUnwind bool) {
	sgf.B.Raw().CreateDeallocStack(loc, c.addr)
}

// deferCleanup runs the body of a defer statement.
type deferCleanup struct {
	body *ast.Block
}

func (c *deferCleanup) Emit(sgf *PILGenFunction, loc *report.TextSpan, forUnwind bool) {
	sgf.emitBlock(c.body)
}

// pushDestroyValue pushes a cleanup destroying a +1 object.
func (sgf *PILGenFunction) pushDestroyValue(v pil.Value) CleanupHandle {
	return sgf.Cleanups.PushCleanup(&destroyValueCleanup{v: v})
}

// pushDestroyAddr pushes a cleanup destroying the value at an address.
func (sgf *PILGenFunction) pushDestroyAddr(addr pil.Value, state CleanupState) CleanupHandle {
	return sgf.Cleanups.PushCleanupInState(&destroyAddrCleanup{addr: addr}, state)
}

// pushDeallocStack pushes a cleanup deallocating a stack allocation.
func (sgf *PILGenFunction) pushDeallocStack(addr pil.Value) CleanupHandle {
	return sgf.Cleanups.PushCleanup(&deallocStackCleanup{addr: addr})
}
