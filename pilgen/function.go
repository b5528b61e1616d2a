package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// VarLoc is the storage of a local variable: either the variable's value
// itself (immutable loadable locals) or the address holding it.  Mutable
// locals live in a box.
type VarLoc struct {
	Value pil.Value
	Box   pil.Value
}

// IsAddress returns whether the variable lives in memory.
func (vl VarLoc) IsAddress() bool {
	return vl.Value.Type().IsAddress()
}

// loopDest is the pair of jump destinations of a loop.
type loopDest struct {
	label      string
	breakTo    JumpDest
	continueTo JumpDest
}

// switchContext is the state of the innermost switch being lowered.
type switchContext struct {
	subject ManagedValue
	contBB  pil.BlockID
}

// PILGenFunction holds the state of lowering a single function body.
type PILGenFunction struct {
	SGM *PILGenModule
	F   *pil.Function
	B   *PILGenBuilder

	Cleanups *CleanupManager

	// The storage of every local variable and parameter in scope.
	VarLocs map[ast.Decl]VarLoc

	// The epilog destinations.  ThrowDest and CoroutineUnwindDest are only
	// valid in throwing functions and coroutines respectively.
	ReturnDest          JumpDest
	ThrowDest           JumpDest
	CoroutineUnwindDest JumpDest

	// The formal result type and the abstraction pattern it is returned under.
	formalResult  types.Type
	resultPattern types.AbstractionPattern

	// The addresses of the indirect results in order.
	indirectResults []pil.Value

	// The direct results of a return that was emitted as the fallthrough into
	// the epilog rather than as a branch.
	fallthroughResults   []pil.Value
	hasFallthroughReturn bool

	// The first block of the postmatter section: blocks which are only
	// reached on exceptional paths are laid out after all ordinary blocks.
	postmatterStart pil.BlockID

	loops       []loopDest
	switches    []*switchContext
	debugScopes []*report.TextSpan

	// Whether the function is the script entry point.
	isTopLevel bool
}

// NewPILGenFunction creates the lowering state for f.
func NewPILGenFunction(sgm *PILGenModule, f *pil.Function) *PILGenFunction {
	sgf := &PILGenFunction{
		SGM:     sgm,
		F:       f,
		VarLocs: make(map[ast.Decl]VarLoc),
	}

	sgf.B = NewPILGenBuilder(sgf)
	sgf.Cleanups = NewCleanupManager(sgf)
	return sgf
}

// Types returns the module's type converter.
func (sgf *PILGenFunction) Types() *pil.TypeConverter {
	return sgf.F.Types()
}

// -----------------------------------------------------------------------------

// CreateBasicBlock creates a block in the ordinary section of the function:
// after every ordinary block and before the postmatter.
func (sgf *PILGenFunction) CreateBasicBlock() pil.BlockID {
	bb := sgf.F.CreateBlock()
	if sgf.postmatterStart != 0 {
		sgf.F.MoveBlockBefore(bb, sgf.postmatterStart)
	}

	return bb
}

// CreateBasicBlockAfter creates a block laid out right after another.
func (sgf *PILGenFunction) CreateBasicBlockAfter(after pil.BlockID) pil.BlockID {
	return sgf.F.CreateBlockAfter(after)
}

// CreatePostmatterBlock creates a block at the very end of the function.
func (sgf *PILGenFunction) CreatePostmatterBlock() pil.BlockID {
	bb := sgf.F.CreateBlock()
	if sgf.postmatterStart == 0 {
		sgf.postmatterStart = bb
	}

	return bb
}

// eraseBlock erases a block which may be the start of the postmatter.
func (sgf *PILGenFunction) eraseBlock(bb pil.BlockID) {
	if bb == sgf.postmatterStart {
		sgf.postmatterStart = 0

		blocks := sgf.F.Blocks()
		for i, id := range blocks {
			if id == bb && i+1 < len(blocks) {
				sgf.postmatterStart = blocks[i+1]
			}
		}
	}

	sgf.F.EraseBlock(bb)
}

// -----------------------------------------------------------------------------

// pushDebugScope enters a lexical scope for debug information.
func (sgf *PILGenFunction) pushDebugScope(loc *report.TextSpan) {
	sgf.debugScopes = append(sgf.debugScopes, loc)
}

func (sgf *PILGenFunction) popDebugScope() {
	sgf.debugScopes = sgf.debugScopes[:len(sgf.debugScopes)-1]
}

// currentScopeLoc returns the location of the innermost lexical scope.
func (sgf *PILGenFunction) currentScopeLoc() *report.TextSpan {
	if len(sgf.debugScopes) == 0 {
		return sgf.F.Loc
	}

	return sgf.debugScopes[len(sgf.debugScopes)-1]
}

// -----------------------------------------------------------------------------

// EmitFunction lowers the body of a function declaration into sgf.F.
func (sgf *PILGenFunction) EmitFunction(fd *ast.FuncDecl) {
	loc := fd.Span()
	sgf.F.Loc = loc

	formal := sgf.F.Sig.Formal
	paramValues := sgf.emitProlog(loc, sgf.F.Sig, formal)

	for i, param := range fd.Params {
		sgf.bindParameter(loc, param, paramValues[i])
	}

	if fd.IsMethod() {
		sgf.bindParameter(loc, fd.SelfParam(), paramValues[len(paramValues)-1])
	}

	sgf.prepareEpilog(loc, formal.Result, sgf.F.Sig.Pattern.FuncResult(), fd.Throws, fd.Coroutine)
	sgf.emitFunctionBody(fd.Body)
	sgf.emitEpilogs(loc)
}

// emitFunctionBody emits the top-level block of a function.  A return which
// is the last statement of the block falls through into the epilog.
func (sgf *PILGenFunction) emitFunctionBody(body *ast.Block) {
	scope := sgf.Cleanups.EnterScope(body.Span())
	sgf.pushDebugScope(body.Span())

	for i, stmt := range body.Stmts {
		if !sgf.B.HasValidInsertionPoint() {
			break
		}

		if ret, ok := stmt.(*ast.ReturnStmt); ok && i == len(body.Stmts)-1 {
			sgf.emitFallthroughReturn(ret)
		} else {
			sgf.emitStmt(stmt)
		}
	}

	sgf.popDebugScope()
	scope.Exit()

	if sgf.B.HasValidInsertionPoint() && !sgf.hasFallthroughReturn && len(sgf.F.Sig.Results) > 0 && !types.IsUnit(sgf.formalResult) {
		// control reaches the end of a function which must return a value
		sgf.B.Raw().CreateUnreachable(body.Span())
	}
}

// bindParameter makes a lowered parameter value the storage of a parameter
// declaration.
func (sgf *PILGenFunction) bindParameter(loc *report.TextSpan, pd ast.Decl, rv *RValue) {
	mv := rv.GetAsSingleValue(sgf, loc)
	sgf.VarLocs[pd] = VarLoc{Value: mv.Value()}

	if mv.Type().IsObject() {
		sgf.B.Raw().CreateDebugValue(loc, mv.Value(), pd.DeclName())
	}
}
