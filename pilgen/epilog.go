package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// prepareEpilog creates the blocks every exit of the function branches to.
// The return block takes the direct results as arguments; the throw block
// takes the error.  Both are at the cleanup depth of the function's
// parameters.
func (sgf *PILGenFunction) prepareEpilog(loc *report.TextSpan, result types.Type, pattern types.AbstractionPattern, throws, coroutine bool) {
	sgf.formalResult = result
	sgf.resultPattern = pattern

	depth := sgf.Cleanups.Depth()

	returnBB := sgf.CreateBasicBlock()
	for _, res := range sgf.F.Sig.DirectResults() {
		ownership := pil.OwnershipNone
		if sgf.F.HasOwnership && res.Conv == pil.ResultOwned {
			ownership = pil.OwnershipOwned
		}

		sgf.F.AddBlockArg(returnBB, res.Type, ownership)
	}

	sgf.ReturnDest = NewJumpDest(returnBB, depth, loc)

	if throws {
		throwBB := sgf.CreatePostmatterBlock()

		ownership := pil.OwnershipNone
		if sgf.F.HasOwnership {
			ownership = pil.OwnershipOwned
		}

		sgf.F.AddBlockArg(throwBB, pil.ObjectType(types.PrimTypeError), ownership)
		sgf.ThrowDest = NewJumpDest(throwBB, depth, loc)
	}

	if coroutine {
		sgf.CoroutineUnwindDest = NewJumpDest(sgf.CreatePostmatterBlock(), depth, loc)
	}
}

// -----------------------------------------------------------------------------

// emitReturnValue evaluates a returned expression in its own full-expression
// scope.  Indirect results are written to the result addresses; the direct
// results are returned at +1.
func (sgf *PILGenFunction) emitReturnValue(loc *report.TextSpan, value ast.Expr) []pil.Value {
	if value == nil {
		return nil
	}

	scope := sgf.Cleanups.EnterScope(loc)
	rv := sgf.EmitRValue(value)
	results := sgf.forwardResults(loc, rv)
	scope.Exit()

	return results
}

// emitReturnStmt branches to the return block running every cleanup between
// the statement and the function's top level.
func (sgf *PILGenFunction) emitReturnStmt(ret *ast.ReturnStmt) {
	loc := ret.Span()
	results := sgf.emitReturnValue(loc, ret.Value)
	sgf.Cleanups.EmitBranchAndCleanups(sgf.ReturnDest, loc, results, false)
}

// emitFallthroughReturn lowers a return which ends the function body: its
// results are handed straight to the epilog instead of being branched with.
func (sgf *PILGenFunction) emitFallthroughReturn(ret *ast.ReturnStmt) {
	sgf.fallthroughResults = sgf.emitReturnValue(ret.Span(), ret.Value)
	sgf.hasFallthroughReturn = true
}

// forwardResults splits a formal result over the lowered results.
func (sgf *PILGenFunction) forwardResults(loc *report.TextSpan, rv *RValue) []pil.Value {
	var direct []pil.Value
	indirect := sgf.indirectResults
	sgf.forwardResult(loc, sgf.resultPattern, rv, &direct, &indirect)

	return direct
}

func (sgf *PILGenFunction) forwardResult(loc *report.TextSpan, pattern types.AbstractionPattern, rv *RValue, direct, indirect *[]pil.Value) {
	if tt, ok := rv.Type().(*types.TupleType); ok && pattern.IsTuple() && pattern.NumTupleElements() == len(tt.Elems) {
		for i, elem := range rv.ExtractElements() {
			sgf.forwardResult(loc, pattern.TupleElement(i), elem, direct, indirect)
		}

		return
	}

	if sgf.Types().GetTypeLowering(pattern, rv.Type()).IsAddressOnly() {
		init := NewKnownAddressInitialization((*indirect)[0])
		*indirect = (*indirect)[1:]

		rv.ForwardInto(sgf, loc, init)
		init.FinishInitialization(sgf)
		return
	}

	*direct = append(*direct, rv.ForwardAsSingleValue(sgf, loc))
}

// -----------------------------------------------------------------------------

// emitEpilogs emits the return, throw and unwind epilogs and finishes the
// function.
func (sgf *PILGenFunction) emitEpilogs(loc *report.TextSpan) {
	if results, ok := sgf.emitEpilogBB(loc); ok {
		sgf.Cleanups.EmitCleanupsForReturn(loc, false)
		sgf.B.Raw().CreateReturn(loc, sgf.directResultValue(loc, results))
	}

	sgf.emitRethrowEpilog(loc)
	sgf.emitCoroutineUnwindEpilog(loc)

	sgf.Cleanups.popAll()
	sgf.B.ClearInsertionPoint()
}

// emitEpilogBB positions the builder where the return sequence goes and
// returns the direct results to return.  The return block is only kept when
// it actually joins control flow: with no branches to it the fallthrough
// continues in place, and a single branch ending the only predecessor is
// folded into that predecessor.  It returns false if the epilog is
// unreachable.
func (sgf *PILGenFunction) emitEpilogBB(loc *report.TextSpan) ([]pil.Value, bool) {
	bb := sgf.ReturnDest.Block()
	preds := sgf.F.Predecessors(bb)
	canFallthrough := sgf.B.HasValidInsertionPoint()

	if len(preds) == 0 {
		sgf.eraseBlock(bb)
		if !canFallthrough {
			return nil, false
		}

		return sgf.fallthroughResults, true
	}

	if len(preds) == 1 && !canFallthrough {
		pred := preds[0]
		if term := sgf.F.Terminator(pred); term.Op == pil.OpBranch && term.Targets[0] == bb {
			results := append([]pil.Value(nil), term.TargetArgs[0]...)

			sgf.F.EraseInst(term.ID)
			sgf.eraseBlock(bb)
			sgf.B.SetInsertionPoint(pred)
			return results, true
		}
	}

	if canFallthrough {
		sgf.B.Raw().CreateBranch(loc, bb, sgf.fallthroughResults)
	}

	sgf.F.MoveBlockBefore(bb, sgf.postmatterStart)
	sgf.B.SetInsertionPoint(bb)
	return sgf.F.Block(bb).Args, true
}

// directResultValue packs the direct results into the returned value.
func (sgf *PILGenFunction) directResultValue(loc *report.TextSpan, results []pil.Value) pil.Value {
	if len(results) == 1 {
		return results[0]
	}

	return sgf.B.Raw().CreateTuple(loc, sgf.F.Sig.DirectResultType(), results)
}

// emitRethrowEpilog emits the block rethrowing errors out of the function.
func (sgf *PILGenFunction) emitRethrowEpilog(loc *report.TextSpan) {
	if !sgf.ThrowDest.IsValid() {
		return
	}

	bb := sgf.ThrowDest.Block()
	if len(sgf.F.Predecessors(bb)) == 0 {
		sgf.eraseBlock(bb)
		return
	}

	sgf.B.SetInsertionPoint(bb)
	sgf.Cleanups.EmitCleanupsForReturn(loc, true)
	sgf.B.Raw().CreateThrow(loc, sgf.F.Block(bb).Args[0])
}

// emitCoroutineUnwindEpilog emits the block a coroutine unwinds through when
// its caller abandons it at a yield.
func (sgf *PILGenFunction) emitCoroutineUnwindEpilog(loc *report.TextSpan) {
	if !sgf.CoroutineUnwindDest.IsValid() {
		return
	}

	bb := sgf.CoroutineUnwindDest.Block()
	if len(sgf.F.Predecessors(bb)) == 0 {
		sgf.eraseBlock(bb)
		return
	}

	sgf.B.SetInsertionPoint(bb)
	sgf.Cleanups.EmitCleanupsForReturn(loc, true)
	sgf.B.Raw().CreateUnwind(loc)
}
