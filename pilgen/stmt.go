package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// emitStmt lowers a single statement at the current insertion point.
func (sgf *PILGenFunction) emitStmt(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.Block:
		sgf.emitBlock(v)
	case *ast.VarDeclStmt:
		sgf.emitVarDecl(v)
	case *ast.AssignStmt:
		sgf.emitAssign(v)
	case *ast.ExprStmt:
		sgf.emitIgnoredExpr(v.Expr)
	case *ast.IfStmt:
		sgf.emitIf(v)
	case *ast.WhileStmt:
		sgf.emitWhile(v)
	case *ast.BreakStmt:
		sgf.Cleanups.EmitBranchAndCleanups(sgf.lookupLoop(v.Label, v.Span()).breakTo, v.Span(), nil, false)
	case *ast.ContinueStmt:
		sgf.Cleanups.EmitBranchAndCleanups(sgf.lookupLoop(v.Label, v.Span()).continueTo, v.Span(), nil, false)
	case *ast.SwitchEnumStmt:
		sgf.emitSwitchEnum(v)
	case *ast.ReturnStmt:
		sgf.emitReturnStmt(v)
	case *ast.ThrowStmt:
		sgf.emitThrow(v)
	case *ast.DeferStmt:
		sgf.Cleanups.PushCleanup(&deferCleanup{body: v.Body})
	case *ast.YieldStmt:
		sgf.emitYield(v)
	default:
		report.ReportICE("lowering unknown statement %T", stmt)
	}
}

// emitBlock lowers a block in its own scope.  Statements after the block stops
// falling through are dead: they are reported and not emitted.
func (sgf *PILGenFunction) emitBlock(block *ast.Block) {
	scope := sgf.Cleanups.EnterScope(block.Span())
	sgf.pushDebugScope(block.Span())

	for _, stmt := range block.Stmts {
		if !sgf.B.HasValidInsertionPoint() {
			sgf.SGM.reportWarning(stmt.Span(), "code after this point will never be executed")
			break
		}

		sgf.emitStmt(stmt)
	}

	sgf.popDebugScope()
	scope.Exit()
}

// emitIgnoredExpr evaluates an expression for its side effects only.
func (sgf *PILGenFunction) emitIgnoredExpr(e ast.Expr) {
	scope := sgf.Cleanups.EnterScope(e.Span())
	sgf.EmitExprInto(e, BlackHoleInitialization{})
	scope.Exit()
}

// emitCondition evaluates a Bool condition to a trivial value.
func (sgf *PILGenFunction) emitCondition(e ast.Expr) pil.Value {
	scope := sgf.Cleanups.EnterScope(e.Span())
	cond := sgf.EmitRValue(e).GetAsSingleValue(sgf, e.Span()).Value()
	scope.Exit()

	return cond
}

// continueIn makes a join block the insertion point if anything branches to
// it and erases it otherwise.
func (sgf *PILGenFunction) continueIn(bb pil.BlockID) {
	if len(sgf.F.Predecessors(bb)) == 0 {
		sgf.eraseBlock(bb)
		sgf.B.ClearInsertionPoint()
		return
	}

	sgf.F.MoveBlockBefore(bb, sgf.postmatterStart)
	sgf.B.SetInsertionPoint(bb)
}

// -----------------------------------------------------------------------------

// emitVarDecl lowers a local variable declaration.  Immutable variables with
// an initial value are bound directly to it; everything else lives in a box.
func (sgf *PILGenFunction) emitVarDecl(s *ast.VarDeclStmt) {
	vd := s.Var
	loc := s.Span()

	if !vd.Mutable && vd.Wrapper == nil && s.Init != nil {
		init := sgf.NewLetValueInitialization(loc, vd)

		scope := sgf.Cleanups.EnterScope(loc)
		sgf.EmitExprInto(s.Init, init)
		scope.Exit()

		init.FinishInitialization(sgf)
		return
	}

	storage := vd.Type
	if vd.Wrapper != nil {
		storage = vd.Wrapper.BackingType
	}

	box := sgf.B.Raw().CreateAllocBox(loc, pil.ObjectType(storage))
	sgf.pushDestroyValue(box)

	addr := sgf.B.Raw().CreateProjectBox(loc, box)
	addr = sgf.B.Raw().CreateMarkUninitialized(loc, addr)
	sgf.VarLocs[vd] = VarLoc{Value: addr, Box: box}

	if s.Init == nil {
		return
	}

	scope := sgf.Cleanups.EnterScope(loc)
	if vd.Wrapper != nil {
		sgf.emitAssignByWrapper(loc, vd, addr, sgf.EmitRValue(s.Init))
	} else {
		init := NewKnownAddressInitialization(addr)
		sgf.EmitExprInto(s.Init, init)
		init.FinishInitialization(sgf)
	}
	scope.Exit()
}

// emitAssign lowers an assignment to mutable storage.
func (sgf *PILGenFunction) emitAssign(s *ast.AssignStmt) {
	loc := s.Span()

	scope := sgf.Cleanups.EnterScope(loc)
	src := sgf.EmitRValue(s.Src)
	dest := sgf.emitLValue(s.Dest)

	switch {
	case wrappedVar(s.Dest) != nil:
		sgf.emitAssignByWrapper(loc, wrappedVar(s.Dest), dest, src)
	case sgf.Types().Lowering(src.Type()).IsLoadable():
		sgf.B.Raw().CreateAssign(loc, src.ForwardAsSingleValue(sgf, loc), dest)
	default:
		src.AssignInto(sgf, loc, dest)
	}

	scope.Exit()
}

// wrappedVar returns the variable with a property wrapper an expression refers
// to or nil.
func wrappedVar(e ast.Expr) *ast.VarDecl {
	if ref, ok := e.(*ast.DeclRef); ok {
		if vd, ok := ref.Decl.(*ast.VarDecl); ok && vd.Wrapper != nil {
			return vd
		}
	}

	return nil
}

// emitAssignByWrapper writes a value through a property wrapper: whether the
// wrapper is initialized or its setter called is decided once definite
// initialization has run.
func (sgf *PILGenFunction) emitAssignByWrapper(loc *report.TextSpan, vd *ast.VarDecl, addr pil.Value, src *RValue) {
	initFn := sgf.SGM.GetFunction(pil.FuncRef(vd.Wrapper.Init), false)
	setterFn := sgf.SGM.GetFunction(pil.FuncRef(vd.Wrapper.Setter), false)

	value := src.ForwardAsSingleValue(sgf, loc)
	initRef := sgf.B.Raw().CreateFunctionRef(loc, initFn)
	setterRef := sgf.B.Raw().CreateFunctionRef(loc, setterFn)
	sgf.B.Raw().CreateAssignByWrapper(loc, value, addr, initRef, setterRef)
}

// -----------------------------------------------------------------------------

func (sgf *PILGenFunction) emitIf(s *ast.IfStmt) {
	loc := s.Span()
	cond := sgf.emitCondition(s.Cond)

	thenBB := sgf.CreateBasicBlock()
	contBB := sgf.CreateBasicBlock()
	elseBB := contBB
	if s.Else != nil {
		elseBB = sgf.CreateBasicBlock()
	}

	sgf.B.Raw().CreateCondBranch(loc, cond, thenBB, elseBB)

	sgf.B.SetInsertionPoint(thenBB)
	sgf.emitBlock(s.Then)
	if sgf.B.HasValidInsertionPoint() {
		sgf.B.Raw().CreateBranch(loc, contBB, nil)
	}

	if s.Else != nil {
		sgf.F.MoveBlockBefore(elseBB, sgf.postmatterStart)
		sgf.B.SetInsertionPoint(elseBB)
		sgf.emitStmt(s.Else)
		if sgf.B.HasValidInsertionPoint() {
			sgf.B.Raw().CreateBranch(loc, contBB, nil)
		}
	}

	sgf.continueIn(contBB)
}

func (sgf *PILGenFunction) emitWhile(s *ast.WhileStmt) {
	loc := s.Span()

	condBB := sgf.CreateBasicBlock()
	sgf.B.EmitBlock(loc, condBB)
	cond := sgf.emitCondition(s.Cond)

	bodyBB := sgf.CreateBasicBlock()
	exitBB := sgf.CreateBasicBlock()
	sgf.B.Raw().CreateCondBranch(loc, cond, bodyBB, exitBB)

	depth := sgf.Cleanups.Depth()
	sgf.loops = append(sgf.loops, loopDest{
		label:      s.Label,
		breakTo:    NewJumpDest(exitBB, depth, loc),
		continueTo: NewJumpDest(condBB, depth, loc),
	})

	sgf.B.SetInsertionPoint(bodyBB)
	sgf.emitBlock(s.Body)
	if sgf.B.HasValidInsertionPoint() {
		sgf.B.Raw().CreateBranch(loc, condBB, nil)
	}

	sgf.loops = sgf.loops[:len(sgf.loops)-1]
	sgf.continueIn(exitBB)
}

// lookupLoop finds the loop a break or continue refers to: the innermost one
// or the one with the given label.
func (sgf *PILGenFunction) lookupLoop(label string, loc *report.TextSpan) loopDest {
	for i := len(sgf.loops) - 1; i >= 0; i-- {
		if label == "" || sgf.loops[i].label == label {
			return sgf.loops[i]
		}
	}

	report.ReportICE("no enclosing loop labeled `%s` at %d:%d", label, loc.StartLine, loc.StartCol)
	return loopDest{}
}

// -----------------------------------------------------------------------------

// emitSwitchEnum lowers a switch over the cases of an enum.  The subject is
// borrowed for the duration of the switch; payload bindings are copies.
func (sgf *PILGenFunction) emitSwitchEnum(s *ast.SwitchEnumStmt) {
	loc := s.Span()

	scope := sgf.Cleanups.EnterScope(loc)
	subject := sgf.EmitRValue(s.Subject).GetAsSingleValue(sgf, loc)
	if subject.Type().IsAddress() {
		subject = sgf.B.CreateLoadCopy(loc, subject)
	}

	et, ok := s.Subject.Type().(*types.EnumType)
	if !ok {
		report.ReportICE("switching over non-enum type %s", s.Subject.Type().Repr())
	}

	cases := make([]int, len(s.Cases))
	targets := make([]pil.BlockID, len(s.Cases))
	payloads := make([]pil.Value, len(s.Cases))
	for i, c := range s.Cases {
		cases[i] = c.CaseIndex
		targets[i] = sgf.CreateBasicBlock()

		if payload := et.Cases[c.CaseIndex].Payload; payload != nil {
			ownership := pil.OwnershipNone
			if sgf.F.HasOwnership && !sgf.Types().Lowering(payload).IsTrivial() {
				ownership = pil.OwnershipGuaranteed
			}

			payloads[i] = sgf.F.AddBlockArg(targets[i], pil.ObjectType(payload), ownership)
		}
	}

	var defaultBB pil.BlockID
	if s.Default != nil {
		defaultBB = sgf.CreateBasicBlock()
	}

	contBB := sgf.CreateBasicBlock()

	borrowed := subject.Borrow(sgf, loc)
	sgf.B.Raw().CreateSwitchEnum(loc, borrowed.Value(), cases, targets, defaultBB)
	sgf.switches = append(sgf.switches, &switchContext{subject: borrowed, contBB: contBB})

	for i, c := range s.Cases {
		sgf.B.SetInsertionPoint(targets[i])
		caseScope := sgf.Cleanups.EnterScope(c.Span())

		if c.Binding != nil && payloads[i].IsValid() {
			bound := sgf.managedBorrowedOrTrivial(payloads[i]).Copy(sgf, c.Span())
			sgf.VarLocs[c.Binding] = VarLoc{Value: bound.Value()}
			sgf.B.Raw().CreateDebugValue(c.Span(), bound.Value(), c.Binding.Name)
		}

		sgf.emitBlock(c.Body)
		caseScope.Exit()

		if sgf.B.HasValidInsertionPoint() {
			sgf.B.Raw().CreateBranch(loc, contBB, nil)
		}
	}

	if s.Default != nil {
		sgf.B.SetInsertionPoint(defaultBB)
		sgf.emitBlock(s.Default)
		if sgf.B.HasValidInsertionPoint() {
			sgf.B.Raw().CreateBranch(loc, contBB, nil)
		}
	}

	sgf.switches = sgf.switches[:len(sgf.switches)-1]
	sgf.continueIn(contBB)
	scope.Exit()
}

// managedBorrowedOrTrivial wraps a value owned by someone else.
func (sgf *PILGenFunction) managedBorrowedOrTrivial(v pil.Value) ManagedValue {
	if v.Type().IsObject() && sgf.Types().IsTrivial(v.Type()) {
		return ManagedTrivial(v)
	}

	return ManagedBorrowed(v)
}

// -----------------------------------------------------------------------------

// emitThrow branches to the throw destination running the cleanups on the
// way as an unwind.
func (sgf *PILGenFunction) emitThrow(s *ast.ThrowStmt) {
	loc := s.Span()
	if !sgf.ThrowDest.IsValid() {
		report.ReportICE("throw outside of a throwing function")
	}

	scope := sgf.Cleanups.EnterScope(loc)
	err := sgf.EmitRValue(s.Value).ForwardAsSingleValue(sgf, loc)
	scope.Exit()

	sgf.Cleanups.EmitBranchAndCleanups(sgf.ThrowDest, loc, []pil.Value{err}, true)
}

// emitYield suspends a coroutine yielding borrowed values.  If the caller
// abandons the coroutine, control unwinds to the coroutine's unwind epilog.
func (sgf *PILGenFunction) emitYield(s *ast.YieldStmt) {
	loc := s.Span()
	if !sgf.CoroutineUnwindDest.IsValid() {
		report.ReportICE("yield outside of a coroutine")
	}

	scope := sgf.Cleanups.EnterScope(loc)

	var values []pil.Value
	infos := sgf.F.Sig.Yields
	for i, e := range s.Values {
		infos = sgf.lowerArg(loc, sgf.F.Sig.Pattern.FuncYield(i), sgf.EmitRValue(e), infos, &values)
	}

	resumeBB := sgf.CreateBasicBlock()
	unwindBB := sgf.CreateBasicBlock()
	sgf.B.Raw().CreateYield(loc, values, resumeBB, unwindBB)

	sgf.B.SetInsertionPoint(unwindBB)
	sgf.Cleanups.EmitBranchAndCleanups(sgf.CoroutineUnwindDest, loc, nil, true)

	sgf.B.SetInsertionPoint(resumeBB)
	scope.Exit()
}
