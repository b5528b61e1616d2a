package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// EmitExprInto evaluates an expression directly into an initialization.  A
// tuple literal is written element by element when the initialization can be
// split.
func (sgf *PILGenFunction) EmitExprInto(e ast.Expr, init Initialization) {
	if te, ok := e.(*ast.TupleExpr); ok && init.CanSplitIntoTupleElements() {
		subs := init.SplitIntoTupleElements(sgf, e.Span(), e.Type())
		for i, elem := range te.Elems {
			sgf.EmitExprInto(elem, subs[i])
			subs[i].FinishInitialization(sgf)
		}

		return
	}

	sgf.EmitRValue(e).ForwardInto(sgf, e.Span(), init)
}

// EmitRValue evaluates an expression.  Temporaries created along the way are
// cleaned up by the enclosing scope.
func (sgf *PILGenFunction) EmitRValue(e ast.Expr) *RValue {
	loc := e.Span()

	switch v := e.(type) {
	case *ast.IntegerLiteral:
		lit := sgf.B.Raw().CreateIntegerLiteral(loc, pil.ObjectType(e.Type()), v.Value)
		return NewRValue(sgf, loc, ManagedTrivial(lit), e.Type())
	case *ast.FloatLiteral:
		lit := sgf.B.Raw().CreateFloatLiteral(loc, pil.ObjectType(e.Type()), v.Value)
		return NewRValue(sgf, loc, ManagedTrivial(lit), e.Type())
	case *ast.BoolLiteral:
		var n int64
		if v.Value {
			n = 1
		}

		lit := sgf.B.Raw().CreateIntegerLiteral(loc, pil.ObjectType(e.Type()), n)
		return NewRValue(sgf, loc, ManagedTrivial(lit), e.Type())
	case *ast.DeclRef:
		return sgf.emitDeclRef(v)
	case *ast.TupleExpr:
		rv := NewIncompleteRValue(e.Type())
		for _, elem := range v.Elems {
			rv.AddElement(sgf.EmitRValue(elem))
		}

		return rv
	case *ast.TupleElementExpr:
		return sgf.EmitRValue(v.Tuple).ExtractElement(v.Index)
	case *ast.MemberRef:
		return sgf.emitMemberRef(v)
	case *ast.EnumElementExpr:
		var payload ManagedValue
		if v.Payload != nil {
			payload = sgf.EmitRValue(v.Payload).GetAsSingleValue(sgf, loc)
			if payload.Type().IsAddress() {
				payload = payload.LoadIfLoadable(sgf, loc)
			}
		}

		return NewRValue(sgf, loc, sgf.B.CreateEnum(loc, pil.ObjectType(e.Type()), v.CaseIndex, payload), e.Type())
	case *ast.CallExpr:
		return sgf.emitCallExpr(v)
	case *ast.BinaryExpr:
		lhs := sgf.EmitRValue(v.Lhs).GetAsSingleValue(sgf, loc)
		rhs := sgf.EmitRValue(v.Rhs).GetAsSingleValue(sgf, loc)

		name := v.Op.BuiltinName() + "_" + v.Lhs.Type().Repr()
		res := sgf.B.Raw().CreateBuiltin(loc, name, pil.ObjectType(e.Type()), []pil.Value{lhs.Value(), rhs.Value()})
		return NewRValue(sgf, loc, ManagedTrivial(res), e.Type())
	case *ast.AllocClassExpr:
		return NewRValue(sgf, loc, sgf.B.CreateAllocRef(loc, v.Class.Type), e.Type())
	case *ast.UpcastExpr:
		op := sgf.EmitRValue(v.Operand).GetAsSingleValue(sgf, loc)
		return NewRValue(sgf, loc, sgf.B.CreateUpcast(loc, op, pil.ObjectType(e.Type())), e.Type())
	case *ast.FunctionConversionExpr:
		return sgf.emitFunctionConversion(v)
	case *ast.ErasureExpr:
		return sgf.emitErasure(v)
	case *ast.BridgeExpr:
		return sgf.emitBridge(v)
	case *ast.MethodRef:
		report.ReportICE("unapplied method reference to `%s`", v.Method.Name)
	default:
		report.ReportICE("lowering unknown expression %T", e)
	}

	return nil
}

// emitDeclRef loads the value of a declaration.
func (sgf *PILGenFunction) emitDeclRef(ref *ast.DeclRef) *RValue {
	loc := ref.Span()

	if fd, ok := ref.Decl.(*ast.FuncDecl); ok {
		return sgf.emitFuncRef(loc, fd, ref.Type())
	}

	if vl, ok := sgf.VarLocs[ref.Decl]; ok {
		// the value is borrowed from the variable: loadable values in memory are
		// loaded as copies
		return NewRValue(sgf, loc, sgf.managedBorrowedOrTrivial(vl.Value), ref.Type())
	}

	if vd, ok := ref.Decl.(*ast.VarDecl); ok && vd.Global {
		return NewRValue(sgf, loc, ManagedBorrowed(sgf.emitGlobalAddress(loc, vd)), ref.Type())
	}

	report.ReportICE("reference to `%s` which has no storage", ref.Decl.DeclName())
	return nil
}

// emitFuncRef produces a function value referring to a declaration.
func (sgf *PILGenFunction) emitFuncRef(loc *report.TextSpan, fd *ast.FuncDecl, typ types.Type) *RValue {
	sgf.markFunctionEscape(loc, fd)

	fn := sgf.B.Raw().CreateFunctionRef(loc, sgf.SGM.GetFunction(pil.FuncRef(fd), false))
	if ft, ok := typ.(*types.FuncType); ok && !ft.Thin {
		return NewRValue(sgf, loc, sgf.B.CreateThinToThickFunction(loc, fn, pil.ObjectType(ft)), typ)
	}

	return NewRValue(sgf, loc, ManagedTrivial(fn), typ)
}

// markFunctionEscape records that a function capturing globals escapes before
// the top-level code initializing them has finished running.
func (sgf *PILGenFunction) markFunctionEscape(loc *report.TextSpan, fd *ast.FuncDecl) {
	if !sgf.isTopLevel || len(fd.Captures) == 0 {
		return
	}

	addrs := make([]pil.Value, len(fd.Captures))
	for i, vd := range fd.Captures {
		addrs[i] = sgf.emitGlobalAddress(loc, vd)
	}

	sgf.B.Raw().CreateMarkFunctionEscape(loc, addrs)
}

// emitGlobalAddress returns the address of a global variable.  Script globals
// are addressed directly; other globals go through their lazy accessor.
func (sgf *PILGenFunction) emitGlobalAddress(loc *report.TextSpan, vd *ast.VarDecl) pil.Value {
	if sgf.SGM.Options.ScriptMode {
		return sgf.B.Raw().CreateGlobalAddr(loc, sgf.SGM.getGlobal(vd))
	}

	accessor := sgf.SGM.GetFunction(pil.GlobalAccessorRef(vd), false)
	ref := sgf.B.Raw().CreateFunctionRef(loc, accessor)
	ptr := sgf.B.Raw().CreateApply(loc, ref, accessor.Sig, nil)
	return sgf.B.Raw().CreatePointerToAddress(loc, ptr, pil.AddressType(vd.Type))
}

// emitMemberRef reads a stored property of a struct.
func (sgf *PILGenFunction) emitMemberRef(ref *ast.MemberRef) *RValue {
	loc := ref.Span()
	base := sgf.EmitRValue(ref.Base).GetAsSingleValue(sgf, loc)

	if base.Type().IsAddress() {
		field := sgf.B.Raw().CreateStructElementAddr(loc, base.Value(), ref.FieldIndex)
		return NewRValue(sgf, loc, ManagedBorrowed(field), ref.Type())
	}

	return NewRValue(sgf, loc, sgf.B.CreateStructExtract(loc, base, ref.FieldIndex), ref.Type())
}

// -----------------------------------------------------------------------------

// emitLValue returns the address of mutable storage.
func (sgf *PILGenFunction) emitLValue(e ast.Expr) pil.Value {
	switch v := e.(type) {
	case *ast.DeclRef:
		if vl, ok := sgf.VarLocs[v.Decl]; ok && vl.IsAddress() {
			return vl.Value
		}

		if vd, ok := v.Decl.(*ast.VarDecl); ok && vd.Global {
			return sgf.emitGlobalAddress(e.Span(), vd)
		}
	case *ast.MemberRef:
		return sgf.B.Raw().CreateStructElementAddr(e.Span(), sgf.emitLValue(v.Base), v.FieldIndex)
	case *ast.TupleElementExpr:
		return sgf.B.Raw().CreateTupleElementAddr(e.Span(), sgf.emitLValue(v.Tuple), v.Index)
	}

	report.ReportICE("expression of type %T is not an lvalue", e)
	return pil.Value{}
}

// -----------------------------------------------------------------------------

// emitFunctionConversion converts a function value to the representation
// expected by its destination, wrapping it in a reabstraction thunk when the
// two calling conventions differ.
func (sgf *PILGenFunction) emitFunctionConversion(conv *ast.FunctionConversionExpr) *RValue {
	loc := conv.Span()

	fromType := conv.Operand.Type().(*types.FuncType)
	fn := sgf.EmitRValue(conv.Operand).GetAsSingleValue(sgf, loc)
	if fromType.Thin {
		fromType = fromType.WithThin(false)
		fn = sgf.B.CreateThinToThickFunction(loc, fn.Value(), pil.ObjectType(fromType))
	}

	from := sgf.Types().LowerNaturalSignature(fromType, nil)
	to := sgf.Types().LowerSignature(types.PatternOf(conv.Pattern), fromType, nil)
	if pil.CheckABICompatibility(from, to) == pil.ABICompatible {
		return NewRValue(sgf, loc, fn, conv.Type())
	}

	thunk := sgf.SGM.getReabstractionThunk(from, to)
	ref := sgf.B.Raw().CreateFunctionRef(loc, thunk)
	closure := sgf.B.CreatePartialApply(loc, ref, []ManagedValue{fn}, pil.ObjectType(conv.Type()))
	return NewRValue(sgf, loc, closure, conv.Type())
}

// emitErasure wraps a concrete value in an existential container.
func (sgf *PILGenFunction) emitErasure(erase *ast.ErasureExpr) *RValue {
	loc := erase.Span()
	operand := sgf.EmitRValue(erase.Operand)

	sgf.SGM.useConformance(erase.Conformance)

	tmp := sgf.NewTemporaryInitialization(loc, pil.ObjectType(erase.Type()))
	payload := sgf.B.Raw().CreateInitExistentialAddr(loc, tmp.Address(), erase.Operand.Type(), erase.Conformance.Repr())

	init := NewKnownAddressInitialization(payload)
	operand.ForwardInto(sgf, loc, init)
	init.FinishInitialization(sgf)
	tmp.FinishInitialization(sgf)

	return NewRValue(sgf, loc, tmp.ManagedAddress(), erase.Type())
}

// emitBridge converts a value through a runtime support function.  A module
// which lacks the support function cannot be compiled.
func (sgf *PILGenFunction) emitBridge(bridge *ast.BridgeExpr) *RValue {
	loc := bridge.Span()

	fd, ok := sgf.SGM.AST.RuntimeFuncs[bridge.Intrinsic]
	if !ok {
		sgf.SGM.reportError(loc, "missing runtime support function `%s` needed to bridge %s", bridge.Intrinsic, bridge.Operand.Type().Repr())
		report.ReportFatal("cannot lower module `%s` without runtime support for bridging", sgf.SGM.AST.Name)
	}

	fn := sgf.SGM.GetFunction(pil.FuncRef(fd), false)
	ref := sgf.B.Raw().CreateFunctionRef(loc, fn)
	return sgf.emitApply(loc, ref, fn.Sig, []*RValue{sgf.EmitRValue(bridge.Operand)})
}
