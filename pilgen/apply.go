package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// emitCallExpr lowers a call.  The callee is evaluated first, then the
// arguments from left to right.
func (sgf *PILGenFunction) emitCallExpr(call *ast.CallExpr) *RValue {
	loc := call.Span()

	var (
		callee pil.Value
		sig    *pil.FunctionSignature
		self   *RValue
	)

	if mr, ok := call.Func.(*ast.MethodRef); ok {
		callee, sig, self = sgf.emitMethodCallee(mr)
	} else if fd := calledDecl(call.Func); fd != nil {
		sgf.markFunctionEscape(loc, fd)

		f := sgf.SGM.GetFunction(pil.FuncRef(fd), false)
		callee, sig = sgf.B.Raw().CreateFunctionRef(loc, f), f.Sig
	} else {
		ft, ok := call.Func.Type().(*types.FuncType)
		if !ok {
			report.ReportICE("calling a value of non-function type %s", call.Func.Type().Repr())
		}

		callee = sgf.EmitRValue(call.Func).GetAsSingleValue(sgf, loc).Value()
		sig = sgf.Types().LowerNaturalSignature(ft, nil)
	}

	args := sgf.emitArgExprs(sig, call.Args)
	if self != nil {
		args = append(args, self)
	}

	return sgf.emitApply(loc, callee, sig, args)
}

// calledDecl returns the function declaration a callee expression names
// directly or nil.
func calledDecl(e ast.Expr) *ast.FuncDecl {
	if ref, ok := e.(*ast.DeclRef); ok {
		fd, _ := ref.Decl.(*ast.FuncDecl)
		return fd
	}

	return nil
}

// emitArgExprs evaluates the explicit arguments of a call.  Arguments passed
// inout are evaluated as lvalues.
func (sgf *PILGenFunction) emitArgExprs(sig *pil.FunctionSignature, exprs []ast.Expr) []*RValue {
	args := make([]*RValue, len(exprs))

	leaf := 0
	for i, e := range exprs {
		if sig.ParamLeafCounts[i] == 1 && sig.Params[leaf].Conv == pil.ParamIndirectInout {
			args[i] = NewRValue(sgf, e.Span(), ManagedLValue(sgf.emitLValue(e)), e.Type())
		} else {
			args[i] = sgf.EmitRValue(e)
		}

		leaf += sig.ParamLeafCounts[i]
	}

	return args
}

// emitMethodCallee evaluates the self argument of a method call and the
// function to call: a direct reference for final methods and struct methods,
// a vtable lookup for overridable class methods, and a witness table lookup
// for protocol requirements.
func (sgf *PILGenFunction) emitMethodCallee(ref *ast.MethodRef) (pil.Value, *pil.FunctionSignature, *RValue) {
	loc := ref.Span()
	method := ref.Method

	var self ManagedValue
	if method.Static || ref.Base == nil {
		meta := method.SelfType().(*types.MetatypeType)
		self = ManagedTrivial(sgf.B.Raw().CreateMetatype(loc, meta.Instance))
	} else {
		self = sgf.EmitRValue(ref.Base).GetAsSingleValue(sgf, loc)
	}

	switch parent := method.Parent.(type) {
	case *ast.ClassDecl:
		if method.Final || method.Static {
			break
		}

		root := rootMethod(method)
		sig := sgf.SGM.SignatureOf(pil.FuncRef(root))

		self = sgf.upcastSelf(loc, self, root.SelfType())
		callee := sgf.B.Raw().CreateClassMethod(loc, self.Value(), pil.FuncRef(root), sig.FuncValueType())
		return callee, sig, NewRValue(sgf, loc, self, root.SelfType())
	case *ast.ProtocolDecl:
		lookupType := self.Type().Formal
		if ref.Base != nil {
			lookupType = ref.Base.Type()
		}

		conformance := sgf.SGM.lookupConformance(lookupType, parent)
		sig := sgf.SGM.SignatureOf(pil.FuncRef(method))

		callee := sgf.B.Raw().CreateWitnessMethod(loc, lookupType, conformance, pil.FuncRef(method), sig.FuncValueType())
		return callee, sig, NewRValue(sgf, loc, self, lookupType)
	}

	f := sgf.SGM.GetFunction(pil.FuncRef(method), false)
	self = sgf.upcastSelf(loc, self, method.SelfType())
	return sgf.B.Raw().CreateFunctionRef(loc, f), f.Sig, NewRValue(sgf, loc, self, method.SelfType())
}

// upcastSelf converts a class instance to the class declaring the method
// called on it.
func (sgf *PILGenFunction) upcastSelf(loc *report.TextSpan, self ManagedValue, to types.Type) ManagedValue {
	if _, ok := to.(*types.ClassType); !ok || types.Equals(self.Type().Formal, to) {
		return self
	}

	return sgf.B.CreateUpcast(loc, self, pil.ObjectType(to))
}

// rootMethod returns the least derived method a method overrides.
func rootMethod(fd *ast.FuncDecl) *ast.FuncDecl {
	for fd.Overridden != nil {
		fd = fd.Overridden
	}

	return fd
}

// -----------------------------------------------------------------------------

// emitApply calls callee with the formal arguments args and returns the
// formal result.  Indirect results are returned through temporaries.  A call
// to a throwing function continues on the normal path; the error path
// branches to the throw destination.
func (sgf *PILGenFunction) emitApply(loc *report.TextSpan, callee pil.Value, sig *pil.FunctionSignature, args []*RValue) *RValue {
	var (
		temps    []*TemporaryInitialization
		argVals  []pil.Value
		resultTy = sig.DirectResultType()
	)

	for _, res := range sig.IndirectResults() {
		ti := sgf.NewTemporaryInitialization(loc, res.Type.ObjectType())
		temps = append(temps, ti)
		argVals = append(argVals, ti.Address())
	}

	argVals = append(argVals, sgf.lowerArgs(loc, sig, args)...)

	var direct pil.Value
	if sig.ErrorResult != nil {
		if !sgf.ThrowDest.IsValid() {
			report.ReportICE("call to a throwing function outside of a throwing context")
		}

		normalBB := sgf.CreateBasicBlock()
		direct = sgf.F.AddBlockArg(normalBB, resultTy, sgf.resultOwnership(resultTy))

		errorBB := sgf.CreatePostmatterBlock()
		errArg := sgf.F.AddBlockArg(errorBB, sig.ErrorResult.Type, sgf.resultOwnership(sig.ErrorResult.Type))

		sgf.B.Raw().CreateTryApply(loc, callee, sig, argVals, normalBB, errorBB)

		sgf.B.SetInsertionPoint(errorBB)
		sgf.Cleanups.EmitBranchAndCleanups(sgf.ThrowDest, loc, []pil.Value{errArg}, true)

		sgf.B.SetInsertionPoint(normalBB)
	} else {
		direct = sgf.B.Raw().CreateApply(loc, callee, sig, argVals)
	}

	for _, ti := range temps {
		ti.FinishInitialization(sgf)
	}

	var directs []ManagedValue
	switch len(sig.DirectResults()) {
	case 0:
	case 1:
		directs = []ManagedValue{sgf.ManagedFromOwned(direct)}
	default:
		directs = sgf.B.CreateDestructureTuple(loc, sgf.ManagedFromOwned(direct))
	}

	return sgf.buildResult(loc, sig.Pattern.FuncResult(), sig.Formal.Result, &directs, &temps)
}

// resultOwnership is the ownership of a block argument receiving a +1 value.
func (sgf *PILGenFunction) resultOwnership(typ pil.Type) pil.OwnershipKind {
	if !sgf.F.HasOwnership || sgf.Types().IsTrivial(typ) {
		return pil.OwnershipNone
	}

	return pil.OwnershipOwned
}

// buildResult rebuilds a formal result out of the lowered results of a call.
func (sgf *PILGenFunction) buildResult(loc *report.TextSpan, pattern types.AbstractionPattern, typ types.Type, directs *[]ManagedValue, temps *[]*TemporaryInitialization) *RValue {
	if tt, ok := typ.(*types.TupleType); ok && pattern.IsTuple() && pattern.NumTupleElements() == len(tt.Elems) {
		rv := NewIncompleteRValue(typ)
		for i, elem := range tt.Elems {
			rv.AddElement(sgf.buildResult(loc, pattern.TupleElement(i), elem.Type, directs, temps))
		}

		return rv
	}

	if sgf.Types().GetTypeLowering(pattern, typ).IsAddressOnly() {
		ti := (*temps)[0]
		*temps = (*temps)[1:]
		return NewRValue(sgf, loc, ti.ManagedAddress(), typ)
	}

	mv := (*directs)[0]
	*directs = (*directs)[1:]
	return NewRValue(sgf, loc, mv, typ)
}

// -----------------------------------------------------------------------------

// lowerArgs converts formal arguments to the lowered parameters of sig.
func (sgf *PILGenFunction) lowerArgs(loc *report.TextSpan, sig *pil.FunctionSignature, args []*RValue) []pil.Value {
	var out []pil.Value

	infos := sig.Params
	for i, arg := range args {
		if sig.ParamLeafCounts[i] == 1 && infos[0].Conv == pil.ParamIndirectInout {
			out = append(out, arg.GetAsSingleValue(sgf, loc).Value())
			infos = infos[1:]
			continue
		}

		infos = sgf.lowerArg(loc, sig.Pattern.FuncParam(i), arg, infos, &out)
	}

	return out
}

// lowerArg converts a single formal argument lowered under pattern, appending
// the lowered values to out.  It returns the parameter infos left over.
func (sgf *PILGenFunction) lowerArg(loc *report.TextSpan, pattern types.AbstractionPattern, arg *RValue, infos []pil.ParamInfo, out *[]pil.Value) []pil.ParamInfo {
	if tt, ok := arg.Type().(*types.TupleType); ok && pattern.IsTuple() && pattern.NumTupleElements() == len(tt.Elems) {
		for i, elem := range arg.ExtractElements() {
			infos = sgf.lowerArg(loc, pattern.TupleElement(i), elem, infos, out)
		}

		return infos
	}

	var v pil.Value
	switch infos[0].Conv {
	case pil.ParamDirectOwned:
		v = arg.ForwardAsSingleValue(sgf, loc)
	case pil.ParamDirectGuaranteed, pil.ParamDirectUnowned:
		v = arg.GetAsSingleValue(sgf, loc).Value()
	case pil.ParamIndirectIn:
		// the callee consumes the temporary's contents; only its deallocation
		// is left to the scope
		mv := arg.GetAsSingleValue(sgf, loc).EnsurePlusOne(sgf, loc).Materialize(sgf, loc)
		v = mv.Forward(sgf)
	case pil.ParamIndirectInGuaranteed:
		mv := arg.GetAsSingleValue(sgf, loc)
		if !mv.Type().IsAddress() {
			mv = mv.Materialize(sgf, loc)
		}

		v = mv.Value()
	default:
		report.ReportICE("passing an rvalue of type %s inout", arg.Type().Repr())
	}

	*out = append(*out, v)
	return infos[1:]
}
