package pilgen

import (
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// thunkCallee produces the function a thunk forwards to out of the thunk's
// parameters.  It returns the callee, its signature and the formal arguments
// to pass it.
type thunkCallee func(sgf *PILGenFunction, loc *report.TextSpan, params []*RValue) (pil.Value, *pil.FunctionSignature, []*RValue)

// emitForwardingThunk emits the body of a thunk: the parameters are taken
// under the thunk's signature, passed to the callee under its own signature,
// and the callee's results are returned under the thunk's signature again.
func (sgm *PILGenModule) emitForwardingThunk(f *pil.Function, loc *report.TextSpan, callee thunkCallee) {
	if f.Sig.Coroutine {
		report.ReportICE("cannot emit a thunk for coroutine %s", f.Name)
	}

	sgf := NewPILGenFunction(sgm, f)
	f.Loc = loc

	params := sgf.emitProlog(loc, f.Sig, f.Sig.Formal)
	sgf.prepareEpilog(loc, f.Sig.Formal.Result, f.Sig.Pattern.FuncResult(), f.Sig.ErrorResult != nil, false)

	scope := sgf.Cleanups.EnterScope(loc)
	fn, sig, args := callee(sgf, loc, params)
	rv := sgf.emitApply(loc, fn, sig, args)
	sgf.fallthroughResults = sgf.forwardResults(loc, rv)
	sgf.hasFallthroughReturn = true
	scope.Exit()

	sgf.emitEpilogs(loc)
	sgm.postEmitFunction(f)
}

// createThunk creates a function for a thunk.  Thunks are emitted as soon as
// they are created.
func (sgm *PILGenModule) createThunk(name string, sig *pil.FunctionSignature, linkage pil.Linkage, kind pil.ThunkKind) *pil.Function {
	f := sgm.M.CreateFunction(name, sig, linkage)
	f.Thunk = kind
	return f
}

// -----------------------------------------------------------------------------

// getReabstractionThunk returns the thunk adapting a thick function of
// signature from to signature to.  The thunk takes the parameters of to
// followed by the function to call: it is partially applied to that function
// to form the converted value.
func (sgm *PILGenModule) getReabstractionThunk(from, to *pil.FunctionSignature) *pil.Function {
	name := sgm.mangler.MangleReabstractionThunk(from, to)
	if f, ok := sgm.reabstractionThunks[name]; ok {
		return f
	}

	ctxType := from.Formal.WithThin(false)

	formal := &types.FuncType{
		Params: append(append([]types.Type(nil), to.Formal.Params...), ctxType),
		Result: to.Formal.Result,
		Throws: to.Formal.Throws,
		Thin:   true,
	}

	pattern := types.OpaquePattern()
	if pt, ok := to.Pattern.Type().(*types.FuncType); ok {
		pattern = types.PatternOf(&types.FuncType{
			Params: append(append([]types.Type(nil), pt.Params...), ctxType),
			Result: pt.Result,
			Throws: pt.Throws,
			Thin:   true,
		})
	}

	sig := sgm.Types().LowerSignature(pattern, formal, nil)
	f := sgm.createThunk(name, sig, pil.LinkageShared, pil.ThunkReabstraction)
	sgm.reabstractionThunks[name] = f

	sgm.emitForwardingThunk(f, nil, func(sgf *PILGenFunction, loc *report.TextSpan, params []*RValue) (pil.Value, *pil.FunctionSignature, []*RValue) {
		last := len(params) - 1
		fn := params[last].GetAsSingleValue(sgf, loc)
		return fn.Value(), from, params[:last]
	})

	return f
}
