package pilgen

import (
	"pilc/ast"
	"pilc/common"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// emitGlobalVarDecl lowers a global variable declaration.  Script globals are
// initialized in order by the script entry point.  Other globals are
// initialized lazily: the first call to the global's accessor runs its
// one-time initializer.
func (sgm *PILGenModule) emitGlobalVarDecl(gd *ast.GlobalVarDecl) {
	vd := gd.Var
	sgm.getGlobal(vd)

	if sgm.Options.ScriptMode {
		sgm.scriptGlobals[sgm.currentFile] = append(sgm.scriptGlobals[sgm.currentFile], gd)
		return
	}

	sgm.globalInits[vd] = gd.Init

	sgm.emitOrDelay(pil.GlobalInitRef(vd), func(f *pil.Function) {
		sgm.emitGlobalInitializer(f, gd)
	})

	sgm.emitOrDelay(pil.GlobalAccessorRef(vd), func(f *pil.Function) {
		sgm.emitGlobalAccessor(f, vd)
	})
}

// emitImplicitBody emits a function with no formal parameters whose body is
// produced by body.  body returns the direct results or nil if the end of the
// body is unreachable.
func (sgm *PILGenModule) emitImplicitBody(f *pil.Function, loc *report.TextSpan, topLevel bool, body func(sgf *PILGenFunction) []pil.Value) {
	sgf := NewPILGenFunction(sgm, f)
	sgf.isTopLevel = topLevel
	f.Loc = loc

	sgf.emitProlog(loc, f.Sig, f.Sig.Formal)
	sgf.prepareEpilog(loc, f.Sig.Formal.Result, f.Sig.Pattern.FuncResult(), false, false)

	scope := sgf.Cleanups.EnterScope(loc)
	sgf.fallthroughResults = body(sgf)
	sgf.hasFallthroughReturn = true
	scope.Exit()

	sgf.emitEpilogs(loc)
}

// emitGlobalInitializer emits the one-time initializer of a global: it stores
// the initial value to the global's storage.
func (sgm *PILGenModule) emitGlobalInitializer(f *pil.Function, gd *ast.GlobalVarDecl) {
	sgm.emitImplicitBody(f, gd.Span(), false, func(sgf *PILGenFunction) []pil.Value {
		if gd.Init != nil {
			sgf.emitGlobalInit(gd)
		}

		return nil
	})
}

// emitGlobalAccessor emits the accessor of a global: it runs the global's
// initializer once and returns the address of its storage.
func (sgm *PILGenModule) emitGlobalAccessor(f *pil.Function, vd *ast.VarDecl) {
	sgm.emitImplicitBody(f, vd.Span(), false, func(sgf *PILGenFunction) []pil.Value {
		loc := vd.Span()

		if sgm.globalInits[vd] != nil {
			init := sgf.B.Raw().CreateFunctionRef(loc, sgm.GetFunction(pil.GlobalInitRef(vd), false))
			sgf.B.Raw().CreateBuiltin(loc, "once", pil.ObjectType(types.Unit()), []pil.Value{init})
		}

		addr := sgf.B.Raw().CreateGlobalAddr(loc, sgm.getGlobal(vd))
		return []pil.Value{sgf.B.Raw().CreateAddressToPointer(loc, addr)}
	})
}

// emitGlobalInit evaluates the initial value of a global into its storage.
func (sgf *PILGenFunction) emitGlobalInit(gd *ast.GlobalVarDecl) {
	addr := sgf.B.Raw().CreateGlobalAddr(gd.Span(), sgf.SGM.getGlobal(gd.Var))

	scope := sgf.Cleanups.EnterScope(gd.Span())
	init := NewKnownAddressInitialization(addr)
	sgf.EmitExprInto(gd.Init, init)
	init.FinishInitialization(sgf)
	scope.Exit()
}

// -----------------------------------------------------------------------------

// emitScriptMain emits the entry point of a module compiled as a script: the
// globals of each file are initialized in declaration order followed by the
// file's top-level statements.  Files are visited in order.
func (sgm *PILGenModule) emitScriptMain() *pil.Function {
	ft := &types.FuncType{Result: types.PrimTypeI32, Thin: true}
	f := sgm.M.CreateFunction(common.ScriptEntryPointName, sgm.Types().LowerNaturalSignature(ft, nil), pil.LinkagePublic)

	sgm.emitImplicitBody(f, nil, true, func(sgf *PILGenFunction) []pil.Value {
		for _, file := range sgm.AST.Files {
			sgm.currentFile = file

			for _, gd := range sgm.scriptGlobals[file] {
				if gd.Init != nil && sgf.B.HasValidInsertionPoint() {
					sgf.emitGlobalInit(gd)
				}
			}

			for _, stmt := range file.TopLevel {
				if !sgf.B.HasValidInsertionPoint() {
					break
				}

				sgf.emitStmt(stmt)
			}
		}

		if !sgf.B.HasValidInsertionPoint() {
			return nil
		}

		zero := sgf.B.Raw().CreateIntegerLiteral(nil, pil.ObjectType(types.PrimTypeI32), 0)
		return []pil.Value{zero}
	})

	sgm.postEmitFunction(f)
	return f
}
