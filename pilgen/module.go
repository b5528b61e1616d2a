package pilgen

import (
	"fmt"

	"pilc/ast"
	"pilc/common"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// delayedFunction is a function whose emission was put off until something
// references it.
type delayedFunction struct {
	ref     pil.DeclRef
	emitter func(f *pil.Function)

	// The function the delayed function is laid out after once it is forced.
	// This keeps delayed functions in the order they were recorded.
	insertAfter *pil.Function
	seq         int

	// The file the declaration came from.
	file *ast.SourceFile
}

// vtableThunkKey identifies a vtable thunk: a base method and the override
// dispatched to through its slot.
type vtableThunkKey struct {
	base, derived *ast.FuncDecl
}

// witnessThunkKey identifies a witness thunk.
type witnessThunkKey struct {
	conformance *ast.Conformance
	requirement *ast.FuncDecl
}

// PILGenModule is the lowering session of a single module.  It owns the PIL
// module being produced and decides when each function is emitted: functions
// that can be pruned are delayed until they are referenced.  A PILGenModule
// is not safe for concurrent use.
type PILGenModule struct {
	M       *pil.Module
	AST     *ast.Module
	Options *common.Options

	mangler *Mangler

	// emittedFunctions holds the single function created for every
	// declaration reference.  A function is created when the declaration is
	// first referenced or defined.
	emittedFunctions map[pil.DeclRef]*pil.Function

	delayedFunctions map[pil.DeclRef]*delayedFunction
	forcedFunctions  []*delayedFunction
	delaySeq         int

	// lastEmittedFunction is the last function emitted eagerly.
	lastEmittedFunction *pil.Function

	pendingConformances []*ast.Conformance
	usedConformances    map[*ast.Conformance]bool

	globals     map[*ast.VarDecl]*pil.GlobalVariable
	globalInits map[*ast.VarDecl]ast.Expr

	// scriptGlobals are the globals of each file initialized by the script
	// entry point in declaration order.
	scriptGlobals map[*ast.SourceFile][]*ast.GlobalVarDecl

	vtableThunks        map[vtableThunkKey]*pil.Function
	witnessThunks       map[witnessThunkKey]*pil.Function
	reabstractionThunks map[string]*pil.Function

	// The file whose declarations are being lowered.
	currentFile *ast.SourceFile
}

// NewPILGenModule creates a lowering session for an AST module.
func NewPILGenModule(astMod *ast.Module, opts *common.Options) *PILGenModule {
	name := astMod.Name
	if name == "" {
		name = opts.ModuleName
	}

	return &PILGenModule{
		M:                   pil.NewModule(name, opts.Ownership),
		AST:                 astMod,
		Options:             opts,
		mangler:             NewMangler(name),
		emittedFunctions:    make(map[pil.DeclRef]*pil.Function),
		delayedFunctions:    make(map[pil.DeclRef]*delayedFunction),
		usedConformances:    make(map[*ast.Conformance]bool),
		globals:             make(map[*ast.VarDecl]*pil.GlobalVariable),
		globalInits:         make(map[*ast.VarDecl]ast.Expr),
		scriptGlobals:       make(map[*ast.SourceFile][]*ast.GlobalVarDecl),
		vtableThunks:        make(map[vtableThunkKey]*pil.Function),
		witnessThunks:       make(map[witnessThunkKey]*pil.Function),
		reabstractionThunks: make(map[string]*pil.Function),
	}
}

// Types returns the module's type converter.
func (sgm *PILGenModule) Types() *pil.TypeConverter {
	return sgm.M.Types
}

// -----------------------------------------------------------------------------

// GetFunction returns the function for a declaration reference, creating it
// if it does not exist yet.  Referencing a delayed declaration forces it to be
// emitted.  A function obtained for its definition gets the definition's
// linkage.
func (sgm *PILGenModule) GetFunction(ref pil.DeclRef, forDefinition bool) *pil.Function {
	if f, ok := sgm.emittedFunctions[ref]; ok {
		if forDefinition {
			f.Linkage = f.Linkage.ForDefinition()
		}

		return f
	}

	name := sgm.mangler.MangleDeclRef(ref)
	sig := sgm.SignatureOf(ref)

	linkage := sgm.linkageOf(ref)
	if !forDefinition {
		linkage = declarationLinkage(linkage)
	}

	var f *pil.Function
	if d, ok := sgm.delayedFunctions[ref]; ok {
		f = sgm.M.CreateFunctionAfter(name, sig, linkage, d.insertAfter)
		sgm.force(d, f)
	} else {
		f = sgm.M.CreateFunction(name, sig, linkage)
	}

	if fd := ref.FuncDecl(); fd != nil {
		f.Loc = fd.Span()
	}

	sgm.emittedFunctions[ref] = f
	return f
}

// force moves a delayed function to the forced worklist.  Functions delayed
// after d with the same layout hint are laid out after f so the recorded order
// is kept.
func (sgm *PILGenModule) force(d *delayedFunction, f *pil.Function) {
	delete(sgm.delayedFunctions, d.ref)

	for _, other := range sgm.delayedFunctions {
		if other.insertAfter == d.insertAfter && other.seq > d.seq {
			other.insertAfter = f
		}
	}

	sgm.forcedFunctions = append(sgm.forcedFunctions, d)
	report.ReportVerbose("Forced", f.Name)
}

// IsDelayed returns whether the emission of a declaration reference is
// currently delayed.
func (sgm *PILGenModule) IsDelayed(ref pil.DeclRef) bool {
	_, ok := sgm.delayedFunctions[ref]
	return ok
}

// SignatureOf returns the natural lowered signature of a declaration
// reference.
func (sgm *PILGenModule) SignatureOf(ref pil.DeclRef) *pil.FunctionSignature {
	switch ref.Kind {
	case pil.DeclRefGlobalInit:
		return sgm.Types().LowerNaturalSignature(&types.FuncType{Result: types.Unit(), Thin: true}, nil)
	case pil.DeclRefGlobalAccessor:
		return sgm.Types().LowerNaturalSignature(&types.FuncType{Result: types.PrimTypeRawPointer, Thin: true}, nil)
	}

	fd := ref.FuncDecl()
	if fd == nil {
		report.ReportICE("no signature for declaration reference %s", ref.Repr())
	}

	return sgm.Types().LowerNaturalSignature(fd.InterfaceType(), paramPassing(fd))
}

// paramPassing returns how each formal parameter of a function is passed.
// Self is always guaranteed.
func paramPassing(fd *ast.FuncDecl) []pil.ParamPassing {
	passing := make([]pil.ParamPassing, len(fd.Params), len(fd.Params)+1)
	for i, param := range fd.Params {
		switch {
		case param.Inout:
			passing[i] = pil.PassInout
		case param.Owned:
			passing[i] = pil.PassOwned
		}
	}

	if fd.IsMethod() {
		passing = append(passing, pil.PassGuaranteed)
	}

	return passing
}

// linkageOf returns the linkage of the definition of a declaration reference.
func (sgm *PILGenModule) linkageOf(ref pil.DeclRef) pil.Linkage {
	switch ref.Kind {
	case pil.DeclRefGlobalInit:
		return pil.LinkagePrivate
	case pil.DeclRefGlobalAccessor:
		return accessLinkage(ref.Decl.(*ast.VarDecl).Access)
	}

	fd := ref.FuncDecl()
	if fd.Implicit && !fd.Access.IsExternallyVisible() {
		return pil.LinkageShared
	}

	return accessLinkage(fd.Access)
}

func accessLinkage(access ast.AccessLevel) pil.Linkage {
	switch access {
	case ast.AccessPrivate:
		return pil.LinkagePrivate
	case ast.AccessInternal:
		return pil.LinkageHidden
	default:
		return pil.LinkagePublic
	}
}

// declarationLinkage returns the linkage of a declaration of a symbol whose
// definition has the given linkage.
func declarationLinkage(l pil.Linkage) pil.Linkage {
	switch l {
	case pil.LinkagePublic:
		return pil.LinkagePublicExternal
	case pil.LinkageHidden:
		return pil.LinkageHiddenExternal
	default:
		return l
	}
}

// -----------------------------------------------------------------------------

// emitOrDelay emits the definition of a declaration reference with emitter or
// records it to be emitted once something references it.  Only declarations
// that can be pruned are delayed: implicit declarations that are not visible
// outside the module.
func (sgm *PILGenModule) emitOrDelay(ref pil.DeclRef, emitter func(f *pil.Function)) {
	if f, ok := sgm.emittedFunctions[ref]; ok {
		if f.IsDefinition() {
			report.ReportICE("function %s emitted twice", f.Name)
		}

		// already referenced
		sgm.emitDefinition(ref, emitter)
		return
	}

	if _, ok := sgm.delayedFunctions[ref]; ok {
		report.ReportICE("declaration %s delayed twice", ref.Repr())
	}

	if sgm.mayDelay(ref) {
		sgm.delaySeq++
		sgm.delayedFunctions[ref] = &delayedFunction{
			ref:         ref,
			emitter:     emitter,
			insertAfter: sgm.lastEmittedFunction,
			seq:         sgm.delaySeq,
			file:        sgm.currentFile,
		}

		report.ReportVerbose("Delayed", ref.Repr())
		return
	}

	sgm.lastEmittedFunction = sgm.emitDefinition(ref, emitter)
}

// mayDelay returns whether the emission of a declaration reference can be
// put off.
func (sgm *PILGenModule) mayDelay(ref pil.DeclRef) bool {
	if sgm.Options.EmitAll {
		return false
	}

	switch ref.Kind {
	case pil.DeclRefGlobalInit:
		return true
	case pil.DeclRefGlobalAccessor:
		return !ref.Decl.(*ast.VarDecl).Access.IsExternallyVisible()
	}

	fd := ref.FuncDecl()
	return fd.Implicit && !fd.Access.IsExternallyVisible()
}

// emitDefinition emits the body of a declaration reference.
func (sgm *PILGenModule) emitDefinition(ref pil.DeclRef, emitter func(f *pil.Function)) *pil.Function {
	f := sgm.GetFunction(ref, true)
	if f.IsDefinition() {
		report.ReportICE("function %s emitted twice", f.Name)
	}

	emitter(f)
	sgm.postEmitFunction(f)
	return f
}

// postEmitFunction checks a finished function.
func (sgm *PILGenModule) postEmitFunction(f *pil.Function) {
	if sgm.Options.Verify {
		if err := pil.Verify(f); err != nil {
			report.ReportICE("emitted invalid PIL: %s", err)
		}
	}

	report.ReportVerbose("Emitted", f.Name)
}

// emitLazy emits everything that was referenced but not emitted yet: forced
// functions and the witness tables of used conformances.  Emitting either can
// reference more of both so this runs until nothing is left.
func (sgm *PILGenModule) emitLazy() {
	for len(sgm.forcedFunctions) > 0 || len(sgm.pendingConformances) > 0 {
		for len(sgm.forcedFunctions) > 0 {
			d := sgm.forcedFunctions[0]
			sgm.forcedFunctions = sgm.forcedFunctions[1:]

			prevFile := sgm.currentFile
			sgm.currentFile = d.file
			sgm.emitDefinition(d.ref, d.emitter)
			sgm.currentFile = prevFile
		}

		for len(sgm.pendingConformances) > 0 {
			c := sgm.pendingConformances[0]
			sgm.pendingConformances = sgm.pendingConformances[1:]
			sgm.emitWitnessTable(c)
		}
	}
}

// -----------------------------------------------------------------------------

// useConformance records that a conformance is used: conformances declared in
// this module get a witness table.
func (sgm *PILGenModule) useConformance(c *ast.Conformance) {
	if c == nil || sgm.usedConformances[c] || c.ModuleName != sgm.AST.Name {
		return
	}

	sgm.usedConformances[c] = true
	sgm.pendingConformances = append(sgm.pendingConformances, c)
}

// lookupConformance returns the name of the conformance of a type to a
// protocol used by witness_method.  Conformances of concrete types declared
// in this module are marked used.
func (sgm *PILGenModule) lookupConformance(typ types.Type, proto *ast.ProtocolDecl) string {
	for _, c := range sgm.AST.Conformances {
		if c.Protocol == proto && types.Equals(c.Type, typ) {
			sgm.useConformance(c)
			return c.Repr()
		}
	}

	return typ.Repr() + ": " + proto.Name
}

// getGlobal returns the global variable backing a global declaration.
func (sgm *PILGenModule) getGlobal(vd *ast.VarDecl) *pil.GlobalVariable {
	if g, ok := sgm.globals[vd]; ok {
		return g
	}

	g := sgm.M.CreateGlobal(&pil.GlobalVariable{
		Name:    sgm.mangler.MangleGlobal(vd),
		Type:    vd.Type,
		Linkage: accessLinkage(vd.Access),
		Decl:    vd,
	})

	sgm.globals[vd] = g
	return g
}

// reportError reports a compile error in the file being lowered.
func (sgm *PILGenModule) reportError(loc *report.TextSpan, msg string, args ...interface{}) {
	if sgm.currentFile == nil {
		report.ReportCompileError("", sgm.AST.Name, loc, msg, args...)
		return
	}

	report.ReportCompileError(sgm.currentFile.AbsPath, sgm.currentFile.ReprPath, loc, msg, args...)
}

// reportWarning reports a compile warning in the file being lowered.
func (sgm *PILGenModule) reportWarning(loc *report.TextSpan, msg string, args ...interface{}) {
	if sgm.currentFile == nil {
		report.ReportCompileWarning("", sgm.AST.Name, loc, msg, args...)
		return
	}

	report.ReportCompileWarning(sgm.currentFile.AbsPath, sgm.currentFile.ReprPath, loc, msg, args...)
}

// -----------------------------------------------------------------------------

// emitSourceFile lowers every declaration of a file.
func (sgm *PILGenModule) emitSourceFile(file *ast.SourceFile) {
	sgm.currentFile = file

	for _, decl := range file.Decls {
		sgm.emitDecl(decl)
	}

	report.ReportVerbose("Lowered", file.ReprPath)
}

func (sgm *PILGenModule) emitDecl(decl ast.Decl) {
	switch v := decl.(type) {
	case *ast.FuncDecl:
		sgm.emitFuncDecl(v)
	case *ast.StructDecl:
		for _, method := range v.Methods {
			sgm.emitFuncDecl(method)
		}
	case *ast.ClassDecl:
		for _, method := range v.Methods {
			sgm.emitFuncDecl(method)
		}

		sgm.emitVTable(v)
	case *ast.ProtocolDecl:
		if v.Resilient {
			sgm.emitDefaultWitnessTable(v)
		}
	case *ast.GlobalVarDecl:
		sgm.emitGlobalVarDecl(v)
	default:
		report.ReportICE("lowering unknown declaration %T", decl)
	}
}

// emitFuncDecl emits or delays a function with a body.
func (sgm *PILGenModule) emitFuncDecl(fd *ast.FuncDecl) {
	if fd.Body == nil {
		return
	}

	sgm.emitOrDelay(pil.FuncRef(fd), func(f *pil.Function) {
		NewPILGenFunction(sgm, f).EmitFunction(fd)
	})
}

// summary returns a one line description of what was emitted.
func (sgm *PILGenModule) summary() string {
	return fmt.Sprintf(
		"%d functions, %d globals, %d vtables, %d witness tables, %d delayed functions pruned",
		len(sgm.M.Functions()),
		len(sgm.M.Globals),
		len(sgm.M.VTables),
		len(sgm.M.WitnessTables)+len(sgm.M.DefaultWitnessTables),
		len(sgm.delayedFunctions),
	)
}
