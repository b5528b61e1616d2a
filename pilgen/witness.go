package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// requirementVisitor receives the requirements of a protocol in table order:
// inherited protocols, associated types, associated conformances and methods.
type requirementVisitor interface {
	AddBaseProtocol(proto *ast.ProtocolDecl)
	AddAssociatedType(assoc *ast.AssociatedTypeDecl)
	AddAssociatedConformance(assoc *ast.AssociatedTypeDecl, proto *ast.ProtocolDecl)
	AddMethod(req *ast.FuncDecl)
}

// visitRequirements walks the requirements of a protocol.
func visitRequirements(proto *ast.ProtocolDecl, v requirementVisitor) {
	for _, base := range proto.Inherited {
		v.AddBaseProtocol(base)
	}

	for _, assoc := range proto.AssocTypes {
		v.AddAssociatedType(assoc)
	}

	for _, assoc := range proto.AssocTypes {
		for _, conf := range assoc.Conformances {
			v.AddAssociatedConformance(assoc, conf)
		}
	}

	for _, req := range proto.Requirements {
		v.AddMethod(req)
	}
}

// -----------------------------------------------------------------------------

// witnessTableBuilder fills the witness table of a concrete conformance.
// Every requirement must be satisfied.
type witnessTableBuilder struct {
	sgm *PILGenModule
	c   *ast.Conformance
	wt  *pil.WitnessTable
}

func (wb *witnessTableBuilder) AddBaseProtocol(proto *ast.ProtocolDecl) {
	base, ok := wb.c.Inherited[proto]
	if !ok {
		report.ReportICE("conformance %s has no conformance to inherited protocol %s", wb.c.Repr(), proto.Name)
	}

	wb.sgm.useConformance(base)
	wb.wt.Entries = append(wb.wt.Entries, pil.WitnessEntry{
		Kind:        pil.WitnessBaseProtocol,
		Protocol:    proto,
		Conformance: base,
	})
}

func (wb *witnessTableBuilder) AddAssociatedType(assoc *ast.AssociatedTypeDecl) {
	typ, ok := wb.c.TypeWitnesses[assoc]
	if !ok {
		report.ReportICE("conformance %s has no witness for associated type %s", wb.c.Repr(), assoc.Name)
	}

	wb.wt.Entries = append(wb.wt.Entries, pil.WitnessEntry{
		Kind:        pil.WitnessAssociatedType,
		AssocType:   assoc,
		TypeWitness: typ,
	})
}

func (wb *witnessTableBuilder) AddAssociatedConformance(assoc *ast.AssociatedTypeDecl, proto *ast.ProtocolDecl) {
	conf, ok := wb.c.AssocConformances[ast.AssocConformanceKey{Assoc: assoc, Proto: proto}]
	if !ok {
		report.ReportICE("conformance %s has no conformance of %s to %s", wb.c.Repr(), assoc.Name, proto.Name)
	}

	wb.sgm.useConformance(conf)
	wb.wt.Entries = append(wb.wt.Entries, pil.WitnessEntry{
		Kind:        pil.WitnessAssociatedConformance,
		AssocType:   assoc,
		Protocol:    proto,
		Conformance: conf,
	})
}

func (wb *witnessTableBuilder) AddMethod(req *ast.FuncDecl) {
	witness, ok := wb.c.Witnesses[req]
	if !ok {
		witness = req.DefaultImpl
	}

	if witness == nil {
		report.ReportICE("conformance %s has no witness for requirement `%s`", wb.c.Repr(), req.Name)
	}

	wb.wt.Entries = append(wb.wt.Entries, pil.WitnessEntry{
		Kind:        pil.WitnessMethod,
		Requirement: pil.FuncRef(req),
		Witness:     wb.sgm.getWitnessThunk(wb.c, req, witness),
	})
}

// emitWitnessTable emits the witness table of a conformance declared in this
// module.
func (sgm *PILGenModule) emitWitnessTable(c *ast.Conformance) *pil.WitnessTable {
	linkage := pil.LinkageHidden
	if c.Protocol.Access.IsExternallyVisible() {
		linkage = pil.LinkagePublic
	}

	wt := &pil.WitnessTable{
		Name:        sgm.mangler.MangleWitnessTable(c),
		Conformance: c,
		Linkage:     linkage,
	}

	visitRequirements(c.Protocol, &witnessTableBuilder{sgm: sgm, c: c, wt: wt})

	sgm.M.WitnessTables = append(sgm.M.WitnessTables, wt)
	report.ReportVerbose("Witness Table", c.Repr())
	return wt
}

// -----------------------------------------------------------------------------

// defaultWitnessTableBuilder fills the default witness table of a resilient
// protocol: the default implementations of its method requirements.  Only
// method requirements have entries.
type defaultWitnessTableBuilder struct {
	sgm *PILGenModule
	dt  *pil.DefaultWitnessTable
}

func (db *defaultWitnessTableBuilder) AddBaseProtocol(*ast.ProtocolDecl) {}

func (db *defaultWitnessTableBuilder) AddAssociatedType(*ast.AssociatedTypeDecl) {}

func (db *defaultWitnessTableBuilder) AddAssociatedConformance(*ast.AssociatedTypeDecl, *ast.ProtocolDecl) {
}

func (db *defaultWitnessTableBuilder) AddMethod(req *ast.FuncDecl) {
	if req.DefaultImpl == nil {
		db.dt.Entries = append(db.dt.Entries, pil.WitnessEntry{
			Kind:        pil.WitnessMissing,
			Requirement: pil.FuncRef(req),
		})

		return
	}

	db.dt.Entries = append(db.dt.Entries, pil.WitnessEntry{
		Kind:        pil.WitnessMethod,
		Requirement: pil.FuncRef(req),
		Witness:     db.sgm.getWitnessThunk(nil, req, req.DefaultImpl),
	})
}

// emitDefaultWitnessTable emits the default witness table of a resilient
// protocol.
func (sgm *PILGenModule) emitDefaultWitnessTable(proto *ast.ProtocolDecl) *pil.DefaultWitnessTable {
	dt := &pil.DefaultWitnessTable{Protocol: proto}
	visitRequirements(proto, &defaultWitnessTableBuilder{sgm: sgm, dt: dt})

	sgm.M.DefaultWitnessTables = append(sgm.M.DefaultWitnessTables, dt)
	report.ReportVerbose("Default Witness Table", proto.Name)
	return dt
}

// -----------------------------------------------------------------------------

// getWitnessThunk returns the thunk calling witness for requirement req.  The
// thunk takes its arguments the way the requirement expects them (self last
// and at the abstraction of the protocol) and passes them the way the witness
// expects them.  A witness that is a free function is called without self.
// c is nil for default implementations.
func (sgm *PILGenModule) getWitnessThunk(c *ast.Conformance, req, witness *ast.FuncDecl) *pil.Function {
	key := witnessThunkKey{conformance: c, requirement: req}
	if f, ok := sgm.witnessThunks[key]; ok {
		return f
	}

	reqType := req.InterfaceType()

	formal := witnessThunkType(c, req, witness)
	sig := sgm.Types().LowerSignature(types.PatternOf(reqType), formal, paramPassing(req))

	var name string
	linkage := pil.LinkagePrivate
	if c != nil {
		name = sgm.mangler.MangleWitnessThunk(c, req)
	} else {
		name = sgm.mangler.MangleDefaultWitnessThunk(req)
		linkage = pil.LinkageShared
	}

	f := sgm.createThunk(name, sig, linkage, pil.ThunkWitness)
	sgm.witnessThunks[key] = f

	sgm.emitForwardingThunk(f, witness.Span(), func(sgf *PILGenFunction, loc *report.TextSpan, params []*RValue) (pil.Value, *pil.FunctionSignature, []*RValue) {
		impl := sgm.GetFunction(pil.FuncRef(witness), false)

		args := params
		if !witness.IsMethod() {
			// self is borrowed: dropping it emits nothing
			args = params[:len(params)-1]
		}

		return sgf.B.Raw().CreateFunctionRef(loc, impl), impl.Sig, args
	})

	return f
}

// witnessThunkType returns the formal type of a witness thunk: the witness's
// parameters followed by the conforming type as self.
func witnessThunkType(c *ast.Conformance, req, witness *ast.FuncDecl) *types.FuncType {
	witnessType := witness.InterfaceType()

	params := witnessType.Params
	if witness.IsMethod() {
		params = params[:len(params)-1]
	}

	var self types.Type
	if c != nil {
		self = c.Type
	} else {
		self = req.SelfType()
	}

	if req.Static {
		if _, ok := self.(*types.MetatypeType); !ok {
			self = &types.MetatypeType{Instance: self}
		}
	}

	return &types.FuncType{
		Params: append(append([]types.Type(nil), params...), self),
		Result: witnessType.Result,
		Throws: req.Throws,
		Thin:   true,
	}
}
