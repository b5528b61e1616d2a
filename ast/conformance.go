package ast

import "pilc/types"

// AssocConformanceKey identifies an associated conformance requirement:
// `Assoc: Proto`.
type AssocConformanceKey struct {
	Assoc *AssociatedTypeDecl
	Proto *ProtocolDecl
}

// Conformance is the proof that a concrete type conforms to a protocol: the
// witnesses for each of the protocol's requirements.
type Conformance struct {
	// The conforming type.
	Type types.Type

	Protocol *ProtocolDecl

	// The module declaring the conformance.
	ModuleName string

	// The witness of each method requirement.
	Witnesses map[*FuncDecl]*FuncDecl

	// The concrete type of each associated type.
	TypeWitnesses map[*AssociatedTypeDecl]types.Type

	// The conformance of each associated type to the protocols it must
	// conform to.
	AssocConformances map[AssocConformanceKey]*Conformance

	// The conformances to the protocols refined by Protocol.
	Inherited map[*ProtocolDecl]*Conformance
}

func (c *Conformance) Repr() string {
	return c.Type.Repr() + ": " + c.Protocol.Name
}
