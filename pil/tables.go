package pil

import (
	"fmt"
	"strings"

	"pilc/ast"
	"pilc/types"
)

// GlobalVariable is a module-level variable.
type GlobalVariable struct {
	Name    string
	Type    types.Type
	Linkage Linkage
	Decl    *ast.VarDecl
}

func (g *GlobalVariable) Repr() string {
	return fmt.Sprintf("pil_global %s @%s : $%s", g.Linkage.Repr(), g.Name, g.Type.Repr())
}

// -----------------------------------------------------------------------------

// VTableEntryKind says where the implementation of a vtable entry comes from.
type VTableEntryKind int

// Enumeration of vtable entry kinds.
const (
	// The method is introduced by the class.
	VTableNormal VTableEntryKind = iota

	// The implementation is inherited unchanged from a superclass.
	VTableInherited

	// The class overrides the method.
	VTableOverride
)

func (k VTableEntryKind) Repr() string {
	switch k {
	case VTableInherited:
		return " [inherited]"
	case VTableOverride:
		return " [override]"
	default:
		return ""
	}
}

// VTableEntry is a single slot of a vtable: the method being dispatched and the
// function implementing it for the class.
type VTableEntry struct {
	Method DeclRef
	Impl   *Function
	Kind   VTableEntryKind
}

// VTable is the dynamic dispatch table of a class.  Entries are ordered from
// the root class's methods to the most derived class's methods.
type VTable struct {
	Class   *ast.ClassDecl
	Entries []VTableEntry
}

// EntryFor returns the entry for a method if the vtable has one.
func (vt *VTable) EntryFor(method DeclRef) (VTableEntry, bool) {
	for _, entry := range vt.Entries {
		if entry.Method == method {
			return entry, true
		}
	}

	return VTableEntry{}, false
}

func (vt *VTable) Repr() string {
	sb := strings.Builder{}
	sb.WriteString("pil_vtable ")
	sb.WriteString(vt.Class.Name)
	sb.WriteString(" {\n")

	for _, entry := range vt.Entries {
		sb.WriteString(fmt.Sprintf("  %s: @%s%s\n", entry.Method.Repr(), entry.Impl.Name, entry.Kind.Repr()))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// -----------------------------------------------------------------------------

// WitnessKind is the kind of a witness table entry.
type WitnessKind int

// Enumeration of witness kinds.
const (
	WitnessMethod WitnessKind = iota
	WitnessAssociatedType
	WitnessAssociatedConformance
	WitnessBaseProtocol

	// A requirement with no witness.  Only legal in default witness tables.
	WitnessMissing
)

// WitnessEntry is a single entry of a witness table.  Which fields are set
// depends on the kind.
type WitnessEntry struct {
	Kind WitnessKind

	// The method requirement and its witness.
	Requirement DeclRef
	Witness     *Function

	// The associated type requirement and its witness type.
	AssocType   *ast.AssociatedTypeDecl
	TypeWitness types.Type

	// The protocol of an associated or base conformance and the conformance
	// satisfying it.
	Protocol    *ast.ProtocolDecl
	Conformance *ast.Conformance
}

func (we WitnessEntry) Repr() string {
	switch we.Kind {
	case WitnessMethod:
		return fmt.Sprintf("method %s: @%s", we.Requirement.Repr(), we.Witness.Name)
	case WitnessAssociatedType:
		return fmt.Sprintf("associated_type %s: %s", we.AssocType.Name, we.TypeWitness.Repr())
	case WitnessAssociatedConformance:
		return fmt.Sprintf("associated_type_protocol (%s: %s): %s", we.AssocType.Name, we.Protocol.Name, we.Conformance.Repr())
	case WitnessBaseProtocol:
		return fmt.Sprintf("base_protocol %s: %s", we.Protocol.Name, we.Conformance.Repr())
	default:
		return fmt.Sprintf("no_default %s", we.Requirement.Repr())
	}
}

// WitnessTable is the table of witnesses of a concrete conformance.
type WitnessTable struct {
	Name        string
	Conformance *ast.Conformance
	Linkage     Linkage
	Entries     []WitnessEntry
}

func (wt *WitnessTable) Repr() string {
	return reprWitnessEntries(fmt.Sprintf("pil_witness_table %s %s", wt.Linkage.Repr(), wt.Conformance.Repr()), wt.Entries)
}

// DefaultWitnessTable is the table of default implementations of the
// requirements of a resilient protocol.
type DefaultWitnessTable struct {
	Protocol *ast.ProtocolDecl
	Entries  []WitnessEntry
}

func (dt *DefaultWitnessTable) Repr() string {
	return reprWitnessEntries("pil_default_witness_table "+dt.Protocol.Name, dt.Entries)
}

func reprWitnessEntries(header string, entries []WitnessEntry) string {
	sb := strings.Builder{}
	sb.WriteString(header)
	sb.WriteString(" {\n")

	for _, entry := range entries {
		sb.WriteString("  ")
		sb.WriteString(entry.Repr())
		sb.WriteRune('\n')
	}

	sb.WriteString("}\n")
	return sb.String()
}
