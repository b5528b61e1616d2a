package types

import (
	"strings"
)

// Type represents a formal (surface) type.  Every type handed to lowering is
// fully elaborated: there are no type variables left to infer.
type Type interface {
	// Returns whether this type is equal to the other type.  This should only
	// be called through Equals.
	equals(other Type) bool

	// Returns the representative string for this type.
	Repr() string
}

// Equals returns whether two types are equal.
func Equals(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.equals(b)
}

// -----------------------------------------------------------------------------

// PrimitiveType represents a builtin type.  This must be one of the enumerated
// primitive type values below.
type PrimitiveType int

// Enumeration of the different primitive types.
const (
	PrimTypeBool PrimitiveType = iota
	PrimTypeI8
	PrimTypeI16
	PrimTypeI32
	PrimTypeI64
	PrimTypeF32
	PrimTypeF64
	PrimTypeRawPointer

	// Reference counted builtin object.
	PrimTypeNativeObject

	// Boxed error existential: the error value of a throwing function.
	PrimTypeError
)

func (pt PrimitiveType) equals(other Type) bool {
	if opt, ok := other.(PrimitiveType); ok {
		return pt == opt
	}

	return false
}

func (pt PrimitiveType) Repr() string {
	switch pt {
	case PrimTypeBool:
		return "Bool"
	case PrimTypeI8:
		return "Int8"
	case PrimTypeI16:
		return "Int16"
	case PrimTypeI32:
		return "Int32"
	case PrimTypeI64:
		return "Int"
	case PrimTypeF32:
		return "Float"
	case PrimTypeF64:
		return "Double"
	case PrimTypeRawPointer:
		return "Builtin.RawPointer"
	case PrimTypeNativeObject:
		return "Builtin.NativeObject"
	default:
		return "any Error"
	}
}

// IsIntegral returns whether this primitive is an integral type.
func (pt PrimitiveType) IsIntegral() bool {
	return PrimTypeI8 <= pt && pt <= PrimTypeI64
}

// IsFloating returns whether this primitive type is a floating-point type.
func (pt PrimitiveType) IsFloating() bool {
	return pt == PrimTypeF32 || pt == PrimTypeF64
}

// -----------------------------------------------------------------------------

// TupleType represents a tuple type.  The empty tuple is the unit type.
type TupleType struct {
	Elems []TupleElem
}

// TupleElem is a single, optionally labelled, element of a tuple type.
type TupleElem struct {
	Label string
	Type  Type
}

// NewTuple creates a new unlabelled tuple type.
func NewTuple(elems ...Type) *TupleType {
	tt := &TupleType{Elems: make([]TupleElem, len(elems))}
	for i, elem := range elems {
		tt.Elems[i] = TupleElem{Type: elem}
	}

	return tt
}

// Unit returns the empty tuple type.
func Unit() *TupleType {
	return &TupleType{}
}

func (tt *TupleType) equals(other Type) bool {
	if ott, ok := other.(*TupleType); ok {
		if len(tt.Elems) != len(ott.Elems) {
			return false
		}

		for i, elem := range tt.Elems {
			if elem.Label != ott.Elems[i].Label || !Equals(elem.Type, ott.Elems[i].Type) {
				return false
			}
		}

		return true
	}

	return false
}

func (tt *TupleType) Repr() string {
	sb := strings.Builder{}
	sb.WriteRune('(')

	for i, elem := range tt.Elems {
		if i != 0 {
			sb.WriteString(", ")
		}

		if elem.Label != "" {
			sb.WriteString(elem.Label)
			sb.WriteString(": ")
		}

		sb.WriteString(elem.Type.Repr())
	}

	sb.WriteRune(')')
	return sb.String()
}

// ElemTypes returns the element types of the tuple.
func (tt *TupleType) ElemTypes() []Type {
	elems := make([]Type, len(tt.Elems))
	for i, elem := range tt.Elems {
		elems[i] = elem.Type
	}

	return elems
}

// -----------------------------------------------------------------------------

// FuncType represents a function type.
type FuncType struct {
	// The parameter types of the function.
	Params []Type

	// The result type of the function.
	Result Type

	// Whether the function can throw an error.
	Throws bool

	// Whether the function is a yield-once coroutine.  Coroutines yield values
	// of the types in Yields.
	Coroutine bool
	Yields    []Type

	// Whether the function value carries no context.  Thin function values are
	// plain code pointers; thick function values own a reference counted
	// context.
	Thin bool
}

func (ft *FuncType) equals(other Type) bool {
	if oft, ok := other.(*FuncType); ok {
		if len(ft.Params) != len(oft.Params) || ft.Throws != oft.Throws || ft.Thin != oft.Thin || ft.Coroutine != oft.Coroutine {
			return false
		}

		for i, param := range ft.Params {
			if !Equals(param, oft.Params[i]) {
				return false
			}
		}

		if len(ft.Yields) != len(oft.Yields) {
			return false
		}

		for i, yield := range ft.Yields {
			if !Equals(yield, oft.Yields[i]) {
				return false
			}
		}

		return Equals(ft.Result, oft.Result)
	}

	return false
}

func (ft *FuncType) Repr() string {
	sb := strings.Builder{}

	if ft.Thin {
		sb.WriteString("@thin ")
	}

	if ft.Coroutine {
		sb.WriteString("@yield_once ")
	}

	sb.WriteRune('(')
	for i, param := range ft.Params {
		if i != 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(param.Repr())
	}
	sb.WriteRune(')')

	if ft.Throws {
		sb.WriteString(" throws")
	}

	sb.WriteString(" -> ")
	sb.WriteString(ft.Result.Repr())

	return sb.String()
}

// WithThin returns a copy of the function type with the given thinness.
func (ft *FuncType) WithThin(thin bool) *FuncType {
	nft := *ft
	nft.Thin = thin
	return &nft
}

// -----------------------------------------------------------------------------

// StructType represents a value type with named, stored fields.
type StructType struct {
	Name   string
	Fields []StructField

	// Whether the layout of the struct is hidden behind a resilience boundary.
	// Resilient structs are always manipulated indirectly.
	Resilient bool
}

// StructField represents a stored field of a struct.
type StructField struct {
	Name string
	Type Type
}

func (st *StructType) equals(other Type) bool {
	if ost, ok := other.(*StructType); ok {
		return st == ost || st.Name == ost.Name
	}

	return false
}

func (st *StructType) Repr() string {
	return st.Name
}

// FieldIndex returns the index of the field with the given name or -1 if no
// such field exists.
func (st *StructType) FieldIndex(name string) int {
	for i, field := range st.Fields {
		if field.Name == name {
			return i
		}
	}

	return -1
}

// -----------------------------------------------------------------------------

// ClassType represents a reference counted class type.
type ClassType struct {
	Name  string
	Super *ClassType
}

func (ct *ClassType) equals(other Type) bool {
	if oct, ok := other.(*ClassType); ok {
		return ct == oct || ct.Name == oct.Name
	}

	return false
}

func (ct *ClassType) Repr() string {
	return ct.Name
}

// IsSubclassOf returns whether ct is other or inherits from other.
func (ct *ClassType) IsSubclassOf(other *ClassType) bool {
	for c := ct; c != nil; c = c.Super {
		if c.equals(other) {
			return true
		}
	}

	return false
}

// -----------------------------------------------------------------------------

// EnumType represents a tagged union.
type EnumType struct {
	Name  string
	Cases []EnumCase
}

// EnumCase is a single case of an enum.  Payload is nil for cases without an
// associated value.
type EnumCase struct {
	Name    string
	Payload Type
}

func (et *EnumType) equals(other Type) bool {
	if oet, ok := other.(*EnumType); ok {
		return et == oet || et.Name == oet.Name
	}

	return false
}

func (et *EnumType) Repr() string {
	return et.Name
}

// -----------------------------------------------------------------------------

// ProtocolType is the existential type of a protocol: a value of any type
// conforming to the protocol.
type ProtocolType struct {
	Name string
}

func (pt *ProtocolType) equals(other Type) bool {
	if opt, ok := other.(*ProtocolType); ok {
		return pt == opt || pt.Name == opt.Name
	}

	return false
}

func (pt *ProtocolType) Repr() string {
	return "any " + pt.Name
}

// ArchetypeType is an opaque generic parameter: a type whose layout is not
// known statically (eg. `T` or `Self.Element`).
type ArchetypeType struct {
	Name string
}

func (at *ArchetypeType) equals(other Type) bool {
	if oat, ok := other.(*ArchetypeType); ok {
		return at == oat || at.Name == oat.Name
	}

	return false
}

func (at *ArchetypeType) Repr() string {
	return at.Name
}

// MetatypeType is the thin metatype of a type: it carries no runtime data.
type MetatypeType struct {
	Instance Type
}

func (mt *MetatypeType) equals(other Type) bool {
	if omt, ok := other.(*MetatypeType); ok {
		return Equals(mt.Instance, omt.Instance)
	}

	return false
}

func (mt *MetatypeType) Repr() string {
	return "@thin " + mt.Instance.Repr() + ".Type"
}
