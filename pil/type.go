package pil

import "pilc/types"

// Type is a lowered PIL type: a formal type together with its category.  An
// object type is a value held in registers; an address type is the address of
// memory holding a value of the formal type; a box type is a reference counted
// heap cell holding a value of the formal type.
type Type struct {
	Formal types.Type

	addr bool
	box  bool
}

// ObjectType returns the object type of a formal type.
func ObjectType(formal types.Type) Type {
	return Type{Formal: formal}
}

// AddressType returns the address type of a formal type.
func AddressType(formal types.Type) Type {
	return Type{Formal: formal, addr: true}
}

// BoxType returns the type of a heap box holding a value of a formal type.
func BoxType(formal types.Type) Type {
	return Type{Formal: formal, box: true}
}

// IsAddress returns whether this is an address type.
func (t Type) IsAddress() bool {
	return t.addr
}

// IsBox returns whether this is a box type.
func (t Type) IsBox() bool {
	return t.box
}

// IsObject returns whether this is a (non-box) object type.
func (t Type) IsObject() bool {
	return !t.addr && !t.box
}

// AddressType returns the address type of the same formal type.
func (t Type) AddressType() Type {
	return AddressType(t.Formal)
}

// ObjectType returns the object type of the same formal type.
func (t Type) ObjectType() Type {
	return ObjectType(t.Formal)
}

// Equals returns whether two lowered types are identical.
func (t Type) Equals(other Type) bool {
	return t.addr == other.addr && t.box == other.box && types.Equals(t.Formal, other.Formal)
}

func (t Type) Repr() string {
	switch {
	case t.addr:
		return "$*" + t.Formal.Repr()
	case t.box:
		return "$@box " + t.Formal.Repr()
	default:
		return "$" + t.Formal.Repr()
	}
}

// TupleElementType returns the type of the i'th element of a tuple type.  The
// result has the same category as t.
func (t Type) TupleElementType(i int) Type {
	tt, ok := t.Formal.(*types.TupleType)
	if !ok {
		icef("%s is not a tuple type", t.Repr())
	}

	return Type{Formal: tt.Elems[i].Type, addr: t.addr}
}

// StructFieldType returns the type of the i'th field of a struct type.  The
// result has the same category as t.
func (t Type) StructFieldType(i int) Type {
	st, ok := t.Formal.(*types.StructType)
	if !ok {
		icef("%s is not a struct type", t.Repr())
	}

	return Type{Formal: st.Fields[i].Type, addr: t.addr}
}

// NumTupleElements returns the arity of a tuple type or 0 for a non-tuple
// type.
func (t Type) NumTupleElements() int {
	if tt, ok := t.Formal.(*types.TupleType); ok {
		return len(tt.Elems)
	}

	return 0
}

// IsTuple returns whether the formal type is a tuple type.
func (t Type) IsTuple() bool {
	return types.IsTuple(t.Formal)
}
