package types

// AbstractionPattern describes the physical shape a value must take
// independently of its formal type.  A pattern is the formal type as it was
// originally declared: wherever the declared type is an archetype, the value
// at that position is passed opaquely (indirectly) no matter what concrete
// type is substituted there.
type AbstractionPattern struct {
	// The declared type.  This is nil for a fully opaque pattern.
	typ Type
}

// PatternOf returns the most specific abstraction pattern for typ: the value
// is lowered according to its own formal type.
func PatternOf(typ Type) AbstractionPattern {
	return AbstractionPattern{typ: typ}
}

// OpaquePattern returns the maximally general abstraction pattern.
func OpaquePattern() AbstractionPattern {
	return AbstractionPattern{}
}

// IsOpaque returns whether values at this position must be manipulated
// indirectly.
func (ap AbstractionPattern) IsOpaque() bool {
	if ap.typ == nil {
		return true
	}

	_, ok := ap.typ.(*ArchetypeType)
	return ok
}

// Type returns the declared type of the pattern.  This is nil for an opaque
// pattern.
func (ap AbstractionPattern) Type() Type {
	return ap.typ
}

// IsTuple returns whether the pattern has tuple structure that must be
// respected when exploding a value.
func (ap AbstractionPattern) IsTuple() bool {
	_, ok := ap.typ.(*TupleType)
	return ok
}

// NumTupleElements returns the arity of a tuple pattern.
func (ap AbstractionPattern) NumTupleElements() int {
	if tt, ok := ap.typ.(*TupleType); ok {
		return len(tt.Elems)
	}

	return 0
}

// TupleElement returns the pattern of the i'th element of a tuple pattern.
func (ap AbstractionPattern) TupleElement(i int) AbstractionPattern {
	return AbstractionPattern{typ: ap.typ.(*TupleType).Elems[i].Type}
}

// FuncParam returns the pattern of the i'th parameter of a function pattern.
// Opaque function patterns have opaque parameters.
func (ap AbstractionPattern) FuncParam(i int) AbstractionPattern {
	if ft, ok := ap.typ.(*FuncType); ok {
		return AbstractionPattern{typ: ft.Params[i]}
	}

	return OpaquePattern()
}

// FuncResult returns the pattern of the result of a function pattern.
func (ap AbstractionPattern) FuncResult() AbstractionPattern {
	if ft, ok := ap.typ.(*FuncType); ok {
		return AbstractionPattern{typ: ft.Result}
	}

	return OpaquePattern()
}

// FuncYield returns the pattern of the i'th yielded value of a coroutine
// pattern.
func (ap AbstractionPattern) FuncYield(i int) AbstractionPattern {
	if ft, ok := ap.typ.(*FuncType); ok && i < len(ft.Yields) {
		return AbstractionPattern{typ: ft.Yields[i]}
	}

	return OpaquePattern()
}

func (ap AbstractionPattern) Repr() string {
	if ap.typ == nil {
		return "AP(*)"
	}

	return "AP(" + ap.typ.Repr() + ")"
}

// SamePattern returns whether two patterns impose the same physical shape.
func SamePattern(a, b AbstractionPattern) bool {
	if a.IsOpaque() || b.IsOpaque() {
		return a.IsOpaque() == b.IsOpaque()
	}

	return Equals(a.typ, b.typ)
}
