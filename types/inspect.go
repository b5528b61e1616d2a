package types

// IsUnit returns whether the given type is the empty tuple.
func IsUnit(typ Type) bool {
	tt, ok := typ.(*TupleType)
	return ok && len(tt.Elems) == 0
}

// IsTuple returns whether the given type is a tuple type.
func IsTuple(typ Type) bool {
	_, ok := typ.(*TupleType)
	return ok
}

// ScalarCount returns the number of scalar values a value of typ explodes
// into: tuples count the scalar counts of their elements recursively and every
// other type counts as one.
func ScalarCount(typ Type) int {
	if tt, ok := typ.(*TupleType); ok {
		n := 0
		for _, elem := range tt.Elems {
			n += ScalarCount(elem.Type)
		}

		return n
	}

	return 1
}

// ContainsArchetype returns whether typ mentions an opaque generic parameter.
func ContainsArchetype(typ Type) bool {
	switch v := typ.(type) {
	case *ArchetypeType:
		return true
	case *TupleType:
		for _, elem := range v.Elems {
			if ContainsArchetype(elem.Type) {
				return true
			}
		}
	case *FuncType:
		for _, param := range v.Params {
			if ContainsArchetype(param) {
				return true
			}
		}

		return ContainsArchetype(v.Result)
	case *MetatypeType:
		return ContainsArchetype(v.Instance)
	}

	return false
}

// IsRefCounted returns whether values of typ are single reference counted
// pointers.
func IsRefCounted(typ Type) bool {
	switch v := typ.(type) {
	case *ClassType:
		return true
	case PrimitiveType:
		return v == PrimTypeNativeObject || v == PrimTypeError
	case *FuncType:
		return !v.Thin
	}

	return false
}
