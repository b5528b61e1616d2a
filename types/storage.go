package types

import (
	lltypes "github.com/llir/llvm/ir/types"
)

// enumTagType is the storage type of the discriminator of an enum.
var enumTagType = lltypes.I32

// StorageType returns the fixed LLVM storage shape of typ.  This is nil if the
// layout of typ is not statically known: archetypes, existentials, resilient
// structs and any aggregate containing one of those.
func StorageType(typ Type) lltypes.Type {
	switch v := typ.(type) {
	case PrimitiveType:
		return primStorageType(v)
	case *TupleType:
		return aggregateStorage(v.ElemTypes())
	case *StructType:
		if v.Resilient {
			return nil
		}

		fieldTypes := make([]Type, len(v.Fields))
		for i, field := range v.Fields {
			fieldTypes[i] = field.Type
		}

		return aggregateStorage(fieldTypes)
	case *ClassType:
		return lltypes.NewPointer(lltypes.I8)
	case *EnumType:
		var payloads []Type
		for _, ecase := range v.Cases {
			if ecase.Payload != nil {
				payloads = append(payloads, ecase.Payload)
			}
		}

		if len(payloads) == 0 {
			return enumTagType
		}

		payloadStorage := aggregateStorage(payloads)
		if payloadStorage == nil {
			return nil
		}

		return lltypes.NewStruct(enumTagType, payloadStorage)
	case *FuncType:
		codePtr := lltypes.NewPointer(lltypes.I8)
		if v.Thin {
			return codePtr
		}

		// thick functions carry their reference counted context
		return lltypes.NewStruct(codePtr, lltypes.NewPointer(lltypes.I8))
	case *MetatypeType:
		return lltypes.NewStruct()
	}

	// archetypes and existentials
	return nil
}

// aggregateStorage returns the struct storage of the given element types or
// nil if any element has no fixed storage.
func aggregateStorage(elems []Type) lltypes.Type {
	fields := make([]lltypes.Type, len(elems))
	for i, elem := range elems {
		if fields[i] = StorageType(elem); fields[i] == nil {
			return nil
		}
	}

	return lltypes.NewStruct(fields...)
}

func primStorageType(pt PrimitiveType) lltypes.Type {
	switch pt {
	case PrimTypeBool:
		return lltypes.I1
	case PrimTypeI8:
		return lltypes.I8
	case PrimTypeI16:
		return lltypes.I16
	case PrimTypeI32:
		return lltypes.I32
	case PrimTypeI64:
		return lltypes.I64
	case PrimTypeF32:
		return lltypes.Float
	case PrimTypeF64:
		return lltypes.Double
	}

	// raw pointers and reference counted builtins
	return lltypes.NewPointer(lltypes.I8)
}
