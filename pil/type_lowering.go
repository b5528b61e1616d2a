package pil

import (
	"pilc/report"
	"pilc/types"

	lltypes "github.com/llir/llvm/ir/types"
)

// TypeKind classifies the physical representation of a type.
type TypeKind int

// Enumeration of type kinds.
const (
	// Bitwise copyable values with no lifetime to manage.
	TypeKindTrivial TypeKind = iota

	// Values that fit in registers but own references.
	TypeKindLoadable

	// Values whose layout is not statically known: they are only ever
	// manipulated through their address.
	TypeKindAddressOnly
)

// TypeLowering is the physical representation of a formal type under an
// abstraction pattern and the operations appropriate to it.
type TypeLowering struct {
	Formal types.Type
	Kind   TypeKind

	// The LLVM storage shape.  This is nil for address-only types.
	Storage lltypes.Type
}

// IsTrivial returns whether values of the type need no lifetime management.
func (tl *TypeLowering) IsTrivial() bool {
	return tl.Kind == TypeKindTrivial
}

// IsLoadable returns whether values of the type can be held in registers.
func (tl *TypeLowering) IsLoadable() bool {
	return tl.Kind != TypeKindAddressOnly
}

// IsAddressOnly returns whether values of the type only live in memory.
func (tl *TypeLowering) IsAddressOnly() bool {
	return tl.Kind == TypeKindAddressOnly
}

// LoweredType returns the object type values of the type take.
func (tl *TypeLowering) LoweredType() Type {
	return ObjectType(tl.Formal)
}

// EmitCopyValue emits a copy of a loadable value and returns the +1 copy.
func (tl *TypeLowering) EmitCopyValue(b *Builder, loc *report.TextSpan, v Value) Value {
	switch {
	case tl.IsTrivial():
		return v
	case b.f.HasOwnership:
		return b.CreateCopyValue(loc, v)
	default:
		b.CreateRetainValue(loc, v)
		return v
	}
}

// EmitDestroyValue emits the destruction of a +1 loadable value.
func (tl *TypeLowering) EmitDestroyValue(b *Builder, loc *report.TextSpan, v Value) {
	switch {
	case tl.IsTrivial():
	case b.f.HasOwnership:
		b.CreateDestroyValue(loc, v)
	default:
		b.CreateReleaseValue(loc, v)
	}
}

// EmitLoad loads a loadable value from an address.  If take is set, the value
// is moved out of memory; otherwise the result is an independent +1 copy.
func (tl *TypeLowering) EmitLoad(b *Builder, loc *report.TextSpan, addr Value, take bool) Value {
	if !b.f.HasOwnership {
		v := b.CreateLoad(loc, addr, LoadUnqualified)
		if !take && !tl.IsTrivial() {
			b.CreateRetainValue(loc, v)
		}

		return v
	}

	switch {
	case tl.IsTrivial():
		return b.CreateLoad(loc, addr, LoadTrivial)
	case take:
		return b.CreateLoad(loc, addr, LoadTake)
	default:
		return b.CreateLoad(loc, addr, LoadCopy)
	}
}

// EmitStore stores a +1 loadable value into memory.  If init is set, the
// memory is uninitialized; otherwise its old value is destroyed.
func (tl *TypeLowering) EmitStore(b *Builder, loc *report.TextSpan, v, addr Value, init bool) {
	if !b.f.HasOwnership {
		if init || tl.IsTrivial() {
			b.CreateStore(loc, v, addr, StoreUnqualified)
			return
		}

		old := b.CreateLoad(loc, addr, LoadUnqualified)
		b.CreateStore(loc, v, addr, StoreUnqualified)
		b.CreateReleaseValue(loc, old)
		return
	}

	switch {
	case tl.IsTrivial():
		b.CreateStore(loc, v, addr, StoreTrivial)
	case init:
		b.CreateStore(loc, v, addr, StoreInit)
	default:
		b.CreateStore(loc, v, addr, StoreAssign)
	}
}

// EmitDestroyAddress destroys the value stored at an address.
func (tl *TypeLowering) EmitDestroyAddress(b *Builder, loc *report.TextSpan, addr Value) {
	if !tl.IsTrivial() {
		b.CreateDestroyAddr(loc, addr)
	}
}

// EmitCopyInto copies the value at src into dest.
func (tl *TypeLowering) EmitCopyInto(b *Builder, loc *report.TextSpan, src, dest Value, take, init bool) {
	if tl.IsLoadable() {
		tl.EmitStore(b, loc, tl.EmitLoad(b, loc, src, take), dest, init)
		return
	}

	b.CreateCopyAddr(loc, src, dest, take, init)
}

// -----------------------------------------------------------------------------

// TypeConverter computes and caches type lowerings.
type TypeConverter struct {
	cache map[string]*TypeLowering
}

// NewTypeConverter creates a new type converter.
func NewTypeConverter() *TypeConverter {
	return &TypeConverter{cache: make(map[string]*TypeLowering)}
}

// GetTypeLowering returns the lowering of a formal type under an abstraction
// pattern.
func (tc *TypeConverter) GetTypeLowering(pattern types.AbstractionPattern, formal types.Type) *TypeLowering {
	key := pattern.Repr() + "|" + formal.Repr()
	if tl, ok := tc.cache[key]; ok {
		return tl
	}

	tl := &TypeLowering{Formal: formal, Kind: tc.classify(pattern, formal)}
	if tl.Kind != TypeKindAddressOnly {
		tl.Storage = types.StorageType(formal)
	}

	tc.cache[key] = tl
	return tl
}

// Lowering returns the lowering of a formal type under its own pattern.
func (tc *TypeConverter) Lowering(formal types.Type) *TypeLowering {
	return tc.GetTypeLowering(types.PatternOf(formal), formal)
}

// LoweringOf returns the lowering of the formal type of a lowered type.
func (tc *TypeConverter) LoweringOf(typ Type) *TypeLowering {
	return tc.Lowering(typ.Formal)
}

// IsLoadable returns whether values of the given lowered type can be loaded.
// Addresses and boxes are always loadable.
func (tc *TypeConverter) IsLoadable(typ Type) bool {
	if !typ.IsObject() {
		return true
	}

	return tc.LoweringOf(typ).IsLoadable()
}

// IsTrivial returns whether values of a lowered type need no lifetime
// management.
func (tc *TypeConverter) IsTrivial(typ Type) bool {
	if typ.IsAddress() {
		return true
	} else if typ.IsBox() {
		return false
	}

	return tc.LoweringOf(typ).IsTrivial()
}

func (tc *TypeConverter) classify(pattern types.AbstractionPattern, formal types.Type) TypeKind {
	if pattern.IsOpaque() {
		return TypeKindAddressOnly
	}

	switch v := formal.(type) {
	case types.PrimitiveType:
		if types.IsRefCounted(v) {
			return TypeKindLoadable
		}

		return TypeKindTrivial
	case *types.TupleType:
		kinds := make([]TypeKind, len(v.Elems))
		for i, elem := range v.Elems {
			elemPattern := types.PatternOf(elem.Type)
			if pattern.IsTuple() && pattern.NumTupleElements() == len(v.Elems) {
				elemPattern = pattern.TupleElement(i)
			}

			kinds[i] = tc.GetTypeLowering(elemPattern, elem.Type).Kind
		}

		return combineKinds(kinds)
	case *types.StructType:
		if v.Resilient {
			return TypeKindAddressOnly
		}

		kinds := make([]TypeKind, len(v.Fields))
		for i, field := range v.Fields {
			kinds[i] = tc.Lowering(field.Type).Kind
		}

		return combineKinds(kinds)
	case *types.EnumType:
		var kinds []TypeKind
		for _, ecase := range v.Cases {
			if ecase.Payload != nil {
				kinds = append(kinds, tc.Lowering(ecase.Payload).Kind)
			}
		}

		return combineKinds(kinds)
	case *types.ClassType:
		return TypeKindLoadable
	case *types.FuncType:
		if v.Thin {
			return TypeKindTrivial
		}

		return TypeKindLoadable
	case *types.MetatypeType:
		return TypeKindTrivial
	}

	// archetypes and existentials
	return TypeKindAddressOnly
}

// combineKinds returns the kind of an aggregate of the given kinds.
func combineKinds(kinds []TypeKind) TypeKind {
	kind := TypeKindTrivial
	for _, k := range kinds {
		if k > kind {
			kind = k
		}
	}

	return kind
}
