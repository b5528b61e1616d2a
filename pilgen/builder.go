package pilgen

import (
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// PILGenBuilder is the builder used during lowering.  It delegates raw
// instruction creation to a pil.Builder (reached explicitly via Raw) and adds
// operations on managed values that keep cleanups consistent: an operation
// that forwards ownership forwards its operand's cleanup and gives its
// result(s) a matching cleanup.
type PILGenBuilder struct {
	sgf *PILGenFunction
	b   *pil.Builder
}

// NewPILGenBuilder creates a builder for the function being lowered.
func NewPILGenBuilder(sgf *PILGenFunction) *PILGenBuilder {
	return &PILGenBuilder{sgf: sgf, b: pil.NewBuilder(sgf.F)}
}

// Raw returns the underlying instruction builder.
func (gb *PILGenBuilder) Raw() *pil.Builder {
	return gb.b
}

// HasValidInsertionPoint returns whether code can be emitted.
func (gb *PILGenBuilder) HasValidInsertionPoint() bool {
	return gb.b.HasValidInsertionPoint()
}

// SetInsertionPoint moves the insertion point to the end of a block.
func (gb *PILGenBuilder) SetInsertionPoint(bb pil.BlockID) {
	gb.b.SetInsertionPoint(bb)
}

// ClearInsertionPoint removes the insertion point.
func (gb *PILGenBuilder) ClearInsertionPoint() {
	gb.b.ClearInsertionPoint()
}

// InsertionBlock returns the current insertion block.
func (gb *PILGenBuilder) InsertionBlock() pil.BlockID {
	return gb.b.InsertionBlock()
}

// EmitBlock continues emission in a block, falling through into it if the
// current insertion point is valid.
func (gb *PILGenBuilder) EmitBlock(loc *report.TextSpan, bb pil.BlockID) {
	gb.b.EmitBlock(loc, bb)
}

// -----------------------------------------------------------------------------

// cleanupCloner recreates the cleanup of a value on the values derived from it
// by an ownership forwarding operation.
type cleanupCloner struct {
	hasCleanup bool
	kind       ManagedValueKind
}

func newCleanupCloner(mv ManagedValue) cleanupCloner {
	return cleanupCloner{hasCleanup: mv.HasCleanup(), kind: mv.kind}
}

func (cc cleanupCloner) clone(sgf *PILGenFunction, v pil.Value) ManagedValue {
	if cc.hasCleanup {
		return sgf.ManagedFromOwned(v)
	}

	if sgf.Types().IsTrivial(v.Type()) {
		return ManagedTrivial(v)
	}

	return ManagedValue{value: v, kind: cc.kind}
}

// -----------------------------------------------------------------------------

// CreateAllocRef allocates a class instance.
func (gb *PILGenBuilder) CreateAllocRef(loc *report.TextSpan, class *types.ClassType) ManagedValue {
	return gb.sgf.ManagedFromOwned(gb.b.CreateAllocRef(loc, class))
}

// CreateLoadCopy loads an independent copy of the value at an address.
func (gb *PILGenBuilder) CreateLoadCopy(loc *report.TextSpan, addr ManagedValue) ManagedValue {
	tl := gb.sgf.Types().LoweringOf(addr.Type())
	return gb.sgf.ManagedFromOwned(tl.EmitLoad(gb.b, loc, addr.Value(), false))
}

// CreateLoadTake moves the value out of memory owned by addr.
func (gb *PILGenBuilder) CreateLoadTake(loc *report.TextSpan, addr ManagedValue) ManagedValue {
	tl := gb.sgf.Types().LoweringOf(addr.Type())
	return gb.sgf.ManagedFromOwned(tl.EmitLoad(gb.b, loc, addr.Forward(gb.sgf), true))
}

// CreateCopyValue copies a loadable value.
func (gb *PILGenBuilder) CreateCopyValue(loc *report.TextSpan, mv ManagedValue) ManagedValue {
	return mv.Copy(gb.sgf, loc)
}

// CreateTuple builds a tuple out of managed elements.  If any element is +1
// the tuple is +1 and all elements are consumed; otherwise the tuple is a
// borrowed aggregate.
func (gb *PILGenBuilder) CreateTuple(loc *report.TextSpan, typ pil.Type, elems []ManagedValue) ManagedValue {
	anyOwned := false
	for _, elem := range elems {
		if elem.HasCleanup() {
			anyOwned = true
		}
	}

	values := make([]pil.Value, len(elems))
	if !anyOwned {
		for i, elem := range elems {
			values[i] = elem.Value()
		}

		res := gb.b.CreateTuple(loc, typ, values)
		if gb.sgf.Types().IsTrivial(typ) {
			return ManagedTrivial(res)
		}

		return ManagedBorrowed(res)
	}

	for i, elem := range elems {
		values[i] = elem.EnsurePlusOne(gb.sgf, loc).Forward(gb.sgf)
	}

	return gb.sgf.ManagedFromOwned(gb.b.CreateTuple(loc, typ, values))
}

// CreateDestructureTuple splits a tuple into its elements.  A +1 tuple gives
// +1 elements each with its own cleanup; a borrowed tuple gives borrowed
// elements.
func (gb *PILGenBuilder) CreateDestructureTuple(loc *report.TextSpan, tuple ManagedValue) []ManagedValue {
	n := tuple.Type().NumTupleElements()
	cloner := newCleanupCloner(tuple)

	var parts []pil.Value
	if tuple.HasCleanup() && gb.sgf.F.HasOwnership {
		parts = gb.b.CreateDestructureTuple(loc, tuple.Forward(gb.sgf))
	} else {
		if tuple.HasCleanup() {
			tuple.Forward(gb.sgf)
		}

		parts = make([]pil.Value, n)
		for i := range parts {
			parts[i] = gb.b.CreateTupleExtract(loc, tuple.Value(), i)
		}
	}

	elems := make([]ManagedValue, n)
	for i, part := range parts {
		elems[i] = cloner.clone(gb.sgf, part)
	}

	return elems
}

// CreateDestructureStruct splits a struct into its fields with the same
// ownership rules as CreateDestructureTuple.
func (gb *PILGenBuilder) CreateDestructureStruct(loc *report.TextSpan, v ManagedValue) []ManagedValue {
	st := v.Type().Formal.(*types.StructType)
	cloner := newCleanupCloner(v)

	var parts []pil.Value
	if v.HasCleanup() && gb.sgf.F.HasOwnership {
		parts = gb.b.CreateDestructureStruct(loc, v.Forward(gb.sgf))
	} else {
		if v.HasCleanup() {
			v.Forward(gb.sgf)
		}

		parts = make([]pil.Value, len(st.Fields))
		for i := range parts {
			parts[i] = gb.b.CreateStructExtract(loc, v.Value(), i)
		}
	}

	fields := make([]ManagedValue, len(parts))
	for i, part := range parts {
		fields[i] = cloner.clone(gb.sgf, part)
	}

	return fields
}

// CreateStructExtract projects a field out of a struct as a borrowed value.
func (gb *PILGenBuilder) CreateStructExtract(loc *report.TextSpan, v ManagedValue, index int) ManagedValue {
	borrowed := v.Borrow(gb.sgf, loc)
	field := gb.b.CreateStructExtract(loc, borrowed.Value(), index)
	if gb.sgf.Types().IsTrivial(field.Type()) {
		return ManagedTrivial(field)
	}

	return ManagedBorrowed(field)
}

// CreateEnum builds an enum case consuming its payload.
func (gb *PILGenBuilder) CreateEnum(loc *report.TextSpan, typ pil.Type, caseIndex int, payload ManagedValue) ManagedValue {
	var raw pil.Value
	if payload.IsValid() {
		raw = payload.EnsurePlusOne(gb.sgf, loc).Forward(gb.sgf)
	}

	return gb.sgf.ManagedFromOwned(gb.b.CreateEnum(loc, typ, caseIndex, raw))
}

// CreateUpcast converts a class reference to a superclass reference.  The
// cleanup of the operand moves to the result.
func (gb *PILGenBuilder) CreateUpcast(loc *report.TextSpan, mv ManagedValue, to pil.Type) ManagedValue {
	cloner := newCleanupCloner(mv)
	return cloner.clone(gb.sgf, gb.b.CreateUpcast(loc, mv.Forward(gb.sgf), to))
}

// CreateUncheckedRefCast reinterprets a reference.  The cleanup of the operand
// moves to the result.
func (gb *PILGenBuilder) CreateUncheckedRefCast(loc *report.TextSpan, mv ManagedValue, to pil.Type) ManagedValue {
	cloner := newCleanupCloner(mv)
	return cloner.clone(gb.sgf, gb.b.CreateUncheckedRefCast(loc, mv.Forward(gb.sgf), to))
}

// CreateThinToThickFunction converts a thin function to a thick one.
func (gb *PILGenBuilder) CreateThinToThickFunction(loc *report.TextSpan, fn pil.Value, to pil.Type) ManagedValue {
	return gb.sgf.ManagedFromOwned(gb.b.CreateThinToThickFunction(loc, fn, to))
}

// CreatePartialApply binds arguments to a function, consuming them.
func (gb *PILGenBuilder) CreatePartialApply(loc *report.TextSpan, callee pil.Value, args []ManagedValue, to pil.Type) ManagedValue {
	raw := make([]pil.Value, len(args))
	for i, arg := range args {
		raw[i] = arg.EnsurePlusOne(gb.sgf, loc).Forward(gb.sgf)
	}

	return gb.sgf.ManagedFromOwned(gb.b.CreatePartialApply(loc, callee, raw, to))
}

// CreateApply calls a non-throwing function and manages its direct result.
func (gb *PILGenBuilder) CreateApply(loc *report.TextSpan, callee pil.Value, sig *pil.FunctionSignature, args []pil.Value) ManagedValue {
	return gb.sgf.ManagedFromOwned(gb.b.CreateApply(loc, callee, sig, args))
}
