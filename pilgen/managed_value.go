package pilgen

import (
	"pilc/pil"
	"pilc/report"
)

// ManagedValueKind says how a ManagedValue owns the value it wraps.
type ManagedValueKind int

// Enumeration of managed value kinds.
const (
	// A trivial value: no lifetime to manage.
	ManagedNone ManagedValueKind = iota

	// A non-trivial value with no ownership contract.
	ManagedUnowned

	// A +1 value kept alive by a cleanup.
	ManagedOwned

	// A borrowed value kept alive by someone else for the current scope.
	ManagedGuaranteed

	// The address of mutable storage.
	ManagedLValueKind

	// The value was emitted directly into the context's initialization.
	ManagedInContext
)

// ManagedValue pairs a PIL value with the cleanup (if any) responsible for
// ending its lifetime.  Consuming a managed value forwards its cleanup so the
// value is destroyed exactly once.
type ManagedValue struct {
	value   pil.Value
	cleanup CleanupHandle
	kind    ManagedValueKind
}

// ManagedFromOwned wraps a +1 value with a new cleanup destroying it.  Trivial
// values get no cleanup.
func (sgf *PILGenFunction) ManagedFromOwned(v pil.Value) ManagedValue {
	if v.Type().IsAddress() {
		if sgf.Types().IsTrivial(v.Type().ObjectType()) {
			return ManagedValue{value: v, kind: ManagedNone}
		}

		return ManagedValue{value: v, cleanup: sgf.pushDestroyAddr(v, CleanupActive), kind: ManagedOwned}
	}

	if sgf.Types().IsTrivial(v.Type()) {
		return ManagedValue{value: v, kind: ManagedNone}
	}

	return ManagedValue{value: v, cleanup: sgf.pushDestroyValue(v), kind: ManagedOwned}
}

// ManagedBorrowed wraps a value whose lifetime is guaranteed by its producer.
func ManagedBorrowed(v pil.Value) ManagedValue {
	return ManagedValue{value: v, kind: ManagedGuaranteed}
}

// ManagedTrivial wraps a trivial value.
func ManagedTrivial(v pil.Value) ManagedValue {
	return ManagedValue{value: v, kind: ManagedNone}
}

// ManagedUnownedValue wraps a value with no ownership contract.
func ManagedUnownedValue(v pil.Value) ManagedValue {
	return ManagedValue{value: v, kind: ManagedUnowned}
}

// ManagedLValue wraps the address of mutable storage.
func ManagedLValue(addr pil.Value) ManagedValue {
	return ManagedValue{value: addr, kind: ManagedLValueKind}
}

// ManagedWithCleanup wraps a value with an existing cleanup.
func ManagedWithCleanup(v pil.Value, cleanup CleanupHandle) ManagedValue {
	return ManagedValue{value: v, cleanup: cleanup, kind: ManagedOwned}
}

// ManagedInContextValue is the marker returned when an expression was emitted
// directly into its initialization.
func ManagedInContextValue() ManagedValue {
	return ManagedValue{kind: ManagedInContext}
}

// -----------------------------------------------------------------------------

// IsValid returns whether the managed value holds a value.
func (mv ManagedValue) IsValid() bool {
	return mv.value.IsValid() || mv.kind == ManagedInContext
}

// IsInContext returns whether the value was emitted into its context.
func (mv ManagedValue) IsInContext() bool {
	return mv.kind == ManagedInContext
}

// Kind returns the ownership kind of the managed value.
func (mv ManagedValue) Kind() ManagedValueKind {
	return mv.kind
}

// Value returns the wrapped value without affecting its cleanup.
func (mv ManagedValue) Value() pil.Value {
	return mv.value
}

// Type returns the lowered type of the wrapped value.
func (mv ManagedValue) Type() pil.Type {
	return mv.value.Type()
}

// HasCleanup returns whether the value is kept alive by a cleanup.
func (mv ManagedValue) HasCleanup() bool {
	return mv.cleanup.IsValid()
}

// Cleanup returns the cleanup of the value.
func (mv ManagedValue) Cleanup() CleanupHandle {
	return mv.cleanup
}

// IsLValue returns whether the value is the address of mutable storage.
func (mv ManagedValue) IsLValue() bool {
	return mv.kind == ManagedLValueKind
}

// IsPlusOne returns whether the value can be consumed without copying it.
func (mv ManagedValue) IsPlusOne(sgf *PILGenFunction) bool {
	if mv.HasCleanup() {
		return true
	}

	return mv.kind == ManagedNone || (mv.value.Type().IsObject() && sgf.Types().IsTrivial(mv.value.Type()))
}

// Forward disables the value's cleanup and returns the raw value: the caller
// takes over responsibility for its lifetime.  A value can only be forwarded
// once.
func (mv ManagedValue) Forward(sgf *PILGenFunction) pil.Value {
	if mv.HasCleanup() {
		sgf.Cleanups.ForwardCleanup(mv.cleanup)
	}

	return mv.value
}

// Copy emits an independent +1 copy of the value.
func (mv ManagedValue) Copy(sgf *PILGenFunction, loc *report.TextSpan) ManagedValue {
	if !mv.value.IsValid() {
		report.ReportICE("copying an invalid managed value")
	}

	tl := sgf.Types().LoweringOf(mv.Type())
	if mv.Type().IsObject() {
		if tl.IsTrivial() {
			return ManagedTrivial(mv.value)
		}

		return sgf.ManagedFromOwned(tl.EmitCopyValue(sgf.B.Raw(), loc, mv.value))
	}

	if tl.IsLoadable() {
		return sgf.ManagedFromOwned(tl.EmitLoad(sgf.B.Raw(), loc, mv.value, false))
	}

	tmp := sgf.emitTemporaryAllocation(loc, mv.Type())
	sgf.B.Raw().CreateCopyAddr(loc, mv.value, tmp, false, true)
	return sgf.ManagedFromOwned(tmp)
}

// Borrow returns a guaranteed view of the value valid within the current
// scope.  No cleanup is created.
func (mv ManagedValue) Borrow(sgf *PILGenFunction, loc *report.TextSpan) ManagedValue {
	if !mv.value.IsValid() {
		report.ReportICE("borrowing an invalid managed value")
	}

	if mv.kind == ManagedNone {
		return mv
	}

	return ManagedBorrowed(mv.value)
}

// EnsurePlusOne returns the value itself if it can be consumed and a copy
// otherwise.
func (mv ManagedValue) EnsurePlusOne(sgf *PILGenFunction, loc *report.TextSpan) ManagedValue {
	if mv.IsPlusOne(sgf) {
		return mv
	}

	return mv.Copy(sgf, loc)
}

// Materialize stores the value into a new stack temporary and returns the
// temporary's address.  The value is consumed (copying it first if needed).
func (mv ManagedValue) Materialize(sgf *PILGenFunction, loc *report.TextSpan) ManagedValue {
	if mv.Type().IsAddress() {
		return mv
	}

	tmp := sgf.emitTemporaryAllocation(loc, mv.Type())
	mv.ForwardInto(sgf, loc, tmp)
	return sgf.ManagedFromOwned(tmp)
}

// ForwardInto initializes the uninitialized memory at addr with the value,
// consuming it.  A value that cannot be consumed is copied into addr.
func (mv ManagedValue) ForwardInto(sgf *PILGenFunction, loc *report.TextSpan, addr pil.Value) {
	if !mv.IsPlusOne(sgf) {
		mv.CopyInto(sgf, loc, addr)
		return
	}

	tl := sgf.Types().LoweringOf(mv.Type())
	if mv.Type().IsObject() {
		tl.EmitStore(sgf.B.Raw(), loc, mv.Forward(sgf), addr, true)
	} else {
		tl.EmitCopyInto(sgf.B.Raw(), loc, mv.Forward(sgf), addr, true, true)
	}
}

// CopyInto initializes the uninitialized memory at addr with a copy of the
// value.  Values in memory are copied straight into addr.
func (mv ManagedValue) CopyInto(sgf *PILGenFunction, loc *report.TextSpan, addr pil.Value) {
	if mv.Type().IsAddress() {
		sgf.Types().LoweringOf(mv.Type()).EmitCopyInto(sgf.B.Raw(), loc, mv.value, addr, false, true)
		return
	}

	mv.Copy(sgf, loc).ForwardInto(sgf, loc, addr)
}

// AssignInto replaces the initialized value at addr with the value, consuming
// it.
func (mv ManagedValue) AssignInto(sgf *PILGenFunction, loc *report.TextSpan, addr pil.Value) {
	plusOne := mv.EnsurePlusOne(sgf, loc)
	tl := sgf.Types().LoweringOf(plusOne.Type())

	if plusOne.Type().IsObject() {
		tl.EmitStore(sgf.B.Raw(), loc, plusOne.Forward(sgf), addr, false)
	} else {
		tl.EmitCopyInto(sgf.B.Raw(), loc, plusOne.Forward(sgf), addr, true, false)
	}
}

// LoadIfLoadable turns the address of a loadable value into an object.  The
// value at the address is taken if the managed value owns it and copied
// otherwise.  Objects and address-only values are returned unchanged.
func (mv ManagedValue) LoadIfLoadable(sgf *PILGenFunction, loc *report.TextSpan) ManagedValue {
	if !mv.Type().IsAddress() {
		return mv
	}

	tl := sgf.Types().LoweringOf(mv.Type())
	if !tl.IsLoadable() {
		return mv
	}

	if mv.HasCleanup() {
		return sgf.ManagedFromOwned(tl.EmitLoad(sgf.B.Raw(), loc, mv.Forward(sgf), true))
	}

	return sgf.ManagedFromOwned(tl.EmitLoad(sgf.B.Raw(), loc, mv.value, false))
}

// -----------------------------------------------------------------------------

// emitTemporaryAllocation allocates stack memory deallocated when the current
// scope exits.
func (sgf *PILGenFunction) emitTemporaryAllocation(loc *report.TextSpan, typ pil.Type) pil.Value {
	addr := sgf.B.Raw().CreateAllocStack(loc, typ.ObjectType())
	sgf.pushDeallocStack(addr)
	return addr
}
