package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// Initialization is a destination an expression can be emitted into.  The
// creator of an initialization calls FinishInitialization once the value has
// been written.
type Initialization interface {
	// Address returns the memory being initialized or the invalid value if the
	// initialization is not in memory.
	Address() pil.Value

	// CanSplitIntoTupleElements returns whether a tuple can be written into
	// the initialization element by element.
	CanSplitIntoTupleElements() bool

	// SplitIntoTupleElements returns one initialization per element of a
	// tuple of type typ.
	SplitIntoTupleElements(sgf *PILGenFunction, loc *report.TextSpan, typ types.Type) []Initialization

	// CopyOrInitValueInto writes a single value.  If isInit is set, the value
	// is consumed; otherwise it is copied.
	CopyOrInitValueInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool)

	// FinishInitialization marks the initialization as complete.
	FinishInitialization(sgf *PILGenFunction)
}

// -----------------------------------------------------------------------------

// KnownAddressInitialization initializes uninitialized memory at a known
// address.
type KnownAddressInitialization struct {
	addr pil.Value
}

// NewKnownAddressInitialization creates an initialization of the memory at
// addr.
func NewKnownAddressInitialization(addr pil.Value) *KnownAddressInitialization {
	return &KnownAddressInitialization{addr: addr}
}

func (ki *KnownAddressInitialization) Address() pil.Value {
	return ki.addr
}

func (ki *KnownAddressInitialization) CanSplitIntoTupleElements() bool {
	return ki.addr.Type().IsTuple()
}

func (ki *KnownAddressInitialization) SplitIntoTupleElements(sgf *PILGenFunction, loc *report.TextSpan, typ types.Type) []Initialization {
	return splitAddress(sgf, loc, ki.addr)
}

func (ki *KnownAddressInitialization) CopyOrInitValueInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool) {
	copyOrInitInto(sgf, loc, value, isInit, ki.addr)
}

func (ki *KnownAddressInitialization) FinishInitialization(sgf *PILGenFunction) {}

func splitAddress(sgf *PILGenFunction, loc *report.TextSpan, addr pil.Value) []Initialization {
	subs := make([]Initialization, addr.Type().NumTupleElements())
	for i := range subs {
		subs[i] = NewKnownAddressInitialization(sgf.B.Raw().CreateTupleElementAddr(loc, addr, i))
	}

	return subs
}

func copyOrInitInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool, addr pil.Value) {
	if !isInit {
		value.CopyInto(sgf, loc, addr)
		return
	}

	value.ForwardInto(sgf, loc, addr)
}

// -----------------------------------------------------------------------------

// TemporaryInitialization initializes a fresh stack temporary.  The temporary
// is deallocated with the enclosing scope; its value is destroyed once the
// initialization is finished.
type TemporaryInitialization struct {
	addr    pil.Value
	cleanup CleanupHandle
}

// NewTemporaryInitialization allocates a temporary of type typ.
func (sgf *PILGenFunction) NewTemporaryInitialization(loc *report.TextSpan, typ pil.Type) *TemporaryInitialization {
	addr := sgf.emitTemporaryAllocation(loc, typ)

	ti := &TemporaryInitialization{addr: addr}
	if !sgf.Types().IsTrivial(typ.ObjectType()) {
		ti.cleanup = sgf.pushDestroyAddr(addr, CleanupDormant)
	}

	return ti
}

func (ti *TemporaryInitialization) Address() pil.Value {
	return ti.addr
}

func (ti *TemporaryInitialization) CanSplitIntoTupleElements() bool {
	return ti.addr.Type().IsTuple()
}

func (ti *TemporaryInitialization) SplitIntoTupleElements(sgf *PILGenFunction, loc *report.TextSpan, typ types.Type) []Initialization {
	return splitAddress(sgf, loc, ti.addr)
}

func (ti *TemporaryInitialization) CopyOrInitValueInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool) {
	copyOrInitInto(sgf, loc, value, isInit, ti.addr)
}

func (ti *TemporaryInitialization) FinishInitialization(sgf *PILGenFunction) {
	if ti.cleanup.IsValid() {
		sgf.Cleanups.SetState(ti.cleanup, CleanupActive)
	}
}

// ManagedAddress returns the initialized temporary.
func (ti *TemporaryInitialization) ManagedAddress() ManagedValue {
	if ti.cleanup.IsValid() {
		return ManagedWithCleanup(ti.addr, ti.cleanup)
	}

	return ManagedTrivial(ti.addr)
}

// -----------------------------------------------------------------------------

// TupleInitialization initializes a tuple through one initialization per
// element.
type TupleInitialization struct {
	subs []Initialization
}

// NewTupleInitialization creates a tuple initialization out of element
// initializations.
func NewTupleInitialization(subs []Initialization) *TupleInitialization {
	return &TupleInitialization{subs: subs}
}

func (ti *TupleInitialization) Address() pil.Value {
	return pil.Value{}
}

func (ti *TupleInitialization) CanSplitIntoTupleElements() bool {
	return true
}

func (ti *TupleInitialization) SplitIntoTupleElements(sgf *PILGenFunction, loc *report.TextSpan, typ types.Type) []Initialization {
	return ti.subs
}

func (ti *TupleInitialization) CopyOrInitValueInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool) {
	if !isInit {
		value = value.Copy(sgf, loc)
	}

	rv := NewRValue(sgf, loc, value, value.Type().Formal)
	for i, elem := range rv.ExtractElements() {
		elem.ForwardInto(sgf, loc, ti.subs[i])
		ti.subs[i].FinishInitialization(sgf)
	}
}

func (ti *TupleInitialization) FinishInitialization(sgf *PILGenFunction) {}

// -----------------------------------------------------------------------------

// BlackHoleInitialization discards the value written into it: the value is
// destroyed with the enclosing scope.
type BlackHoleInitialization struct{}

func (BlackHoleInitialization) Address() pil.Value {
	return pil.Value{}
}

func (BlackHoleInitialization) CanSplitIntoTupleElements() bool {
	return true
}

func (bh BlackHoleInitialization) SplitIntoTupleElements(sgf *PILGenFunction, loc *report.TextSpan, typ types.Type) []Initialization {
	tt := typ.(*types.TupleType)

	subs := make([]Initialization, len(tt.Elems))
	for i := range subs {
		subs[i] = bh
	}

	return subs
}

func (BlackHoleInitialization) CopyOrInitValueInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool) {
}

func (BlackHoleInitialization) FinishInitialization(sgf *PILGenFunction) {}

// -----------------------------------------------------------------------------

// LetValueInitialization binds an immutable local.  A loadable value is bound
// directly as the variable's value; an address-only value is written into a
// stack slot allocated when the initialization is created.  The binding takes
// effect in FinishInitialization which must run in the variable's scope.
type LetValueInitialization struct {
	vd *ast.VarDecl

	slot    *TemporaryInitialization
	pending pil.Value
}

// NewLetValueInitialization prepares the binding of vd.
func (sgf *PILGenFunction) NewLetValueInitialization(loc *report.TextSpan, vd *ast.VarDecl) *LetValueInitialization {
	li := &LetValueInitialization{vd: vd}
	if sgf.Types().Lowering(vd.Type).IsAddressOnly() {
		li.slot = sgf.NewTemporaryInitialization(loc, pil.ObjectType(vd.Type))
	}

	return li
}

func (li *LetValueInitialization) Address() pil.Value {
	if li.slot != nil {
		return li.slot.Address()
	}

	return pil.Value{}
}

func (li *LetValueInitialization) CanSplitIntoTupleElements() bool {
	return li.slot != nil && li.slot.CanSplitIntoTupleElements()
}

func (li *LetValueInitialization) SplitIntoTupleElements(sgf *PILGenFunction, loc *report.TextSpan, typ types.Type) []Initialization {
	return li.slot.SplitIntoTupleElements(sgf, loc, typ)
}

func (li *LetValueInitialization) CopyOrInitValueInto(sgf *PILGenFunction, loc *report.TextSpan, value ManagedValue, isInit bool) {
	if li.slot != nil {
		li.slot.CopyOrInitValueInto(sgf, loc, value, isInit)
		return
	}

	if !isInit {
		value = value.Copy(sgf, loc)
	}

	li.pending = value.EnsurePlusOne(sgf, loc).Forward(sgf)
}

func (li *LetValueInitialization) FinishInitialization(sgf *PILGenFunction) {
	loc := li.vd.Span()

	if li.slot != nil {
		li.slot.FinishInitialization(sgf)
		sgf.VarLocs[li.vd] = VarLoc{Value: li.slot.Address()}
		return
	}

	if !li.pending.IsValid() {
		report.ReportICE("binding `%s` before it is initialized", li.vd.Name)
	}

	sgf.ManagedFromOwned(li.pending)
	sgf.VarLocs[li.vd] = VarLoc{Value: li.pending}
	sgf.B.Raw().CreateDebugValue(loc, li.pending, li.vd.Name)
}
