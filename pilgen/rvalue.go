package pilgen

import (
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// RValue is a formal value held exploded: a tuple is represented by the
// managed values of its leaves rather than by a single aggregate.  This lets
// tuples be built and consumed element by element without materializing the
// aggregate.  Leaves of loadable type are always objects; leaves of
// address-only type are addresses.  The address of mutable storage is never
// exploded: an lvalue RValue has a single leaf whatever its type.
//
// An RValue is consumed by any of the forwarding operations and may not be
// used afterwards.
type RValue struct {
	typ    types.Type
	values []ManagedValue

	// The number of leaves still missing from an incomplete RValue.
	remaining int
	consumed  bool
}

// NewRValue explodes a managed value of formal type typ.
func NewRValue(sgf *PILGenFunction, loc *report.TextSpan, mv ManagedValue, typ types.Type) *RValue {
	rv := &RValue{typ: typ}
	explodeInto(sgf, loc, mv, typ, &rv.values)
	return rv
}

// NewIncompleteRValue creates an RValue to be filled element by element with
// AddElement.
func NewIncompleteRValue(typ types.Type) *RValue {
	return &RValue{typ: typ, remaining: types.ScalarCount(typ)}
}

// Type returns the formal type of the value.
func (rv *RValue) Type() types.Type {
	return rv.typ
}

// IsComplete returns whether every leaf has been added.
func (rv *RValue) IsComplete() bool {
	return rv.remaining == 0
}

// IsConsumed returns whether the value was forwarded.
func (rv *RValue) IsConsumed() bool {
	return rv.consumed
}

func (rv *RValue) checkUsable() {
	if rv.consumed {
		report.ReportICE("using an rvalue of type %s after it was consumed", rv.typ.Repr())
	}

	if !rv.IsComplete() {
		report.ReportICE("using an incomplete rvalue of type %s", rv.typ.Repr())
	}
}

// AddElement appends the leaves of the next element of an incomplete tuple
// RValue.  elem is consumed.
func (rv *RValue) AddElement(elem *RValue) {
	elem.checkUsable()
	if n := types.ScalarCount(elem.typ); len(elem.values) != n {
		report.ReportICE("adding an element of type %s with %d leaves instead of %d", elem.typ.Repr(), len(elem.values), n)
	}

	if len(elem.values) > rv.remaining {
		report.ReportICE("adding %d leaves to an rvalue missing %d", len(elem.values), rv.remaining)
	}

	rv.values = append(rv.values, elem.values...)
	rv.remaining -= len(elem.values)
	elem.consume()
}

// AddManagedElement explodes a managed value and appends it as the next
// element.
func (rv *RValue) AddManagedElement(sgf *PILGenFunction, loc *report.TextSpan, mv ManagedValue, typ types.Type) {
	rv.AddElement(NewRValue(sgf, loc, mv, typ))
}

// isLValue returns whether the value is the address of mutable storage.
func (rv *RValue) isLValue() bool {
	return len(rv.values) == 1 && rv.values[0].IsLValue()
}

func (rv *RValue) consume() {
	rv.consumed = true
	rv.values = nil
}

// Values returns the exploded leaves without consuming the value.
func (rv *RValue) Values() []ManagedValue {
	rv.checkUsable()
	return rv.values
}

// -----------------------------------------------------------------------------

// ExtractElements consumes a tuple RValue and returns one RValue per element.
func (rv *RValue) ExtractElements() []*RValue {
	rv.checkUsable()

	tt, ok := rv.typ.(*types.TupleType)
	if !ok {
		report.ReportICE("extracting elements of non-tuple rvalue of type %s", rv.typ.Repr())
	}

	if rv.isLValue() {
		report.ReportICE("extracting elements of an lvalue of type %s", rv.typ.Repr())
	}

	elems := make([]*RValue, len(tt.Elems))
	offset := 0
	for i, elem := range tt.Elems {
		n := types.ScalarCount(elem.Type)
		elems[i] = &RValue{typ: elem.Type, values: rv.values[offset : offset+n]}
		offset += n
	}

	rv.consume()
	return elems
}

// ExtractElement consumes a tuple RValue and returns a single element.  The
// other elements keep their cleanups and are destroyed with the scope.
func (rv *RValue) ExtractElement(i int) *RValue {
	return rv.ExtractElements()[i]
}

// Copy returns an independent +1 copy of the value without consuming it.
func (rv *RValue) Copy(sgf *PILGenFunction, loc *report.TextSpan) *RValue {
	rv.checkUsable()

	cp := &RValue{typ: rv.typ, values: make([]ManagedValue, len(rv.values))}
	for i, v := range rv.values {
		cp.values[i] = v.Copy(sgf, loc)
	}

	return cp
}

// EnsurePlusOne consumes the value and returns an RValue whose leaves can all
// be consumed.
func (rv *RValue) EnsurePlusOne(sgf *PILGenFunction, loc *report.TextSpan) *RValue {
	rv.checkUsable()

	res := &RValue{typ: rv.typ, values: make([]ManagedValue, len(rv.values))}
	for i, v := range rv.values {
		res.values[i] = v.EnsurePlusOne(sgf, loc)
	}

	rv.consume()
	return res
}

// GetAsSingleValue consumes the value and implodes it into a single managed
// value keeping the ownership of its leaves where possible.
func (rv *RValue) GetAsSingleValue(sgf *PILGenFunction, loc *report.TextSpan) ManagedValue {
	rv.checkUsable()

	mv, rest := implode(sgf, loc, rv.values, rv.typ, false)
	if len(rest) != 0 {
		report.ReportICE("%d leaves left over imploding rvalue of type %s", len(rest), rv.typ.Repr())
	}

	rv.consume()
	return mv
}

// ForwardAsSingleValue consumes the value, implodes it at +1 and forwards the
// result: the caller takes ownership of the returned value.
func (rv *RValue) ForwardAsSingleValue(sgf *PILGenFunction, loc *report.TextSpan) pil.Value {
	rv.checkUsable()

	mv, _ := implode(sgf, loc, rv.values, rv.typ, true)
	rv.consume()
	return mv.EnsurePlusOne(sgf, loc).Forward(sgf)
}

// ForwardInto consumes the value, initializing init with it.  Tuples are
// written element by element when the initialization can be split.
func (rv *RValue) ForwardInto(sgf *PILGenFunction, loc *report.TextSpan, init Initialization) {
	rv.checkUsable()

	if _, ok := rv.typ.(*types.TupleType); ok && init.CanSplitIntoTupleElements() {
		subs := init.SplitIntoTupleElements(sgf, loc, rv.typ)
		for i, elem := range rv.ExtractElements() {
			elem.ForwardInto(sgf, loc, subs[i])
			subs[i].FinishInitialization(sgf)
		}

		return
	}

	// a single leaf is written as is: a borrowed leaf is copied by the
	// initialization itself
	if _, ok := rv.typ.(*types.TupleType); !ok || rv.isLValue() {
		mv := rv.values[0]
		rv.consume()
		init.CopyOrInitValueInto(sgf, loc, mv, mv.IsPlusOne(sgf))
		return
	}

	mv, _ := implode(sgf, loc, rv.values, rv.typ, true)
	rv.consume()
	init.CopyOrInitValueInto(sgf, loc, mv, true)
}

// AssignInto consumes the value, replacing the initialized value at addr.
func (rv *RValue) AssignInto(sgf *PILGenFunction, loc *report.TextSpan, addr pil.Value) {
	rv.checkUsable()

	mv, _ := implode(sgf, loc, rv.values, rv.typ, true)
	rv.consume()
	mv.AssignInto(sgf, loc, addr)
}

// -----------------------------------------------------------------------------

// explodeInto appends the leaves of mv to out.
func explodeInto(sgf *PILGenFunction, loc *report.TextSpan, mv ManagedValue, typ types.Type, out *[]ManagedValue) {
	// an lvalue stands for the whole of its storage
	if mv.IsLValue() {
		*out = append(*out, mv)
		return
	}

	tt, ok := typ.(*types.TupleType)
	if !ok {
		*out = append(*out, mv.LoadIfLoadable(sgf, loc))
		return
	}

	if !mv.Type().IsAddress() {
		for i, elem := range sgf.B.CreateDestructureTuple(loc, mv) {
			explodeInto(sgf, loc, elem, tt.Elems[i].Type, out)
		}

		return
	}

	// A tuple in memory: the parent's cleanup is split over the element
	// addresses if it owns the tuple.
	plusOne := mv.HasCleanup()
	base := mv.Forward(sgf)
	for i, elem := range tt.Elems {
		eltAddr := sgf.B.Raw().CreateTupleElementAddr(loc, base, i)

		var emv ManagedValue
		if plusOne {
			emv = sgf.ManagedFromOwned(eltAddr)
		} else {
			emv = ManagedBorrowed(eltAddr)
		}

		explodeInto(sgf, loc, emv, elem.Type, out)
	}
}

// implode rebuilds a single value of type typ out of leading leaves of values
// and returns the unused leaves.  If plusOne is set, the result is +1.
func implode(sgf *PILGenFunction, loc *report.TextSpan, values []ManagedValue, typ types.Type, plusOne bool) (ManagedValue, []ManagedValue) {
	tt, ok := typ.(*types.TupleType)
	if !ok || (len(values) > 0 && values[0].IsLValue()) {
		if plusOne {
			return values[0].EnsurePlusOne(sgf, loc), values[1:]
		}

		return values[0], values[1:]
	}

	tl := sgf.Types().Lowering(typ)
	if tl.IsLoadable() {
		elems := make([]ManagedValue, len(tt.Elems))
		for i, elem := range tt.Elems {
			elems[i], values = implode(sgf, loc, values, elem.Type, plusOne)
		}

		return sgf.B.CreateTuple(loc, pil.ObjectType(typ), elems), values
	}

	tmp := sgf.emitTemporaryAllocation(loc, pil.ObjectType(typ))
	values = implodeInto(sgf, loc, values, typ, tmp)
	return sgf.ManagedFromOwned(tmp), values
}

// implodeInto initializes the memory at addr out of leading leaves of values
// and returns the unused leaves.
func implodeInto(sgf *PILGenFunction, loc *report.TextSpan, values []ManagedValue, typ types.Type, addr pil.Value) []ManagedValue {
	tt, ok := typ.(*types.TupleType)
	if !ok {
		values[0].ForwardInto(sgf, loc, addr)
		return values[1:]
	}

	for i, elem := range tt.Elems {
		values = implodeInto(sgf, loc, values, elem.Type, sgf.B.Raw().CreateTupleElementAddr(loc, addr, i))
	}

	return values
}
