package pil

import (
	"pilc/report"
	"pilc/types"
)

// Builder is a cursor into a function: it creates instructions at its
// insertion point.  The builder either has a valid insertion point (a block
// and a position within it) or none at all; emitting a terminator clears the
// insertion point since nothing may follow a terminator in its block.
type Builder struct {
	f *Function

	// The insertion block and the instruction new instructions are inserted
	// before.  An insertBefore of 0 means the end of the block.
	block        BlockID
	insertBefore InstID

	// The optional list every created instruction is recorded in.
	trackingList *[]InstID
}

// NewBuilder creates a new builder for f with no insertion point.
func NewBuilder(f *Function) *Builder {
	return &Builder{f: f}
}

// Function returns the function being built.
func (b *Builder) Function() *Function {
	return b.f
}

// Types returns the type converter used by the builder.
func (b *Builder) Types() *TypeConverter {
	return b.f.Module.Types
}

// -----------------------------------------------------------------------------

// SetInsertionPoint moves the insertion point to the end of a block.
func (b *Builder) SetInsertionPoint(id BlockID) {
	if b.f.Block(id).IsDead() {
		icef("insertion point set in erased block bb%d", id)
	}

	b.block = id
	b.insertBefore = 0
}

// SetInsertionPointBefore moves the insertion point to just before an
// instruction.
func (b *Builder) SetInsertionPointBefore(id InstID) {
	inst := b.f.Inst(id)
	b.block = inst.block
	b.insertBefore = id
}

// ClearInsertionPoint removes the insertion point.
func (b *Builder) ClearInsertionPoint() {
	b.block = 0
	b.insertBefore = 0
}

// HasValidInsertionPoint returns whether instructions can be emitted.
func (b *Builder) HasValidInsertionPoint() bool {
	return b.block != 0
}

// InsertionBlock returns the block instructions are inserted into.
func (b *Builder) InsertionBlock() BlockID {
	return b.block
}

// EmitBlock makes a block the new insertion point.  If the current insertion
// point is valid, control falls through into the block: a branch to it is
// emitted and the block is laid out right after the current one.
func (b *Builder) EmitBlock(loc *report.TextSpan, id BlockID) {
	if b.HasValidInsertionPoint() {
		cur := b.block
		b.CreateBranch(loc, id, nil)
		b.f.MoveBlockAfter(id, cur)
	}

	b.SetInsertionPoint(id)
}

// SetTrackingList makes the builder record every created instruction in list.
// Passing nil disables tracking.
func (b *Builder) SetTrackingList(list *[]InstID) {
	b.trackingList = list
}

// TrackingList returns the current tracking list.
func (b *Builder) TrackingList() *[]InstID {
	return b.trackingList
}

// -----------------------------------------------------------------------------

// insert places a freshly created instruction at the insertion point.
func (b *Builder) insert(inst *Instruction) *Instruction {
	if !b.HasValidInsertionPoint() {
		icef("creating %s with no insertion point", inst.Op.Repr())
	}

	bb := b.f.Block(b.block)
	if b.insertBefore == 0 {
		if term := b.f.Terminator(b.block); term != nil {
			icef("creating %s after the terminator of bb%d", inst.Op.Repr(), b.block)
		}

		b.f.insertInst(inst, b.block, len(bb.insts))
	} else {
		if inst.IsTerminator() {
			icef("inserting terminator %s in the middle of bb%d", inst.Op.Repr(), b.block)
		}

		b.f.insertInst(inst, b.block, bb.indexOf(b.insertBefore))
	}

	if b.trackingList != nil {
		*b.trackingList = append(*b.trackingList, inst.ID)
	}

	if inst.IsTerminator() {
		b.ClearInsertionPoint()
	}

	return inst
}

// newInst allocates an instruction with the given operands.
func (b *Builder) newInst(op Opcode, loc *report.TextSpan, operands ...Value) *Instruction {
	inst := b.f.newInst(op, loc)
	for _, operand := range operands {
		if !operand.IsValid() {
			icef("%s given an invalid operand", op.Repr())
		}
	}

	inst.Operands = operands
	return inst
}

// result defines a result of inst whose ownership follows from its type.
func (b *Builder) result(inst *Instruction, typ Type) Value {
	ownership := OwnershipNone
	if !b.Types().IsTrivial(typ) {
		ownership = OwnershipOwned
	}

	return b.f.addResult(inst, typ, ownership)
}

// forwardingResult defines a result of inst which forwards the ownership of
// one of its operands.
func (b *Builder) forwardingResult(inst *Instruction, typ Type, from Value) Value {
	ownership := OwnershipNone
	if !b.Types().IsTrivial(typ) {
		ownership = b.f.Ownership(from)
	}

	return b.f.addResult(inst, typ, ownership)
}

// checkLoadable asserts that values of typ can be held in registers.
func (b *Builder) checkLoadable(op Opcode, typ Type) {
	if !b.Types().IsLoadable(typ) {
		icef("%s on address-only type %s", op.Repr(), typ.Repr())
	}
}

// checkAddress asserts that v is an address.
func (b *Builder) checkAddress(op Opcode, v Value) {
	if !v.Type().IsAddress() {
		icef("%s expects an address operand, got %s", op.Repr(), v.Type().Repr())
	}
}

// checkOwnershipMode asserts that the function is (or is not) in ownership
// qualified mode.
func (b *Builder) checkOwnershipMode(op Opcode, ownership bool) {
	if b.f.HasOwnership != ownership {
		if ownership {
			icef("%s is only legal in ownership qualified PIL", op.Repr())
		} else {
			icef("%s is illegal in ownership qualified PIL", op.Repr())
		}
	}
}

// -----------------------------------------------------------------------------

// CreateIntegerLiteral creates an integer literal of a trivial type.
func (b *Builder) CreateIntegerLiteral(loc *report.TextSpan, typ Type, value int64) Value {
	inst := b.newInst(OpIntegerLiteral, loc)
	inst.IntValue = value
	v := b.f.addResult(inst, typ, OwnershipNone)
	b.insert(inst)
	return v
}

// CreateFloatLiteral creates a floating-point literal.
func (b *Builder) CreateFloatLiteral(loc *report.TextSpan, typ Type, value float64) Value {
	inst := b.newInst(OpFloatLiteral, loc)
	inst.FloatValue = value
	v := b.f.addResult(inst, typ, OwnershipNone)
	b.insert(inst)
	return v
}

// CreateFunctionRef creates a reference to a function: a thin function value.
func (b *Builder) CreateFunctionRef(loc *report.TextSpan, fn *Function) Value {
	inst := b.newInst(OpFunctionRef, loc)
	inst.Symbol = fn.Name
	v := b.f.addResult(inst, fn.Sig.FuncValueType(), OwnershipNone)
	b.insert(inst)
	return v
}

// CreateGlobalAddr creates the address of a global variable.
func (b *Builder) CreateGlobalAddr(loc *report.TextSpan, g *GlobalVariable) Value {
	inst := b.newInst(OpGlobalAddr, loc)
	inst.Symbol = g.Name
	v := b.f.addResult(inst, AddressType(g.Type), OwnershipNone)
	b.insert(inst)
	return v
}

// CreateMetatype creates the thin metatype of a type.
func (b *Builder) CreateMetatype(loc *report.TextSpan, instance types.Type) Value {
	inst := b.newInst(OpMetatype, loc)
	mt := ObjectType(&types.MetatypeType{Instance: instance})
	inst.TypeOperand = mt
	v := b.f.addResult(inst, mt, OwnershipNone)
	b.insert(inst)
	return v
}

// -----------------------------------------------------------------------------

// CreateAllocStack allocates uninitialized stack memory for a value of typ.
func (b *Builder) CreateAllocStack(loc *report.TextSpan, typ Type) Value {
	inst := b.newInst(OpAllocStack, loc)
	inst.TypeOperand = typ.ObjectType()
	v := b.f.addResult(inst, typ.AddressType(), OwnershipNone)
	b.insert(inst)
	return v
}

// CreateDeallocStack deallocates stack memory.
func (b *Builder) CreateDeallocStack(loc *report.TextSpan, addr Value) {
	b.checkAddress(OpDeallocStack, addr)
	b.insert(b.newInst(OpDeallocStack, loc, addr))
}

// CreateAllocBox allocates a heap box for a value of typ.
func (b *Builder) CreateAllocBox(loc *report.TextSpan, typ Type) Value {
	inst := b.newInst(OpAllocBox, loc)
	inst.TypeOperand = typ.ObjectType()
	v := b.f.addResult(inst, BoxType(typ.Formal), OwnershipOwned)
	b.insert(inst)
	return v
}

// CreateProjectBox returns the address of a box's contents.
func (b *Builder) CreateProjectBox(loc *report.TextSpan, box Value) Value {
	if !box.Type().IsBox() {
		icef("project_box of non-box type %s", box.Type().Repr())
	}

	inst := b.newInst(OpProjectBox, loc, box)
	v := b.f.addResult(inst, AddressType(box.Type().Formal), OwnershipNone)
	b.insert(inst)
	return v
}

// CreateAllocRef allocates a class instance.
func (b *Builder) CreateAllocRef(loc *report.TextSpan, class *types.ClassType) Value {
	inst := b.newInst(OpAllocRef, loc)
	inst.TypeOperand = ObjectType(class)
	v := b.f.addResult(inst, ObjectType(class), OwnershipOwned)
	b.insert(inst)
	return v
}

// CreateLoad loads a value from memory.
func (b *Builder) CreateLoad(loc *report.TextSpan, addr Value, qual LoadQualifier) Value {
	b.checkAddress(OpLoad, addr)
	b.checkLoadable(OpLoad, addr.Type().ObjectType())

	objType := addr.Type().ObjectType()
	if b.f.HasOwnership {
		switch {
		case qual == LoadUnqualified:
			icef("unqualified load in ownership qualified PIL")
		case qual == LoadTrivial && !b.Types().IsTrivial(objType):
			icef("load [trivial] of non-trivial type %s", objType.Repr())
		case qual != LoadTrivial && b.Types().IsTrivial(objType):
			icef("load %sof trivial type %s", qual.Repr(), objType.Repr())
		}
	} else if qual != LoadUnqualified {
		icef("qualified load in non-ownership PIL")
	}

	inst := b.newInst(OpLoad, loc, addr)
	inst.LoadQual = qual
	v := b.result(inst, objType)
	b.insert(inst)
	return v
}

// CreateStore stores a value into memory.
func (b *Builder) CreateStore(loc *report.TextSpan, src, dest Value, qual StoreQualifier) {
	b.checkAddress(OpStore, dest)
	b.checkLoadable(OpStore, src.Type())

	if b.f.HasOwnership {
		switch {
		case qual == StoreUnqualified:
			icef("unqualified store in ownership qualified PIL")
		case qual == StoreTrivial && !b.Types().IsTrivial(src.Type()):
			icef("store [trivial] of non-trivial type %s", src.Type().Repr())
		case qual != StoreTrivial && b.Types().IsTrivial(src.Type()):
			icef("store %sof trivial type %s", qual.Repr(), src.Type().Repr())
		}
	} else if qual != StoreUnqualified {
		icef("qualified store in non-ownership PIL")
	}

	inst := b.newInst(OpStore, loc, src, dest)
	inst.StoreQual = qual
	b.insert(inst)
}

// CreateLoadBorrow borrows the value stored at an address.
func (b *Builder) CreateLoadBorrow(loc *report.TextSpan, addr Value) Value {
	b.checkOwnershipMode(OpLoadBorrow, true)
	b.checkAddress(OpLoadBorrow, addr)
	b.checkLoadable(OpLoadBorrow, addr.Type().ObjectType())

	inst := b.newInst(OpLoadBorrow, loc, addr)
	v := b.f.addResult(inst, addr.Type().ObjectType(), OwnershipGuaranteed)
	b.insert(inst)
	return v
}

// CreateBeginBorrow begins a borrow scope of an owned value.
func (b *Builder) CreateBeginBorrow(loc *report.TextSpan, v Value) Value {
	b.checkOwnershipMode(OpBeginBorrow, true)
	b.checkLoadable(OpBeginBorrow, v.Type())

	inst := b.newInst(OpBeginBorrow, loc, v)
	res := b.f.addResult(inst, v.Type(), OwnershipGuaranteed)
	b.insert(inst)
	return res
}

// CreateEndBorrow ends a borrow scope.
func (b *Builder) CreateEndBorrow(loc *report.TextSpan, borrowed Value) {
	b.checkOwnershipMode(OpEndBorrow, true)
	b.insert(b.newInst(OpEndBorrow, loc, borrowed))
}

// CreateCopyAddr copies the value at src into dest.
func (b *Builder) CreateCopyAddr(loc *report.TextSpan, src, dest Value, take, init bool) {
	b.checkAddress(OpCopyAddr, src)
	b.checkAddress(OpCopyAddr, dest)

	inst := b.newInst(OpCopyAddr, loc, src, dest)
	inst.IsTake = take
	inst.IsInit = init
	b.insert(inst)
}

// CreateDestroyAddr destroys the value stored at an address.
func (b *Builder) CreateDestroyAddr(loc *report.TextSpan, addr Value) {
	b.checkAddress(OpDestroyAddr, addr)
	b.insert(b.newInst(OpDestroyAddr, loc, addr))
}

// -----------------------------------------------------------------------------

// CreateCopyValue creates an independent +1 copy of a value.
func (b *Builder) CreateCopyValue(loc *report.TextSpan, v Value) Value {
	b.checkOwnershipMode(OpCopyValue, true)
	b.checkLoadable(OpCopyValue, v.Type())

	inst := b.newInst(OpCopyValue, loc, v)
	res := b.f.addResult(inst, v.Type(), OwnershipOwned)
	b.insert(inst)
	return res
}

// CreateDestroyValue consumes a +1 value.
func (b *Builder) CreateDestroyValue(loc *report.TextSpan, v Value) {
	b.checkOwnershipMode(OpDestroyValue, true)
	b.checkLoadable(OpDestroyValue, v.Type())
	b.insert(b.newInst(OpDestroyValue, loc, v))
}

// CreateRetainValue retains a value.
func (b *Builder) CreateRetainValue(loc *report.TextSpan, v Value) {
	b.checkOwnershipMode(OpRetainValue, false)
	b.checkLoadable(OpRetainValue, v.Type())
	b.insert(b.newInst(OpRetainValue, loc, v))
}

// CreateReleaseValue releases a value.
func (b *Builder) CreateReleaseValue(loc *report.TextSpan, v Value) {
	b.checkOwnershipMode(OpReleaseValue, false)
	b.checkLoadable(OpReleaseValue, v.Type())
	b.insert(b.newInst(OpReleaseValue, loc, v))
}

// -----------------------------------------------------------------------------

// CreateTuple builds a tuple out of its elements.
func (b *Builder) CreateTuple(loc *report.TextSpan, typ Type, elems []Value) Value {
	b.checkLoadable(OpTuple, typ)
	if typ.NumTupleElements() != len(elems) {
		icef("tuple of type %s given %d elements", typ.Repr(), len(elems))
	}

	inst := b.newInst(OpTuple, loc, elems...)
	res := b.aggregateResult(inst, typ, elems)
	b.insert(inst)
	return res
}

// aggregateResult defines the result of an aggregate instruction: it is owned
// if any of its elements is owned.
func (b *Builder) aggregateResult(inst *Instruction, typ Type, elems []Value) Value {
	ownership := OwnershipNone
	if !b.Types().IsTrivial(typ) {
		ownership = OwnershipGuaranteed
		for _, elem := range elems {
			if b.f.Ownership(elem) == OwnershipOwned {
				ownership = OwnershipOwned
			}
		}
	}

	return b.f.addResult(inst, typ, ownership)
}

// CreateTupleExtract projects an element out of a tuple value.
func (b *Builder) CreateTupleExtract(loc *report.TextSpan, tuple Value, index int) Value {
	inst := b.newInst(OpTupleExtract, loc, tuple)
	inst.Index = index
	res := b.forwardingResult(inst, tuple.Type().TupleElementType(index), tuple)
	b.insert(inst)
	return res
}

// CreateTupleElementAddr projects the address of an element of a tuple in
// memory.
func (b *Builder) CreateTupleElementAddr(loc *report.TextSpan, addr Value, index int) Value {
	b.checkAddress(OpTupleElementAddr, addr)

	inst := b.newInst(OpTupleElementAddr, loc, addr)
	inst.Index = index
	res := b.f.addResult(inst, addr.Type().TupleElementType(index), OwnershipNone)
	b.insert(inst)
	return res
}

// CreateDestructureTuple splits a tuple into its elements, forwarding its
// ownership to each of them.
func (b *Builder) CreateDestructureTuple(loc *report.TextSpan, tuple Value) []Value {
	b.checkOwnershipMode(OpDestructureTuple, true)
	b.checkLoadable(OpDestructureTuple, tuple.Type())

	inst := b.newInst(OpDestructureTuple, loc, tuple)
	for i := 0; i < tuple.Type().NumTupleElements(); i++ {
		b.forwardingResult(inst, tuple.Type().TupleElementType(i), tuple)
	}

	b.insert(inst)
	return inst.Results
}

// CreateStruct builds a struct out of its fields.
func (b *Builder) CreateStruct(loc *report.TextSpan, typ Type, fields []Value) Value {
	b.checkLoadable(OpStruct, typ)

	inst := b.newInst(OpStruct, loc, fields...)
	res := b.aggregateResult(inst, typ, fields)
	b.insert(inst)
	return res
}

// CreateStructExtract projects a field out of a struct value.
func (b *Builder) CreateStructExtract(loc *report.TextSpan, v Value, index int) Value {
	inst := b.newInst(OpStructExtract, loc, v)
	inst.Index = index
	res := b.forwardingResult(inst, v.Type().StructFieldType(index), v)
	b.insert(inst)
	return res
}

// CreateStructElementAddr projects the address of a field of a struct in
// memory.
func (b *Builder) CreateStructElementAddr(loc *report.TextSpan, addr Value, index int) Value {
	b.checkAddress(OpStructElementAddr, addr)

	inst := b.newInst(OpStructElementAddr, loc, addr)
	inst.Index = index
	res := b.f.addResult(inst, addr.Type().StructFieldType(index), OwnershipNone)
	b.insert(inst)
	return res
}

// CreateDestructureStruct splits a struct into its fields.
func (b *Builder) CreateDestructureStruct(loc *report.TextSpan, v Value) []Value {
	b.checkOwnershipMode(OpDestructureStruct, true)
	b.checkLoadable(OpDestructureStruct, v.Type())

	st, ok := v.Type().Formal.(*types.StructType)
	if !ok {
		icef("destructure_struct of non-struct type %s", v.Type().Repr())
	}

	inst := b.newInst(OpDestructureStruct, loc, v)
	for i := range st.Fields {
		b.forwardingResult(inst, v.Type().StructFieldType(i), v)
	}

	b.insert(inst)
	return inst.Results
}

// CreateEnum builds an enum case.  The payload may be the invalid value for
// cases without a payload.
func (b *Builder) CreateEnum(loc *report.TextSpan, typ Type, caseIndex int, payload Value) Value {
	b.checkLoadable(OpEnum, typ)

	var inst *Instruction
	if payload.IsValid() {
		inst = b.newInst(OpEnum, loc, payload)
	} else {
		inst = b.newInst(OpEnum, loc)
	}

	inst.Index = caseIndex
	res := b.aggregateResult(inst, typ, inst.Operands)
	if !payload.IsValid() && !b.Types().IsTrivial(typ) {
		// a payload-less case of a non-trivial enum owns nothing
		b.f.values[res.id].ownership = OwnershipOwned
	}

	b.insert(inst)
	return res
}

// -----------------------------------------------------------------------------

// CreateInitExistentialAddr prepares an existential in memory to hold a value
// of a concrete type and returns the address of the concrete value.
func (b *Builder) CreateInitExistentialAddr(loc *report.TextSpan, existential Value, concrete types.Type, conformance string) Value {
	b.checkAddress(OpInitExistentialAddr, existential)

	inst := b.newInst(OpInitExistentialAddr, loc, existential)
	inst.TypeOperand = ObjectType(concrete)
	inst.Conformance = conformance
	res := b.f.addResult(inst, AddressType(concrete), OwnershipNone)
	b.insert(inst)
	return res
}

// CreateUpcast converts a class reference to a superclass reference.  The
// result forwards the ownership of the operand.
func (b *Builder) CreateUpcast(loc *report.TextSpan, v Value, to Type) Value {
	inst := b.newInst(OpUpcast, loc, v)
	res := b.forwardingResult(inst, to, v)
	b.insert(inst)
	return res
}

// CreateUncheckedRefCast reinterprets a reference.  The result forwards the
// ownership of the operand.
func (b *Builder) CreateUncheckedRefCast(loc *report.TextSpan, v Value, to Type) Value {
	inst := b.newInst(OpUncheckedRefCast, loc, v)
	res := b.forwardingResult(inst, to, v)
	b.insert(inst)
	return res
}

// CreateThinToThickFunction converts a thin function to a thick function with
// an empty context.
func (b *Builder) CreateThinToThickFunction(loc *report.TextSpan, v Value, to Type) Value {
	inst := b.newInst(OpThinToThickFunction, loc, v)
	res := b.f.addResult(inst, to, OwnershipOwned)
	b.insert(inst)
	return res
}

// CreateAddressToPointer converts an address to a raw pointer.
func (b *Builder) CreateAddressToPointer(loc *report.TextSpan, addr Value) Value {
	b.checkAddress(OpAddressToPointer, addr)

	inst := b.newInst(OpAddressToPointer, loc, addr)
	res := b.f.addResult(inst, ObjectType(types.PrimTypeRawPointer), OwnershipNone)
	b.insert(inst)
	return res
}

// CreatePointerToAddress converts a raw pointer to an address of the given
// type.
func (b *Builder) CreatePointerToAddress(loc *report.TextSpan, ptr Value, to Type) Value {
	inst := b.newInst(OpPointerToAddress, loc, ptr)
	res := b.f.addResult(inst, to.AddressType(), OwnershipNone)
	b.insert(inst)
	return res
}

// -----------------------------------------------------------------------------

// CreateApply calls a non-throwing function.  Indirect results must be
// passed as the leading arguments.
func (b *Builder) CreateApply(loc *report.TextSpan, callee Value, sig *FunctionSignature, args []Value) Value {
	if sig.ErrorResult != nil {
		icef("apply of a throwing function: use try_apply")
	}

	b.checkArgCount(OpApply, sig, args)

	inst := b.newInst(OpApply, loc, append([]Value{callee}, args...)...)
	res := b.result(inst, sig.DirectResultType())
	b.insert(inst)
	return res
}

func (b *Builder) checkArgCount(op Opcode, sig *FunctionSignature, args []Value) {
	if want := len(sig.IndirectResults()) + len(sig.Params); want != len(args) {
		icef("%s given %d arguments but the callee expects %d", op.Repr(), len(args), want)
	}
}

// CreatePartialApply binds the trailing arguments of a function and returns
// the resulting thick function.
func (b *Builder) CreatePartialApply(loc *report.TextSpan, callee Value, args []Value, resultType Type) Value {
	inst := b.newInst(OpPartialApply, loc, append([]Value{callee}, args...)...)
	res := b.f.addResult(inst, resultType, OwnershipOwned)
	b.insert(inst)
	return res
}

// CreateBuiltin applies a compiler builtin to trivial operands.
func (b *Builder) CreateBuiltin(loc *report.TextSpan, name string, resultType Type, args []Value) Value {
	inst := b.newInst(OpBuiltin, loc, args...)
	inst.Name = name
	res := b.result(inst, resultType)
	b.insert(inst)
	return res
}

// CreateClassMethod looks up a method in the vtable of self's class.
func (b *Builder) CreateClassMethod(loc *report.TextSpan, self Value, method DeclRef, typ Type) Value {
	inst := b.newInst(OpClassMethod, loc, self)
	inst.Method = method
	res := b.f.addResult(inst, typ, OwnershipNone)
	b.insert(inst)
	return res
}

// CreateWitnessMethod looks up a requirement's witness in a conformance.
func (b *Builder) CreateWitnessMethod(loc *report.TextSpan, lookupType types.Type, conformance string, method DeclRef, typ Type) Value {
	inst := b.newInst(OpWitnessMethod, loc)
	inst.TypeOperand = ObjectType(lookupType)
	inst.Conformance = conformance
	inst.Method = method
	res := b.f.addResult(inst, typ, OwnershipNone)
	b.insert(inst)
	return res
}

// CreateDebugValue describes the value of a source variable.
func (b *Builder) CreateDebugValue(loc *report.TextSpan, v Value, name string) {
	inst := b.newInst(OpDebugValue, loc, v)
	inst.Name = name
	b.insert(inst)
}

// -----------------------------------------------------------------------------

// CreateAssign creates a raw assignment of src into dest.  The assignment is
// qualified later by definite initialization.
func (b *Builder) CreateAssign(loc *report.TextSpan, src, dest Value) *Instruction {
	b.checkAddress(OpAssign, dest)
	b.checkLoadable(OpAssign, src.Type())

	inst := b.newInst(OpAssign, loc, src, dest)
	inst.AssignQual = AssignUnknown
	return b.insert(inst)
}

// CreateAssignByWrapper creates a raw assignment to a wrapped variable: init
// builds the backing storage from src and setter assigns through it.
func (b *Builder) CreateAssignByWrapper(loc *report.TextSpan, src, dest, init, setter Value) *Instruction {
	b.checkAddress(OpAssignByWrapper, dest)

	inst := b.newInst(OpAssignByWrapper, loc, src, dest, init, setter)
	inst.AssignQual = AssignUnknown
	return b.insert(inst)
}

// SetAssignQualifier sets the qualifier of a raw assignment.
func (b *Builder) SetAssignQualifier(inst *Instruction, qual AssignQualifier) {
	if inst.Op != OpAssign && inst.Op != OpAssignByWrapper {
		icef("setting assign qualifier on %s", inst.Op.Repr())
	}

	inst.AssignQual = qual
}

// CreateMarkUninitialized marks memory as needing initialization before use.
func (b *Builder) CreateMarkUninitialized(loc *report.TextSpan, addr Value) Value {
	inst := b.newInst(OpMarkUninitialized, loc, addr)
	res := b.forwardingResult(inst, addr.Type(), addr)
	b.insert(inst)
	return res
}

// CreateMarkFunctionEscape marks memory as escaping into a function which may
// read it before it is initialized.
func (b *Builder) CreateMarkFunctionEscape(loc *report.TextSpan, addrs []Value) {
	for _, addr := range addrs {
		b.checkAddress(OpMarkFunctionEscape, addr)
	}

	b.insert(b.newInst(OpMarkFunctionEscape, loc, addrs...))
}

// -----------------------------------------------------------------------------

// CreateBranch branches unconditionally to a block.
func (b *Builder) CreateBranch(loc *report.TextSpan, dest BlockID, args []Value) *Instruction {
	b.checkTargetArgs(dest, args)

	inst := b.newInst(OpBranch, loc)
	inst.Targets = []BlockID{dest}
	inst.TargetArgs = [][]Value{args}
	return b.insert(inst)
}

func (b *Builder) checkTargetArgs(dest BlockID, args []Value) {
	if want := len(b.f.Block(dest).Args); want != len(args) {
		icef("branch to bb%d given %d arguments but it takes %d", dest, len(args), want)
	}
}

// CreateCondBranch branches on a boolean.
func (b *Builder) CreateCondBranch(loc *report.TextSpan, cond Value, trueBB, falseBB BlockID) *Instruction {
	b.checkTargetArgs(trueBB, nil)
	b.checkTargetArgs(falseBB, nil)

	inst := b.newInst(OpCondBranch, loc, cond)
	inst.Targets = []BlockID{trueBB, falseBB}
	inst.TargetArgs = [][]Value{nil, nil}
	return b.insert(inst)
}

// CreateSwitchEnum dispatches on an enum case.  The default block may be the
// invalid block if the cases are exhaustive.
func (b *Builder) CreateSwitchEnum(loc *report.TextSpan, v Value, cases []int, targets []BlockID, defaultBB BlockID) *Instruction {
	if len(cases) != len(targets) {
		icef("switch_enum given %d cases but %d targets", len(cases), len(targets))
	}

	inst := b.newInst(OpSwitchEnum, loc, v)
	inst.Cases = cases
	inst.Targets = append([]BlockID(nil), targets...)
	if defaultBB != 0 {
		inst.Targets = append(inst.Targets, defaultBB)
	}

	inst.TargetArgs = make([][]Value, len(inst.Targets))
	return b.insert(inst)
}

// CreateReturn returns from the function.
func (b *Builder) CreateReturn(loc *report.TextSpan, v Value) *Instruction {
	return b.insert(b.newInst(OpReturn, loc, v))
}

// CreateThrow throws an error out of the function.
func (b *Builder) CreateThrow(loc *report.TextSpan, v Value) *Instruction {
	if b.f.Sig.ErrorResult == nil {
		icef("throw in non-throwing function %s", b.f.Name)
	}

	return b.insert(b.newInst(OpThrow, loc, v))
}

// CreateUnreachable marks the end of a block as unreachable.
func (b *Builder) CreateUnreachable(loc *report.TextSpan) *Instruction {
	return b.insert(b.newInst(OpUnreachable, loc))
}

// CreateTryApply calls a throwing function.  The normal block takes the direct
// result as its argument; the error block takes the error.
func (b *Builder) CreateTryApply(loc *report.TextSpan, callee Value, sig *FunctionSignature, args []Value, normalBB, errorBB BlockID) *Instruction {
	if sig.ErrorResult == nil {
		icef("try_apply of a non-throwing function")
	}

	b.checkArgCount(OpTryApply, sig, args)
	if len(b.f.Block(normalBB).Args) != 1 || len(b.f.Block(errorBB).Args) != 1 {
		icef("try_apply successors must take exactly one argument")
	}

	inst := b.newInst(OpTryApply, loc, append([]Value{callee}, args...)...)
	inst.Targets = []BlockID{normalBB, errorBB}
	inst.TargetArgs = [][]Value{nil, nil}
	return b.insert(inst)
}

// CreateYield yields values out of a coroutine.  Control resumes in resumeBB
// or, if the caller aborts the coroutine, in unwindBB.
func (b *Builder) CreateYield(loc *report.TextSpan, values []Value, resumeBB, unwindBB BlockID) *Instruction {
	if !b.f.Sig.Coroutine {
		icef("yield in non-coroutine function %s", b.f.Name)
	}

	inst := b.newInst(OpYield, loc, values...)
	inst.Targets = []BlockID{resumeBB, unwindBB}
	inst.TargetArgs = [][]Value{nil, nil}
	return b.insert(inst)
}

// CreateUnwind ends an aborted coroutine.
func (b *Builder) CreateUnwind(loc *report.TextSpan) *Instruction {
	return b.insert(b.newInst(OpUnwind, loc))
}
