package pil

// LowerRawInstructions lowers the raw instructions of a function into their
// canonical forms:
//
//   - `assign [init]` becomes `store [init]`
//   - `assign [reassign]` becomes `store [assign]` (or `store [trivial]`)
//   - `assign [reinit]` takes the old value out, stores the new value and
//     destroys the old value
//   - `assign_by_wrapper [init]` applies the wrapper's initializer and stores
//     its result; any other qualifier applies the wrapper's setter
//   - `mark_uninitialized` is replaced by its operand
//   - `mark_function_escape` is erased
//
// An assignment whose qualifier was never set is an internal error.
func LowerRawInstructions(f *Function) {
	b := NewBuilder(f)

	f.EachInst(func(inst *Instruction) {
		switch inst.Op {
		case OpAssign:
			lowerAssign(b, inst)
		case OpAssignByWrapper:
			lowerAssignByWrapper(b, inst)
		case OpMarkUninitialized:
			f.ReplaceAllUsesWith(inst.Result(), inst.Operands[0])
			f.EraseInst(inst.ID)
		case OpMarkFunctionEscape:
			f.EraseInst(inst.ID)
		}
	})
}

func lowerAssign(b *Builder, inst *Instruction) {
	f := b.f
	src, dest := inst.Operands[0], inst.Operands[1]
	tl := f.Types().LoweringOf(src.Type())

	b.SetInsertionPointBefore(inst.ID)

	switch inst.AssignQual {
	case AssignInit:
		tl.EmitStore(b, inst.Loc, src, dest, true)
	case AssignReassign:
		tl.EmitStore(b, inst.Loc, src, dest, false)
	case AssignReinit:
		if tl.IsTrivial() {
			tl.EmitStore(b, inst.Loc, src, dest, true)
			break
		}

		old := tl.EmitLoad(b, inst.Loc, dest, true)
		tl.EmitStore(b, inst.Loc, src, dest, true)
		tl.EmitDestroyValue(b, inst.Loc, old)
	default:
		icef("assign in %s was never qualified by definite initialization", f.Name)
	}

	f.EraseInst(inst.ID)
	b.ClearInsertionPoint()
}

func lowerAssignByWrapper(b *Builder, inst *Instruction) {
	f := b.f
	src, dest, initFn, setterFn := inst.Operands[0], inst.Operands[1], inst.Operands[2], inst.Operands[3]

	b.SetInsertionPointBefore(inst.ID)

	switch inst.AssignQual {
	case AssignInit:
		initSig := f.Module.LookupFunction(symbolOf(f, initFn)).Sig
		backing := b.CreateApply(inst.Loc, initFn, initSig, []Value{src})
		f.Types().LoweringOf(backing.Type()).EmitStore(b, inst.Loc, backing, dest, true)
	case AssignReassign, AssignReinit:
		setterSig := f.Module.LookupFunction(symbolOf(f, setterFn)).Sig
		b.CreateApply(inst.Loc, setterFn, setterSig, []Value{src, dest})
	default:
		icef("assign_by_wrapper in %s was never qualified by definite initialization", f.Name)
	}

	f.EraseInst(inst.ID)
	b.ClearInsertionPoint()
}

// symbolOf returns the name of the function referenced by a function_ref.
func symbolOf(f *Function, fnRef Value) string {
	def := f.DefiningInst(fnRef)
	if def == nil || def.Op != OpFunctionRef {
		icef("assign_by_wrapper operand is not a function_ref")
	}

	return def.Symbol
}
