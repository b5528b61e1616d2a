package pilgen

import (
	"pilc/ast"
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// vtableSlot is a method dispatched through a vtable: the root method
// introducing the slot and the most derived implementation seen so far.
type vtableSlot struct {
	root  *ast.FuncDecl
	impl  *ast.FuncDecl
	owner *ast.ClassDecl
}

// emitVTable builds the vtable of a class.  The hierarchy is walked from the
// root class to the class itself: every dynamically dispatched method a class
// introduces adds a slot and every override replaces the implementation of
// its root method's slot.
func (sgm *PILGenModule) emitVTable(cd *ast.ClassDecl) *pil.VTable {
	if vt := sgm.M.LookupVTable(cd.Name); vt != nil {
		return vt
	}

	var chain []*ast.ClassDecl
	for c := cd; c != nil; c = c.Super {
		chain = append([]*ast.ClassDecl{c}, chain...)
	}

	var slots []*vtableSlot
	slotOf := make(map[*ast.FuncDecl]*vtableSlot)

	for _, c := range chain {
		for _, method := range c.Methods {
			if method.Static {
				continue
			}

			if method.Overridden == nil {
				if method.Final {
					continue
				}

				slot := &vtableSlot{root: method, impl: method, owner: c}
				slots = append(slots, slot)
				slotOf[method] = slot
				continue
			}

			slot, ok := slotOf[rootMethod(method)]
			if !ok {
				report.ReportICE("`%s.%s` overrides a method with no vtable slot", c.Name, method.Name)
			}

			slot.impl, slot.owner = method, c
		}
	}

	vt := &pil.VTable{Class: cd}
	for _, slot := range slots {
		kind := pil.VTableNormal
		switch {
		case slot.owner != cd:
			kind = pil.VTableInherited
		case slot.impl != slot.root:
			kind = pil.VTableOverride
		}

		// an inherited implementation from another resilience domain is looked
		// up dynamically in the superclass
		if kind == pil.VTableInherited && slot.owner.Resilient && slot.owner.ModuleName != cd.ModuleName {
			continue
		}

		vt.Entries = append(vt.Entries, pil.VTableEntry{
			Method: pil.FuncRef(slot.root),
			Impl:   sgm.vtableImpl(slot.root, slot.impl),
			Kind:   kind,
		})
	}

	sgm.M.VTables = append(sgm.M.VTables, vt)
	report.ReportVerbose("VTable", cd.Name)
	return vt
}

// vtableImpl returns the function filling the slot of base with derived:
// derived's own function when it can be called through the slot as is and a
// thunk otherwise.
func (sgm *PILGenModule) vtableImpl(base, derived *ast.FuncDecl) *pil.Function {
	if base == derived || !sgm.needsVTableThunk(base, derived) {
		return sgm.GetFunction(pil.FuncRef(derived), false)
	}

	return sgm.getVTableThunk(base, derived)
}

// slotSignature lowers the type of an override against the abstraction
// pattern of the method whose slot it fills.
func (sgm *PILGenModule) slotSignature(base, derived *ast.FuncDecl) *pil.FunctionSignature {
	return sgm.Types().LowerSignature(types.PatternOf(base.InterfaceType()), derived.InterfaceType(), paramPassing(base))
}

// needsVTableThunk returns whether an override can not be called directly
// through the slot of the method it overrides: their generic requirements
// differ, the override is less visible than the base, or their calling
// conventions differ.
func (sgm *PILGenModule) needsVTableThunk(base, derived *ast.FuncDecl) bool {
	if len(base.GenericParams) != len(derived.GenericParams) {
		return true
	}

	if derived.Access < base.Access {
		return true
	}

	return pil.CheckABICompatibility(sgm.slotSignature(base, derived), sgm.SignatureOf(pil.FuncRef(derived))) != pil.ABICompatible
}

// getVTableThunk returns the thunk calling derived through the slot of base.
// A single thunk is created per pair.
func (sgm *PILGenModule) getVTableThunk(base, derived *ast.FuncDecl) *pil.Function {
	key := vtableThunkKey{base: base, derived: derived}
	if f, ok := sgm.vtableThunks[key]; ok {
		return f
	}

	linkage := pil.LinkagePrivate
	if base.Access.IsExternallyVisible() {
		linkage = pil.LinkageShared
	}

	f := sgm.createThunk(sgm.mangler.MangleVTableThunk(base, derived), sgm.slotSignature(base, derived), linkage, pil.ThunkVTable)
	sgm.vtableThunks[key] = f

	sgm.emitForwardingThunk(f, derived.Span(), func(sgf *PILGenFunction, loc *report.TextSpan, params []*RValue) (pil.Value, *pil.FunctionSignature, []*RValue) {
		impl := sgm.GetFunction(pil.FuncRef(derived), false)
		return sgf.B.Raw().CreateFunctionRef(loc, impl), impl.Sig, params
	})

	return f
}
