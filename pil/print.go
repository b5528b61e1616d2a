package pil

import (
	"fmt"
	"strconv"
	"strings"

	"pilc/types"
	"pilc/util"
)

// printer renders a function with values and blocks numbered in layout order.
type printer struct {
	f      *Function
	sb     strings.Builder
	values map[ValueID]int
	blocks map[BlockID]int
}

// Repr returns the textual representation of the function.
func (f *Function) Repr() string {
	p := &printer{f: f, values: make(map[ValueID]int), blocks: make(map[BlockID]int)}
	p.number()
	p.printFunction()
	return p.sb.String()
}

func (p *printer) number() {
	for i, bid := range p.f.layout {
		p.blocks[bid] = i

		bb := p.f.blocks[bid]
		for _, arg := range bb.Args {
			p.values[arg.id] = len(p.values)
		}

		for _, iid := range bb.insts {
			for _, res := range p.f.insts[iid].Results {
				p.values[res.id] = len(p.values)
			}
		}
	}
}

func (p *printer) printFunction() {
	p.sb.WriteString(fmt.Sprintf("pil [%s] @%s : $%s", p.f.Linkage.Repr(), p.f.Name, p.f.Sig.Repr()))

	if !p.f.IsDefinition() {
		p.sb.WriteRune('\n')
		return
	}

	p.sb.WriteString(" {\n")
	p.printStorage()

	for _, bid := range p.f.layout {
		p.printBlock(p.f.blocks[bid])
	}

	p.sb.WriteString(fmt.Sprintf("} // end pil function '%s'\n", p.f.Name))
}

// printStorage writes the fixed storage layout of the lowered parameters.
func (p *printer) printStorage() {
	if len(p.f.Sig.Params) == 0 {
		return
	}

	layouts := make([]string, len(p.f.Sig.Params))
	for i, param := range p.f.Sig.Params {
		if param.Conv.IsIndirect() {
			layouts[i] = "ptr"
		} else if storage := types.StorageType(param.Type.Formal); storage != nil {
			layouts[i] = storage.String()
		} else {
			layouts[i] = "opaque"
		}
	}

	p.sb.WriteString("// storage: ")
	p.sb.WriteString(strings.Join(layouts, ", "))
	p.sb.WriteRune('\n')
}

func (p *printer) printBlock(bb *BasicBlock) {
	p.sb.WriteString(p.block(bb.ID))

	if len(bb.Args) > 0 {
		p.sb.WriteRune('(')
		for i, arg := range bb.Args {
			if i > 0 {
				p.sb.WriteString(", ")
			}

			p.sb.WriteString(p.value(arg))
			p.sb.WriteString(" : ")
			if own := p.f.Ownership(arg); own != OwnershipNone {
				p.sb.WriteString(own.Repr())
				p.sb.WriteRune(' ')
			}

			p.sb.WriteString(arg.typ.Repr())
		}
		p.sb.WriteRune(')')
	}

	p.sb.WriteString(":\n")

	for _, iid := range bb.insts {
		p.sb.WriteString("  ")
		p.sb.WriteString(p.inst(p.f.insts[iid]))
		p.sb.WriteRune('\n')
	}
}

func (p *printer) block(id BlockID) string {
	return "bb" + strconv.Itoa(p.blocks[id])
}

func (p *printer) value(v Value) string {
	if n, ok := p.values[v.id]; ok {
		return "%" + strconv.Itoa(n)
	}

	return "%<undef>"
}

// typed returns `%n : $T`.
func (p *printer) typed(v Value) string {
	return p.value(v) + " : " + v.typ.Repr()
}

func (p *printer) valueList(vs []Value) string {
	return strings.Join(util.Map(vs, p.value), ", ")
}

func (p *printer) typedList(vs []Value) string {
	return strings.Join(util.Map(vs, p.typed), ", ")
}

func (p *printer) target(inst *Instruction, i int) string {
	if len(inst.TargetArgs[i]) == 0 {
		return p.block(inst.Targets[i])
	}

	return p.block(inst.Targets[i]) + "(" + p.valueList(inst.TargetArgs[i]) + ")"
}

func (p *printer) inst(inst *Instruction) string {
	var lhs string
	switch len(inst.Results) {
	case 0:
	case 1:
		lhs = p.value(inst.Results[0]) + " = "
	default:
		lhs = "(" + p.valueList(inst.Results) + ") = "
	}

	ops := inst.Operands
	name := inst.Op.Repr()

	switch inst.Op {
	case OpIntegerLiteral:
		return fmt.Sprintf("%s%s %s, %d", lhs, name, inst.Results[0].typ.Repr(), inst.IntValue)
	case OpFloatLiteral:
		return fmt.Sprintf("%s%s %s, %s", lhs, name, inst.Results[0].typ.Repr(), strconv.FormatFloat(inst.FloatValue, 'g', -1, 64))
	case OpFunctionRef, OpGlobalAddr:
		return fmt.Sprintf("%s%s @%s : %s", lhs, name, inst.Symbol, inst.Results[0].typ.Repr())
	case OpMetatype, OpAllocStack, OpAllocBox, OpAllocRef:
		return fmt.Sprintf("%s%s %s", lhs, name, inst.TypeOperand.Repr())
	case OpLoad:
		return fmt.Sprintf("%s%s %s%s", lhs, name, inst.LoadQual.Repr(), p.typed(ops[0]))
	case OpStore:
		return fmt.Sprintf("store %s to %s%s", p.value(ops[0]), inst.StoreQual.Repr(), p.typed(ops[1]))
	case OpAssign:
		return fmt.Sprintf("assign %s%s to %s", inst.AssignQual.Repr(), p.value(ops[0]), p.typed(ops[1]))
	case OpAssignByWrapper:
		return fmt.Sprintf("assign_by_wrapper %s%s to %s, init %s, set %s", inst.AssignQual.Repr(), p.value(ops[0]), p.typed(ops[1]), p.value(ops[2]), p.value(ops[3]))
	case OpCopyAddr:
		take, init := "", ""
		if inst.IsTake {
			take = "[take] "
		}
		if inst.IsInit {
			init = "[init] "
		}
		return fmt.Sprintf("copy_addr %s%s to %s%s", take, p.value(ops[0]), init, p.typed(ops[1]))
	case OpTuple, OpStruct:
		return fmt.Sprintf("%s%s %s (%s)", lhs, name, inst.Results[0].typ.Repr(), p.typedList(ops))
	case OpTupleExtract, OpTupleElementAddr, OpStructExtract, OpStructElementAddr:
		return fmt.Sprintf("%s%s %s, %d", lhs, name, p.typed(ops[0]), inst.Index)
	case OpEnum:
		if len(ops) == 0 {
			return fmt.Sprintf("%s%s %s, #%d", lhs, name, inst.Results[0].typ.Repr(), inst.Index)
		}
		return fmt.Sprintf("%s%s %s, #%d, %s", lhs, name, inst.Results[0].typ.Repr(), inst.Index, p.typed(ops[0]))
	case OpInitExistentialAddr:
		return fmt.Sprintf("%s%s %s, %s, %s", lhs, name, p.typed(ops[0]), inst.TypeOperand.Repr(), inst.Conformance)
	case OpUpcast, OpUncheckedRefCast, OpThinToThickFunction, OpAddressToPointer, OpPointerToAddress:
		return fmt.Sprintf("%s%s %s to %s", lhs, name, p.typed(ops[0]), inst.Results[0].typ.Repr())
	case OpApply, OpPartialApply:
		return fmt.Sprintf("%s%s %s(%s) : %s", lhs, name, p.value(ops[0]), p.valueList(ops[1:]), ops[0].typ.Repr())
	case OpTryApply:
		return fmt.Sprintf("%s %s(%s) : %s, normal %s, error %s", name, p.value(ops[0]), p.valueList(ops[1:]), ops[0].typ.Repr(), p.block(inst.Targets[0]), p.block(inst.Targets[1]))
	case OpBuiltin:
		return fmt.Sprintf("%s%s \"%s\"(%s) : %s", lhs, name, inst.Name, p.typedList(ops), inst.Results[0].typ.Repr())
	case OpClassMethod:
		return fmt.Sprintf("%s%s %s, %s : %s", lhs, name, p.typed(ops[0]), inst.Method.Repr(), inst.Results[0].typ.Repr())
	case OpWitnessMethod:
		return fmt.Sprintf("%s%s %s, %s, %s : %s", lhs, name, inst.TypeOperand.Repr(), inst.Method.Repr(), inst.Conformance, inst.Results[0].typ.Repr())
	case OpDebugValue:
		return fmt.Sprintf("%s %s, name \"%s\"", name, p.typed(ops[0]), inst.Name)
	case OpBranch:
		return "br " + p.target(inst, 0)
	case OpCondBranch:
		return fmt.Sprintf("cond_br %s, %s, %s", p.value(ops[0]), p.target(inst, 0), p.target(inst, 1))
	case OpSwitchEnum:
		cases := make([]string, 0, len(inst.Targets))
		for i, c := range inst.Cases {
			cases = append(cases, fmt.Sprintf("case #%d: %s", c, p.block(inst.Targets[i])))
		}
		if len(inst.Targets) > len(inst.Cases) {
			cases = append(cases, "default "+p.block(inst.Targets[len(inst.Targets)-1]))
		}
		return fmt.Sprintf("switch_enum %s, %s", p.typed(ops[0]), strings.Join(cases, ", "))
	case OpYield:
		return fmt.Sprintf("yield (%s), resume %s, unwind %s", p.typedList(ops), p.block(inst.Targets[0]), p.block(inst.Targets[1]))
	}

	if len(ops) == 0 {
		return lhs + name
	}

	return fmt.Sprintf("%s%s %s", lhs, name, p.typedList(ops))
}
