package pil

import (
	"fmt"
)

// Verify checks the structural invariants of a function body: every live
// block ends in exactly one terminator, nothing follows a terminator, every
// successor is a live block, branch arguments match block arguments and every
// operand is defined by a live instruction or block.
func Verify(f *Function) error {
	live := make(map[BlockID]bool, len(f.layout))
	for _, bid := range f.layout {
		live[bid] = true
	}

	for _, bid := range f.layout {
		bb := f.blocks[bid]
		if bb.dead {
			return fmt.Errorf("%s: erased block bb%d is still laid out", f.Name, bid)
		}

		if len(bb.insts) == 0 {
			return fmt.Errorf("%s: block bb%d is empty", f.Name, bid)
		}

		for i, iid := range bb.insts {
			inst := f.insts[iid]
			if inst == nil {
				return fmt.Errorf("%s: block bb%d contains an erased instruction", f.Name, bid)
			}

			if inst.block != bid {
				return fmt.Errorf("%s: %s in bb%d claims to be in bb%d", f.Name, inst.Op.Repr(), bid, inst.block)
			}

			if last := i == len(bb.insts)-1; last != inst.IsTerminator() {
				if last {
					return fmt.Errorf("%s: block bb%d does not end in a terminator", f.Name, bid)
				}

				return fmt.Errorf("%s: terminator %s in the middle of bb%d", f.Name, inst.Op.Repr(), bid)
			}

			if err := verifyOperands(f, inst, live); err != nil {
				return err
			}

			if err := verifyTargets(f, inst, live); err != nil {
				return err
			}
		}
	}

	return nil
}

// VerifyLowered checks the function with Verify and additionally that all raw
// instructions have been lowered away.
func VerifyLowered(f *Function) error {
	if err := Verify(f); err != nil {
		return err
	}

	for _, bid := range f.layout {
		for _, iid := range f.blocks[bid].insts {
			if op := f.insts[iid].Op; op.IsRaw() {
				return fmt.Errorf("%s: raw instruction %s was not lowered", f.Name, op.Repr())
			}
		}
	}

	return nil
}

func verifyOperands(f *Function, inst *Instruction, live map[BlockID]bool) (err error) {
	inst.forEachOperand(func(v *Value) {
		if err != nil {
			return
		}

		if v.id <= 0 || int(v.id) >= len(f.values) {
			err = fmt.Errorf("%s: %s uses an undefined value", f.Name, inst.Op.Repr())
			return
		}

		info := f.values[v.id]
		if info.inst != 0 {
			if def := f.insts[info.inst]; def == nil || !live[def.block] {
				err = fmt.Errorf("%s: %s uses the result of an erased instruction", f.Name, inst.Op.Repr())
			}
		} else if !live[info.block] {
			err = fmt.Errorf("%s: %s uses an argument of erased block bb%d", f.Name, inst.Op.Repr(), info.block)
		}
	})

	return
}

func verifyTargets(f *Function, inst *Instruction, live map[BlockID]bool) error {
	for i, target := range inst.Targets {
		if !live[target] {
			return fmt.Errorf("%s: %s targets erased block bb%d", f.Name, inst.Op.Repr(), target)
		}

		switch inst.Op {
		case OpBranch, OpCondBranch:
			if want := len(f.blocks[target].Args); len(inst.TargetArgs[i]) != want {
				return fmt.Errorf("%s: %s passes %d arguments to bb%d which takes %d", f.Name, inst.Op.Repr(), len(inst.TargetArgs[i]), target, want)
			}
		}
	}

	return nil
}
