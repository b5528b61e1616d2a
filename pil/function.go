package pil

import (
	"pilc/report"
	"pilc/util"
)

// Linkage is the symbol visibility of a function or global.
type Linkage int

// Enumeration of linkages.  The external linkages denote declarations whose
// definition lives in another module (or has not been emitted yet).
const (
	LinkagePublic Linkage = iota
	LinkageHidden
	LinkageShared
	LinkagePrivate
	LinkagePublicExternal
	LinkageHiddenExternal
)

func (l Linkage) Repr() string {
	switch l {
	case LinkagePublic:
		return "public"
	case LinkageHidden:
		return "hidden"
	case LinkageShared:
		return "shared"
	case LinkagePrivate:
		return "private"
	case LinkagePublicExternal:
		return "public_external"
	default:
		return "hidden_external"
	}
}

// IsExternal returns whether the linkage is that of a declaration.
func (l Linkage) IsExternal() bool {
	return l == LinkagePublicExternal || l == LinkageHiddenExternal
}

// ForDefinition returns the linkage of the definition of a symbol whose
// declaration has this linkage.
func (l Linkage) ForDefinition() Linkage {
	switch l {
	case LinkagePublicExternal:
		return LinkagePublic
	case LinkageHiddenExternal:
		return LinkageHidden
	default:
		return l
	}
}

// ThunkKind says whether a function was synthesized to adapt another.
type ThunkKind int

// Enumeration of thunk kinds.
const (
	NotThunk ThunkKind = iota
	ThunkVTable
	ThunkWitness
	ThunkReabstraction
)

// -----------------------------------------------------------------------------

// Function is a PIL function.  A function owns three arenas: its blocks, its
// instructions and its values.  The order in which blocks are laid out is kept
// separately so blocks can be moved without touching the arenas.
type Function struct {
	Name    string
	Sig     *FunctionSignature
	Linkage Linkage
	Thunk   ThunkKind
	Loc     *report.TextSpan

	// Whether instructions in the function carry ownership qualifiers.
	HasOwnership bool

	// The module containing the function.
	Module *Module

	// The arenas: index 0 of each is reserved so the zero handle is invalid.
	blocks []*BasicBlock
	insts  []*Instruction
	values []valueInfo

	layout []BlockID
}

func newFunction(m *Module, name string, sig *FunctionSignature, linkage Linkage) *Function {
	return &Function{
		Name:         name,
		Sig:          sig,
		Linkage:      linkage,
		HasOwnership: m.HasOwnership,
		Module:       m,
		blocks:       []*BasicBlock{nil},
		insts:        []*Instruction{nil},
		values:       []valueInfo{{}},
	}
}

// IsDefinition returns whether the function has a body.
func (f *Function) IsDefinition() bool {
	return len(f.layout) > 0
}

// Types returns the type converter of the function's module.
func (f *Function) Types() *TypeConverter {
	return f.Module.Types
}

// -----------------------------------------------------------------------------

// CreateBlock creates a new block at the end of the function.
func (f *Function) CreateBlock() BlockID {
	bb := &BasicBlock{ID: BlockID(len(f.blocks))}
	f.blocks = append(f.blocks, bb)
	f.layout = append(f.layout, bb.ID)
	return bb.ID
}

// CreateBlockAfter creates a new block laid out immediately after another.
func (f *Function) CreateBlockAfter(after BlockID) BlockID {
	id := f.CreateBlock()
	f.MoveBlockAfter(id, after)
	return id
}

// Block returns the block with the given ID.
func (f *Function) Block(id BlockID) *BasicBlock {
	if id <= 0 || int(id) >= len(f.blocks) {
		icef("invalid block bb%d in %s", id, f.Name)
	}

	return f.blocks[id]
}

// Blocks returns the live blocks of the function in layout order.
func (f *Function) Blocks() []BlockID {
	return append([]BlockID(nil), f.layout...)
}

// NumBlocks returns the number of live blocks.
func (f *Function) NumBlocks() int {
	return len(f.layout)
}

// EntryBlock returns the first block of the function.
func (f *Function) EntryBlock() BlockID {
	if len(f.layout) == 0 {
		icef("function %s has no body", f.Name)
	}

	return f.layout[0]
}

// AddBlockArg appends a new argument to a block.
func (f *Function) AddBlockArg(id BlockID, typ Type, ownership OwnershipKind) Value {
	bb := f.Block(id)
	v := f.newValue(typ, ownership)
	f.values[v.id].block = id
	bb.Args = append(bb.Args, v)
	return v
}

// MoveBlockAfter moves a block so it is laid out right after another.
func (f *Function) MoveBlockAfter(id, after BlockID) {
	f.layout = util.Remove(f.layout, id)
	f.layout = util.InsertAt(f.layout, util.IndexOf(f.layout, after)+1, id)
}

// MoveBlockBefore moves a block so it is laid out right before another.  If
// before is the invalid block, the block is moved to the end.
func (f *Function) MoveBlockBefore(id, before BlockID) {
	f.layout = util.Remove(f.layout, id)
	if before == 0 {
		f.layout = append(f.layout, id)
	} else {
		f.layout = util.InsertAt(f.layout, util.IndexOf(f.layout, before), id)
	}
}

// EraseBlock erases a block and all its instructions.  The block must not have
// any predecessors.
func (f *Function) EraseBlock(id BlockID) {
	if preds := f.Predecessors(id); len(preds) > 0 {
		icef("erasing block bb%d which still has %d predecessors", id, len(preds))
	}

	bb := f.Block(id)
	for len(bb.insts) > 0 {
		f.EraseInst(bb.insts[len(bb.insts)-1])
	}

	bb.dead = true
	f.layout = util.Remove(f.layout, id)
}

// Terminator returns the terminator of a block or nil if the block is not yet
// terminated.
func (f *Function) Terminator(id BlockID) *Instruction {
	bb := f.Block(id)
	if len(bb.insts) == 0 {
		return nil
	}

	if last := f.insts[bb.insts[len(bb.insts)-1]]; last.IsTerminator() {
		return last
	}

	return nil
}

// Successors returns the successors of a block.
func (f *Function) Successors(id BlockID) []BlockID {
	if term := f.Terminator(id); term != nil {
		return term.Targets
	}

	return nil
}

// Predecessors returns the blocks branching to a block in layout order.  A
// block branching to the same target more than once is listed once.
func (f *Function) Predecessors(id BlockID) []BlockID {
	var preds []BlockID
	for _, bid := range f.layout {
		if util.Contains(f.Successors(bid), id) {
			preds = append(preds, bid)
		}
	}

	return preds
}

// SinglePredecessor returns the only predecessor of a block if it has exactly
// one.
func (f *Function) SinglePredecessor(id BlockID) (BlockID, bool) {
	preds := f.Predecessors(id)
	if len(preds) == 1 {
		return preds[0], true
	}

	return 0, false
}

// -----------------------------------------------------------------------------

// Inst returns the instruction with the given ID.
func (f *Function) Inst(id InstID) *Instruction {
	if id <= 0 || int(id) >= len(f.insts) || f.insts[id] == nil {
		icef("invalid instruction %d in %s", id, f.Name)
	}

	return f.insts[id]
}

// newInst allocates an instruction in the arena without inserting it.
func (f *Function) newInst(op Opcode, loc *report.TextSpan) *Instruction {
	inst := &Instruction{ID: InstID(len(f.insts)), Op: op, Loc: loc}
	f.insts = append(f.insts, inst)
	return inst
}

// addResult defines a new result value of an instruction.
func (f *Function) addResult(inst *Instruction, typ Type, ownership OwnershipKind) Value {
	v := f.newValue(typ, ownership)
	f.values[v.id].inst = inst.ID
	inst.Results = append(inst.Results, v)
	return v
}

// insertInst places an allocated instruction at position pos of a block.
func (f *Function) insertInst(inst *Instruction, id BlockID, pos int) {
	bb := f.Block(id)
	inst.block = id
	bb.insts = util.InsertAt(bb.insts, pos, inst.ID)
}

// EraseInst removes an instruction from its block.  The instruction's results
// must no longer be used.
func (f *Function) EraseInst(id InstID) {
	inst := f.Inst(id)
	for _, res := range inst.Results {
		if uses := f.Uses(res); len(uses) > 0 {
			icef("erasing %s whose result is still used", inst.Op.Repr())
		}
	}

	bb := f.Block(inst.block)
	bb.insts = util.Remove(bb.insts, id)
	f.insts[id] = nil
}

// -----------------------------------------------------------------------------

func (f *Function) newValue(typ Type, ownership OwnershipKind) Value {
	v := Value{id: ValueID(len(f.values)), typ: typ}
	f.values = append(f.values, valueInfo{typ: typ, ownership: ownership})
	return v
}

// Ownership returns the ownership kind of a value.
func (f *Function) Ownership(v Value) OwnershipKind {
	return f.values[v.id].ownership
}

// DefiningInst returns the instruction defining a value or nil if the value is
// a block argument.
func (f *Function) DefiningInst(v Value) *Instruction {
	if id := f.values[v.id].inst; id != 0 {
		return f.insts[id]
	}

	return nil
}

// Uses returns the live instructions that use a value.
func (f *Function) Uses(v Value) []InstID {
	var uses []InstID
	for _, bid := range f.layout {
		for _, iid := range f.blocks[bid].insts {
			used := false
			f.insts[iid].forEachOperand(func(op *Value) {
				if op.id == v.id {
					used = true
				}
			})

			if used {
				uses = append(uses, iid)
			}
		}
	}

	return uses
}

// ReplaceAllUsesWith rewrites every use of old to use new.
func (f *Function) ReplaceAllUsesWith(old, new Value) {
	for _, bid := range f.layout {
		for _, iid := range f.blocks[bid].insts {
			f.insts[iid].forEachOperand(func(op *Value) {
				if op.id == old.id {
					*op = new
				}
			})
		}
	}
}

// EachInst calls fn for every live instruction in layout order.
func (f *Function) EachInst(fn func(inst *Instruction)) {
	for _, bid := range f.layout {
		// copy so fn may erase the instruction it is given
		for _, iid := range append([]InstID(nil), f.blocks[bid].insts...) {
			if f.insts[iid] != nil {
				fn(f.insts[iid])
			}
		}
	}
}

// NumInsts returns the number of live instructions in the function.
func (f *Function) NumInsts() int {
	n := 0
	for _, bid := range f.layout {
		n += len(f.blocks[bid].insts)
	}

	return n
}
