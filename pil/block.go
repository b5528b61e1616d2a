package pil

// BlockID identifies a basic block within its function.  Block IDs start at 1;
// the zero BlockID is the invalid block.
type BlockID int

// BasicBlock is an ordered list of instructions ending in exactly one
// terminator.  Edges are not stored: they are derived from terminators.
type BasicBlock struct {
	ID BlockID

	// The block arguments (phi values).
	Args []Value

	insts []InstID
	dead  bool
}

// Insts returns the instructions of the block in order.
func (bb *BasicBlock) Insts() []InstID {
	return bb.insts
}

// IsEmpty returns whether the block contains no instructions.
func (bb *BasicBlock) IsEmpty() bool {
	return len(bb.insts) == 0
}

// IsDead returns whether the block has been erased.
func (bb *BasicBlock) IsDead() bool {
	return bb.dead
}

// indexOf returns the position of the given instruction in the block.
func (bb *BasicBlock) indexOf(id InstID) int {
	for i, inst := range bb.insts {
		if inst == id {
			return i
		}
	}

	return -1
}
