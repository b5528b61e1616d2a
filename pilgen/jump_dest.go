package pilgen

import (
	"pilc/pil"
	"pilc/report"
)

// JumpDest is the target of a non-local control transfer together with the
// cleanup depth that must be unwound to before jumping to it.  The zero
// JumpDest (no block) is the invalid destination.
type JumpDest struct {
	block pil.BlockID
	depth CleanupsDepth
	loc   *report.TextSpan
}

// NewJumpDest creates a jump destination.
func NewJumpDest(block pil.BlockID, depth CleanupsDepth, loc *report.TextSpan) JumpDest {
	return JumpDest{block: block, depth: depth, loc: loc}
}

// IsValid returns whether the destination has a block.
func (jd JumpDest) IsValid() bool {
	return jd.block != 0
}

// Block returns the target block.
func (jd JumpDest) Block() pil.BlockID {
	return jd.block
}

// Depth returns the cleanup depth of the target.
func (jd JumpDest) Depth() CleanupsDepth {
	return jd.depth
}

// Loc returns the location of the construct owning the destination.
func (jd JumpDest) Loc() *report.TextSpan {
	return jd.loc
}
