package pil

import "pilc/report"

// icef reports an internal compiler error.  It never returns.
func icef(message string, args ...interface{}) {
	report.ReportICE(message, args...)
}

// -----------------------------------------------------------------------------

// OwnershipKind describes the lifetime contract of an SSA value.
type OwnershipKind int

// Enumeration of ownership kinds.
const (
	// The value needs no lifetime management: trivial values and addresses.
	OwnershipNone OwnershipKind = iota

	// The value must be consumed exactly once.
	OwnershipOwned

	// The value is borrowed: it is valid within an enclosing scope and must
	// not be consumed.
	OwnershipGuaranteed

	// The value is not kept alive: it must be copied before use.
	OwnershipUnowned
)

func (ok OwnershipKind) Repr() string {
	switch ok {
	case OwnershipOwned:
		return "@owned"
	case OwnershipGuaranteed:
		return "@guaranteed"
	case OwnershipUnowned:
		return "@unowned"
	default:
		return "@none"
	}
}

// ValueID identifies an SSA value within its function.  Value IDs start at 1.
type ValueID int

// Value is a handle to an SSA value: an instruction result or a block
// argument.  The zero value is the invalid value.
type Value struct {
	id  ValueID
	typ Type
}

// ID returns the function-local identifier of the value.
func (v Value) ID() ValueID {
	return v.id
}

// Type returns the lowered type of the value.
func (v Value) Type() Type {
	return v.typ
}

// IsValid returns whether v refers to a value.
func (v Value) IsValid() bool {
	return v.id > 0
}

// valueInfo is the function's record of a value.
type valueInfo struct {
	typ       Type
	ownership OwnershipKind

	// The defining instruction or the block the value is an argument of.
	inst  InstID
	block BlockID
}
