package pil

import (
	"pilc/report"
)

// InstID identifies an instruction within its function.  Instruction IDs start
// at 1.
type InstID int

// Opcode is the kind of an instruction.
type Opcode int

// Enumeration of instruction opcodes.
const (
	OpIntegerLiteral Opcode = iota
	OpFloatLiteral
	OpFunctionRef
	OpGlobalAddr
	OpMetatype

	// memory
	OpAllocStack
	OpDeallocStack
	OpAllocBox
	OpProjectBox
	OpAllocRef
	OpLoad
	OpStore
	OpLoadBorrow
	OpBeginBorrow
	OpEndBorrow
	OpCopyAddr
	OpDestroyAddr

	// reference counting and ownership
	OpCopyValue
	OpDestroyValue
	OpRetainValue
	OpReleaseValue

	// aggregates
	OpTuple
	OpTupleExtract
	OpTupleElementAddr
	OpDestructureTuple
	OpStruct
	OpStructExtract
	OpStructElementAddr
	OpDestructureStruct
	OpEnum

	// conversions
	OpInitExistentialAddr
	OpUpcast
	OpUncheckedRefCast
	OpThinToThickFunction
	OpAddressToPointer
	OpPointerToAddress

	// calls
	OpApply
	OpPartialApply
	OpBuiltin
	OpClassMethod
	OpWitnessMethod

	OpDebugValue

	// raw instructions: these must be lowered away before optimization
	OpAssign
	OpAssignByWrapper
	OpMarkUninitialized
	OpMarkFunctionEscape

	// terminators
	OpBranch
	OpCondBranch
	OpSwitchEnum
	OpReturn
	OpThrow
	OpUnreachable
	OpTryApply
	OpYield
	OpUnwind
)

var opcodeNames = [...]string{
	OpIntegerLiteral:      "integer_literal",
	OpFloatLiteral:        "float_literal",
	OpFunctionRef:         "function_ref",
	OpGlobalAddr:          "global_addr",
	OpMetatype:            "metatype",
	OpAllocStack:          "alloc_stack",
	OpDeallocStack:        "dealloc_stack",
	OpAllocBox:            "alloc_box",
	OpProjectBox:          "project_box",
	OpAllocRef:            "alloc_ref",
	OpLoad:                "load",
	OpStore:               "store",
	OpLoadBorrow:          "load_borrow",
	OpBeginBorrow:         "begin_borrow",
	OpEndBorrow:           "end_borrow",
	OpCopyAddr:            "copy_addr",
	OpDestroyAddr:         "destroy_addr",
	OpCopyValue:           "copy_value",
	OpDestroyValue:        "destroy_value",
	OpRetainValue:         "retain_value",
	OpReleaseValue:        "release_value",
	OpTuple:               "tuple",
	OpTupleExtract:        "tuple_extract",
	OpTupleElementAddr:    "tuple_element_addr",
	OpDestructureTuple:    "destructure_tuple",
	OpStruct:              "struct",
	OpStructExtract:       "struct_extract",
	OpStructElementAddr:   "struct_element_addr",
	OpDestructureStruct:   "destructure_struct",
	OpEnum:                "enum",
	OpInitExistentialAddr: "init_existential_addr",
	OpUpcast:              "upcast",
	OpUncheckedRefCast:    "unchecked_ref_cast",
	OpThinToThickFunction: "thin_to_thick_function",
	OpAddressToPointer:    "address_to_pointer",
	OpPointerToAddress:    "pointer_to_address",
	OpApply:               "apply",
	OpPartialApply:        "partial_apply",
	OpBuiltin:             "builtin",
	OpClassMethod:         "class_method",
	OpWitnessMethod:       "witness_method",
	OpDebugValue:          "debug_value",
	OpAssign:              "assign",
	OpAssignByWrapper:     "assign_by_wrapper",
	OpMarkUninitialized:   "mark_uninitialized",
	OpMarkFunctionEscape:  "mark_function_escape",
	OpBranch:              "br",
	OpCondBranch:          "cond_br",
	OpSwitchEnum:          "switch_enum",
	OpReturn:              "return",
	OpThrow:               "throw",
	OpUnreachable:         "unreachable",
	OpTryApply:            "try_apply",
	OpYield:               "yield",
	OpUnwind:              "unwind",
}

func (op Opcode) Repr() string {
	return opcodeNames[op]
}

// IsTerminator returns whether instructions of this kind end a block.
func (op Opcode) IsTerminator() bool {
	return op >= OpBranch
}

// IsRaw returns whether instructions of this kind are only legal in raw PIL.
func (op Opcode) IsRaw() bool {
	return OpAssign <= op && op <= OpMarkFunctionEscape
}

// -----------------------------------------------------------------------------

// LoadQualifier is the ownership qualifier of a load.
type LoadQualifier int

// Enumeration of load qualifiers.
const (
	LoadUnqualified LoadQualifier = iota
	LoadTake
	LoadCopy
	LoadTrivial
)

func (lq LoadQualifier) Repr() string {
	switch lq {
	case LoadTake:
		return "[take] "
	case LoadCopy:
		return "[copy] "
	case LoadTrivial:
		return "[trivial] "
	default:
		return ""
	}
}

// StoreQualifier is the ownership qualifier of a store.
type StoreQualifier int

// Enumeration of store qualifiers.
const (
	StoreUnqualified StoreQualifier = iota
	StoreInit
	StoreAssign
	StoreTrivial
)

func (sq StoreQualifier) Repr() string {
	switch sq {
	case StoreInit:
		return "[init] "
	case StoreAssign:
		return "[assign] "
	case StoreTrivial:
		return "[trivial] "
	default:
		return ""
	}
}

// AssignQualifier says how a raw assignment initializes its destination.  It
// is attached by definite-initialization analysis; lowering always emits
// assignments with AssignUnknown.
type AssignQualifier int

// Enumeration of assign qualifiers.
const (
	AssignUnknown AssignQualifier = iota

	// The destination is uninitialized.
	AssignInit

	// The destination is initialized and its old value must be destroyed.
	AssignReassign

	// The destination was initialized, consumed and must be initialized
	// again: its old value is taken out and destroyed.
	AssignReinit
)

func (aq AssignQualifier) Repr() string {
	switch aq {
	case AssignInit:
		return "[init] "
	case AssignReassign:
		return "[reassign] "
	case AssignReinit:
		return "[reinit] "
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------

// Instruction is a single PIL instruction.  Instructions are owned by their
// function's arena and refer to values, blocks, and other functions by handle.
type Instruction struct {
	ID  InstID
	Op  Opcode
	Loc *report.TextSpan

	Operands []Value
	Results  []Value

	// The block containing the instruction.
	block BlockID

	// The type operand of the instruction: eg. the allocated type of an
	// alloc_stack or the instance type of a metatype.
	TypeOperand Type

	LoadQual   LoadQualifier
	StoreQual  StoreQualifier
	AssignQual AssignQualifier

	// The flags of a copy_addr.
	IsTake, IsInit bool

	// The element index of an aggregate instruction or the case index of an
	// enum.
	Index int

	IntValue   int64
	FloatValue float64

	// The referenced function or global symbol.
	Symbol string

	// The method of a class_method or witness_method.
	Method DeclRef

	// The conformance of a witness_method or init_existential_addr.
	Conformance string

	// The name of a builtin or of the variable described by a debug_value.
	Name string

	// The successors of a terminator and the arguments passed to each.
	Targets    []BlockID
	TargetArgs [][]Value

	// The enum case handled by each target of a switch_enum.  A switch_enum
	// with one more target than cases has a default.
	Cases []int
}

// Result returns the single result of the instruction.
func (inst *Instruction) Result() Value {
	if len(inst.Results) != 1 {
		icef("%s does not have a single result", inst.Op.Repr())
	}

	return inst.Results[0]
}

// Block returns the block containing the instruction.
func (inst *Instruction) Block() BlockID {
	return inst.block
}

// IsTerminator returns whether the instruction ends its block.
func (inst *Instruction) IsTerminator() bool {
	return inst.Op.IsTerminator()
}

// forEachOperand calls fn with a pointer to every value operand including the
// arguments passed to successor blocks.
func (inst *Instruction) forEachOperand(fn func(v *Value)) {
	for i := range inst.Operands {
		fn(&inst.Operands[i])
	}

	for _, args := range inst.TargetArgs {
		for i := range args {
			fn(&args[i])
		}
	}
}
