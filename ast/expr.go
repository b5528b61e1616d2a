package ast

import (
	"pilc/report"
	"pilc/types"
)

// Expr represents an expression.  All expression nodes implement the `Expr`
// interface.
type Expr interface {
	ASTNode

	// Type is the fully elaborated type of the expression.
	Type() types.Type
}

// ExprBase is the base struct for all expressions.
type ExprBase struct {
	ASTBase

	typ types.Type
}

// NewExprBase creates a new expression base of the given type over span.
func NewExprBase(typ types.Type, span *report.TextSpan) ExprBase {
	return ExprBase{ASTBase: NewASTBaseOn(span), typ: typ}
}

func (eb *ExprBase) Type() types.Type {
	return eb.typ
}

// -----------------------------------------------------------------------------

// IntegerLiteral is an integral literal.
type IntegerLiteral struct {
	ExprBase

	Value int64
}

// FloatLiteral is a floating-point literal.
type FloatLiteral struct {
	ExprBase

	Value float64
}

// BoolLiteral is a boolean literal.
type BoolLiteral struct {
	ExprBase

	Value bool
}

// DeclRef is a reference to a variable, parameter or function.
type DeclRef struct {
	ExprBase

	Decl Decl
}

// TupleExpr is a tuple literal.
type TupleExpr struct {
	ExprBase

	Elems []Expr
}

// TupleElementExpr projects an element out of a tuple.
type TupleElementExpr struct {
	ExprBase

	Tuple Expr
	Index int
}

// MemberRef projects a stored field out of a struct.
type MemberRef struct {
	ExprBase

	Base       Expr
	FieldIndex int
}

// EnumElementExpr constructs an enum case with an optional payload.
type EnumElementExpr struct {
	ExprBase

	CaseIndex int
	Payload   Expr
}

// -----------------------------------------------------------------------------

// CallExpr is a function call.  Calls to throwing functions are implicitly
// `try` calls: the error propagates to the enclosing function.
type CallExpr struct {
	ExprBase

	Func Expr
	Args []Expr
}

// MethodRef is a reference to a method bound to a self value.  It may only
// appear as the callee of a CallExpr.
type MethodRef struct {
	ExprBase

	Base   Expr
	Method *FuncDecl
}

// BinaryOpKind is a builtin binary operator.
type BinaryOpKind int

// Enumeration of builtin binary operators.
const (
	OpAdd BinaryOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpLt
	OpGt
	OpEq
	OpNeq
)

// BuiltinName returns the name of the builtin implementing the operator.
func (op BinaryOpKind) BuiltinName() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpLt:
		return "cmp_lt"
	case OpGt:
		return "cmp_gt"
	case OpEq:
		return "cmp_eq"
	default:
		return "cmp_ne"
	}
}

// BinaryExpr is the application of a builtin binary operator to two trivial
// operands.
type BinaryExpr struct {
	ExprBase

	Op       BinaryOpKind
	Lhs, Rhs Expr
}

// -----------------------------------------------------------------------------

// AllocClassExpr allocates a new instance of a class.
type AllocClassExpr struct {
	ExprBase

	Class *ClassDecl
}

// UpcastExpr converts a class instance to one of its superclasses.
type UpcastExpr struct {
	ExprBase

	Operand Expr
}

// FunctionConversionExpr converts a function value to a more abstract
// representation of the same formal function type: eg. passing a `(Int) ->
// Int` where a `(T) -> T` is expected.
type FunctionConversionExpr struct {
	ExprBase

	Operand Expr

	// The declared function type of the destination.
	Pattern *types.FuncType
}

// ErasureExpr wraps a concrete value in an existential.
type ErasureExpr struct {
	ExprBase

	Operand     Expr
	Conformance *Conformance
}

// BridgeExpr converts a value through a runtime bridging intrinsic.
type BridgeExpr struct {
	ExprBase

	Operand   Expr
	Intrinsic string
}
