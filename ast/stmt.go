package ast

// Stmt represents a statement.  The set of statements is closed: lowering
// switches over the concrete statement types below.
type Stmt interface {
	ASTNode

	stmtNode()
}

// StmtBase is the base struct for all statements.
type StmtBase struct {
	ASTBase
}

func (StmtBase) stmtNode() {}

// -----------------------------------------------------------------------------

// Block is a braced list of statements introducing a new scope.
type Block struct {
	StmtBase

	Stmts []Stmt
}

// VarDeclStmt declares a local variable with an optional initializer.
type VarDeclStmt struct {
	StmtBase

	Var  *VarDecl
	Init Expr
}

// AssignStmt assigns a value to an lvalue expression: a variable reference, a
// struct member of an lvalue or a tuple element of an lvalue.
type AssignStmt struct {
	StmtBase

	Dest Expr
	Src  Expr
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	StmtBase

	Expr Expr
}

// -----------------------------------------------------------------------------

// IfStmt is a conditional.  Else is nil, a *Block or an *IfStmt.
type IfStmt struct {
	StmtBase

	Cond Expr
	Then *Block
	Else Stmt
}

// WhileStmt is a (optionally labelled) while loop.
type WhileStmt struct {
	StmtBase

	Label string
	Cond  Expr
	Body  *Block
}

// BreakStmt exits the innermost loop or the loop with the given label.
type BreakStmt struct {
	StmtBase

	Label string
}

// ContinueStmt jumps to the condition of the innermost loop or the loop with
// the given label.
type ContinueStmt struct {
	StmtBase

	Label string
}

// SwitchEnumStmt dispatches on the case of an enum value.
type SwitchEnumStmt struct {
	StmtBase

	Subject Expr
	Cases   []*CaseStmt

	// The default body if the cases are not exhaustive.
	Default *Block
}

// CaseStmt is a single case of a SwitchEnumStmt.  Binding receives the payload
// of the case if it is non-nil.
type CaseStmt struct {
	StmtBase

	CaseIndex int
	Binding   *VarDecl
	Body      *Block
}

// -----------------------------------------------------------------------------

// ReturnStmt returns from the enclosing function.  Value is nil for functions
// returning unit.
type ReturnStmt struct {
	StmtBase

	Value Expr
}

// ThrowStmt throws an error out of the enclosing throwing function.
type ThrowStmt struct {
	StmtBase

	Value Expr
}

// DeferStmt runs its body on every exit from the enclosing scope.
type DeferStmt struct {
	StmtBase

	Body *Block
}

// YieldStmt yields values out of a coroutine.
type YieldStmt struct {
	StmtBase

	Values []Expr
}
