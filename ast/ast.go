package ast

import "pilc/report"

// The abstract interface for all AST nodes.
type ASTNode interface {
	// The text span of the AST.
	Span() *report.TextSpan
}

// A utility base struct for all AST nodes.
type ASTBase struct {
	// The span over which the AST node occurs.
	span *report.TextSpan
}

// NewASTBaseOn creates a new AST base with the given span.
func NewASTBaseOn(span *report.TextSpan) ASTBase {
	return ASTBase{span: span}
}

// NewASTBaseOver creates a new AST base spanning over two spans.
func NewASTBaseOver(start, end *report.TextSpan) ASTBase {
	return ASTBase{span: report.NewSpanOver(start, end)}
}

func (ab ASTBase) Span() *report.TextSpan {
	return ab.span
}

// -----------------------------------------------------------------------------

// SourceFile is a single, fully type-checked source file.
type SourceFile struct {
	// The absolute path to the file.
	AbsPath string

	// The path displayed to the user in diagnostics.
	ReprPath string

	// The top level declarations of the file.
	Decls []Decl

	// The top level statements of the file: these form the body of the script
	// entry point when the module is compiled in script mode.
	TopLevel []Stmt
}

// Module is the unit of lowering: all the source files making up a single
// module plus the protocol conformances they declare.
type Module struct {
	Name  string
	Files []*SourceFile

	// The conformances declared in this module.
	Conformances []*Conformance

	// The runtime support functions available to the module keyed by their
	// intrinsic name (eg. `bridgeToObject`).
	RuntimeFuncs map[string]*FuncDecl
}
