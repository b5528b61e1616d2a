package pil

import (
	"pilc/ast"
)

// DeclRefKind distinguishes the different entry points a declaration can
// give rise to.
type DeclRefKind int

// Enumeration of declaration reference kinds.
const (
	// The function itself.
	DeclRefFunc DeclRefKind = iota

	// The one-time initializer of a global variable.
	DeclRefGlobalInit

	// The accessor returning the address of a global variable.
	DeclRefGlobalAccessor
)

// DeclRef is a reference to a specific entry point of a declaration.  It is
// comparable and used as the key of the emitted functions of a module.
type DeclRef struct {
	Decl ast.Decl
	Kind DeclRefKind
}

// FuncRef returns the declaration reference of a function.
func FuncRef(fd *ast.FuncDecl) DeclRef {
	return DeclRef{Decl: fd, Kind: DeclRefFunc}
}

// GlobalInitRef returns the reference to the initializer of a global.
func GlobalInitRef(vd *ast.VarDecl) DeclRef {
	return DeclRef{Decl: vd, Kind: DeclRefGlobalInit}
}

// GlobalAccessorRef returns the reference to the accessor of a global.
func GlobalAccessorRef(vd *ast.VarDecl) DeclRef {
	return DeclRef{Decl: vd, Kind: DeclRefGlobalAccessor}
}

// IsValid returns whether the reference refers to a declaration.
func (dr DeclRef) IsValid() bool {
	return dr.Decl != nil
}

// FuncDecl returns the referenced function declaration or nil if the
// reference is not to a function.
func (dr DeclRef) FuncDecl() *ast.FuncDecl {
	fd, _ := dr.Decl.(*ast.FuncDecl)
	return fd
}

func (dr DeclRef) Repr() string {
	if dr.Decl == nil {
		return "<invalid>"
	}

	name := dr.Decl.DeclName()
	if fd, ok := dr.Decl.(*ast.FuncDecl); ok && fd.Parent != nil {
		name = fd.Parent.DeclName() + "." + name
	}

	switch dr.Kind {
	case DeclRefGlobalInit:
		return "#" + name + "!init"
	case DeclRefGlobalAccessor:
		return "#" + name + "!accessor"
	default:
		return "#" + name
	}
}
