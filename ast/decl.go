package ast

import (
	"pilc/types"
)

// Decl represents a named declaration.
type Decl interface {
	ASTNode

	// DeclName returns the name of the declaration.
	DeclName() string
}

// AccessLevel is the visibility of a declaration.
type AccessLevel int

// Enumeration of access levels ordered from least to most visible.
const (
	AccessPrivate AccessLevel = iota
	AccessInternal
	AccessPublic
	AccessOpen
)

// IsExternallyVisible returns whether a declaration with this access level can
// be referenced from outside its module.
func (al AccessLevel) IsExternallyVisible() bool {
	return al >= AccessPublic
}

// -----------------------------------------------------------------------------

// ParamDecl is a function parameter.
type ParamDecl struct {
	ASTBase

	Name string
	Type types.Type

	// Whether the parameter is passed at +1 (consumed by the callee).
	Owned bool

	// Whether the parameter is passed by reference and may be mutated.
	Inout bool
}

func (pd *ParamDecl) DeclName() string {
	return pd.Name
}

// VarDecl is a local or global variable.
type VarDecl struct {
	ASTBase

	Name string
	Type types.Type

	// Whether the variable may be reassigned (`var` as opposed to `let`).
	Mutable bool

	// Whether the variable is a global variable.
	Global bool

	// The visibility of a global variable.
	Access AccessLevel

	// The property wrapper applied to this variable if any.
	Wrapper *PropertyWrapper
}

func (vd *VarDecl) DeclName() string {
	return vd.Name
}

// PropertyWrapper describes the backing storage of a wrapped variable.  An
// assignment to a wrapped variable that is not yet initialized initializes the
// backing storage via Init; any later assignment goes through Setter.  Both
// consume the wrapped value.
type PropertyWrapper struct {
	// The type of the backing storage.
	BackingType types.Type

	// Init builds the backing storage from the wrapped value:
	// `(Value) -> Backing`.
	Init *FuncDecl

	// Setter stores a new wrapped value: `(owned Value, inout Backing) -> ()`.
	Setter *FuncDecl
}

// GlobalVarDecl is a top level variable binding with its initializer.
type GlobalVarDecl struct {
	ASTBase

	Var  *VarDecl
	Init Expr
}

func (gd *GlobalVarDecl) DeclName() string {
	return gd.Var.Name
}

// -----------------------------------------------------------------------------

// FuncDecl is a function, method, or protocol requirement.
type FuncDecl struct {
	ASTBase

	Name   string
	Params []*ParamDecl

	ResultType types.Type
	Throws     bool

	// Coroutines yield exactly once before they return.
	Coroutine  bool
	YieldTypes []types.Type

	// The generic parameters of the function.
	GenericParams []*types.ArchetypeType

	// The body of the function.  This is nil for requirements and functions
	// defined outside the module.
	Body *Block

	Access AccessLevel

	// Whether the declaration was synthesized by the type checker: implicit
	// declarations are only emitted if they are referenced.
	Implicit bool

	// The type declaration enclosing a method.  This is nil for free functions.
	Parent Decl

	// Whether a method is static (takes a metatype as self).
	Static bool

	// The method this method overrides if any.
	Overridden *FuncDecl

	// Whether a method cannot be overridden: calls to it are direct.
	Final bool

	// The global variables this function captures.  A function referenced from
	// top level code escapes the globals it captures.
	Captures []*VarDecl

	// The default implementation of a protocol requirement if any.
	DefaultImpl *FuncDecl

	selfParam *ParamDecl
}

func (fd *FuncDecl) DeclName() string {
	return fd.Name
}

// IsMethod returns whether the function is declared inside a type.
func (fd *FuncDecl) IsMethod() bool {
	return fd.Parent != nil
}

// SelfType returns the type of the self parameter of a method.
func (fd *FuncDecl) SelfType() types.Type {
	var selfType types.Type
	switch v := fd.Parent.(type) {
	case *ClassDecl:
		selfType = v.Type
	case *StructDecl:
		selfType = v.Type
	case *ProtocolDecl:
		selfType = v.SelfType()
	default:
		return nil
	}

	if fd.Static {
		return &types.MetatypeType{Instance: selfType}
	}

	return selfType
}

// InterfaceType returns the formal type of the function.  Methods take self as
// their last parameter.
func (fd *FuncDecl) InterfaceType() *types.FuncType {
	ft := &types.FuncType{
		Params:    make([]types.Type, 0, len(fd.Params)+1),
		Result:    fd.ResultType,
		Throws:    fd.Throws,
		Coroutine: fd.Coroutine,
		Yields:    fd.YieldTypes,
		Thin:      true,
	}

	if ft.Result == nil {
		ft.Result = types.Unit()
	}

	for _, param := range fd.Params {
		ft.Params = append(ft.Params, param.Type)
	}

	if fd.IsMethod() {
		ft.Params = append(ft.Params, fd.SelfType())
	}

	return ft
}

// SelfParam returns the declaration of the self parameter of a method:
// references to self inside the method's body refer to it.
func (fd *FuncDecl) SelfParam() *ParamDecl {
	if fd.selfParam == nil {
		fd.selfParam = &ParamDecl{ASTBase: fd.ASTBase, Name: "self", Type: fd.SelfType()}
	}

	return fd.selfParam
}

// IsGeneric returns whether the function has generic parameters of its own.
func (fd *FuncDecl) IsGeneric() bool {
	return len(fd.GenericParams) > 0
}

// -----------------------------------------------------------------------------

// ClassDecl is a reference counted class.
type ClassDecl struct {
	ASTBase

	Name  string
	Type  *types.ClassType
	Super *ClassDecl

	Methods []*FuncDecl

	Access AccessLevel

	// The module defining the class.
	ModuleName string

	// Whether the class layout is hidden from other modules.
	Resilient bool
}

func (cd *ClassDecl) DeclName() string {
	return cd.Name
}

// StructDecl is a value type with stored fields.
type StructDecl struct {
	ASTBase

	Name    string
	Type    *types.StructType
	Methods []*FuncDecl

	Access AccessLevel
}

func (sd *StructDecl) DeclName() string {
	return sd.Name
}

// ProtocolDecl is a protocol.
type ProtocolDecl struct {
	ASTBase

	Name string

	// The protocols this protocol refines.
	Inherited []*ProtocolDecl

	AssocTypes []*AssociatedTypeDecl

	// The method requirements in declaration order.
	Requirements []*FuncDecl

	Access AccessLevel

	// Resilient protocols get a default witness table.
	Resilient bool

	selfType *types.ArchetypeType
}

func (pd *ProtocolDecl) DeclName() string {
	return pd.Name
}

// SelfType returns the archetype standing for the conforming type inside the
// protocol's requirements.
func (pd *ProtocolDecl) SelfType() *types.ArchetypeType {
	if pd.selfType == nil {
		pd.selfType = &types.ArchetypeType{Name: "Self"}
	}

	return pd.selfType
}

// AssociatedTypeDecl is an associated type requirement of a protocol.
type AssociatedTypeDecl struct {
	ASTBase

	Name string

	// The protocols the associated type must conform to.
	Conformances []*ProtocolDecl
}

func (ad *AssociatedTypeDecl) DeclName() string {
	return ad.Name
}
