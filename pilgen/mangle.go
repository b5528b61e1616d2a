package pilgen

import (
	"strconv"
	"strings"

	"pilc/ast"
	"pilc/pil"
	"pilc/types"
)

// Mangler produces the symbol names of a module.  Names are a prefix followed
// by length-prefixed identifiers and an entity suffix: equal entities always
// get equal names and different entities different names.
type Mangler struct {
	module string
}

// NewMangler creates a mangler for the module with the given name.
func NewMangler(module string) *Mangler {
	return &Mangler{module: module}
}

const manglePrefix = "$s"

// Entity suffixes.
const (
	suffixFunc           = "F"
	suffixStatic         = "Z"
	suffixGlobal         = "Vp"
	suffixGlobalInit     = "WZ"
	suffixGlobalAccessor = "vau"
	suffixVTableThunk    = "TV"
	suffixWitnessThunk   = "TW"
	suffixWitnessTable   = "WP"
	suffixReabstraction  = "TR"
)

func (m *Mangler) ident(sb *strings.Builder, name string) {
	sb.WriteString(strconv.Itoa(len(name)))
	sb.WriteString(name)
}

// MangleDeclRef returns the name of the function of a declaration reference.
func (m *Mangler) MangleDeclRef(ref pil.DeclRef) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)

	switch ref.Kind {
	case pil.DeclRefGlobalInit:
		m.mangleVar(sb, ref.Decl.(*ast.VarDecl))
		sb.WriteString(suffixGlobalInit)
	case pil.DeclRefGlobalAccessor:
		m.mangleVar(sb, ref.Decl.(*ast.VarDecl))
		sb.WriteString(suffixGlobalAccessor)
	default:
		m.mangleFunc(sb, ref.FuncDecl())
	}

	return sb.String()
}

// MangleGlobal returns the name of a global variable.
func (m *Mangler) MangleGlobal(vd *ast.VarDecl) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)
	m.mangleVar(sb, vd)
	sb.WriteString(suffixGlobal)
	return sb.String()
}

// MangleVTableThunk returns the name of the thunk dispatching the vtable slot
// of base to derived.
func (m *Mangler) MangleVTableThunk(base, derived *ast.FuncDecl) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)
	m.mangleFunc(sb, derived)
	m.mangleFunc(sb, base)
	sb.WriteString(suffixVTableThunk)
	return sb.String()
}

// MangleWitnessThunk returns the name of the thunk satisfying a requirement
// in a conformance.
func (m *Mangler) MangleWitnessThunk(c *ast.Conformance, req *ast.FuncDecl) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)
	m.mangleConformance(sb, c)
	m.mangleFunc(sb, req)
	sb.WriteString(suffixWitnessThunk)
	return sb.String()
}

// MangleDefaultWitnessThunk returns the name of the thunk providing the
// default implementation of a requirement.
func (m *Mangler) MangleDefaultWitnessThunk(req *ast.FuncDecl) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)
	m.mangleFunc(sb, req)
	sb.WriteString(suffixWitnessThunk)
	return sb.String()
}

// MangleWitnessTable returns the name of the witness table of a conformance.
func (m *Mangler) MangleWitnessTable(c *ast.Conformance) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)
	m.mangleConformance(sb, c)
	sb.WriteString(suffixWitnessTable)
	return sb.String()
}

// MangleReabstractionThunk returns the name of the thunk converting a
// function of signature from to signature to.
func (m *Mangler) MangleReabstractionThunk(from, to *pil.FunctionSignature) string {
	sb := &strings.Builder{}
	sb.WriteString(manglePrefix)
	m.mangleType(sb, from.Formal)

	if patternType := to.Pattern.Type(); patternType != nil {
		m.mangleType(sb, patternType)
	} else {
		sb.WriteString("yp")
	}

	sb.WriteString(suffixReabstraction)
	return sb.String()
}

// -----------------------------------------------------------------------------

func (m *Mangler) mangleFunc(sb *strings.Builder, fd *ast.FuncDecl) {
	m.ident(sb, m.module)
	if fd.Parent != nil {
		m.ident(sb, fd.Parent.DeclName())
	}

	m.ident(sb, fd.Name)
	m.mangleType(sb, fd.InterfaceType())
	sb.WriteString(suffixFunc)

	if fd.Static {
		sb.WriteString(suffixStatic)
	}
}

func (m *Mangler) mangleVar(sb *strings.Builder, vd *ast.VarDecl) {
	m.ident(sb, m.module)
	m.ident(sb, vd.Name)
}

func (m *Mangler) mangleConformance(sb *strings.Builder, c *ast.Conformance) {
	m.mangleType(sb, c.Type)
	m.ident(sb, c.Protocol.Name)
	sb.WriteRune('P')
}

// mangleType appends the mangling of a formal type.
func (m *Mangler) mangleType(sb *strings.Builder, typ types.Type) {
	switch v := typ.(type) {
	case types.PrimitiveType:
		switch v {
		case types.PrimTypeBool:
			sb.WriteString("Sb")
		case types.PrimTypeI64:
			sb.WriteString("Si")
		case types.PrimTypeF32:
			sb.WriteString("Sf")
		case types.PrimTypeF64:
			sb.WriteString("Sd")
		case types.PrimTypeRawPointer:
			sb.WriteString("Bp")
		case types.PrimTypeNativeObject:
			sb.WriteString("Bo")
		case types.PrimTypeError:
			sb.WriteString("s5Error_p")
		default:
			sb.WriteRune('s')
			m.ident(sb, v.Repr())
			sb.WriteRune('V')
		}
	case *types.TupleType:
		if len(v.Elems) == 0 {
			sb.WriteString("yt")
			return
		}

		for i, elem := range v.Elems {
			m.mangleType(sb, elem.Type)
			if i == 0 {
				sb.WriteRune('_')
			}
		}

		sb.WriteRune('t')
	case *types.FuncType:
		m.mangleType(sb, v.Result)
		m.mangleType(sb, types.NewTuple(v.Params...))

		if v.Throws {
			sb.WriteRune('K')
		}

		if v.Coroutine {
			sb.WriteString("Yy")
		}

		if v.Thin {
			sb.WriteString("Xf")
		} else {
			sb.WriteRune('c')
		}
	case *types.StructType:
		m.ident(sb, v.Name)
		sb.WriteRune('V')
	case *types.ClassType:
		m.ident(sb, v.Name)
		sb.WriteRune('C')
	case *types.EnumType:
		m.ident(sb, v.Name)
		sb.WriteRune('O')
	case *types.ProtocolType:
		m.ident(sb, v.Name)
		sb.WriteString("_p")
	case *types.ArchetypeType:
		m.ident(sb, v.Name)
		sb.WriteString("Qz")
	case *types.MetatypeType:
		m.mangleType(sb, v.Instance)
		sb.WriteString("XM")
	default:
		sb.WriteString("yp")
	}
}
