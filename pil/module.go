package pil

import (
	"strings"

	"pilc/util"

	"github.com/google/btree"
)

// symbolEntry is an entry of the module's symbol index.
type symbolEntry struct {
	name   string
	fn     *Function
	global *GlobalVariable
}

// Module is a PIL module: the functions, globals, vtables and witness tables
// produced by lowering a single source module.
type Module struct {
	Name string

	// The type converter shared by all functions of the module.
	Types *TypeConverter

	// Whether new functions use ownership qualified PIL.
	HasOwnership bool

	// The functions in emission order.
	functions []*Function

	// The index of all symbols ordered by name.
	symbols *btree.BTreeG[symbolEntry]

	Globals              []*GlobalVariable
	VTables              []*VTable
	WitnessTables        []*WitnessTable
	DefaultWitnessTables []*DefaultWitnessTable
}

// NewModule creates a new empty module.
func NewModule(name string, hasOwnership bool) *Module {
	return &Module{
		Name:         name,
		Types:        NewTypeConverter(),
		HasOwnership: hasOwnership,
		symbols: btree.NewG[symbolEntry](8, func(a, b symbolEntry) bool {
			return a.name < b.name
		}),
	}
}

// addSymbol registers a new symbol.  Symbol names must be unique.
func (m *Module) addSymbol(entry symbolEntry) {
	if _, exists := m.symbols.ReplaceOrInsert(entry); exists {
		icef("duplicate symbol `%s` in module %s", entry.name, m.Name)
	}
}

// CreateFunction creates a new function at the end of the module.
func (m *Module) CreateFunction(name string, sig *FunctionSignature, linkage Linkage) *Function {
	f := newFunction(m, name, sig, linkage)
	m.addSymbol(symbolEntry{name: name, fn: f})
	m.functions = append(m.functions, f)
	return f
}

// CreateFunctionAfter creates a new function laid out immediately after
// another function.  If after is nil, the function is placed first.
func (m *Module) CreateFunctionAfter(name string, sig *FunctionSignature, linkage Linkage, after *Function) *Function {
	f := m.CreateFunction(name, sig, linkage)
	m.MoveFunctionAfter(f, after)
	return f
}

// MoveFunctionAfter moves a function so it is laid out right after another.
// If after is nil, the function is moved to the front.
func (m *Module) MoveFunctionAfter(f, after *Function) {
	m.functions = util.Remove(m.functions, f)
	if after == nil {
		m.functions = util.InsertAt(m.functions, 0, f)
	} else {
		m.functions = util.InsertAt(m.functions, util.IndexOf(m.functions, after)+1, f)
	}
}

// LookupFunction returns the function with the given name or nil.
func (m *Module) LookupFunction(name string) *Function {
	if entry, ok := m.symbols.Get(symbolEntry{name: name}); ok {
		return entry.fn
	}

	return nil
}

// Functions returns the functions of the module in layout order.
func (m *Module) Functions() []*Function {
	return append([]*Function(nil), m.functions...)
}

// CreateGlobal creates a new global variable.
func (m *Module) CreateGlobal(g *GlobalVariable) *GlobalVariable {
	m.addSymbol(symbolEntry{name: g.Name, global: g})
	m.Globals = append(m.Globals, g)
	return g
}

// LookupGlobal returns the global with the given name or nil.
func (m *Module) LookupGlobal(name string) *GlobalVariable {
	if entry, ok := m.symbols.Get(symbolEntry{name: name}); ok {
		return entry.global
	}

	return nil
}

// Symbols returns the names of all functions and globals in sorted order.
func (m *Module) Symbols() []string {
	names := make([]string, 0, m.symbols.Len())
	m.symbols.Ascend(func(entry symbolEntry) bool {
		names = append(names, entry.name)
		return true
	})

	return names
}

// LookupVTable returns the vtable of the class with the given name or nil.
func (m *Module) LookupVTable(className string) *VTable {
	for _, vt := range m.VTables {
		if vt.Class.Name == className {
			return vt
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Repr returns the full textual representation of the module: globals in
// symbol order, then functions in layout order, then the tables.
func (m *Module) Repr() string {
	sb := strings.Builder{}
	sb.WriteString("pil_module ")
	sb.WriteString(m.Name)
	sb.WriteString("\n\n")

	m.symbols.Ascend(func(entry symbolEntry) bool {
		if entry.global != nil {
			sb.WriteString(entry.global.Repr())
			sb.WriteRune('\n')
		}

		return true
	})

	for _, f := range m.functions {
		sb.WriteRune('\n')
		sb.WriteString(f.Repr())
	}

	for _, vt := range m.VTables {
		sb.WriteRune('\n')
		sb.WriteString(vt.Repr())
	}

	for _, wt := range m.WitnessTables {
		sb.WriteRune('\n')
		sb.WriteString(wt.Repr())
	}

	for _, dt := range m.DefaultWitnessTables {
		sb.WriteRune('\n')
		sb.WriteString(dt.Repr())
	}

	return sb.String()
}
