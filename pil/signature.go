package pil

import (
	"strings"

	"pilc/types"
	"pilc/util"
)

// ParamConvention is the calling convention of a single lowered parameter.
type ParamConvention int

// Enumeration of parameter conventions.
const (
	// Passed in registers at +1: the callee consumes it.
	ParamDirectOwned ParamConvention = iota

	// Passed in registers: the caller keeps it alive for the call.
	ParamDirectGuaranteed

	// Passed in registers with no lifetime contract (trivial values).
	ParamDirectUnowned

	// Passed by address: the callee takes the value out of memory.
	ParamIndirectIn

	// Passed by address: the callee only reads the value.
	ParamIndirectInGuaranteed

	// Passed by address: the callee may mutate the value in place.
	ParamIndirectInout
)

func (pc ParamConvention) Repr() string {
	switch pc {
	case ParamDirectOwned:
		return "@owned"
	case ParamDirectGuaranteed:
		return "@guaranteed"
	case ParamDirectUnowned:
		return ""
	case ParamIndirectIn:
		return "@in"
	case ParamIndirectInGuaranteed:
		return "@in_guaranteed"
	default:
		return "@inout"
	}
}

// IsIndirect returns whether the parameter is passed by address.
func (pc ParamConvention) IsIndirect() bool {
	return pc >= ParamIndirectIn
}

// IsConsumed returns whether the callee takes ownership of the argument.
func (pc ParamConvention) IsConsumed() bool {
	return pc == ParamDirectOwned || pc == ParamIndirectIn
}

// ResultConvention is the calling convention of a single lowered result.
type ResultConvention int

// Enumeration of result conventions.
const (
	// Returned in registers at +1.
	ResultOwned ResultConvention = iota

	// Returned in registers with no lifetime contract (trivial values).
	ResultUnowned

	// Returned through an address supplied by the caller.
	ResultIndirect
)

func (rc ResultConvention) Repr() string {
	switch rc {
	case ResultOwned:
		return "@owned"
	case ResultUnowned:
		return ""
	default:
		return "@out"
	}
}

// ParamInfo is a single lowered parameter or yield.
type ParamInfo struct {
	Type Type
	Conv ParamConvention
}

// ResultInfo is a single lowered result.
type ResultInfo struct {
	Type Type
	Conv ResultConvention
}

// -----------------------------------------------------------------------------

// FunctionSignature is the lowered calling convention of a function: the
// formal parameters and results are flattened over their tuple structure as
// dictated by the abstraction pattern the function was lowered against.
type FunctionSignature struct {
	Formal  *types.FuncType
	Pattern types.AbstractionPattern

	Params  []ParamInfo
	Results []ResultInfo

	// The number of lowered parameters produced by each formal parameter.
	ParamLeafCounts []int

	// The error result of a throwing function.
	ErrorResult *ResultInfo

	// The values yielded by a coroutine.
	Yields    []ParamInfo
	Coroutine bool
}

// IndirectResults returns the results returned through memory.
func (fs *FunctionSignature) IndirectResults() []ResultInfo {
	var results []ResultInfo
	for _, res := range fs.Results {
		if res.Conv == ResultIndirect {
			results = append(results, res)
		}
	}

	return results
}

// DirectResults returns the results returned in registers.
func (fs *FunctionSignature) DirectResults() []ResultInfo {
	var results []ResultInfo
	for _, res := range fs.Results {
		if res.Conv != ResultIndirect {
			results = append(results, res)
		}
	}

	return results
}

// DirectResultType returns the type of the value a call returns in registers:
// the single direct result or a tuple of all direct results.
func (fs *FunctionSignature) DirectResultType() Type {
	direct := fs.DirectResults()
	if len(direct) == 1 {
		return direct[0].Type
	}

	elems := util.Map(direct, func(res ResultInfo) types.Type {
		return res.Type.Formal
	})

	return ObjectType(types.NewTuple(elems...))
}

// FuncValueType returns the type of a function value with this signature.
func (fs *FunctionSignature) FuncValueType() Type {
	return ObjectType(fs.Formal)
}

func (fs *FunctionSignature) Repr() string {
	sb := strings.Builder{}

	if fs.Coroutine {
		sb.WriteString("@yield_once ")
	}

	sb.WriteRune('(')
	for i, param := range fs.Params {
		if i > 0 {
			sb.WriteString(", ")
		}

		writeConv(&sb, param.Conv.Repr(), param.Type)
	}
	sb.WriteString(") -> ")

	if len(fs.Yields) > 0 {
		sb.WriteString("@yields (")
		for i, yield := range fs.Yields {
			if i > 0 {
				sb.WriteString(", ")
			}

			writeConv(&sb, yield.Conv.Repr(), yield.Type)
		}
		sb.WriteString(") ")
	}

	if len(fs.Results) == 1 {
		writeConv(&sb, fs.Results[0].Conv.Repr(), fs.Results[0].Type)
	} else {
		sb.WriteRune('(')
		for i, res := range fs.Results {
			if i > 0 {
				sb.WriteString(", ")
			}

			writeConv(&sb, res.Conv.Repr(), res.Type)
		}
		sb.WriteRune(')')
	}

	if fs.ErrorResult != nil {
		sb.WriteString(", @error ")
		sb.WriteString(fs.ErrorResult.Type.Formal.Repr())
	}

	return sb.String()
}

func writeConv(sb *strings.Builder, conv string, typ Type) {
	if conv != "" {
		sb.WriteString(conv)
		sb.WriteRune(' ')
	}

	sb.WriteString(typ.Formal.Repr())
}

// -----------------------------------------------------------------------------

// ParamPassing is how a formal parameter is passed independently of its
// representation.
type ParamPassing int

// Enumeration of parameter passing modes.
const (
	PassGuaranteed ParamPassing = iota
	PassOwned
	PassInout
)

// LowerSignature lowers a formal function type against an abstraction pattern.
// passing gives the passing mode of each formal parameter; it may be shorter
// than the parameter list in which case the remaining parameters are
// guaranteed.
func (tc *TypeConverter) LowerSignature(pattern types.AbstractionPattern, ft *types.FuncType, passing []ParamPassing) *FunctionSignature {
	sig := &FunctionSignature{
		Formal:          ft,
		Pattern:         pattern,
		ParamLeafCounts: make([]int, len(ft.Params)),
		Coroutine:       ft.Coroutine,
	}

	for i, param := range ft.Params {
		mode := PassGuaranteed
		if i < len(passing) {
			mode = passing[i]
		}

		before := len(sig.Params)
		if mode == PassInout {
			sig.Params = append(sig.Params, ParamInfo{Type: AddressType(param), Conv: ParamIndirectInout})
		} else {
			sig.Params = tc.expandParam(sig.Params, pattern.FuncParam(i), param, mode == PassOwned)
		}

		sig.ParamLeafCounts[i] = len(sig.Params) - before
	}

	sig.Results = tc.expandResult(sig.Results, pattern.FuncResult(), ft.Result)

	for i, yield := range ft.Yields {
		sig.Yields = tc.expandParam(sig.Yields, pattern.FuncYield(i), yield, false)
	}

	if ft.Throws {
		sig.ErrorResult = &ResultInfo{Type: ObjectType(types.PrimTypeError), Conv: ResultOwned}
	}

	return sig
}

// LowerNaturalSignature lowers a formal function type against its own
// pattern.
func (tc *TypeConverter) LowerNaturalSignature(ft *types.FuncType, passing []ParamPassing) *FunctionSignature {
	return tc.LowerSignature(types.PatternOf(ft), ft, passing)
}

func (tc *TypeConverter) expandParam(params []ParamInfo, pattern types.AbstractionPattern, typ types.Type, owned bool) []ParamInfo {
	if tt, ok := typ.(*types.TupleType); ok && pattern.IsTuple() && pattern.NumTupleElements() == len(tt.Elems) {
		for i, elem := range tt.Elems {
			params = tc.expandParam(params, pattern.TupleElement(i), elem.Type, owned)
		}

		return params
	}

	tl := tc.GetTypeLowering(pattern, typ)
	switch {
	case tl.IsAddressOnly() && owned:
		return append(params, ParamInfo{Type: AddressType(typ), Conv: ParamIndirectIn})
	case tl.IsAddressOnly():
		return append(params, ParamInfo{Type: AddressType(typ), Conv: ParamIndirectInGuaranteed})
	case tl.IsTrivial():
		return append(params, ParamInfo{Type: ObjectType(typ), Conv: ParamDirectUnowned})
	case owned:
		return append(params, ParamInfo{Type: ObjectType(typ), Conv: ParamDirectOwned})
	default:
		return append(params, ParamInfo{Type: ObjectType(typ), Conv: ParamDirectGuaranteed})
	}
}

func (tc *TypeConverter) expandResult(results []ResultInfo, pattern types.AbstractionPattern, typ types.Type) []ResultInfo {
	if tt, ok := typ.(*types.TupleType); ok && pattern.IsTuple() && pattern.NumTupleElements() == len(tt.Elems) {
		for i, elem := range tt.Elems {
			results = tc.expandResult(results, pattern.TupleElement(i), elem.Type)
		}

		return results
	}

	tl := tc.GetTypeLowering(pattern, typ)
	switch {
	case tl.IsAddressOnly():
		return append(results, ResultInfo{Type: AddressType(typ), Conv: ResultIndirect})
	case tl.IsTrivial():
		return append(results, ResultInfo{Type: ObjectType(typ), Conv: ResultUnowned})
	default:
		return append(results, ResultInfo{Type: ObjectType(typ), Conv: ResultOwned})
	}
}

// -----------------------------------------------------------------------------

// ABIDifference classifies the difference between two lowered signatures.
type ABIDifference int

// Enumeration of ABI differences.
const (
	// Values of one signature can be used where the other is expected.
	ABICompatible ABIDifference = iota

	// A thunk is needed to adapt one signature to the other.
	ABINeedsThunk
)

// CheckABICompatibility compares two lowered signatures leaf by leaf: they are
// compatible iff they have the same parameters, results, yields and error
// result with identical conventions and lowered types.
func CheckABICompatibility(a, b *FunctionSignature) ABIDifference {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) || len(a.Yields) != len(b.Yields) {
		return ABINeedsThunk
	}

	if a.Coroutine != b.Coroutine || (a.ErrorResult == nil) != (b.ErrorResult == nil) {
		return ABINeedsThunk
	}

	for i, param := range a.Params {
		if !sameParam(param, b.Params[i]) {
			return ABINeedsThunk
		}
	}

	for i, yield := range a.Yields {
		if !sameParam(yield, b.Yields[i]) {
			return ABINeedsThunk
		}
	}

	for i, res := range a.Results {
		if res.Conv != b.Results[i].Conv || !res.Type.Equals(b.Results[i].Type) {
			return ABINeedsThunk
		}
	}

	return ABICompatible
}

func sameParam(a, b ParamInfo) bool {
	return a.Conv == b.Conv && a.Type.Equals(b.Type)
}
