package pilgen

import (
	"pilc/pil"
	"pilc/report"
	"pilc/types"
)

// emitProlog creates the entry block of the function and its arguments: the
// indirect result addresses followed by the lowered parameters.  It returns
// one RValue per formal parameter rebuilt out of the lowered arguments.
func (sgf *PILGenFunction) emitProlog(loc *report.TextSpan, sig *pil.FunctionSignature, formal *types.FuncType) []*RValue {
	entry := sgf.F.CreateBlock()
	sgf.B.SetInsertionPoint(entry)

	for _, res := range sig.IndirectResults() {
		sgf.indirectResults = append(sgf.indirectResults, sgf.F.AddBlockArg(entry, res.Type, pil.OwnershipNone))
	}

	args := make([]pil.Value, len(sig.Params))
	for i, param := range sig.Params {
		args[i] = sgf.F.AddBlockArg(entry, param.Type, argOwnership(sgf, param))
	}

	params := make([]*RValue, len(formal.Params))
	infos := sig.Params
	for i, ptype := range formal.Params {
		if sig.ParamLeafCounts[i] == 1 && infos[0].Conv == pil.ParamIndirectInout {
			params[i] = NewRValue(sgf, loc, ManagedLValue(args[0]), ptype)
			args, infos = args[1:], infos[1:]
			continue
		}

		params[i] = sgf.emitParamValue(loc, sig.Pattern.FuncParam(i), ptype, &args, &infos)
	}

	if len(args) != 0 {
		report.ReportICE("%d lowered parameters of `%s` left unbound", len(args), sgf.F.Name)
	}

	return params
}

// argOwnership returns the ownership of the block argument receiving a
// parameter.
func argOwnership(sgf *PILGenFunction, param pil.ParamInfo) pil.OwnershipKind {
	if !sgf.F.HasOwnership {
		return pil.OwnershipNone
	}

	switch param.Conv {
	case pil.ParamDirectOwned:
		return pil.OwnershipOwned
	case pil.ParamDirectGuaranteed:
		return pil.OwnershipGuaranteed
	default:
		return pil.OwnershipNone
	}
}

// emitParamValue rebuilds the formal value of a parameter of type typ lowered
// under pattern out of the leading block arguments.
func (sgf *PILGenFunction) emitParamValue(loc *report.TextSpan, pattern types.AbstractionPattern, typ types.Type, args *[]pil.Value, infos *[]pil.ParamInfo) *RValue {
	if tt, ok := typ.(*types.TupleType); ok && pattern.IsTuple() && pattern.NumTupleElements() == len(tt.Elems) {
		rv := NewIncompleteRValue(typ)
		for i, elem := range tt.Elems {
			rv.AddElement(sgf.emitParamValue(loc, pattern.TupleElement(i), elem.Type, args, infos))
		}

		return rv
	}

	arg, conv := (*args)[0], (*infos)[0].Conv
	*args, *infos = (*args)[1:], (*infos)[1:]

	var mv ManagedValue
	switch conv {
	case pil.ParamDirectOwned, pil.ParamIndirectIn:
		mv = sgf.ManagedFromOwned(arg)
	case pil.ParamDirectGuaranteed, pil.ParamIndirectInGuaranteed:
		mv = ManagedBorrowed(arg)
	default:
		mv = ManagedTrivial(arg)
	}

	// a tuple passed whole (eg. through an opaque pattern) is exploded from its
	// address
	return NewRValue(sgf, loc, mv, typ)
}
