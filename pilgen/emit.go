package pilgen

import (
	"pilc/ast"
	"pilc/common"
	"pilc/pil"
	"pilc/report"
)

// EmitModule lowers a type-checked module to PIL.  Every function with a body
// is emitted except implicit functions nothing references.  Internal
// consistency failures and fatal configuration errors abort lowering and are
// returned as errors.
func EmitModule(astMod *ast.Module, opts *common.Options) (mod *pil.Module, err error) {
	defer report.CatchErrors(&err)

	if opts == nil {
		opts = common.DefaultOptions()
	}

	report.InitReporter(report.LogLevelFromName(opts.LogLevel))

	sgm := NewPILGenModule(astMod, opts)

	for _, file := range astMod.Files {
		sgm.emitSourceFile(file)
	}

	// conformances to public protocols may be used from other modules
	for _, c := range astMod.Conformances {
		if opts.EmitAll || c.Protocol.Access.IsExternallyVisible() {
			sgm.useConformance(c)
		}
	}

	if opts.ScriptMode {
		sgm.emitScriptMain()
	}

	sgm.emitLazy()
	sgm.currentFile = nil

	report.ReportVerbose("Lowered", astMod.Name+": "+sgm.summary())
	return sgm.M, nil
}
