package common

// OptionsFileName is the name of the file lowering options are loaded from.
const OptionsFileName string = "pilc.toml"

// ScriptEntryPointName is the name of the implicit entry point synthesized for
// top-level code in script mode.
const ScriptEntryPointName string = "main"
