package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// Options configures a single lowering session.
type Options struct {
	// The name of the module being lowered.
	ModuleName string `toml:"module-name" default:"main"`

	// Whether functions are emitted as ownership-qualified PIL.
	Ownership bool `toml:"ownership" default:"true"`

	// Whether every function is emitted immediately regardless of visibility.
	// This disables delayed emission (eg. for coverage instrumentation).
	EmitAll bool `toml:"emit-all"`

	// Whether top-level statements form the implicit `main` entry point.
	ScriptMode bool `toml:"script-mode"`

	// Whether the PIL verifier runs after each emitted function.
	Verify bool `toml:"verify" default:"true"`

	// The reporter log level: one of `silent`, `error`, `warn`, `verbose`.
	LogLevel string `toml:"log-level" default:"silent"`
}

// DefaultOptions returns the options used when no options file is present.
func DefaultOptions() *Options {
	return &Options{
		ModuleName: "main",
		Ownership:  true,
		Verify:     true,
		LogLevel:   "silent",
	}
}

// logLevelNames is the set of valid log level names.
var logLevelNames = map[string]struct{}{
	"silent":  {},
	"error":   {},
	"warn":    {},
	"verbose": {},
}

// LoadOptions loads the options file stored in dirAbsPath.  If there is no
// options file in that directory, the default options are returned.
func LoadOptions(dirAbsPath string) (*Options, error) {
	buff, err := os.ReadFile(filepath.Join(dirAbsPath, OptionsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultOptions(), nil
		}

		return nil, fmt.Errorf("error reading options file at `%s`: %w", dirAbsPath, err)
	}

	opts, err := ParseOptions(buff)
	if err != nil {
		return nil, fmt.Errorf("error loading options file at `%s`: %w", dirAbsPath, err)
	}

	return opts, nil
}

// ParseOptions decodes TOML options.  Keys missing from buff keep their
// default values.
func ParseOptions(buff []byte) (*Options, error) {
	opts := DefaultOptions()
	if err := toml.Unmarshal(buff, opts); err != nil {
		return nil, err
	}

	if _, ok := logLevelNames[opts.LogLevel]; !ok {
		return nil, fmt.Errorf("invalid log level: `%s`", opts.LogLevel)
	}

	if opts.ModuleName == "" {
		return nil, fmt.Errorf("missing module name")
	}

	return opts, nil
}
