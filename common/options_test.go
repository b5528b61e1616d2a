package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptionsKeepsDefaults(t *testing.T) {
	opts, err := ParseOptions([]byte(`
module-name = "lib"
emit-all = true
`))
	require.NoError(t, err)

	require.Equal(t, "lib", opts.ModuleName)
	require.True(t, opts.EmitAll)
	require.True(t, opts.Ownership)
	require.True(t, opts.Verify)
	require.Equal(t, "silent", opts.LogLevel)
}

func TestParseOptionsRejectsBadLogLevel(t *testing.T) {
	_, err := ParseOptions([]byte(`log-level = "loud"`))
	require.Error(t, err)
}

func TestLoadOptionsFromDirectory(t *testing.T) {
	dir := t.TempDir()

	opts, err := LoadOptions(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultOptions(), opts)

	content := "module-name = \"app\"\nownership = false\nscript-mode = true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, OptionsFileName), []byte(content), 0o644))

	opts, err = LoadOptions(dir)
	require.NoError(t, err)
	require.Equal(t, "app", opts.ModuleName)
	require.False(t, opts.Ownership)
	require.True(t, opts.ScriptMode)
}
