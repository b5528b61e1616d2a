package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func lowerWithICE() (err error) {
	defer CatchErrors(&err)

	ReportICE("cleanup %d forwarded twice", 3)
	return nil
}

func lowerWithFatal() (err error) {
	defer CatchErrors(&err)

	ReportFatal("missing runtime support function `%s`", "_bridge")
	return nil
}

func TestCatchErrorsRecoversICE(t *testing.T) {
	err := lowerWithICE()
	require.Error(t, err)

	var ie *InternalError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, "cleanup 3 forwarded twice", ie.Message)
	require.Contains(t, ie.Where, "errors_test.go")
}

func TestCatchErrorsRecoversFatal(t *testing.T) {
	err := lowerWithFatal()

	var fe *FatalError
	require.True(t, errors.As(err, &fe))
	require.Contains(t, fe.Error(), "_bridge")
}

func TestCatchErrorsPropagatesForeignPanics(t *testing.T) {
	require.PanicsWithValue(t, "boom", func() {
		var err error
		defer CatchErrors(&err)
		panic("boom")
	})
}

func TestCompileErrorsAreRecorded(t *testing.T) {
	InitReporter(LogLevelSilent)
	require.False(t, AnyErrors())

	ReportCompileError("/nonexistent.pil", "nonexistent.pil", &TextSpan{}, "bad %s", "thing")
	require.True(t, AnyErrors())

	InitReporter(LogLevelSilent)
	require.False(t, AnyErrors())
}
