package lint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerAppendsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eda_ext.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	runner := NewExecRunner([]string{"test -f", "  ", "test -d"}, time.Minute, nil)
	outcomes := runner.Run(context.Background(), path)

	require.Len(t, outcomes, 2)
	assert.Equal(t, "test -f", outcomes[0].Command)
	assert.False(t, outcomes[0].Failed())
	assert.True(t, outcomes[1].Failed(), "a file is not a directory")
}

func TestExecRunnerReportsMissingBinary(t *testing.T) {
	runner := NewExecRunner([]string{"pyshare-no-such-linter --fix", "true"}, 0, nil)
	outcomes := runner.Run(context.Background(), "eda_ext.py")

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Failed())
	assert.False(t, outcomes[1].Failed(), "later commands still run")
}

func TestExecRunnerTimeout(t *testing.T) {
	runner := NewExecRunner([]string{"sleep"}, 50*time.Millisecond, nil)
	outcomes := runner.Run(context.Background(), "5")

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Failed())
	assert.Less(t, outcomes[0].Duration, 5*time.Second)
}

func TestNopRunner(t *testing.T) {
	assert.Empty(t, Nop{}.Run(context.Background(), "eda_ext.py"))
}
