package runner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix coreutils")
	}
}

func TestRunSuccessAndFailure(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()

	ok := Runner{Binary: "true"}.run(context.Background(), dir)
	require.NotNil(t, ok)
	assert.True(t, ok.Ok)
	assert.False(t, ok.TimedOut)

	failed := Runner{Binary: "false"}.run(context.Background(), dir)
	require.NotNil(t, failed)
	assert.False(t, failed.Ok)
	assert.False(t, failed.TimedOut)
}

func TestRunMissingBinary(t *testing.T) {
	result := Runner{Binary: "definitely-not-a-real-binary-aa1f"}.run(context.Background(), t.TempDir())
	require.NotNil(t, result)
	assert.False(t, result.Ok)
	require.NotEmpty(t, result.Logs)
	assert.Contains(t, result.Logs[len(result.Logs)-1], "command not found")
}

func TestRunTimeoutIsDistinctFromFailure(t *testing.T) {
	requireUnix(t)

	result := Runner{Binary: "sleep", Timeout: 50 * time.Millisecond}.run(context.Background(), t.TempDir(), "5")
	require.NotNil(t, result)
	assert.False(t, result.Ok)
	assert.True(t, result.TimedOut)
	require.NotEmpty(t, result.Logs)
	assert.Contains(t, result.Logs[len(result.Logs)-1], "timed out")
}

func TestTailLines(t *testing.T) {
	assert.Nil(t, tailLines("", 5))
	assert.Equal(t, []string{"a", "b"}, tailLines("a\nb\n", 5))
	assert.Equal(t, []string{"d", "e"}, tailLines("a\nb\nc\nd\ne", 2))
	assert.Equal(t, []string{"crlf"}, tailLines("crlf\r\n", 5))
}
