package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruciblehq/cruxpkg/internal/bash"
	"github.com/cruciblehq/cruxpkg/internal/logging"
)

func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return lines
}

func TestTail(t *testing.T) {
	buf := newTail(3)
	assert.Empty(t, buf.contents())

	buf.push("a")
	buf.push("b")
	assert.Equal(t, []string{"a", "b"}, buf.contents())

	buf.push("c")
	buf.push("d")
	buf.push("e")
	assert.Equal(t, []string{"c", "d", "e"}, buf.contents())
}

func TestPrintLogsFailureShowsTail(t *testing.T) {
	var out bytes.Buffer
	logger := logging.New(logging.FormatText, &out, slog.LevelInfo, false)

	logs := bash.Replay(numbered(60), &bash.ScriptError{ExitCode: 1})
	err := printLogs(context.Background(), logger, logs, "build()")
	require.ErrorIs(t, err, bash.ErrScript)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 52)
	assert.Contains(t, lines[0], "Only showing up to 50 lines of context")
	assert.Equal(t, "[  ERROR] line 11", lines[1])
	assert.Equal(t, "[  ERROR] line 60", lines[50])
	assert.Equal(t, "[  ERROR] build() failed", lines[51])
}

func TestPrintLogsFailureNoteSurvivesQuiet(t *testing.T) {
	var out bytes.Buffer
	logger := logging.New(logging.FormatText, &out, slog.LevelWarn, false)

	logs := bash.Replay(numbered(3), &bash.ScriptError{ExitCode: 1})
	require.Error(t, printLogs(context.Background(), logger, logs, "package()"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "[   WARN] Only showing up to 50 lines of context. Use --debug for the full output.", lines[0])
	assert.Equal(t, "[  ERROR] line 1", lines[1])
	assert.Equal(t, "[  ERROR] package() failed", lines[4])
}

func TestPrintLogsSuccessIsSilent(t *testing.T) {
	var out bytes.Buffer
	logger := logging.New(logging.FormatText, &out, slog.LevelInfo, false)

	require.NoError(t, printLogs(context.Background(), logger, bash.Replay(numbered(5), nil), "build()"))
	assert.Empty(t, out.String())
}

func TestPrintLogsDebugStreamsEverything(t *testing.T) {
	var out bytes.Buffer
	logger := logging.New(logging.FormatText, &out, slog.LevelDebug, false)

	err := printLogs(context.Background(), logger, bash.Replay(numbered(60), &bash.ScriptError{ExitCode: 2}), "")
	require.Error(t, err)

	text := out.String()
	assert.Contains(t, text, "[  DEBUG] line 1\n")
	assert.Contains(t, text, "[  DEBUG] line 60\n")
	assert.NotContains(t, text, "Only showing")
	assert.NotContains(t, text, "failed")
}

func TestPrintLogsRunnerErrorSkipsContext(t *testing.T) {
	var out bytes.Buffer
	logger := logging.New(logging.FormatText, &out, slog.LevelInfo, false)

	cause := errors.New("connection reset")
	err := printLogs(context.Background(), logger, bash.Replay([]string{"partial"}, cause), "build()")
	assert.Same(t, cause, err)
	assert.Empty(t, out.String())
}
