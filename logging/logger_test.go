package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("selection").
		WithSession("s-1", "r-1")

	l.Info("selection.decided", "next", "NetworkAgent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "selection.decided", lines[0]["msg"])
	assert.Equal(t, "selection", lines[0]["component"])
	assert.Equal(t, "s-1", lines[0]["session_id"])
	assert.Equal(t, "r-1", lines[0]["run_id"])
	assert.Equal(t, "NetworkAgent", lines[0]["next"])
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Output: &buf})
	l.Info("dropped")
	l.Warn("kept")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestStructuredLogger_DomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})

	l.LogCapabilityCall("NetworkAgent", "ping", time.Millisecond, nil)
	l.LogCapabilityCall("NetworkAgent", "ping", time.Millisecond, errors.New("boom"))
	l.LogModelCall("gpt-4o", 12, time.Second, nil)
	l.LogTurn(3, "resolved", time.Second, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "tool.call.success", lines[0]["msg"])
	assert.Equal(t, "tool.call.error", lines[1]["msg"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, "model.call.success", lines[2]["msg"])
	assert.Equal(t, "chat.turn.complete", lines[3]["msg"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"DEBUG": LogLevelDebug, "": LogLevelInfo, "warning": LogLevelWarn, "error": LogLevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.Equal(t, NoOpLogger{}, OrNoOp(nil))
	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}

func TestOpenOutput(t *testing.T) {
	w, closer, err := OpenOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)
	assert.NoError(t, closer())

	path := filepath.Join(t.TempDir(), "triage.log")
	w, closer, err = OpenOutput(path)
	require.NoError(t, err)

	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: w})
	l.Info("chat.turn.start")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"chat.turn.start"`)

	_, _, err = OpenOutput(filepath.Join(t.TempDir(), "missing", "triage.log"))
	assert.Error(t, err)
}
