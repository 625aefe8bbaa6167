package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	_ = SetFormat(FormatAuto)
	SetOutput(os.Stderr)
}

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetFormat(FormatJSON))
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()
	buf := captureJSON(t)
	SetVerbose(true)

	Debug("test message %s", "arg")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "test message arg", entries[0]["msg"])
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()
	buf := captureJSON(t)
	SetVerbose(false)

	Debug("test message")
	Debugw("structured", "k", "v")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Test Section")

	assert.Equal(t, "\n=== Test Section ===\n", buf.String())
}

func TestInfo_AlwaysEmitted(t *testing.T) {
	defer reset()
	buf := captureJSON(t)

	Info("info message %d", 42)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "info message 42", entries[0]["msg"])
}

func TestWarnAndError(t *testing.T) {
	defer reset()
	buf := captureJSON(t)

	Warn("warning message")
	Error("error %s", "message")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "error message", entries[1]["msg"])
}

func TestStructuredFields(t *testing.T) {
	defer reset()
	buf := captureJSON(t)

	Infow("cycle complete", "raw_saved", 2, "pages_processed", 1)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "cycle complete", entries[0]["msg"])
	assert.EqualValues(t, 2, entries[0]["raw_saved"])
	assert.EqualValues(t, 1, entries[0]["pages_processed"])
}

func TestConsoleFormat(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetFormat(FormatConsole))

	Warnw("retrying", "attempt", 2)

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "retrying")
	assert.Contains(t, out, "attempt")
}

func TestAutoFormat_NonTerminalIsJSON(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetFormat(FormatAuto))

	Info("hello")

	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestSetFormat_Unknown(t *testing.T) {
	defer reset()
	assert.Error(t, SetFormat("xml"))
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			SetVerbose(true)
			Debug("concurrent %d", i)
			IsVerbose()
			SetVerbose(false)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
