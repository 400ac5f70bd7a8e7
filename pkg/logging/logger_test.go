package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("table replaced", RowCount(42), SessionID("s-1"))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "table replaced", entry.Message)
	assert.Equal(t, float64(42), entry.Fields["row_count"])
	assert.Equal(t, "s-1", entry.Fields["session_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Error("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "kept")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel).With(Component("diagram"))

	logger.Info("graph build", Count(7))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "diagram", entry.Fields["component"])
	assert.Equal(t, float64(7), entry.Fields["count"])
}

func TestErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)
	logger.Error("build failed", Error(errors.New("boom")))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "boom", entry.Fields["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, InfoLevel, ParseLevel("unrecognized"))
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	StartTimer(logger, "render", Count(3)).End()
	entry := lastEntry(t, &buf)
	assert.Equal(t, "render", entry.Message)
	assert.Contains(t, entry.Fields, "latency")

	StartTimer(logger, "render").EndError(errors.New("boom"))
	entry = lastEntry(t, &buf)
	assert.Equal(t, "ERROR", entry.Level)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("goes nowhere")
	assert.Equal(t, InfoLevel, logger.GetLevel())
}
