package logger_i

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFollowsLaterInit(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	early := NewLogger("early")

	var buf bytes.Buffer
	InitWriter("warn", true, &buf)

	early.Info("dropped below level")
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "t-1")
	early.WithTrace(ctx).With("jobId", "j-9").Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "early", entry["component"])
	assert.Equal(t, "t-1", entry[config.TRACE_ID_KEY])
	assert.Equal(t, "j-9", entry["jobId"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	parent := NewLogger("p")
	_ = parent.With("a", 1)
	_ = parent.With("b", 2)
	assert.Len(t, parent.attrs, 2)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestTraceIDWithoutValue(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
