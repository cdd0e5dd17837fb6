package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "info", Format: "json", ServiceName: "portalgate-test", Output: &buf})

	ctx := WithCorrelationID(context.Background(), "cid-1")
	log.WithFields(map[string]interface{}{"component": "session"}).
		Error(ctx, "save failed", errors.New("disk full"), map[string]interface{}{"key": "user"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "save failed", lines[0]["msg"])
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "cid-1", lines[0]["correlation_id"])
	assert.Equal(t, "disk full", lines[0]["error"])
	assert.Equal(t, "session", lines[0]["component"])
	assert.Equal(t, "portalgate-test", lines[0]["service"])
	assert.Equal(t, "user", lines[0]["key"])
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "warn", Format: "json", Output: &buf})

	log.Debug(context.Background(), "hidden", nil)
	log.Info(context.Background(), "hidden too", nil)
	log.Warn(context.Background(), "shown", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "debug", Format: "json", Output: &buf})
	ctx := context.Background()

	LogAuthEvent(ctx, log, "login_member", "a@b.com", false, nil)
	LogSecurityEvent(ctx, log, "session_corrupted", "HIGH", nil)
	LogPerformance(ctx, log, "probe_admin", 1500*time.Millisecond, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "warning", lines[0]["level"])
	assert.Equal(t, "auth", lines[0]["event_type"])
	assert.Equal(t, false, lines[0]["success"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "session_corrupted", lines[1]["security_event"])
	assert.Equal(t, float64(1500), lines[2]["duration_ms"])
}

func TestCorrelationID_Missing(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
}
