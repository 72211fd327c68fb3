package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"followscope/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"console info", &config.LoggingConfig{Level: "info", Format: "console"}, false},
		{"json debug", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "fs.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
		err   bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"chatty", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLogLevel(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.err, err != nil)
		})
	}
}

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

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.WithField("phase", "collecting-ids").
		WithFields(map[string]interface{}{"page": 2}).
		InfoWithFields("page fetched", map[string]interface{}{
			"ids":   5000,
			"delay": 3 * time.Second,
		})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "page fetched", lines[0]["message"])
	assert.Equal(t, "followscope", lines[0]["app"])
	assert.Equal(t, "collecting-ids", lines[0]["phase"])
	assert.EqualValues(t, 2, lines[0]["page"])
	assert.EqualValues(t, 5000, lines[0]["ids"])
	assert.Equal(t, "info", lines[0]["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestWithErrorField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)

	l.WithError(errors.New("boom")).Error("failed")
	assert.Same(t, l, l.WithError(nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestChildLoggersDoNotShareFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, zerolog.InfoLevel)

	a := base.WithField("component", "collector")
	b := base.WithField("component", "hydrator")
	a.Info("a")
	b.Info("b")
	base.Info("base")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "collector", lines[0]["component"])
	assert.Equal(t, "hydrator", lines[1]["component"])
	assert.NotContains(t, lines[2], "component")
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "/1.1/friends/ids.json", 200, 10*time.Millisecond)
	LogRequest(tl, "GET", "/1.1/friends/ids.json", 429, 10*time.Millisecond)
	LogRequest(tl, "GET", "/1.1/friends/ids.json", 503, 10*time.Millisecond)
	LogRateLimit(tl, "/1.1/followers/ids.json", time.Minute, 1)
	LogScanProgress(tl, "scanning-users", 50, 200)
	LogUnfollow(tl, "42", "someone", true, nil)
	LogUnfollow(tl, "43", "other", false, errors.New("403"))

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.True(t, tl.HasMessage("request rate limited"))
	assert.True(t, tl.HasMessage("request server error"))
	assert.True(t, tl.HasMessage("rate limit reached, backing off"))
	assert.True(t, tl.HasMessage("unfollowed"))

	var progress LogMessage
	for _, m := range tl.GetMessages() {
		if m.Message == "scan progress" {
			progress = m
		}
	}
	assert.Equal(t, "25.0%", progress.Fields["percentage"])

	failed := tl.GetMessagesByLevel("WARN")
	last := failed[len(failed)-1]
	assert.Equal(t, "unfollow failed", last.Message)
	assert.EqualError(t, last.Error, "403")
	assert.Equal(t, "other", last.Fields["handle"])
}

func TestTestLoggerChildrenShareBuffer(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("a", 1).WithFields(map[string]interface{}{"b": 2})
	child.Info("hello")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, msgs[0].Fields)

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("k", "v").WithError(errors.New("x")).Error("ignored")
	assert.Nil(t, l.GetZerolog())
}
