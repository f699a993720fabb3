package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"loud", LevelInfo, true},
		{"", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromStrings(t *testing.T) {
	cfg, err := FromStrings("", "")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)

	cfg, err = FromStrings("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)

	_, err = FromStrings("info", "xml")
	assert.Error(t, err)
}

func TestJSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	l.WithComponent("engine").Info("frame", "index", 3)
	l.Debug("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "frame", rec["msg"])
	assert.Equal(t, "engine", rec["component"])
	assert.Equal(t, float64(3), rec["index"])
}

func TestSetLevelIsShared(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelWarn, Output: &buf})
	child := l.WithComponent("config")

	child.Info("dropped")
	assert.Empty(t, buf.String())

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, child.Level())
	child.Debug("kept")
	assert.Contains(t, buf.String(), "msg=kept")
	assert.Contains(t, buf.String(), "component=config")
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(New(&Config{Level: LevelInfo, Output: &buf, Component: "test"}))
	Info("hello", "k", "v")
	Debug("ignored")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "component=test")
	assert.NotContains(t, out, "ignored")
}
