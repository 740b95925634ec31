package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "WARN", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.True(t, errors.Is(err, ErrInvalidLevel))
}

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).Named("exec")

	l.Debug("capture started", "step", 1)
	l.Info("evaluation finished", "durationMs", int64(12), "success", true)
	l.Warn("setting interpreter options failed", "error", "locked")
	l.Error("boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "exec", entries[1].LoggerName)
	assert.Equal(t, "evaluation finished", entries[1].Message)
	assert.Equal(t, int64(12), entries[1].ContextMap()["durationMs"])
	assert.Equal(t, true, entries[1].ContextMap()["success"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core)).With("session", "s1")

	l.Info("run")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "s1", logs.All()[0].ContextMap()["session"])
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notebook.log")
	l, err := New(Config{Level: "info", Format: FormatJSON, OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("visible", "k", "v")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.False(t, strings.Contains(out, "hidden"))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", 1)
	assert.NotNil(t, l.Zap())
	assert.NoError(t, l.Sync())
}
