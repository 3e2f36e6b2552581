package logging

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_OnlyFirstCallTakesEffect(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		once = sync.Once{}
		active = Options{}
	})

	var first, second bytes.Buffer
	ok, err := Init(Options{Level: "debug", Format: "json", Writer: &first})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Init(Options{Level: "error", Writer: &second})
	require.NoError(t, err)
	assert.False(t, ok)

	slog.Debug("unit opened", "handle", "0.1")
	assert.Contains(t, first.String(), `"msg":"unit opened"`)
	assert.Contains(t, first.String(), `"handle":"0.1"`)
	assert.Empty(t, second.String())
	assert.Equal(t, "json", Active().Format)
}

func TestInit_RejectsBadOptions(t *testing.T) {
	_, err := Init(Options{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "loud"`)

	_, err = Init(Options{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log format "xml"`)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"WARN":  slog.LevelWarn,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestNewHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))

	slog.New(h).Warn("fact rejected", "op", "record_use")
	assert.Contains(t, buf.String(), "msg=\"fact rejected\"")
	assert.Contains(t, buf.String(), "op=record_use")
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
