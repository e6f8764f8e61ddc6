package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasanthmj/composer/pkg/logger"
)

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAttr(slog.String("svc", "composer")),
	)
	log.Info("hello", logger.Action("send"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "composer", entry["svc"])
	assert.Equal(t, "send", entry["action"])
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))
	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := logger.ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := logger.ParseLevel("loud")
	assert.Error(t, err)
}

func TestErrorAttrs(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))

	group := logger.Errors(nil, err)
	require.Equal(t, "errors", group.Key)
	g := group.Value.Group()
	require.Len(t, g, 1)
	assert.Equal(t, "1", g[0].Key)
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))

	assert.True(t, logger.Recipient("").Equal(slog.Attr{}))
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, logger.OrDiscard(nil))
	l := logger.New()
	assert.Same(t, l, logger.OrDiscard(l))
}
