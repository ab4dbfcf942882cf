package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/learninghub/internal/logger"
)

func TestContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "json")

	ctx := logger.Ctx(context.Background(), slog.String("request_id", "abc"))
	ctx = logger.Ctx(ctx, slog.Int("batch_size", 3))
	l.InfoContext(ctx, "processed batch", "added", 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "processed batch", got["msg"])
	assert.Equal(t, "abc", got["request_id"])
	assert.EqualValues(t, 3, got["batch_size"])
	assert.EqualValues(t, 2, got["added"])
}

func TestCtx_SiblingsDontLeak(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "text")

	parent := logger.Ctx(context.Background(), slog.String("a", "1"))
	first := logger.Ctx(parent, slog.String("b", "2"))
	second := logger.Ctx(parent, slog.String("c", "3"))

	l.InfoContext(second, "second")
	assert.NotContains(t, buf.String(), "b=2")
	assert.Contains(t, buf.String(), "c=3")

	buf.Reset()
	l.With("component", "x").InfoContext(first, "first")
	line := buf.String()
	assert.True(t, strings.Contains(line, "a=1") && strings.Contains(line, "b=2"), line)
	assert.Contains(t, line, "component=x")
}
