package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/brutlag/internal/config"
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

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel).With("component", "detector")

	logger.Info("computed bounds", "points", 24, "error", errors.New("boom"), "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "computed bounds", lines[0]["message"])
	assert.Equal(t, "detector", lines[0]["component"])
	assert.Equal(t, float64(24), lines[0]["points"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.NotContains(t, lines[0], "dangling")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")

	assert.Same(t, logger, FromContext(ctx))
	assert.Same(t, Global(), FromContext(context.Background()))
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	InfoCtx(ctx, "hello")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request_id"])
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "brutlag.log")
	logger, err := NewFromConfig(config.LoggingConfig{Level: "warn", Format: "json", OutputPath: path})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.FileExists(t, path)

	logger, err = NewFromConfig(config.LoggingConfig{Level: "bogus", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestFiberMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger, DefaultMiddlewareConfig()))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/v1/reports", func(c *fiber.Ctx) error {
		assert.NotEmpty(t, RequestIDFromContext(c.UserContext()))
		return c.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Empty(t, buf.String(), "skipped paths should not be logged")

	req := httptest.NewRequest("GET", "/v1/reports", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get(RequestIDHeader))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "fixed-id", lines[0]["request_id"])
	assert.Equal(t, float64(404), lines[0]["status"])
}
