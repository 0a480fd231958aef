package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5.6", truncateString("5.6", 50))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
	assert.Equal(t, "...", truncateString("abcdefghij", 2))
	assert.Equal(t, "Мур...", truncateString("Муркаааа", 6))
}

func TestMiddlewareLogsUpdate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, slog.LevelInfo, true))

	called := false
	handler := Middleware(log)(func(_ context.Context, _ *bot.Bot, _ *models.Update) { called = true })
	handler(context.Background(), nil, &models.Update{
		ID: 9,
		Message: &models.Message{
			ID:   1,
			Chat: models.Chat{ID: 100},
			From: &models.User{ID: 7},
			Text: "5,6",
		},
	})
	require.True(t, called)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "Processing update", first["msg"])
	assert.Equal(t, "message", first["update_type"])
	assert.EqualValues(t, 100, first["chat_id"])
	assert.Equal(t, "5,6", first["text_preview"])
}

func TestMiddlewareHandlesInaccessibleCallbackMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, slog.LevelInfo, false))

	handler := Middleware(log)(func(context.Context, *bot.Bot, *models.Update) {})
	assert.NotPanics(t, func() {
		handler(context.Background(), nil, &models.Update{
			CallbackQuery: &models.CallbackQuery{ID: "q", From: models.User{ID: 7}, Data: "menu:main"},
		})
	})
	assert.Contains(t, buf.String(), "callback_query")
}

func TestGocronLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewGocronLogger(slog.New(newHandler(&buf, slog.LevelDebug, false)))
	l.Debug("debug line", "job", "a")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	out := buf.String()
	for _, want := range []string{"debug line", "info line", "warn line", "error line", "component=gocron"} {
		assert.Contains(t, out, want)
	}
}
