// Package logger provides structured logging for the glucose diary bot.
// It uses Go's slog package with configurable levels and formats, and adapts
// slog to the Telegram middleware chain and the gocron scheduler.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := slog.New(newHandler(os.Stdout, ParseLevel(levelStr), jsonOutput))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, level slog.Level, jsonOutput bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	if jsonOutput {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Middleware creates a logging middleware for the Telegram bot.
// It logs information about incoming updates and messages for debugging purposes.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With(
				"update_id", update.ID,
				"start_time", startTime.Format(time.RFC3339),
			)

			var updateType string
			var chatID int64
			var userID int64
			var text string

			if update.Message != nil {
				updateType = "message"
				chatID = update.Message.Chat.ID
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
				text = update.Message.Text
				logEntry = logEntry.With(
					"message_id", update.Message.ID,
					"chat_id", chatID,
					"user_id", userID,
					"text_preview", truncateString(text, 50),
				)
			} else if update.CallbackQuery != nil {
				updateType = "callback_query"
				userID = update.CallbackQuery.From.ID
				text = update.CallbackQuery.Data
				logEntry = logEntry.With(
					"callback_query_id", update.CallbackQuery.ID,
					"user_id", userID,
					"data", text,
				)

				switch msg := update.CallbackQuery.Message; {
				case msg.Message != nil:
					chatID = msg.Message.Chat.ID
					logEntry = logEntry.With("chat_id", chatID, "message_accessible", true)
				case msg.InaccessibleMessage != nil:
					chatID = msg.InaccessibleMessage.Chat.ID
					logEntry = logEntry.With("chat_id", chatID, "message_accessible", false)
				}
			} else {
				updateType = "other"
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.InfoContext(ctx, "Processing update")

			next(ctx, b, update)

			duration := time.Since(startTime)
			logEntry.InfoContext(ctx, "Finished processing update", "duration", duration)
		}
	}
}

// truncateString cuts s to maxLen runes, so measurement previews never split a
// multi-byte character.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
