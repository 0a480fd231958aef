package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/glucodiary/internal/charts"
	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/pending"
	"github.com/edgard/glucodiary/internal/reply"
	"github.com/edgard/glucodiary/internal/trend"
)

// Messenger is the outbound side of the handlers. *telegram.Messenger implements it.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPrompt(ctx context.Context, chatID int64, text string) error
	SendDone(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, keyboard [][]models.InlineKeyboardButton) error
	EditMenu(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]models.InlineKeyboardButton) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	SendImage(ctx context.Context, chatID int64, filename string, png []byte) error
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	States    conversation.Store
	Pending   pending.Table
	Router    *reply.Router
	Analyzer  *trend.Analyzer
	Renderer  *charts.Renderer
	Messenger Messenger
	Clock     clockwork.Clock
}
