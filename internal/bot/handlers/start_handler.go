package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/database"
)

// NewStartHandler returns a handler for the /start command and the "back to main
// menu" button: the main menu of the chat's subject, or a register button.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler processes the /start command using injected dependencies.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	req, ok := newRequest(update)
	if !ok {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling main menu", "chat_id", req.chatID, "user_id", req.userID, "callback", req.isCallback())

	msgs := h.deps.Config.Messages
	var text string
	keyboard := registerKeyboard(msgs.Buttons)

	subject, err := h.deps.Store.GetSubjectByChat(ctx, req.chatID)
	switch {
	case err == nil:
		text = fmt.Sprintf(msgs.MainMenu, subject.Name)
		keyboard = mainMenuKeyboard(msgs.Buttons)
	case errors.Is(err, database.ErrSubjectNotFound):
		text = msgs.Welcome
		if info := h.deps.Config.Telegram.BotInfo; info != nil && info.Username != "" {
			text = strings.ReplaceAll(text, "@botname", "@"+info.Username)
		}
	default:
		log.ErrorContext(ctx, "Failed to load subject", "error", err, "chat_id", req.chatID)
		sendError(ctx, h.deps, req)
		return
	}

	if req.isCallback() {
		err = h.deps.Messenger.EditMenu(ctx, req.chatID, req.messageID, text, keyboard)
		acknowledge(ctx, h.deps, req)
	} else {
		err = h.deps.Messenger.SendMenu(ctx, req.chatID, text, keyboard)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to send main menu", "error", err, "chat_id", req.chatID)
	}
}

// acknowledge answers a callback query without a notification.
func acknowledge(ctx context.Context, deps HandlerDeps, req request) {
	if !req.isCallback() {
		return
	}
	if err := deps.Messenger.AnswerCallback(ctx, req.callbackID, "", false); err != nil {
		deps.Logger.WarnContext(ctx, "Failed to answer callback", "error", err, "callback_query_id", req.callbackID)
	}
}

// sendError reports a failure to the user, as an alert for callbacks.
func sendError(ctx context.Context, deps HandlerDeps, req request) {
	text := deps.Config.Messages.GeneralError
	var err error
	if req.isCallback() {
		err = deps.Messenger.AnswerCallback(ctx, req.callbackID, text, true)
	} else {
		err = deps.Messenger.SendText(ctx, req.chatID, text)
	}
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send error message", "error", err, "chat_id", req.chatID)
	}
}
