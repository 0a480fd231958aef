package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
)

// NewMeasureHandler returns the /measure handler, which offers the tag keyboard.
// Requires RequireSubject.
func NewMeasureHandler(deps HandlerDeps) bot.HandlerFunc {
	return measureHandler{deps}.Start
}

// NewMeasureTagHandler handles the tag and cancel buttons of a manual entry.
func NewMeasureTagHandler(deps HandlerDeps) bot.HandlerFunc {
	return measureHandler{deps}.Tag
}

type measureHandler struct {
	deps HandlerDeps
}

func (h measureHandler) Start(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "measure")

	req, ok := newRequest(update)
	if !ok {
		log.WarnContext(ctx, "Measure handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	// A fresh manual entry replaces whatever flow the user had open.
	unlock := h.deps.States.Lock(req.chatID)
	h.deps.States.Clear(conversation.UserKey(req.chatID, req.userID))
	unlock()

	log.InfoContext(ctx, "Handling /measure command", "chat_id", req.chatID, "user_id", req.userID)
	if err := h.deps.Messenger.SendMenu(ctx, req.chatID, h.deps.Config.Messages.ChooseTag, measureTagsKeyboard()); err != nil {
		log.ErrorContext(ctx, "Failed to send tag keyboard", "error", err, "chat_id", req.chatID)
	}
}

func (h measureHandler) Tag(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "measure_tag")

	req, ok := newRequest(update)
	if !ok {
		return
	}

	if req.text == cbMeasureCancel {
		acknowledge(ctx, h.deps, req)
		if err := h.deps.Router.Cancel(ctx, req.chatID, req.userID); err != nil {
			log.ErrorContext(ctx, "Failed to confirm cancel", "error", err, "chat_id", req.chatID)
		}
		return
	}

	tag, err := diary.ParseTag(strings.TrimPrefix(req.text, cbMeasurePrefix))
	if err != nil {
		log.WarnContext(ctx, "Unknown measurement tag", "data", req.text)
		acknowledge(ctx, h.deps, req)
		return
	}
	msgs := h.deps.Config.Messages

	subject, err := h.deps.Store.GetSubjectByChat(ctx, req.chatID)
	if err != nil {
		if !errors.Is(err, database.ErrSubjectNotFound) {
			log.ErrorContext(ctx, "Failed to load subject", "error", err, "chat_id", req.chatID)
			sendError(ctx, h.deps, req)
			return
		}
		if err := h.deps.Messenger.AnswerCallback(ctx, req.callbackID, msgs.RegisterFirst, true); err != nil {
			log.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
		return
	}

	unlock := h.deps.States.Lock(req.chatID)
	h.deps.States.Set(conversation.UserKey(req.chatID, req.userID), conversation.AwaitValue(tag, subject.Name))
	unlock()

	acknowledge(ctx, h.deps, req)
	prompt := fmt.Sprintf(msgs.AskValueForTag, tag.Label())
	if err := h.deps.Messenger.SendMenu(ctx, req.chatID, prompt, inlineCancelKeyboard(msgs.CancelKeyword)); err != nil {
		log.ErrorContext(ctx, "Failed to send value prompt", "error", err, "chat_id", req.chatID)
	}
}
