package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/reply"
)

// stepFunc answers one step of a user flow. It runs under the chat lock.
type stepFunc func(ctx context.Context, deps HandlerDeps, req request, st conversation.State) error

var flowSteps = map[conversation.Step]stepFunc{
	conversation.StepRegisterName:    registration,
	conversation.StepRegisterMorning: registration,
	conversation.StepRegisterPeak:    registration,
	conversation.StepRegisterEvening: registration,
	conversation.StepEditName:        settingsEdit,
	conversation.StepEditMorning:     settingsEdit,
	conversation.StepEditPeak:        settingsEdit,
	conversation.StepEditEvening:     settingsEdit,
}

// NewTextHandler returns the default handler for plain messages. The cancel keyword
// is checked first, then the user's registration or settings flow, and finally the
// reply router for measurement values.
func NewTextHandler(deps HandlerDeps) bot.HandlerFunc {
	return textHandler{deps}.Handle
}

type textHandler struct {
	deps HandlerDeps
}

func (h textHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" || strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	req, ok := newRequest(update)
	if !ok {
		return
	}
	log := h.deps.Logger.With("handler", "text", "chat_id", req.chatID, "user_id", req.userID)

	if h.deps.Router.IsCancel(req.text) {
		if err := h.deps.Router.Cancel(ctx, req.chatID, req.userID); err != nil {
			log.ErrorContext(ctx, "Failed to confirm cancel", "error", err)
		}
		return
	}

	if handled := h.flowStep(ctx, req); handled {
		return
	}

	outcome, err := h.deps.Router.HandleText(ctx, reply.Inbound{ChatID: req.chatID, UserID: req.userID, Text: req.text})
	if err != nil {
		log.ErrorContext(ctx, "Failed to handle reply", "error", err, "outcome", outcome)
		return
	}
	log.DebugContext(ctx, "Reply routed", "outcome", outcome)
}

func (h textHandler) flowStep(ctx context.Context, req request) bool {
	unlock := h.deps.States.Lock(req.chatID)
	defer unlock()

	st, ok := h.deps.States.Get(conversation.UserKey(req.chatID, req.userID))
	if !ok {
		return false
	}
	step, ok := flowSteps[st.Step]
	if !ok {
		return false
	}
	if err := step(ctx, h.deps, req, st); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Flow step failed", "handler", "text", "step", st.Step, "error", err, "chat_id", req.chatID)
	}
	return true
}
