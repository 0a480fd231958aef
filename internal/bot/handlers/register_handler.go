package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
)

// NewRegisterHandler returns the handler of the register button. It opens the
// registration flow unless the chat already has a subject.
func NewRegisterHandler(deps HandlerDeps) bot.HandlerFunc {
	return registerHandler{deps}.Handle
}

type registerHandler struct {
	deps HandlerDeps
}

func (h registerHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "register")

	req, ok := newRequest(update)
	if !ok {
		log.WarnContext(ctx, "Register handler received update without chat or sender", "update_id", update.ID)
		return
	}
	msgs := h.deps.Config.Messages

	_, err := h.deps.Store.GetSubjectByChat(ctx, req.chatID)
	switch {
	case err == nil:
		if err := h.deps.Messenger.AnswerCallback(ctx, req.callbackID, msgs.AlreadyRegistered, true); err != nil {
			log.ErrorContext(ctx, "Failed to answer callback", "error", err)
		}
		return
	case !errors.Is(err, database.ErrSubjectNotFound):
		log.ErrorContext(ctx, "Failed to load subject", "error", err, "chat_id", req.chatID)
		sendError(ctx, h.deps, req)
		return
	}

	unlock := h.deps.States.Lock(req.chatID)
	h.deps.States.Set(conversation.UserKey(req.chatID, req.userID), conversation.State{Step: conversation.StepRegisterName})
	unlock()

	log.InfoContext(ctx, "Registration started", "chat_id", req.chatID, "user_id", req.userID)
	acknowledge(ctx, h.deps, req)
	if err := h.deps.Messenger.SendPrompt(ctx, req.chatID, msgs.AskName); err != nil {
		log.ErrorContext(ctx, "Failed to send name prompt", "error", err)
	}
}

// registration walks name, morning time, peak hours and evening time, creating the
// subject after the last answer. Invalid answers repeat the step.
func registration(ctx context.Context, deps HandlerDeps, req request, st conversation.State) error {
	msgs := deps.Config.Messages
	key := conversation.UserKey(req.chatID, req.userID)
	next := func(step conversation.Step, prompt string) error {
		st.Step = step
		deps.States.Set(key, st)
		return deps.Messenger.SendPrompt(ctx, req.chatID, prompt)
	}

	switch st.Step {
	case conversation.StepRegisterName:
		name, err := diary.ParseName(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidName)
		}
		st.Draft.Name = name
		return next(conversation.StepRegisterMorning, msgs.AskMorning)

	case conversation.StepRegisterMorning:
		clock, err := diary.ParseClock(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidMorning)
		}
		st.Draft.MorningTime = clock
		return next(conversation.StepRegisterPeak, msgs.AskPeak)

	case conversation.StepRegisterPeak:
		hours, err := diary.ParsePeak(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidPeak)
		}
		st.Draft.PeakHours = hours
		return next(conversation.StepRegisterEvening, msgs.AskEvening)

	case conversation.StepRegisterEvening:
		clock, err := diary.ParseClock(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidEvening)
		}
		st.Draft.EveningTime = clock
		deps.States.Clear(key)

		subject := &database.Subject{
			ChatID:      req.chatID,
			UserID:      req.userID,
			Name:        st.Draft.Name,
			MorningTime: st.Draft.MorningTime,
			PeakHours:   st.Draft.PeakHours,
			EveningTime: st.Draft.EveningTime,
		}
		if err := deps.Store.CreateSubject(ctx, subject); err != nil {
			if errors.Is(err, database.ErrSubjectExists) {
				return deps.Messenger.SendDone(ctx, req.chatID, msgs.AlreadyRegistered)
			}
			if sendErr := deps.Messenger.SendDone(ctx, req.chatID, msgs.GeneralError); sendErr != nil {
				deps.Logger.ErrorContext(ctx, "Failed to send error message", "error", sendErr)
			}
			return fmt.Errorf("failed to create subject: %w", err)
		}

		deps.Logger.InfoContext(ctx, "Subject registered", "chat_id", req.chatID, "name", subject.Name)
		if err := deps.Messenger.SendDone(ctx, req.chatID, msgs.Registered); err != nil {
			return err
		}
		return deps.Messenger.SendMenu(ctx, req.chatID, fmt.Sprintf(msgs.MainMenu, subject.Name), mainMenuKeyboard(msgs.Buttons))

	default:
		return fmt.Errorf("unexpected registration step %q", st.Step)
	}
}
