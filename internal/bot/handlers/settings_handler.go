package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
)

// NewSettingsMenuHandler shows the subject settings. Requires RequireSubject.
func NewSettingsMenuHandler(deps HandlerDeps) bot.HandlerFunc {
	return settingsHandler{deps}.Menu
}

// NewSettingsHandler handles the settings buttons: edits open a one-step flow, the
// toggle flips the active flag at once. Requires RequireSubject.
func NewSettingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return settingsHandler{deps}.Handle
}

type settingsHandler struct {
	deps HandlerDeps
}

var editSteps = map[string]conversation.Step{
	cbSettingsName:    conversation.StepEditName,
	cbSettingsMorning: conversation.StepEditMorning,
	cbSettingsPeak:    conversation.StepEditPeak,
	cbSettingsEvening: conversation.StepEditEvening,
}

func (h settingsHandler) Menu(ctx context.Context, _ *bot.Bot, update *models.Update) {
	req, ok := newRequest(update)
	if !ok {
		return
	}
	if err := sendSettingsMenu(ctx, h.deps, req, subjectFrom(ctx)); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send settings menu", "handler", "settings", "error", err, "chat_id", req.chatID)
	}
	acknowledge(ctx, h.deps, req)
}

func (h settingsHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "settings")

	req, ok := newRequest(update)
	if !ok {
		log.WarnContext(ctx, "Settings handler received update without chat or sender", "update_id", update.ID)
		return
	}
	subject := subjectFrom(ctx)
	msgs := h.deps.Config.Messages

	if req.text == cbSettingsToggle {
		active := !subject.IsActive
		if err := h.deps.Store.SetSubjectActive(ctx, req.chatID, subject.Name, active); err != nil {
			log.ErrorContext(ctx, "Failed to toggle subject", "error", err, "chat_id", req.chatID)
			sendError(ctx, h.deps, req)
			return
		}
		subject.IsActive = active
		log.InfoContext(ctx, "Subject active flag changed", "chat_id", req.chatID, "active", active)

		notice := msgs.Deactivated
		if active {
			notice = msgs.Activated
		}
		if err := h.deps.Messenger.AnswerCallback(ctx, req.callbackID, notice, false); err != nil {
			log.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
		if err := sendSettingsMenu(ctx, h.deps, req, subject); err != nil {
			log.ErrorContext(ctx, "Failed to refresh settings menu", "error", err)
		}
		return
	}

	step, ok := editSteps[req.text]
	if !ok {
		log.WarnContext(ctx, "Unknown settings action", "data", req.text)
		acknowledge(ctx, h.deps, req)
		return
	}

	unlock := h.deps.States.Lock(req.chatID)
	h.deps.States.Set(conversation.UserKey(req.chatID, req.userID), conversation.State{Step: step, SubjectName: subject.Name})
	unlock()

	acknowledge(ctx, h.deps, req)
	if err := h.deps.Messenger.SendPrompt(ctx, req.chatID, editPrompt(h.deps, step)); err != nil {
		log.ErrorContext(ctx, "Failed to send edit prompt", "error", err)
	}
}

func editPrompt(deps HandlerDeps, step conversation.Step) string {
	msgs := deps.Config.Messages
	switch step {
	case conversation.StepEditName:
		return msgs.EditName
	case conversation.StepEditMorning:
		return msgs.EditMorning
	case conversation.StepEditPeak:
		return msgs.EditPeak
	default:
		return msgs.EditEvening
	}
}

func sendSettingsMenu(ctx context.Context, deps HandlerDeps, req request, subject *database.Subject) error {
	msgs := deps.Config.Messages
	active := msgs.No
	if subject.IsActive {
		active = msgs.Yes
	}
	text := fmt.Sprintf(msgs.SettingsMenu, subject.Name, subject.MorningTime, subject.PeakHours, subject.EveningTime, active)
	if req.isCallback() {
		return deps.Messenger.EditMenu(ctx, req.chatID, req.messageID, text, settingsKeyboard(msgs.Buttons))
	}
	return deps.Messenger.SendMenu(ctx, req.chatID, text, settingsKeyboard(msgs.Buttons))
}

// settingsEdit applies the answer of an edit step. The routine is re-read so edits
// made meanwhile are kept; invalid answers repeat the step.
func settingsEdit(ctx context.Context, deps HandlerDeps, req request, st conversation.State) error {
	msgs := deps.Config.Messages
	key := conversation.UserKey(req.chatID, req.userID)

	subject, err := deps.Store.GetSubject(ctx, req.chatID, st.SubjectName)
	if err != nil {
		deps.States.Clear(key)
		if sendErr := deps.Messenger.SendDone(ctx, req.chatID, msgs.SubjectMissing); sendErr != nil {
			deps.Logger.ErrorContext(ctx, "Failed to send message", "error", sendErr)
		}
		return fmt.Errorf("failed to load subject for edit: %w", err)
	}
	routine := subject.Routine()

	var done string
	switch st.Step {
	case conversation.StepEditName:
		name, err := diary.ParseName(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidName)
		}
		if err := deps.Store.RenameSubject(ctx, req.chatID, subject.Name, name); err != nil {
			return editFailed(ctx, deps, req, key, err)
		}
		subject.Name = name
		done = msgs.NameUpdated

	case conversation.StepEditMorning:
		clock, err := diary.ParseClock(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidMorning)
		}
		routine.MorningTime = clock
		done = msgs.MorningUpdated

	case conversation.StepEditEvening:
		clock, err := diary.ParseClock(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidEvening)
		}
		routine.EveningTime = clock
		done = msgs.EveningUpdated

	case conversation.StepEditPeak:
		hours, err := diary.ParsePeak(req.text)
		if err != nil {
			return deps.Messenger.SendPrompt(ctx, req.chatID, msgs.InvalidPeak)
		}
		routine.PeakHours = hours
		done = msgs.PeakUpdated

	default:
		return fmt.Errorf("unexpected settings step %q", st.Step)
	}

	if st.Step != conversation.StepEditName {
		if err := deps.Store.UpdateSubjectRoutine(ctx, req.chatID, subject.Name, routine); err != nil {
			return editFailed(ctx, deps, req, key, err)
		}
		subject.MorningTime, subject.PeakHours, subject.EveningTime = routine.MorningTime, routine.PeakHours, routine.EveningTime
	}

	deps.States.Clear(key)
	deps.Logger.InfoContext(ctx, "Subject settings updated", "chat_id", req.chatID, "step", st.Step)
	if err := deps.Messenger.SendDone(ctx, req.chatID, done); err != nil {
		return err
	}
	return sendSettingsMenu(ctx, deps, req, subject)
}

func editFailed(ctx context.Context, deps HandlerDeps, req request, key conversation.Key, err error) error {
	deps.States.Clear(key)
	if sendErr := deps.Messenger.SendDone(ctx, req.chatID, deps.Config.Messages.GeneralError); sendErr != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send error message", "error", sendErr)
	}
	return fmt.Errorf("failed to update subject: %w", err)
}
