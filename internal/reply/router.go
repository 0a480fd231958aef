// Package reply routes free-text chat messages to the checkpoint they answer, records
// the measurement and sends the follow-up alerts.
package reply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
	"github.com/edgard/glucodiary/internal/pending"
	"github.com/edgard/glucodiary/internal/trend"
)

// Sender delivers router replies. SendDone also dismisses the cancel keyboard.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDone(ctx context.Context, chatID int64, text string) error
}

// Store is the part of the measurement store the router writes to.
type Store interface {
	GetSubject(ctx context.Context, chatID int64, name string) (*database.Subject, error)
	AddMeasurement(ctx context.Context, m *database.Measurement) error
}

// Inbound is a text message as received from the chat.
type Inbound struct {
	ChatID int64
	UserID int64
	Text   string
}

// Outcome is what the router did with a message.
type Outcome int

const (
	// OutcomeIgnored means nothing was waiting for a value in this chat.
	OutcomeIgnored Outcome = iota
	// OutcomeInvalid means the text was not a valid measurement; the prompt stays open.
	OutcomeInvalid
	// OutcomeRecorded means a measurement was stored.
	OutcomeRecorded
	// OutcomeSubjectMissing means the prompt pointed at a subject that no longer exists.
	OutcomeSubjectMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSubjectMissing:
		return "subject_missing"
	default:
		return "unknown"
	}
}

// Deps are the collaborators of a Router.
type Deps struct {
	Logger   *slog.Logger
	Store    Store
	Analyzer *trend.Analyzer
	Sender   Sender
	States   conversation.Store
	Pending  pending.Table
	Clock    clockwork.Clock
	Alerts   config.AlertsConfig
	Messages config.MessagesConfig
}

// Router correlates replies with open prompts.
type Router struct {
	deps Deps
	log  *slog.Logger
}

// NewRouter creates a Router. A nil Clock uses the wall clock.
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Router{deps: deps, log: deps.Logger.With("component", "reply_router")}
}

// source is where the answered prompt came from; it decides what a success clears.
type source int

const (
	fromUser source = iota
	fromReminder
	fromPending
)

func (s source) String() string {
	return [...]string{"user", "reminder", "pending"}[s]
}

// IsCancel reports whether text is the cancel keyword, ignoring case and spaces.
func (r *Router) IsCancel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), r.deps.Messages.CancelKeyword)
}

// HandleText routes one message. The user's own value prompt wins over a
// reminder-opened one, which wins over the pending-correlation table.
func (r *Router) HandleText(ctx context.Context, in Inbound) (Outcome, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" || strings.HasPrefix(text, "/") || r.IsCancel(text) {
		return OutcomeIgnored, nil
	}

	unlock := r.deps.States.Lock(in.ChatID)
	defer unlock()

	if st, ok := r.deps.States.Get(conversation.UserKey(in.ChatID, in.UserID)); ok && st.AwaitsValue() {
		return r.record(ctx, in, text, st, fromUser)
	}
	if st, ok := r.deps.States.Get(conversation.ReminderKey(in.ChatID)); ok && st.AwaitsValue() {
		return r.record(ctx, in, text, st, fromReminder)
	}
	if entry, ok := r.deps.Pending.Get(in.ChatID); ok {
		return r.record(ctx, in, text, conversation.AwaitValue(entry.Tag, entry.SubjectName), fromPending)
	}
	return OutcomeIgnored, nil
}

// Cancel drops the user's flow, the reminder prompt and the pending entry of the chat
// in one step, then confirms.
func (r *Router) Cancel(ctx context.Context, chatID, userID int64) error {
	unlock := r.deps.States.Lock(chatID)
	r.deps.States.Clear(conversation.UserKey(chatID, userID))
	r.deps.States.Clear(conversation.ReminderKey(chatID))
	r.deps.Pending.Clear(chatID)
	unlock()

	r.log.InfoContext(ctx, "Pending state cancelled", "chat_id", chatID, "user_id", userID)
	return r.deps.Sender.SendDone(ctx, chatID, r.deps.Messages.Cancelled)
}

func (r *Router) record(ctx context.Context, in Inbound, text string, st conversation.State, src source) (Outcome, error) {
	log := r.log.With("chat_id", in.ChatID, "user_id", in.UserID, "tag", st.Tag, "source", src)
	msgs, alerts := r.deps.Messages, r.deps.Alerts

	value, err := diary.ParseMeasure(text)
	if err != nil {
		log.DebugContext(ctx, "Rejected measurement input", "error", err)
		return OutcomeInvalid, r.deps.Sender.SendText(ctx, in.ChatID, msgs.InvalidMeasure)
	}

	subject, err := r.deps.Store.GetSubject(ctx, in.ChatID, st.SubjectName)
	if errors.Is(err, database.ErrSubjectNotFound) {
		log.WarnContext(ctx, "Prompt refers to a missing subject", "name", st.SubjectName)
		r.clear(in, src)
		return OutcomeSubjectMissing, r.deps.Sender.SendDone(ctx, in.ChatID, msgs.SubjectMissing)
	}
	if err != nil {
		return OutcomeIgnored, errors.Join(
			fmt.Errorf("failed to load subject: %w", err),
			r.deps.Sender.SendText(ctx, in.ChatID, msgs.GeneralError),
		)
	}

	tag := st.Tag
	if tag == "" {
		tag = diary.TagOther
	}
	now := r.deps.Clock.Now()
	m := &database.Measurement{
		ChatID: in.ChatID,
		UserID: in.UserID,
		Name:   subject.Name,
		Date:   now.Format(diary.DateLayout),
		Time:   now.Format(diary.ClockLayout),
		Amount: value,
		Tag:    tag,
	}
	if err := r.deps.Store.AddMeasurement(ctx, m); err != nil {
		return OutcomeIgnored, errors.Join(
			fmt.Errorf("failed to record measurement: %w", err),
			r.deps.Sender.SendText(ctx, in.ChatID, msgs.GeneralError),
		)
	}
	r.clear(in, src)
	log.InfoContext(ctx, "Measurement recorded", "name", subject.Name, "amount", value, "id", m.ID)

	var errs []error
	send := func(text string) {
		if err := r.deps.Sender.SendText(ctx, in.ChatID, text); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.deps.Sender.SendDone(ctx, in.ChatID, msgs.Recorded); err != nil {
		errs = append(errs, err)
	}
	if value < alerts.LowValue {
		send(msgs.LowValueAlert)
	}
	avg, ok, err := r.deps.Analyzer.AverageGlucoseLastDays(ctx, in.ChatID, subject.Name, alerts.ProgressWindowDays, now)
	if err != nil {
		errs = append(errs, err)
	} else if ok && avg < alerts.ProgressAverage {
		send(msgs.WeeklyProgress)
	}
	if tag.HasInsulinTime() && value > alerts.InsulinReminderAbove {
		send(fmt.Sprintf(msgs.InsulinReminder, subject.CheckpointClock(tag)))
	}
	return OutcomeRecorded, errors.Join(errs...)
}

// clear drops the state a finished prompt came from. Callers hold the chat lock.
func (r *Router) clear(in Inbound, src source) {
	switch src {
	case fromUser:
		r.deps.States.Clear(conversation.UserKey(in.ChatID, in.UserID))
	case fromReminder:
		r.deps.States.Clear(conversation.ReminderKey(in.ChatID))
		r.deps.Pending.Clear(in.ChatID)
	case fromPending:
		r.deps.Pending.Clear(in.ChatID)
	}
}
