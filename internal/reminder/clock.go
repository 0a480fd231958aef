// Package reminder implements the procedure reminder clock: on every poll it checks
// each active subject's checkpoints and, when one is 15 minutes away, announces it,
// opens a value prompt and records the pending checkpoint for the chat.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
	"github.com/edgard/glucodiary/internal/pending"
)

// Sender delivers reminder messages to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPrompt(ctx context.Context, chatID int64, text string) error
}

// SubjectSource is the part of the store the clock reads.
type SubjectSource interface {
	ListActiveSubjects(ctx context.Context) ([]database.SubjectRef, error)
	GetSubject(ctx context.Context, chatID int64, name string) (*database.Subject, error)
}

// Deps are the collaborators of a Clock.
type Deps struct {
	Logger   *slog.Logger
	Store    SubjectSource
	Sender   Sender
	States   conversation.Store
	Pending  pending.Table
	Clock    clockwork.Clock
	Window   diary.FireWindow
	Messages config.MessagesConfig
}

// Clock fires checkpoint reminders. It holds no state between ticks: at-most-once
// delivery comes from the fire window being exactly one poll wide.
type Clock struct {
	deps Deps
	log  *slog.Logger
}

// NewClock creates a Clock. A nil Clock dependency uses the real wall clock and a zero
// Window uses diary.DefaultFireWindow.
func NewClock(deps Deps) *Clock {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Window.Width == 0 {
		deps.Window = diary.DefaultFireWindow
	}
	return &Clock{deps: deps, log: deps.Logger.With("component", "reminder_clock")}
}

// Run performs one poll at the current time of the injected clock.
func (c *Clock) Run(ctx context.Context) error {
	return c.Tick(ctx, c.deps.Clock.Now())
}

// Tick evaluates every active subject against now. A failure for one subject is
// logged and joined into the result without stopping the others.
func (c *Clock) Tick(ctx context.Context, now time.Time) error {
	refs, err := c.deps.Store.ListActiveSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active subjects: %w", err)
	}

	var errs []error
	for _, ref := range refs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := c.tickSubject(ctx, ref, now); err != nil {
			c.log.ErrorContext(ctx, "Reminder failed for subject", "chat_id", ref.ChatID, "name", ref.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Clock) tickSubject(ctx context.Context, ref database.SubjectRef, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in reminder for chat %d: %v", ref.ChatID, r)
		}
	}()

	subject, err := c.deps.Store.GetSubject(ctx, ref.ChatID, ref.Name)
	if errors.Is(err, database.ErrSubjectNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load subject: %w", err)
	}

	targets, err := subject.Routine().Targets(now)
	if err != nil {
		return fmt.Errorf("invalid routine for chat %d: %w", ref.ChatID, err)
	}

	var errs []error
	for _, target := range targets {
		if !c.deps.Window.Due(target.At, now) {
			continue
		}
		if err := c.fire(ctx, subject, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Clock) fire(ctx context.Context, subject *database.Subject, target diary.Target) error {
	chatID := subject.ChatID
	log := c.log.With("chat_id", chatID, "name", subject.Name, "tag", target.Tag)
	log.InfoContext(ctx, "Checkpoint reminder due", "target", target.At.Format(diary.ClockLayout))

	var errs []error
	info := fmt.Sprintf(c.deps.Messages.ReminderDue, target.Tag.Label(), int(c.deps.Window.Lead.Minutes()))
	if err := c.deps.Sender.SendText(ctx, chatID, info); err != nil {
		log.WarnContext(ctx, "Failed to send reminder notice", "error", err)
		errs = append(errs, fmt.Errorf("reminder notice: %w", err))
	}

	unlock := c.deps.States.Lock(chatID)
	c.deps.States.Set(conversation.ReminderKey(chatID), conversation.AwaitValue(target.Tag, subject.Name))
	c.deps.Pending.Set(chatID, target.Tag, subject.Name)
	unlock()

	if err := c.deps.Sender.SendPrompt(ctx, chatID, c.deps.Messages.AskValue); err != nil {
		log.WarnContext(ctx, "Failed to send value prompt", "error", err)
		errs = append(errs, fmt.Errorf("value prompt: %w", err))
	}
	return errors.Join(errs...)
}
