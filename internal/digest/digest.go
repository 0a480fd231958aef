// Package digest runs the end-of-day trend checks for every active subject and sends
// the resulting clinical alerts.
package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/trend"
)

// Sender delivers digest alerts.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// SubjectLister lists the subjects the digest covers.
type SubjectLister interface {
	ListActiveSubjects(ctx context.Context) ([]database.SubjectRef, error)
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Logger   *slog.Logger
	Subjects SubjectLister
	Analyzer *trend.Analyzer
	Sender   Sender
	Clock    clockwork.Clock
	Alerts   config.AlertsConfig
	Messages config.MessagesConfig
}

// Runner evaluates the daily alert conditions.
type Runner struct {
	deps Deps
	log  *slog.Logger
}

// NewRunner creates a Runner. A nil Clock uses the wall clock.
func NewRunner(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Runner{deps: deps, log: deps.Logger.With("component", "daily_digest")}
}

// RunNow evaluates every active subject as of the injected clock's current time.
func (r *Runner) RunNow(ctx context.Context) error {
	return r.Run(ctx, r.deps.Clock.Now())
}

// Run evaluates every active subject as of asOf. Subjects are independent: an error
// for one is logged and joined into the result after the rest are processed.
func (r *Runner) Run(ctx context.Context, asOf time.Time) error {
	refs, err := r.deps.Subjects.ListActiveSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active subjects: %w", err)
	}

	var errs []error
	for _, ref := range refs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := r.runSubject(ctx, ref, asOf); err != nil {
			r.log.ErrorContext(ctx, "Daily digest failed for subject", "chat_id", ref.ChatID, "name", ref.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Alerts returns the digest messages due for one subject, in evaluation order.
func (r *Runner) Alerts(ctx context.Context, ref database.SubjectRef, asOf time.Time) ([]string, error) {
	a, msgs := r.deps.Alerts, r.deps.Messages
	an := r.deps.Analyzer
	var out []string

	avg, ok, err := an.AverageNadir(ctx, ref.ChatID, ref.Name, a.NadirWindowDays, asOf)
	if err != nil {
		return nil, err
	}
	if ok && avg > a.NadirGoodMin && avg < a.NadirGoodMax {
		out = append(out, msgs.DigestNadirGood)
	}

	high, err := an.ConsecutiveNadir(ctx, ref.ChatID, ref.Name, a.HighNadirDays, asOf, func(v float64) bool { return v > a.HighNadir })
	if err != nil {
		return nil, err
	}
	if high {
		out = append(out, msgs.DigestDoseLow)
	}

	low, err := an.ConsecutiveNadir(ctx, ref.ChatID, ref.Name, a.LowNadirDays, asOf, func(v float64) bool { return v < a.LowNadir })
	if err != nil {
		return nil, err
	}
	if low {
		out = append(out, msgs.DigestHypoRisk)
	}

	weak, err := an.AmpsPeakDifferenceLow(ctx, ref.ChatID, ref.Name, a.PeakDifferenceDays, asOf, a.PeakDifference)
	if err != nil {
		return nil, err
	}
	if weak {
		out = append(out, msgs.DigestInsulinWeak)
	}
	return out, nil
}

func (r *Runner) runSubject(ctx context.Context, ref database.SubjectRef, asOf time.Time) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in daily digest for chat %d: %v", ref.ChatID, rec)
		}
	}()

	alerts, err := r.Alerts(ctx, ref, asOf)
	if err != nil {
		return fmt.Errorf("failed to evaluate trends: %w", err)
	}

	var errs []error
	for _, text := range alerts {
		if err := r.deps.Sender.SendText(ctx, ref.ChatID, text); err != nil {
			errs = append(errs, fmt.Errorf("failed to send digest alert: %w", err))
		}
	}
	r.log.InfoContext(ctx, "Daily digest evaluated", "chat_id", ref.ChatID, "name", ref.Name, "alerts", len(alerts))
	return errors.Join(errs...)
}
