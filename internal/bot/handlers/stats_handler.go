package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/charts"
)

const (
	statsHistoryDays = 60
	statsWindowDays  = 7
	statsTableRows   = 18
)

// NewStatsHandler returns the statistics handler: the seven-day averages with a
// good/bad mark, then the per-day table for the last 60 days as images of up to
// 18 rows. Requires RequireSubject.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	req, ok := newRequest(update)
	if !ok {
		return
	}
	subject := subjectFrom(ctx)
	msgs := h.deps.Config.Messages
	now := h.deps.Clock.Now()

	rows, err := h.deps.Store.GetMeasures(ctx, req.chatID, subject.Name, statsHistoryDays, now)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load measurements", "error", err, "chat_id", req.chatID)
		sendError(ctx, h.deps, req)
		return
	}
	if len(rows) == 0 {
		if err := h.deps.Messenger.AnswerCallback(ctx, req.callbackID, msgs.NoStats, true); err != nil {
			log.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
		return
	}

	avgGlucose, haveGlucose, err := h.deps.Analyzer.AverageGlucoseLastDays(ctx, req.chatID, subject.Name, statsWindowDays, now)
	if err != nil {
		log.ErrorContext(ctx, "Failed to compute average glucose", "error", err)
		sendError(ctx, h.deps, req)
		return
	}
	avgNadir, haveNadir, err := h.deps.Analyzer.AverageNadir(ctx, req.chatID, subject.Name, statsWindowDays, now)
	if err != nil {
		log.ErrorContext(ctx, "Failed to compute average nadir", "error", err)
		sendError(ctx, h.deps, req)
		return
	}

	alerts := h.deps.Config.Alerts
	lines := []string{msgs.StatsHeader}
	if haveGlucose {
		lines = append(lines, fmt.Sprintf(msgs.StatsAverage, mark(avgGlucose < alerts.StatsAverageGood), avgGlucose))
	}
	if haveNadir {
		lines = append(lines, fmt.Sprintf(msgs.StatsNadir, mark(avgNadir < alerts.StatsNadirGood), avgNadir))
	}

	acknowledge(ctx, h.deps, req)
	if err := h.deps.Messenger.SendText(ctx, req.chatID, strings.Join(lines, "\n")); err != nil {
		log.ErrorContext(ctx, "Failed to send statistics", "error", err, "chat_id", req.chatID)
		return
	}
	days := charts.Summaries(rows)
	for i, page := range charts.Pages(days, statsTableRows) {
		png, err := h.deps.Renderer.Table(msgs.StatsTitle, msgs.StatsColumns, page)
		if err != nil {
			log.ErrorContext(ctx, "Failed to render statistics table", "error", err, "chat_id", req.chatID)
			sendError(ctx, h.deps, req)
			return
		}
		if err := h.deps.Messenger.SendImage(ctx, req.chatID, fmt.Sprintf("stats_%d.png", i+1), png); err != nil {
			log.ErrorContext(ctx, "Failed to send statistics table", "error", err, "chat_id", req.chatID)
			return
		}
	}
}

func mark(good bool) string {
	if good {
		return "✅"
	}
	return "❌"
}
