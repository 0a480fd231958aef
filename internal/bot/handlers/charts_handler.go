package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/charts"
	"github.com/edgard/glucodiary/internal/database"
)

const (
	dailyChartDays = 30
	chartDays      = 60
)

// NewChartsMenuHandler shows the chart menu.
func NewChartsMenuHandler(deps HandlerDeps) bot.HandlerFunc {
	return chartsHandler{deps}.Menu
}

// NewChartHandler renders the chart named by the callback data. Requires RequireSubject.
func NewChartHandler(deps HandlerDeps) bot.HandlerFunc {
	return chartsHandler{deps}.Handle
}

type chartsHandler struct {
	deps HandlerDeps
}

// image is one rendered chart ready for upload.
type image struct {
	filename string
	png      []byte
}

func (h chartsHandler) Menu(ctx context.Context, _ *bot.Bot, update *models.Update) {
	req, ok := newRequest(update)
	if !ok {
		return
	}
	msgs := h.deps.Config.Messages
	if err := h.deps.Messenger.EditMenu(ctx, req.chatID, req.messageID, msgs.ChartsMenu, chartsKeyboard(msgs.Buttons)); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send charts menu", "handler", "charts", "error", err, "chat_id", req.chatID)
	}
	acknowledge(ctx, h.deps, req)
}

func (h chartsHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chart")

	req, ok := newRequest(update)
	if !ok {
		return
	}
	subject := subjectFrom(ctx)
	log = log.With("chart", req.text, "chat_id", req.chatID)

	days := chartDays
	if req.text == cbChartDaily {
		days = dailyChartDays
	}
	rows, err := h.deps.Store.GetMeasures(ctx, req.chatID, subject.Name, days, h.deps.Clock.Now())
	if err != nil {
		log.ErrorContext(ctx, "Failed to load measurements", "error", err)
		sendError(ctx, h.deps, req)
		return
	}

	images, err := h.render(req.text, subject.Name, rows)
	switch {
	case errors.Is(err, charts.ErrNotEnoughData):
		if err := h.deps.Messenger.AnswerCallback(ctx, req.callbackID, h.deps.Config.Messages.NotEnoughData, true); err != nil {
			log.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to render chart", "error", err)
		sendError(ctx, h.deps, req)
		return
	}

	acknowledge(ctx, h.deps, req)
	for _, img := range images {
		if err := h.deps.Messenger.SendImage(ctx, req.chatID, img.filename, img.png); err != nil {
			log.ErrorContext(ctx, "Failed to send chart", "error", err, "file", img.filename)
			return
		}
	}
	log.InfoContext(ctx, "Chart sent", "images", len(images), "rows", len(rows))
}

func (h chartsHandler) render(data, name string, rows []database.Measurement) ([]image, error) {
	r := h.deps.Renderer
	one := func(filename string, png []byte, err error) ([]image, error) {
		if err != nil {
			return nil, err
		}
		return []image{{filename: filename, png: png}}, nil
	}

	switch data {
	case cbChartDaily:
		png, err := r.Daily(name, rows)
		return one("daily.png", png, err)
	case cbChartNadir:
		png, err := r.Nadir(name, rows)
		return one("nadir.png", png, err)
	case cbChartRange:
		png, err := r.RangePercent(name, rows)
		return one("range.png", png, err)
	case cbChartMorningEvening:
		am, pm, err := r.MorningEvening(name, rows)
		if err != nil {
			return nil, err
		}
		return []image{{filename: "amps.png", png: am}, {filename: "pmps.png", png: pm}}, nil
	default:
		return nil, errors.New("unknown chart " + data)
	}
}
