package handlers_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/glucodiary/internal/bot/handlers"
	"github.com/edgard/glucodiary/internal/charts"
	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
	"github.com/edgard/glucodiary/internal/pending"
	"github.com/edgard/glucodiary/internal/reply"
	"github.com/edgard/glucodiary/internal/trend"
)

const (
	chatID = int64(100)
	userID = int64(7)
)

var now = time.Date(2024, time.January, 10, 7, 32, 0, 0, time.Local)

type outgoing struct {
	kind     string
	text     string
	keyboard [][]models.InlineKeyboardButton
}

type callbackAnswer struct {
	text  string
	alert bool
}

type fakeMessenger struct {
	mu      sync.Mutex
	out     []outgoing
	answers []callbackAnswer
	images  []string
}

func (f *fakeMessenger) record(o outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, o)
	return nil
}

func (f *fakeMessenger) SendText(_ context.Context, _ int64, text string) error {
	return f.record(outgoing{kind: "text", text: text})
}

func (f *fakeMessenger) SendPrompt(_ context.Context, _ int64, text string) error {
	return f.record(outgoing{kind: "prompt", text: text})
}

func (f *fakeMessenger) SendDone(_ context.Context, _ int64, text string) error {
	return f.record(outgoing{kind: "done", text: text})
}

func (f *fakeMessenger) SendMenu(_ context.Context, _ int64, text string, keyboard [][]models.InlineKeyboardButton) error {
	return f.record(outgoing{kind: "menu", text: text, keyboard: keyboard})
}

func (f *fakeMessenger) EditMenu(_ context.Context, _ int64, _ int, text string, keyboard [][]models.InlineKeyboardButton) error {
	return f.record(outgoing{kind: "edit", text: text, keyboard: keyboard})
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackAnswer{text: text, alert: alert})
	return nil
}

func (f *fakeMessenger) SendImage(_ context.Context, _ int64, filename string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, filename)
	return nil
}

func (f *fakeMessenger) last(t *testing.T) outgoing {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.out)
	return f.out[len(f.out)-1]
}

func (f *fakeMessenger) sent(want outgoing) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.out {
		if o.kind == want.kind && o.text == want.text {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) lastAnswer(t *testing.T) callbackAnswer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.answers)
	return f.answers[len(f.answers)-1]
}

type env struct {
	store     database.Store
	states    conversation.Store
	messenger *fakeMessenger
	cfg       *config.Config
	registry  map[string]handlers.RegisteredHandler
	text      tgbot.HandlerFunc
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	cfg := &config.Config{Alerts: config.DefaultAlerts, Messages: config.DefaultMessages}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(now)
	states := conversation.NewMemoryStore()
	table := pending.NewMemoryTable()
	messenger := &fakeMessenger{}
	analyzer := trend.NewAnalyzer(store)

	deps := handlers.HandlerDeps{
		Logger:  logger,
		Config:  cfg,
		Store:   store,
		States:  states,
		Pending: table,
		Router: reply.NewRouter(reply.Deps{
			Logger:   logger,
			Store:    store,
			Analyzer: analyzer,
			Sender:   messenger,
			States:   states,
			Pending:  table,
			Clock:    clock,
			Alerts:   cfg.Alerts,
			Messages: cfg.Messages,
		}),
		Analyzer:  analyzer,
		Renderer:  charts.NewRenderer(cfg.Alerts.RangeLow, cfg.Alerts.RangeHigh),
		Messenger: messenger,
		Clock:     clock,
	}

	return &env{
		store:     store,
		states:    states,
		messenger: messenger,
		cfg:       cfg,
		registry:  handlers.RegisterAllCommands(deps),
		text:      handlers.NewTextHandler(deps),
	}
}

func (e *env) register(t *testing.T) {
	t.Helper()
	require.NoError(t, e.store.CreateSubject(context.Background(), &database.Subject{
		ChatID: chatID, UserID: userID, Name: "Murka", MorningTime: "07:30", PeakHours: 4, EveningTime: "19:30",
	}))
}

// dispatch runs the registered handler for key with its middleware, the way the bot does.
func (e *env) dispatch(t *testing.T, key string, update *models.Update) {
	t.Helper()
	reg, ok := e.registry[key]
	require.True(t, ok, "no handler registered for %s", key)
	h := reg.Handler
	for i := len(reg.Middleware) - 1; i >= 0; i-- {
		h = reg.Middleware[i](h)
	}
	h(context.Background(), nil, update)
}

func (e *env) say(text string) {
	e.text(context.Background(), nil, message(text))
}

func message(text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   1,
		Chat: models.Chat{ID: chatID},
		From: &models.User{ID: userID},
		Text: text,
	}}
}

func callback(data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:      "cb",
		From:    models.User{ID: userID},
		Data:    data,
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{ID: 5, Chat: models.Chat{ID: chatID}}},
	}}
}

func TestStartOffersRegistration(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.dispatch(t, "/start", message("/start"))
	got := e.messenger.last(t)
	assert.Equal(t, "menu", got.kind)
	assert.Equal(t, e.cfg.Messages.Welcome, got.text)
	assert.Equal(t, "register:start", got.keyboard[0][0].CallbackData)

	e.register(t)
	e.dispatch(t, "menu:main", callback("menu:main"))
	got = e.messenger.last(t)
	assert.Equal(t, "edit", got.kind)
	assert.Equal(t, fmt.Sprintf(e.cfg.Messages.MainMenu, "Murka"), got.text)
	assert.Len(t, got.keyboard, 3)
}

func TestRegistrationFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	msgs := e.cfg.Messages

	e.dispatch(t, "register:start", callback("register:start"))
	assert.Equal(t, msgs.AskName, e.messenger.last(t).text)

	steps := []struct {
		input string
		want  string
	}{
		{input: "Murka", want: msgs.AskMorning},
		{input: "7:30", want: msgs.InvalidMorning},
		{input: "07:30", want: msgs.AskPeak},
		{input: "13", want: msgs.InvalidPeak},
		{input: "4", want: msgs.AskEvening},
	}
	for _, step := range steps {
		e.say(step.input)
		assert.Equal(t, step.want, e.messenger.last(t).text, "after %q", step.input)
	}

	e.say("19:30")
	e.messenger.mu.Lock()
	tail := e.messenger.out[len(e.messenger.out)-2:]
	e.messenger.mu.Unlock()
	assert.Equal(t, outgoing{kind: "done", text: msgs.Registered}, tail[0])
	assert.Equal(t, "menu", tail[1].kind)

	subject, err := e.store.GetSubjectByChat(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, diary.Routine{MorningTime: "07:30", PeakHours: 4, EveningTime: "19:30"}, subject.Routine())
	assert.True(t, subject.IsActive)

	_, open := e.states.Get(conversation.UserKey(chatID, userID))
	assert.False(t, open, "flow state must be cleared")

	e.dispatch(t, "register:start", callback("register:start"))
	assert.Equal(t, callbackAnswer{text: msgs.AlreadyRegistered, alert: true}, e.messenger.lastAnswer(t))
}

func TestCancelKeywordAbortsFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.dispatch(t, "register:start", callback("register:start"))
	e.say("Murka")
	e.say(" cancel ")

	assert.Equal(t, outgoing{kind: "done", text: e.cfg.Messages.Cancelled}, e.messenger.last(t))
	_, open := e.states.Get(conversation.UserKey(chatID, userID))
	assert.False(t, open)
}

func TestRequireSubject(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	for _, key := range []string{"menu:stats", "menu:charts", "menu:settings", "settings:", "chart:"} {
		e.dispatch(t, key, callback(key+"x"))
		assert.Equal(t, callbackAnswer{text: e.cfg.Messages.RegisterFirst, alert: true}, e.messenger.lastAnswer(t), key)
	}

	e.dispatch(t, "/measure", message("/measure"))
	assert.Equal(t, outgoing{kind: "text", text: e.cfg.Messages.RegisterFirst}, e.messenger.last(t))

	e.dispatch(t, "measure:", callback("measure:PEAK"))
	assert.Equal(t, callbackAnswer{text: e.cfg.Messages.RegisterFirst, alert: true}, e.messenger.lastAnswer(t))
}

func TestManualMeasurement(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t)
	msgs := e.cfg.Messages

	e.dispatch(t, "/measure", message("/measure"))
	menu := e.messenger.last(t)
	assert.Equal(t, msgs.ChooseTag, menu.text)
	require.Len(t, menu.keyboard, len(diary.AllTags))

	e.dispatch(t, "measure:", callback("measure:PEAK"))
	prompt := e.messenger.last(t)
	assert.Equal(t, fmt.Sprintf(msgs.AskValueForTag, diary.TagPeak.Label()), prompt.text)
	assert.Equal(t, "measure:cancel", prompt.keyboard[0][0].CallbackData)

	e.say("6,4")
	assert.True(t, e.messenger.sent(outgoing{kind: "done", text: msgs.Recorded}))
	assert.Equal(t, msgs.WeeklyProgress, e.messenger.last(t).text, "a low rolling average follows the confirmation")

	rows, err := e.store.GetLastMeasures(context.Background(), chatID, "Murka", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, diary.TagPeak, rows[0].Tag)
	assert.InDelta(t, 6.4, rows[0].Amount, 1e-9)
	assert.Equal(t, "07:32", rows[0].Time)
}

func TestInlineCancel(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t)

	e.dispatch(t, "measure:", callback("measure:MORNING"))
	e.dispatch(t, "measure:", callback("measure:cancel"))
	assert.Equal(t, outgoing{kind: "done", text: e.cfg.Messages.Cancelled}, e.messenger.last(t))

	e.say("5.5")
	rows, err := e.store.GetLastMeasures(context.Background(), chatID, "Murka", 1)
	require.NoError(t, err)
	assert.Empty(t, rows, "nothing is awaited after cancel")
}

func TestSettingsEdits(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t)
	msgs := e.cfg.Messages
	ctx := context.Background()

	e.dispatch(t, "menu:settings", callback("menu:settings"))
	menu := e.messenger.last(t)
	assert.Equal(t, fmt.Sprintf(msgs.SettingsMenu, "Murka", "07:30", 4, "19:30", msgs.Yes), menu.text)

	e.dispatch(t, "settings:", callback("settings:peak"))
	assert.Equal(t, msgs.EditPeak, e.messenger.last(t).text)
	e.say("five")
	assert.Equal(t, msgs.InvalidPeak, e.messenger.last(t).text)
	e.say("5")

	subject, err := e.store.GetSubjectByChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, 5, subject.PeakHours)
	assert.Equal(t, "07:30", subject.MorningTime)

	e.dispatch(t, "settings:", callback("settings:name"))
	e.say("Barsik")
	subject, err = e.store.GetSubjectByChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "Barsik", subject.Name)
	assert.Equal(t, fmt.Sprintf(msgs.SettingsMenu, "Barsik", "07:30", 5, "19:30", msgs.Yes), e.messenger.last(t).text)

	e.dispatch(t, "settings:", callback("settings:toggle"))
	assert.Equal(t, callbackAnswer{text: msgs.Deactivated}, e.messenger.lastAnswer(t))
	subject, err = e.store.GetSubjectByChat(ctx, chatID)
	require.NoError(t, err)
	assert.False(t, subject.IsActive)
}

func addReading(t *testing.T, e *env, date, clock string, amount float64, tag diary.Tag) {
	t.Helper()
	require.NoError(t, e.store.AddMeasurement(context.Background(), &database.Measurement{
		ChatID: chatID, UserID: userID, Name: "Murka", Date: date, Time: clock, Amount: amount, Tag: tag,
	}))
}

func TestStats(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t)
	msgs := e.cfg.Messages

	e.dispatch(t, "menu:stats", callback("menu:stats"))
	assert.Equal(t, callbackAnswer{text: msgs.NoStats, alert: true}, e.messenger.lastAnswer(t))

	addReading(t, e, "2024-01-09", "07:30", 8.0, diary.TagMorning)
	addReading(t, e, "2024-01-09", "11:30", 5.0, diary.TagPeak)
	addReading(t, e, "2024-01-10", "07:30", 7.0, diary.TagMorning)

	e.dispatch(t, "menu:stats", callback("menu:stats"))
	e.messenger.mu.Lock()
	out := append([]outgoing(nil), e.messenger.out...)
	images := append([]string(nil), e.messenger.images...)
	e.messenger.mu.Unlock()
	require.Len(t, out, 1)

	summary := out[0].text
	assert.Contains(t, summary, msgs.StatsHeader)
	assert.Contains(t, summary, fmt.Sprintf(msgs.StatsAverage, "✅", 20.0/3))
	assert.Contains(t, summary, fmt.Sprintf(msgs.StatsNadir, "❌", 6.0), "a nadir of 6 is not below the good bound")
	assert.Equal(t, []string{"stats_1.png"}, images, "two days fit on one table image")
}

func TestCharts(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t)

	e.dispatch(t, "menu:charts", callback("menu:charts"))
	menu := e.messenger.last(t)
	assert.Equal(t, "edit", menu.kind)
	assert.Len(t, menu.keyboard, 5)

	e.dispatch(t, "chart:", callback("chart:nadir"))
	assert.Equal(t, callbackAnswer{text: e.cfg.Messages.NotEnoughData, alert: true}, e.messenger.lastAnswer(t))

	addReading(t, e, "2024-01-08", "07:30", 9.0, diary.TagMorning)
	addReading(t, e, "2024-01-08", "19:30", 8.0, diary.TagEvening)
	addReading(t, e, "2024-01-09", "07:30", 7.0, diary.TagMorning)
	addReading(t, e, "2024-01-09", "19:30", 6.0, diary.TagEvening)

	for _, data := range []string{"chart:daily", "chart:nadir", "chart:amps_pmps", "chart:range"} {
		e.dispatch(t, "chart:", callback(data))
	}
	e.messenger.mu.Lock()
	defer e.messenger.mu.Unlock()
	assert.Equal(t, []string{"daily.png", "nadir.png", "amps.png", "pmps.png", "range.png"}, e.messenger.images)
}

func TestBotCommands(t *testing.T) {
	t.Parallel()

	cmds := handlers.BotCommands(config.DefaultMessages)
	require.Len(t, cmds, 3)
	assert.Equal(t, "start", cmds[0].Command)
	assert.Equal(t, config.DefaultMessages.CmdMeasure, cmds[1].Description)
}
