// Package main contains the entrypoint of the glucose diary Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/glucodiary/internal/bot"
	"github.com/edgard/glucodiary/internal/bot/handlers"
	"github.com/edgard/glucodiary/internal/bot/tasks"
	"github.com/edgard/glucodiary/internal/charts"
	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
	"github.com/edgard/glucodiary/internal/digest"
	"github.com/edgard/glucodiary/internal/logger"
	"github.com/edgard/glucodiary/internal/pending"
	"github.com/edgard/glucodiary/internal/reminder"
	"github.com/edgard/glucodiary/internal/reply"
	"github.com/edgard/glucodiary/internal/telegram"
	"github.com/edgard/glucodiary/internal/trend"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db, diary
// services, bot, scheduler), handles graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	// The default handler is built after the messenger, which needs the bot.
	var textHandler tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			textHandler(ctx, b, update)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	clock := clockwork.NewRealClock()
	messenger := telegram.NewMessenger(tg, cfg.Messages.CancelKeyword, log)
	states := conversation.NewMemoryStore()
	pendingTable := pending.NewMemoryTable()
	analyzer := trend.NewAnalyzer(store)

	router := reply.NewRouter(reply.Deps{
		Logger:   log,
		Store:    store,
		Analyzer: analyzer,
		Sender:   messenger,
		States:   states,
		Pending:  pendingTable,
		Clock:    clock,
		Alerts:   cfg.Alerts,
		Messages: cfg.Messages,
	})
	reminders := reminder.NewClock(reminder.Deps{
		Logger:   log,
		Store:    store,
		Sender:   messenger,
		States:   states,
		Pending:  pendingTable,
		Clock:    clock,
		Window:   diary.FireWindow{Lead: cfg.Reminder.Lead, Width: cfg.Reminder.Window},
		Messages: cfg.Messages,
	})
	daily := digest.NewRunner(digest.Deps{
		Logger:   log,
		Subjects: store,
		Analyzer: analyzer,
		Sender:   messenger,
		Clock:    clock,
		Alerts:   cfg.Alerts,
		Messages: cfg.Messages,
	})

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		States:    states,
		Pending:   pendingTable,
		Router:    router,
		Analyzer:  analyzer,
		Renderer:  charts.NewRenderer(cfg.Alerts.RangeLow, cfg.Alerts.RangeHigh),
		Messenger: messenger,
		Clock:     clock,
	}
	textHandler = handlers.NewTextHandler(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if _, err := tg.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{Commands: handlers.BotCommands(cfg.Messages)}); err != nil {
		log.Warn("Failed to set bot commands", "error", err)
	}

	tDeps := tasks.TaskDeps{
		Logger:    log,
		Reminders: reminders,
		Digest:    daily,
		Store:     store,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), clock)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
