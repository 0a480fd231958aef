package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/config"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all command and callback
// handlers. Plain text goes to NewTextHandler, installed as the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)
	subjectOnly := []tgbot.Middleware{RequireSubject(deps)}

	command := func(name string, h tgbot.HandlerFunc, mw []tgbot.Middleware) {
		handlers["/"+name] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}
	callback := func(data string, match tgbot.MatchType, h tgbot.HandlerFunc, mw []tgbot.Middleware) {
		handlers[data] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeCallbackQueryData,
			Pattern:     data,
			Handler:     h,
			MatchType:   match,
			Middleware:  mw,
		}
	}

	command("start", NewStartHandler(deps), nil)
	command("help", NewHelpHandler(deps), nil)
	command("measure", NewMeasureHandler(deps), subjectOnly)

	callback(cbMenuMain, tgbot.MatchTypeExact, NewStartHandler(deps), nil)
	callback(cbMenuCharts, tgbot.MatchTypeExact, NewChartsMenuHandler(deps), subjectOnly)
	callback(cbMenuStats, tgbot.MatchTypeExact, NewStatsHandler(deps), subjectOnly)
	callback(cbMenuSettings, tgbot.MatchTypeExact, NewSettingsMenuHandler(deps), subjectOnly)
	callback(cbRegisterStart, tgbot.MatchTypeExact, NewRegisterHandler(deps), nil)
	callback(cbSettingsPrefix, tgbot.MatchTypePrefix, NewSettingsHandler(deps), subjectOnly)
	callback(cbChartPrefix, tgbot.MatchTypePrefix, NewChartHandler(deps), subjectOnly)
	// Loads the subject itself: cancel must work without one.
	callback(cbMeasurePrefix, tgbot.MatchTypePrefix, NewMeasureTagHandler(deps), nil)

	return handlers
}

// BotCommands lists the commands shown in the Telegram client menu.
func BotCommands(msgs config.MessagesConfig) []models.BotCommand {
	return []models.BotCommand{
		{Command: "start", Description: msgs.CmdStart},
		{Command: "measure", Description: msgs.CmdMeasure},
		{Command: "help", Description: msgs.CmdHelp},
	}
}
