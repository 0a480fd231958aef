// Package handlers contains Telegram bot command and callback handlers of the diary,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"errors"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/database"
)

// request is what the handlers need from an update, for messages and callbacks alike.
type request struct {
	chatID     int64
	userID     int64
	messageID  int
	callbackID string
	text       string // message text or callback data
}

func newRequest(update *models.Update) (request, bool) {
	switch {
	case update.Message != nil:
		if update.Message.From == nil {
			return request{}, false
		}
		return request{
			chatID:    update.Message.Chat.ID,
			userID:    update.Message.From.ID,
			messageID: update.Message.ID,
			text:      update.Message.Text,
		}, true
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		req := request{userID: cq.From.ID, callbackID: cq.ID, text: cq.Data}
		switch msg := cq.Message; {
		case msg.Message != nil:
			req.chatID = msg.Message.Chat.ID
			req.messageID = msg.Message.ID
		case msg.InaccessibleMessage != nil:
			req.chatID = msg.InaccessibleMessage.Chat.ID
		default:
			return request{}, false
		}
		return req, true
	default:
		return request{}, false
	}
}

func (r request) isCallback() bool { return r.callbackID != "" }

type subjectKey struct{}

// subjectFrom returns the subject RequireSubject loaded for this update.
func subjectFrom(ctx context.Context) *database.Subject {
	s, _ := ctx.Value(subjectKey{}).(*database.Subject)
	return s
}

// RequireSubject loads the subject of the chat into the context and stops updates of
// chats that have not registered one yet, asking them to register first.
func RequireSubject(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			req, ok := newRequest(update)
			if !ok {
				next(ctx, bot, update)
				return
			}
			log := deps.Logger.With("middleware", "RequireSubject", "chat_id", req.chatID)
			msgs := deps.Config.Messages

			subject, err := deps.Store.GetSubjectByChat(ctx, req.chatID)
			if err != nil {
				text := msgs.GeneralError
				if errors.Is(err, database.ErrSubjectNotFound) {
					log.InfoContext(ctx, "Update from chat without a subject", "user_id", req.userID)
					text = msgs.RegisterFirst
				} else {
					log.ErrorContext(ctx, "Failed to load subject", "error", err)
				}

				if req.isCallback() {
					err = deps.Messenger.AnswerCallback(ctx, req.callbackID, text, true)
				} else {
					err = deps.Messenger.SendText(ctx, req.chatID, text)
				}
				if err != nil {
					log.ErrorContext(ctx, "Failed to send register-first message", "error", err)
				}
				return
			}

			next(context.WithValue(ctx, subjectKey{}, subject), bot, update)
		}
	}
}
