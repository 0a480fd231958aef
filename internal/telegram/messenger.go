package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	defaultSendAttempts = 3
	defaultSendDelay    = 500 * time.Millisecond
)

// API is the subset of *bot.Bot the Messenger sends through.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Messenger delivers texts, value prompts and images to chats. Sends that fail for
// transient reasons are retried with backoff.
type Messenger struct {
	api          API
	cancelButton string
	logger       *slog.Logger
	attempts     uint
	delay        time.Duration
}

// MessengerOption configures a Messenger.
type MessengerOption func(*Messenger)

// WithRetry sets the number of send attempts and the initial backoff delay.
func WithRetry(attempts uint, delay time.Duration) MessengerOption {
	return func(m *Messenger) {
		m.attempts = max(attempts, 1)
		m.delay = delay
	}
}

// NewMessenger creates a Messenger. cancelButton is the label of the reply-keyboard
// button attached to value prompts.
func NewMessenger(api API, cancelButton string, logger *slog.Logger, opts ...MessengerOption) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Messenger{
		api:          api,
		cancelButton: cancelButton,
		logger:       logger.With("component", "messenger"),
		attempts:     defaultSendAttempts,
		delay:        defaultSendDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendText sends a plain message, leaving any reply keyboard in place.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	return m.send(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
}

// SendPrompt asks for a value and shows the cancel button.
func (m *Messenger) SendPrompt(ctx context.Context, chatID int64, text string) error {
	return m.send(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &models.ReplyKeyboardMarkup{
			Keyboard:        [][]models.KeyboardButton{{{Text: m.cancelButton}}},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		},
	})
}

// SendDone closes a prompt by removing the reply keyboard.
func (m *Messenger) SendDone(ctx context.Context, chatID int64, text string) error {
	return m.send(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: &models.ReplyKeyboardRemove{RemoveKeyboard: true},
	})
}

// SendMenu sends text with an inline keyboard.
func (m *Messenger) SendMenu(ctx context.Context, chatID int64, text string, keyboard [][]models.InlineKeyboardButton) error {
	return m.send(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
}

// EditMenu replaces the text and inline keyboard of messageID. A zero messageID
// sends a new menu instead.
func (m *Messenger) EditMenu(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]models.InlineKeyboardButton) error {
	if messageID == 0 {
		return m.SendMenu(ctx, chatID, text, keyboard)
	}
	_, err := m.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	if err != nil {
		return fmt.Errorf("failed to edit message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query. A non-empty text is shown to the user,
// as a modal alert when alert is set.
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := m.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		return fmt.Errorf("failed to answer callback %s: %w", callbackID, err)
	}
	return nil
}

// SendImage uploads a PNG.
func (m *Messenger) SendImage(ctx context.Context, chatID int64, filename string, png []byte) error {
	if _, err := m.api.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionUploadPhoto}); err != nil {
		m.logger.DebugContext(ctx, "Chat action failed", "error", err, "chat_id", chatID)
	}

	err := m.withRetry(ctx, chatID, func() error {
		_, err := m.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(png)},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to send image to chat %d: %w", chatID, err)
	}
	return nil
}

func (m *Messenger) send(ctx context.Context, params *bot.SendMessageParams) error {
	err := m.withRetry(ctx, params.ChatID, func() error {
		_, err := m.api.SendMessage(ctx, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to send message to chat %v: %w", params.ChatID, err)
	}
	return nil
}

func (m *Messenger) withRetry(ctx context.Context, chatID any, call func() error) error {
	return retry.Do(
		call,
		retry.Context(ctx),
		retry.Attempts(m.attempts),
		retry.Delay(m.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			m.logger.DebugContext(ctx, "Retrying send", "attempt", n+1, "max_attempts", m.attempts, "chat_id", chatID, "error", err)
		}),
	)
}

// retryable rejects errors Telegram will repeat on every attempt.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, bot.ErrorBadRequest), errors.Is(err, bot.ErrorForbidden),
		errors.Is(err, bot.ErrorUnauthorized), errors.Is(err, bot.ErrorNotFound):
		return false
	default:
		return true
	}
}
