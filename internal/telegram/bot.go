package telegram

import (
	"context"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"botmesero-backend/internal/dialogue"
)

const startCommand = "start"

type Handler interface {
	Handle(ctx context.Context, ev dialogue.Event, r dialogue.Renderer) error
}

// Bot turns Telegram updates into dialogue events, one update at a time.
type Bot struct {
	api     BotAPI
	handler Handler
	log     *slog.Logger
}

func NewBot(api BotAPI, handler Handler, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{api: api, handler: handler, log: logger}
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate processes a single update. Failures are logged and confined
// to that update.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	ev, r, ok := b.translate(u)
	if !ok {
		return
	}
	if err := b.handler.Handle(ctx, ev, r); err != nil {
		b.log.Error("failed to handle update",
			"update_id", u.UpdateID,
			"event_id", ev.ID,
			"chat_id", ev.ChatID,
			"kind", string(ev.Kind),
			"error", err,
		)
	}
}

func (b *Bot) translate(u tgbotapi.Update) (dialogue.Event, dialogue.Renderer, bool) {
	ev := dialogue.Event{ID: uuid.NewString()}

	switch {
	case u.Message != nil:
		m := u.Message
		if m.From != nil {
			ev.UserName = m.From.FirstName
		}
		var chatID int64
		if m.Chat != nil {
			chatID = m.Chat.ID
			ev.ChatID = strconv.FormatInt(chatID, 10)
		}
		switch {
		case m.IsCommand() && m.Command() == startCommand:
			ev.Kind = dialogue.EventStart
		case m.IsCommand():
			b.log.Debug("ignoring command", "command", m.Command())
			return ev, nil, false
		case m.Text != "":
			ev.Kind = dialogue.EventText
			ev.Text = m.Text
		default:
			return ev, nil, false
		}
		return ev, &messageRenderer{api: b.api, chatID: chatID}, true

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		ev.Kind = dialogue.EventButton
		ev.Data = q.Data
		if q.From != nil {
			ev.UserName = q.From.FirstName
		}
		r := &callbackRenderer{api: b.api, callbackID: q.ID}
		if q.Message != nil && q.Message.Chat != nil {
			r.chatID = q.Message.Chat.ID
			r.messageID = q.Message.MessageID
			ev.ChatID = strconv.FormatInt(r.chatID, 10)
		}
		if ev.ChatID == "" {
			b.log.Warn("callback without originating message", "update_id", u.UpdateID)
			if err := r.Acknowledge(context.Background()); err != nil {
				b.log.Warn("failed to acknowledge callback", "error", err)
			}
			return ev, nil, false
		}
		return ev, r, true
	}

	b.log.Warn("update does not have message or callback_query", "update_id", u.UpdateID)
	return ev, nil, false
}
