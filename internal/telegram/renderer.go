package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botmesero-backend/internal/dialogue"
)

// BotAPI is the part of *tgbotapi.BotAPI the adapter needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// maxMessageLength is Telegram's limit on message text, in characters.
const maxMessageLength = 4096

// splitMessage cuts text into pieces Telegram accepts, preferring line
// breaks near the limit.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(parts, string(runes))
}

func inlineMarkup(kb dialogue.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// messageRenderer answers a direct message by sending new messages.
type messageRenderer struct {
	api    BotAPI
	chatID int64
}

func (r *messageRenderer) send(text, parseMode string, kb dialogue.Keyboard) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ParseMode = parseMode
	if len(kb) > 0 {
		msg.ReplyMarkup = inlineMarkup(kb)
	}
	_, err := r.api.Send(msg)
	return err
}

func (r *messageRenderer) RenderText(_ context.Context, text string) error {
	for _, part := range splitMessage(text, maxMessageLength) {
		if err := r.send(part, "", nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *messageRenderer) RenderMarkdown(_ context.Context, text string) error {
	return r.send(text, tgbotapi.ModeMarkdown, nil)
}

func (r *messageRenderer) RenderButtons(_ context.Context, text string, kb dialogue.Keyboard) error {
	return r.send(text, "", kb)
}

// callbackRenderer answers a button press by editing the message that
// carried the button.
type callbackRenderer struct {
	api        BotAPI
	callbackID string
	chatID     int64
	messageID  int
}

func (r *callbackRenderer) edit(text, parseMode string, kb dialogue.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(r.chatID, r.messageID, text)
	edit.ParseMode = parseMode
	if len(kb) > 0 {
		markup := inlineMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	_, err := r.api.Send(edit)
	return err
}

func (r *callbackRenderer) RenderText(_ context.Context, text string) error {
	return r.edit(text, "", nil)
}

func (r *callbackRenderer) RenderMarkdown(_ context.Context, text string) error {
	return r.edit(text, tgbotapi.ModeMarkdown, nil)
}

func (r *callbackRenderer) RenderButtons(_ context.Context, text string, kb dialogue.Keyboard) error {
	return r.edit(text, "", kb)
}

func (r *callbackRenderer) Acknowledge(_ context.Context) error {
	_, err := r.api.Request(tgbotapi.NewCallback(r.callbackID, ""))
	return err
}
