package models

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Payload is one outbound message produced by the router or a handler.
type Payload struct {
	Text        string                         `json:"text"`
	ReplyMarkup *tgbotapi.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	ParseMode   string                         `json:"parse_mode,omitempty"`
}

// TextPayload builds a plain text payload.
func TextPayload(text string) Payload {
	return Payload{Text: text}
}

// Valid reports whether the payload carries text or a non-empty markup.
func (p Payload) Valid() bool {
	if strings.TrimSpace(p.Text) != "" {
		return true
	}
	return p.ReplyMarkup != nil && len(p.ReplyMarkup.InlineKeyboard) > 0
}
