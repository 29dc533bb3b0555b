package queue

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cmdbot/internal/models"
)

const messagePreviewLimit = 120

// ParseUpdate classifies an update without side effects. Text messages give
// {"text": ...}, callback queries give {"data": ...}; anything else comes back
// as "unknown" with a zero chat id and the raw update as content.
func ParseUpdate(update tgbotapi.Update) (chatID int64, messageType string, content any) {
	switch {
	case update.Message != nil && update.Message.Text != "":
		if update.Message.Chat != nil {
			chatID = update.Message.Chat.ID
		}
		return chatID, models.TypeText, map[string]string{"text": update.Message.Text}
	case update.CallbackQuery != nil:
		if msg := update.CallbackQuery.Message; msg != nil && msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return chatID, models.TypeCallbackQuery, map[string]string{"data": update.CallbackQuery.Data}
	default:
		return 0, models.TypeUnknown, update
	}
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	runes := []rune(text)
	if len(runes) <= messagePreviewLimit {
		return text
	}
	return string(runes[:messagePreviewLimit]) + "..."
}
