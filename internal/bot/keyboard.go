package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cmdbot/internal/models"
)

const (
	DefaultItemsPerRow = 3
	menuPromptText     = "Please choose an option:"
)

// MenuKeyboard lays tokens out as an inline keyboard, itemsPerRow buttons per
// row. Each button is labeled with the token's display name and carries the
// raw token as callback data.
func MenuKeyboard(tokens []string, itemsPerRow int) models.Payload {
	if itemsPerRow <= 0 {
		itemsPerRow = DefaultItemsPerRow
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for start := 0; start < len(tokens); start += itemsPerRow {
		end := min(start+itemsPerRow, len(tokens))

		row := make([]tgbotapi.InlineKeyboardButton, 0, end-start)
		for _, token := range tokens[start:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(models.DisplayName(token), token))
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return models.TextPayload("No commands available.")
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return models.Payload{Text: menuPromptText, ReplyMarkup: &markup}
}
