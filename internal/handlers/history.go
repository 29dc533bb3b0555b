package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/models"
	"github.com/xaenox/cmdbot/internal/storage"
)

const historyLimit = 5

// NewHistory binds /history, which lists the latest interactions of chatID.
func NewHistory(registry *command.Registry, store storage.HistoryStore, chatID int64) (*command.Table, error) {
	table := command.NewTable("history", registry)

	action := func(ctx context.Context, _ command.Args) ([]models.Payload, error) {
		interactions, err := store.RecentInteractions(ctx, chatID, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("load recent interactions: %w", err)
		}
		return []models.Payload{formatHistory(interactions)}, nil
	}

	if err := table.Bind(command.Definition{
		Name:        "/history",
		Menu:        MenuMain,
		Description: "Show recent messages",
	}, action); err != nil {
		return nil, err
	}
	return table, nil
}

func formatHistory(interactions []*models.Interaction) models.Payload {
	if len(interactions) == 0 {
		return models.TextPayload("There is no history yet.")
	}

	var b strings.Builder
	b.WriteString("*Recent interactions:*\n\n")
	for _, in := range interactions {
		fmt.Fprintf(&b, "*%s* %s\n",
			escapeMarkdown(in.Timestamp.UTC().Format("2006-01-02 15:04:05")),
			escapeMarkdown(string(in.Direction)))
		fmt.Fprintf(&b, "_%s_\n\n", escapeMarkdown(summarize(in)))
	}

	return models.Payload{Text: b.String(), ParseMode: parseModeMarkdownV2}
}

// summarize picks the human readable part of an interaction's content.
func summarize(in *models.Interaction) string {
	if in.IsPrompt {
		var prompt models.CurrentPrompt
		if err := json.Unmarshal(in.Content, &prompt); err == nil {
			return fmt.Sprintf("prompt %s (%s)", prompt.Command, in.PromptStatus)
		}
	}

	var fields map[string]any
	if err := json.Unmarshal(in.Content, &fields); err == nil {
		for _, key := range []string{"text", "data"} {
			if v, ok := fields[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return in.MessageType
}
