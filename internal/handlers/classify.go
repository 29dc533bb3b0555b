package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/cmdbot/internal/classifier"
	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/models"
)

// NewClassify binds /classify, which asks for a text and replies with its
// category, tags and summary.
func NewClassify(registry *command.Registry, clf classifier.Classifier) (*command.Table, error) {
	table := command.NewTable("classify", registry)

	action := func(ctx context.Context, args command.Args) ([]models.Payload, error) {
		result, err := clf.Classify(ctx, args.String("text"))
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
		return []models.Payload{formatClassification(result)}, nil
	}

	if err := table.Bind(command.Definition{
		Name:        "/classify",
		Menu:        MenuTools,
		Args:        []string{"text"},
		Asks:        []string{"Send me the text to classify."},
		Description: "Classify a note",
	}, action); err != nil {
		return nil, err
	}
	return table, nil
}

func formatClassification(result classifier.Result) models.Payload {
	text := fmt.Sprintf("*Category:* %s\n", escapeMarkdown(hashtag(result.Category)))
	if len(result.Keywords) > 0 {
		tags := make([]string, len(result.Keywords))
		for i, tag := range result.Keywords {
			tags[i] = escapeMarkdown(hashtag(tag))
		}
		text += fmt.Sprintf("*Tags:* %s\n", strings.Join(tags, " "))
	}
	if result.Summary != "" {
		text += fmt.Sprintf("\n*Summary:* %s", escapeMarkdown(result.Summary))
	}

	return models.Payload{Text: text, ParseMode: parseModeMarkdownV2}
}
