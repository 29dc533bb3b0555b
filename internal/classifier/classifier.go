package classifier

import (
	"context"
	"slices"
	"strings"
)

const defaultCategory = "general"

// Result is the outcome of classifying a piece of text.
type Result struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
}

type Classifier interface {
	Classify(ctx context.Context, content string) (Result, error)
}

var categoryKeywords = map[string][]string{
	"work":      {"project", "meeting", "deadline", "task", "report"},
	"personal":  {"family", "friend", "home", "birthday", "holiday"},
	"shopping":  {"buy", "purchase", "store", "shop", "price"},
	"education": {"study", "learn", "course", "book", "homework"},
	"travel":    {"trip", "flight", "hotel", "vacation", "booking"},
}

// SimpleClassifier extracts hashtags and matches a fixed keyword table.
type SimpleClassifier struct {
	maxTags int
}

func NewSimpleClassifier(maxTags int) *SimpleClassifier {
	if maxTags <= 0 {
		maxTags = 5
	}
	return &SimpleClassifier{maxTags: maxTags}
}

func (c *SimpleClassifier) Classify(_ context.Context, content string) (Result, error) {
	tags := make(map[string]struct{})

	for _, word := range strings.Fields(content) {
		if tag, ok := strings.CutPrefix(word, "#"); ok {
			if tag = strings.ToLower(tag); tag != "" {
				tags[tag] = struct{}{}
			}
		}
	}

	lower := strings.ToLower(content)
	var categories []string
	for category, keywords := range categoryKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				tags[category] = struct{}{}
				categories = append(categories, category)
				break
			}
		}
	}

	keywords := make([]string, 0, len(tags))
	for tag := range tags {
		keywords = append(keywords, tag)
	}
	slices.Sort(keywords)
	if len(keywords) > c.maxTags {
		keywords = keywords[:c.maxTags]
	}

	category := defaultCategory
	if len(categories) > 0 {
		slices.Sort(categories)
		category = categories[0]
	}

	return Result{
		Category: category,
		Keywords: keywords,
		Summary:  strings.TrimSpace(content),
	}, nil
}
