package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const analysisPrompt = `Analyze the following content and provide a structured analysis with:
- A single main category
- Relevant keywords/tags (max %d)
- A brief summary

Return the response as a JSON object with this structure:
{
    "category": "main_category",
    "keywords": ["keyword1", "keyword2", ...],
    "summary": "brief_summary"
}

Content: %s`

type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxTags     int
}

// GPTClassifier asks a chat completion model for a structured analysis and
// falls back to keyword matching when the model is unreachable or answers
// with something that is not the expected JSON.
type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	maxTags     int
	fallback    Classifier
	logger      *zap.Logger
}

func NewGPTClassifier(cfg GPTConfig, logger *zap.Logger) *GPTClassifier {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	return &GPTClassifier{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxTags:     cfg.MaxTags,
		fallback:    NewSimpleClassifier(cfg.MaxTags),
		logger:      logger.Named("classifier"),
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, content string) (Result, error) {
	result, err := c.analyze(ctx, content)
	if err != nil {
		c.logger.Error("Failed to get GPT analysis, using keyword fallback", zap.Error(err))
		return c.fallback.Classify(ctx, content)
	}
	return result, nil
}

func (c *GPTClassifier) analyze(ctx context.Context, content string) (Result, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(analysisPrompt, c.maxTags, content),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completion returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	var result Result
	if err := json.Unmarshal([]byte(answer), &result); err != nil {
		return Result{}, fmt.Errorf("parse analysis %q: %w", answer, err)
	}

	result.Category = strings.ToLower(strings.TrimSpace(result.Category))
	if result.Category == "" {
		result.Category = defaultCategory
	}
	if c.maxTags > 0 && len(result.Keywords) > c.maxTags {
		result.Keywords = result.Keywords[:c.maxTags]
	}
	return result, nil
}
