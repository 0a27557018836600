package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ash-trivia/internal/domain"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicQuestionModel struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicQuestionModel builds a Messages API client. opts are appended
// after the API key, e.g. option.WithBaseURL.
func NewAnthropicQuestionModel(apiKey, model string, maxTokens int, opts ...option.RequestOption) (*AnthropicQuestionModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicQuestionModel{client: &client, model: model, maxTokens: maxTokens}, nil
}

func (m *AnthropicQuestionModel) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	system, user := buildPrompt(pc)
	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: int64(m.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classify("anthropic", apiErr.StatusCode, err)
		}
		return "", classify("anthropic", 0, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", classify("anthropic", 0, fmt.Errorf("no text content in response"))
	}
	return b.String(), nil
}

func (m *AnthropicQuestionModel) Name() string { return "anthropic:" + m.model }

var _ domain.QuestionModel = (*AnthropicQuestionModel)(nil)
