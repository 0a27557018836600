package quizgen

import (
	"context"
	"errors"
	"fmt"

	"ash-trivia/internal/domain"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIQuestionModel also serves OpenAI compatible APIs through baseURL.
type OpenAIQuestionModel struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIQuestionModel(apiKey, model, baseURL string, maxTokens int) (*OpenAIQuestionModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIQuestionModel{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (m *OpenAIQuestionModel) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	system, user := buildPrompt(pc)
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: m.maxTokens,
		ResponseFormat:      &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", classify("openai", apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", classify("openai", reqErr.HTTPStatusCode, err)
		}
		return "", classify("openai", 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", classify("openai", 0, fmt.Errorf("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *OpenAIQuestionModel) Name() string { return "openai:" + m.model }

var _ domain.QuestionModel = (*OpenAIQuestionModel)(nil)
