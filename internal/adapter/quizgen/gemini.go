package quizgen

import (
	"context"
	"errors"
	"fmt"

	"ash-trivia/internal/domain"

	"google.golang.org/genai"
)

type GeminiQuestionModel struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiQuestionModel creates a Gemini API client. baseURL overrides the
// endpoint and is empty in production.
func NewGeminiQuestionModel(ctx context.Context, apiKey, model, baseURL string, maxTokens int) (*GeminiQuestionModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model name cannot be empty")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiQuestionModel{client: client, model: model, maxTokens: maxTokens}, nil
}

func (m *GeminiQuestionModel) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	system, user := buildPrompt(pc)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
	}
	if m.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(m.maxTokens)
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: user}}},
	}, cfg)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", classify("gemini", apiErr.Code, err)
		}
		return "", classify("gemini", 0, err)
	}
	text := result.Text()
	if text == "" {
		return "", classify("gemini", 0, fmt.Errorf("empty response"))
	}
	return text, nil
}

func (m *GeminiQuestionModel) Name() string { return "gemini:" + m.model }

var _ domain.QuestionModel = (*GeminiQuestionModel)(nil)
