package quizgen

import (
	"context"
	"fmt"

	"ash-trivia/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// OllamaQuestionModel asks a local Ollama server through langchaingo.
type OllamaQuestionModel struct {
	llm       llms.Model
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewOllamaQuestionModel(serverURL, model string, maxTokens int, logger *zap.Logger) (*OllamaQuestionModel, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("ollama server URL cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model name cannot be empty")
	}
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	logger.Info("Initialized ollama question model", zap.String("model", model), zap.String("server_url", serverURL))
	return &OllamaQuestionModel{llm: llm, model: model, maxTokens: maxTokens, logger: logger}, nil
}

func (m *OllamaQuestionModel) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	system, user := buildPrompt(pc)
	opts := []llms.CallOption{llms.WithTemperature(0.7)}
	if pc.Strict {
		opts[0] = llms.WithTemperature(0.1)
	}
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}

	resp, err := m.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}, opts...)
	if err != nil {
		m.logger.Error("Ollama request failed", zap.String("model", m.model), zap.Error(err))
		return "", classify("ollama", 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", classify("ollama", 0, fmt.Errorf("empty response"))
	}
	return resp.Choices[0].Content, nil
}

func (m *OllamaQuestionModel) Name() string { return "ollama:" + m.model }

var _ domain.QuestionModel = (*OllamaQuestionModel)(nil)
