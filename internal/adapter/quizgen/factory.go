package quizgen

import (
	"context"
	"fmt"

	"ash-trivia/internal/config"
	"ash-trivia/internal/domain"

	"go.uber.org/zap"
)

// New creates the question model selected by cfg.Provider. An empty or
// "none" provider disables AI generation and returns a nil model.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (domain.QuestionModel, error) {
	var (
		model domain.QuestionModel
		err   error
	)
	switch cfg.Provider {
	case "", "none":
		logger.Info("No question model configured, generation is template only")
		return nil, nil
	case "ollama":
		model, err = NewOllamaQuestionModel(cfg.Ollama.ServerURL, cfg.Ollama.Model, cfg.MaxTokens, logger)
	case "openai":
		model, err = NewOpenAIQuestionModel(cfg.OpenAI.APIKey, cfg.OpenAI.Model, "", cfg.MaxTokens)
	case "anthropic":
		model, err = NewAnthropicQuestionModel(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.MaxTokens)
	case "gemini":
		model, err = NewGeminiQuestionModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, "", cfg.MaxTokens)
	case "mock":
		model = NewMockQuestionModel()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s question model: %w", cfg.Provider, err)
	}
	logger.Info("Question model ready", zap.String("model", model.Name()))
	return model, nil
}
