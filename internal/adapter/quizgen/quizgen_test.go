package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ash-trivia/internal/config"
	"ash-trivia/internal/domain"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const questionJSON = `{"question_text":"Which game has the most episodes?","question_type":"single_answer","correct_answer":"Elden Ring"}`

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llms.ContentResponse), args.Error(1)
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func samplePrompt() domain.PromptContext {
	return domain.PromptContext{
		Games: []domain.Game{
			{CanonicalName: "Elden Ring", Genre: "Action RPG", TotalEpisodes: 60, TotalPlaytimeMinutes: 125, CompletionStatus: domain.CompletionCompleted},
		},
		AvoidCategories: []string{"playtime"},
		RecentQuestions: []string{"Which game took longest?"},
	}
}

func TestBuildPrompt(t *testing.T) {
	system, user := buildPrompt(samplePrompt())
	assert.Contains(t, system, `"question_text"`)
	assert.NotContains(t, system, "could not be parsed")
	assert.Contains(t, user, "Elden Ring, Action RPG, 60 episodes, 2h05m played, completed")
	assert.Contains(t, user, "Avoid these categories: playtime")
	assert.Contains(t, user, "- Which game took longest?")

	pc := samplePrompt()
	pc.Strict = true
	system, _ = buildPrompt(pc)
	assert.Contains(t, system, "could not be parsed")
}

func TestOllamaQuestionModel_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		llm := new(MockLLM)
		m := &OllamaQuestionModel{llm: llm, model: "qwen3", logger: zap.NewNop()}
		llm.On("GenerateContent", ctx, mock.MatchedBy(func(msgs []llms.MessageContent) bool {
			return len(msgs) == 2 && msgs[0].Role == llms.ChatMessageTypeSystem && msgs[1].Role == llms.ChatMessageTypeHuman
		})).Return(&llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: questionJSON}}}, nil).Once()

		out, err := m.Generate(ctx, samplePrompt())
		require.NoError(t, err)
		assert.Equal(t, questionJSON, out)
		llm.AssertExpectations(t)
	})

	t.Run("client error is a provider error", func(t *testing.T) {
		llm := new(MockLLM)
		m := &OllamaQuestionModel{llm: llm, model: "qwen3", logger: zap.NewNop()}
		llm.On("GenerateContent", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Once()

		_, err := m.Generate(ctx, samplePrompt())
		assert.True(t, domain.IsCode(err, domain.ErrProvider))
		assert.ErrorIs(t, err, errUnavailable)
	})

	t.Run("empty choices", func(t *testing.T) {
		llm := new(MockLLM)
		m := &OllamaQuestionModel{llm: llm, model: "qwen3", logger: zap.NewNop()}
		llm.On("GenerateContent", ctx, mock.Anything).Return(&llms.ContentResponse{}, nil).Once()

		_, err := m.Generate(ctx, samplePrompt())
		assert.Error(t, err)
	})
}

func TestNewOllamaQuestionModel_Validation(t *testing.T) {
	_, err := NewOllamaQuestionModel("", "qwen3", 0, zap.NewNop())
	assert.ErrorContains(t, err, "server URL cannot be empty")
	_, err = NewOllamaQuestionModel("http://localhost:11434", "", 0, zap.NewNop())
	assert.ErrorContains(t, err, "model name cannot be empty")
}

func newOpenAIServer(t *testing.T, status int, body map[string]any) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func TestOpenAIQuestionModel_Generate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		url := newOpenAIServer(t, http.StatusOK, map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": questionJSON},
				"finish_reason": "stop",
			}},
		})
		m, err := NewOpenAIQuestionModel("test-key", "gpt-4o-mini", url, 256)
		require.NoError(t, err)

		out, err := m.Generate(context.Background(), samplePrompt())
		require.NoError(t, err)
		assert.Equal(t, questionJSON, out)
		assert.Equal(t, "openai:gpt-4o-mini", m.Name())
	})

	t.Run("rate limit", func(t *testing.T) {
		url := newOpenAIServer(t, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"type": "tokens", "message": "Rate limit exceeded", "code": "rate_limit_exceeded"},
		})
		m, err := NewOpenAIQuestionModel("test-key", "gpt-4o-mini", url, 256)
		require.NoError(t, err)

		_, err = m.Generate(context.Background(), samplePrompt())
		assert.True(t, domain.IsCode(err, domain.ErrProvider))
		assert.True(t, IsRateLimited(err))
	})

	t.Run("server error", func(t *testing.T) {
		url := newOpenAIServer(t, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"type": "server_error", "message": "Internal server error"},
		})
		m, err := NewOpenAIQuestionModel("test-key", "gpt-4o-mini", url, 256)
		require.NoError(t, err)

		_, err = m.Generate(context.Background(), samplePrompt())
		assert.ErrorIs(t, err, errUnavailable)
		assert.False(t, IsRateLimited(err))
	})

	_, err := NewOpenAIQuestionModel("", "gpt-4o-mini", "", 0)
	assert.Error(t, err)
}

func TestAnthropicQuestionModel_Generate(t *testing.T) {
	var gotSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if sys, ok := body["system"].([]any); ok && len(sys) > 0 {
			gotSystem, _ = sys[0].(map[string]any)["text"].(string)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": questionJSON}},
			"model":       "claude-3-5-haiku-latest",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	}))
	t.Cleanup(server.Close)

	m, err := NewAnthropicQuestionModel("test-key", "claude-3-5-haiku-latest", 256,
		option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), samplePrompt())
	require.NoError(t, err)
	assert.Equal(t, questionJSON, out)
	assert.True(t, strings.HasPrefix(gotSystem, "You write trivia questions"))

	_, err = NewAnthropicQuestionModel("", "claude", 0)
	assert.Error(t, err)
}

func TestAnthropicQuestionModel_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	t.Cleanup(server.Close)

	m, err := NewAnthropicQuestionModel("test-key", "claude", 256, option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), samplePrompt())
	assert.True(t, IsRateLimited(err))
}

func TestMockQuestionModel(t *testing.T) {
	m := NewMockQuestionModel("first")
	m.Push("second")
	ctx := context.Background()

	out, err := m.Generate(ctx, domain.PromptContext{})
	require.NoError(t, err)
	assert.Equal(t, "first", out)
	out, err = m.Generate(ctx, domain.PromptContext{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	_, err = m.Generate(ctx, domain.PromptContext{})
	assert.True(t, domain.IsCode(err, domain.ErrProvider))
	require.Len(t, m.Calls, 3)
	assert.True(t, m.Calls[1].Strict)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	m, err := New(ctx, config.LLMConfig{Provider: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = New(ctx, config.LLMConfig{Provider: "mock"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Name())

	_, err = New(ctx, config.LLMConfig{Provider: "openai"}, logger)
	assert.ErrorContains(t, err, "API key is required")

	_, err = New(ctx, config.LLMConfig{Provider: "gemini", Gemini: config.ProviderConfig{Model: "gemini-2.0-flash"}}, logger)
	assert.Error(t, err)

	_, err = New(ctx, config.LLMConfig{Provider: "clippy"}, logger)
	assert.ErrorContains(t, err, "unknown LLM provider")
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("x", 0, context.Canceled), context.Canceled)
	assert.False(t, domain.IsCode(classify("x", 0, context.Canceled), domain.ErrProvider))

	err := classify("x", http.StatusBadRequest, errors.New("bad request"))
	assert.True(t, domain.IsCode(err, domain.ErrProvider))
	assert.NotErrorIs(t, err, errUnavailable)
	assert.False(t, IsRateLimited(err))
}
