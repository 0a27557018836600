package quizgen

import (
	"context"
	"errors"
	"sync"

	"ash-trivia/internal/domain"
)

// MockQuestionModel returns canned replies in FIFO order and records every
// prompt it was given. Once drained it fails like an unavailable provider.
type MockQuestionModel struct {
	mu      sync.Mutex
	replies []string
	Calls   []domain.PromptContext
}

func NewMockQuestionModel(replies ...string) *MockQuestionModel {
	return &MockQuestionModel{replies: replies}
}

func (m *MockQuestionModel) Push(replies ...string) {
	m.mu.Lock()
	m.replies = append(m.replies, replies...)
	m.mu.Unlock()
}

func (m *MockQuestionModel) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, pc)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.replies) == 0 {
		return "", classify("mock", 0, errors.New("no canned replies left"))
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *MockQuestionModel) Name() string { return "mock" }

var _ domain.QuestionModel = (*MockQuestionModel)(nil)
