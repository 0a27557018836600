package handler_test

import (
	"context"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/service"

	"github.com/stretchr/testify/mock"
)

// --- MockSessionService ---
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) StartSession(ctx context.Context, questionID int64, actor string, duration time.Duration) (*domain.Session, error) {
	args := m.Called(ctx, questionID, actor, duration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) SubmitAnswer(ctx context.Context, sessionID int64, userID, raw string) (*domain.AnswerSubmission, error) {
	args := m.Called(ctx, sessionID, userID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnswerSubmission), args.Error(1)
}

func (m *MockSessionService) CloseSession(ctx context.Context, sessionID int64, actor string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) ScoreSession(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResultsSummary), args.Error(1)
}

func (m *MockSessionService) Results(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResultsSummary), args.Error(1)
}

func (m *MockSessionService) GetActiveSession(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) ListAnswers(ctx context.Context, sessionID int64) ([]*domain.AnswerSubmission, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnswerSubmission), args.Error(1)
}

// --- MockQuestionService ---
type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) AddManual(ctx context.Context, in service.ManualQuestion) (*domain.Question, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockQuestionService) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockQuestionService) ListQuestions(ctx context.Context, status domain.QuestionStatus, limit int) ([]*domain.Question, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockQuestionService) GenerateApproved(ctx context.Context) (*domain.Question, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

// --- MockRoundService ---
type MockRoundService struct {
	mock.Mock
}

func (m *MockRoundService) RunRound(ctx context.Context, actor string) (*domain.ResultsSummary, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResultsSummary), args.Error(1)
}

func (m *MockRoundService) Running() bool {
	return m.Called().Bool(0)
}

// --- MockGameStore ---
type MockGameStore struct {
	mock.Mock
}

func (m *MockGameStore) UpsertGame(ctx context.Context, g *domain.Game) (int64, error) {
	args := m.Called(ctx, g)
	return args.Get(0).(int64), args.Error(1)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
