package service

import (
	"context"
	"fmt"
	"strings"

	"ash-trivia/internal/approval"
	"ash-trivia/internal/domain"

	"go.uber.org/zap"
)

// QuestionGenerator produces an unsaved question from a game snapshot.
type QuestionGenerator interface {
	Generate(ctx context.Context, snapshot *domain.GameSnapshot) (*domain.QuestionPayload, error)
}

// ApprovalRunner runs one approval conversation to its end.
type ApprovalRunner interface {
	Run(ctx context.Context, approverID string, q *domain.Question) (*approval.Result, error)
}

// ManualQuestion is a question typed in by a moderator.
type ManualQuestion struct {
	Text            string
	Answer          string
	Category        string
	DifficultyLevel int
	Type            domain.QuestionType
	Choices         []string
}

// QuestionService moves questions from generation through approval into
// the pool sessions draw from.
type QuestionService struct {
	repo             domain.TriviaRepository
	games            domain.GameSource
	generator        QuestionGenerator
	approvals        ApprovalRunner
	approverID       string
	maxRegenerations int
	logger           *zap.Logger
}

// NewQuestionService wires the service. With an empty approverID generated
// questions are made available without a conversation.
func NewQuestionService(
	repo domain.TriviaRepository,
	games domain.GameSource,
	generator QuestionGenerator,
	approvals ApprovalRunner,
	approverID string,
	maxRegenerations int,
	logger *zap.Logger,
) *QuestionService {
	if maxRegenerations < 0 {
		maxRegenerations = 0
	}
	return &QuestionService{
		repo:             repo,
		games:            games,
		generator:        generator,
		approvals:        approvals,
		approverID:       approverID,
		maxRegenerations: maxRegenerations,
		logger:           logger,
	}
}

// Generate creates a question and stores it as pending approval.
func (s *QuestionService) Generate(ctx context.Context) (*domain.Question, error) {
	snapshot, err := s.games.Snapshot(ctx)
	if err != nil {
		return nil, domain.NewInternalError("failed to load game data", err)
	}
	p, err := s.generator.Generate(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	q := domain.NewQuestion(p)
	if _, err := s.repo.AddQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("store generated question: %w", err)
	}
	s.logger.Info("Generated question stored",
		zap.Int64("question_id", q.ID),
		zap.String("source", string(q.Source)),
		zap.String("category", q.Category))
	return q, nil
}

// RequestApproval asks the configured approver about q and blocks until the
// conversation ends.
func (s *QuestionService) RequestApproval(ctx context.Context, q *domain.Question) (*approval.Result, error) {
	if s.approverID == "" || s.approvals == nil {
		ok, err := s.repo.SetQuestionStatus(ctx, q.ID, domain.QuestionStatusAvailable)
		if err != nil {
			return nil, domain.NewInternalError("failed to approve question", err)
		}
		if !ok {
			return nil, domain.NewQuestionNotFoundError(q.ID)
		}
		q.Status = domain.QuestionStatusAvailable
		s.logger.Info("No approver configured, question made available", zap.Int64("question_id", q.ID))
		return &approval.Result{State: approval.StateAccepted, Question: q}, nil
	}
	return s.approvals.Run(ctx, s.approverID, q)
}

// GenerateApproved generates questions until one is approved, regenerating
// after each rejection up to the configured limit.
func (s *QuestionService) GenerateApproved(ctx context.Context) (*domain.Question, error) {
	for attempt := 0; attempt <= s.maxRegenerations; attempt++ {
		q, err := s.Generate(ctx)
		if err != nil {
			return nil, err
		}
		res, err := s.RequestApproval(ctx, q)
		if err != nil {
			return nil, err
		}
		if res.State != approval.StateRejected {
			return res.Question, nil
		}
		s.logger.Info("Question rejected, generating another",
			zap.Int64("question_id", q.ID), zap.Int("attempt", attempt+1))
	}
	return nil, domain.NewGenerationFailure(
		fmt.Sprintf("all %d generated questions were rejected", s.maxRegenerations+1), nil)
}

// AddManual stores a moderator's question. It skips approval and is
// available at once.
func (s *QuestionService) AddManual(ctx context.Context, in ManualQuestion) (*domain.Question, error) {
	q := domain.NewQuestion(&domain.QuestionPayload{
		Text:            in.Text,
		Type:            in.Type,
		CorrectAnswer:   in.Answer,
		Category:        strings.ToLower(strings.TrimSpace(in.Category)),
		DifficultyLevel: in.DifficultyLevel,
		Source:          domain.QuestionSourceManual,
		Choices:         in.Choices,
	})
	if q.Category == "" {
		q.Category = "general"
	}
	q.Status = domain.QuestionStatusAvailable
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.AddQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("store manual question: %w", err)
	}
	s.logger.Info("Manual question added", zap.Int64("question_id", q.ID))
	return q, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("failed to load question", err)
	}
	if q == nil {
		return nil, domain.NewQuestionNotFoundError(id)
	}
	return q, nil
}

func (s *QuestionService) ListQuestions(ctx context.Context, status domain.QuestionStatus, limit int) ([]*domain.Question, error) {
	qs, err := s.repo.ListQuestionsByStatus(ctx, status, limit)
	if err != nil {
		return nil, domain.NewInternalError("failed to list questions", err)
	}
	return qs, nil
}
