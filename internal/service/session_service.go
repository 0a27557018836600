package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/evaluator"

	"go.uber.org/zap"
)

const autoCloseTimeout = 30 * time.Second

// AnswerResolver re-evaluates the answer rule of a dynamic question.
type AnswerResolver interface {
	ResolveAnswer(rule *domain.AnswerRule, snapshot *domain.GameSnapshot) (string, error)
}

// AnswerEvaluator classifies a submitted answer.
type AnswerEvaluator interface {
	Evaluate(userAnswer, normalizedAnswer, correctAnswer string) evaluator.Result
}

// tracked is the in-process bookkeeping for a session this process started.
type tracked struct {
	questionType domain.QuestionType
	timer        *time.Timer
	closed       chan struct{}
}

// SessionManager owns the single active trivia session. The database holds
// the authoritative state; the manager adds timers and close notifications
// for the sessions it started.
type SessionManager struct {
	repo      domain.TriviaRepository
	games     domain.GameSource
	resolver  AnswerResolver
	evaluator AnswerEvaluator
	results   ResultsCache
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*tracked
}

// NewSessionManager wires a manager. games should read live data: dynamic
// answers are frozen from it when a session starts.
func NewSessionManager(repo domain.TriviaRepository, games domain.GameSource, resolver AnswerResolver, eval AnswerEvaluator, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		repo:      repo,
		games:     games,
		resolver:  resolver,
		evaluator: eval,
		results:   noopResultsCache{},
		logger:    logger,
		sessions:  make(map[int64]*tracked),
	}
}

// UseResultsCache makes scored summaries available through Results without
// touching the database.
func (m *SessionManager) UseResultsCache(rc ResultsCache) {
	m.results = rc
}

// StartSession opens a session for an available question. When duration is
// positive the session is closed and scored automatically once it elapses.
func (m *SessionManager) StartSession(ctx context.Context, questionID int64, actor string, duration time.Duration) (*domain.Session, error) {
	active, err := m.repo.GetActiveSession(ctx)
	if err != nil {
		return nil, domain.NewInternalError("failed to check for an active session", err)
	}
	if active != nil {
		return nil, domain.NewConflictError(fmt.Sprintf("session %d is already active", active.ID))
	}

	q, err := m.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load question", err)
	}
	if q == nil {
		return nil, domain.NewQuestionNotFoundError(questionID)
	}
	if q.Status != domain.QuestionStatusAvailable {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("question %d is %s, not available", q.ID, q.Status))
	}

	answer, err := m.freezeAnswer(ctx, q)
	if err != nil {
		return nil, err
	}

	id, err := m.repo.CreateSession(ctx, q.ID, answer, actor)
	if err != nil {
		return nil, err
	}
	s, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("failed to load new session", err)
	}
	if s == nil {
		return nil, domain.NewSessionNotFoundError(id)
	}

	t := &tracked{questionType: q.Type, closed: make(chan struct{})}
	if duration > 0 {
		t.timer = time.AfterFunc(duration, func() { m.autoClose(id) })
	}
	m.mu.Lock()
	m.sessions[id] = t
	m.mu.Unlock()

	m.logger.Info("Trivia session started",
		zap.Int64("session_id", id),
		zap.Int64("question_id", q.ID),
		zap.String("actor", actor),
		zap.Bool("dynamic", q.IsDynamic),
		zap.Duration("duration", duration))
	return s, nil
}

// freezeAnswer computes the answer the session is judged against. Dynamic
// questions are resolved against the current game data; when that fails the
// answer stored with the question is used if there is one.
func (m *SessionManager) freezeAnswer(ctx context.Context, q *domain.Question) (string, error) {
	if !q.IsDynamic || q.AnswerRule == nil {
		return q.CorrectAnswer, nil
	}
	snapshot, err := m.games.Snapshot(ctx)
	if err == nil {
		var answer string
		answer, err = m.resolver.ResolveAnswer(q.AnswerRule, snapshot)
		if err == nil && strings.TrimSpace(answer) != "" {
			if answer != q.CorrectAnswer {
				m.logger.Info("Dynamic answer changed since approval",
					zap.Int64("question_id", q.ID),
					zap.String("approved", q.CorrectAnswer),
					zap.String("current", answer))
			}
			return answer, nil
		}
	}
	if strings.TrimSpace(q.CorrectAnswer) != "" {
		m.logger.Warn("Could not resolve dynamic answer, using the stored one",
			zap.Int64("question_id", q.ID), zap.Error(err))
		return q.CorrectAnswer, nil
	}
	return "", domain.NewError(domain.ErrInvalidState,
		fmt.Sprintf("question %d has no resolvable answer", q.ID), err)
}

// SubmitAnswer evaluates and stores one user's answer. It returns at once
// with the evaluation; a second answer from the same user is rejected.
func (m *SessionManager) SubmitAnswer(ctx context.Context, sessionID int64, userID, raw string) (*domain.AnswerSubmission, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewInvalidInputError("user_id is required")
	}
	if strings.TrimSpace(raw) == "" {
		return nil, domain.NewInvalidInputError("answer is required")
	}

	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load session", err)
	}
	if s == nil {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	if s.Status != domain.SessionStatusActive {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("session %d is %s, answers are no longer accepted", sessionID, s.Status))
	}

	qt, err := m.questionType(ctx, s)
	if err != nil {
		return nil, err
	}
	normalized := evaluator.Normalize(raw, qt)
	res := m.evaluator.Evaluate(raw, normalized, s.CalculatedAnswer)

	a := &domain.AnswerSubmission{
		SessionID:        sessionID,
		UserID:           userID,
		RawAnswer:        raw,
		NormalizedAnswer: normalized,
		IsCorrect:        res.IsCorrect,
		IsClose:          res.IsClose,
		MatchType:        res.MatchType,
		SubmittedAt:      time.Now().UTC(),
	}
	if _, err := m.repo.SubmitAnswer(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Debug("Answer recorded",
		zap.Int64("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("match_type", string(res.MatchType)),
		zap.Bool("correct", res.IsCorrect),
		zap.Bool("close", res.IsClose))
	return a, nil
}

func (m *SessionManager) questionType(ctx context.Context, s *domain.Session) (domain.QuestionType, error) {
	m.mu.Lock()
	t, ok := m.sessions[s.ID]
	m.mu.Unlock()
	if ok {
		return t.questionType, nil
	}
	q, err := m.repo.GetQuestion(ctx, s.QuestionID)
	if err != nil {
		return "", domain.NewInternalError("failed to load question", err)
	}
	if q == nil {
		return domain.QuestionTypeSingleAnswer, nil
	}
	return q.Type, nil
}

// CloseSession stops answer collection. Only an active session can close.
func (m *SessionManager) CloseSession(ctx context.Context, sessionID int64, actor string) (*domain.Session, error) {
	ok, err := m.repo.CloseSession(ctx, sessionID, actor)
	if err != nil {
		return nil, domain.NewInternalError("failed to close session", err)
	}
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load session", err)
	}
	if s == nil {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	if !ok {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("session %d is %s, only active sessions can be closed", sessionID, s.Status))
	}

	m.mu.Lock()
	if t, found := m.sessions[sessionID]; found {
		if t.timer != nil {
			t.timer.Stop()
		}
		close(t.closed)
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	m.logger.Info("Trivia session closed", zap.Int64("session_id", sessionID), zap.String("actor", actor))
	return s, nil
}

// ScoreSession aggregates a closed session. Scoring twice fails with
// INVALID_STATE and leaves the first results untouched.
func (m *SessionManager) ScoreSession(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	summary, err := m.repo.ScoreSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Trivia session scored",
		zap.Int64("session_id", sessionID),
		zap.Int64("question_id", summary.QuestionID),
		zap.Int("participants", summary.ParticipantCount),
		zap.Int("correct", summary.CorrectCount),
		zap.Int("close", summary.CloseCount))
	if err := m.results.Put(ctx, summary); err != nil {
		m.logger.Warn("Failed to cache session results", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	return summary, nil
}

// Results returns the standings of a scored session.
func (m *SessionManager) Results(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	if summary, err := m.results.Get(ctx, sessionID); err == nil {
		return summary, nil
	} else if !errors.Is(err, ErrResultsNotCached) {
		m.logger.Warn("Results cache read failed", zap.Int64("session_id", sessionID), zap.Error(err))
	}

	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != domain.SessionStatusScored {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("session %d is %s, results exist once it is scored", sessionID, s.Status))
	}
	q, err := m.repo.GetQuestion(ctx, s.QuestionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load question", err)
	}
	var text string
	if q != nil {
		text = q.Text
	}
	answers, err := m.repo.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to list answers", err)
	}
	summary := domain.Summarize(s.ID, s.QuestionID, text, s.CalculatedAnswer, answers)
	if err := m.results.Put(ctx, summary); err != nil {
		m.logger.Warn("Failed to cache session results", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	return summary, nil
}

// Closed returns a channel that is closed when this process closes the
// session. It is nil for sessions the manager did not start.
func (m *SessionManager) Closed(sessionID int64) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.sessions[sessionID]; ok {
		return t.closed
	}
	return nil
}

func (m *SessionManager) autoClose(sessionID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), autoCloseTimeout)
	defer cancel()
	log := m.logger.With(zap.Int64("session_id", sessionID))

	if _, err := m.CloseSession(ctx, sessionID, domain.ActorTimer); err != nil {
		if domain.IsCode(err, domain.ErrInvalidState) {
			log.Debug("Session already closed before its timer fired")
			return
		}
		log.Error("Failed to close session on timer", zap.Error(err))
		return
	}
	if _, err := m.ScoreSession(ctx, sessionID); err != nil && !domain.IsCode(err, domain.ErrInvalidState) {
		log.Error("Failed to score session on timer", zap.Error(err))
	}
}

// RecoverHangingSessions repairs what a previous process left behind:
// active sessions are closed, then every closed session is scored. It is
// safe to run repeatedly and returns how many active sessions were closed.
func (m *SessionManager) RecoverHangingSessions(ctx context.Context) (int, error) {
	n, err := m.repo.CleanupHangingSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup hanging sessions: %w", err)
	}
	if n > 0 {
		m.logger.Warn("Closed hanging trivia sessions left by a previous run", zap.Int("count", n))
	}

	closed, err := m.repo.ListSessionsByStatus(ctx, domain.SessionStatusClosed)
	if err != nil {
		return n, fmt.Errorf("list closed sessions: %w", err)
	}
	for _, s := range closed {
		if _, err := m.ScoreSession(ctx, s.ID); err != nil {
			m.logger.Warn("Failed to score recovered session", zap.Int64("session_id", s.ID), zap.Error(err))
		}
	}
	return n, nil
}

// Stop cancels every pending close timer. Sessions stay active in storage
// and are repaired by RecoverHangingSessions on the next start.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.sessions {
		if t.timer != nil {
			t.timer.Stop()
		}
	}
}

func (m *SessionManager) GetActiveSession(ctx context.Context) (*domain.Session, error) {
	s, err := m.repo.GetActiveSession(ctx)
	if err != nil {
		return nil, domain.NewInternalError("failed to load active session", err)
	}
	return s, nil
}

func (m *SessionManager) GetSession(ctx context.Context, sessionID int64) (*domain.Session, error) {
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load session", err)
	}
	if s == nil {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	return s, nil
}

func (m *SessionManager) ListAnswers(ctx context.Context, sessionID int64) ([]*domain.AnswerSubmission, error) {
	if _, err := m.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	answers, err := m.repo.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to list answers", err)
	}
	return answers, nil
}
