package service

import (
	"context"
	"sync/atomic"
	"time"

	"ash-trivia/internal/domain"

	"go.uber.org/zap"
)

const roundFinishTimeout = 30 * time.Second

// RoundRunner plays complete rounds: pick or generate a question, run a
// session for the configured duration, then close and score it.
type RoundRunner struct {
	repo      domain.TriviaRepository
	sessions  *SessionManager
	questions *QuestionService
	duration  time.Duration
	logger    *zap.Logger

	running atomic.Bool
}

func NewRoundRunner(repo domain.TriviaRepository, sessions *SessionManager, questions *QuestionService, duration time.Duration, logger *zap.Logger) *RoundRunner {
	return &RoundRunner{
		repo:      repo,
		sessions:  sessions,
		questions: questions,
		duration:  duration,
		logger:    logger,
	}
}

// RunRound plays one round and returns its results. Only one round runs at
// a time. If ctx ends mid-round the session is still closed and scored.
func (r *RoundRunner) RunRound(ctx context.Context, actor string) (*domain.ResultsSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, domain.NewConflictError("a trivia round is already running")
	}
	defer r.running.Store(false)

	q, err := r.repo.NextAvailableQuestion(ctx)
	if err != nil {
		return nil, domain.NewInternalError("failed to pick a question", err)
	}
	if q == nil {
		r.logger.Info("No available question, generating one")
		if q, err = r.questions.GenerateApproved(ctx); err != nil {
			return nil, err
		}
	}

	s, err := r.sessions.StartSession(ctx, q.ID, actor, 0)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.duration)
	defer timer.Stop()
	closedEarly := false
	select {
	case <-timer.C:
	case <-r.sessions.Closed(s.ID):
		closedEarly = true
	case <-ctx.Done():
		r.logger.Warn("Round interrupted, finishing session early", zap.Int64("session_id", s.ID))
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), roundFinishTimeout)
	defer cancel()
	if !closedEarly {
		if _, err := r.sessions.CloseSession(finishCtx, s.ID, domain.ActorRunner); err != nil && !domain.IsCode(err, domain.ErrInvalidState) {
			return nil, err
		}
	}
	summary, err := r.sessions.ScoreSession(finishCtx, s.ID)
	if domain.IsCode(err, domain.ErrInvalidState) {
		// Someone else scored the session first; their results stand.
		r.logger.Info("Round session already scored", zap.Int64("session_id", s.ID))
		return r.sessions.Results(finishCtx, s.ID)
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Running reports whether a round is in progress.
func (r *RoundRunner) Running() bool {
	return r.running.Load()
}

// Start plays a round every interval until ctx is done. A non-positive
// interval disables scheduled rounds and Start just waits for ctx.
func (r *RoundRunner) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	r.logger.Info("Scheduled trivia rounds enabled", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			summary, err := r.RunRound(ctx, domain.ActorRunner)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("Scheduled trivia round failed", zap.Error(err))
				continue
			}
			r.logger.Info("Scheduled trivia round finished",
				zap.Int64("session_id", summary.SessionID),
				zap.Int("participants", summary.ParticipantCount),
				zap.Strings("winners", summary.Winners))
		}
	}
}
