// Package approval runs the conversation in which a human approver accepts,
// edits or rejects a generated question before it can be played.
package approval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ash-trivia/internal/domain"

	"go.uber.org/zap"
)

type State string

const (
	StateAwaitingApprover State = "awaiting_approver"
	StateEditRequested    State = "edit_requested"
	StateAccepted         State = "accepted"
	StateRejected         State = "rejected"
	StateTimedOut         State = "timed_out"
)

type Kind string

const (
	DecisionAccept Kind = "accept"
	DecisionEdit   Kind = "edit"
	DecisionReject Kind = "reject"
)

// Decision is the approver's reply to one presentation. Text and Answer are
// only read for edits; empty fields are left unchanged.
type Decision struct {
	Kind   Kind
	Text   string
	Answer string
}

func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionAccept, DecisionReject:
		return nil
	case DecisionEdit:
		if strings.TrimSpace(d.Text) == "" && strings.TrimSpace(d.Answer) == "" {
			return domain.NewInvalidInputError("an edit must replace the question text or the answer")
		}
		return nil
	default:
		return domain.NewInvalidInputError(fmt.Sprintf("unknown decision %q", d.Kind))
	}
}

// Approver delivers a question to a human and returns a channel that yields
// at most one decision. The presentation is withdrawn when ctx is done.
type Approver interface {
	Present(ctx context.Context, approverID string, q *domain.Question) (<-chan Decision, error)
}

// QuestionStore is the part of the repository the conversation writes to.
type QuestionStore interface {
	UpdateQuestion(ctx context.Context, q *domain.Question) error
	SetQuestionStatus(ctx context.Context, id int64, status domain.QuestionStatus) (bool, error)
}

// Result is the terminal outcome of one conversation.
type Result struct {
	State    State
	Question *domain.Question
	Edits    int
}

// Coordinator runs approval conversations, at most one per approver at a
// time. Further requests for the same approver wait in arrival order.
type Coordinator struct {
	approver Approver
	store    QuestionStore
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	queues map[string]*turnQueue
}

func NewCoordinator(approver Approver, store QuestionStore, timeout time.Duration, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		approver: approver,
		store:    store,
		timeout:  timeout,
		logger:   logger,
		queues:   make(map[string]*turnQueue),
	}
}

func (c *Coordinator) queue(approverID string) *turnQueue {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queues[approverID]
	if !ok {
		q = &turnQueue{}
		c.queues[approverID] = q
	}
	return q
}

// Run presents q to approverID until it is accepted, rejected or a
// presentation times out. A timeout approves the question as it stands.
// Edits are applied to q in place and persisted before re-presenting.
func (c *Coordinator) Run(ctx context.Context, approverID string, q *domain.Question) (*Result, error) {
	turns := c.queue(approverID)
	if err := turns.acquire(ctx); err != nil {
		return nil, err
	}
	defer turns.release()

	log := c.logger.With(zap.String("approver_id", approverID), zap.Int64("question_id", q.ID))
	res := &Result{State: StateAwaitingApprover, Question: q}

	for {
		d, timedOut, err := c.present(ctx, approverID, q)
		if err != nil {
			return nil, err
		}

		switch {
		case timedOut:
			if err := c.setStatus(ctx, q, domain.QuestionStatusAvailable); err != nil {
				return nil, err
			}
			res.State = StateTimedOut
			log.Warn("Approval timed out, question auto-approved",
				zap.String("outcome", "auto_approved"),
				zap.Duration("timeout", c.timeout),
				zap.Int("edits", res.Edits))
			return res, nil

		case d.Kind == DecisionAccept:
			if err := c.setStatus(ctx, q, domain.QuestionStatusAvailable); err != nil {
				return nil, err
			}
			res.State = StateAccepted
			log.Info("Question approved", zap.String("outcome", "accepted"), zap.Int("edits", res.Edits))
			return res, nil

		case d.Kind == DecisionReject:
			if err := c.setStatus(ctx, q, domain.QuestionStatusRejected); err != nil {
				return nil, err
			}
			res.State = StateRejected
			log.Info("Question rejected", zap.String("outcome", "rejected"), zap.Int("edits", res.Edits))
			return res, nil

		case d.Kind == DecisionEdit:
			res.State = StateEditRequested
			if err := c.applyEdit(ctx, q, d); err != nil {
				return nil, err
			}
			res.Edits++
			log.Info("Question edited, presenting again", zap.Int("edits", res.Edits))
			res.State = StateAwaitingApprover
		}
	}
}

// present shows q once and waits for a decision or the timeout. Invalid
// decisions are logged and ignored; the wait continues.
func (c *Coordinator) present(ctx context.Context, approverID string, q *domain.Question) (Decision, bool, error) {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	decisions, err := c.approver.Present(pctx, approverID, q)
	if err != nil {
		return Decision{}, false, fmt.Errorf("present question %d: %w", q.ID, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		select {
		case d, ok := <-decisions:
			if !ok {
				return Decision{}, true, nil
			}
			if err := d.Validate(); err != nil {
				c.logger.Warn("Ignoring invalid approval decision", zap.Int64("question_id", q.ID), zap.Error(err))
				continue
			}
			return d, false, nil
		case <-timer.C:
			return Decision{}, true, nil
		case <-ctx.Done():
			return Decision{}, false, ctx.Err()
		}
	}
}

func (c *Coordinator) applyEdit(ctx context.Context, q *domain.Question, d Decision) error {
	if text := strings.TrimSpace(d.Text); text != "" {
		q.Text = text
	}
	if answer := strings.TrimSpace(d.Answer); answer != "" {
		q.CorrectAnswer = answer
		q.IsDynamic = false
		q.AnswerRule = nil
	}
	q.UpdatedAt = time.Now().UTC()
	if err := q.Validate(); err != nil {
		return err
	}
	if err := c.store.UpdateQuestion(ctx, q); err != nil {
		return fmt.Errorf("persist edit of question %d: %w", q.ID, err)
	}
	return nil
}

func (c *Coordinator) setStatus(ctx context.Context, q *domain.Question, status domain.QuestionStatus) error {
	ok, err := c.store.SetQuestionStatus(ctx, q.ID, status)
	if err != nil {
		return fmt.Errorf("set question %d to %s: %w", q.ID, status, err)
	}
	if !ok {
		return domain.NewQuestionNotFoundError(q.ID)
	}
	q.Status = status
	return nil
}
