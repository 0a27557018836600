package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ash-trivia/internal/approval"
	"ash-trivia/internal/domain"

	"github.com/stretchr/testify/mock"
)

// memoryRepo is an in-memory TriviaRepository with the same state rules as
// the SQL implementation.
type memoryRepo struct {
	mu        sync.Mutex
	nextID    int64
	questions map[int64]*domain.Question
	sessions  map[int64]*domain.Session
	answers   map[int64][]*domain.AnswerSubmission
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		questions: make(map[int64]*domain.Question),
		sessions:  make(map[int64]*domain.Session),
		answers:   make(map[int64][]*domain.AnswerSubmission),
	}
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) AddQuestion(_ context.Context, q *domain.Question) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q.ID = r.id()
	cp := *q
	r.questions[q.ID] = &cp
	return q.ID, nil
}

func (r *memoryRepo) GetQuestion(_ context.Context, id int64) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (r *memoryRepo) UpdateQuestion(_ context.Context, q *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.questions[q.ID]
	if !ok {
		return domain.NewQuestionNotFoundError(q.ID)
	}
	status := stored.Status
	cp := *q
	cp.Status = status
	r.questions[q.ID] = &cp
	return nil
}

func (r *memoryRepo) SetQuestionStatus(_ context.Context, id int64, status domain.QuestionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return false, nil
	}
	q.Status = status
	return true, nil
}

func (r *memoryRepo) NextAvailableQuestion(_ context.Context) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.questions))
	for id := range r.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		q := r.questions[id]
		if q.Status != domain.QuestionStatusAvailable || r.liveSessionFor(id) {
			continue
		}
		cp := *q
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryRepo) ListQuestionsByStatus(_ context.Context, status domain.QuestionStatus, limit int) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Question
	for _, q := range r.questions {
		if q.Status == status {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) liveSessionFor(questionID int64) bool {
	for _, s := range r.sessions {
		if s.QuestionID == questionID && s.Status != domain.SessionStatusScored {
			return true
		}
	}
	return false
}

func (r *memoryRepo) active() *domain.Session {
	for _, s := range r.sessions {
		if s.Status == domain.SessionStatusActive {
			return s
		}
	}
	return nil
}

func (r *memoryRepo) GetActiveSession(_ context.Context) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.active(); s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryRepo) GetSession(_ context.Context, id int64) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) ListSessionsByStatus(_ context.Context, status domain.SessionStatus) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) CreateSession(_ context.Context, questionID int64, calculatedAnswer, actor string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.active(); s != nil {
		return 0, domain.NewConflictError(fmt.Sprintf("session %d is already active", s.ID))
	}
	q, ok := r.questions[questionID]
	if !ok {
		return 0, domain.NewQuestionNotFoundError(questionID)
	}
	if q.Status != domain.QuestionStatusAvailable || r.liveSessionFor(questionID) {
		return 0, domain.NewInvalidStateError("question not available")
	}
	s := &domain.Session{
		ID:               r.id(),
		QuestionID:       questionID,
		CalculatedAnswer: calculatedAnswer,
		Status:           domain.SessionStatusActive,
		StartedAt:        time.Now().UTC(),
		StartedBy:        actor,
	}
	r.sessions[s.ID] = s
	return s.ID, nil
}

func (r *memoryRepo) CloseSession(_ context.Context, sessionID int64, actor string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Status != domain.SessionStatusActive {
		return false, nil
	}
	now := time.Now().UTC()
	s.Status = domain.SessionStatusClosed
	s.EndedAt = &now
	s.EndedBy = actor
	return true, nil
}

func (r *memoryRepo) ScoreSession(_ context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	if s.Status != domain.SessionStatusClosed {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("session %d is %s", sessionID, s.Status))
	}
	q := r.questions[s.QuestionID]
	summary := domain.Summarize(s.ID, s.QuestionID, q.Text, s.CalculatedAnswer, r.answers[sessionID])
	now := time.Now().UTC()
	s.Status = domain.SessionStatusScored
	s.ScoredAt = &now
	s.ParticipantCount = summary.ParticipantCount
	s.CorrectCount = summary.CorrectCount
	s.CloseCount = summary.CloseCount
	q.Status = domain.QuestionStatusAnswered
	return summary, nil
}

func (r *memoryRepo) CleanupHangingSessions(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.Status == domain.SessionStatusActive {
			s.Status = domain.SessionStatusClosed
			s.EndedBy = domain.ActorRecovery
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) SubmitAnswer(_ context.Context, a *domain.AnswerSubmission) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[a.SessionID]
	if !ok {
		return 0, domain.NewSessionNotFoundError(a.SessionID)
	}
	if s.Status != domain.SessionStatusActive {
		return 0, domain.NewInvalidStateError("session not active")
	}
	for _, prev := range r.answers[a.SessionID] {
		if prev.UserID == a.UserID {
			return 0, domain.NewDuplicateSubmissionError(a.SessionID, a.UserID)
		}
	}
	a.ID = r.id()
	cp := *a
	r.answers[a.SessionID] = append(r.answers[a.SessionID], &cp)
	return a.ID, nil
}

func (r *memoryRepo) ListAnswers(_ context.Context, sessionID int64) ([]*domain.AnswerSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AnswerSubmission, 0, len(r.answers[sessionID]))
	for _, a := range r.answers[sessionID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// seedSession stores a session as a crashed process would have left it.
func (r *memoryRepo) seedSession(questionID int64, status domain.SessionStatus) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &domain.Session{ID: r.id(), QuestionID: questionID, CalculatedAnswer: "x", Status: status, StartedBy: "mod"}
	r.sessions[s.ID] = s
	return s.ID
}

var _ domain.TriviaRepository = (*memoryRepo)(nil)

// staticGames is a GameSource whose snapshot can be swapped mid-test.
type staticGames struct {
	mu   sync.Mutex
	snap *domain.GameSnapshot
	err  error
}

func (g *staticGames) Snapshot(context.Context) (*domain.GameSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap, g.err
}

func (g *staticGames) set(snap *domain.GameSnapshot) {
	g.mu.Lock()
	g.snap = snap
	g.mu.Unlock()
}

// --- MockGenerator ---
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, snapshot *domain.GameSnapshot) (*domain.QuestionPayload, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuestionPayload), args.Error(1)
}

// --- MockApprovalRunner ---
type MockApprovalRunner struct {
	mock.Mock
}

func (m *MockApprovalRunner) Run(ctx context.Context, approverID string, q *domain.Question) (*approval.Result, error) {
	args := m.Called(ctx, approverID, q)
	if fn, ok := args.Get(0).(func(context.Context, string, *domain.Question) *approval.Result); ok {
		return fn(ctx, approverID, q), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Result), args.Error(1)
}

// --- MockGameSource ---
type MockGameSource struct {
	mock.Mock
}

func (m *MockGameSource) Snapshot(ctx context.Context) (*domain.GameSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GameSnapshot), args.Error(1)
}
