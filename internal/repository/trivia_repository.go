package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/repository/models"
	"ash-trivia/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	questionColumns = `id, question_text, question_type, correct_answer, category, difficulty_level,
		is_dynamic, answer_rule, template_id, source, choices, status, created_at, updated_at`
	sessionColumns = `id, question_id, calculated_answer, status, started_at, ended_at, started_by,
		ended_by, participant_count, correct_count, close_count, scored_at`
	answerColumns = `id, session_id, user_id, raw_answer, normalized_answer, is_correct, is_close,
		match_type, submitted_at`
)

// TriviaRepository implements domain.TriviaRepository on sqlx. The session
// invariants are enforced by the statements themselves together with the
// partial unique indexes in the migrations, so concurrent callers need no
// extra locking.
type TriviaRepository struct {
	db     *sqlx.DB
	tx     domain.TransactionManager
	logger *zap.Logger
}

func NewTriviaRepository(db *sqlx.DB, logger *zap.Logger) *TriviaRepository {
	return &TriviaRepository{
		db:     db,
		tx:     NewTransactionManagerAdapter(db, logger),
		logger: logger,
	}
}

func (r *TriviaRepository) executor(ctx context.Context) DBTX {
	return GetExecutor(ctx, r.db)
}

// --- Questions ---

func (r *TriviaRepository) AddQuestion(ctx context.Context, q *domain.Question) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	m, err := fromDomainQuestion(q)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	exec := r.executor(ctx)
	query := exec.Rebind(`INSERT INTO trivia_questions (question_text, question_type, correct_answer, category,
		difficulty_level, is_dynamic, answer_rule, template_id, source, choices, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err = exec.QueryRowxContext(ctx, query,
		m.QuestionText, m.QuestionType, m.CorrectAnswer, m.Category,
		m.DifficultyLevel, m.IsDynamic, m.AnswerRule, m.TemplateID, m.Source, m.Choices, m.Status,
		m.CreatedAt, m.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add question: %w", err)
	}
	q.ID = id
	q.CreatedAt, q.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return id, nil
}

func (r *TriviaRepository) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	exec := r.executor(ctx)
	var m models.Question
	err := exec.GetContext(ctx, &m, exec.Rebind(`SELECT `+questionColumns+` FROM trivia_questions WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return toDomainQuestion(&m)
}

// UpdateQuestion rewrites the editable fields of q. Status is changed only
// through SetQuestionStatus.
func (r *TriviaRepository) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m, err := fromDomainQuestion(q)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	exec := r.executor(ctx)
	result, err := exec.ExecContext(ctx, exec.Rebind(`UPDATE trivia_questions SET
		question_text = ?, question_type = ?, correct_answer = ?, category = ?, difficulty_level = ?,
		is_dynamic = ?, answer_rule = ?, choices = ?, updated_at = ?
		WHERE id = ?`),
		m.QuestionText, m.QuestionType, m.CorrectAnswer, m.Category, m.DifficultyLevel,
		m.IsDynamic, m.AnswerRule, m.Choices, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update question %d: %w", q.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewQuestionNotFoundError(q.ID)
	}
	q.UpdatedAt = m.UpdatedAt
	return nil
}

// SetQuestionStatus reports false when no question has that id.
func (r *TriviaRepository) SetQuestionStatus(ctx context.Context, id int64, status domain.QuestionStatus) (bool, error) {
	exec := r.executor(ctx)
	result, err := exec.ExecContext(ctx,
		exec.Rebind(`UPDATE trivia_questions SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to set question %d status: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// NextAvailableQuestion returns the oldest available question that no
// active or closed session references, or nil.
func (r *TriviaRepository) NextAvailableQuestion(ctx context.Context) (*domain.Question, error) {
	exec := r.executor(ctx)
	var m models.Question
	err := exec.GetContext(ctx, &m, `SELECT `+questionColumns+` FROM trivia_questions q
		WHERE q.status = 'available'
		AND NOT EXISTS (SELECT 1 FROM trivia_sessions s WHERE s.question_id = q.id AND s.status IN ('active', 'closed'))
		ORDER BY q.id LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next available question: %w", err)
	}
	return toDomainQuestion(&m)
}

// ListQuestionsByStatus returns up to limit questions, oldest first.
func (r *TriviaRepository) ListQuestionsByStatus(ctx context.Context, status domain.QuestionStatus, limit int) ([]*domain.Question, error) {
	if limit <= 0 {
		limit = 50
	}
	exec := r.executor(ctx)
	var rows []models.Question
	err := exec.SelectContext(ctx, &rows,
		exec.Rebind(`SELECT `+questionColumns+` FROM trivia_questions WHERE status = ? ORDER BY id LIMIT ?`),
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s questions: %w", status, err)
	}
	out := make([]*domain.Question, 0, len(rows))
	for i := range rows {
		q, err := toDomainQuestion(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// --- Sessions ---

func (r *TriviaRepository) GetActiveSession(ctx context.Context) (*domain.Session, error) {
	exec := r.executor(ctx)
	var m models.Session
	err := exec.GetContext(ctx, &m, `SELECT `+sessionColumns+` FROM trivia_sessions WHERE status = 'active'`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return toDomainSession(&m), nil
}

func (r *TriviaRepository) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	exec := r.executor(ctx)
	var m models.Session
	err := exec.GetContext(ctx, &m, exec.Rebind(`SELECT `+sessionColumns+` FROM trivia_sessions WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return toDomainSession(&m), nil
}

func (r *TriviaRepository) ListSessionsByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.Session, error) {
	exec := r.executor(ctx)
	var rows []models.Session
	err := exec.SelectContext(ctx, &rows,
		exec.Rebind(`SELECT `+sessionColumns+` FROM trivia_sessions WHERE status = ? ORDER BY id`), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s sessions: %w", status, err)
	}
	out := make([]*domain.Session, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainSession(&rows[i]))
	}
	return out, nil
}

// CreateSession starts an active session for an available question. The
// insert only happens when no session is active, in the same statement, and
// the partial unique index catches the remaining race.
func (r *TriviaRepository) CreateSession(ctx context.Context, questionID int64, calculatedAnswer, actor string) (int64, error) {
	exec := r.executor(ctx)
	query := exec.Rebind(`INSERT INTO trivia_sessions (question_id, calculated_answer, status, started_at, started_by)
		SELECT q.id, CAST(? AS TEXT), 'active', CURRENT_TIMESTAMP, CAST(? AS TEXT)
		FROM trivia_questions q
		WHERE q.id = ? AND q.status = 'available'
		AND NOT EXISTS (SELECT 1 FROM trivia_sessions s WHERE s.status = 'active')
		RETURNING id`)

	var id int64
	err := exec.QueryRowxContext(ctx, query, calculatedAnswer, actor, questionID).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case isUniqueViolation(err):
		return 0, domain.NewConflictError("another trivia session is already running")
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to create session: %w", err)
	}

	// Nothing inserted: find out which guard stopped it.
	active, err := r.GetActiveSession(ctx)
	if err != nil {
		return 0, err
	}
	if active != nil {
		return 0, domain.NewConflictError(fmt.Sprintf("session %d is already active", active.ID))
	}
	q, err := r.GetQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if q == nil {
		return 0, domain.NewQuestionNotFoundError(questionID)
	}
	return 0, domain.NewInvalidStateError(fmt.Sprintf("question %d is %s, not available", questionID, q.Status))
}

// CloseSession reports false when the session was not active.
func (r *TriviaRepository) CloseSession(ctx context.Context, sessionID int64, actor string) (bool, error) {
	exec := r.executor(ctx)
	result, err := exec.ExecContext(ctx, exec.Rebind(`UPDATE trivia_sessions
		SET status = 'closed', ended_at = CURRENT_TIMESTAMP, ended_by = ?
		WHERE id = ? AND status = 'active'`), actor, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to close session %d: %w", sessionID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ScoreSession aggregates the answers of a closed session, marks it scored
// and marks its question answered, all in one transaction. The status guard
// makes a second call fail with INVALID_STATE instead of counting twice.
func (r *TriviaRepository) ScoreSession(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	var summary *domain.ResultsSummary
	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.executor(ctx)
		result, err := exec.ExecContext(ctx, exec.Rebind(`UPDATE trivia_sessions
			SET status = 'scored', scored_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = 'closed'`), sessionID)
		if err != nil {
			return fmt.Errorf("failed to mark session %d scored: %w", sessionID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			s, err := r.GetSession(ctx, sessionID)
			if err != nil {
				return err
			}
			if s == nil {
				return domain.NewSessionNotFoundError(sessionID)
			}
			return domain.NewInvalidStateError(fmt.Sprintf("session %d is %s, only closed sessions can be scored", sessionID, s.Status))
		}

		var head struct {
			QuestionID       int64  `db:"question_id"`
			CalculatedAnswer string `db:"calculated_answer"`
			QuestionText     string `db:"question_text"`
		}
		err = exec.GetContext(ctx, &head, exec.Rebind(`SELECT s.question_id, s.calculated_answer, q.question_text
			FROM trivia_sessions s JOIN trivia_questions q ON q.id = s.question_id
			WHERE s.id = ?`), sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %d question: %w", sessionID, err)
		}

		answers, err := r.ListAnswers(ctx, sessionID)
		if err != nil {
			return err
		}
		summary = domain.Summarize(sessionID, head.QuestionID, head.QuestionText, head.CalculatedAnswer, answers)

		_, err = exec.ExecContext(ctx, exec.Rebind(`UPDATE trivia_sessions
			SET participant_count = ?, correct_count = ?, close_count = ?
			WHERE id = ?`), summary.ParticipantCount, summary.CorrectCount, summary.CloseCount, sessionID)
		if err != nil {
			return fmt.Errorf("failed to store session %d results: %w", sessionID, err)
		}

		_, err = exec.ExecContext(ctx, exec.Rebind(`UPDATE trivia_questions SET status = ?, updated_at = ? WHERE id = ?`),
			string(domain.QuestionStatusAnswered), time.Now().UTC(), head.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to mark question %d answered: %w", head.QuestionID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// CleanupHangingSessions closes every session left active by a previous
// process and returns how many were closed. Running it again is a no-op.
func (r *TriviaRepository) CleanupHangingSessions(ctx context.Context) (int, error) {
	exec := r.executor(ctx)
	result, err := exec.ExecContext(ctx, exec.Rebind(`UPDATE trivia_sessions
		SET status = 'closed', ended_at = CURRENT_TIMESTAMP, ended_by = ?
		WHERE status = 'active'`), domain.ActorRecovery)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up hanging sessions: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// --- Answers ---

// SubmitAnswer records a first answer while the session is active. A second
// answer from the same user is rejected with DUPLICATE_SUBMISSION and the
// first one stands.
func (r *TriviaRepository) SubmitAnswer(ctx context.Context, a *domain.AnswerSubmission) (int64, error) {
	if a.IsCorrect && a.IsClose {
		return 0, domain.NewInvalidInputError("an answer cannot be both correct and close")
	}
	exec := r.executor(ctx)
	query := exec.Rebind(`INSERT INTO trivia_answers (session_id, user_id, raw_answer, normalized_answer,
		is_correct, is_close, match_type, submitted_at)
		SELECT s.id, CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS BOOLEAN), CAST(? AS BOOLEAN), CAST(? AS TEXT), CURRENT_TIMESTAMP
		FROM trivia_sessions s
		WHERE s.id = ? AND s.status = 'active'
		ON CONFLICT (session_id, user_id) DO NOTHING
		RETURNING id`)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		a.UserID, a.RawAnswer, a.NormalizedAnswer, a.IsCorrect, a.IsClose, string(a.MatchType), a.SessionID,
	).Scan(&id)
	switch {
	case err == nil:
		a.ID = id
		return id, nil
	case isUniqueViolation(err):
		return 0, domain.NewDuplicateSubmissionError(a.SessionID, a.UserID)
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to submit answer: %w", err)
	}

	s, err := r.GetSession(ctx, a.SessionID)
	if err != nil {
		return 0, err
	}
	if s == nil {
		return 0, domain.NewSessionNotFoundError(a.SessionID)
	}
	if s.Status != domain.SessionStatusActive {
		return 0, domain.NewInvalidStateError(fmt.Sprintf("session %d is %s, answers are no longer accepted", a.SessionID, s.Status))
	}
	return 0, domain.NewDuplicateSubmissionError(a.SessionID, a.UserID)
}

// ListAnswers returns a session's answers in submission order.
func (r *TriviaRepository) ListAnswers(ctx context.Context, sessionID int64) ([]*domain.AnswerSubmission, error) {
	exec := r.executor(ctx)
	var rows []models.Answer
	err := exec.SelectContext(ctx, &rows,
		exec.Rebind(`SELECT `+answerColumns+` FROM trivia_answers WHERE session_id = ? ORDER BY submitted_at, id`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers of session %d: %w", sessionID, err)
	}
	out := make([]*domain.AnswerSubmission, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainAnswer(&rows[i]))
	}
	return out, nil
}

// --- Converters ---

func toDomainQuestion(m *models.Question) (*domain.Question, error) {
	if m == nil {
		return nil, nil
	}
	q := &domain.Question{
		ID:              m.ID,
		Text:            m.QuestionText,
		Type:            domain.QuestionType(m.QuestionType),
		CorrectAnswer:   m.CorrectAnswer,
		Category:        m.Category,
		DifficultyLevel: m.DifficultyLevel,
		IsDynamic:       m.IsDynamic,
		TemplateID:      m.TemplateID.String,
		Source:          domain.QuestionSource(m.Source),
		Choices:         []string(m.Choices),
		Status:          domain.QuestionStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.AnswerRule.Valid && m.AnswerRule.String != "" {
		var rule domain.AnswerRule
		if err := json.Unmarshal([]byte(m.AnswerRule.String), &rule); err != nil {
			return nil, fmt.Errorf("question %d has a malformed answer rule: %w", m.ID, err)
		}
		q.AnswerRule = &rule
	}
	if len(q.Choices) == 0 {
		q.Choices = nil
	}
	return q, nil
}

func fromDomainQuestion(q *domain.Question) (*models.Question, error) {
	if q == nil {
		return nil, nil
	}
	m := &models.Question{
		ID:              q.ID,
		QuestionText:    q.Text,
		QuestionType:    string(q.Type),
		CorrectAnswer:   q.CorrectAnswer,
		Category:        q.Category,
		DifficultyLevel: q.DifficultyLevel,
		IsDynamic:       q.IsDynamic,
		TemplateID:      util.StringToNullString(q.TemplateID),
		Source:          string(q.Source),
		Choices:         models.StringSlice(q.Choices),
		Status:          string(q.Status),
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	if m.Source == "" {
		m.Source = string(domain.QuestionSourceManual)
	}
	if m.Status == "" {
		m.Status = string(domain.QuestionStatusPendingApproval)
	}
	if q.IsDynamic && q.AnswerRule != nil {
		raw, err := json.Marshal(q.AnswerRule)
		if err != nil {
			return nil, fmt.Errorf("failed to encode answer rule: %w", err)
		}
		m.AnswerRule = sql.NullString{String: string(raw), Valid: true}
	}
	return m, nil
}

func toDomainSession(m *models.Session) *domain.Session {
	if m == nil {
		return nil
	}
	return &domain.Session{
		ID:               m.ID,
		QuestionID:       m.QuestionID,
		CalculatedAnswer: m.CalculatedAnswer,
		Status:           domain.SessionStatus(m.Status),
		StartedAt:        m.StartedAt,
		EndedAt:          util.NullTimeToPtr(m.EndedAt),
		StartedBy:        m.StartedBy,
		EndedBy:          m.EndedBy.String,
		ParticipantCount: m.ParticipantCount,
		CorrectCount:     m.CorrectCount,
		CloseCount:       m.CloseCount,
		ScoredAt:         util.NullTimeToPtr(m.ScoredAt),
	}
}

func toDomainAnswer(m *models.Answer) *domain.AnswerSubmission {
	if m == nil {
		return nil
	}
	return &domain.AnswerSubmission{
		ID:               m.ID,
		SessionID:        m.SessionID,
		UserID:           m.UserID,
		RawAnswer:        m.RawAnswer,
		NormalizedAnswer: m.NormalizedAnswer,
		IsCorrect:        m.IsCorrect,
		IsClose:          m.IsClose,
		MatchType:        domain.MatchType(m.MatchType),
		SubmittedAt:      m.SubmittedAt,
	}
}

var _ domain.TriviaRepository = (*TriviaRepository)(nil)
