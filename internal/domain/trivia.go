package domain

import (
	"strings"
	"time"
)

// QuestionType is how a question expects to be answered.
type QuestionType string

const (
	QuestionTypeSingleAnswer   QuestionType = "single_answer"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// QuestionStatus tracks a question through generation, approval and play.
type QuestionStatus string

const (
	QuestionStatusPendingApproval QuestionStatus = "pending_approval"
	QuestionStatusAvailable       QuestionStatus = "available"
	QuestionStatusAnswered        QuestionStatus = "answered"
	QuestionStatusRejected        QuestionStatus = "rejected"
)

// QuestionSource records where a question came from.
type QuestionSource string

const (
	QuestionSourceTemplate QuestionSource = "template"
	QuestionSourceAI       QuestionSource = "ai"
	QuestionSourceManual   QuestionSource = "manual"
)

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
	SessionStatusScored SessionStatus = "scored"
)

// MatchType is the diagnostic tag of the evaluator tier that decided an answer.
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchCaseInsensitive MatchType = "case_insensitive"
	MatchAbbreviation    MatchType = "abbreviation"
	MatchFuzzy           MatchType = "fuzzy"
	MatchNumeric         MatchType = "numeric"
	MatchWordOverlap     MatchType = "word_overlap"
	MatchNone            MatchType = "none"
)

// Actor identifiers used when the system, not a person, changes a session.
const (
	ActorTimer    = "system:timer"
	ActorRecovery = "system:recovery"
	ActorRunner   = "system:round"
)

// AnswerRule identifies how a dynamic question's answer is derived from game
// data. It is re-evaluated when a session starts.
type AnswerRule struct {
	TemplateID string            `json:"template_id"`
	Params     map[string]string `json:"params,omitempty"`
}

// Question is a trivia question in any lifecycle state.
type Question struct {
	ID              int64
	Text            string
	Type            QuestionType
	CorrectAnswer   string
	Category        string
	DifficultyLevel int
	IsDynamic       bool
	AnswerRule      *AnswerRule
	TemplateID      string
	Source          QuestionSource
	Choices         []string
	Status          QuestionStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QuestionPayload is a generated question that has not been stored yet.
type QuestionPayload struct {
	Text            string
	Type            QuestionType
	CorrectAnswer   string
	Category        string
	DifficultyLevel int
	IsDynamic       bool
	AnswerRule      *AnswerRule
	TemplateID      string
	Source          QuestionSource
	Choices         []string
}

// NewQuestion turns a payload into a question awaiting approval.
func NewQuestion(p *QuestionPayload) *Question {
	now := time.Now().UTC()
	q := &Question{
		Text:            strings.TrimSpace(p.Text),
		Type:            p.Type,
		CorrectAnswer:   strings.TrimSpace(p.CorrectAnswer),
		Category:        p.Category,
		DifficultyLevel: p.DifficultyLevel,
		IsDynamic:       p.IsDynamic && p.AnswerRule != nil,
		AnswerRule:      p.AnswerRule,
		TemplateID:      p.TemplateID,
		Source:          p.Source,
		Choices:         p.Choices,
		Status:          QuestionStatusPendingApproval,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if q.Type == "" {
		q.Type = QuestionTypeSingleAnswer
	}
	if q.DifficultyLevel == 0 {
		q.DifficultyLevel = 2
	}
	if !q.IsDynamic {
		q.AnswerRule = nil
	}
	return q
}

// Validate checks the fields every stored question must carry.
func (q *Question) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(q.Text) == "" {
		errs = append(errs, ValidationError{Field: "question_text", Message: "is required"})
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" && !q.IsDynamic {
		errs = append(errs, ValidationError{Field: "correct_answer", Message: "is required"})
	}
	if q.Type != QuestionTypeSingleAnswer && q.Type != QuestionTypeMultipleChoice {
		errs = append(errs, ValidationError{Field: "question_type", Message: "must be single_answer or multiple_choice"})
	}
	if q.DifficultyLevel < 1 || q.DifficultyLevel > 3 {
		errs = append(errs, ValidationError{Field: "difficulty_level", Message: "must be between 1 and 3"})
	}
	if q.IsDynamic && q.AnswerRule == nil {
		errs = append(errs, ValidationError{Field: "answer_rule", Message: "is required for dynamic questions"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Session is one timed round of answer collection for a single question.
type Session struct {
	ID               int64
	QuestionID       int64
	CalculatedAnswer string
	Status           SessionStatus
	StartedAt        time.Time
	EndedAt          *time.Time
	StartedBy        string
	EndedBy          string
	ParticipantCount int
	CorrectCount     int
	CloseCount       int
	ScoredAt         *time.Time
}

// AnswerSubmission is one user's evaluated answer within a session.
type AnswerSubmission struct {
	ID               int64
	SessionID        int64
	UserID           string
	RawAnswer        string
	NormalizedAnswer string
	IsCorrect        bool
	IsClose          bool
	MatchType        MatchType
	SubmittedAt      time.Time
}

// ResultsSummary is what scoring a session produces.
type ResultsSummary struct {
	SessionID        int64
	QuestionID       int64
	QuestionText     string
	CorrectAnswer    string
	ParticipantCount int
	CorrectCount     int
	CloseCount       int
	IncorrectCount   int
	Winners          []string
}

// Summarize aggregates the answers of one session. Winners are the users
// with a correct answer, in submission order.
func Summarize(sessionID, questionID int64, questionText, correctAnswer string, answers []*AnswerSubmission) *ResultsSummary {
	s := &ResultsSummary{
		SessionID:        sessionID,
		QuestionID:       questionID,
		QuestionText:     questionText,
		CorrectAnswer:    correctAnswer,
		ParticipantCount: len(answers),
		Winners:          []string{},
	}
	for _, a := range answers {
		switch {
		case a.IsCorrect:
			s.CorrectCount++
			s.Winners = append(s.Winners, a.UserID)
		case a.IsClose:
			s.CloseCount++
		}
	}
	s.IncorrectCount = s.ParticipantCount - s.CorrectCount - s.CloseCount
	return s
}
