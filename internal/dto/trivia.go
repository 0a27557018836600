package dto

import (
	"time"

	"ash-trivia/internal/approval"
	"ash-trivia/internal/domain"
)

// StartSessionRequest opens a session for an available question
// @Description Request body for starting a trivia session
type StartSessionRequest struct {
	QuestionID      int64 `json:"question_id" validate:"required,gt=0"`
	DurationSeconds int   `json:"duration_seconds" validate:"gte=0,lte=3600"`
}

// SubmitAnswerRequest carries one chat answer relayed by the bot
type SubmitAnswerRequest struct {
	UserID string `json:"user_id" validate:"required,max=100"`
	Answer string `json:"answer" validate:"required,max=500"`
}

// SessionResponse represents a trivia session in the API response
type SessionResponse struct {
	ID               int64      `json:"id"`
	QuestionID       int64      `json:"question_id"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	StartedBy        string     `json:"started_by"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	EndedBy          string     `json:"ended_by,omitempty"`
	ScoredAt         *time.Time `json:"scored_at,omitempty"`
	ParticipantCount int        `json:"participant_count"`
	CorrectCount     int        `json:"correct_count"`
	CloseCount       int        `json:"close_count"`
}

// ActiveSessionResponse wraps the active session, which may be absent
type ActiveSessionResponse struct {
	Active  bool             `json:"active"`
	Session *SessionResponse `json:"session,omitempty"`
}

// AnswerResponse is the evaluation returned to the bot right after submitting
type AnswerResponse struct {
	ID               int64     `json:"id"`
	SessionID        int64     `json:"session_id"`
	UserID           string    `json:"user_id"`
	RawAnswer        string    `json:"raw_answer"`
	NormalizedAnswer string    `json:"normalized_answer"`
	IsCorrect        bool      `json:"is_correct"`
	IsClose          bool      `json:"is_close"`
	MatchType        string    `json:"match_type"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// ResultsResponse represents the standings of a scored session
type ResultsResponse struct {
	SessionID        int64    `json:"session_id"`
	QuestionID       int64    `json:"question_id"`
	QuestionText     string   `json:"question_text"`
	CorrectAnswer    string   `json:"correct_answer"`
	ParticipantCount int      `json:"participant_count"`
	CorrectCount     int      `json:"correct_count"`
	CloseCount       int      `json:"close_count"`
	IncorrectCount   int      `json:"incorrect_count"`
	Winners          []string `json:"winners"`
}

// CreateQuestionRequest adds a moderator-written question
// @Description Request body for adding a manual question
type CreateQuestionRequest struct {
	Text            string   `json:"question_text" validate:"required,max=500"`
	Answer          string   `json:"correct_answer" validate:"required,max=200"`
	Category        string   `json:"category" validate:"omitempty,max=50"`
	DifficultyLevel int      `json:"difficulty_level" validate:"omitempty,min=1,max=3"`
	Type            string   `json:"question_type" validate:"omitempty,oneof=single_answer multiple_choice"`
	Choices         []string `json:"choices" validate:"omitempty,max=6,dive,required,max=200"`
}

// ListQuestionsQuery filters GET /api/trivia/questions
type ListQuestionsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending_approval available answered rejected"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// QuestionResponse represents a question in the API response
type QuestionResponse struct {
	ID              int64     `json:"id"`
	Text            string    `json:"question_text"`
	Type            string    `json:"question_type"`
	CorrectAnswer   string    `json:"correct_answer"`
	Category        string    `json:"category"`
	DifficultyLevel int       `json:"difficulty_level"`
	IsDynamic       bool      `json:"is_dynamic"`
	TemplateID      string    `json:"template_id,omitempty"`
	Source          string    `json:"source"`
	Choices         []string  `json:"choices,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AcceptedResponse acknowledges work that continues in the background
type AcceptedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ApprovalTicketResponse is one question waiting for the approver
type ApprovalTicketResponse struct {
	TicketID    string           `json:"ticket_id"`
	PresentedAt time.Time        `json:"presented_at"`
	Question    QuestionResponse `json:"question"`
}

// ApprovalDecisionRequest answers a pending ticket
// @Description accept, reject, or edit with a replacement text and/or answer
type ApprovalDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept edit reject"`
	Text     string `json:"question_text" validate:"omitempty,max=500"`
	Answer   string `json:"correct_answer" validate:"omitempty,max=200"`
}

// ImportGamesRequest upserts played games by canonical name
type ImportGamesRequest struct {
	Games []domain.Game `json:"games" validate:"required,min=1,max=500"`
}

type ImportGamesResponse struct {
	Imported int `json:"imported"`
}

// HealthResponse reports dependency status
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Round    bool              `json:"round_running"`
	Uptime   string            `json:"uptime"`
	Approver string            `json:"approver,omitempty"`
}

func NewSessionResponse(s *domain.Session) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:               s.ID,
		QuestionID:       s.QuestionID,
		Status:           string(s.Status),
		StartedAt:        s.StartedAt,
		StartedBy:        s.StartedBy,
		EndedAt:          s.EndedAt,
		EndedBy:          s.EndedBy,
		ScoredAt:         s.ScoredAt,
		ParticipantCount: s.ParticipantCount,
		CorrectCount:     s.CorrectCount,
		CloseCount:       s.CloseCount,
	}
}

func NewAnswerResponse(a *domain.AnswerSubmission) AnswerResponse {
	return AnswerResponse{
		ID:               a.ID,
		SessionID:        a.SessionID,
		UserID:           a.UserID,
		RawAnswer:        a.RawAnswer,
		NormalizedAnswer: a.NormalizedAnswer,
		IsCorrect:        a.IsCorrect,
		IsClose:          a.IsClose,
		MatchType:        string(a.MatchType),
		SubmittedAt:      a.SubmittedAt,
	}
}

func NewResultsResponse(r *domain.ResultsSummary) ResultsResponse {
	winners := r.Winners
	if winners == nil {
		winners = []string{}
	}
	return ResultsResponse{
		SessionID:        r.SessionID,
		QuestionID:       r.QuestionID,
		QuestionText:     r.QuestionText,
		CorrectAnswer:    r.CorrectAnswer,
		ParticipantCount: r.ParticipantCount,
		CorrectCount:     r.CorrectCount,
		CloseCount:       r.CloseCount,
		IncorrectCount:   r.IncorrectCount,
		Winners:          winners,
	}
}

func NewQuestionResponse(q *domain.Question) QuestionResponse {
	return QuestionResponse{
		ID:              q.ID,
		Text:            q.Text,
		Type:            string(q.Type),
		CorrectAnswer:   q.CorrectAnswer,
		Category:        q.Category,
		DifficultyLevel: q.DifficultyLevel,
		IsDynamic:       q.IsDynamic,
		TemplateID:      q.TemplateID,
		Source:          string(q.Source),
		Choices:         q.Choices,
		Status:          string(q.Status),
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

func NewApprovalTicketResponse(t approval.Ticket) ApprovalTicketResponse {
	return ApprovalTicketResponse{
		TicketID:    t.ID,
		PresentedAt: t.PresentedAt,
		Question:    NewQuestionResponse(&t.Question),
	}
}

// ToDecision converts the request into the conversation's vocabulary.
func (r ApprovalDecisionRequest) ToDecision() approval.Decision {
	return approval.Decision{Kind: approval.Kind(r.Decision), Text: r.Text, Answer: r.Answer}
}
