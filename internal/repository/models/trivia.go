package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringSlice is stored as a JSON array in a text column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		// nil is stored as "[]" so the column never holds NULL
		return "[]", nil
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var bytesToParse []byte
	switch v := value.(type) {
	case []byte:
		bytesToParse = v
	case string:
		bytesToParse = []byte(v)
	default:
		return errors.New("StringSlice Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(bytesToParse) == 0 || string(bytesToParse) == "null" {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(bytesToParse, s)
}

// Question is a row of trivia_questions. AnswerRule holds JSON.
type Question struct {
	ID              int64          `db:"id"`
	QuestionText    string         `db:"question_text"`
	QuestionType    string         `db:"question_type"`
	CorrectAnswer   string         `db:"correct_answer"`
	Category        string         `db:"category"`
	DifficultyLevel int            `db:"difficulty_level"`
	IsDynamic       bool           `db:"is_dynamic"`
	AnswerRule      sql.NullString `db:"answer_rule"`
	TemplateID      sql.NullString `db:"template_id"`
	Source          string         `db:"source"`
	Choices         StringSlice    `db:"choices"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Session is a row of trivia_sessions.
type Session struct {
	ID               int64          `db:"id"`
	QuestionID       int64          `db:"question_id"`
	CalculatedAnswer string         `db:"calculated_answer"`
	Status           string         `db:"status"`
	StartedAt        time.Time      `db:"started_at"`
	EndedAt          sql.NullTime   `db:"ended_at"`
	StartedBy        string         `db:"started_by"`
	EndedBy          sql.NullString `db:"ended_by"`
	ParticipantCount int            `db:"participant_count"`
	CorrectCount     int            `db:"correct_count"`
	CloseCount       int            `db:"close_count"`
	ScoredAt         sql.NullTime   `db:"scored_at"`
}

// Answer is a row of trivia_answers.
type Answer struct {
	ID               int64     `db:"id"`
	SessionID        int64     `db:"session_id"`
	UserID           string    `db:"user_id"`
	RawAnswer        string    `db:"raw_answer"`
	NormalizedAnswer string    `db:"normalized_answer"`
	IsCorrect        bool      `db:"is_correct"`
	IsClose          bool      `db:"is_close"`
	MatchType        string    `db:"match_type"`
	SubmittedAt      time.Time `db:"submitted_at"`
}

// PlayedGame is a row of played_games.
type PlayedGame struct {
	ID                   int64          `db:"id"`
	CanonicalName        string         `db:"canonical_name"`
	AlternativeNames     StringSlice    `db:"alternative_names"`
	SeriesName           sql.NullString `db:"series_name"`
	Genre                sql.NullString `db:"genre"`
	ReleaseYear          sql.NullInt64  `db:"release_year"`
	Platform             sql.NullString `db:"platform"`
	TotalEpisodes        int            `db:"total_episodes"`
	TotalPlaytimeMinutes int            `db:"total_playtime_minutes"`
	CompletionStatus     string         `db:"completion_status"`
	FirstPlayedAt        sql.NullTime   `db:"first_played_at"`
}
