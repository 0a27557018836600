package domain

import "context"

// TriviaRepository is the persistence gateway for questions, sessions and
// answers. Lookups return (nil, nil) when the row does not exist.
//
// The single-active-session and one-answer-per-user rules are enforced by the
// implementation atomically: CreateSession returns a CONFLICT error while any
// session is active, SubmitAnswer returns DUPLICATE_SUBMISSION on a second
// answer and INVALID_STATE once the session is no longer active.
type TriviaRepository interface {
	AddQuestion(ctx context.Context, q *Question) (int64, error)
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	UpdateQuestion(ctx context.Context, q *Question) error
	SetQuestionStatus(ctx context.Context, id int64, status QuestionStatus) (bool, error)
	NextAvailableQuestion(ctx context.Context) (*Question, error)
	ListQuestionsByStatus(ctx context.Context, status QuestionStatus, limit int) ([]*Question, error)

	GetActiveSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, id int64) (*Session, error)
	ListSessionsByStatus(ctx context.Context, status SessionStatus) ([]*Session, error)
	CreateSession(ctx context.Context, questionID int64, calculatedAnswer, actor string) (int64, error)
	CloseSession(ctx context.Context, sessionID int64, actor string) (bool, error)
	ScoreSession(ctx context.Context, sessionID int64) (*ResultsSummary, error)
	CleanupHangingSessions(ctx context.Context) (int, error)

	SubmitAnswer(ctx context.Context, a *AnswerSubmission) (int64, error)
	ListAnswers(ctx context.Context, sessionID int64) ([]*AnswerSubmission, error)
}

// GameSource provides the current snapshot of tracked games.
type GameSource interface {
	Snapshot(ctx context.Context) (*GameSnapshot, error)
}

// GameRepository stores the played-games table that backs GameSource.
type GameRepository interface {
	GameSource
	UpsertGame(ctx context.Context, g *Game) (int64, error)
}

// TransactionManager runs fn inside a transaction carried by ctx.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
