package domain

import "context"

// PromptContext is everything a question model is told when asked for a
// trivia question.
type PromptContext struct {
	Games           []Game
	Style           string
	AvoidCategories []string
	RecentQuestions []string
	// Strict asks for bare JSON after a previous response failed to parse.
	Strict bool
}

// QuestionModel is an external AI collaborator that returns raw model text.
// Implementations must honour ctx cancellation.
type QuestionModel interface {
	Generate(ctx context.Context, pc PromptContext) (string, error)
	Name() string
}
