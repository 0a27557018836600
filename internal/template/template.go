// Package template holds the catalog of parametrised trivia questions that
// can be built from the tracked game data, and the selection logic that
// picks one while keeping categories varied.
package template

import (
	"math/rand/v2"

	"ash-trivia/internal/domain"
)

// Template is a question pattern bound to the data it needs.
type Template struct {
	ID         string
	Category   string
	Weight     float64
	Difficulty int
	Type       domain.QuestionType
	// Dynamic answers are re-derived from live data when a session starts.
	Dynamic bool

	// Requires reports whether the snapshot can support this template.
	Requires func(s *domain.GameSnapshot) bool
	// Build fills in the question and its current answer.
	Build func(s *domain.GameSnapshot, rng *rand.Rand) (Instance, error)
	// Resolve re-derives the answer of a dynamic question. Nil for static
	// templates.
	Resolve func(s *domain.GameSnapshot, params map[string]string) (string, error)
}

// Instance is a template filled in against one snapshot.
type Instance struct {
	Text    string
	Answer  string
	Params  map[string]string
	Choices []string
}
