// Package quizgen adapts hosted and local language models to
// domain.QuestionModel.
package quizgen

import (
	"fmt"
	"strings"

	"ash-trivia/internal/domain"
)

const systemPrompt = `You write trivia questions for a live game show hosted on a gaming channel.
Questions are about the games the host has played and must have one short, unambiguous answer.
Respond with ONLY a JSON object in the following format:
{
    "question_text": "the question",
    "correct_answer": "the short answer",
    "category": "one lowercase word",
    "difficulty_level": 2,
    "question_type": "single_answer"
}

Rules:
1. difficulty_level is 1 (easy), 2 (medium) or 3 (hard)
2. question_type is "single_answer", or "multiple_choice" with a "choices" array of 3 or 4 options
3. The answer must be checkable from the listed games or common knowledge about them`

const strictSuffix = `

Your previous reply could not be parsed. Reply with the JSON object alone: no prose, no markdown, no reasoning.`

// buildPrompt renders the system and user messages for pc.
func buildPrompt(pc domain.PromptContext) (system, user string) {
	var b strings.Builder
	if len(pc.Games) > 0 {
		b.WriteString("Games played on the channel:\n")
		for _, g := range pc.Games {
			b.WriteString("- ")
			b.WriteString(describeGame(g))
			b.WriteByte('\n')
		}
	}
	if pc.Style != "" {
		fmt.Fprintf(&b, "\nStyle: %s\n", pc.Style)
	}
	if len(pc.AvoidCategories) > 0 {
		fmt.Fprintf(&b, "\nAvoid these categories: %s\n", strings.Join(pc.AvoidCategories, ", "))
	}
	if len(pc.RecentQuestions) > 0 {
		b.WriteString("\nDo not repeat these recent questions:\n")
		for _, q := range pc.RecentQuestions {
			if q == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteByte('\n')
		}
	}
	b.WriteString("\nWrite one new trivia question.")

	system = systemPrompt
	if pc.Strict {
		system += strictSuffix
	}
	return system, b.String()
}

func describeGame(g domain.Game) string {
	parts := []string{g.CanonicalName}
	if g.SeriesName != "" {
		parts = append(parts, "series "+g.SeriesName)
	}
	if g.Genre != "" {
		parts = append(parts, g.Genre)
	}
	if g.ReleaseYear > 0 {
		parts = append(parts, fmt.Sprintf("released %d", g.ReleaseYear))
	}
	if g.Platform != "" {
		parts = append(parts, "played on "+g.Platform)
	}
	if g.TotalEpisodes > 0 {
		parts = append(parts, fmt.Sprintf("%d episodes", g.TotalEpisodes))
	}
	if g.TotalPlaytimeMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%dh%02dm played", g.TotalPlaytimeMinutes/60, g.TotalPlaytimeMinutes%60))
	}
	if g.CompletionStatus != "" && g.CompletionStatus != domain.CompletionUnknown {
		parts = append(parts, string(g.CompletionStatus))
	}
	return strings.Join(parts, ", ")
}
