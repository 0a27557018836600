package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestion(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantText   string
		wantAnswer string
		wantDiff   int
	}{
		{
			name:       "plain object",
			raw:        `{"question_text": "Q?", "question_type": "single_answer", "correct_answer": "A", "difficulty_level": 1}`,
			wantText:   "Q?",
			wantAnswer: "A",
			wantDiff:   1,
		},
		{
			name:       "prose around object",
			raw:        "Here is your question:\n{\"question_text\": \"Q?\", \"question_type\": \"single_answer\", \"correct_answer\": \"A\"}\nHope it helps!",
			wantText:   "Q?",
			wantAnswer: "A",
			wantDiff:   2,
		},
		{
			name:       "markdown fence and think block",
			raw:        "<think>{\"question_text\": \"draft\"}</think>```json\n{\"question_text\": \"Q?\", \"question_type\": \"single_answer\", \"correct_answer\": \"A\"}\n```",
			wantText:   "Q?",
			wantAnswer: "A",
			wantDiff:   2,
		},
		{
			name:       "trailing commas",
			raw:        `{"question_text": "Q?", "question_type": "multiple_choice", "correct_answer": "A", "choices": ["x", "y",],}`,
			wantText:   "Q?",
			wantAnswer: "A",
			wantDiff:   2,
		},
		{
			name:       "single quotes keep inner apostrophes",
			raw:        `{'question_text': 'Which game is Ash\'s favourite?', 'question_type': 'single_answer', 'correct_answer': 'Hades'}`,
			wantText:   "Which game is Ash's favourite?",
			wantAnswer: "Hades",
			wantDiff:   2,
		},
		{
			name:       "unquoted keys",
			raw:        `{question_text: "Q?", question_type: "single_answer", correct_answer: "A", difficulty_level: "medium"}`,
			wantText:   "Q?",
			wantAnswer: "A",
			wantDiff:   2,
		},
		{
			name:       "numeric answer",
			raw:        `{"question_text": "How many?", "question_type": "single_answer", "correct_answer": 42.5}`,
			wantText:   "How many?",
			wantAnswer: "42.5",
			wantDiff:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parseQuestion(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, q.QuestionText)
			assert.Equal(t, tt.wantAnswer, q.CorrectAnswer)
			assert.Equal(t, tt.wantDiff, q.DifficultyLevel)
		})
	}
}

func TestParseQuestion_Rejects(t *testing.T) {
	tests := map[string]string{
		"no object":             "I don't know",
		"missing answer":        `{"question_text": "Q?", "question_type": "single_answer"}`,
		"blank answer":          `{"question_text": "Q?", "question_type": "single_answer", "correct_answer": "   "}`,
		"wrong type":            `{"question_text": ["Q?"], "question_type": "single_answer", "correct_answer": "A"}`,
		"missing question type": `{"question_text": "Which game?", "correct_answer": "Halo"}`,
		"empty question type":   `{"question_text": "Which game?", "question_type": "", "correct_answer": "Halo"}`,
		"blank question type":   `{"question_text": "Which game?", "question_type": "  ", "correct_answer": "Halo"}`,
		"bad question type":     `{"question_text": "Q?", "correct_answer": "A", "question_type": "essay"}`,
		"broken beyond repair":  `{"question_text": "Q?" "correct_answer" "A"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseQuestion(raw)
			assert.Error(t, err)
		})
	}
}
