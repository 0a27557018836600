package evaluator

import (
	"strings"
	"testing"

	"ash-trivia/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		normalized string
		correct    string
		want       Result
	}{
		{"exact raw", "Halo", "halo", "Halo", Result{IsCorrect: true, MatchType: domain.MatchExact}},
		{"case insensitive", "HALO", "halo", "Halo", Result{IsCorrect: true, MatchType: domain.MatchCaseInsensitive}},
		{"leading article ignored", "witcher 3", "witcher 3", "The Witcher 3", Result{IsCorrect: true, MatchType: domain.MatchCaseInsensitive}},
		{"initials with numeral", "GTA 5", "gta 5", "Grand Theft Auto 5", Result{IsCorrect: true, MatchType: domain.MatchAbbreviation}},
		{"initials of all words", "gow", "gow", "God of War", Result{IsCorrect: true, MatchType: domain.MatchAbbreviation}},
		{"option letter", "b", "B", "B) Halo 3", Result{IsCorrect: true, MatchType: domain.MatchAbbreviation}},
		{"option text", "Halo 3", "halo 3", "B) Halo 3", Result{IsCorrect: true, MatchType: domain.MatchExact}},
		{"wrong option letter", "a", "A", "B) Halo 3", Result{MatchType: domain.MatchNone}},
		{"numeric equal", "18.0", "18.0", "18", Result{IsCorrect: true, MatchType: domain.MatchNumeric}},
		{"numeric within tolerance", "17", "17", "18", Result{IsClose: true, MatchType: domain.MatchNumeric}},
		{"numeric relative tolerance", "39", "39", "41", Result{IsClose: true, MatchType: domain.MatchNumeric}},
		{"numeric relative window is capped", "1,040", "1,040", "1000", Result{MatchType: domain.MatchNone}},
		{"year off by one", "2014", "2014", "2015", Result{IsClose: true, MatchType: domain.MatchNumeric}},
		{"year a century off", "1920", "1920", "2015", Result{MatchType: domain.MatchNone}},
		{"year a generation off", "1990", "1990", "2015", Result{MatchType: domain.MatchNone}},
		{"numeric out of tolerance", "50", "50", "18", Result{MatchType: domain.MatchNone}},
		{"subset skipping minor word", "God War", "god war", "God of War", Result{IsCorrect: true, MatchType: domain.MatchWordOverlap}},
		{"reordered words", "War God", "war god", "God of War", Result{IsClose: true, MatchType: domain.MatchWordOverlap}},
		{"typo", "Hollow Night", "hollow night", "Hollow Knight", Result{IsCorrect: true, MatchType: domain.MatchFuzzy}},
		{"near miss", "Hades 2", "hades 2", "Hades", Result{IsClose: true, MatchType: domain.MatchFuzzy}},
		{"wrong sequel number", "Dark Souls 2", "dark souls 2", "Dark Souls 3", Result{IsClose: true, MatchType: domain.MatchFuzzy}},
		{"typo keeps sequel number", "Dark Sols 3", "dark sols 3", "Dark Souls 3", Result{IsCorrect: true, MatchType: domain.MatchFuzzy}},
		{"single significant word", "War", "war", "God of War", Result{MatchType: domain.MatchNone}},
		{"unrelated", "Minecraft", "minecraft", "Hollow Knight", Result{MatchType: domain.MatchNone}},
		{"missing normalized falls back to raw", "  The Witcher 3. ", "", "The Witcher 3", Result{IsCorrect: true, MatchType: domain.MatchCaseInsensitive}},
		{"empty correct answer", "Halo", "halo", "", Result{MatchType: domain.MatchNone}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.user, tc.normalized, tc.correct)
			assert.Equal(t, tc.want, got)
			assert.False(t, got.IsCorrect && got.IsClose)
		})
	}
}

func TestEvaluate_LowerCasedAnswerIsAlwaysCorrect(t *testing.T) {
	answers := []string{"God of War", "The Last of Us Part II", "Hollow Knight", "celeste", "18", "B) Halo 3", "Half-Life 2"}
	for _, correct := range answers {
		lower := strings.ToLower(correct)
		got := Evaluate(lower, lower, correct)
		assert.True(t, got.IsCorrect, correct)
		assert.Contains(t, []domain.MatchType{domain.MatchExact, domain.MatchCaseInsensitive}, got.MatchType, correct)
	}
}

func TestEvaluate_EmptyAnswers(t *testing.T) {
	for _, in := range []string{"", " ", "\t\n", "   "} {
		got := Evaluate(in, strings.TrimSpace(in), "God of War")
		assert.Equal(t, Result{MatchType: domain.MatchNone}, got, "%q", in)
	}
}

func TestEvaluator_CustomThresholds(t *testing.T) {
	strict := New(Thresholds{
		FuzzyCorrect:    0.99,
		FuzzyClose:      0.9,
		OverlapClose:    1.1,
		NumericRelative: 0,
		NumericAbsolute: 0,
	})

	assert.Equal(t, Result{IsClose: true, MatchType: domain.MatchFuzzy}, strict.Evaluate("Hollow Night", "hollow night", "Hollow Knight"))
	assert.Equal(t, Result{MatchType: domain.MatchNone}, strict.Evaluate("17", "17", "18"))
	// Overlap can no longer reach close, so the reordered answer falls to fuzzy.
	assert.Equal(t, Result{MatchType: domain.MatchNone}, strict.Evaluate("War God", "war god", "God of War"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		qt   domain.QuestionType
		want string
	}{
		{"  I think it's   The Witcher 3!! ", domain.QuestionTypeSingleAnswer, "witcher 3"},
		{"My answer is: 17.", domain.QuestionTypeSingleAnswer, "17"},
		{"maybe Halo?", domain.QuestionTypeSingleAnswer, "halo"},
		{"It’s Celeste", domain.QuestionTypeSingleAnswer, "celeste"},
		{"It Takes Two", domain.QuestionTypeSingleAnswer, "it takes two"},
		{"maybe", domain.QuestionTypeSingleAnswer, "maybe"},
		{"b", domain.QuestionTypeMultipleChoice, "B"},
		{"c)", domain.QuestionTypeMultipleChoice, "C"},
		{"b", domain.QuestionTypeSingleAnswer, "b"},
		{"", domain.QuestionTypeSingleAnswer, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Normalize(tc.raw, tc.qt), "%q", tc.raw)
	}
}

func TestPipelineOrder(t *testing.T) {
	var names []string
	for _, tr := range pipeline() {
		names = append(names, tr.name)
	}
	assert.Equal(t, []string{"exact", "case_insensitive", "abbreviation", "numeric", "word_overlap", "fuzzy"}, names)
}
