package evaluator

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/util"

	"github.com/agnivade/levenshtein"
)

// Result is the verdict for one submitted answer. IsCorrect and IsClose are
// never both true.
type Result struct {
	IsCorrect bool
	IsClose   bool
	MatchType domain.MatchType
}

func correctMatch(mt domain.MatchType) Result { return Result{IsCorrect: true, MatchType: mt} }
func closeMatch(mt domain.MatchType) Result   { return Result{IsClose: true, MatchType: mt} }

var incorrect = Result{MatchType: domain.MatchNone}

// Thresholds tunes the numeric, word-overlap and fuzzy tiers.
type Thresholds struct {
	FuzzyCorrect    float64
	FuzzyClose      float64
	OverlapClose    float64
	NumericRelative float64
	NumericAbsolute float64
	// NumericMaxDelta caps the relative window; zero leaves it uncapped.
	NumericMaxDelta float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		FuzzyCorrect:    0.85,
		FuzzyClose:      0.6,
		OverlapClose:    0.75,
		NumericRelative: 0.05,
		NumericAbsolute: 1,
		NumericMaxDelta: 2,
	}
}

// candidate is the input every tier sees.
type candidate struct {
	raw        string
	normalized string
	correct    string
	// choiceLetter and choiceText are set when correct is a lettered option.
	choiceLetter string
	choiceText   string
}

// targets are the strings an answer may match: the full correct answer and,
// for lettered options, the option text.
func (c candidate) targets() []string {
	if c.choiceText != "" {
		return []string{c.correct, c.choiceText}
	}
	return []string{c.correct}
}

// tier decides an answer or passes (decided=false) to the next tier.
type tier struct {
	name  string
	check func(c candidate, th Thresholds) (res Result, decided bool)
}

// pipeline returns the matching tiers in evaluation order.
func pipeline() []tier {
	return []tier{
		{name: "exact", check: exactTier},
		{name: "case_insensitive", check: caseInsensitiveTier},
		{name: "abbreviation", check: abbreviationTier},
		{name: "numeric", check: numericTier},
		{name: "word_overlap", check: wordOverlapTier},
		{name: "fuzzy", check: fuzzyTier},
	}
}

type Evaluator struct {
	th    Thresholds
	tiers []tier
}

func New(th Thresholds) *Evaluator {
	return &Evaluator{th: th, tiers: pipeline()}
}

var defaultEvaluator = New(DefaultThresholds())

// Evaluate classifies an answer with the default thresholds.
func Evaluate(userAnswer, normalizedAnswer, correctAnswer string) Result {
	return defaultEvaluator.Evaluate(userAnswer, normalizedAnswer, correctAnswer)
}

// Evaluate runs the tiers in order; the first tier that decides wins. Empty
// answers and empty correct answers are incorrect with match type none.
func (e *Evaluator) Evaluate(userAnswer, normalizedAnswer, correctAnswer string) Result {
	raw := strings.TrimSpace(userAnswer)
	want := strings.TrimSpace(correctAnswer)
	if raw == "" || want == "" {
		return incorrect
	}
	norm := strings.TrimSpace(normalizedAnswer)
	if norm == "" {
		norm = Normalize(raw, domain.QuestionTypeSingleAnswer)
	}
	if norm == "" {
		return incorrect
	}

	c := candidate{raw: raw, normalized: norm, correct: want}
	if letter, text, ok := splitChoice(want); ok {
		c.choiceLetter, c.choiceText = letter, text
	}

	for _, t := range e.tiers {
		if res, decided := t.check(c, e.th); decided {
			return res
		}
	}
	return incorrect
}

func exactTier(c candidate, _ Thresholds) (Result, bool) {
	for _, t := range c.targets() {
		if c.raw == t || c.normalized == t {
			return correctMatch(domain.MatchExact), true
		}
	}
	return Result{}, false
}

func caseInsensitiveTier(c candidate, _ Thresholds) (Result, bool) {
	for _, t := range c.targets() {
		if strings.EqualFold(c.raw, t) || strings.EqualFold(c.normalized, t) {
			return correctMatch(domain.MatchCaseInsensitive), true
		}
		if ct := canonical(t); ct != "" && canonical(c.normalized) == ct {
			return correctMatch(domain.MatchCaseInsensitive), true
		}
	}
	return Result{}, false
}

// abbreviationTier accepts the option letter of a lettered multiple choice
// answer, or the initials of a multi-word answer ("gta5", "gow", "botw").
func abbreviationTier(c candidate, _ Thresholds) (Result, bool) {
	if c.choiceLetter != "" && strings.EqualFold(strings.Trim(c.normalized, ").: "), c.choiceLetter) {
		return correctMatch(domain.MatchAbbreviation), true
	}

	compact := strings.NewReplacer(".", "", " ", "", "-", "").Replace(strings.ToLower(c.normalized))
	if utf8.RuneCountInString(compact) < 2 {
		return Result{}, false
	}
	for _, t := range c.targets() {
		words := tokens(t)
		if len(words) < 2 {
			continue
		}
		if compact == initials(words) || compact == initials(significant(words)) {
			return correctMatch(domain.MatchAbbreviation), true
		}
	}
	return Result{}, false
}

// initials keeps numerals whole so "Grand Theft Auto 5" becomes "gta5".
func initials(words []string) string {
	var b strings.Builder
	for _, w := range words {
		if _, err := strconv.Atoi(w); err == nil {
			b.WriteString(w)
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(r)
	}
	return b.String()
}

// numericTier is terminal once both sides parse as numbers.
func numericTier(c candidate, th Thresholds) (Result, bool) {
	want, ok := parseNumber(c.correct)
	if !ok {
		return Result{}, false
	}
	got, ok := parseNumber(c.normalized)
	if !ok {
		return Result{}, false
	}
	if got == want {
		return correctMatch(domain.MatchNumeric), true
	}
	if util.WithinTolerance(got, want, th.NumericAbsolute, th.NumericRelative, th.NumericMaxDelta) {
		return closeMatch(domain.MatchNumeric), true
	}
	return incorrect, true
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimRight(s, trailingPunct)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// wordOverlapTier treats an in-order answer that only drops minor words as
// correct ("God War" for "God of War"), and a high share of the significant
// words in any order as close ("War God").
func wordOverlapTier(c candidate, th Thresholds) (Result, bool) {
	user := tokens(c.normalized)
	if len(user) == 0 {
		return Result{}, false
	}
	for _, t := range c.targets() {
		if subsequenceSkippingMinor(user, tokens(t)) {
			return correctMatch(domain.MatchWordOverlap), true
		}
	}

	best := 0.0
	for _, t := range c.targets() {
		if r := overlapRatio(significant(user), significant(tokens(t))); r > best {
			best = r
		}
	}
	if best >= th.OverlapClose {
		return closeMatch(domain.MatchWordOverlap), true
	}
	return Result{}, false
}

func subsequenceSkippingMinor(user, want []string) bool {
	if len(user) >= len(want) {
		return false
	}
	i := 0
	for _, w := range want {
		if i < len(user) && user[i] == w {
			i++
			continue
		}
		if !minorWords[w] {
			return false
		}
	}
	return i == len(user)
}

func overlapRatio(user, want []string) float64 {
	if len(user) == 0 || len(want) == 0 {
		return 0
	}
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	seen := make(map[string]bool, len(user))
	matched := 0
	for _, u := range user {
		if wantSet[u] && !seen[u] {
			matched++
		}
		seen[u] = true
	}
	denom := len(wantSet)
	if len(seen) > denom {
		denom = len(seen)
	}
	return float64(matched) / float64(denom)
}

// fuzzyTier only calls an answer correct when its numerals agree with the
// target's, so "Dark Souls 2" stays close to "Dark Souls 3".
func fuzzyTier(c candidate, th Thresholds) (Result, bool) {
	a := canonical(c.normalized)
	best := 0.0
	numeralsAgree := false
	for _, t := range c.targets() {
		b := canonical(t)
		d := levenshtein.ComputeDistance(a, b)
		if r := util.SimilarityRatio(d, utf8.RuneCountInString(a), utf8.RuneCountInString(b)); r > best {
			best = r
			numeralsAgree = sameNumerals(c.normalized, t)
		}
	}
	switch {
	case best >= th.FuzzyCorrect && numeralsAgree:
		return correctMatch(domain.MatchFuzzy), true
	case best >= th.FuzzyClose:
		return closeMatch(domain.MatchFuzzy), true
	}
	return Result{}, false
}

func sameNumerals(a, b string) bool {
	return slices.Equal(numerals(a), numerals(b))
}

// numerals returns the digit runs of s in order.
func numerals(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			out = append(out, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}
