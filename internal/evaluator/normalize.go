package evaluator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"ash-trivia/internal/domain"
)

// fillerPrefixes are stripped from the start of an answer, longest first.
var fillerPrefixes = []string{
	"i'm pretty sure it's",
	"i'm pretty sure it is",
	"i think it's",
	"i think it is",
	"i think its",
	"i believe it's",
	"i believe it is",
	"i'm guessing",
	"i believe",
	"i think",
	"my answer is",
	"my guess is",
	"the answer is",
	"answer:",
	"is it",
	"it's",
	"it is",
	"its",
	"maybe",
	"probably",
	"perhaps",
}

// minorWords may be dropped from an answer without changing its meaning.
var minorWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "&": true,
	"in": true, "on": true, "to": true, "for": true, "at": true, "by": true,
	"with": true, "from": true, "or": true,
}

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	choiceAnswerRe = regexp.MustCompile(`^([a-z])[\).:]?$`)
	choiceOptionRe = regexp.MustCompile(`^\s*([A-Za-z])\s*[\).:]\s+(.+)$`)
)

const trailingPunct = ".!?,;:\"'"

// Normalize prepares a raw chat answer for evaluation: it trims, case-folds,
// strips filler phrases, a leading article and trailing punctuation, and
// collapses whitespace. Single-letter answers to multiple choice questions
// come back upper-cased.
func Normalize(raw string, qt domain.QuestionType) string {
	s := strings.ToLower(collapse(raw))
	s = strings.NewReplacer("’", "'", "‘", "'", "“", "\"", "”", "\"").Replace(s)

	for changed := true; changed; {
		changed = false
		s = strings.TrimLeft(s, trailingPunct+" ")
		for _, p := range fillerPrefixes {
			if s == p {
				continue
			}
			if hasWordPrefix(s, p) {
				s = strings.TrimSpace(strings.TrimPrefix(s, p))
				changed = true
				break
			}
		}
	}

	s = strings.TrimRight(s, trailingPunct+" ")
	s = stripArticle(s)
	s = collapse(s)

	if qt == domain.QuestionTypeMultipleChoice {
		if m := choiceAnswerRe.FindStringSubmatch(s); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return s
}

// canonical is the lenient form both sides are compared in after the exact
// tier: lower case, no leading article, no trailing punctuation.
func canonical(s string) string {
	s = strings.ToLower(collapse(s))
	s = strings.TrimRight(s, trailingPunct+" ")
	return collapse(stripArticle(s))
}

// hasWordPrefix reports whether s starts with p followed by a non-word rune.
func hasWordPrefix(s, p string) bool {
	if !strings.HasPrefix(s, p) || len(s) == len(p) {
		return false
	}
	if strings.HasSuffix(p, ":") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[len(p):])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}

func stripArticle(s string) string {
	for _, a := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, a) && len(s) > len(a) {
			return strings.TrimSpace(s[len(a):])
		}
	}
	return s
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// tokens splits s into lower-case words, dropping punctuation other than
// apostrophes inside words.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '&')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func significant(toks []string) []string {
	var out []string
	for _, t := range toks {
		if !minorWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// splitChoice recognises lettered options such as "B) Halo".
func splitChoice(correct string) (letter, text string, ok bool) {
	m := choiceOptionRe.FindStringSubmatch(correct)
	if m == nil {
		return "", "", false
	}
	return strings.ToUpper(m[1]), strings.TrimSpace(m[2]), true
}
