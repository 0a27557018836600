package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// aiQuestion is the object a question model is asked to return.
type aiQuestion struct {
	QuestionText    string   `json:"question_text"`
	CorrectAnswer   string   `json:"-"`
	RawAnswer       any      `json:"correct_answer"`
	Category        string   `json:"category"`
	DifficultyLevel int      `json:"-"`
	RawDifficulty   any      `json:"difficulty_level"`
	QuestionType    string   `json:"question_type"`
	Choices         []string `json:"choices"`
}

const questionSchemaURL = "schema://ai_question.json"

const questionSchema = `{
  "type": "object",
  "required": ["question_text", "question_type", "correct_answer"],
  "properties": {
    "question_text": {"type": "string", "minLength": 1},
    "correct_answer": {"type": ["string", "number"]},
    "category": {"type": "string"},
    "difficulty_level": {"type": ["integer", "string"]},
    "question_type": {"enum": ["single_answer", "multiple_choice"]},
    "choices": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		def, err := jsonschema.UnmarshalJSON(strings.NewReader(questionSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(questionSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(questionSchemaURL)
	})
	return compiledSchema, compileErr
}

var (
	errNoObject      = errors.New("no JSON object in model response")
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	fenceRe          = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	thinkRe          = regexp.MustCompile(`(?s)<think>.*?</think>`)
	difficultyByName = map[string]int{"easy": 1, "medium": 2, "hard": 3}
)

// extractObject strips reasoning blocks, markdown fences and surrounding prose
// and returns the outermost {...} span.
func extractObject(raw string) (string, error) {
	s := thinkRe.ReplaceAllString(raw, "")
	if m := fenceRe.FindStringSubmatch(s); m != nil && strings.Contains(m[1], "{") {
		s = m[1]
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", errNoObject
	}
	return s[start : end+1], nil
}

// repair fixes the usual ways models break JSON: trailing commas, single
// quoted strings and bare keys.
func repair(s string) string {
	s = singleToDoubleQuotes(s)
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// singleToDoubleQuotes rewrites 'strings' as "strings". Apostrophes inside
// double quoted strings are left alone.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble, inSingle, escaped := false, false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			if inSingle && r == '\'' {
				b.WriteRune(r)
				continue
			}
			b.WriteRune('\\')
			b.WriteRune(r)
			continue
		case r == '\\':
			escaped = true
			continue
		case inDouble:
			if r == '"' {
				inDouble = false
			}
		case inSingle:
			switch r {
			case '\'':
				inSingle = false
				r = '"'
			case '"':
				b.WriteString(`\"`)
				continue
			}
		case r == '"':
			inDouble = true
		case r == '\'':
			inSingle = true
			r = '"'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseQuestion turns raw model text into a validated question. Strict JSON
// is tried first, then the repaired text.
func parseQuestion(raw string) (*aiQuestion, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		obj = repair(obj)
		if err := json.Unmarshal([]byte(obj), &doc); err != nil {
			return nil, fmt.Errorf("unparseable model response: %w", err)
		}
	}

	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("model response does not match schema: %w", err)
	}

	var q aiQuestion
	if err := json.Unmarshal([]byte(obj), &q); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	q.QuestionText = strings.TrimSpace(q.QuestionText)
	q.CorrectAnswer = strings.TrimSpace(scalarString(q.RawAnswer))
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.QuestionType = strings.TrimSpace(q.QuestionType)
	q.DifficultyLevel = difficulty(q.RawDifficulty)

	if q.QuestionText == "" {
		return nil, errors.New("model returned an empty question")
	}
	if q.CorrectAnswer == "" {
		return nil, errors.New("model returned an empty answer")
	}
	if q.QuestionType == "" {
		return nil, errors.New("model returned no question type")
	}
	return &q, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func difficulty(v any) int {
	switch t := v.(type) {
	case float64:
		if t >= 1 && t <= 3 {
			return int(t)
		}
	case string:
		if n, ok := difficultyByName[strings.ToLower(strings.TrimSpace(t))]; ok {
			return n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n >= 1 && n <= 3 {
			return n
		}
	}
	return 2
}
