package generator

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/history"
	"ash-trivia/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reply struct {
	text string
	err  error
}

// scriptedModel returns canned replies in order and records every prompt.
type scriptedModel struct {
	mu      sync.Mutex
	replies []reply
	calls   []domain.PromptContext
}

func (m *scriptedModel) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, pc)
	if len(m.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.text, r.err
}

func (m *scriptedModel) Name() string { return "scripted" }

type memoryStore struct {
	saved   []history.State
	cleared bool
	loadErr error
	state   history.State
}

func (s *memoryStore) Load(context.Context) (history.State, error) { return s.state, s.loadErr }
func (s *memoryStore) Save(_ context.Context, st history.State) error {
	s.saved = append(s.saved, st)
	return nil
}
func (s *memoryStore) Clear(context.Context) error {
	s.cleared = true
	return nil
}

func playtimeSnapshot() *domain.GameSnapshot {
	return &domain.GameSnapshot{Games: []domain.Game{
		{CanonicalName: "Game A", TotalPlaytimeMinutes: 600},
		{CanonicalName: "Game B", TotalPlaytimeMinutes: 300},
	}}
}

func newGenerator(model domain.QuestionModel, store HistoryStore) (*Generator, *history.History) {
	h := history.New(history.Options{Size: 10, Cooldown: 72 * time.Hour})
	templates := template.NewStore(template.DefaultCatalog(), rand.New(rand.NewPCG(1, 2)))
	return New(templates, model, h, store, Options{ModelTimeout: time.Second}, zap.NewNop()), h
}

func TestGenerate_PrefersTemplate(t *testing.T) {
	store := &memoryStore{}
	model := &scriptedModel{}
	g, h := newGenerator(model, store)

	p, err := g.Generate(context.Background(), playtimeSnapshot())
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionSourceTemplate, p.Source)
	assert.Equal(t, "longest_playtime", p.TemplateID)
	assert.Equal(t, "Game A", p.CorrectAnswer)
	assert.Empty(t, model.calls, "model is not consulted when a template fits")

	v := h.View()
	assert.Equal(t, 1, v.Usage["longest_playtime"])
	assert.True(t, v.CoolingDown("playtime"))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "playtime", store.saved[0].Recent[0].Category)
}

func TestGenerate_FallsBackToModel(t *testing.T) {
	model := &scriptedModel{replies: []reply{{text: "<think>hmm</think>\nSure!\n```json\n{\"question_text\": \"Which studio made Hades?\", \"question_type\": \"single_answer\", \"correct_answer\": \"Supergiant Games\", \"category\": \"Studios\", \"difficulty_level\": \"hard\"}\n```"}}}
	g, h := newGenerator(model, nil)
	h.Record(history.Entry{Category: "genre"})

	p, err := g.Generate(context.Background(), &domain.GameSnapshot{Games: []domain.Game{{CanonicalName: "Hades"}}})
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionSourceAI, p.Source)
	assert.Equal(t, "Which studio made Hades?", p.Text)
	assert.Equal(t, "Supergiant Games", p.CorrectAnswer)
	assert.Equal(t, "studios", p.Category)
	assert.Equal(t, 3, p.DifficultyLevel)
	assert.False(t, p.IsDynamic)

	require.Len(t, model.calls, 1)
	assert.False(t, model.calls[0].Strict)
	assert.Equal(t, []string{"genre"}, model.calls[0].AvoidCategories)
	assert.Len(t, model.calls[0].Games, 1)
	assert.True(t, h.View().CoolingDown("studios"))
}

func TestGenerate_RetriesOnceWithStrictPrompt(t *testing.T) {
	model := &scriptedModel{replies: []reply{
		{text: "I can't think of one right now."},
		{text: `{"question_text": "What year did Elden Ring release?", "question_type": "single_answer", "correct_answer": 2022}`},
	}}
	g, _ := newGenerator(model, nil)

	p, err := g.Generate(context.Background(), &domain.GameSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, "2022", p.CorrectAnswer)
	assert.Equal(t, aiCategory, p.Category)
	require.Len(t, model.calls, 2)
	assert.True(t, model.calls[1].Strict)
}

func TestGenerate_FailsAfterSecondBadResponse(t *testing.T) {
	model := &scriptedModel{replies: []reply{
		{text: `{"question_text": "Missing answer"}`},
		{text: `not json at all`},
	}}
	g, h := newGenerator(model, nil)

	_, err := g.Generate(context.Background(), &domain.GameSnapshot{})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrGenerationFailure))
	assert.Len(t, model.calls, 2)
	assert.Empty(t, h.View().Recent, "failed generations are not recorded")
}

func TestGenerate_ProviderErrorSurfaces(t *testing.T) {
	providerErr := domain.NewProviderError("openai", errors.New("429"))
	model := &scriptedModel{replies: []reply{{err: providerErr}, {err: providerErr}}}
	g, _ := newGenerator(model, nil)

	_, err := g.Generate(context.Background(), &domain.GameSnapshot{})
	assert.True(t, domain.IsCode(err, domain.ErrProvider))
}

func TestGenerate_NoTemplateNoModel(t *testing.T) {
	g, _ := newGenerator(nil, nil)
	_, err := g.Generate(context.Background(), &domain.GameSnapshot{})
	assert.True(t, domain.IsCode(err, domain.ErrGenerationFailure))
}

func TestGenerate_MultipleChoiceFromModel(t *testing.T) {
	model := &scriptedModel{replies: []reply{{text: `{"question_text": "Which console?", "question_type": "multiple_choice", "correct_answer": "B", "choices": ["PC", "PS5", "Switch"]}`}}}
	g, _ := newGenerator(model, nil)

	p, err := g.Generate(context.Background(), &domain.GameSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionTypeMultipleChoice, p.Type)
	assert.Equal(t, []string{"A) PC", "B) PS5", "C) Switch"}, p.Choices)
	assert.Equal(t, "B) PS5", p.CorrectAnswer)
}

func TestHistoryLoadAndReset(t *testing.T) {
	store := &memoryStore{state: history.State{
		Recent: []history.Entry{{TemplateID: "release_year", Category: "release", QuestionText: "When?"}},
		Usage:  map[string]int{"release_year": 4},
	}}
	g, h := newGenerator(nil, store)

	require.NoError(t, g.LoadHistory(context.Background()))
	assert.Equal(t, 4, h.View().Usage["release_year"])

	require.NoError(t, g.ResetHistory(context.Background()))
	assert.Empty(t, h.View().Usage)
	assert.True(t, store.cleared)

	store.loadErr = errors.New("redis down")
	assert.Error(t, g.LoadHistory(context.Background()))
}
