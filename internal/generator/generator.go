// Package generator produces new trivia questions, preferring the template
// catalog and falling back to an AI question model when no template fits.
package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/history"
	"ash-trivia/internal/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultModelTimeout = 30 * time.Second
	defaultRecentLimit  = 10
	maxPromptGames      = 40
	aiCategory          = "general"
)

// HistoryStore persists the question history between restarts.
type HistoryStore interface {
	Load(ctx context.Context) (history.State, error)
	Save(ctx context.Context, st history.State) error
	Clear(ctx context.Context) error
}

type Options struct {
	ModelTimeout time.Duration
	RecentLimit  int
	Style        string
}

// Generator is safe for concurrent use.
type Generator struct {
	templates *template.Store
	model     domain.QuestionModel
	history   *history.History
	store     HistoryStore
	opts      Options
	logger    *zap.Logger
}

// New wires a generator. model and store may be nil; without a model the
// generator only uses templates, without a store history lives in memory.
func New(templates *template.Store, model domain.QuestionModel, hist *history.History, store HistoryStore, opts Options, logger *zap.Logger) *Generator {
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = defaultModelTimeout
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecentLimit
	}
	return &Generator{
		templates: templates,
		model:     model,
		history:   hist,
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// LoadHistory restores persisted history. A missing store is not an error.
func (g *Generator) LoadHistory(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	st, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load question history: %w", err)
	}
	g.history.Restore(st)
	g.logger.Info("Question history restored", zap.Int("recent", len(st.Recent)), zap.Int("templates_used", len(st.Usage)))
	return nil
}

// ResetHistory forgets every recorded generation.
func (g *Generator) ResetHistory(ctx context.Context) error {
	g.history.Reset()
	if g.store == nil {
		return nil
	}
	return g.store.Clear(ctx)
}

// Generate returns a question that has not been stored yet.
func (g *Generator) Generate(ctx context.Context, snapshot *domain.GameSnapshot) (*domain.QuestionPayload, error) {
	trace := uuid.NewString()
	log := g.logger.With(zap.String("trace_id", trace))

	if t := g.templates.SelectBest(snapshot, g.history.View()); t != nil {
		p, err := g.templates.Instantiate(t, snapshot)
		if err == nil {
			log.Info("Generated question from template",
				zap.String("template_id", t.ID),
				zap.String("category", t.Category),
				zap.Bool("dynamic", p.IsDynamic))
			g.record(ctx, p)
			return p, nil
		}
		log.Warn("Template instantiation failed, falling back to question model", zap.String("template_id", t.ID), zap.Error(err))
	}

	if g.model == nil {
		return nil, domain.NewGenerationFailure("no template fits the game data and no question model is configured", nil)
	}
	p, err := g.generateAI(ctx, log, snapshot)
	if err != nil {
		return nil, err
	}
	g.record(ctx, p)
	return p, nil
}

func (g *Generator) generateAI(ctx context.Context, log *zap.Logger, snapshot *domain.GameSnapshot) (*domain.QuestionPayload, error) {
	view := g.history.View()
	pc := domain.PromptContext{
		Style:           g.opts.Style,
		RecentQuestions: g.history.RecentQuestions(g.opts.RecentLimit),
	}
	for c := range view.Cooldowns {
		pc.AvoidCategories = append(pc.AvoidCategories, c)
	}
	if snapshot != nil {
		pc.Games = snapshot.Games
		if len(pc.Games) > maxPromptGames {
			pc.Games = pc.Games[:maxPromptGames]
		}
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		pc.Strict = attempt > 1

		callCtx, cancel := context.WithTimeout(ctx, g.opts.ModelTimeout)
		start := time.Now()
		raw, err := g.model.Generate(callCtx, pc)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Question model call failed",
				zap.String("model", g.model.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			lastErr = err
			continue
		}

		q, err := parseQuestion(raw)
		if err != nil {
			log.Warn("Question model returned an unusable response",
				zap.String("model", g.model.Name()),
				zap.Int("attempt", attempt),
				zap.String("raw_response", truncate(raw, 500)),
				zap.Error(err))
			lastErr = err
			continue
		}

		p := toPayload(q)
		log.Info("Generated question from model",
			zap.String("model", g.model.Name()),
			zap.String("category", p.Category),
			zap.Int("attempt", attempt))
		return p, nil
	}

	if domain.IsCode(lastErr, domain.ErrProvider) {
		return nil, lastErr
	}
	return nil, domain.NewGenerationFailure("question model did not return a usable question", lastErr)
}

var letteredRe = regexp.MustCompile(`^\s*[A-Za-z]\s*[\).:]\s+`)

func toPayload(q *aiQuestion) *domain.QuestionPayload {
	p := &domain.QuestionPayload{
		Text:            q.QuestionText,
		Type:            domain.QuestionTypeSingleAnswer,
		CorrectAnswer:   q.CorrectAnswer,
		Category:        q.Category,
		DifficultyLevel: q.DifficultyLevel,
		Source:          domain.QuestionSourceAI,
	}
	if p.Category == "" {
		p.Category = aiCategory
	}
	if q.QuestionType == string(domain.QuestionTypeMultipleChoice) || len(q.Choices) >= 2 {
		p.Type = domain.QuestionTypeMultipleChoice
		p.Choices, p.CorrectAnswer = letterChoices(q.Choices, q.CorrectAnswer)
	}
	return p
}

// letterChoices prefixes bare options with A), B), ... and rewrites the
// answer to the matching lettered option when it names one.
func letterChoices(choices []string, answer string) ([]string, string) {
	out := make([]string, 0, len(choices))
	for i, c := range choices {
		c = strings.TrimSpace(c)
		if !letteredRe.MatchString(c) && i < 26 {
			c = fmt.Sprintf("%c) %s", 'A'+i, c)
		}
		out = append(out, c)
	}
	for _, c := range out {
		letter := strings.ToUpper(c[:1])
		text := strings.TrimSpace(letteredRe.ReplaceAllString(c, ""))
		if strings.EqualFold(answer, letter) || strings.EqualFold(answer, text) || strings.EqualFold(answer, c) {
			return out, c
		}
	}
	return out, answer
}

func (g *Generator) record(ctx context.Context, p *domain.QuestionPayload) {
	g.history.Record(history.Entry{
		TemplateID:   p.TemplateID,
		Category:     p.Category,
		QuestionText: p.Text,
	})
	if g.store == nil {
		return
	}
	if err := g.store.Save(ctx, g.history.State()); err != nil {
		g.logger.Warn("Failed to persist question history", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
