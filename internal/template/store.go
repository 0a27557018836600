package template

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/history"
)

const (
	unusedBoost      = 2.0
	lastCategoryDamp = 0.25
)

// Store is the set of known templates plus the random source used to pick
// between them. It is safe for concurrent use.
type Store struct {
	templates []Template
	byID      map[string]*Template

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStore indexes templates by ID. A nil rng seeds a fresh generator.
func NewStore(templates []Template, rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Store{
		templates: templates,
		byID:      make(map[string]*Template, len(templates)),
		rng:       rng,
	}
	for i := range s.templates {
		s.byID[s.templates[i].ID] = &s.templates[i]
	}
	return s
}

func (s *Store) Get(id string) (*Template, bool) {
	t, ok := s.byID[id]
	return t, ok
}

func (s *Store) Templates() []Template {
	return append([]Template(nil), s.templates...)
}

// SelectBest picks a viable template for snapshot. Categories still cooling
// down are skipped; when every viable category is cooling down the one whose
// cooldown ends first is used, avoiding the last asked category if another
// is available. Among candidates the draw is weighted towards templates with
// low usage, never-used templates, and away from the last category. Returns
// nil when no template is viable.
func (s *Store) SelectBest(snapshot *domain.GameSnapshot, view history.View) *Template {
	var viable []*Template
	for i := range s.templates {
		t := &s.templates[i]
		if t.Requires == nil || t.Requires(snapshot) {
			viable = append(viable, t)
		}
	}
	if len(viable) == 0 {
		return nil
	}

	var candidates []*Template
	for _, t := range viable {
		if !view.CoolingDown(t.Category) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		candidates = earliestExpiry(viable, view)
	}

	weights := make([]float64, len(candidates))
	uniform := true
	for i, t := range candidates {
		w := t.Weight
		if w <= 0 {
			w = 1
		}
		used := view.Usage[t.ID]
		w /= float64(1 + used)
		switch {
		case used == 0:
			w *= unusedBoost
		case t.Category == view.LastCategory:
			w *= lastCategoryDamp
		}
		weights[i] = w
		if w != weights[0] {
			uniform = false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if uniform {
		return candidates[s.rng.IntN(len(candidates))]
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	r := s.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return candidates[i]
		}
		r -= w
	}
	return candidates[len(candidates)-1]
}

// earliestExpiry keeps the templates of the category whose cooldown ends
// first, skipping the last asked category when there is a choice.
func earliestExpiry(viable []*Template, view history.View) []*Template {
	categories := map[string]bool{}
	for _, t := range viable {
		categories[t.Category] = true
	}
	var order []string
	for c := range categories {
		if c != view.LastCategory || len(categories) == 1 {
			order = append(order, c)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		ei, ej := view.Cooldowns[order[i]], view.Cooldowns[order[j]]
		if ei.Equal(ej) {
			return order[i] < order[j]
		}
		return ei.Before(ej)
	})

	var out []*Template
	for _, t := range viable {
		if t.Category == order[0] {
			out = append(out, t)
		}
	}
	return out
}

// Instantiate builds t against snapshot into a question payload. Dynamic
// templates carry their answer rule so the answer can be recomputed later.
func (s *Store) Instantiate(t *Template, snapshot *domain.GameSnapshot) (*domain.QuestionPayload, error) {
	s.mu.Lock()
	inst, err := t.Build(snapshot, s.rng)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("build template %s: %w", t.ID, err)
	}

	p := &domain.QuestionPayload{
		Text:            inst.Text,
		Type:            t.Type,
		CorrectAnswer:   inst.Answer,
		Category:        t.Category,
		DifficultyLevel: t.Difficulty,
		TemplateID:      t.ID,
		Source:          domain.QuestionSourceTemplate,
		Choices:         inst.Choices,
	}
	if t.Dynamic {
		p.IsDynamic = true
		p.AnswerRule = &domain.AnswerRule{TemplateID: t.ID, Params: inst.Params}
	}
	return p, nil
}

// ResolveAnswer recomputes the answer of a dynamic question from snapshot.
func (s *Store) ResolveAnswer(rule *domain.AnswerRule, snapshot *domain.GameSnapshot) (string, error) {
	if rule == nil {
		return "", fmt.Errorf("question has no answer rule")
	}
	t, ok := s.Get(rule.TemplateID)
	if !ok {
		return "", fmt.Errorf("unknown template %q", rule.TemplateID)
	}
	if t.Resolve == nil {
		return "", fmt.Errorf("template %s has no live answer", t.ID)
	}
	return t.Resolve(snapshot, rule.Params)
}
