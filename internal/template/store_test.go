package template

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func richSnapshot() *domain.GameSnapshot {
	return &domain.GameSnapshot{
		TakenAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Games: []domain.Game{
			{CanonicalName: "Elden Ring", Genre: "Action RPG", SeriesName: "Souls", Platform: "PC", ReleaseYear: 2022, TotalEpisodes: 60, TotalPlaytimeMinutes: 6000, CompletionStatus: domain.CompletionCompleted},
			{CanonicalName: "Dark Souls", Genre: "Action RPG", SeriesName: "Souls", Platform: "PlayStation 3", ReleaseYear: 2011, TotalEpisodes: 40, TotalPlaytimeMinutes: 3000, CompletionStatus: domain.CompletionCompleted},
			{CanonicalName: "Hades", Genre: "Roguelike", Platform: "Nintendo Switch", ReleaseYear: 2020, TotalEpisodes: 12, TotalPlaytimeMinutes: 900, CompletionStatus: domain.CompletionOngoing},
			{CanonicalName: "Bloodborne", Genre: "Action RPG", SeriesName: "Souls", Platform: "PlayStation 4", ReleaseYear: 2015, TotalEpisodes: 30, TotalPlaytimeMinutes: 2100, CompletionStatus: domain.CompletionCompleted},
		},
	}
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestSelectBest_CategoryDiversity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	h := history.New(history.Options{Size: 20, Cooldown: 72 * time.Hour, Clock: clock})
	store := NewStore(DefaultCatalog(), seeded())
	snapshot := richSnapshot()

	var categories []string
	for i := 0; i < 8; i++ {
		tmpl := store.SelectBest(snapshot, h.View())
		require.NotNil(t, tmpl)
		p, err := store.Instantiate(tmpl, snapshot)
		require.NoError(t, err)
		categories = append(categories, p.Category)
		h.Record(history.Entry{TemplateID: tmpl.ID, Category: tmpl.Category, QuestionText: p.Text})
		now = now.Add(10 * time.Minute)
	}

	distinct := map[string]bool{}
	for _, c := range categories {
		distinct[c] = true
	}
	assert.GreaterOrEqual(t, len(distinct), 4, "categories: %v", categories)
	for i := 2; i < len(categories); i++ {
		assert.False(t, categories[i] == categories[i-1] && categories[i] == categories[i-2],
			"category %q three times in a row: %v", categories[i], categories)
	}
}

func TestSelectBest_AllCoolingFallsBackToEarliestExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore([]Template{
		{ID: "a", Category: "playtime", Weight: 1},
		{ID: "b", Category: "genre", Weight: 1},
		{ID: "c", Category: "release", Weight: 1},
	}, seeded())
	view := history.View{
		Now: now,
		Cooldowns: map[string]time.Time{
			"playtime": now.Add(time.Hour),
			"genre":    now.Add(2 * time.Hour),
			"release":  now.Add(3 * time.Hour),
		},
		Usage:        map[string]int{"a": 1, "b": 1, "c": 1},
		LastCategory: "playtime",
	}

	got := store.SelectBest(richSnapshot(), view)
	require.NotNil(t, got)
	assert.Equal(t, "genre", got.Category, "last category is skipped when another is available")

	view.LastCategory = "release"
	got = store.SelectBest(richSnapshot(), view)
	require.NotNil(t, got)
	assert.Equal(t, "playtime", got.Category)
}

func TestSelectBest_NothingViable(t *testing.T) {
	store := NewStore(DefaultCatalog(), seeded())
	assert.Nil(t, store.SelectBest(&domain.GameSnapshot{}, history.View{}))
}

func TestSelectBest_UniformWhenWeightsEqual(t *testing.T) {
	store := NewStore([]Template{
		{ID: "a", Category: "x", Weight: 1},
		{ID: "b", Category: "y", Weight: 1},
	}, seeded())
	picks := map[string]int{}
	for i := 0; i < 200; i++ {
		picks[store.SelectBest(nil, history.View{}).ID]++
	}
	assert.Greater(t, picks["a"], 50)
	assert.Greater(t, picks["b"], 50)
}

func TestLongestPlaytime_EndToEnd(t *testing.T) {
	snapshot := &domain.GameSnapshot{Games: []domain.Game{
		{CanonicalName: "Game A", TotalPlaytimeMinutes: 600},
		{CanonicalName: "Game B", TotalPlaytimeMinutes: 300},
	}}
	store := NewStore(DefaultCatalog(), seeded())
	tmpl, ok := store.Get("longest_playtime")
	require.True(t, ok)
	require.True(t, tmpl.Requires(snapshot))

	p, err := store.Instantiate(tmpl, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "Game A", p.CorrectAnswer)
	assert.True(t, p.IsDynamic)
	require.NotNil(t, p.AnswerRule)
	assert.Equal(t, "longest_playtime", p.AnswerRule.TemplateID)
	assert.Equal(t, domain.QuestionSourceTemplate, p.Source)

	snapshot.Games[1].TotalPlaytimeMinutes = 900
	answer, err := store.ResolveAnswer(p.AnswerRule, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "Game B", answer, "dynamic answers follow the live data")
}

func TestExtreme_TiesBreakByName(t *testing.T) {
	g, ok := extreme([]domain.Game{
		{CanonicalName: "Zelda", TotalPlaytimeMinutes: 100},
		{CanonicalName: "axiom verge", TotalPlaytimeMinutes: 100},
	}, func(g domain.Game) int { return g.TotalPlaytimeMinutes }, true)
	require.True(t, ok)
	assert.Equal(t, "axiom verge", g.CanonicalName)
}

func TestGenreCount_ResolveCountsLiveGames(t *testing.T) {
	snapshot := richSnapshot()
	store := NewStore([]Template{genreCount()}, seeded())
	tmpl, _ := store.Get("genre_count")

	p, err := store.Instantiate(tmpl, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "Action RPG", p.AnswerRule.Params["genre"], "only genres with two or more games qualify")
	assert.Equal(t, "3", p.CorrectAnswer)

	snapshot.Games = append(snapshot.Games, domain.Game{CanonicalName: "Lies of P", Genre: "action rpg"})
	answer, err := store.ResolveAnswer(p.AnswerRule, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "4", answer)

	_, err = store.ResolveAnswer(&domain.AnswerRule{TemplateID: "genre_count"}, snapshot)
	assert.Error(t, err)
}

func TestStaticTemplates(t *testing.T) {
	snapshot := richSnapshot()
	store := NewStore(DefaultCatalog(), seeded())

	t.Run("episode count uses completed games", func(t *testing.T) {
		tmpl, _ := store.Get("episode_count")
		p, err := store.Instantiate(tmpl, snapshot)
		require.NoError(t, err)
		assert.False(t, p.IsDynamic)
		assert.Nil(t, p.AnswerRule)
		n, err := strconv.Atoi(p.CorrectAnswer)
		require.NoError(t, err)
		assert.Contains(t, []int{60, 40, 30}, n)
	})

	t.Run("platform is lettered multiple choice", func(t *testing.T) {
		tmpl, _ := store.Get("platform")
		p, err := store.Instantiate(tmpl, snapshot)
		require.NoError(t, err)
		assert.Equal(t, domain.QuestionTypeMultipleChoice, p.Type)
		assert.Len(t, p.Choices, 4)
		assert.Contains(t, p.Choices, p.CorrectAnswer)
		assert.Regexp(t, regexp.MustCompile(`^[A-D]\) .+`), p.CorrectAnswer)
	})

	t.Run("static templates have no live answer", func(t *testing.T) {
		_, err := store.ResolveAnswer(&domain.AnswerRule{TemplateID: "release_year"}, snapshot)
		assert.Error(t, err)
		_, err = store.ResolveAnswer(&domain.AnswerRule{TemplateID: "nope"}, snapshot)
		assert.Error(t, err)
		_, err = store.ResolveAnswer(nil, snapshot)
		assert.Error(t, err)
	})
}

func TestRequires(t *testing.T) {
	sparse := &domain.GameSnapshot{Games: []domain.Game{{CanonicalName: "Only Name"}}}
	for _, tmpl := range DefaultCatalog() {
		assert.False(t, tmpl.Requires(sparse), tmpl.ID)
		assert.True(t, tmpl.Requires(richSnapshot()), tmpl.ID)
	}
}
