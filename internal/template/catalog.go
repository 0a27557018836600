package template

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"ash-trivia/internal/domain"
)

// ErrInsufficientData is returned when a snapshot no longer supports a
// template, e.g. a dynamic answer resolved after games were removed.
var ErrInsufficientData = errors.New("snapshot does not have the data this template needs")

var choiceLetters = []string{"A", "B", "C", "D"}

// DefaultCatalog returns every built-in template.
func DefaultCatalog() []Template {
	return []Template{
		longestPlaytime(),
		mostEpisodes(),
		episodeCount(),
		genreCount(),
		releaseYear(),
		seriesCount(),
		shortestCompleted(),
		platformChoice(),
	}
}

func hasPlaytime(g domain.Game) bool { return g.TotalPlaytimeMinutes > 0 }
func hasEpisodes(g domain.Game) bool { return g.TotalEpisodes > 0 }
func hasRelease(g domain.Game) bool  { return g.ReleaseYear > 0 }
func hasPlatform(g domain.Game) bool { return strings.TrimSpace(g.Platform) != "" }

func completedWith(pred func(domain.Game) bool) func(domain.Game) bool {
	return func(g domain.Game) bool {
		return g.CompletionStatus == domain.CompletionCompleted && pred(g)
	}
}

// extreme returns the game with the largest (or smallest) key. Ties go to
// the alphabetically first name so the answer is stable.
func extreme(games []domain.Game, key func(domain.Game) int, largest bool) (domain.Game, bool) {
	if len(games) == 0 {
		return domain.Game{}, false
	}
	best := games[0]
	for _, g := range games[1:] {
		k, bk := key(g), key(best)
		better := k > bk
		if !largest {
			better = k < bk
		}
		if better || (k == bk && strings.ToLower(g.CanonicalName) < strings.ToLower(best.CanonicalName)) {
			best = g
		}
	}
	return best, true
}

// groupsOfAtLeast returns the distinct non-empty values of field shared by at
// least n games, sorted.
func groupsOfAtLeast(s *domain.GameSnapshot, field func(domain.Game) string, n int) []string {
	counts := map[string]int{}
	display := map[string]string{}
	for _, g := range s.Games {
		v := strings.TrimSpace(field(g))
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		counts[k]++
		if _, ok := display[k]; !ok {
			display[k] = v
		}
	}
	var out []string
	for k, c := range counts {
		if c >= n {
			out = append(out, display[k])
		}
	}
	sort.Strings(out)
	return out
}

func countWhere(s *domain.GameSnapshot, field func(domain.Game) string, value string) int {
	return len(s.Filter(func(g domain.Game) bool { return strings.EqualFold(strings.TrimSpace(field(g)), value) }))
}

func pick(games []domain.Game, rng *rand.Rand) domain.Game {
	sort.Slice(games, func(i, j int) bool { return games[i].CanonicalName < games[j].CanonicalName })
	return games[rng.IntN(len(games))]
}

// superlative builds a dynamic "which game has the most/least X" template.
func superlative(id, category, text string, difficulty int, filter func(domain.Game) bool, key func(domain.Game) int, largest bool) Template {
	resolve := func(s *domain.GameSnapshot, _ map[string]string) (string, error) {
		g, ok := extreme(s.Filter(filter), key, largest)
		if !ok {
			return "", ErrInsufficientData
		}
		return g.CanonicalName, nil
	}
	return Template{
		ID:         id,
		Category:   category,
		Weight:     1.0,
		Difficulty: difficulty,
		Type:       domain.QuestionTypeSingleAnswer,
		Dynamic:    true,
		Requires: func(s *domain.GameSnapshot) bool {
			return len(s.Filter(filter)) >= 2
		},
		Build: func(s *domain.GameSnapshot, _ *rand.Rand) (Instance, error) {
			answer, err := resolve(s, nil)
			if err != nil {
				return Instance{}, err
			}
			return Instance{Text: text, Answer: answer, Params: map[string]string{}}, nil
		},
		Resolve: resolve,
	}
}

func longestPlaytime() Template {
	return superlative("longest_playtime", "playtime",
		"Which game has racked up the most total playtime on the channel?", 1,
		hasPlaytime, func(g domain.Game) int { return g.TotalPlaytimeMinutes }, true)
}

func mostEpisodes() Template {
	return superlative("most_episodes", "episodes",
		"Which game's playthrough has the most episodes?", 1,
		hasEpisodes, func(g domain.Game) int { return g.TotalEpisodes }, true)
}

func shortestCompleted() Template {
	return superlative("shortest_completed", "completion",
		"Of the games played to completion, which one took the least total playtime?", 3,
		completedWith(hasPlaytime), func(g domain.Game) int { return g.TotalPlaytimeMinutes }, false)
}

// episodeCount only uses completed games, whose episode count no longer
// changes, so the answer is frozen at generation.
func episodeCount() Template {
	eligible := completedWith(hasEpisodes)
	return Template{
		ID:         "episode_count",
		Category:   "episodes",
		Weight:     0.8,
		Difficulty: 2,
		Type:       domain.QuestionTypeSingleAnswer,
		Requires: func(s *domain.GameSnapshot) bool {
			return len(s.Filter(eligible)) > 0
		},
		Build: func(s *domain.GameSnapshot, rng *rand.Rand) (Instance, error) {
			games := s.Filter(eligible)
			if len(games) == 0 {
				return Instance{}, ErrInsufficientData
			}
			g := pick(games, rng)
			return Instance{
				Text:   fmt.Sprintf("How many episodes did the %s playthrough run for?", g.CanonicalName),
				Answer: strconv.Itoa(g.TotalEpisodes),
				Params: map[string]string{"game": g.CanonicalName},
			}, nil
		},
	}
}

func releaseYear() Template {
	return Template{
		ID:         "release_year",
		Category:   "release",
		Weight:     0.8,
		Difficulty: 2,
		Type:       domain.QuestionTypeSingleAnswer,
		Requires: func(s *domain.GameSnapshot) bool {
			return len(s.Filter(hasRelease)) > 0
		},
		Build: func(s *domain.GameSnapshot, rng *rand.Rand) (Instance, error) {
			games := s.Filter(hasRelease)
			if len(games) == 0 {
				return Instance{}, ErrInsufficientData
			}
			g := pick(games, rng)
			return Instance{
				Text:   fmt.Sprintf("In what year was %s originally released?", g.CanonicalName),
				Answer: strconv.Itoa(g.ReleaseYear),
				Params: map[string]string{"game": g.CanonicalName},
			}, nil
		},
	}
}

// grouped builds a dynamic "how many games share this X" template.
func grouped(id, category, param, format string, field func(domain.Game) string) Template {
	return Template{
		ID:         id,
		Category:   category,
		Weight:     1.0,
		Difficulty: 2,
		Type:       domain.QuestionTypeSingleAnswer,
		Dynamic:    true,
		Requires: func(s *domain.GameSnapshot) bool {
			return len(groupsOfAtLeast(s, field, 2)) > 0
		},
		Build: func(s *domain.GameSnapshot, rng *rand.Rand) (Instance, error) {
			groups := groupsOfAtLeast(s, field, 2)
			if len(groups) == 0 {
				return Instance{}, ErrInsufficientData
			}
			value := groups[rng.IntN(len(groups))]
			return Instance{
				Text:   fmt.Sprintf(format, value),
				Answer: strconv.Itoa(countWhere(s, field, value)),
				Params: map[string]string{param: value},
			}, nil
		},
		Resolve: func(s *domain.GameSnapshot, params map[string]string) (string, error) {
			value := params[param]
			if value == "" {
				return "", fmt.Errorf("answer rule for %s is missing %q", id, param)
			}
			return strconv.Itoa(countWhere(s, field, value)), nil
		},
	}
}

func genreCount() Template {
	return grouped("genre_count", "genre", "genre",
		"How many %s games have been played on the channel?",
		func(g domain.Game) string { return g.Genre })
}

func seriesCount() Template {
	return grouped("series_count", "series", "series",
		"How many games from the %s series have been played on the channel?",
		func(g domain.Game) string { return g.SeriesName })
}

// platformChoice is a multiple choice question; the answer is stored as the
// lettered option, e.g. "B) PlayStation 4".
func platformChoice() Template {
	platforms := func(s *domain.GameSnapshot) []string {
		return groupsOfAtLeast(s, func(g domain.Game) string { return g.Platform }, 1)
	}
	return Template{
		ID:         "platform",
		Category:   "platform",
		Weight:     0.7,
		Difficulty: 1,
		Type:       domain.QuestionTypeMultipleChoice,
		Requires: func(s *domain.GameSnapshot) bool {
			return len(platforms(s)) >= 3
		},
		Build: func(s *domain.GameSnapshot, rng *rand.Rand) (Instance, error) {
			all := platforms(s)
			games := s.Filter(hasPlatform)
			if len(all) < 3 || len(games) == 0 {
				return Instance{}, ErrInsufficientData
			}
			g := pick(games, rng)
			right := strings.TrimSpace(g.Platform)

			var distractors []string
			for _, p := range all {
				if !strings.EqualFold(p, right) {
					distractors = append(distractors, p)
				}
			}
			rng.Shuffle(len(distractors), func(i, j int) { distractors[i], distractors[j] = distractors[j], distractors[i] })
			if len(distractors) > len(choiceLetters)-1 {
				distractors = distractors[:len(choiceLetters)-1]
			}
			options := append(distractors, right)
			rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

			var answer string
			choices := make([]string, len(options))
			for i, o := range options {
				choices[i] = choiceLetters[i] + ") " + o
				if o == right {
					answer = choices[i]
				}
			}
			return Instance{
				Text:    fmt.Sprintf("On which platform was %s played on the channel?", g.CanonicalName),
				Answer:  answer,
				Params:  map[string]string{"game": g.CanonicalName},
				Choices: choices,
			}, nil
		},
	}
}
