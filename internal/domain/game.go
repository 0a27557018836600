package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type CompletionStatus string

const (
	CompletionCompleted CompletionStatus = "completed"
	CompletionOngoing   CompletionStatus = "ongoing"
	CompletionDropped   CompletionStatus = "dropped"
	CompletionUnknown   CompletionStatus = "unknown"
)

// Game is a played game as templates see it. Only CanonicalName is required;
// zero values of the optional fields mean "unknown" and make the game
// invisible to templates that need them.
type Game struct {
	ID                   int64            `json:"id" db:"id"`
	CanonicalName        string           `json:"canonical_name" db:"canonical_name" validate:"required,max=200"`
	AlternativeNames     []string         `json:"alternative_names,omitempty" db:"-" validate:"dive,max=200"`
	SeriesName           string           `json:"series_name,omitempty" db:"series_name" validate:"max=200"`
	Genre                string           `json:"genre,omitempty" db:"genre" validate:"max=100"`
	ReleaseYear          int              `json:"release_year,omitempty" db:"release_year" validate:"omitempty,gte=1950,lte=2100"`
	Platform             string           `json:"platform,omitempty" db:"platform" validate:"max=100"`
	TotalEpisodes        int              `json:"total_episodes,omitempty" db:"total_episodes" validate:"gte=0"`
	TotalPlaytimeMinutes int              `json:"total_playtime_minutes,omitempty" db:"total_playtime_minutes" validate:"gte=0"`
	CompletionStatus     CompletionStatus `json:"completion_status,omitempty" db:"completion_status" validate:"omitempty,oneof=completed ongoing dropped unknown"`
	FirstPlayedAt        *time.Time       `json:"first_played_at,omitempty" db:"first_played_at"`
}

var gameValidator = validator.New()

// Validate fails fast on missing or out-of-range fields.
func (g *Game) Validate() error {
	g.CanonicalName = strings.TrimSpace(g.CanonicalName)
	if g.CompletionStatus == "" {
		g.CompletionStatus = CompletionUnknown
	}
	err := gameValidator.Struct(g)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: "failed " + fe.Tag()})
	}
	return out
}

// GameSnapshot is a read-only view of the tracked games at one instant.
type GameSnapshot struct {
	Games   []Game    `json:"games"`
	TakenAt time.Time `json:"taken_at"`
}

// Filter returns the games for which keep reports true.
func (s *GameSnapshot) Filter(keep func(Game) bool) []Game {
	if s == nil {
		return nil
	}
	var out []Game
	for _, g := range s.Games {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

// Find looks a game up by canonical or alternative name, ignoring case.
func (s *GameSnapshot) Find(name string) (Game, bool) {
	if s == nil {
		return Game{}, false
	}
	for _, g := range s.Games {
		if strings.EqualFold(g.CanonicalName, name) {
			return g, true
		}
		for _, alt := range g.AlternativeNames {
			if strings.EqualFold(alt, name) {
				return g, true
			}
		}
	}
	return Game{}, false
}
