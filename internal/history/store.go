package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ash-trivia/internal/cache"
	"ash-trivia/internal/domain"
)

const (
	fieldRecent    = "recent"
	fieldUsage     = "usage"
	fieldCooldowns = "cooldowns"
)

// Store persists a History's State as a hash in the cache so diversity
// tracking survives restarts.
type Store struct {
	cache domain.Cache
	key   string
}

func NewStore(c domain.Cache) *Store {
	return &Store{cache: c, key: cache.HistoryStateKey()}
}

// Load returns an empty State when nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (State, error) {
	fields, err := s.cache.HGetAll(ctx, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to load question history: %w", err)
	}

	var st State
	if raw, ok := fields[fieldRecent]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Recent); err != nil {
			return State{}, fmt.Errorf("failed to decode recent questions: %w", err)
		}
	}
	if raw, ok := fields[fieldUsage]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Usage); err != nil {
			return State{}, fmt.Errorf("failed to decode template usage: %w", err)
		}
	}
	if raw, ok := fields[fieldCooldowns]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Cooldowns); err != nil {
			return State{}, fmt.Errorf("failed to decode category cooldowns: %w", err)
		}
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, st State) error {
	recent, err := json.Marshal(st.Recent)
	if err != nil {
		return err
	}
	usage, err := json.Marshal(st.Usage)
	if err != nil {
		return err
	}
	cooldowns, err := json.Marshal(st.Cooldowns)
	if err != nil {
		return err
	}
	err = s.cache.HSet(ctx, s.key, map[string]string{
		fieldRecent:    string(recent),
		fieldUsage:     string(usage),
		fieldCooldowns: string(cooldowns),
	})
	if err != nil {
		return fmt.Errorf("failed to save question history: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, s.key)
}
