// Package history tracks which questions were generated recently so template
// selection can favour categories that have not been asked about lately.
package history

import (
	"sync"
	"time"
)

// Entry is one generated question as remembered by the history.
type Entry struct {
	TemplateID   string    `json:"template_id,omitempty"`
	Category     string    `json:"category"`
	QuestionText string    `json:"question_text"`
	At           time.Time `json:"at"`
}

// View is an immutable copy of the history handed to template selection.
type View struct {
	Now          time.Time
	Usage        map[string]int
	Cooldowns    map[string]time.Time
	LastUsed     map[string]time.Time
	LastCategory string
	Recent       []Entry
}

// CoolingDown reports whether category is still excluded at v.Now.
func (v View) CoolingDown(category string) bool {
	exp, ok := v.Cooldowns[category]
	return ok && v.Now.Before(exp)
}

// State is the serialisable form of a History.
type State struct {
	Recent    []Entry              `json:"recent"`
	Usage     map[string]int       `json:"usage"`
	Cooldowns map[string]time.Time `json:"cooldowns"`
}

type Options struct {
	Size     int
	Cooldown time.Duration
	Clock    func() time.Time
}

// History is safe for concurrent use; every mutation holds the lock so
// concurrent generations cannot interleave their updates.
type History struct {
	mu        sync.Mutex
	size      int
	cooldown  time.Duration
	clock     func() time.Time
	recent    []Entry
	usage     map[string]int
	cooldowns map[string]time.Time
}

func New(opts Options) *History {
	if opts.Size <= 0 {
		opts.Size = 20
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &History{
		size:      opts.Size,
		cooldown:  opts.Cooldown,
		clock:     opts.Clock,
		usage:     make(map[string]int),
		cooldowns: make(map[string]time.Time),
	}
}

// Record appends e to the ring buffer, bumps its template usage counter and
// starts a cooldown for its category. A zero e.At is stamped with the clock.
func (h *History) Record(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock()
	if e.At.IsZero() {
		e.At = now
	}
	h.recent = append(h.recent, e)
	if len(h.recent) > h.size {
		h.recent = h.recent[len(h.recent)-h.size:]
	}
	if e.TemplateID != "" {
		h.usage[e.TemplateID]++
	}
	if e.Category != "" && h.cooldown > 0 {
		h.cooldowns[e.Category] = e.At.Add(h.cooldown)
	}
}

// View snapshots the current state. Expired cooldowns are dropped.
func (h *History) View() View {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock()
	v := View{
		Now:       now,
		Usage:     make(map[string]int, len(h.usage)),
		Cooldowns: make(map[string]time.Time, len(h.cooldowns)),
		LastUsed:  make(map[string]time.Time),
		Recent:    append([]Entry(nil), h.recent...),
	}
	for k, n := range h.usage {
		v.Usage[k] = n
	}
	for c, exp := range h.cooldowns {
		if now.Before(exp) {
			v.Cooldowns[c] = exp
		}
	}
	for _, e := range h.recent {
		if e.At.After(v.LastUsed[e.Category]) {
			v.LastUsed[e.Category] = e.At
		}
	}
	if n := len(h.recent); n > 0 {
		v.LastCategory = h.recent[n-1].Category
	}
	return v
}

// RecentQuestions returns up to n most recent question texts, newest first.
func (h *History) RecentQuestions(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []string
	for i := len(h.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.recent[i].QuestionText)
	}
	return out
}

func (h *History) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := State{
		Recent:    append([]Entry(nil), h.recent...),
		Usage:     make(map[string]int, len(h.usage)),
		Cooldowns: make(map[string]time.Time, len(h.cooldowns)),
	}
	for k, v := range h.usage {
		s.Usage[k] = v
	}
	for k, v := range h.cooldowns {
		s.Cooldowns[k] = v
	}
	return s
}

// Restore replaces the in-memory state, trimming the ring buffer to size.
func (h *History) Restore(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append([]Entry(nil), s.Recent...)
	if len(h.recent) > h.size {
		h.recent = h.recent[len(h.recent)-h.size:]
	}
	h.usage = make(map[string]int, len(s.Usage))
	for k, v := range s.Usage {
		h.usage[k] = v
	}
	h.cooldowns = make(map[string]time.Time, len(s.Cooldowns))
	for k, v := range s.Cooldowns {
		h.cooldowns[k] = v
	}
}

func (h *History) Reset() {
	h.Restore(State{})
}
