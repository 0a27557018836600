package approval

import (
	"context"
	"sort"
	"sync"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/util"
)

// Ticket is one presentation waiting for the approver.
type Ticket struct {
	ID          string
	ApproverID  string
	Question    domain.Question
	PresentedAt time.Time

	decisions chan Decision
}

// Inbox is an Approver that parks presentations until they are answered
// through Resolve, e.g. from an HTTP handler.
type Inbox struct {
	mu      sync.Mutex
	tickets map[string]*Ticket
}

func NewInbox() *Inbox {
	return &Inbox{tickets: make(map[string]*Ticket)}
}

func (in *Inbox) Present(ctx context.Context, approverID string, q *domain.Question) (<-chan Decision, error) {
	t := &Ticket{
		ID:          util.NewULID(),
		ApproverID:  approverID,
		Question:    *q,
		PresentedAt: time.Now().UTC(),
		decisions:   make(chan Decision, 1),
	}
	in.mu.Lock()
	in.tickets[t.ID] = t
	in.mu.Unlock()

	go func() {
		<-ctx.Done()
		in.mu.Lock()
		delete(in.tickets, t.ID)
		in.mu.Unlock()
	}()
	return t.decisions, nil
}

// Pending lists the open tickets of approverID, oldest first.
func (in *Inbox) Pending(approverID string) []Ticket {
	in.mu.Lock()
	defer in.mu.Unlock()
	var out []Ticket
	for _, t := range in.tickets {
		if t.ApproverID == approverID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve answers a ticket. Only the approver it was presented to may answer.
func (in *Inbox) Resolve(ticketID, approverID string, d Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	t, ok := in.tickets[ticketID]
	if !ok {
		return domain.NewNotFoundError("approval ticket not found: " + ticketID)
	}
	if t.ApproverID != approverID {
		return domain.NewUnauthorizedError("ticket belongs to another approver")
	}
	delete(in.tickets, ticketID)
	t.decisions <- d
	return nil
}

var _ Approver = (*Inbox)(nil)
