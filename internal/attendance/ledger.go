package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger is the append-only store of attendance events, scoped by subject and issuer.
type Ledger interface {
	// ListEvents returns every event for the pair in no particular order.
	ListEvents(ctx context.Context, subject, issuer string) ([]Event, error)
	// Append stores evt and returns its id.
	Append(ctx context.Context, subject, issuer string, evt Event) (string, error)
}

// NewEventID returns a time-ordered id; ids sort lexicographically by creation.
func NewEventID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MemoryLedger is a process-local Ledger for dev and tests.
type MemoryLedger struct {
	mu     sync.RWMutex
	events map[ledgerKey][]Event
}

type ledgerKey struct{ subject, issuer string }

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{events: make(map[ledgerKey][]Event)}
}

// ListEvents returns a copy of the events for the pair.
func (l *MemoryLedger) ListEvents(ctx context.Context, subject, issuer string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.events[ledgerKey{subject, issuer}]
	out := make([]Event, len(src))
	copy(out, src)
	return out, nil
}

// Append stores evt under a fresh id.
func (l *MemoryLedger) Append(ctx context.Context, subject, issuer string, evt Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := NewEventID()
	if err != nil {
		return "", err
	}
	evt.ID = id
	evt.Subject = subject
	evt.Issuer = issuer
	l.mu.Lock()
	defer l.mu.Unlock()
	k := ledgerKey{subject, issuer}
	l.events[k] = append(l.events[k], evt)
	return id, nil
}

// DailyCounts buckets the pair's events by calendar date in loc, ascending.
func DailyCounts(ctx context.Context, l Ledger, subject, issuer string, loc *time.Location) ([]DailyCount, error) {
	events, err := l.ListEvents(ctx, subject, issuer)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	byDate := make(map[string]int)
	for _, e := range events {
		byDate[e.CreatedAt.In(loc).Format(DateLayout)]++
	}
	out := make([]DailyCount, 0, len(byDate))
	for d, n := range byDate {
		out = append(out, DailyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// SortByID orders events by id, which is creation order.
func SortByID(events []Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
}
