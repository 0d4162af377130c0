package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
)

type EventRepository struct {
	mu     sync.RWMutex
	events map[string][]ledger.Event
	seq    int64
}

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[string][]ledger.Event)}
}

func (r *EventRepository) ListByMatch(_ context.Context, matchID string) ([]ledger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ledger.Event, 0, len(r.events[matchID]))
	for _, event := range r.events[matchID] {
		out = append(out, cloneEvent(event))
	}
	ledger.Sort(out)
	return out, nil
}

func (r *EventRepository) GetByID(_ context.Context, matchID, eventID string) (ledger.Event, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, event := range r.events[matchID] {
		if event.ID == eventID {
			return cloneEvent(event), true, nil
		}
	}
	return ledger.Event{}, false, nil
}

func (r *EventRepository) Append(_ context.Context, event ledger.Event) (ledger.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.events[event.MatchID] {
		if existing.ID == event.ID {
			return ledger.Event{}, fmt.Errorf("event %s already exists", event.ID)
		}
	}
	r.seq++
	event.Sequence = r.seq
	r.events[event.MatchID] = append(r.events[event.MatchID], cloneEvent(event))
	return cloneEvent(event), nil
}

func (r *EventRepository) Delete(_ context.Context, matchID, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.events[matchID]
	for i, event := range items {
		if event.ID != eventID {
			continue
		}
		r.events[matchID] = append(items[:i:i], items[i+1:]...)
		return true, nil
	}
	return false, nil
}

// Payloads are value types; only Minute needs a deep copy.
func cloneEvent(event ledger.Event) ledger.Event {
	copied := event
	if event.Minute != nil {
		v := *event.Minute
		copied.Minute = &v
	}
	return copied
}
