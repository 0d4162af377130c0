package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
)

func TestEventRepository_OrdersBySequenceOnTies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository()
	at := time.Date(2025, 8, 9, 13, 0, 0, 0, time.UTC)

	for _, id := range []string{"e-1", "e-2", "e-3"} {
		if _, err := repo.Append(ctx, ledger.Event{ID: id, MatchID: "m1", PlayerID: "p1", OccurredAt: at, Payload: ledger.Goal{}}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	deleted, err := repo.Delete(ctx, "m1", "e-2")
	if err != nil || !deleted {
		t.Fatalf("delete e-2: deleted=%v err=%v", deleted, err)
	}
	if deleted, _ := repo.Delete(ctx, "m1", "e-2"); deleted {
		t.Fatalf("expected second delete to report missing")
	}

	events, err := repo.ListByMatch(ctx, "m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].ID != "e-1" || events[1].ID != "e-3" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Sequence >= events[1].Sequence {
		t.Fatalf("expected increasing sequence: %d %d", events[0].Sequence, events[1].Sequence)
	}
}
