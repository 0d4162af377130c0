package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/vocalia/internal/platform/id"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
)

// closingEventRepository finalizes the match right before each write and then
// refuses it, the way the postgres store does when another writer finalized
// the match after this one took its lock.
type closingEventRepository struct {
	*memory.EventRepository
	matches *memory.MatchRepository
}

func (r closingEventRepository) close(ctx context.Context, matchID string) error {
	m, _, err := r.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Status != match.StatusInProgress {
		return nil
	}
	_, err = r.matches.Finalize(ctx, match.Summary{MatchID: matchID, ArbitratorName: "other replica"}, m.Version)
	return err
}

func (r closingEventRepository) Append(ctx context.Context, event ledger.Event) (ledger.Event, error) {
	if err := r.close(ctx, event.MatchID); err != nil {
		return ledger.Event{}, err
	}
	return ledger.Event{}, ledger.ErrLedgerClosed
}

func (r closingEventRepository) Delete(ctx context.Context, matchID, _ string) (bool, error) {
	if err := r.close(ctx, matchID); err != nil {
		return false, err
	}
	return false, nil
}

func TestLedgerService_StoreGuardSurfacesStateConflict(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)
	goal, err := f.ledger.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: playerID(localTeam, 9)})
	if err != nil {
		t.Fatalf("record goal: %v", err)
	}

	tests := map[string]func(svc *LedgerService) error{
		"append": func(svc *LedgerService) error {
			_, err := svc.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: playerID(localTeam, 10)})
			return err
		},
		"delete": func(svc *LedgerService) error {
			return svc.DeleteEvent(t.Context(), DeleteEventInput{MatchID: testMatchID, EventID: goal.ID})
		},
	}
	for name, write := range tests {
		t.Run(name, func(t *testing.T) {
			// Each case needs its own in-progress match.
			matches := memory.NewMatchRepository(memory.SeedMatches())
			m, _, _ := matches.GetByID(t.Context(), testMatchID)
			if _, err := matches.UpdateStatus(t.Context(), testMatchID, match.StatusInProgress, m.Version); err != nil {
				t.Fatalf("start match: %v", err)
			}

			store := closingEventRepository{EventRepository: f.events, matches: matches}
			svc := NewLedgerService(matches, f.rosters, store, &id.Sequence{Prefix: "evt-"}, lock.NewKeyedMutex(), nil)

			if err := write(svc); !errors.Is(err, ErrStateConflict) {
				t.Fatalf("expected ErrStateConflict, got %v", err)
			}
		})
	}

	events, err := f.events.ListByMatch(t.Context(), testMatchID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("refused writes must not touch the ledger, got %d events", len(events))
	}
}
