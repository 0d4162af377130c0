package usecase

import (
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
)

func TestLedgerService_ConcurrentYellowsRespectCap(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)
	target := playerID(localTeam, 6)

	const callers = 3
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.ledger.RecordSanction(t.Context(), RecordSanctionInput{MatchID: testMatchID, PlayerID: target, Type: "yellow"})
		}(i)
	}
	close(start)
	wg.Wait()

	rejected := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrRuleViolation) || !errors.Is(err, ledger.ErrYellowCapExceeded) {
			t.Fatalf("unexpected sanction error: %v", err)
		}
		rejected++
	}
	if rejected != 1 {
		t.Fatalf("expected exactly one rejection, got %d", rejected)
	}

	events, _ := f.ledger.ListEvents(t.Context(), testMatchID)
	yellows, reds := ledger.CountSanctions(events, target)
	if yellows != 2 || reds != 0 {
		t.Fatalf("expected 2 persisted yellows, got yellows=%d reds=%d", yellows, reds)
	}
}

func TestLedgerService_SingleRedCard(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)
	target := playerID(awayTeam, 3)

	if _, err := f.ledger.RecordSanction(t.Context(), RecordSanctionInput{MatchID: testMatchID, PlayerID: target, Type: "straight_red"}); err != nil {
		t.Fatalf("first red: %v", err)
	}
	_, err := f.ledger.RecordSanction(t.Context(), RecordSanctionInput{MatchID: testMatchID, PlayerID: target, Type: "second_yellow_red"})
	if !errors.Is(err, ledger.ErrRedCardExists) {
		t.Fatalf("expected ErrRedCardExists, got %v", err)
	}
	if _, err := f.ledger.RecordSanction(t.Context(), RecordSanctionInput{MatchID: testMatchID, PlayerID: target, Type: "purple"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestLedgerService_RosterGate(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)

	_, err := f.ledger.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: "stranger"})
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, roster.ErrPlayerNotRegistered) {
		t.Fatalf("expected roster validation error, got %v", err)
	}

	events, _ := f.ledger.ListEvents(t.Context(), testMatchID)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestLedgerService_RequiresInProgress(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)

	_, err := f.ledger.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: playerID(localTeam, 9)})
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on scheduled match, got %v", err)
	}

	f.startWithLineups(t)
	goal, err := f.ledger.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: playerID(localTeam, 9)})
	if err != nil {
		t.Fatalf("record goal: %v", err)
	}
	if _, err := f.sessions.Finalize(t.Context(), validFinalizeInput()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, err := f.ledger.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: playerID(localTeam, 9)}); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on finalized match, got %v", err)
	}
	if err := f.ledger.DeleteEvent(t.Context(), DeleteEventInput{MatchID: testMatchID, EventID: goal.ID}); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict deleting on finalized match, got %v", err)
	}
}

func TestLedgerService_OnPitchRecomputedAfterDelete(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)
	p1 := playerID(localTeam, 7)
	p2 := playerID(localTeam, 14)

	sub, err := f.ledger.RecordSubstitution(t.Context(), RecordSubstitutionInput{MatchID: testMatchID, PlayerOutID: p1, PlayerInID: p2})
	if err != nil {
		t.Fatalf("record substitution: %v", err)
	}
	if _, err := f.ledger.RecordSubstitution(t.Context(), RecordSubstitutionInput{MatchID: testMatchID, PlayerOutID: p1, PlayerInID: playerID(localTeam, 15)}); !errors.Is(err, ledger.ErrPlayerNotOnPitch) {
		t.Fatalf("expected ErrPlayerNotOnPitch for subbed-out player, got %v", err)
	}

	if err := f.ledger.DeleteEvent(t.Context(), DeleteEventInput{MatchID: testMatchID, EventID: sub.ID}); err != nil {
		t.Fatalf("delete substitution: %v", err)
	}

	pitch, err := f.ledger.OnPitch(t.Context(), testMatchID)
	if err != nil {
		t.Fatalf("on pitch: %v", err)
	}
	onPitch := make(map[string]bool)
	for _, pid := range pitch.Teams[localTeam] {
		onPitch[pid] = true
	}
	if !onPitch[p1] || onPitch[p2] || len(pitch.Teams[localTeam]) != 11 {
		t.Fatalf("unexpected on-pitch set after delete: %v", pitch.Teams[localTeam])
	}

	// p2 is back on the bench, so bringing in p1 again would be a double sub.
	if _, err := f.ledger.RecordSubstitution(t.Context(), RecordSubstitutionInput{MatchID: testMatchID, PlayerOutID: p2, PlayerInID: p1}); !errors.Is(err, ledger.ErrPlayerNotOnPitch) {
		t.Fatalf("expected ErrPlayerNotOnPitch for benched p2, got %v", err)
	}
	if _, err := f.ledger.RecordSubstitution(t.Context(), RecordSubstitutionInput{MatchID: testMatchID, PlayerOutID: p1, PlayerInID: p2}); err != nil {
		t.Fatalf("p1 should be substitutable again: %v", err)
	}
}

func TestLedgerService_DeleteRejectsOrphaningLaterSubstitution(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)

	first, err := f.ledger.RecordSubstitution(t.Context(), RecordSubstitutionInput{MatchID: testMatchID, PlayerOutID: playerID(awayTeam, 8), PlayerInID: playerID(awayTeam, 13)})
	if err != nil {
		t.Fatalf("first substitution: %v", err)
	}
	if _, err := f.ledger.RecordSubstitution(t.Context(), RecordSubstitutionInput{MatchID: testMatchID, PlayerOutID: playerID(awayTeam, 13), PlayerInID: playerID(awayTeam, 14)}); err != nil {
		t.Fatalf("chained substitution: %v", err)
	}

	err = f.ledger.DeleteEvent(t.Context(), DeleteEventInput{MatchID: testMatchID, EventID: first.ID})
	if !errors.Is(err, ErrRuleViolation) {
		t.Fatalf("expected ErrRuleViolation, got %v", err)
	}
	if err := f.ledger.DeleteEvent(t.Context(), DeleteEventInput{MatchID: testMatchID, EventID: "evt-missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerService_Stats(t *testing.T) {
	t.Parallel()

	f := newVocaliaFixture(t, nil)
	f.startWithLineups(t)
	scorer := playerID(localTeam, 9)

	for i := 0; i < 2; i++ {
		if _, err := f.ledger.RecordGoal(t.Context(), RecordGoalInput{MatchID: testMatchID, PlayerID: scorer}); err != nil {
			t.Fatalf("record goal: %v", err)
		}
	}

	tally, err := f.ledger.Stats(t.Context(), testMatchID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if tally.TeamGoals[localTeam] != 2 || tally.TeamGoals[awayTeam] != 0 {
		t.Fatalf("unexpected team goals: %v", tally.TeamGoals)
	}
	if len(tally.Players) != 1 || tally.Players[0].PlayerID != scorer || tally.Players[0].Goals != 2 {
		t.Fatalf("unexpected player tallies: %+v", tally.Players)
	}
}
