package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/shopspring/decimal"
)

func TestMatchRepository_FinalizeAndRevert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMatchRepository(SeedMatches())

	started, err := repo.UpdateStatus(ctx, MatchIDOpening, match.StatusInProgress, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Version != 2 || started.StartedAt == nil {
		t.Fatalf("unexpected started match: %+v", started)
	}

	summary := match.Summary{
		MatchID:     MatchIDOpening,
		LocalScore:  2,
		AwayScore:   1,
		LocalAmount: decimal.NewFromInt(50),
		AwayAmount:  decimal.NewFromInt(50),
	}
	finalized, err := repo.Finalize(ctx, summary, started.Version)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Status != match.StatusFinalized || *finalized.LocalScore != 2 || *finalized.AwayScore != 1 {
		t.Fatalf("unexpected finalized match: %+v", finalized)
	}

	if _, err := repo.Finalize(ctx, summary, started.Version); !errors.Is(err, match.ErrVersionConflict) {
		t.Fatalf("expected version conflict on stale finalize, got %v", err)
	}

	reverted, err := repo.Revert(ctx, MatchIDOpening, finalized.Version)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != match.StatusInProgress || reverted.LocalScore != nil {
		t.Fatalf("unexpected reverted match: %+v", reverted)
	}
	if _, exists, _ := repo.GetSummary(ctx, MatchIDOpening); exists {
		t.Fatalf("expected summary to be removed on revert")
	}
}

func TestMatchRepository_RejectsInvalidTransition(t *testing.T) {
	t.Parallel()

	repo := NewMatchRepository(SeedMatches())
	_, err := repo.UpdateStatus(context.Background(), MatchIDOpening, match.StatusFinalized, 1)
	if !errors.Is(err, match.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
