package memory

import (
	"testing"

	"github.com/riskibarqy/vocalia/internal/domain/player"
)

func TestPlayerRepository_ListByTeamOrdersByShirt(t *testing.T) {
	t.Parallel()

	repo := NewPlayerRepository([]player.Player{
		{ID: "p-9", TeamID: "persija", Name: "Striker", ShirtNumber: 9},
		{ID: "p-1", TeamID: "persija", Name: "Keeper", ShirtNumber: 1},
		{ID: "p-5", TeamID: "persib", Name: "Back", ShirtNumber: 5},
	})

	squad, err := repo.ListByTeam(t.Context(), "persija")
	if err != nil {
		t.Fatalf("list by team: %v", err)
	}
	if len(squad) != 2 || squad[0].ID != "p-1" || squad[1].ID != "p-9" {
		t.Fatalf("unexpected squad order: %+v", squad)
	}

	squad[0].Name = "mutated"
	again, _ := repo.ListByTeam(t.Context(), "persija")
	if again[0].Name != "Keeper" {
		t.Fatalf("caller mutation leaked into repository")
	}

	empty, err := repo.ListByTeam(t.Context(), "unknown")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil squad, got %#v, %v", empty, err)
	}
}

func TestPlayerRepository_GetByIDsSkipsUnknownAndDuplicates(t *testing.T) {
	t.Parallel()

	repo := NewPlayerRepository([]player.Player{
		{ID: "p-1", TeamID: "persija", Name: "Keeper", ShirtNumber: 1},
		{ID: "p-9", TeamID: "persija", Name: "Striker", ShirtNumber: 9},
	})

	got, err := repo.GetByIDs(t.Context(), []string{"p-9", "ghost", "p-9", "p-1"})
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p-9" || got[1].ID != "p-1" {
		t.Fatalf("unexpected players: %+v", got)
	}
}
