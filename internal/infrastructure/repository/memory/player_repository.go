package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/riskibarqy/vocalia/internal/domain/player"
)

// PlayerRepository is a fixed squad directory. Squads come back ordered by
// shirt number like the postgres directory.
type PlayerRepository struct {
	mu     sync.RWMutex
	byTeam map[string][]player.Player
	byID   map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	r := &PlayerRepository{
		byTeam: make(map[string][]player.Player),
		byID:   make(map[string]player.Player, len(players)),
	}
	for _, p := range players {
		r.byTeam[p.TeamID] = append(r.byTeam[p.TeamID], p)
		r.byID[p.ID] = p
	}
	for _, squad := range r.byTeam {
		slices.SortStableFunc(squad, func(a, b player.Player) int {
			return cmp.Or(cmp.Compare(a.ShirtNumber, b.ShirtNumber), cmp.Compare(a.ID, b.ID))
		})
	}
	return r
}

func (r *PlayerRepository) ListByTeam(_ context.Context, teamID string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]player.Player{}, r.byTeam[teamID]...), nil
}

// GetByIDs skips unknown ids and returns each player once.
func (r *PlayerRepository) GetByIDs(_ context.Context, playerIDs []string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(playerIDs))
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		p, ok := r.byID[id]
		if _, dup := seen[id]; !ok || dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
