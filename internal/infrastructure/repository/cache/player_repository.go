package cache

import (
	"context"
	"sort"
	"strings"

	"github.com/riskibarqy/vocalia/internal/domain/player"
	basecache "github.com/riskibarqy/vocalia/internal/platform/cache"
)

// PlayerRepository fronts the team directory. Players are cached one key per id
// so overlapping roster registrations only fetch the ids nobody asked for yet.
type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID string) ([]player.Player, error) {
	key := "player:team:" + teamID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Player)
	return append([]player.Player(nil), items...), nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	out := make([]player.Player, 0, len(playerIDs))
	missing := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		if v, ok := r.cache.Get(ctx, playerKey(id)); ok {
			if p, ok := v.(player.Player); ok {
				out = append(out, p)
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	sort.Strings(missing)
	key := "player:batch:" + strings.Join(missing, ",")
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			r.cache.Set(ctx, playerKey(item.ID), item)
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	// The batch entry only exists to collapse concurrent loads.
	r.cache.Delete(ctx, key)

	items, _ := v.([]player.Player)
	return append(out, items...), nil
}

func playerKey(id string) string {
	return "player:id:" + id
}
