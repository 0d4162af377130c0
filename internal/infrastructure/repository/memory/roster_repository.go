package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/vocalia/internal/domain/roster"
)

type RosterRepository struct {
	mu       sync.RWMutex
	entries  map[string][]roster.Entry
	captains map[string]map[string]string
}

func NewRosterRepository() *RosterRepository {
	return &RosterRepository{
		entries:  make(map[string][]roster.Entry),
		captains: make(map[string]map[string]string),
	}
}

func (r *RosterRepository) GetRoster(_ context.Context, matchID string) (roster.Roster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	captains := make(map[string]string, len(r.captains[matchID]))
	for teamID, playerID := range r.captains[matchID] {
		captains[teamID] = playerID
	}
	return roster.Roster{
		MatchID:  matchID,
		Entries:  append([]roster.Entry(nil), r.entries[matchID]...),
		Captains: captains,
	}, nil
}

func (r *RosterRepository) Insert(_ context.Context, entries []roster.Entry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, entry := range entries {
		if r.hasLocked(entry.MatchID, entry.PlayerID) {
			continue
		}
		r.entries[entry.MatchID] = append(r.entries[entry.MatchID], entry)
		inserted++
	}
	return inserted, nil
}

func (r *RosterRepository) SetCaptain(_ context.Context, matchID, teamID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if playerID == "" {
		delete(r.captains[matchID], teamID)
		return nil
	}
	if _, ok := r.captains[matchID]; !ok {
		r.captains[matchID] = make(map[string]string)
	}
	r.captains[matchID][teamID] = playerID
	return nil
}

func (r *RosterRepository) hasLocked(matchID, playerID string) bool {
	for _, entry := range r.entries[matchID] {
		if entry.PlayerID == playerID {
			return true
		}
	}
	return false
}
