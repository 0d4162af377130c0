package roster

import "context"

// Repository stores roster entries and captain references.
type Repository interface {
	GetRoster(ctx context.Context, matchID string) (Roster, error)
	// Insert skips entries already registered for the match and reports how many were new.
	Insert(ctx context.Context, entries []Entry) (int, error)
	// SetCaptain replaces the team's captain; an empty playerID clears it.
	SetCaptain(ctx context.Context, matchID, teamID, playerID string) error
}
