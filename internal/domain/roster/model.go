package roster

import (
	"errors"
	"time"
)

var (
	ErrPlayerNotRegistered = errors.New("player not registered for match")
	ErrTeamMismatch        = errors.New("player registered for another team")
)

// Entry registers one player to play one match for one team.
type Entry struct {
	MatchID      string
	TeamID       string
	PlayerID     string
	Starting     bool
	RegisteredAt time.Time
}

// Roster is every entry of a match plus the captain reference per team.
type Roster struct {
	MatchID  string
	Entries  []Entry
	Captains map[string]string
}

func (r Roster) Find(playerID string) (Entry, bool) {
	for _, entry := range r.Entries {
		if entry.PlayerID == playerID {
			return entry, true
		}
	}
	return Entry{}, false
}

// TeamOf returns the team a player is registered for, or "" if absent.
func (r Roster) TeamOf(playerID string) string {
	entry, ok := r.Find(playerID)
	if !ok {
		return ""
	}
	return entry.TeamID
}

func (r Roster) CaptainOf(teamID string) string {
	if r.Captains == nil {
		return ""
	}
	return r.Captains[teamID]
}

// Starters lists the starting player ids per team, in registration order.
func (r Roster) Starters() map[string][]string {
	out := make(map[string][]string)
	for _, entry := range r.Entries {
		if entry.Starting {
			out[entry.TeamID] = append(out[entry.TeamID], entry.PlayerID)
		}
	}
	return out
}

func (r Roster) ByTeam(teamID string) []Entry {
	out := make([]Entry, 0, len(r.Entries))
	for _, entry := range r.Entries {
		if entry.TeamID == teamID {
			out = append(out, entry)
		}
	}
	return out
}
