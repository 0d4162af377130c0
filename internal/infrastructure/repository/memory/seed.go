package memory

import (
	"fmt"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/player"
)

const (
	LeagueIDLiga1Indonesia = "idn-liga-1-2025"

	TeamIDPersija = "idn-persija"
	TeamIDPersib  = "idn-persib"

	MatchIDOpening = "idn-2025-gw1-persija-persib"
)

// squadSize covers 11 starters plus a bench.
const squadSize = 16

func SeedMatches() []match.Match {
	return []match.Match{
		{
			ID:          MatchIDOpening,
			LeagueID:    LeagueIDLiga1Indonesia,
			LocalTeamID: TeamIDPersija,
			AwayTeamID:  TeamIDPersib,
			KickoffAt:   time.Date(2025, 8, 9, 12, 30, 0, 0, time.UTC),
			Venue:       "Jakarta International Stadium",
			Status:      match.StatusScheduled,
			Version:     1,
		},
	}
}

// SeedPlayers builds two squads with ids like "idn-persija-07".
func SeedPlayers() []player.Player {
	out := make([]player.Player, 0, squadSize*2)
	for _, teamID := range []string{TeamIDPersija, TeamIDPersib} {
		for n := 1; n <= squadSize; n++ {
			out = append(out, player.Player{
				ID:          SeedPlayerID(teamID, n),
				TeamID:      teamID,
				Name:        fmt.Sprintf("%s #%d", teamID, n),
				ShirtNumber: n,
			})
		}
	}
	return out
}

func SeedPlayerID(teamID string, shirt int) string {
	return fmt.Sprintf("%s-%02d", teamID, shirt)
}
