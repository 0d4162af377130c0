package usecase

import (
	"testing"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/vocalia/internal/platform/id"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/shopspring/decimal"
)

const (
	testMatchID = memory.MatchIDOpening
	localTeam   = memory.TeamIDPersija
	awayTeam    = memory.TeamIDPersib
)

type vocaliaFixture struct {
	matches  *memory.MatchRepository
	rosters  *memory.RosterRepository
	events   *memory.EventRepository
	sessions *MatchSessionService
	roster   *RosterService
	ledger   *LedgerService
}

func newVocaliaFixture(t *testing.T, standings StandingsNotifier) *vocaliaFixture {
	t.Helper()

	matches := memory.NewMatchRepository(memory.SeedMatches())
	rosters := memory.NewRosterRepository()
	events := memory.NewEventRepository()
	players := memory.NewPlayerRepository(memory.SeedPlayers())
	locker := lock.NewKeyedMutex()

	return &vocaliaFixture{
		matches:  matches,
		rosters:  rosters,
		events:   events,
		sessions: NewMatchSessionService(matches, rosters, events, locker, standings, nil, logging.NewNop()),
		roster:   NewRosterService(matches, rosters, players, locker, nil),
		ledger:   NewLedgerService(matches, rosters, events, &id.Sequence{Prefix: "evt-"}, locker, nil),
	}
}

func playerID(teamID string, shirt int) string {
	return memory.SeedPlayerID(teamID, shirt)
}

// startWithLineups opens the session and registers shirts 1-11 as starters and
// 12-16 on the bench for both sides.
func (f *vocaliaFixture) startWithLineups(t *testing.T) match.Match {
	t.Helper()

	m, err := f.sessions.Start(t.Context(), testMatchID)
	if err != nil {
		t.Fatalf("start match: %v", err)
	}

	for _, teamID := range []string{localTeam, awayTeam} {
		starters := make([]string, 0, 11)
		for n := 1; n <= 11; n++ {
			starters = append(starters, playerID(teamID, n))
		}
		bench := make([]string, 0, 5)
		for n := 12; n <= 16; n++ {
			bench = append(bench, playerID(teamID, n))
		}

		if _, err := f.roster.RegisterPlayers(t.Context(), RegisterPlayersInput{MatchID: testMatchID, TeamID: teamID, PlayerIDs: starters, Starting: true}); err != nil {
			t.Fatalf("register starters for %s: %v", teamID, err)
		}
		if _, err := f.roster.RegisterPlayers(t.Context(), RegisterPlayersInput{MatchID: testMatchID, TeamID: teamID, PlayerIDs: bench}); err != nil {
			t.Fatalf("register bench for %s: %v", teamID, err)
		}
	}

	return m
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func validFinalizeInput() FinalizeInput {
	return FinalizeInput{
		MatchID:               testMatchID,
		LocalAmount:           decimalPtr(50),
		AwayAmount:            decimalPtr(50),
		Observations:          "no incidents",
		ArbitratorName:        "Thoriq Alkatiri",
		LocalCaptainSignature: "sig-local",
		AwayCaptainSignature:  "sig-away",
		RecordedBy:            "user-ref-1",
	}
}
