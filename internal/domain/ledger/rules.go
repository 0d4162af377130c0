package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
)

const MaxYellowsPerPlayer = 2

var (
	ErrYellowCapExceeded        = errors.New("yellow card cap exceeded")
	ErrRedCardExists            = errors.New("player already holds a red card")
	ErrPlayerNotOnPitch         = errors.New("player not on pitch")
	ErrPlayerAlreadyOnPitch     = errors.New("player already on pitch")
	ErrPlayerAlreadySubstituted = errors.New("player already substituted out")
	ErrSubstitutionTeamMismatch = errors.New("substitution players belong to different teams")
)

// CountSanctions scans the ledger for one player's yellow and red-type cards.
func CountSanctions(events []Event, playerID string) (yellows, reds int) {
	for _, event := range events {
		if event.PlayerID != playerID {
			continue
		}
		sanction, ok := event.Payload.(Sanction)
		if !ok {
			continue
		}
		if sanction.Type.IsRed() {
			reds++
			continue
		}
		yellows++
	}
	return yellows, reds
}

// ValidateSanction checks the per-player caps against the given ledger.
// second_yellow_red is a caller-chosen label and does not count as a yellow.
func ValidateSanction(events []Event, playerID string, sanctionType SanctionType) error {
	yellows, reds := CountSanctions(events, playerID)
	if sanctionType.IsRed() {
		if reds >= 1 {
			return fmt.Errorf("%w: player=%s", ErrRedCardExists, playerID)
		}
		return nil
	}
	if yellows >= MaxYellowsPerPlayer {
		return fmt.Errorf("%w: player=%s max=%d", ErrYellowCapExceeded, playerID, MaxYellowsPerPlayer)
	}
	return nil
}

// Pitch is the replayed on-pitch state of a match.
type Pitch struct {
	OnPitch   map[string]map[string]struct{}
	SubbedOut map[string]struct{}
}

func (p Pitch) IsOnPitch(teamID, playerID string) bool {
	_, ok := p.OnPitch[teamID][playerID]
	return ok
}

func (p Pitch) WasSubbedOut(playerID string) bool {
	_, ok := p.SubbedOut[playerID]
	return ok
}

// Players returns the sorted on-pitch ids for one team.
func (p Pitch) Players(teamID string) []string {
	out := make([]string, 0, len(p.OnPitch[teamID]))
	for playerID := range p.OnPitch[teamID] {
		out = append(out, playerID)
	}
	sort.Strings(out)
	return out
}

// ReplayPitch starts from the starting lineup and applies every substitution in
// ledger order. It is always computed from the full history, never patched.
func ReplayPitch(r roster.Roster, events []Event) Pitch {
	pitch := Pitch{
		OnPitch:   make(map[string]map[string]struct{}),
		SubbedOut: make(map[string]struct{}),
	}
	for teamID, starters := range r.Starters() {
		set := make(map[string]struct{}, len(starters))
		for _, playerID := range starters {
			set[playerID] = struct{}{}
		}
		pitch.OnPitch[teamID] = set
	}

	ordered := append([]Event(nil), events...)
	Sort(ordered)
	for _, event := range ordered {
		sub, ok := event.Payload.(Substitution)
		if !ok {
			continue
		}
		teamID := event.TeamID
		if teamID == "" {
			teamID = r.TeamOf(sub.PlayerOutID)
		}
		set, ok := pitch.OnPitch[teamID]
		if !ok {
			set = make(map[string]struct{})
			pitch.OnPitch[teamID] = set
		}
		delete(set, sub.PlayerOutID)
		set[sub.PlayerInID] = struct{}{}
		pitch.SubbedOut[sub.PlayerOutID] = struct{}{}
	}

	return pitch
}

// ValidateSubstitution checks a proposed substitution against the roster and the
// replayed pitch.
func ValidateSubstitution(r roster.Roster, events []Event, playerOutID, playerInID string) error {
	if playerOutID == playerInID {
		return fmt.Errorf("%w: player=%s", ErrPlayerAlreadyOnPitch, playerInID)
	}
	outEntry, ok := r.Find(playerOutID)
	if !ok {
		return fmt.Errorf("%w: player=%s", roster.ErrPlayerNotRegistered, playerOutID)
	}
	inEntry, ok := r.Find(playerInID)
	if !ok {
		return fmt.Errorf("%w: player=%s", roster.ErrPlayerNotRegistered, playerInID)
	}
	if outEntry.TeamID != inEntry.TeamID {
		return fmt.Errorf("%w: out=%s in=%s", ErrSubstitutionTeamMismatch, playerOutID, playerInID)
	}

	pitch := ReplayPitch(r, events)
	if !pitch.IsOnPitch(outEntry.TeamID, playerOutID) {
		return fmt.Errorf("%w: player=%s", ErrPlayerNotOnPitch, playerOutID)
	}
	if pitch.IsOnPitch(inEntry.TeamID, playerInID) {
		return fmt.Errorf("%w: player=%s", ErrPlayerAlreadyOnPitch, playerInID)
	}
	if pitch.WasSubbedOut(playerInID) {
		return fmt.Errorf("%w: player=%s", ErrPlayerAlreadySubstituted, playerInID)
	}

	return nil
}

// ValidateReplay checks that every substitution in the ledger was legal at the
// point it appears. Removing an event must leave a ledger that still passes.
func ValidateReplay(r roster.Roster, events []Event) error {
	ordered := append([]Event(nil), events...)
	Sort(ordered)

	applied := make([]Event, 0, len(ordered))
	for _, event := range ordered {
		if sub, ok := event.Payload.(Substitution); ok {
			if err := ValidateSubstitution(r, applied, sub.PlayerOutID, sub.PlayerInID); err != nil {
				return fmt.Errorf("event %s: %w", event.ID, err)
			}
		}
		applied = append(applied, event)
	}
	return nil
}

// DeriveScore sums goals per side. Own goals credit the opponent of the scorer's team.
func DeriveScore(m match.Match, r roster.Roster, events []Event) match.Score {
	var score match.Score
	for _, event := range events {
		goal, ok := event.Payload.(Goal)
		if !ok {
			continue
		}
		teamID := event.TeamID
		if teamID == "" {
			teamID = r.TeamOf(event.PlayerID)
		}
		if goal.IsOwnGoal {
			teamID = m.Opponent(teamID)
		}
		switch teamID {
		case m.LocalTeamID:
			score.Local++
		case m.AwayTeamID:
			score.Away++
		}
	}
	return score
}

type PlayerTally struct {
	PlayerID  string
	TeamID    string
	Goals     int
	OwnGoals  int
	Yellows   int
	Reds      int
	SubbedIn  int
	SubbedOut int
}

// Tally holds counts derived from one ledger scan.
type Tally struct {
	Players   []PlayerTally
	TeamGoals map[string]int
	Score     match.Score
}

func BuildTally(m match.Match, r roster.Roster, events []Event) Tally {
	byPlayer := make(map[string]*PlayerTally)
	get := func(playerID, teamID string) *PlayerTally {
		if teamID == "" {
			teamID = r.TeamOf(playerID)
		}
		pt, ok := byPlayer[playerID]
		if !ok {
			pt = &PlayerTally{PlayerID: playerID, TeamID: teamID}
			byPlayer[playerID] = pt
		}
		return pt
	}

	for _, event := range events {
		switch p := event.Payload.(type) {
		case Goal:
			pt := get(event.PlayerID, event.TeamID)
			if p.IsOwnGoal {
				pt.OwnGoals++
			} else {
				pt.Goals++
			}
		case Sanction:
			pt := get(event.PlayerID, event.TeamID)
			if p.Type.IsRed() {
				pt.Reds++
			} else {
				pt.Yellows++
			}
		case Substitution:
			get(p.PlayerOutID, event.TeamID).SubbedOut++
			get(p.PlayerInID, event.TeamID).SubbedIn++
		}
	}

	players := make([]PlayerTally, 0, len(byPlayer))
	for _, pt := range byPlayer {
		players = append(players, *pt)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].TeamID != players[j].TeamID {
			return players[i].TeamID < players[j].TeamID
		}
		return players[i].PlayerID < players[j].PlayerID
	})

	score := DeriveScore(m, r, events)
	return Tally{
		Players: players,
		TeamGoals: map[string]int{
			m.LocalTeamID: score.Local,
			m.AwayTeamID:  score.Away,
		},
		Score: score,
	}
}
