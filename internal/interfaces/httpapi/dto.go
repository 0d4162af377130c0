package httpapi

import (
	"context"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	"github.com/riskibarqy/vocalia/internal/usecase"
	"github.com/shopspring/decimal"
)

type registerPlayersRequest struct {
	TeamID    string   `json:"team_id" validate:"required"`
	PlayerIDs []string `json:"player_ids" validate:"required,min=1,max=40,dive,required"`
	Starting  bool     `json:"starting"`
}

// setCaptainRequest clears the captain when PlayerID is null or empty.
type setCaptainRequest struct {
	PlayerID *string `json:"player_id"`
}

type recordGoalRequest struct {
	PlayerID  string `json:"player_id" validate:"required"`
	IsOwnGoal bool   `json:"is_own_goal"`
	Minute    *int   `json:"minute" validate:"omitempty,min=0,max=130"`
}

type recordSanctionRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=yellow straight_red second_yellow_red"`
	Minute   *int   `json:"minute" validate:"omitempty,min=0,max=130"`
}

type recordSubstitutionRequest struct {
	PlayerOutID string `json:"player_out_id" validate:"required"`
	PlayerInID  string `json:"player_in_id" validate:"required,nefield=PlayerOutID"`
	Minute      *int   `json:"minute" validate:"omitempty,min=0,max=130"`
}

type finalizeRequest struct {
	LocalAmount           *decimal.Decimal `json:"local_amount" validate:"required"`
	AwayAmount            *decimal.Decimal `json:"away_amount" validate:"required"`
	Observations          string           `json:"observations" validate:"max=4000"`
	ArbitratorName        string           `json:"arbitrator_name" validate:"required,max=200"`
	LocalCaptainSignature string           `json:"local_captain_signature" validate:"required"`
	AwayCaptainSignature  string           `json:"away_captain_signature" validate:"required"`
	ExpectedVersion       int64            `json:"expected_version" validate:"min=0"`
}

type revertRequest struct {
	ExpectedVersion int64 `json:"expected_version" validate:"min=0"`
}

type matchDTO struct {
	ID          string `json:"id"`
	LeagueID    string `json:"leagueId,omitempty"`
	LocalTeamID string `json:"localTeamId"`
	AwayTeamID  string `json:"awayTeamId"`
	KickoffAt   string `json:"kickoffAt,omitempty"`
	Venue       string `json:"venue,omitempty"`
	Status      string `json:"status"`
	LocalScore  *int   `json:"localScore,omitempty"`
	AwayScore   *int   `json:"awayScore,omitempty"`
	Version     int64  `json:"version"`
	StartedAt   string `json:"startedAt,omitempty"`
	FinalizedAt string `json:"finalizedAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type rosterEntryDTO struct {
	PlayerID     string `json:"playerId"`
	TeamID       string `json:"teamId"`
	Starting     bool   `json:"starting"`
	Captain      bool   `json:"captain"`
	RegisteredAt string `json:"registeredAt,omitempty"`
}

type rosterDTO struct {
	MatchID  string            `json:"matchId"`
	Entries  []rosterEntryDTO  `json:"entries"`
	Captains map[string]string `json:"captains"`
}

type registerPlayersDTO struct {
	Inserted int       `json:"inserted"`
	Roster   rosterDTO `json:"roster"`
}

type eventDTO struct {
	ID           string `json:"id"`
	MatchID      string `json:"matchId"`
	PlayerID     string `json:"playerId"`
	TeamID       string `json:"teamId,omitempty"`
	Kind         string `json:"kind"`
	Minute       *int   `json:"minute,omitempty"`
	OccurredAt   string `json:"occurredAt"`
	Sequence     int64  `json:"sequence"`
	IsOwnGoal    *bool  `json:"isOwnGoal,omitempty"`
	SanctionType string `json:"sanctionType,omitempty"`
	PlayerOutID  string `json:"playerOutId,omitempty"`
	PlayerInID   string `json:"playerInId,omitempty"`
}

type playerTallyDTO struct {
	PlayerID  string `json:"playerId"`
	TeamID    string `json:"teamId"`
	Goals     int    `json:"goals"`
	OwnGoals  int    `json:"ownGoals"`
	Yellows   int    `json:"yellows"`
	Reds      int    `json:"reds"`
	SubbedIn  int    `json:"subbedIn"`
	SubbedOut int    `json:"subbedOut"`
}

type statsDTO struct {
	MatchID    string           `json:"matchId"`
	LocalScore int              `json:"localScore"`
	AwayScore  int              `json:"awayScore"`
	TeamGoals  map[string]int   `json:"teamGoals"`
	Players    []playerTallyDTO `json:"players"`
}

type onPitchDTO struct {
	MatchID string              `json:"matchId"`
	Teams   map[string][]string `json:"teams"`
}

type summaryDTO struct {
	MatchID               string `json:"matchId"`
	LocalScore            int    `json:"localScore"`
	AwayScore             int    `json:"awayScore"`
	LocalAmount           string `json:"localAmount"`
	AwayAmount            string `json:"awayAmount"`
	Observations          string `json:"observations"`
	ArbitratorName        string `json:"arbitratorName"`
	LocalCaptainSignature string `json:"localCaptainSignature"`
	AwayCaptainSignature  string `json:"awayCaptainSignature"`
	RecordedBy            string `json:"recordedBy,omitempty"`
	CreatedAt             string `json:"createdAt,omitempty"`
}

type finalizeDTO struct {
	Match   matchDTO   `json:"match"`
	Summary summaryDTO `json:"summary"`
}

type snapshotDTO struct {
	Match   matchDTO    `json:"match"`
	Roster  rosterDTO   `json:"roster"`
	Events  []eventDTO  `json:"events"`
	Stats   statsDTO    `json:"stats"`
	Summary *summaryDTO `json:"summary,omitempty"`
}

type liveMessageDTO struct {
	Type    string    `json:"type"`
	MatchID string    `json:"matchId"`
	Status  string    `json:"status,omitempty"`
	Version int64     `json:"version,omitempty"`
	Event   *eventDTO `json:"event,omitempty"`
	EventID string    `json:"eventId,omitempty"`
	At      string    `json:"at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func matchToDTO(ctx context.Context, m match.Match) matchDTO {
	_, span := startSpan(ctx, "httpapi.matchToDTO")
	defer span.End()

	return matchDTO{
		ID:          m.ID,
		LeagueID:    m.LeagueID,
		LocalTeamID: m.LocalTeamID,
		AwayTeamID:  m.AwayTeamID,
		KickoffAt:   formatTime(m.KickoffAt),
		Venue:       m.Venue,
		Status:      string(m.Status),
		LocalScore:  m.LocalScore,
		AwayScore:   m.AwayScore,
		Version:     m.Version,
		StartedAt:   formatOptionalTime(m.StartedAt),
		FinalizedAt: formatOptionalTime(m.FinalizedAt),
		UpdatedAt:   formatTime(m.UpdatedAt),
	}
}

func rosterToDTO(ctx context.Context, r roster.Roster) rosterDTO {
	_, span := startSpan(ctx, "httpapi.rosterToDTO")
	defer span.End()

	captains := make(map[string]string, len(r.Captains))
	captainSet := make(map[string]struct{}, len(r.Captains))
	for teamID, playerID := range r.Captains {
		if playerID == "" {
			continue
		}
		captains[teamID] = playerID
		captainSet[playerID] = struct{}{}
	}

	entries := make([]rosterEntryDTO, 0, len(r.Entries))
	for _, e := range r.Entries {
		_, isCaptain := captainSet[e.PlayerID]
		entries = append(entries, rosterEntryDTO{
			PlayerID:     e.PlayerID,
			TeamID:       e.TeamID,
			Starting:     e.Starting,
			Captain:      isCaptain,
			RegisteredAt: formatTime(e.RegisteredAt),
		})
	}

	return rosterDTO{
		MatchID:  r.MatchID,
		Entries:  entries,
		Captains: captains,
	}
}

func eventToDTO(e ledger.Event) eventDTO {
	out := eventDTO{
		ID:         e.ID,
		MatchID:    e.MatchID,
		PlayerID:   e.PlayerID,
		TeamID:     e.TeamID,
		Kind:       string(e.Kind()),
		Minute:     e.Minute,
		OccurredAt: formatTime(e.OccurredAt),
		Sequence:   e.Sequence,
	}

	switch p := e.Payload.(type) {
	case ledger.Goal:
		ownGoal := p.IsOwnGoal
		out.IsOwnGoal = &ownGoal
	case ledger.Sanction:
		out.SanctionType = string(p.Type)
	case ledger.Substitution:
		out.PlayerOutID = p.PlayerOutID
		out.PlayerInID = p.PlayerInID
	}
	return out
}

func eventsToDTO(ctx context.Context, events []ledger.Event) []eventDTO {
	_, span := startSpan(ctx, "httpapi.eventsToDTO")
	defer span.End()

	items := make([]eventDTO, 0, len(events))
	for _, e := range events {
		items = append(items, eventToDTO(e))
	}
	return items
}

func statsToDTO(matchID string, tally ledger.Tally) statsDTO {
	players := make([]playerTallyDTO, 0, len(tally.Players))
	for _, p := range tally.Players {
		players = append(players, playerTallyDTO{
			PlayerID:  p.PlayerID,
			TeamID:    p.TeamID,
			Goals:     p.Goals,
			OwnGoals:  p.OwnGoals,
			Yellows:   p.Yellows,
			Reds:      p.Reds,
			SubbedIn:  p.SubbedIn,
			SubbedOut: p.SubbedOut,
		})
	}

	teamGoals := make(map[string]int, len(tally.TeamGoals))
	for teamID, goals := range tally.TeamGoals {
		teamGoals[teamID] = goals
	}

	return statsDTO{
		MatchID:    matchID,
		LocalScore: tally.Score.Local,
		AwayScore:  tally.Score.Away,
		TeamGoals:  teamGoals,
		Players:    players,
	}
}

func summaryToDTO(s match.Summary) summaryDTO {
	return summaryDTO{
		MatchID:               s.MatchID,
		LocalScore:            s.LocalScore,
		AwayScore:             s.AwayScore,
		LocalAmount:           s.LocalAmount.StringFixed(2),
		AwayAmount:            s.AwayAmount.StringFixed(2),
		Observations:          s.Observations,
		ArbitratorName:        s.ArbitratorName,
		LocalCaptainSignature: s.LocalCaptainSignature,
		AwayCaptainSignature:  s.AwayCaptainSignature,
		RecordedBy:            s.RecordedBy,
		CreatedAt:             formatTime(s.CreatedAt),
	}
}

func onPitchToDTO(p usecase.OnPitch) onPitchDTO {
	teams := make(map[string][]string, len(p.Teams))
	for teamID, players := range p.Teams {
		teams[teamID] = append([]string{}, players...)
	}
	return onPitchDTO{MatchID: p.MatchID, Teams: teams}
}

func snapshotToDTO(ctx context.Context, snap usecase.Snapshot) snapshotDTO {
	out := snapshotDTO{
		Match:  matchToDTO(ctx, snap.Match),
		Roster: rosterToDTO(ctx, snap.Roster),
		Events: eventsToDTO(ctx, snap.Events),
		Stats:  statsToDTO(snap.Match.ID, snap.Tally),
	}
	if snap.Summary != nil {
		summary := summaryToDTO(*snap.Summary)
		out.Summary = &summary
	}
	return out
}

func liveUpdateToDTO(update usecase.LiveUpdate) liveMessageDTO {
	out := liveMessageDTO{
		Type:    update.Type,
		MatchID: update.MatchID,
		Status:  string(update.Status),
		Version: update.Version,
		EventID: update.EventID,
		At:      formatTime(update.At),
	}
	if update.Event != nil {
		event := eventToDTO(*update.Event)
		out.Event = &event
	}
	return out
}
