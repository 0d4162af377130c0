package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/player"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
)

type RegisterPlayersInput struct {
	MatchID   string
	TeamID    string
	PlayerIDs []string
	Starting  bool
}

type RegisterPlayersResult struct {
	Inserted int
	Roster   roster.Roster
}

type SetCaptainInput struct {
	MatchID  string
	TeamID   string
	PlayerID string
}

// RosterService is the Roster Registry: match registrations and captaincy.
type RosterService struct {
	matchRepo  match.Repository
	rosterRepo roster.Repository
	playerRepo player.Repository
	guard      matchGuard
	live       LivePublisher
	now        func() time.Time
}

func NewRosterService(
	matchRepo match.Repository,
	rosterRepo roster.Repository,
	playerRepo player.Repository,
	locker lock.Locker,
	live LivePublisher,
) *RosterService {
	if live == nil {
		live = NewNoopLivePublisher()
	}
	return &RosterService{
		matchRepo:  matchRepo,
		rosterRepo: rosterRepo,
		playerRepo: playerRepo,
		guard:      newMatchGuard(locker, matchRepo),
		live:       live,
		now:        time.Now,
	}
}

func (s *RosterService) GetRoster(ctx context.Context, matchID string) (roster.Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.GetRoster", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return roster.Roster{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}
	if _, err := loadMatch(ctx, s.matchRepo, matchID); err != nil {
		return roster.Roster{}, err
	}

	r, err := s.rosterRepo.GetRoster(ctx, matchID)
	if err != nil {
		return roster.Roster{}, fmt.Errorf("get roster: %w", err)
	}
	return r, nil
}

// RegisterPlayers adds squad members of one side to the match. Players already
// registered for that side are skipped.
func (s *RosterService) RegisterPlayers(ctx context.Context, input RegisterPlayersInput) (RegisterPlayersResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.RegisterPlayers", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.MatchID == "" || input.TeamID == "" {
		return RegisterPlayersResult{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}
	playerIDs, err := normalizeIDs(input.PlayerIDs)
	if err != nil {
		return RegisterPlayersResult{}, err
	}
	if len(playerIDs) == 0 {
		return RegisterPlayersResult{}, fmt.Errorf("%w: player_ids must not be empty", ErrInvalidInput)
	}

	var result RegisterPlayersResult
	err = s.guard.run(ctx, input.MatchID, func(ctx context.Context, m match.Match) error {
		if m.Status == match.StatusFinalized {
			return fmt.Errorf("%w: roster of finalized match %s is frozen", ErrStateConflict, m.ID)
		}
		if !m.HasTeam(input.TeamID) {
			return fmt.Errorf("%w: team %s does not play match %s", ErrInvalidInput, input.TeamID, m.ID)
		}

		if err := s.validateSquad(ctx, input.TeamID, playerIDs); err != nil {
			return err
		}

		current, err := s.rosterRepo.GetRoster(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}

		now := s.now().UTC()
		entries := make([]roster.Entry, 0, len(playerIDs))
		for _, playerID := range playerIDs {
			if existing, ok := current.Find(playerID); ok {
				if existing.TeamID != input.TeamID {
					return fmt.Errorf("%w: %w: player=%s team=%s", ErrInvalidInput, roster.ErrTeamMismatch, playerID, existing.TeamID)
				}
				continue
			}
			entries = append(entries, roster.Entry{
				MatchID:      m.ID,
				TeamID:       input.TeamID,
				PlayerID:     playerID,
				Starting:     input.Starting,
				RegisteredAt: now,
			})
		}

		if len(entries) > 0 {
			inserted, err := s.rosterRepo.Insert(ctx, entries)
			if err != nil {
				return fmt.Errorf("insert roster entries: %w", err)
			}
			result.Inserted = inserted
		}

		result.Roster, err = s.rosterRepo.GetRoster(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		if result.Inserted > 0 {
			s.live.Publish(ctx, LiveUpdate{Type: LiveRosterChanged, MatchID: m.ID, Status: m.Status, Version: m.Version, At: now})
		}
		return nil
	})
	if err != nil {
		return RegisterPlayersResult{}, err
	}

	return result, nil
}

// SetCaptain points the side's captain reference at a registered player, or
// clears it when PlayerID is empty.
func (s *RosterService) SetCaptain(ctx context.Context, input SetCaptainInput) (roster.Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.SetCaptain", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.MatchID == "" || input.TeamID == "" {
		return roster.Roster{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	var out roster.Roster
	err := s.guard.run(ctx, input.MatchID, func(ctx context.Context, m match.Match) error {
		if m.Status == match.StatusFinalized {
			return fmt.Errorf("%w: captains of finalized match %s are frozen", ErrStateConflict, m.ID)
		}
		if !m.HasTeam(input.TeamID) {
			return fmt.Errorf("%w: team %s does not play match %s", ErrInvalidInput, input.TeamID, m.ID)
		}

		current, err := s.rosterRepo.GetRoster(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		if input.PlayerID != "" {
			entry, ok := current.Find(input.PlayerID)
			if !ok {
				return fmt.Errorf("%w: %w: player=%s", ErrInvalidInput, roster.ErrPlayerNotRegistered, input.PlayerID)
			}
			if entry.TeamID != input.TeamID {
				return fmt.Errorf("%w: %w: player=%s team=%s", ErrInvalidInput, roster.ErrTeamMismatch, input.PlayerID, entry.TeamID)
			}
		}

		if err := s.rosterRepo.SetCaptain(ctx, m.ID, input.TeamID, input.PlayerID); err != nil {
			return fmt.Errorf("set captain: %w", err)
		}
		out, err = s.rosterRepo.GetRoster(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		s.live.Publish(ctx, LiveUpdate{Type: LiveRosterChanged, MatchID: m.ID, Status: m.Status, Version: m.Version, At: s.now().UTC()})
		return nil
	})
	if err != nil {
		return roster.Roster{}, err
	}

	return out, nil
}

func (s *RosterService) validateSquad(ctx context.Context, teamID string, playerIDs []string) error {
	players, err := s.playerRepo.GetByIDs(ctx, playerIDs)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			return err
		}
		return fmt.Errorf("%w: get players by ids: %w", ErrDependencyUnavailable, err)
	}

	byID := make(map[string]player.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, playerID := range playerIDs {
		p, ok := byID[playerID]
		if !ok {
			return fmt.Errorf("%w: unknown player id %s", ErrInvalidInput, playerID)
		}
		if p.TeamID != teamID {
			return fmt.Errorf("%w: player %s is not in the squad of team %s", ErrInvalidInput, playerID, teamID)
		}
	}
	return nil
}
