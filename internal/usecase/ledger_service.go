package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	"github.com/riskibarqy/vocalia/internal/platform/id"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
)

type RecordGoalInput struct {
	MatchID   string
	PlayerID  string
	IsOwnGoal bool
	Minute    *int
}

type RecordSanctionInput struct {
	MatchID  string
	PlayerID string
	Type     string
	Minute   *int
}

type RecordSubstitutionInput struct {
	MatchID     string
	PlayerOutID string
	PlayerInID  string
	Minute      *int
}

type DeleteEventInput struct {
	MatchID string
	EventID string
}

// OnPitch lists the replayed on-pitch players per team.
type OnPitch struct {
	MatchID string
	Teams   map[string][]string
}

// LedgerService is the Event Ledger. Every rule check re-reads the ledger inside
// the match section; counts are never stored.
type LedgerService struct {
	matchRepo  match.Repository
	rosterRepo roster.Repository
	ledgerRepo ledger.Repository
	ids        id.Generator
	guard      matchGuard
	live       LivePublisher
	now        func() time.Time
}

func NewLedgerService(
	matchRepo match.Repository,
	rosterRepo roster.Repository,
	ledgerRepo ledger.Repository,
	ids id.Generator,
	locker lock.Locker,
	live LivePublisher,
) *LedgerService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if live == nil {
		live = NewNoopLivePublisher()
	}
	return &LedgerService{
		matchRepo:  matchRepo,
		rosterRepo: rosterRepo,
		ledgerRepo: ledgerRepo,
		ids:        ids,
		guard:      newMatchGuard(locker, matchRepo),
		live:       live,
		now:        time.Now,
	}
}

func (s *LedgerService) RecordGoal(ctx context.Context, input RecordGoalInput) (ledger.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.RecordGoal", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.MatchID == "" || input.PlayerID == "" {
		return ledger.Event{}, fmt.Errorf("%w: match_id and player_id are required", ErrInvalidInput)
	}

	return s.append(ctx, input.MatchID, input.PlayerID, input.Minute, ledger.Goal{IsOwnGoal: input.IsOwnGoal}, nil)
}

func (s *LedgerService) RecordSanction(ctx context.Context, input RecordSanctionInput) (ledger.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.RecordSanction", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.MatchID == "" || input.PlayerID == "" {
		return ledger.Event{}, fmt.Errorf("%w: match_id and player_id are required", ErrInvalidInput)
	}
	sanctionType, err := ledger.ParseSanctionType(input.Type)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	check := func(_ roster.Roster, events []ledger.Event) error {
		if err := ledger.ValidateSanction(events, input.PlayerID, sanctionType); err != nil {
			return fmt.Errorf("%w: %w", ErrRuleViolation, err)
		}
		return nil
	}
	return s.append(ctx, input.MatchID, input.PlayerID, input.Minute, ledger.Sanction{Type: sanctionType}, check)
}

func (s *LedgerService) RecordSubstitution(ctx context.Context, input RecordSubstitutionInput) (ledger.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.RecordSubstitution", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.PlayerOutID = strings.TrimSpace(input.PlayerOutID)
	input.PlayerInID = strings.TrimSpace(input.PlayerInID)
	if input.MatchID == "" || input.PlayerOutID == "" || input.PlayerInID == "" {
		return ledger.Event{}, fmt.Errorf("%w: match_id, player_out_id and player_in_id are required", ErrInvalidInput)
	}
	if input.PlayerOutID == input.PlayerInID {
		return ledger.Event{}, fmt.Errorf("%w: player_out_id and player_in_id must differ", ErrInvalidInput)
	}

	check := func(r roster.Roster, events []ledger.Event) error {
		if _, ok := r.Find(input.PlayerInID); !ok {
			return fmt.Errorf("%w: %w: player=%s", ErrInvalidInput, roster.ErrPlayerNotRegistered, input.PlayerInID)
		}
		if err := ledger.ValidateSubstitution(r, events, input.PlayerOutID, input.PlayerInID); err != nil {
			return fmt.Errorf("%w: %w", ErrRuleViolation, err)
		}
		return nil
	}
	payload := ledger.Substitution{PlayerOutID: input.PlayerOutID, PlayerInID: input.PlayerInID}
	return s.append(ctx, input.MatchID, input.PlayerOutID, input.Minute, payload, check)
}

// append runs the shared gate: in_progress, roster membership, then the
// kind-specific check against the ledger as it is inside the section.
func (s *LedgerService) append(
	ctx context.Context,
	matchID, playerID string,
	minute *int,
	payload ledger.Payload,
	check func(r roster.Roster, events []ledger.Event) error,
) (ledger.Event, error) {
	var stored ledger.Event
	err := s.guard.run(ctx, matchID, func(ctx context.Context, m match.Match) error {
		if err := requireStatus(m, match.StatusInProgress, "record "+string(payload.Kind())); err != nil {
			return err
		}

		r, err := s.rosterRepo.GetRoster(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		entry, ok := r.Find(playerID)
		if !ok || !m.HasTeam(entry.TeamID) {
			return fmt.Errorf("%w: %w: player=%s", ErrInvalidInput, roster.ErrPlayerNotRegistered, playerID)
		}

		events, err := s.ledgerRepo.ListByMatch(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("list match events: %w", err)
		}
		if check != nil {
			if err := check(r, events); err != nil {
				return err
			}
		}

		eventID, err := s.ids.NewID()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		event := ledger.Event{
			ID:         eventID,
			MatchID:    m.ID,
			PlayerID:   playerID,
			TeamID:     entry.TeamID,
			OccurredAt: s.now().UTC(),
			Minute:     minute,
			Payload:    payload,
		}
		if err := event.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}

		stored, err = s.ledgerRepo.Append(ctx, event)
		if err != nil {
			return ledgerWriteError(err, "append match event")
		}

		published := stored
		s.live.Publish(ctx, LiveUpdate{
			Type:    LiveEventRecorded,
			MatchID: m.ID,
			Status:  m.Status,
			Version: m.Version,
			Event:   &published,
			EventID: stored.ID,
			At:      stored.OccurredAt,
		})
		return nil
	})
	if err != nil {
		return ledger.Event{}, err
	}

	return stored, nil
}

// DeleteEvent removes one event. A removal that would orphan a later
// substitution is rejected so the replayed pitch stays consistent.
func (s *LedgerService) DeleteEvent(ctx context.Context, input DeleteEventInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.DeleteEvent", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.EventID = strings.TrimSpace(input.EventID)
	if input.MatchID == "" || input.EventID == "" {
		return fmt.Errorf("%w: match_id and event_id are required", ErrInvalidInput)
	}

	return s.guard.run(ctx, input.MatchID, func(ctx context.Context, m match.Match) error {
		if err := requireStatus(m, match.StatusInProgress, "delete event"); err != nil {
			return err
		}

		events, err := s.ledgerRepo.ListByMatch(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("list match events: %w", err)
		}
		remaining := make([]ledger.Event, 0, len(events))
		found := false
		for _, event := range events {
			if event.ID == input.EventID {
				found = true
				continue
			}
			remaining = append(remaining, event)
		}
		if !found {
			return fmt.Errorf("%w: event=%s match=%s", ErrNotFound, input.EventID, m.ID)
		}

		r, err := s.rosterRepo.GetRoster(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		if err := ledger.ValidateReplay(r, remaining); err != nil {
			return fmt.Errorf("%w: deleting %s breaks a later substitution: %w", ErrRuleViolation, input.EventID, err)
		}

		deleted, err := s.ledgerRepo.Delete(ctx, m.ID, input.EventID)
		if err != nil {
			return ledgerWriteError(err, "delete match event")
		}
		if !deleted {
			// The store refuses deletes on a closed match; tell that apart from a gone event.
			current, err := loadMatch(ctx, s.matchRepo, m.ID)
			if err != nil {
				return err
			}
			if err := requireStatus(current, match.StatusInProgress, "delete event"); err != nil {
				return err
			}
			return fmt.Errorf("%w: event=%s match=%s", ErrNotFound, input.EventID, m.ID)
		}

		s.live.Publish(ctx, LiveUpdate{
			Type:    LiveEventDeleted,
			MatchID: m.ID,
			Status:  m.Status,
			Version: m.Version,
			EventID: input.EventID,
			At:      s.now().UTC(),
		})
		return nil
	})
}

func (s *LedgerService) ListEvents(ctx context.Context, matchID string) ([]ledger.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.ListEvents", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}
	if _, err := loadMatch(ctx, s.matchRepo, matchID); err != nil {
		return nil, err
	}

	events, err := s.ledgerRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list match events: %w", err)
	}
	return events, nil
}

// Stats derives per-player and per-team counts from a full ledger scan.
func (s *LedgerService) Stats(ctx context.Context, matchID string) (ledger.Tally, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.Stats", matchAttr(matchID))
	defer span.End()

	m, r, events, err := s.readLedger(ctx, matchID)
	if err != nil {
		return ledger.Tally{}, err
	}
	return ledger.BuildTally(m, r, events), nil
}

func (s *LedgerService) OnPitch(ctx context.Context, matchID string) (OnPitch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.OnPitch", matchAttr(matchID))
	defer span.End()

	m, r, events, err := s.readLedger(ctx, matchID)
	if err != nil {
		return OnPitch{}, err
	}

	pitch := ledger.ReplayPitch(r, events)
	return OnPitch{
		MatchID: m.ID,
		Teams: map[string][]string{
			m.LocalTeamID: pitch.Players(m.LocalTeamID),
			m.AwayTeamID:  pitch.Players(m.AwayTeamID),
		},
	}, nil
}

func (s *LedgerService) readLedger(ctx context.Context, matchID string) (match.Match, roster.Roster, []ledger.Event, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, roster.Roster{}, nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}
	m, err := loadMatch(ctx, s.matchRepo, matchID)
	if err != nil {
		return match.Match{}, roster.Roster{}, nil, err
	}
	r, err := s.rosterRepo.GetRoster(ctx, matchID)
	if err != nil {
		return match.Match{}, roster.Roster{}, nil, fmt.Errorf("get roster: %w", err)
	}
	events, err := s.ledgerRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return match.Match{}, roster.Roster{}, nil, fmt.Errorf("list match events: %w", err)
	}
	return m, r, events, nil
}

// ledgerWriteError maps a store-side status guard onto ErrStateConflict.
func ledgerWriteError(err error, op string) error {
	if errors.Is(err, ledger.ErrLedgerClosed) {
		return fmt.Errorf("%w: %s: %w", ErrStateConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
