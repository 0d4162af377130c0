package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

type FinalizeResult struct {
	Match   match.Match
	Summary match.Summary
}

type RevertInput struct {
	MatchID         string
	ExpectedVersion int64
}

// Snapshot is the full vocalia of one match as of a single read.
type Snapshot struct {
	Match   match.Match
	Roster  roster.Roster
	Events  []ledger.Event
	Tally   ledger.Tally
	Summary *match.Summary
}

// MatchSessionService owns the lifecycle: start, finalize, revert.
type MatchSessionService struct {
	matchRepo   match.Repository
	rosterRepo  roster.Repository
	ledgerRepo  ledger.Repository
	coordinator *FinalizationCoordinator
	standings   StandingsNotifier
	live        LivePublisher
	guard       matchGuard
	logger      *logging.Logger
	now         func() time.Time
}

func NewMatchSessionService(
	matchRepo match.Repository,
	rosterRepo roster.Repository,
	ledgerRepo ledger.Repository,
	locker lock.Locker,
	standings StandingsNotifier,
	live LivePublisher,
	logger *logging.Logger,
) *MatchSessionService {
	if standings == nil {
		standings = NewNoopStandingsNotifier()
	}
	if live == nil {
		live = NewNoopLivePublisher()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchSessionService{
		matchRepo:   matchRepo,
		rosterRepo:  rosterRepo,
		ledgerRepo:  ledgerRepo,
		coordinator: NewFinalizationCoordinator(rosterRepo, ledgerRepo),
		standings:   standings,
		live:        live,
		guard:       newMatchGuard(locker, matchRepo),
		logger:      logger,
		now:         time.Now,
	}
}

func (s *MatchSessionService) Get(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSessionService.Get", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}
	return loadMatch(ctx, s.matchRepo, matchID)
}

// Start opens the session. Starting an already running match returns it unchanged.
func (s *MatchSessionService) Start(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSessionService.Start", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	var out match.Match
	err := s.guard.run(ctx, matchID, func(ctx context.Context, m match.Match) error {
		switch m.Status {
		case match.StatusInProgress:
			out = m
			return nil
		case match.StatusScheduled:
		default:
			return fmt.Errorf("%w: cannot start match %s from %s", ErrStateConflict, m.ID, m.Status)
		}

		updated, err := s.matchRepo.UpdateStatus(ctx, m.ID, match.StatusInProgress, m.Version)
		if err != nil {
			return versionConflict(err, "start match")
		}
		out = updated
		s.live.Publish(ctx, LiveUpdate{Type: LiveMatchStarted, MatchID: out.ID, Status: out.Status, Version: out.Version, At: s.now().UTC()})
		return nil
	})
	if err != nil {
		return match.Match{}, err
	}

	return out, nil
}

// Finalize derives the score, writes summary + score + status in one unit and
// signals standings. A second finalize of the same match gets ErrStateConflict.
func (s *MatchSessionService) Finalize(ctx context.Context, input FinalizeInput) (FinalizeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSessionService.Finalize", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	if input.MatchID == "" {
		return FinalizeResult{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	var (
		result      FinalizeResult
		finalizedAt time.Time
	)
	err := s.guard.run(ctx, input.MatchID, func(ctx context.Context, m match.Match) error {
		if err := requireStatus(m, match.StatusInProgress, "finalize"); err != nil {
			return err
		}
		if err := checkExpectedVersion(m, input.ExpectedVersion); err != nil {
			return err
		}

		summary, err := s.coordinator.BuildSummary(ctx, m, input)
		if err != nil {
			return err
		}

		finalized, err := s.matchRepo.Finalize(ctx, summary, m.Version)
		if err != nil {
			return versionConflict(err, "finalize match")
		}
		result = FinalizeResult{Match: finalized, Summary: summary}

		finalizedAt = s.now().UTC()
		if finalized.FinalizedAt != nil {
			finalizedAt = *finalized.FinalizedAt
		}
		// Queued while the match section is held so standings see commit order.
		s.signalFinalized(ctx, MatchResult{
			MatchID:     finalized.ID,
			Version:     finalized.Version,
			LocalScore:  summary.LocalScore,
			AwayScore:   summary.AwayScore,
			FinalizedAt: finalizedAt,
		})
		return nil
	})
	if err != nil {
		return FinalizeResult{}, err
	}

	s.live.Publish(ctx, LiveUpdate{Type: LiveMatchFinalized, MatchID: result.Match.ID, Status: result.Match.Status, Version: result.Match.Version, At: finalizedAt})

	return result, nil
}

// Revert discards the summary and reopens the match. The ledger is untouched.
func (s *MatchSessionService) Revert(ctx context.Context, input RevertInput) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSessionService.Revert", matchAttr(input.MatchID))
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	if input.MatchID == "" {
		return match.Match{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	var out match.Match
	err := s.guard.run(ctx, input.MatchID, func(ctx context.Context, m match.Match) error {
		if err := requireStatus(m, match.StatusFinalized, "revert"); err != nil {
			return err
		}
		if err := checkExpectedVersion(m, input.ExpectedVersion); err != nil {
			return err
		}

		reverted, err := s.matchRepo.Revert(ctx, m.ID, m.Version)
		if err != nil {
			return versionConflict(err, "revert match")
		}
		out = reverted
		s.signalReverted(ctx, reverted.ID)
		return nil
	})
	if err != nil {
		return match.Match{}, err
	}

	s.live.Publish(ctx, LiveUpdate{Type: LiveMatchReverted, MatchID: out.ID, Status: out.Status, Version: out.Version, At: s.now().UTC()})

	return out, nil
}

func (s *MatchSessionService) signalFinalized(ctx context.Context, result MatchResult) {
	if err := s.standings.MatchFinalized(ctx, result); err != nil {
		s.logger.WarnContext(ctx, "standings finalize signal not queued", "match_id", result.MatchID, "error", err)
	}
}

func (s *MatchSessionService) signalReverted(ctx context.Context, matchID string) {
	if err := s.standings.MatchReverted(ctx, matchID); err != nil {
		s.logger.WarnContext(ctx, "standings revert signal not queued", "match_id", matchID, "error", err)
	}
}

func (s *MatchSessionService) GetSummary(ctx context.Context, matchID string) (match.Summary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSessionService.GetSummary", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Summary{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}
	if _, err := loadMatch(ctx, s.matchRepo, matchID); err != nil {
		return match.Summary{}, err
	}

	summary, exists, err := s.matchRepo.GetSummary(ctx, matchID)
	if err != nil {
		return match.Summary{}, fmt.Errorf("get match summary: %w", err)
	}
	if !exists {
		return match.Summary{}, fmt.Errorf("%w: summary for match=%s", ErrNotFound, matchID)
	}
	return summary, nil
}

// snapshotAttempts bounds how often Snapshot rereads when a lifecycle
// transition lands mid-read.
const snapshotAttempts = 3

// Snapshot reads match, roster, ledger and summary concurrently. It does not
// take the match section, so it never waits behind a writer; instead the match
// is read before and after the other reads and the whole read is retried when
// its version moved.
func (s *MatchSessionService) Snapshot(ctx context.Context, matchID string) (Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSessionService.Snapshot", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return Snapshot{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	for range snapshotAttempts {
		snap, stable, err := s.readSnapshot(ctx, matchID)
		if err != nil {
			return Snapshot{}, err
		}
		if stable {
			return snap, nil
		}
	}
	return Snapshot{}, fmt.Errorf("%w: match %s kept changing while reading, retry", ErrStateConflict, matchID)
}

func (s *MatchSessionService) readSnapshot(ctx context.Context, matchID string) (Snapshot, bool, error) {
	m, err := loadMatch(ctx, s.matchRepo, matchID)
	if err != nil {
		return Snapshot{}, false, err
	}

	var (
		r          roster.Roster
		events     []ledger.Event
		summary    match.Summary
		hasSummary bool
		after      match.Match
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		r, err = s.rosterRepo.GetRoster(ctx, matchID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		events, err = s.ledgerRepo.ListByMatch(ctx, matchID)
		if err != nil {
			return fmt.Errorf("list match events: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		summary, hasSummary, err = s.matchRepo.GetSummary(ctx, matchID)
		if err != nil {
			return fmt.Errorf("get match summary: %w", err)
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return Snapshot{}, false, err
	}

	after, err = loadMatch(ctx, s.matchRepo, matchID)
	if err != nil {
		return Snapshot{}, false, err
	}
	if after.Version != m.Version || hasSummary != (m.Status == match.StatusFinalized) {
		return Snapshot{}, false, nil
	}

	out := Snapshot{
		Match:  m,
		Roster: r,
		Events: events,
		Tally:  ledger.BuildTally(m, r, events),
	}
	if hasSummary {
		out.Summary = &summary
	}
	return out, true, nil
}
