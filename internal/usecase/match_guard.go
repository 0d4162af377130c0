package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
	"go.opentelemetry.io/otel/trace"
)

// matchGuard runs match-scoped mutations inside the per-match exclusive section.
// Everything read inside fn is current as of lock acquisition.
type matchGuard struct {
	locker    lock.Locker
	matchRepo match.Repository
}

func newMatchGuard(locker lock.Locker, matchRepo match.Repository) matchGuard {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return matchGuard{locker: locker, matchRepo: matchRepo}
}

func matchLockKey(matchID string) string {
	return "match:" + matchID
}

// run fails the caller's span for server-side errors.
func (g matchGuard) run(ctx context.Context, matchID string, fn func(ctx context.Context, m match.Match) error) (err error) {
	defer func() { failSpan(trace.SpanFromContext(ctx), err) }()

	unlock, err := g.locker.Lock(ctx, matchLockKey(matchID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return fmt.Errorf("%w: match %s is busy, retry: %w", ErrStateConflict, matchID, err)
		}
		return fmt.Errorf("%w: acquire match lock: %w", ErrDependencyUnavailable, err)
	}
	defer unlock()

	m, err := loadMatch(ctx, g.matchRepo, matchID)
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

func loadMatch(ctx context.Context, repo match.Repository, matchID string) (match.Match, error) {
	m, exists, err := repo.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match by id: %w", err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	return m, nil
}

func requireStatus(m match.Match, want match.Status, op string) error {
	if m.Status != want {
		return fmt.Errorf("%w: cannot %s while match %s is %s", ErrStateConflict, op, m.ID, m.Status)
	}
	return nil
}

// versionConflict maps a lost compare-and-swap onto the caller-facing class.
func versionConflict(err error, op string) error {
	if errors.Is(err, match.ErrVersionConflict) {
		return fmt.Errorf("%w: %s: %w", ErrStateConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func checkExpectedVersion(m match.Match, expected int64) error {
	if expected > 0 && m.Version != expected {
		return fmt.Errorf("%w: match %s is at version %d, expected %d", ErrStateConflict, m.ID, m.Version, expected)
	}
	return nil
}

func normalizeIDs(ids []string) ([]string, error) {
	cleaned := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: player id cannot be empty", ErrInvalidInput)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	return cleaned, nil
}
