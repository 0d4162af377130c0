package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/match"
)

// MatchRepository keeps matches and summaries behind one mutex so finalize and
// revert change both in a single step.
type MatchRepository struct {
	mu        sync.RWMutex
	matches   map[string]match.Match
	summaries map[string]match.Summary
	now       func() time.Time
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	repo := &MatchRepository{
		matches:   make(map[string]match.Match, len(seed)),
		summaries: make(map[string]match.Summary),
		now:       time.Now,
	}
	for _, m := range seed {
		if m.Version == 0 {
			m.Version = 1
		}
		repo.matches[m.ID] = cloneMatch(m)
	}
	return repo
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.matches[matchID]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(m), true, nil
}

func (r *MatchRepository) Create(_ context.Context, m match.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.matches[m.ID]; exists {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	m.Version = 1
	m.UpdatedAt = r.now().UTC()
	r.matches[m.ID] = cloneMatch(m)
	return nil
}

func (r *MatchRepository) UpdateStatus(_ context.Context, matchID string, to match.Status, expectedVersion int64) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.casLocked(matchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}
	if !match.CanTransition(m.Status, to) {
		return match.Match{}, fmt.Errorf("%w: %s -> %s", match.ErrInvalidTransition, m.Status, to)
	}

	now := r.now().UTC()
	m.Status = to
	if to == match.StatusInProgress && m.StartedAt == nil {
		m.StartedAt = &now
	}
	m.Version++
	m.UpdatedAt = now
	r.matches[matchID] = m
	return cloneMatch(m), nil
}

func (r *MatchRepository) Finalize(_ context.Context, summary match.Summary, expectedVersion int64) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.casLocked(summary.MatchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}
	if !match.CanTransition(m.Status, match.StatusFinalized) {
		return match.Match{}, fmt.Errorf("%w: %s -> %s", match.ErrInvalidTransition, m.Status, match.StatusFinalized)
	}
	if _, exists := r.summaries[m.ID]; exists {
		return match.Match{}, fmt.Errorf("%w: summary already recorded for %s", match.ErrVersionConflict, m.ID)
	}

	now := r.now().UTC()
	local, away := summary.LocalScore, summary.AwayScore
	m.LocalScore = &local
	m.AwayScore = &away
	m.Status = match.StatusFinalized
	m.FinalizedAt = &now
	m.Version++
	m.UpdatedAt = now

	r.summaries[m.ID] = summary
	r.matches[m.ID] = m
	return cloneMatch(m), nil
}

func (r *MatchRepository) Revert(_ context.Context, matchID string, expectedVersion int64) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.casLocked(matchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}
	if m.Status != match.StatusFinalized {
		return match.Match{}, fmt.Errorf("%w: %s -> %s", match.ErrInvalidTransition, m.Status, match.StatusInProgress)
	}

	m.Status = match.StatusInProgress
	m.LocalScore = nil
	m.AwayScore = nil
	m.FinalizedAt = nil
	m.Version++
	m.UpdatedAt = r.now().UTC()

	delete(r.summaries, matchID)
	r.matches[matchID] = m
	return cloneMatch(m), nil
}

func (r *MatchRepository) GetSummary(_ context.Context, matchID string) (match.Summary, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary, ok := r.summaries[matchID]
	return summary, ok, nil
}

func (r *MatchRepository) casLocked(matchID string, expectedVersion int64) (match.Match, error) {
	m, ok := r.matches[matchID]
	if !ok {
		return match.Match{}, fmt.Errorf("match %s not found", matchID)
	}
	if m.Version != expectedVersion {
		return match.Match{}, fmt.Errorf("%w: match=%s stored=%d expected=%d", match.ErrVersionConflict, matchID, m.Version, expectedVersion)
	}
	return m, nil
}

func cloneMatch(m match.Match) match.Match {
	copied := m
	if m.LocalScore != nil {
		v := *m.LocalScore
		copied.LocalScore = &v
	}
	if m.AwayScore != nil {
		v := *m.AwayScore
		copied.AwayScore = &v
	}
	if m.StartedAt != nil {
		v := *m.StartedAt
		copied.StartedAt = &v
	}
	if m.FinalizedAt != nil {
		v := *m.FinalizedAt
		copied.FinalizedAt = &v
	}
	return copied
}
