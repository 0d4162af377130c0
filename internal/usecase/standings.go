package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
)

// MatchResult is what the standings service receives on finalize. Version is
// the match version after the finalize commit.
type MatchResult struct {
	MatchID     string    `json:"match_id"`
	Version     int64     `json:"version"`
	LocalScore  int       `json:"local_score"`
	AwayScore   int       `json:"away_score"`
	FinalizedAt time.Time `json:"finalized_at"`
}

// StandingsNotifier delivers finalize/revert signals to the standings service.
// Retries are the receiver's concern.
type StandingsNotifier interface {
	MatchFinalized(ctx context.Context, result MatchResult) error
	MatchReverted(ctx context.Context, matchID string) error
}

type noopStandingsNotifier struct{}

func (noopStandingsNotifier) MatchFinalized(context.Context, MatchResult) error { return nil }
func (noopStandingsNotifier) MatchReverted(context.Context, string) error       { return nil }

func NewNoopStandingsNotifier() StandingsNotifier {
	return noopStandingsNotifier{}
}

// StandingsDispatcher sends notifications off the request path on a bounded pool.
// Signals for one match are delivered one at a time in submit order; different
// matches run in parallel. Failures are logged and dropped.
type StandingsDispatcher struct {
	notifier StandingsNotifier
	pool     *ants.Pool
	logger   *logging.Logger

	mu sync.Mutex
	// queues holds signals waiting behind an in-flight drain; a key is present
	// while that match has a drain running.
	queues map[string][]standingsSignal
}

type standingsSignal struct {
	ctx  context.Context
	kind string
	send func(context.Context) error
}

func NewStandingsDispatcher(notifier StandingsNotifier, workers int, logger *logging.Logger) (*StandingsDispatcher, error) {
	if notifier == nil {
		notifier = NewNoopStandingsNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if workers < 1 {
		workers = 1
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create standings worker pool: %w", err)
	}

	return &StandingsDispatcher{
		notifier: notifier,
		pool:     pool,
		logger:   logger.Named("standings"),
		queues:   make(map[string][]standingsSignal),
	}, nil
}

func (d *StandingsDispatcher) MatchFinalized(ctx context.Context, result MatchResult) error {
	return d.submit(ctx, "finalized", result.MatchID, func(ctx context.Context) error {
		return d.notifier.MatchFinalized(ctx, result)
	})
}

func (d *StandingsDispatcher) MatchReverted(ctx context.Context, matchID string) error {
	return d.submit(ctx, "reverted", matchID, func(ctx context.Context) error {
		return d.notifier.MatchReverted(ctx, matchID)
	})
}

func (d *StandingsDispatcher) submit(ctx context.Context, kind, matchID string, send func(context.Context) error) error {
	// The request that triggered the signal is usually done before the send runs.
	sig := standingsSignal{ctx: context.WithoutCancel(ctx), kind: kind, send: send}

	d.mu.Lock()
	if pending, draining := d.queues[matchID]; draining {
		d.queues[matchID] = append(pending, sig)
		d.mu.Unlock()
		return nil
	}
	d.queues[matchID] = nil
	d.mu.Unlock()

	if err := d.pool.Submit(func() { d.drain(matchID, sig) }); err != nil {
		d.mu.Lock()
		dropped := len(d.queues[matchID])
		delete(d.queues, matchID)
		d.mu.Unlock()
		return fmt.Errorf("submit standings notification (%d queued behind it dropped): %w", dropped, err)
	}
	return nil
}

// drain delivers sig, then whatever queued behind it for the same match.
func (d *StandingsDispatcher) drain(matchID string, sig standingsSignal) {
	for {
		d.deliver(matchID, sig)

		d.mu.Lock()
		pending := d.queues[matchID]
		if len(pending) == 0 {
			delete(d.queues, matchID)
			d.mu.Unlock()
			return
		}
		sig = pending[0]
		d.queues[matchID] = pending[1:]
		d.mu.Unlock()
	}
}

func (d *StandingsDispatcher) deliver(matchID string, sig standingsSignal) {
	if err := sig.send(sig.ctx); err != nil {
		d.logger.ErrorContext(sig.ctx, "standings notification failed",
			"kind", sig.kind,
			"match_id", matchID,
			"error", err,
		)
		return
	}
	d.logger.DebugContext(sig.ctx, "standings notification sent",
		"kind", sig.kind,
		"match_id", matchID,
	)
}

// Close waits up to timeout for queued notifications.
func (d *StandingsDispatcher) Close(timeout time.Duration) error {
	if d == nil || d.pool == nil {
		return nil
	}
	return d.pool.ReleaseTimeout(timeout)
}
