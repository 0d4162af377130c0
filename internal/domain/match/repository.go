package match

import "context"

// Repository persists matches and their summaries.
//
// Status writes are compare-and-swap on Version: an implementation must return
// ErrVersionConflict when the stored version differs from expectedVersion and
// must bump the version on every successful write.
type Repository interface {
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	Create(ctx context.Context, m Match) error
	UpdateStatus(ctx context.Context, matchID string, to Status, expectedVersion int64) (Match, error)
	// Finalize writes the summary, the score and the finalized status in one unit.
	Finalize(ctx context.Context, summary Summary, expectedVersion int64) (Match, error)
	// Revert drops the summary and returns the match to in_progress with no committed score.
	Revert(ctx context.Context, matchID string, expectedVersion int64) (Match, error)
	GetSummary(ctx context.Context, matchID string) (Summary, bool, error)
}
