package ledger

import (
	"context"
	"errors"
)

// ErrLedgerClosed is returned by stores that check match status on write when
// the match is no longer in progress.
var ErrLedgerClosed = errors.New("match ledger is closed")

// Repository is the append/remove store for match events.
type Repository interface {
	// ListByMatch returns events ordered by OccurredAt then Sequence.
	ListByMatch(ctx context.Context, matchID string) ([]Event, error)
	GetByID(ctx context.Context, matchID, eventID string) (Event, bool, error)
	// Append assigns Sequence and returns the stored event.
	Append(ctx context.Context, event Event) (Event, error)
	// Delete reports false when the event does not exist for the match.
	Delete(ctx context.Context, matchID, eventID string) (bool, error)
}
