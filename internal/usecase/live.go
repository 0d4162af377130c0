package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
)

const (
	LiveMatchStarted   = "match.started"
	LiveMatchFinalized = "match.finalized"
	LiveMatchReverted  = "match.reverted"
	LiveRosterChanged  = "roster.changed"
	LiveEventRecorded  = "event.recorded"
	LiveEventDeleted   = "event.deleted"
)

// LiveUpdate is published after a mutation commits.
type LiveUpdate struct {
	Type    string
	MatchID string
	Status  match.Status
	Version int64
	Event   *ledger.Event
	EventID string
	At      time.Time
}

// LivePublisher fans committed changes out to watchers of a match. It must not block.
type LivePublisher interface {
	Publish(ctx context.Context, update LiveUpdate)
}

type noopLivePublisher struct{}

func (noopLivePublisher) Publish(context.Context, LiveUpdate) {}

func NewNoopLivePublisher() LivePublisher {
	return noopLivePublisher{}
}
