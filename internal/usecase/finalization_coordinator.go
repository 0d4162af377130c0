package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	"github.com/shopspring/decimal"
)

// FinalizeInput carries the operator-entered part of the summary.
type FinalizeInput struct {
	MatchID string
	// Amounts are required; nil means the operator did not enter one.
	LocalAmount           *decimal.Decimal
	AwayAmount            *decimal.Decimal
	Observations          string
	ArbitratorName        string
	LocalCaptainSignature string
	AwayCaptainSignature  string
	RecordedBy            string
	// ExpectedVersion, when > 0, must equal the stored version.
	ExpectedVersion int64
}

// FinalizationCoordinator derives the score from the ledger and assembles the
// summary. It performs no writes.
type FinalizationCoordinator struct {
	rosterRepo roster.Repository
	ledgerRepo ledger.Repository
	now        func() time.Time
}

func NewFinalizationCoordinator(rosterRepo roster.Repository, ledgerRepo ledger.Repository) *FinalizationCoordinator {
	return &FinalizationCoordinator{
		rosterRepo: rosterRepo,
		ledgerRepo: ledgerRepo,
		now:        time.Now,
	}
}

func (c *FinalizationCoordinator) ComputeScore(ctx context.Context, m match.Match) (match.Score, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FinalizationCoordinator.ComputeScore", matchAttr(m.ID))
	defer span.End()

	r, err := c.rosterRepo.GetRoster(ctx, m.ID)
	if err != nil {
		return match.Score{}, fmt.Errorf("get roster: %w", err)
	}
	events, err := c.ledgerRepo.ListByMatch(ctx, m.ID)
	if err != nil {
		return match.Score{}, fmt.Errorf("list match events: %w", err)
	}
	return ledger.DeriveScore(m, r, events), nil
}

func (c *FinalizationCoordinator) BuildSummary(ctx context.Context, m match.Match, input FinalizeInput) (match.Summary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FinalizationCoordinator.BuildSummary", matchAttr(input.MatchID))
	defer span.End()

	if input.LocalAmount == nil || input.AwayAmount == nil {
		return match.Summary{}, fmt.Errorf("%w: %w: local and away amounts are required", ErrInvalidInput, match.ErrSummaryIncomplete)
	}

	score, err := c.ComputeScore(ctx, m)
	if err != nil {
		return match.Summary{}, err
	}

	summary := match.Summary{
		MatchID:               m.ID,
		LocalScore:            score.Local,
		AwayScore:             score.Away,
		LocalAmount:           *input.LocalAmount,
		AwayAmount:            *input.AwayAmount,
		Observations:          strings.TrimSpace(input.Observations),
		ArbitratorName:        strings.TrimSpace(input.ArbitratorName),
		LocalCaptainSignature: strings.TrimSpace(input.LocalCaptainSignature),
		AwayCaptainSignature:  strings.TrimSpace(input.AwayCaptainSignature),
		RecordedBy:            strings.TrimSpace(input.RecordedBy),
		CreatedAt:             c.now().UTC(),
	}
	if err := summary.Validate(); err != nil {
		return match.Summary{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return summary, nil
}
