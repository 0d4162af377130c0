package standings

import (
	"context"

	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/riskibarqy/vocalia/internal/usecase"
)

// LogNotifier records standings signals without delivering them anywhere.
// It is the default when no broker is configured.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) MatchFinalized(ctx context.Context, result usecase.MatchResult) error {
	n.logger.InfoContext(ctx, "standings recalculation requested",
		"match_id", result.MatchID,
		"local_score", result.LocalScore,
		"away_score", result.AwayScore,
	)
	return nil
}

func (n *LogNotifier) MatchReverted(ctx context.Context, matchID string) error {
	n.logger.InfoContext(ctx, "standings rollback requested", "match_id", matchID)
	return nil
}
