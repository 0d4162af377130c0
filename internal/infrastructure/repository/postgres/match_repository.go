package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	qb "github.com/riskibarqy/vocalia/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("public_id", matchID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match by id: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}

	insertModel := matchInsertModel{
		PublicID:    m.ID,
		LeagueID:    m.LeagueID,
		LocalTeamID: m.LocalTeamID,
		AwayTeamID:  m.AwayTeamID,
		KickoffAt:   m.KickoffAt,
		Venue:       m.Venue,
		Status:      string(m.Status),
		Version:     1,
	}
	query, args, err := qb.InsertModel("matches", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("match %s already exists", m.ID)
		}
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID string, to match.Status, expectedVersion int64) (match.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return match.Match{}, fmt.Errorf("begin tx update match status: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockMatchForUpdate(ctx, tx, matchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}
	if !match.CanTransition(current.Status, to) {
		return match.Match{}, fmt.Errorf("%w: %s -> %s", match.ErrInvalidTransition, current.Status, to)
	}

	update := qb.Update("matches").
		Set("status", string(to)).
		SetExpr("version", "version + 1").
		SetExpr("updated_at", "NOW()")
	if to == match.StatusInProgress {
		update = update.SetExpr("started_at", "COALESCE(started_at, NOW())")
	}
	updated, err := execMatchUpdate(ctx, tx, update, matchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}

	if err := tx.Commit(); err != nil {
		return match.Match{}, fmt.Errorf("commit update match status tx: %w", err)
	}
	return updated, nil
}

func (r *MatchRepository) Finalize(ctx context.Context, summary match.Summary, expectedVersion int64) (match.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return match.Match{}, fmt.Errorf("begin tx finalize match: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockMatchForUpdate(ctx, tx, summary.MatchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}
	if !match.CanTransition(current.Status, match.StatusFinalized) {
		return match.Match{}, fmt.Errorf("%w: %s -> %s", match.ErrInvalidTransition, current.Status, match.StatusFinalized)
	}

	insertModel := matchSummaryInsertModel{
		MatchID:               summary.MatchID,
		LocalScore:            summary.LocalScore,
		AwayScore:             summary.AwayScore,
		LocalAmount:           summary.LocalAmount,
		AwayAmount:            summary.AwayAmount,
		Observations:          summary.Observations,
		ArbitratorName:        summary.ArbitratorName,
		LocalCaptainSignature: summary.LocalCaptainSignature,
		AwayCaptainSignature:  summary.AwayCaptainSignature,
		RecordedBy:            summary.RecordedBy,
	}
	query, args, err := qb.InsertModel("match_summaries", insertModel, "")
	if err != nil {
		return match.Match{}, fmt.Errorf("build insert match summary query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return match.Match{}, fmt.Errorf("%w: summary already recorded for %s", match.ErrVersionConflict, summary.MatchID)
		}
		return match.Match{}, fmt.Errorf("insert match summary: %w", err)
	}

	update := qb.Update("matches").
		Set("status", string(match.StatusFinalized)).
		Set("local_score", summary.LocalScore).
		Set("away_score", summary.AwayScore).
		SetExpr("finalized_at", "NOW()").
		SetExpr("version", "version + 1").
		SetExpr("updated_at", "NOW()")
	updated, err := execMatchUpdate(ctx, tx, update, summary.MatchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}

	if err := tx.Commit(); err != nil {
		return match.Match{}, fmt.Errorf("commit finalize match tx: %w", err)
	}
	return updated, nil
}

func (r *MatchRepository) Revert(ctx context.Context, matchID string, expectedVersion int64) (match.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return match.Match{}, fmt.Errorf("begin tx revert match: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockMatchForUpdate(ctx, tx, matchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}
	if current.Status != match.StatusFinalized {
		return match.Match{}, fmt.Errorf("%w: %s -> %s", match.ErrInvalidTransition, current.Status, match.StatusInProgress)
	}

	deleteQuery, deleteArgs, err := qb.DeleteFrom("match_summaries").
		Where(qb.Eq("match_public_id", matchID)).
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build delete match summary query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return match.Match{}, fmt.Errorf("delete match summary: %w", err)
	}

	update := qb.Update("matches").
		Set("status", string(match.StatusInProgress)).
		SetExpr("local_score", "NULL").
		SetExpr("away_score", "NULL").
		SetExpr("finalized_at", "NULL").
		SetExpr("version", "version + 1").
		SetExpr("updated_at", "NOW()")
	updated, err := execMatchUpdate(ctx, tx, update, matchID, expectedVersion)
	if err != nil {
		return match.Match{}, err
	}

	if err := tx.Commit(); err != nil {
		return match.Match{}, fmt.Errorf("commit revert match tx: %w", err)
	}
	return updated, nil
}

func (r *MatchRepository) GetSummary(ctx context.Context, matchID string) (match.Summary, bool, error) {
	query, args, err := qb.Select("*").From("match_summaries").
		Where(qb.Eq("match_public_id", matchID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Summary{}, false, fmt.Errorf("build select match summary query: %w", err)
	}

	var row matchSummaryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Summary{}, false, nil
		}
		return match.Summary{}, false, fmt.Errorf("get match summary: %w", err)
	}
	return row.toDomain(), true, nil
}

// lockMatchForUpdate row-locks the match for the rest of tx and checks the
// caller's version before any write is attempted.
func lockMatchForUpdate(ctx context.Context, tx *sqlx.Tx, matchID string, expectedVersion int64) (match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("public_id", matchID)).
		Limit(1).
		ForUpdate().
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build lock match query: %w", err)
	}

	var row matchTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, fmt.Errorf("match %s not found", matchID)
		}
		return match.Match{}, fmt.Errorf("lock match: %w", err)
	}
	if row.Version != expectedVersion {
		return match.Match{}, fmt.Errorf("%w: match=%s stored=%d expected=%d", match.ErrVersionConflict, matchID, row.Version, expectedVersion)
	}
	return row.toDomain(), nil
}

func execMatchUpdate(ctx context.Context, tx *sqlx.Tx, update *qb.UpdateBuilder, matchID string, expectedVersion int64) (match.Match, error) {
	query, args, err := update.
		Where(
			qb.Eq("public_id", matchID),
			qb.Eq("version", expectedVersion),
		).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build update match query: %w", err)
	}

	var row matchTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, fmt.Errorf("%w: match=%s expected=%d", match.ErrVersionConflict, matchID, expectedVersion)
		}
		return match.Match{}, fmt.Errorf("update match: %w", err)
	}
	return row.toDomain(), nil
}
