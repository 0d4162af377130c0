package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	qb "github.com/riskibarqy/vocalia/internal/platform/querybuilder"
)

var matchEventSelectColumns = []string{
	"seq",
	"public_id",
	"match_public_id",
	"player_public_id",
	"team_public_id",
	"kind",
	"payload::text AS payload",
	"minute",
	"occurred_at",
	"created_at",
}

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) ListByMatch(ctx context.Context, matchID string) ([]ledger.Event, error) {
	query, args, err := qb.Select(matchEventSelectColumns...).From("match_events").
		Where(qb.Eq("match_public_id", matchID)).
		OrderBy("occurred_at", "seq").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match events query: %w", err)
	}

	var rows []matchEventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select match events: %w", err)
	}

	out := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (r *EventRepository) GetByID(ctx context.Context, matchID, eventID string) (ledger.Event, bool, error) {
	query, args, err := qb.Select(matchEventSelectColumns...).From("match_events").
		Where(
			qb.Eq("match_public_id", matchID),
			qb.Eq("public_id", eventID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return ledger.Event{}, false, fmt.Errorf("build select match event query: %w", err)
	}

	var row matchEventTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return ledger.Event{}, false, nil
		}
		return ledger.Event{}, false, fmt.Errorf("get match event: %w", err)
	}

	event, err := row.toDomain()
	if err != nil {
		return ledger.Event{}, false, err
	}
	return event, true, nil
}

func (r *EventRepository) Append(ctx context.Context, event ledger.Event) (ledger.Event, error) {
	payload, err := marshalEventPayload(event.Payload)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("encode event payload: %w", err)
	}

	insertModel := matchEventInsertModel{
		PublicID:   event.ID,
		MatchID:    event.MatchID,
		PlayerID:   event.PlayerID,
		TeamID:     event.TeamID,
		Kind:       string(event.Kind()),
		Payload:    payload,
		Minute:     intPtrToNullInt64(event.Minute),
		OccurredAt: event.OccurredAt,
	}
	// The status guard keeps a writer whose lock lease lapsed from appending to a
	// finalized match.
	query, args, err := qb.InsertModelWhere("match_events", insertModel, []qb.Condition{matchOpen(event.MatchID)}, "RETURNING seq")
	if err != nil {
		return ledger.Event{}, fmt.Errorf("build insert match event query: %w", err)
	}

	var seq int64
	if err := r.db.GetContext(ctx, &seq, query, args...); err != nil {
		if isNotFound(err) {
			return ledger.Event{}, fmt.Errorf("%w: match=%s", ledger.ErrLedgerClosed, event.MatchID)
		}
		if isUniqueViolation(err) {
			return ledger.Event{}, fmt.Errorf("event %s already exists", event.ID)
		}
		return ledger.Event{}, fmt.Errorf("insert match event: %w", err)
	}

	event.Sequence = seq
	return event, nil
}

func (r *EventRepository) Delete(ctx context.Context, matchID, eventID string) (bool, error) {
	query, args, err := qb.DeleteFrom("match_events").
		Where(
			qb.Eq("match_public_id", matchID),
			qb.Eq("public_id", eventID),
			matchOpen(matchID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete match event query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete match event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete match event rows affected: %w", err)
	}
	return affected > 0, nil
}

func matchOpen(matchID string) qb.Condition {
	return qb.Raw("EXISTS (SELECT 1 FROM matches WHERE public_id = ? AND status = ?)", matchID, string(match.StatusInProgress))
}
