package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	qb "github.com/riskibarqy/vocalia/internal/platform/querybuilder"
)

type RosterRepository struct {
	db *sqlx.DB
}

func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) GetRoster(ctx context.Context, matchID string) (roster.Roster, error) {
	query, args, err := qb.Select("*").From("roster_entries").
		Where(qb.Eq("match_public_id", matchID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return roster.Roster{}, fmt.Errorf("build select roster query: %w", err)
	}

	var rows []rosterEntryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return roster.Roster{}, fmt.Errorf("select roster entries: %w", err)
	}

	out := roster.Roster{
		MatchID:  matchID,
		Entries:  make([]roster.Entry, 0, len(rows)),
		Captains: make(map[string]string),
	}
	for _, row := range rows {
		out.Entries = append(out.Entries, roster.Entry{
			MatchID:      row.MatchID,
			TeamID:       row.TeamID,
			PlayerID:     row.PlayerID,
			Starting:     row.IsStarting,
			RegisteredAt: row.RegisteredAt,
		})
		if row.IsCaptain {
			out.Captains[row.TeamID] = row.PlayerID
		}
	}

	return out, nil
}

func (r *RosterRepository) Insert(ctx context.Context, entries []roster.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx insert roster entries: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	inserted := 0
	for _, entry := range entries {
		insertModel := rosterEntryInsertModel{
			MatchID:      entry.MatchID,
			TeamID:       entry.TeamID,
			PlayerID:     entry.PlayerID,
			IsStarting:   entry.Starting,
			RegisteredAt: entry.RegisteredAt,
		}
		query, args, err := qb.InsertModel("roster_entries", insertModel, "ON CONFLICT (match_public_id, player_public_id) DO NOTHING")
		if err != nil {
			return 0, fmt.Errorf("build insert roster entry query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert roster entry match=%s player=%s: %w", entry.MatchID, entry.PlayerID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("roster entry rows affected: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert roster entries tx: %w", err)
	}
	return inserted, nil
}

func (r *RosterRepository) SetCaptain(ctx context.Context, matchID, teamID, playerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx set captain: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	clearQuery, clearArgs, err := qb.Update("roster_entries").
		Set("is_captain", false).
		Where(
			qb.Eq("match_public_id", matchID),
			qb.Eq("team_public_id", teamID),
			qb.Eq("is_captain", true),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear captain query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear captain: %w", err)
	}

	if playerID != "" {
		setQuery, setArgs, err := qb.Update("roster_entries").
			Set("is_captain", true).
			Where(
				qb.Eq("match_public_id", matchID),
				qb.Eq("team_public_id", teamID),
				qb.Eq("player_public_id", playerID),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build set captain query: %w", err)
		}
		res, err := tx.ExecContext(ctx, setQuery, setArgs...)
		if err != nil {
			return fmt.Errorf("set captain: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("set captain rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: player=%s team=%s", roster.ErrPlayerNotRegistered, playerID, teamID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set captain tx: %w", err)
	}
	return nil
}
