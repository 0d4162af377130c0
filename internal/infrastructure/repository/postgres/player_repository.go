package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/vocalia/internal/domain/player"
	qb "github.com/riskibarqy/vocalia/internal/platform/querybuilder"
)

var playerColumns = []string{"id", "public_id", "team_public_id", "name", "shirt_number", "is_active", "created_at", "updated_at", "deleted_at"}

// PlayerRepository reads the squad directory. Soft-deleted rows are never
// returned; inactive players still resolve by id so historic events render.
type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID string) ([]player.Player, error) {
	return r.selectPlayers(ctx, "by team",
		[]qb.Condition{qb.Eq("team_public_id", teamID), qb.Eq("is_active", true)},
		"shirt_number", "id")
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return []player.Player{}, nil
	}
	return r.selectPlayers(ctx, "by ids",
		[]qb.Condition{qb.In("public_id", stringSliceToAny(playerIDs))},
		"id")
}

func (r *PlayerRepository) selectPlayers(ctx context.Context, op string, conds []qb.Condition, orderBy ...string) ([]player.Player, error) {
	query, args, err := qb.Select(playerColumns...).From("players").
		Where(append(conds, qb.IsNull("deleted_at"))...).
		OrderBy(orderBy...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players %s query: %w", op, err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players %s: %w", op, err)
	}
	out := make([]player.Player, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
