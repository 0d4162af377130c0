package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/vocalia/internal/infrastructure/repository/memory"
	qb "github.com/riskibarqy/vocalia/internal/platform/querybuilder"
)

// BootstrapSeed loads the demo squads and fixture into an empty database.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM matches`); err != nil {
		return fmt.Errorf("count matches for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range memory.SeedPlayers() {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("seed player %s: %w", p.ID, err)
		}
		query, args, err := qb.InsertModel("players", playerInsertModel{
			PublicID:    p.ID,
			TeamID:      p.TeamID,
			Name:        p.Name,
			ShirtNumber: p.ShirtNumber,
			IsActive:    true,
		}, "ON CONFLICT (public_id) DO NOTHING")
		if err != nil {
			return fmt.Errorf("build seed player %s query: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed player %s: %w", p.ID, err)
		}
	}

	for _, m := range memory.SeedMatches() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO matches (public_id, league_public_id, local_team_public_id, away_team_public_id, kickoff_at, venue, status, version)
VALUES (:public_id, :league_public_id, :local_team_public_id, :away_team_public_id, :kickoff_at, :venue, :status, 1)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":            m.ID,
			"league_public_id":     m.LeagueID,
			"local_team_public_id": m.LocalTeamID,
			"away_team_public_id":  m.AwayTeamID,
			"kickoff_at":           m.KickoffAt.UTC(),
			"venue":                m.Venue,
			"status":               string(m.Status),
		})
		if err != nil {
			return fmt.Errorf("bind seed match %s query: %w", m.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed match %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
