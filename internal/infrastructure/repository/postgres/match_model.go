package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/shopspring/decimal"
)

type matchTableModel struct {
	ID          int64         `db:"id"`
	PublicID    string        `db:"public_id"`
	LeagueID    string        `db:"league_public_id"`
	LocalTeamID string        `db:"local_team_public_id"`
	AwayTeamID  string        `db:"away_team_public_id"`
	KickoffAt   time.Time     `db:"kickoff_at"`
	Venue       string        `db:"venue"`
	Status      string        `db:"status"`
	LocalScore  sql.NullInt64 `db:"local_score"`
	AwayScore   sql.NullInt64 `db:"away_score"`
	Version     int64         `db:"version"`
	StartedAt   *time.Time    `db:"started_at"`
	FinalizedAt *time.Time    `db:"finalized_at"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

type matchInsertModel struct {
	PublicID    string    `db:"public_id"`
	LeagueID    string    `db:"league_public_id"`
	LocalTeamID string    `db:"local_team_public_id"`
	AwayTeamID  string    `db:"away_team_public_id"`
	KickoffAt   time.Time `db:"kickoff_at"`
	Venue       string    `db:"venue"`
	Status      string    `db:"status"`
	Version     int64     `db:"version"`
}

type matchSummaryTableModel struct {
	MatchID               string          `db:"match_public_id"`
	LocalScore            int             `db:"local_score"`
	AwayScore             int             `db:"away_score"`
	LocalAmount           decimal.Decimal `db:"local_amount"`
	AwayAmount            decimal.Decimal `db:"away_amount"`
	Observations          string          `db:"observations"`
	ArbitratorName        string          `db:"arbitrator_name"`
	LocalCaptainSignature string          `db:"local_captain_signature"`
	AwayCaptainSignature  string          `db:"away_captain_signature"`
	RecordedBy            string          `db:"recorded_by"`
	CreatedAt             time.Time       `db:"created_at"`
}

type matchSummaryInsertModel struct {
	MatchID               string          `db:"match_public_id"`
	LocalScore            int             `db:"local_score"`
	AwayScore             int             `db:"away_score"`
	LocalAmount           decimal.Decimal `db:"local_amount"`
	AwayAmount            decimal.Decimal `db:"away_amount"`
	Observations          string          `db:"observations"`
	ArbitratorName        string          `db:"arbitrator_name"`
	LocalCaptainSignature string          `db:"local_captain_signature"`
	AwayCaptainSignature  string          `db:"away_captain_signature"`
	RecordedBy            string          `db:"recorded_by"`
}

func (row matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:          row.PublicID,
		LeagueID:    row.LeagueID,
		LocalTeamID: row.LocalTeamID,
		AwayTeamID:  row.AwayTeamID,
		KickoffAt:   row.KickoffAt,
		Venue:       row.Venue,
		Status:      match.Status(row.Status),
		LocalScore:  nullInt64ToIntPtr(row.LocalScore),
		AwayScore:   nullInt64ToIntPtr(row.AwayScore),
		Version:     row.Version,
		StartedAt:   row.StartedAt,
		FinalizedAt: row.FinalizedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (row matchSummaryTableModel) toDomain() match.Summary {
	return match.Summary{
		MatchID:               row.MatchID,
		LocalScore:            row.LocalScore,
		AwayScore:             row.AwayScore,
		LocalAmount:           row.LocalAmount,
		AwayAmount:            row.AwayAmount,
		Observations:          row.Observations,
		ArbitratorName:        row.ArbitratorName,
		LocalCaptainSignature: row.LocalCaptainSignature,
		AwayCaptainSignature:  row.AwayCaptainSignature,
		RecordedBy:            row.RecordedBy,
		CreatedAt:             row.CreatedAt,
	}
}
