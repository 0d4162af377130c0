package postgres

import "time"

type rosterEntryTableModel struct {
	ID           int64     `db:"id"`
	MatchID      string    `db:"match_public_id"`
	TeamID       string    `db:"team_public_id"`
	PlayerID     string    `db:"player_public_id"`
	IsStarting   bool      `db:"is_starting"`
	IsCaptain    bool      `db:"is_captain"`
	RegisteredAt time.Time `db:"registered_at"`
}

type rosterEntryInsertModel struct {
	MatchID      string    `db:"match_public_id"`
	TeamID       string    `db:"team_public_id"`
	PlayerID     string    `db:"player_public_id"`
	IsStarting   bool      `db:"is_starting"`
	RegisteredAt time.Time `db:"registered_at"`
}
