package postgres

import (
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/vocalia/internal/domain/ledger"
)

type matchEventTableModel struct {
	Seq        int64         `db:"seq"`
	PublicID   string        `db:"public_id"`
	MatchID    string        `db:"match_public_id"`
	PlayerID   string        `db:"player_public_id"`
	TeamID     string        `db:"team_public_id"`
	Kind       string        `db:"kind"`
	Payload    string        `db:"payload"`
	Minute     sql.NullInt64 `db:"minute"`
	OccurredAt time.Time     `db:"occurred_at"`
	CreatedAt  time.Time     `db:"created_at"`
}

type matchEventInsertModel struct {
	PublicID   string        `db:"public_id"`
	MatchID    string        `db:"match_public_id"`
	PlayerID   string        `db:"player_public_id"`
	TeamID     string        `db:"team_public_id"`
	Kind       string        `db:"kind"`
	Payload    string        `db:"payload"`
	Minute     sql.NullInt64 `db:"minute"`
	OccurredAt time.Time     `db:"occurred_at"`
}

// eventPayloadModel is the jsonb shape of the payload column; only the fields
// of the row's kind are populated.
type eventPayloadModel struct {
	IsOwnGoal    bool   `json:"is_own_goal,omitempty"`
	SanctionType string `json:"sanction_type,omitempty"`
	PlayerOutID  string `json:"player_out_id,omitempty"`
	PlayerInID   string `json:"player_in_id,omitempty"`
}

func marshalEventPayload(payload ledger.Payload) (string, error) {
	var model eventPayloadModel
	switch p := payload.(type) {
	case ledger.Goal:
		model.IsOwnGoal = p.IsOwnGoal
	case ledger.Sanction:
		model.SanctionType = string(p.Type)
	case ledger.Substitution:
		model.PlayerOutID = p.PlayerOutID
		model.PlayerInID = p.PlayerInID
	default:
		return "", fmt.Errorf("unsupported event payload %T", payload)
	}

	raw, err := jsoniter.Marshal(model)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalEventPayload(kind, raw string) (ledger.Payload, error) {
	var model eventPayloadModel
	if raw != "" {
		if err := jsoniter.UnmarshalFromString(raw, &model); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}

	switch ledger.Kind(kind) {
	case ledger.KindGoal:
		return ledger.Goal{IsOwnGoal: model.IsOwnGoal}, nil
	case ledger.KindSanction:
		sanctionType, err := ledger.ParseSanctionType(model.SanctionType)
		if err != nil {
			return nil, err
		}
		return ledger.Sanction{Type: sanctionType}, nil
	case ledger.KindSubstitution:
		return ledger.Substitution{PlayerOutID: model.PlayerOutID, PlayerInID: model.PlayerInID}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

func (row matchEventTableModel) toDomain() (ledger.Event, error) {
	payload, err := unmarshalEventPayload(row.Kind, row.Payload)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("event %s: %w", row.PublicID, err)
	}
	return ledger.Event{
		ID:         row.PublicID,
		MatchID:    row.MatchID,
		PlayerID:   row.PlayerID,
		TeamID:     row.TeamID,
		OccurredAt: row.OccurredAt,
		Minute:     nullInt64ToIntPtr(row.Minute),
		Sequence:   row.Seq,
		Payload:    payload,
	}, nil
}
