package querybuilder

import (
	"database/sql"
	"testing"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "player_id").
		From("match_events").
		Where(Eq("match_id", "m1"), IsNull("deleted_at")).
		OrderBy("occurred_at", "seq").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, player_id FROM match_events WHERE match_id = $1 AND deleted_at IS NULL ORDER BY occurred_at, seq LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "m1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ForUpdate(t *testing.T) {
	query, args, err := Select("version").
		From("matches").
		Where(Eq("id", "m1")).
		ForUpdate().
		ToSQL()
	if err != nil {
		t.Fatalf("build select for update: %v", err)
	}

	wantQuery := "SELECT version FROM matches WHERE id = $1 FOR UPDATE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_InWithNoValuesMatchesNothing(t *testing.T) {
	query, args, err := Select("*").From("players").Where(In("id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT * FROM players WHERE 1=0" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel_SuffixAndNestedFields(t *testing.T) {
	type row struct {
		MatchID string        `db:"match_id"`
		Minute  sql.NullInt64 `db:"minute"`
		Note    string
		Skipped string `db:"-"`
	}

	query, args, err := InsertModel("match_events", &row{MatchID: "m1", Minute: sql.NullInt64{Int64: 12, Valid: true}}, " RETURNING seq ")
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}

	wantQuery := "INSERT INTO match_events (match_id, minute) VALUES ($1, $2) RETURNING seq"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "m1" {
		t.Fatalf("unexpected args: %+v", args)
	}
	if minute, ok := args[1].(sql.NullInt64); !ok || minute.Int64 != 12 {
		t.Fatalf("unexpected minute arg: %#v", args[1])
	}
}

func TestInsertModel_RejectsNonStruct(t *testing.T) {
	var nilRow *struct {
		ID string `db:"id"`
	}
	for _, model := range []any{"x", nilRow, struct{ Note string }{}} {
		if _, _, err := InsertModel("t", model, ""); err == nil {
			t.Fatalf("expected error for model %#v", model)
		}
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		MatchID  string `db:"match_id"`
		PlayerID string `db:"player_id"`
		Starting bool   `db:"is_starting"`
		internal string
	}

	query, args, err := InsertModel("roster_entries", row{MatchID: "m1", PlayerID: "p1", Starting: true, internal: "x"}, "")
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}
	wantQuery := "INSERT INTO roster_entries (match_id, player_id, is_starting) VALUES ($1, $2, $3)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[2] != true {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("matches").
		Set("status", "in_progress").
		SetExpr("version", "version + 1").
		Where(Eq("id", "m1"), Eq("version", int64(3))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE matches SET status = $1, version = version + 1 WHERE id = $2 AND version = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "in_progress" || args[1] != "m1" || args[2] != int64(3) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("match_events").
		Where(Eq("match_id", "m1"), Eq("id", "e1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM match_events WHERE match_id = $1 AND id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "m1" || args[1] != "e1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_RequiresConditions(t *testing.T) {
	if _, _, err := DeleteFrom("match_events").ToSQL(); err == nil {
		t.Fatalf("expected error for unscoped delete")
	}
}

func TestUpdateBuilder_SetExprBindsArgs(t *testing.T) {
	query, args, err := Update("matches").
		SetExpr("local_score", "COALESCE(local_score, 0) + ?", 1).
		Where(Eq("public_id", "m1")).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE matches SET local_score = COALESCE(local_score, 0) + $1 WHERE public_id = $2 RETURNING *"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != 1 || args[1] != "m1" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := Update("matches").SetExpr("version", "version + ?").ToSQL(); err == nil {
		t.Fatalf("expected error for placeholder without argument")
	}
}

func TestInsertModelWhere_GuardsWithExists(t *testing.T) {
	type row struct {
		MatchID string `db:"match_public_id"`
		Kind    string `db:"kind"`
	}

	query, args, err := InsertModelWhere("match_events", row{MatchID: "m1", Kind: "goal"}, []Condition{
		Raw("EXISTS (SELECT 1 FROM matches WHERE public_id = ? AND status = ?)", "m1", "in_progress"),
	}, "RETURNING seq")
	if err != nil {
		t.Fatalf("build guarded insert: %v", err)
	}
	wantQuery := "INSERT INTO match_events (match_public_id, kind) SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM matches WHERE public_id = $3 AND status = $4) RETURNING seq"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[3] != "in_progress" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertModelWhere("match_events", row{}, nil, ""); err == nil {
		t.Fatalf("expected error without conditions")
	}
}

func TestRaw_ReportsPlaceholderMismatch(t *testing.T) {
	_, _, err := DeleteFrom("match_events").Where(Raw("seq > ? AND seq < ?", 1)).ToSQL()
	if err == nil {
		t.Fatalf("expected placeholder mismatch error")
	}
}
