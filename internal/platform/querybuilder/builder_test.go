package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "status").
		From("weeks").
		Where(Eq("status", "OPEN"), IsNull("progress_message_id")).
		OrderBy("starts_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, status FROM weeks WHERE status = $1 AND progress_message_id IS NULL ORDER BY starts_at DESC LIMIT 1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "OPEN" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_IntervalWithLock(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query, args, err := Select("*").
		From("weeks").
		Where(Lte("starts_at", at), Gt("ends_at", at)).
		Limit(1).
		Lock(LockForUpdate).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT * FROM weeks WHERE starts_at <= $1 AND ends_at > $2 LIMIT 1 FOR UPDATE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("workouts").
		Columns("id", "source").
		Values("w1", "MANUAL").
		Suffix("ON CONFLICT (source, source_event_id) DO NOTHING RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO workouts (id, source) VALUES ($1, $2) ON CONFLICT (source, source_event_id) DO NOTHING RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "w1" || args[1] != "MANUAL" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("weeks").
		SetExpr("current_points", "current_points + ?", 10).
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", "wk1")).
		Suffix("RETURNING current_points").
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE weeks SET current_points = current_points + $1, updated_at = NOW() WHERE id = $2 RETURNING current_points"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != 10 || args[1] != "wk1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel_SkipsUntaggedFields(t *testing.T) {
	type row struct {
		ID      string `db:"id"`
		Points  int    `db:"points"`
		Ignored string
		Skipped string `db:"-"`
	}

	query, args, err := InsertModel("points_ledger", row{ID: "l1", Points: 10}, "")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}

	wantQuery := "INSERT INTO points_ledger (id, points) VALUES ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[1] != 10 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpsertModel_UpdatesNonKeyColumns(t *testing.T) {
	type row struct {
		ID                string `db:"id"`
		WeekID            string `db:"week_id"`
		UserID            string `db:"user_id"`
		CommittedWorkouts int    `db:"committed_workouts"`
	}

	query, args, err := UpsertModel("commitments", row{ID: "c1", WeekID: "wk1", UserID: "u1", CommittedWorkouts: 3}, []string{"user_id", "week_id"}, "*", "id")
	if err != nil {
		t.Fatalf("build upsert model query: %v", err)
	}

	wantQuery := "INSERT INTO commitments (id, week_id, user_id, committed_workouts) VALUES ($1, $2, $3, $4) " +
		"ON CONFLICT (user_id, week_id) DO UPDATE SET committed_workouts = EXCLUDED.committed_workouts RETURNING *"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[3] != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpsertModel_RequiresConflictColumns(t *testing.T) {
	type row struct {
		ID string `db:"id"`
	}
	if _, _, err := UpsertModel("users", row{ID: "u1"}, nil, ""); err == nil {
		t.Fatalf("expected error without conflict columns")
	}
	if _, _, err := UpsertModel("users", row{ID: "u1"}, []string{"id"}, ""); err == nil {
		t.Fatalf("expected error when nothing is left to update")
	}
}
