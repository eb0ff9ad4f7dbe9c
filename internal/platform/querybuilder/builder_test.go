package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "address").
		From("game_servers").
		Where(Eq("master_server_id", int64(7)), IsNull("polling_started_at")).
		OrderBy("polled_at NULLS FIRST").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, address FROM game_servers WHERE master_server_id = $1 AND polling_started_at IS NULL ORDER BY polled_at NULLS FIRST LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderOrCondition(t *testing.T) {
	query, args, err := Select("id").
		From("game_servers").
		Where(Or(IsNull("polled_at"), Lt("polled_at", "cutoff"))).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM game_servers WHERE (polled_at IS NULL OR polled_at < $1)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "cutoff" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("maps").
		Columns("name").
		Values("ctf5").
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO maps (name) VALUES ($1) ON CONFLICT (name) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "ctf5" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilderLeaseShape(t *testing.T) {
	query, args, err := Update("game_servers").
		Set("polling_started_at", "now").
		Where(Eq("id", int64(3)), IsNull("polling_started_at")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE game_servers SET polling_started_at = $1 WHERE id = $2 AND polling_started_at IS NULL"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilderSetExpr(t *testing.T) {
	query, args, err := Update("players").
		SetExpr("play_seconds", "play_seconds + ?", int64(300)).
		Where(Eq("name", "nameless tee")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE players SET play_seconds = play_seconds + $1 WHERE name = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(300) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("game_servers").
		Where(Eq("id", int64(9))).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM game_servers WHERE id = $1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		Name  string `db:"name"`
		Score int    `db:"score"`
		skip  string //nolint:unused
	}

	query, args, err := InsertModel("snapshot_clients", row{Name: "tee", Score: 4}, "")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}

	wantQuery := "INSERT INTO snapshot_clients (name, score) VALUES ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "tee" || args[1] != 4 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
