package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStatementsSkipsComments(t *testing.T) {
	src := "-- header\nCREATE TABLE a (id INT);\n\n-- note\nCREATE TABLE b (id INT);\n"
	got := statements(src)
	if len(got) != 2 {
		t.Fatalf("statements = %q, want 2 entries", got)
	}
	if got[0] != "CREATE TABLE a (id INT)" {
		t.Errorf("first statement = %q", got[0])
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'"); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if n != 10 {
		t.Fatalf("tables = %d, want 10", n)
	}
}
