package postgres

import (
	"strings"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("loadMigrations() returned no migrations")
	}
	if migrations[0].version != "001_initial.sql" {
		t.Errorf("first migration = %s, want 001_initial.sql", migrations[0].version)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].version >= migrations[i].version {
			t.Errorf("migrations not sorted: %s before %s", migrations[i-1].version, migrations[i].version)
		}
	}
	for _, table := range []string{"subjects", "subject_embeddings", "sessions", "attendance_records"} {
		if !strings.Contains(migrations[0].sql, table) {
			t.Errorf("initial migration does not mention table %s", table)
		}
	}
}
