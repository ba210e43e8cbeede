package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/office?sslmode=disable": "pgx5://u:p@localhost:5432/office?sslmode=disable",
		"postgresql://localhost/office":                         "pgx5://localhost/office",
		"pgx5://already":                                        "pgx5://already",
	}
	for in, want := range cases {
		if got := MigrationURL(in); got != want {
			t.Fatalf("MigrationURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for version := range ups {
		if !downs[version] {
			t.Fatalf("migration %s has no down file", version)
		}
	}
}
